package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/parlatext/parlatext/internal/api/handlers"
	"github.com/parlatext/parlatext/internal/config"
	"github.com/parlatext/parlatext/internal/database"
	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/jobs"
	"github.com/parlatext/parlatext/internal/openai"
	"github.com/parlatext/parlatext/internal/repository"
	"github.com/parlatext/parlatext/internal/retrieval"
	"github.com/parlatext/parlatext/internal/server"
	"github.com/parlatext/parlatext/internal/service"
	"github.com/parlatext/parlatext/internal/storage"
	"github.com/parlatext/parlatext/internal/telemetry"
	"github.com/parlatext/parlatext/internal/temporal"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the parlatext API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	domainCfg, err := temporal.Load(cfg.DomainConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load temporal domain config: %w", err)
	}
	if domainCfg != nil {
		log.Printf("temporal domain %q loaded from %s", domainCfg.Name, cfg.DomainConfigPath)
	} else {
		log.Println("no temporal domain configured, running in generic mode")
	}

	documentRepo := repository.NewDocumentRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)

	var archiveClient service.ArchiveClient
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiveClient = s3Client
	}

	var embeddingClient *openai.Client
	var indexWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			CompletionModel: cfg.CompletionModel,
		})
		indexSvc := service.NewIndexService(embeddingClient, documentRepo)
		indexProcessor := jobs.NewIndexWorker(indexJobRepo, indexSvc)
		indexWorker = jobs.NewWorker(indexProcessor, 10*time.Second)
		go indexWorker.Start(ctx)
		log.Println("index worker started")
	}

	ingestSvc := service.NewIngestService(documentRepo, indexJobRepo, archiveClient, nil)
	documentHandler := handlers.NewDocumentHandler(ingestSvc, documentRepo)

	var searchHandler *handlers.SearchHandler
	if embeddingClient != nil {
		filterCfg := retrieval.HybridFilterConfig{
			ScoreThreshold:      cfg.ScoreThreshold,
			SimilarityThreshold: cfg.SimilarityThreshold,
			MaxDocuments:        cfg.MaxDocuments,
			EnableLLMFilter:     cfg.EnableLLMFilter,
		}
		var llm retrieval.CompletionClient
		if cfg.EnableLLMFilter {
			llm = embeddingClient
		}
		searchSvc := service.NewSearchService(embeddingClient, documentRepo, llm, domainCfg, cfg.SimilarityTopK, filterCfg)
		searchHandler = handlers.NewSearchHandler(searchSvc)
	} else {
		searchHandler = handlers.NewSearchHandler(&noOpSearchService{})
	}

	routerCfg := server.RouterConfig{
		APIToken:        cfg.APIToken,
		DocumentHandler: documentHandler,
		SearchHandler:   searchHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if indexWorker != nil {
		indexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpSearchService struct{}

func (s *noOpSearchService) Search(ctx context.Context, query string) ([]domain.ScoredDocument, error) {
	return nil, fmt.Errorf("search service not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
