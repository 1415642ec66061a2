package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Static bearer token for the API. Empty disables authentication.
	APIToken string `envconfig:"API_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"parlatext-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Chat model for the LLM relevance filter. Empty uses the client default.
	CompletionModel string `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`

	// Path to the temporal domain YAML. Empty runs the engine in generic mode.
	DomainConfigPath string `envconfig:"DOMAIN_CONFIG_PATH"`

	SimilarityTopK      int     `envconfig:"SIMILARITY_TOP_K" default:"10"`
	ScoreThreshold      float64 `envconfig:"SCORE_THRESHOLD" default:"0.65"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.9"`
	MaxDocuments        int     `envconfig:"MAX_DOCUMENTS" default:"8"`
	EnableLLMFilter     bool    `envconfig:"ENABLE_LLM_FILTER" default:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PARLATEXT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
