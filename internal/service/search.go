package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/retrieval"
	"github.com/parlatext/parlatext/internal/telemetry"
	"github.com/parlatext/parlatext/internal/temporal"
)

// SearchDocumentRepository defines the repository interface for vector search
type SearchDocumentRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filter *domain.MetadataFilter, limit int) ([]domain.ScoredDocument, error)
}

// embeddingSearcher adapts the embedding client and document repository to the
// retrieval.VectorSearcher interface: embed the query text, then search.
type embeddingSearcher struct {
	client EmbeddingClient
	repo   SearchDocumentRepository
}

func (s *embeddingSearcher) Search(ctx context.Context, query string, filter *domain.MetadataFilter, topK int) ([]domain.ScoredDocument, error) {
	embedding, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.repo.SearchByEmbedding(ctx, embedding, filter, topK)
}

// SearchService runs the full query pipeline: rewrite, temporal retrieval,
// and multi-stage filtering.
type SearchService struct {
	retriever *retrieval.TemporalRetriever
	filter    *retrieval.HybridFilter
}

// NewSearchService creates a new SearchService. A nil domain disables query
// rewriting and temporal filtering; a nil llm disables the relevance stage.
func NewSearchService(
	client EmbeddingClient,
	repo SearchDocumentRepository,
	llm retrieval.CompletionClient,
	d *temporal.Domain,
	topK int,
	filterCfg retrieval.HybridFilterConfig,
) *SearchService {
	searcher := &embeddingSearcher{client: client, repo: repo}
	return &SearchService{
		retriever: retrieval.NewTemporalRetriever(searcher, topK, nil, d),
		filter:    retrieval.NewHybridFilter(filterCfg, llm, d),
	}
}

// Search retrieves and filters documents for the query
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.ScoredDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	candidates, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	return s.filter.Process(ctx, query, candidates), nil
}
