package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/retrieval"
	"github.com/parlatext/parlatext/internal/temporal"
)

type MockSearchDocumentRepository struct {
	mock.Mock
}

func (m *MockSearchDocumentRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter *domain.MetadataFilter, limit int) ([]domain.ScoredDocument, error) {
	args := m.Called(ctx, embedding, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredDocument), args.Error(1)
}

func bundestagDomain() *temporal.Domain {
	return &temporal.Domain{
		Name: "bundestag",
		MetadataSchema: temporal.MetadataSchema{
			TemporalField:    "legislature_period",
			CurrentPeriod:    21,
			HistoricalPeriod: 20,
		},
		TemporalKeywords: map[string]temporal.Keywords{
			temporal.CategoryCurrent: {
				EN: []string{"current", "latest"},
				DE: []string{"aktuell", "jetzig"},
			},
			temporal.CategoryHistorical: {
				EN: []string{"previous", "last legislature"},
				DE: []string{"vorherige", "letzte wahlperiode"},
			},
		},
		PeriodIdentifiers: map[string]temporal.PeriodDefinition{
			"20": {Names: []string{"20. Wahlperiode"}, Years: []int{2021, 2025}, TemporalType: temporal.CategoryHistorical},
			"21": {Names: []string{"21. Wahlperiode"}, Years: []int{2025}, TemporalType: temporal.CategoryCurrent},
		},
		QueryExpansion: map[string]temporal.ExpansionTerms{
			temporal.ExpansionTemporalCurrent: {
				EN: "current legislature period Bundestag",
				DE: "aktuelle Wahlperiode Bundestag",
			},
			temporal.ExpansionTemporalHistorical: {
				EN: "previous legislature period",
				DE: "vorherige Wahlperiode",
			},
		},
		LanguageDetection: []temporal.LanguagePatterns{
			{Code: "de", Patterns: []string{"wahlperiode", "bundestag", "aktuell"}},
		},
	}
}

func scored(id string, score float64, period string) domain.ScoredDocument {
	return domain.ScoredDocument{
		Document: &domain.Document{
			ID:       id,
			Title:    "Dokument " + id,
			Content:  "Inhalt " + id,
			Metadata: map[string]string{"legislature_period": period},
		},
		Score: score,
	}
}

func TestSearchService_Search_EmptyQuery(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	svc := NewSearchService(mockClient, mockRepo, nil, nil, 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "   ")

	assert.Nil(t, results)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	mockClient.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestSearchService_Search_GenericMode(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	embedding := make([]float32, 1536)
	docs := []domain.ScoredDocument{
		scored("a", 0.9, "21"),
		scored("b", 0.8, "20"),
	}

	// No temporal domain: the query is embedded unchanged and no filter applies.
	mockClient.On("GenerateEmbedding", mock.Anything, "Klimapolitik").Return(embedding, nil)
	mockRepo.On("SearchByEmbedding", mock.Anything, embedding, (*domain.MetadataFilter)(nil), 10).Return(docs, nil)

	svc := NewSearchService(mockClient, mockRepo, nil, nil, 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "Klimapolitik")

	require.NoError(t, err)
	assert.Len(t, results, 2)
	mockClient.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_CurrentQueryAppliesFilter(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	embedding := make([]float32, 1536)
	docs := []domain.ScoredDocument{scored("a", 0.9, "21")}

	expectedFilter := &domain.MetadataFilter{Field: "legislature_period", Value: "21"}

	// The rewriter expands the query before embedding.
	mockClient.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "aktuelle Wahlperiode Bundestag")
	})).Return(embedding, nil)
	mockRepo.On("SearchByEmbedding", mock.Anything, embedding, expectedFilter, 10).Return(docs, nil)

	svc := NewSearchService(mockClient, mockRepo, nil, bundestagDomain(), 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "Was wird aktuell debattiert")

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "21", results[0].Document.Meta("legislature_period"))
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_HistoricalQueryAppliesFilter(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	embedding := make([]float32, 1536)
	docs := []domain.ScoredDocument{scored("a", 0.9, "20")}

	expectedFilter := &domain.MetadataFilter{Field: "legislature_period", Value: "20"}

	mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	mockRepo.On("SearchByEmbedding", mock.Anything, embedding, expectedFilter, 10).Return(docs, nil)

	svc := NewSearchService(mockClient, mockRepo, nil, bundestagDomain(), 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "Debatten der vorherige Wahlperiode")

	require.NoError(t, err)
	assert.Len(t, results, 1)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_FilterRemovesLowScores(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	embedding := make([]float32, 1536)
	docs := []domain.ScoredDocument{
		scored("high", 0.9, "21"),
		scored("low", 0.3, "21"),
	}

	mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	mockRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(docs, nil)

	svc := NewSearchService(mockClient, mockRepo, nil, nil, 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "Klimapolitik")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "high", results[0].Document.ID)
}

func TestSearchService_Search_EmbeddingError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockSearchDocumentRepository)

	mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	svc := NewSearchService(mockClient, mockRepo, nil, nil, 10, retrieval.DefaultHybridFilterConfig())

	results, err := svc.Search(context.Background(), "Klimapolitik")

	assert.Nil(t, results)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failed")
	mockRepo.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
