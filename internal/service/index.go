package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IndexDocumentRepository defines the repository interface for index operations
type IndexDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// IndexService generates and stores document embeddings
type IndexService struct {
	client EmbeddingClient
	repo   IndexDocumentRepository
}

// NewIndexService creates a new IndexService instance
func NewIndexService(client EmbeddingClient, repo IndexDocumentRepository) *IndexService {
	return &IndexService{
		client: client,
		repo:   repo,
	}
}

// EmbedDocument generates and stores an embedding for the given document ID.
// This method is called by the background worker.
func (s *IndexService) EmbedDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "index.embed_document", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "embed",
	})
	defer span.End()

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return err
	}

	text := buildEmbeddingText(doc)

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, documentID, embedding); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

func buildEmbeddingText(d *domain.Document) string {
	var parts []string

	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	if speaker := d.Meta(domain.MetadataKeySpeaker); speaker != "" {
		parts = append(parts, fmt.Sprintf("Speaker: %s", speaker))
	}
	if d.Content != "" {
		parts = append(parts, d.Content)
	}

	return strings.Join(parts, "\n\n")
}
