package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/extraction"
)

// UUIDGenerator defines the interface for generating unique IDs
type UUIDGenerator interface {
	NewUUID() string
}

// DefaultUUIDGenerator generates random UUIDs
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewUUID() string {
	return uuid.NewString()
}

// IngestDocumentRepository defines the repository interface for ingestion
type IngestDocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
}

// IndexJobCreator enqueues documents for asynchronous embedding
type IndexJobCreator interface {
	Create(ctx context.Context, job *domain.IndexJob) error
}

// ArchiveClient stores raw protocol text for later re-ingestion
type ArchiveClient interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// IngestInput holds the fields of an ingestion request
type IngestInput struct {
	Title              string
	Content            string
	Metadata           map[string]string
	SpeakerAffiliation string
}

// IngestService creates documents, extracts their entity composition, and
// enqueues them for embedding
type IngestService struct {
	repo    IngestDocumentRepository
	jobs    IndexJobCreator
	archive ArchiveClient
	uuidGen UUIDGenerator
}

// NewIngestService creates a new IngestService instance. A nil archive
// disables raw-text archiving.
func NewIngestService(repo IngestDocumentRepository, jobs IndexJobCreator, archive ArchiveClient, uuidGen UUIDGenerator) *IngestService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &IngestService{
		repo:    repo,
		jobs:    jobs,
		archive: archive,
		uuidGen: uuidGen,
	}
}

// Ingest stores a new document. Entity composition is extracted synchronously;
// structured speaker metadata takes precedence over the text heuristics. The
// embedding is generated asynchronously by the index worker.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*domain.Document, error) {
	if input.Content == "" {
		return nil, domain.ErrMissingRequiredField
	}

	now := time.Now().UTC()

	doc := &domain.Document{
		ID:        s.uuidGen.NewUUID(),
		Title:     input.Title,
		Content:   input.Content,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	var composition domain.Composition
	if input.SpeakerAffiliation != "" {
		composition = extraction.FromSpeakerAffiliation(input.SpeakerAffiliation)
	} else {
		composition = extraction.FromText(input.Content)
	}
	doc.Composition = &composition

	// Archiving is best effort: the document is the source of truth once
	// stored, the archive only enables re-ingestion.
	if s.archive != nil {
		key := fmt.Sprintf("documents/%s.txt", doc.ID)
		if err := s.archive.PutObject(ctx, key, []byte(input.Content), "text/plain; charset=utf-8"); err != nil {
			log.Printf("ingest: failed to archive raw text for document %s: %v", doc.ID, err)
		}
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	job := domain.NewIndexJob(s.uuidGen.NewUUID(), doc.ID, now)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue index job: %w", err)
	}

	log.Printf("ingest: document %s stored, index job %s enqueued", doc.ID, job.ID)
	return doc, nil
}
