package domain

import (
	"fmt"
	"time"
)

// Well-known metadata keys consumed by the retrieval pipeline. The temporal
// period field itself is not fixed here; it comes from the temporal domain
// configuration.
const (
	MetadataKeyDocumentNumber = "document_number"
	MetadataKeyTitle          = "title"
	MetadataKeySpeaker        = "speaker"
	MetadataKeyDocumentType   = "document_type"
	MetadataKeyCreatedTime    = "created_time"
)

// Document represents an ingested protocol document.
type Document struct {
	ID          string
	Title       string
	Content     string
	Metadata    map[string]string
	Composition *Composition
	Embedding   []float32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Meta returns the metadata value for key, or "" when absent.
func (d *Document) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// ScoredDocument is a candidate document returned by vector search, with its
// similarity score to the query. Result lists are sorted descending by score.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// MetadataFilter is an equality predicate on a named metadata field, applied
// by the vector index during search.
type MetadataFilter struct {
	Field string
	Value string
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Content == "" {
		return fmt.Errorf("document Content is required")
	}

	return nil
}
