package domain

import "time"

// Confidence labels how reliable an extracted composition is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ExtractionSource identifies where a composition was extracted from.
type ExtractionSource string

const (
	ExtractionSourceProtocolText    ExtractionSource = "protocol_text"
	ExtractionSourceSpeakerMetadata ExtractionSource = "speaker_metadata"
	ExtractionSourceNone            ExtractionSource = "none"
)

// EntityGroup is a canonical entity name with the raw variations observed for
// it. Created once during ingestion parsing and never mutated afterwards.
type EntityGroup struct {
	Name         string   `json:"name"`
	Variations   []string `json:"variations"`
	Type         string   `json:"type"`
	MentionCount int      `json:"mention_count"`
}

// Composition is the entity-group metadata attached to a document at
// ingestion time, usable as a filter predicate later.
type Composition struct {
	Fractions        []EntityGroup    `json:"fractions"`
	ExtractionSource ExtractionSource `json:"extraction_source"`
	ExtractedAt      time.Time        `json:"extracted_at"`
	Confidence       Confidence       `json:"confidence"`
}

// TotalMentions sums the mention counts of all fractions.
func (c *Composition) TotalMentions() int {
	total := 0
	for _, f := range c.Fractions {
		total += f.MentionCount
	}
	return total
}
