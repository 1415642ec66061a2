package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/temporal"
)

const relevanceExcerptChars = 1500

// CompletionClient is the optional language-model collaborator used by the
// relevance filter stage. Only the first token of the response is parsed.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HybridFilterConfig holds the thresholds for the filtering stages.
type HybridFilterConfig struct {
	ScoreThreshold      float64
	SimilarityThreshold float64
	MaxDocuments        int
	EnableLLMFilter     bool
}

// DefaultHybridFilterConfig returns the default filter thresholds.
func DefaultHybridFilterConfig() HybridFilterConfig {
	return HybridFilterConfig{
		ScoreThreshold:      0.65,
		SimilarityThreshold: 0.90,
		MaxDocuments:        8,
		EnableLLMFilter:     false,
	}
}

// HybridFilter applies multi-stage filtering to retrieved candidates:
//
//  1. score threshold - fast removal of low-similarity documents
//  2. temporal filtering - keeps documents from the period the query asks for
//  3. semantic deduplication - one representative per similarity cluster
//  4. LLM relevance check (optional) - verifies relevance to the query
//  5. max documents cap
//
// Cheap stages run first so the per-document LLM stage only sees the few
// candidates that survive everything else.
type HybridFilter struct {
	cfg    HybridFilterConfig
	llm    CompletionClient
	domain *temporal.Domain

	currentKeywords    []string
	historicalKeywords []string
}

// NewHybridFilter creates a new HybridFilter. A nil domain disables the
// temporal stage; a nil llm disables the relevance stage.
func NewHybridFilter(cfg HybridFilterConfig, llm CompletionClient, d *temporal.Domain) *HybridFilter {
	f := &HybridFilter{
		cfg:    cfg,
		llm:    llm,
		domain: d,
	}

	if d != nil {
		f.currentKeywords = lowerAll(d.AllCurrentKeywords())
		f.historicalKeywords = lowerAll(d.AllHistoricalKeywords())
		log.Printf("hybrid filter: initialized with temporal domain %q", d.Name)
	} else {
		log.Printf("hybrid filter: running without temporal filtering (no domain config)")
	}

	if cfg.EnableLLMFilter && llm != nil {
		log.Printf("hybrid filter: LLM relevance filtering enabled")
	}

	return f
}

// Process runs the filtering pipeline over a score-sorted candidate list and
// returns at most MaxDocuments documents. The input list is not mutated.
func (f *HybridFilter) Process(ctx context.Context, query string, docs []domain.ScoredDocument) []domain.ScoredDocument {
	if len(docs) == 0 {
		return docs
	}

	initial := len(docs)
	log.Printf("hybrid filter: starting with %d retrieved documents", initial)

	docs = f.filterByScore(docs)

	appliedHistorical := false
	if query != "" {
		docs, appliedHistorical = f.filterByTemporalRelevance(docs, query)
	}

	docs = f.deduplicate(docs)

	// A strict historical filter already narrowed the set to the right
	// period; a further relevance pass would only add cost.
	if f.cfg.EnableLLMFilter && f.llm != nil && query != "" && !appliedHistorical {
		docs = f.filterByRelevance(ctx, query, docs)
	} else if appliedHistorical {
		log.Printf("hybrid filter: skipping LLM filtering, documents already strictly period-filtered")
	}

	if f.cfg.MaxDocuments > 0 && len(docs) > f.cfg.MaxDocuments {
		docs = docs[:f.cfg.MaxDocuments]
	}

	log.Printf("hybrid filter: final %d/%d documents retained", len(docs), initial)
	return docs
}

// filterByScore removes documents below the similarity score threshold.
func (f *HybridFilter) filterByScore(docs []domain.ScoredDocument) []domain.ScoredDocument {
	filtered := make([]domain.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Score >= f.cfg.ScoreThreshold {
			filtered = append(filtered, doc)
		}
	}

	log.Printf("hybrid filter: score filtering removed %d docs (threshold %.2f), %d remaining",
		len(docs)-len(filtered), f.cfg.ScoreThreshold, len(filtered))
	return filtered
}

// filterByTemporalRelevance keeps documents from the period the query asks
// for. The second return value reports whether a strict historical filter was
// applied. If filtering would remove every document, the original list is
// kept instead (failsafe) and no filter is reported.
func (f *HybridFilter) filterByTemporalRelevance(docs []domain.ScoredDocument, query string) ([]domain.ScoredDocument, bool) {
	if f.domain == nil {
		return docs, false
	}

	queryLower := strings.ToLower(query)
	field := f.domain.TemporalFieldName()

	// Historical keywords win over current keywords, mirroring the retriever.
	if containsAny(queryLower, f.historicalKeywords) {
		target := f.domain.HistoricalPeriodValue()
		log.Printf("hybrid filter: historical filtering to %s=%s for query %q", field, target, truncate(query, 80))

		filtered := make([]domain.ScoredDocument, 0, len(docs))
		for _, doc := range docs {
			if resolvePeriod(doc.Document, field) == target {
				filtered = append(filtered, doc)
			}
		}

		if len(filtered) == 0 {
			log.Printf("hybrid filter: historical filtering would remove all documents, keeping all")
			return docs, false
		}

		log.Printf("hybrid filter: historical filtering removed %d docs, %d remaining", len(docs)-len(filtered), len(filtered))
		return filtered, true
	}

	if !containsAny(queryLower, f.currentKeywords) {
		log.Printf("hybrid filter: temporal filtering skipped, no temporal keywords in query %q", truncate(query, 80))
		return docs, false
	}

	target := f.domain.CurrentPeriodValue()
	log.Printf("hybrid filter: temporal filtering to %s=%s for query %q", field, target, truncate(query, 80))

	filtered := make([]domain.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		// Unknown period is not grounds for exclusion
		period := resolvePeriod(doc.Document, field)
		if period == target || period == "" {
			filtered = append(filtered, doc)
		}
	}

	if len(filtered) == 0 {
		log.Printf("hybrid filter: temporal filtering would remove all documents, keeping all")
		return docs, false
	}

	log.Printf("hybrid filter: temporal filtering removed %d docs, %d remaining", len(docs)-len(filtered), len(filtered))
	return filtered, false
}

// resolvePeriod reads a document's temporal period from metadata, falling
// back to the prefix of a "period/number" style document number.
func resolvePeriod(doc *domain.Document, field string) string {
	period := doc.Meta(field)
	if period == "" {
		if number := doc.Meta(domain.MetadataKeyDocumentNumber); strings.Contains(number, "/") {
			period = strings.SplitN(number, "/", 2)[0]
		}
	}
	return period
}

// deduplicate removes near-duplicate documents using embedding similarity.
// Input is score-sorted, so the kept representative of each similarity
// cluster is always its highest-scoring member. Documents without an
// embedding are never considered similar to anything.
func (f *HybridFilter) deduplicate(docs []domain.ScoredDocument) []domain.ScoredDocument {
	if len(docs) <= 1 {
		return docs
	}

	kept := make([]domain.ScoredDocument, 0, len(docs))
	skip := make(map[int]bool)

	for i, doc := range docs {
		if skip[i] {
			continue
		}

		duplicate := false
		for _, k := range kept {
			if f.similar(doc, k) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, doc)

		// Mark similar later documents so they never become representatives
		for j := i + 1; j < len(docs); j++ {
			if !skip[j] && f.similar(doc, docs[j]) {
				skip[j] = true
			}
		}
	}

	log.Printf("hybrid filter: deduplication removed %d duplicates (threshold %.2f), %d remaining",
		len(docs)-len(kept), f.cfg.SimilarityThreshold, len(kept))
	return kept
}

func (f *HybridFilter) similar(a, b domain.ScoredDocument) bool {
	if len(a.Document.Embedding) == 0 || len(b.Document.Embedding) == 0 {
		return false
	}
	return CosineSimilarity(a.Document.Embedding, b.Document.Embedding) >= f.cfg.SimilarityThreshold
}

// filterByRelevance asks the language model whether each remaining document
// helps answer the query. Fail-open: a failed call keeps the document.
func (f *HybridFilter) filterByRelevance(ctx context.Context, query string, docs []domain.ScoredDocument) []domain.ScoredDocument {
	relevant := make([]domain.ScoredDocument, 0, len(docs))

	for i, doc := range docs {
		prompt := buildRelevancePrompt(query, doc)

		response, err := f.llm.Complete(ctx, prompt)
		if err != nil {
			log.Printf("hybrid filter: LLM check failed, keeping document: %v", err)
			relevant = append(relevant, doc)
			continue
		}

		title := doc.Document.Meta(domain.MetadataKeyTitle)
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(response)), "YES") {
			relevant = append(relevant, doc)
			log.Printf("hybrid filter: LLM kept (%d/%d): %s", i+1, len(docs), truncate(title, 60))
		} else {
			log.Printf("hybrid filter: LLM rejected (%d/%d): %s", i+1, len(docs), truncate(title, 60))
		}
	}

	log.Printf("hybrid filter: LLM filtering removed %d docs, %d remaining", len(docs)-len(relevant), len(relevant))
	return relevant
}

func buildRelevancePrompt(query string, doc domain.ScoredDocument) string {
	meta := func(key string) string {
		if v := doc.Document.Meta(key); v != "" {
			return v
		}
		return "N/A"
	}

	excerpt := doc.Document.Content
	if runes := []rune(excerpt); len(runes) > relevanceExcerptChars {
		excerpt = string(runes[:relevanceExcerptChars])
	}

	return fmt.Sprintf(`You are a lenient relevance filter for a parliamentary document retrieval system.
Your job is to filter out ONLY clearly irrelevant documents. When in doubt, keep the document.

User Query: %s

Document Information:
- Title: %s
- Date: %s
- Speaker: %s
- Type: %s
- Similarity Score: %.3f (already pre-filtered by semantic search)

Document Excerpt (first %d characters):
%s

Task: This document was already retrieved by semantic search with score %.3f.
Only reject it if it's CLEARLY and OBVIOUSLY irrelevant to the query.
If the document might contain ANY useful information for answering the query, keep it.

Reply with ONLY "YES" (keep) or "NO" (reject) followed by a brief reason (max 10 words).

Format: YES/NO - <reason>
`,
		query,
		meta(domain.MetadataKeyTitle),
		meta(domain.MetadataKeyCreatedTime),
		meta(domain.MetadataKeySpeaker),
		meta(domain.MetadataKeyDocumentType),
		doc.Score,
		relevanceExcerptChars,
		excerpt,
		doc.Score,
	)
}
