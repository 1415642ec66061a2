package retrieval

import (
	"context"
	"log"
	"regexp"

	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/temporal"
)

// FilterMode is the temporal filter decision for one query.
type FilterMode string

const (
	FilterModeHistorical FilterMode = "historical"
	FilterModeCurrent    FilterMode = "current"
	FilterModeNone       FilterMode = "none"
)

// VectorSearcher is the external vector index collaborator: top-K retrieval
// by similarity to an embedded query, optionally constrained by an equality
// filter on a named metadata field. Results are sorted descending by score.
type VectorSearcher interface {
	Search(ctx context.Context, query string, filter *domain.MetadataFilter, topK int) ([]domain.ScoredDocument, error)
}

// TemporalRetriever decides a temporal filter mode per query and delegates
// retrieval to the vector index. It is stateless across queries and performs
// no error recovery of its own: index failures propagate to the caller.
type TemporalRetriever struct {
	searcher VectorSearcher
	topK     int
	rewriter *QueryRewriter
	domain   *temporal.Domain

	historicalPatterns []*regexp.Regexp
	currentPatterns    []*regexp.Regexp
}

// NewTemporalRetriever creates a new TemporalRetriever. A nil domain disables
// temporal filtering; a nil rewriter is replaced with one built from the domain.
func NewTemporalRetriever(searcher VectorSearcher, topK int, rewriter *QueryRewriter, d *temporal.Domain) *TemporalRetriever {
	if rewriter == nil {
		rewriter = NewQueryRewriter(d)
	}

	t := &TemporalRetriever{
		searcher: searcher,
		topK:     topK,
		rewriter: rewriter,
		domain:   d,
	}

	if d != nil {
		t.historicalPatterns = compileKeywordPatterns(d.AllHistoricalKeywords())
		t.currentPatterns = compileKeywordPatterns(d.AllCurrentKeywords())
		log.Printf("temporal retriever: initialized with temporal domain %q", d.Name)
	} else {
		log.Printf("temporal retriever: running in generic mode (no temporal filtering)")
	}

	return t
}

// FilterMode determines which temporal filter applies to a query. Historical
// keywords are checked first and win over current keywords; keywords match on
// word boundaries, case-insensitive, in configured order.
func (t *TemporalRetriever) FilterMode(query string) FilterMode {
	if t.domain == nil {
		return FilterModeNone
	}

	for _, p := range t.historicalPatterns {
		if p.MatchString(query) {
			return FilterModeHistorical
		}
	}

	for _, p := range t.currentPatterns {
		if p.MatchString(query) {
			return FilterModeCurrent
		}
	}

	return FilterModeNone
}

// Retrieve rewrites the query, decides the filter mode from the original
// (un-rewritten) text, and delegates to the vector index. The rewritten text
// is what gets embedded and searched.
func (t *TemporalRetriever) Retrieve(ctx context.Context, query string) ([]domain.ScoredDocument, error) {
	searchQuery := t.rewriter.Rewrite(query)

	// Mode decision uses the original query so that added expansion terms
	// cannot trip the keyword detection.
	mode := t.FilterMode(query)

	var filter *domain.MetadataFilter
	switch mode {
	case FilterModeCurrent:
		filter = &domain.MetadataFilter{
			Field: t.domain.TemporalFieldName(),
			Value: t.domain.CurrentPeriodValue(),
		}
	case FilterModeHistorical:
		filter = &domain.MetadataFilter{
			Field: t.domain.TemporalFieldName(),
			Value: t.domain.HistoricalPeriodValue(),
		}
	}

	if filter != nil {
		log.Printf("temporal retriever: applying %s=%s filter (%s query)", filter.Field, filter.Value, mode)
	} else {
		log.Printf("temporal retriever: no temporal filter, searching all documents")
	}

	return t.searcher.Search(ctx, searchQuery, filter, t.topK)
}

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return patterns
}
