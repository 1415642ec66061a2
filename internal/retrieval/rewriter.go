// Package retrieval implements the query-time pipeline: domain-aware query
// rewriting, dynamic temporal retrieval, and multi-stage candidate filtering.
package retrieval

import (
	"log"
	"strings"

	"github.com/parlatext/parlatext/internal/temporal"
)

// entityTriggerKeywords is a small fixed vocabulary of "party/fraction/group"
// style nouns that triggers entity-term expansion. Configuration-independent;
// only consulted when the domain carries an entity_terms template.
var entityTriggerKeywords = []string{
	"party", "parties",
	"partei", "parteien",
	"fraktion", "fraktionen",
	"group", "groups",
	"faction", "factions",
}

// QueryRewriter expands queries with domain-specific terminology to improve
// semantic search recall. Without a temporal domain it is a pass-through.
type QueryRewriter struct {
	domain             *temporal.Domain
	historicalKeywords []string
	currentKeywords    []string
}

// NewQueryRewriter creates a new QueryRewriter. A nil domain puts the
// rewriter in generic mode: Rewrite returns every query unchanged.
func NewQueryRewriter(d *temporal.Domain) *QueryRewriter {
	r := &QueryRewriter{domain: d}
	if d != nil {
		// Keywords are lowercased once for case-insensitive substring matching
		r.historicalKeywords = lowerAll(d.AllHistoricalKeywords())
		r.currentKeywords = lowerAll(d.AllCurrentKeywords())
		log.Printf("query rewriter: initialized with temporal domain %q", d.Name)
	} else {
		log.Printf("query rewriter: running in generic mode (no query rewriting)")
	}
	return r
}

// Rewrite returns the query expanded with domain terminology when it matches
// a known pattern, or the original query unchanged. Historical keywords take
// priority over current keywords, which take priority over entity triggers.
func (r *QueryRewriter) Rewrite(query string) string {
	if strings.TrimSpace(query) == "" || r.domain == nil {
		return query
	}

	queryLower := strings.ToLower(query)

	if containsAny(queryLower, r.historicalKeywords) {
		return r.expandHistorical(query, queryLower)
	}

	if containsAny(queryLower, r.currentKeywords) {
		return r.expandWith(query, queryLower, temporal.ExpansionTemporalCurrent)
	}

	if r.domain.HasExpansion(temporal.ExpansionEntityTerms) && containsAny(queryLower, entityTriggerKeywords) {
		return r.expandWith(query, queryLower, temporal.ExpansionEntityTerms)
	}

	return query
}

// ShouldRewrite reports whether Rewrite would match a pattern for this query.
// Useful for testing and diagnostics; performs no expansion.
func (r *QueryRewriter) ShouldRewrite(query string) bool {
	if strings.TrimSpace(query) == "" || r.domain == nil {
		return false
	}

	queryLower := strings.ToLower(query)

	if containsAny(queryLower, r.historicalKeywords) {
		return true
	}
	if containsAny(queryLower, r.currentKeywords) {
		return true
	}
	if r.domain.HasExpansion(temporal.ExpansionEntityTerms) && containsAny(queryLower, entityTriggerKeywords) {
		return true
	}

	return false
}

// expandHistorical expands a historical query; when the query also carries an
// entity trigger, the entity terms are appended after the historical terms to
// bias toward both the historical period and entity terminology.
func (r *QueryRewriter) expandHistorical(query, queryLower string) string {
	language := r.domain.DetectLanguage(queryLower)

	expansion := r.expansionWithFallback(temporal.ExpansionTemporalHistorical, language)

	if containsAny(queryLower, entityTriggerKeywords) {
		if entityExpansion := r.domain.ExpansionFor(temporal.ExpansionEntityTerms, language); entityExpansion != "" {
			expansion = expansion + " " + entityExpansion
		}
	}

	if strings.TrimSpace(expansion) == "" {
		return query
	}

	rewritten := query + " " + strings.TrimSpace(expansion)
	log.Printf("query rewriter: expanded historical query %q -> %q", truncate(query, 80), truncate(rewritten, 120))
	return rewritten
}

func (r *QueryRewriter) expandWith(query, queryLower, expansionType string) string {
	language := r.domain.DetectLanguage(queryLower)

	expansion := r.expansionWithFallback(expansionType, language)
	if expansion == "" {
		return query
	}

	rewritten := query + " " + expansion
	log.Printf("query rewriter: expanded %s query %q -> %q", expansionType, truncate(query, 80), truncate(rewritten, 120))
	return rewritten
}

// expansionWithFallback fetches expansion terms for the detected language,
// falling back once between German and English. No chained fallbacks.
func (r *QueryRewriter) expansionWithFallback(expansionType, language string) string {
	expansion := r.domain.ExpansionFor(expansionType, language)
	if expansion != "" {
		return expansion
	}

	fallback := "de"
	if language == "de" {
		fallback = "en"
	}
	return r.domain.ExpansionFor(expansionType, fallback)
}

func containsAny(queryLower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(queryLower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(keywords []string) []string {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		lowered = append(lowered, strings.ToLower(kw))
	}
	return lowered
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
