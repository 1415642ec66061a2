// Package temporal holds the per-deployment temporal domain configuration:
// keyword sets, period identifiers, query-expansion templates, and language
// detection patterns. A nil *Domain puts every consumer into generic mode.
package temporal

import (
	"sort"
	"strconv"
	"strings"
)

// Temporal categories used across keyword sets and period classification.
const (
	CategoryCurrent    = "current"
	CategoryHistorical = "historical"
)

// Expansion types understood by the query rewriter.
const (
	ExpansionTemporalCurrent    = "temporal_current"
	ExpansionTemporalHistorical = "temporal_historical"
	ExpansionEntityTerms        = "entity_terms"
)

// DefaultLanguage is assumed when no detection pattern matches.
const DefaultLanguage = "en"

// Keywords holds per-language keyword lists for one temporal category.
type Keywords struct {
	EN []string `yaml:"en"`
	DE []string `yaml:"de"`
	FR []string `yaml:"fr"`
	ES []string `yaml:"es"`
}

// PeriodDefinition describes one temporal period.
type PeriodDefinition struct {
	Names        []string `yaml:"names"`
	Years        []int    `yaml:"years"`
	TemporalType string   `yaml:"temporal_type"`
}

// ExpansionTerms holds per-language expansion-term strings for one expansion type.
type ExpansionTerms struct {
	EN string `yaml:"en"`
	DE string `yaml:"de"`
	FR string `yaml:"fr"`
	ES string `yaml:"es"`
}

// Get returns the expansion terms for a language code, or "".
func (e ExpansionTerms) Get(language string) string {
	switch language {
	case "en":
		return e.EN
	case "de":
		return e.DE
	case "fr":
		return e.FR
	case "es":
		return e.ES
	}
	return ""
}

// LanguagePatterns is one entry of the ordered language-detection list.
// Order in the configuration file is detection priority.
type LanguagePatterns struct {
	Code     string   `yaml:"code"`
	Patterns []string `yaml:"patterns"`
}

// MetadataSchema names the temporal metadata field and the period values for
// the current and historical classification.
type MetadataSchema struct {
	TemporalField    string `yaml:"temporal_field"`
	CurrentPeriod    int    `yaml:"current_period"`
	HistoricalPeriod int    `yaml:"historical_period"`
}

// Domain is the temporal domain configuration for one deployment.
type Domain struct {
	Name              string                      `yaml:"name"`
	MetadataSchema    MetadataSchema              `yaml:"metadata_schema"`
	TemporalKeywords  map[string]Keywords         `yaml:"temporal_keywords"`
	PeriodIdentifiers map[string]PeriodDefinition `yaml:"period_identifiers"`
	QueryExpansion    map[string]ExpansionTerms   `yaml:"query_expansion"`
	LanguageDetection []LanguagePatterns          `yaml:"language_detection"`
}

// TemporalFieldName returns the metadata field used for temporal filtering.
func (d *Domain) TemporalFieldName() string {
	if d.MetadataSchema.TemporalField == "" {
		return "period"
	}
	return d.MetadataSchema.TemporalField
}

// CurrentPeriodValue returns the configured current period as a string.
func (d *Domain) CurrentPeriodValue() string {
	return strconv.Itoa(d.MetadataSchema.CurrentPeriod)
}

// HistoricalPeriodValue returns the configured historical period as a string.
func (d *Domain) HistoricalPeriodValue() string {
	return strconv.Itoa(d.MetadataSchema.HistoricalPeriod)
}

// AllCurrentKeywords returns the 'current' keywords across all languages.
func (d *Domain) AllCurrentKeywords() []string {
	return flattenKeywords(d.TemporalKeywords[CategoryCurrent])
}

// AllHistoricalKeywords returns the 'historical' keywords across all
// languages, plus the names of every period classified as historical.
func (d *Domain) AllHistoricalKeywords() []string {
	keywords := flattenKeywords(d.TemporalKeywords[CategoryHistorical])

	ids := make([]string, 0, len(d.PeriodIdentifiers))
	for id := range d.PeriodIdentifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := d.PeriodIdentifiers[id]
		if def.TemporalType == CategoryHistorical {
			keywords = append(keywords, def.Names...)
		}
	}

	return keywords
}

// DetectLanguage scans the detection patterns in configured order and returns
// the first matching language code, defaulting to English.
func (d *Domain) DetectLanguage(query string) string {
	queryLower := strings.ToLower(query)
	for _, lang := range d.LanguageDetection {
		for _, pattern := range lang.Patterns {
			if strings.Contains(queryLower, pattern) {
				return lang.Code
			}
		}
	}
	return DefaultLanguage
}

// ExpansionFor returns the expansion-term string for an expansion type and
// language, or "" when not configured.
func (d *Domain) ExpansionFor(expansionType, language string) string {
	terms, ok := d.QueryExpansion[expansionType]
	if !ok {
		return ""
	}
	return terms.Get(language)
}

// HasExpansion reports whether any language carries terms for the expansion type.
func (d *Domain) HasExpansion(expansionType string) bool {
	terms, ok := d.QueryExpansion[expansionType]
	if !ok {
		return false
	}
	return terms.EN != "" || terms.DE != "" || terms.FR != "" || terms.ES != ""
}

func flattenKeywords(kw Keywords) []string {
	var keywords []string
	keywords = append(keywords, kw.EN...)
	keywords = append(keywords, kw.DE...)
	keywords = append(keywords, kw.FR...)
	keywords = append(keywords, kw.ES...)
	return keywords
}
