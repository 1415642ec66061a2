// Package extraction derives entity-group composition metadata from raw
// protocol text at ingestion time, without hardcoded entity names.
package extraction

import (
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/parlatext/parlatext/internal/domain"
)

// Candidates appearing fewer times than this are treated as one-off noise
// (agency abbreviations, technical terms) and discarded.
const minMentions = 2

// speakerPattern matches "Name (AFFILIATION)" attributions in protocol text
// and captures the parenthesized candidate.
var speakerPattern = regexp.MustCompile(`(\b[A-ZÄÖÜa-zäöüß][A-ZÄÖÜa-zäöüß0-9.\s]*?)\s+\(([^)]+)\)`)

// exclusionVocabulary lists non-entity strings commonly found in speaker
// parentheses: roles, locations, status markers, organization and ministry
// abbreviations, procedural tokens.
var exclusionVocabulary = []string{
	"Bundeskanzler", "Bundeskanzlerin",
	"Bundesminister", "Bundesministerin",
	"Bundespräsident", "Bundespräsidentin",
	"Präsident", "Präsidentin",
	"Staatsminister", "Staatsministerin",
	"Staatssekretär", "Staatssekretärin",
	"Berlin", "Bonn",
	"parteilos", "fraktionslos", "Gast",
	"EU", "UN", "NATO", "OSZE", "WHO", "IWF", "EZB",
	"BMWE", "BMI", "BMF", "BMAS", "BMZ", "BMVI", "BMVg",
	"BT", "BR",
	"USA", "UK", "FR",
	"TOP", "ZP",
}

// connectorWords are articles and conjunctions excluded when comparing
// significant tokens of two candidate names.
var connectorWords = map[string]bool{
	"DIE": true,
	"DER": true,
	"DAS": true,
	"UND": true,
	"VON": true,
}

// FromText extracts entity-group composition from raw protocol text. Empty
// input or no accepted candidates yields an empty result with source "none".
func FromText(text string) domain.Composition {
	if text == "" {
		return emptyComposition()
	}

	matches := speakerPattern.FindAllStringSubmatch(text, -1)

	counts := make(map[string]int)
	for _, m := range matches {
		candidate := strings.TrimSpace(m[2])
		if isLikelyEntity(candidate) {
			counts[candidate]++
		}
	}

	if len(counts) == 0 {
		return emptyComposition()
	}

	for name, count := range counts {
		if count < minMentions {
			delete(counts, name)
		}
	}

	if len(counts) == 0 {
		return emptyComposition()
	}

	groups := groupRelated(counts)

	fractions := make([]domain.EntityGroup, 0, len(groups))
	for representative, members := range groups {
		total := 0
		for _, member := range members {
			total += counts[member]
		}
		sort.Strings(members)
		fractions = append(fractions, domain.EntityGroup{
			Name:         representative,
			Variations:   members,
			Type:         "fraction",
			MentionCount: total,
		})
	}

	sort.Slice(fractions, func(i, j int) bool {
		if fractions[i].MentionCount != fractions[j].MentionCount {
			return fractions[i].MentionCount > fractions[j].MentionCount
		}
		return fractions[i].Name < fractions[j].Name
	})

	confidence := calculateConfidence(len(fractions), totalCount(counts))

	log.Printf("extraction: %d entity groups with %s confidence", len(fractions), confidence)

	return domain.Composition{
		Fractions:        fractions,
		ExtractionSource: domain.ExtractionSourceProtocolText,
		ExtractedAt:      time.Now().UTC(),
		Confidence:       confidence,
	}
}

// FromSpeakerAffiliation builds a single-entity composition from a known
// affiliation string taken from structured per-utterance metadata. The input
// is already clean, so no heuristic classification is applied.
func FromSpeakerAffiliation(affiliation string) domain.Composition {
	if affiliation == "" {
		return emptyComposition()
	}

	return domain.Composition{
		Fractions: []domain.EntityGroup{
			{
				Name:         affiliation,
				Variations:   []string{affiliation},
				Type:         "fraction",
				MentionCount: 1,
			},
		},
		ExtractionSource: domain.ExtractionSourceSpeakerMetadata,
		ExtractedAt:      time.Now().UTC(),
		// A single utterance never shows the full composition
		Confidence: domain.ConfidenceLow,
	}
}

// isLikelyEntity classifies a parenthesized candidate with conservative
// heuristics: short all-capital abbreviations, slash compounds, "Die X"
// names, and organizational prefixes. Everything else is rejected.
func isLikelyEntity(candidate string) bool {
	candidate = strings.TrimSpace(candidate)

	length := utf8.RuneCountInString(candidate)
	if length < 2 || length > 25 {
		return false
	}

	for _, excluded := range exclusionVocabulary {
		if strings.Contains(candidate, excluded) {
			return false
		}
	}

	upperCount := 0
	alphaCount := 0
	allAlpha := true
	for _, r := range candidate {
		if unicode.IsLetter(r) {
			alphaCount++
			if unicode.IsUpper(r) {
				upperCount++
			}
		} else {
			allAlpha = false
		}
	}

	if upperCount == 0 || alphaCount == 0 {
		return false
	}

	// Short abbreviations: SPD, AfD, CDU, GRÜNE. All letters, at least two
	// uppercase (rejects two-letter country codes already excluded above).
	if length >= 2 && length <= 6 {
		return allAlpha && upperCount >= 2
	}

	// Slash compounds: CDU/CSU, BÜNDNIS 90/DIE GRÜNEN
	if strings.Contains(candidate, "/") {
		if float64(upperCount)/float64(alphaCount) < 0.5 {
			return false
		}
		parts := strings.Split(candidate, "/")
		if len(parts) != 2 {
			return false
		}
		for _, part := range parts {
			if !containsLetter(part) {
				return false
			}
		}
		return true
	}

	// "Die X" names: Die Linke, DIE LINKE
	if strings.HasPrefix(candidate, "Die ") || strings.HasPrefix(candidate, "DIE ") {
		remaining := strings.TrimSpace(candidate[4:])
		if remaining == "" {
			return false
		}
		first, _ := utf8.DecodeRuneInString(remaining)
		return unicode.IsUpper(first)
	}

	// Organizational prefixes: BÜNDNIS 90, Bündnis, Bund...
	if strings.HasPrefix(candidate, "Bündnis") ||
		strings.HasPrefix(candidate, "BÜNDNIS") ||
		strings.HasPrefix(candidate, "Bund") {
		return true
	}

	return false
}

// groupRelated merges candidate name variations into canonical groups with a
// union-find. Two names merge when one is a case-insensitive substring of the
// other or they share a significant token. The representative prefers slash
// compounds, then longer names, then higher mention counts.
func groupRelated(counts map[string]int) map[string][]string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parent := make(map[string]string, len(names))
	for _, name := range names {
		parent[name] = name
	}

	var find func(string) string
	find = func(name string) string {
		if parent[name] != name {
			parent[name] = find(parent[name])
		}
		return parent[name]
	}

	union := func(a, b string) {
		rootA, rootB := find(a), find(b)
		if rootA == rootB {
			return
		}
		if preferRepresentative(rootA, rootB, counts) {
			parent[rootB] = rootA
		} else {
			parent[rootA] = rootB
		}
	}

	for i, a := range names {
		aUpper := strings.ToUpper(a)
		for _, b := range names[i+1:] {
			bUpper := strings.ToUpper(b)

			substring := strings.Contains(aUpper, bUpper) || strings.Contains(bUpper, aUpper)
			if substring || shareSignificantToken(aUpper, bUpper) {
				union(a, b)
			}
		}
	}

	groups := make(map[string][]string)
	for _, name := range names {
		root := find(name)
		groups[root] = append(groups[root], name)
	}

	return groups
}

// preferRepresentative reports whether a wins the canonical-name comparison
// against b: slash compound first, then longer, then more frequent.
func preferRepresentative(a, b string, counts map[string]int) bool {
	aSlash, bSlash := 0, 0
	if strings.Contains(a, "/") {
		aSlash = 1
	}
	if strings.Contains(b, "/") {
		bSlash = 1
	}
	if aSlash != bSlash {
		return aSlash > bSlash
	}

	aLen, bLen := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if aLen != bLen {
		return aLen > bLen
	}

	return counts[a] >= counts[b]
}

// shareSignificantToken reports whether two uppercased names share a
// meaningful token: length >= 3, all uppercase letters, not a connector word.
func shareSignificantToken(aUpper, bUpper string) bool {
	tokensA := significantTokens(aUpper)
	if len(tokensA) == 0 {
		return false
	}
	for token := range significantTokens(bUpper) {
		if tokensA[token] {
			return true
		}
	}
	return false
}

func significantTokens(nameUpper string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.FieldsFunc(nameUpper, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if utf8.RuneCountInString(token) < 3 || connectorWords[token] {
			continue
		}
		allUpper := true
		for _, r := range token {
			if !unicode.IsUpper(r) {
				allUpper = false
				break
			}
		}
		if allUpper {
			tokens[token] = true
		}
	}
	return tokens
}

// calculateConfidence labels the extraction by group count and mention
// volume. A typical plenary has four or more groups.
func calculateConfidence(numGroups, totalMentions int) domain.Confidence {
	switch {
	case numGroups >= 4 || (numGroups >= 2 && totalMentions >= 20):
		return domain.ConfidenceHigh
	case numGroups >= 2 || totalMentions >= 10:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func totalCount(counts map[string]int) int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func emptyComposition() domain.Composition {
	return domain.Composition{
		Fractions:        []domain.EntityGroup{},
		ExtractionSource: domain.ExtractionSourceNone,
		ExtractedAt:      time.Now().UTC(),
		Confidence:       domain.ConfidenceLow,
	}
}
