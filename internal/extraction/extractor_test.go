package extraction

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parlatext/parlatext/internal/domain"
)

func protocolText(mentions map[string]int) string {
	var b strings.Builder
	names := []string{"Anna Beispiel", "Bernd Muster", "Clara Probe", "Dieter Test"}
	i := 0
	for entity, count := range mentions {
		for n := 0; n < count; n++ {
			fmt.Fprintf(&b, "%s (%s): Sehr geehrte Damen und Herren, wir beraten heute.\n", names[i%len(names)], entity)
			i++
		}
	}
	return b.String()
}

func TestFromText_GroupsVariations(t *testing.T) {
	text := protocolText(map[string]int{
		"CDU":     2,
		"CSU":     2,
		"CDU/CSU": 2,
	})

	comp := FromText(text)

	assert.Len(t, comp.Fractions, 1)
	group := comp.Fractions[0]
	assert.Equal(t, "CDU/CSU", group.Name)
	assert.ElementsMatch(t, []string{"CDU", "CSU", "CDU/CSU"}, group.Variations)
	assert.Equal(t, 6, group.MentionCount)
	assert.Equal(t, "fraction", group.Type)
	assert.Equal(t, domain.ExtractionSourceProtocolText, comp.ExtractionSource)
}

func TestFromText_MultipleGroupsSortedByMentions(t *testing.T) {
	text := protocolText(map[string]int{
		"SPD":       8,
		"AfD":       3,
		"Die Linke": 5,
	})

	comp := FromText(text)

	assert.Len(t, comp.Fractions, 3)
	assert.Equal(t, "SPD", comp.Fractions[0].Name)
	assert.Equal(t, 8, comp.Fractions[0].MentionCount)
	assert.Equal(t, "Die Linke", comp.Fractions[1].Name)
	assert.Equal(t, "AfD", comp.Fractions[2].Name)
}

func TestFromText_EmptyInput(t *testing.T) {
	comp := FromText("")

	assert.Empty(t, comp.Fractions)
	assert.Equal(t, domain.ExtractionSourceNone, comp.ExtractionSource)
	assert.Equal(t, domain.ConfidenceLow, comp.Confidence)
	assert.False(t, comp.ExtractedAt.IsZero())
}

func TestFromText_NoEntitiesFound(t *testing.T) {
	comp := FromText("Die Sitzung wird um 9 Uhr eröffnet. Es liegen keine Wortmeldungen vor.")

	assert.Empty(t, comp.Fractions)
	assert.Equal(t, domain.ExtractionSourceNone, comp.ExtractionSource)
}

func TestFromText_MinMentionsSuppressesNoise(t *testing.T) {
	// GRÜNE appears once only and must not surface as a group.
	text := protocolText(map[string]int{
		"SPD":   3,
		"GRÜNE": 1,
	})

	comp := FromText(text)

	assert.Len(t, comp.Fractions, 1)
	assert.Equal(t, "SPD", comp.Fractions[0].Name)
}

func TestFromText_ExclusionVocabulary(t *testing.T) {
	text := strings.Repeat("Olaf Scholz (Bundeskanzler): Vielen Dank.\n", 3) +
		strings.Repeat("Max Weber (Berlin): Zur Geschäftsordnung.\n", 3) +
		protocolText(map[string]int{"SPD": 2})

	comp := FromText(text)

	assert.Len(t, comp.Fractions, 1)
	assert.Equal(t, "SPD", comp.Fractions[0].Name)
}

func TestFromText_ConfidenceLevels(t *testing.T) {
	tests := []struct {
		name     string
		mentions map[string]int
		want     domain.Confidence
	}{
		{
			name:     "single sparse group is low",
			mentions: map[string]int{"SPD": 2},
			want:     domain.ConfidenceLow,
		},
		{
			name:     "two groups is medium",
			mentions: map[string]int{"SPD": 3, "AfD": 2},
			want:     domain.ConfidenceMedium,
		},
		{
			name:     "one busy group is medium",
			mentions: map[string]int{"SPD": 12},
			want:     domain.ConfidenceMedium,
		},
		{
			name:     "two groups with many mentions is high",
			mentions: map[string]int{"SPD": 12, "AfD": 10},
			want:     domain.ConfidenceHigh,
		},
		{
			name:     "four groups is high",
			mentions: map[string]int{"SPD": 2, "AfD": 2, "FDP": 2, "Die Linke": 2},
			want:     domain.ConfidenceHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := FromText(protocolText(tt.mentions))
			assert.Equal(t, tt.want, comp.Confidence)
		})
	}
}

func TestFromText_TotalMentionsAcrossGroups(t *testing.T) {
	text := protocolText(map[string]int{
		"SPD": 4,
		"FDP": 3,
	})

	comp := FromText(text)

	assert.Equal(t, 7, comp.TotalMentions())
}

func TestFromSpeakerAffiliation(t *testing.T) {
	comp := FromSpeakerAffiliation("BÜNDNIS 90/DIE GRÜNEN")

	assert.Len(t, comp.Fractions, 1)
	assert.Equal(t, "BÜNDNIS 90/DIE GRÜNEN", comp.Fractions[0].Name)
	assert.Equal(t, []string{"BÜNDNIS 90/DIE GRÜNEN"}, comp.Fractions[0].Variations)
	assert.Equal(t, 1, comp.Fractions[0].MentionCount)
	assert.Equal(t, domain.ExtractionSourceSpeakerMetadata, comp.ExtractionSource)
	assert.Equal(t, domain.ConfidenceLow, comp.Confidence)
}

func TestFromSpeakerAffiliation_Empty(t *testing.T) {
	comp := FromSpeakerAffiliation("")

	assert.Empty(t, comp.Fractions)
	assert.Equal(t, domain.ExtractionSourceNone, comp.ExtractionSource)
}

func TestIsLikelyEntity(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"SPD", true},
		{"AfD", true},
		{"CDU/CSU", true},
		{"BÜNDNIS 90/DIE GRÜNEN", true},
		{"Die Linke", true},
		{"DIE LINKE", true},
		{"Bündnis 90", true},
		{"Bundeskanzler", false},
		{"Berlin", false},
		{"parteilos", false},
		{"fraktionslos", false},
		{"NATO", false},
		{"TOP", false},
		{"ZP", false},
		{"USA", false},
		{"a", false},
		{"", false},
		{"Zuruf von der Regierungsbank links", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.want, isLikelyEntity(tt.candidate), "candidate %q", tt.candidate)
		})
	}
}

func TestGroupRelated_CanonicalPrefersSlashCompound(t *testing.T) {
	counts := map[string]int{
		"CDU":     5,
		"CSU":     4,
		"CDU/CSU": 1,
	}

	groups := groupRelated(counts)

	assert.Len(t, groups, 1)
	members, ok := groups["CDU/CSU"]
	assert.True(t, ok, "slash compound should be the representative")
	assert.Len(t, members, 3)
}

func TestGroupRelated_UnrelatedStayApart(t *testing.T) {
	counts := map[string]int{
		"SPD": 3,
		"FDP": 3,
		"AfD": 2,
	}

	groups := groupRelated(counts)

	assert.Len(t, groups, 3)
}

func TestShareSignificantToken(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"shared token across article", "DIE LINKE", "LINKE", true},
		{"compound shares member token", "CDU/CSU", "CSU", true},
		{"compound shares other member token", "CDU/CSU", "CDU", true},
		{"distinct short codes", "CDU", "CSU", false},
		{"unrelated parties", "SPD", "FDP", false},
		{"connector word alone carries no tokens", "DIE", "DIE LINKE", false},
		{"mixed case token is not significant", "Linke", "LINKE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shareSignificantToken(tt.a, tt.b))
		})
	}
}

func TestGroupRelated_SharedSignificantToken(t *testing.T) {
	counts := map[string]int{
		"DIE LINKE": 3,
		"LINKE":     2,
	}

	groups := groupRelated(counts)

	assert.Len(t, groups, 1)
	_, ok := groups["DIE LINKE"]
	assert.True(t, ok)
}
