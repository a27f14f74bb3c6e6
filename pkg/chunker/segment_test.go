package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sources(units []Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Source)
	}
	return out
}

func queries(units []Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Query)
	}
	return out
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		maxLen      int
		wantSources []string
		wantQueries []string
	}{
		{
			name:        "empty input",
			text:        "",
			maxLen:      10,
			wantSources: []string{},
			wantQueries: []string{},
		},
		{
			name:        "three short sentences",
			text:        "A. B. C.",
			maxLen:      5,
			wantSources: []string{"A", "B", "C."},
			wantQueries: []string{"A.", "B.", "C."},
		},
		{
			name:        "blank sentences dropped",
			text:        "Mix.   . . Bake",
			maxLen:      20,
			wantSources: []string{"Mix", "Bake"},
			wantQueries: []string{"Mix.", "Bake."},
		},
		{
			name:        "surrounding whitespace trimmed",
			text:        "  Heat the oil .  Add onions  ",
			maxLen:      50,
			wantSources: []string{"Heat the oil", "Add onions"},
			wantQueries: []string{"Heat the oil.", "Add onions."},
		},
		{
			name:        "long sentence split on clauses",
			text:        "Chop the onion, fry the garlic, add the rice",
			maxLen:      20,
			wantSources: []string{"Chop the onion", "fry the garlic", "add the rice"},
			wantQueries: []string{"Chop the onion", "fry the garlic", "add the rice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := Segment(tt.text, tt.maxLen)
			assert.Equal(t, tt.wantSources, sources(units))
			assert.Equal(t, tt.wantQueries, queries(units))
		})
	}
}

func TestSegment_ThresholdIsExclusive(t *testing.T) {
	// "abcd." is 5 code points: with maxLen 5 it no longer fits and is clause split.
	units := Segment("abcd", 5)
	require.Len(t, units, 1)
	assert.Equal(t, LevelClause, units[0].Level)
	assert.False(t, units[0].Oversized, "clause without the added period fits")

	units = Segment("abcd", 6)
	require.Len(t, units, 1)
	assert.Equal(t, LevelSentence, units[0].Level)
	assert.Equal(t, "abcd.", units[0].Query)
}

func TestSegment_ClauseQueriesHaveNoAddedPeriod(t *testing.T) {
	units := Segment("Pique a cebola, frite o alho", 20)

	require.Len(t, units, 2)
	assert.Equal(t, "frite o alho", units[1].Source)
	assert.Equal(t, "frite o alho", units[1].Query)
	assert.Equal(t, "Pique a cebola. frite o alho", Join(sources(units)))
}

func TestSegment_OversizedClause(t *testing.T) {
	long := strings.Repeat("x", 40)
	units := Segment("short, "+long+", tail", 30)

	require.Len(t, units, 3)
	assert.False(t, units[0].Oversized)
	assert.True(t, units[1].Oversized)
	assert.Equal(t, long, units[1].Source)
	assert.False(t, units[2].Oversized)
}

func TestSegment_NoQueryAtOrAboveThreshold(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod. ", 20) +
		strings.Repeat("y", 400)
	for _, u := range Segment(text, 60) {
		if u.Oversized {
			continue
		}
		assert.Less(t, Len(u.Query), 60, "query %q", u.Query)
	}
}

func TestSegment_CountsCodePoints(t *testing.T) {
	// "ção." is 4 code points but 6 bytes.
	units := Segment("ção", 5)
	require.Len(t, units, 1)
	assert.Equal(t, LevelSentence, units[0].Level)
}

func TestSegment_DefaultMaxQueryLength(t *testing.T) {
	text := strings.Repeat("a", DefaultMaxQueryLength-2)
	units := Segment(text, 0)
	require.Len(t, units, 1)
	assert.Equal(t, LevelSentence, units[0].Level)
}

func TestSegment_PreservesOrder(t *testing.T) {
	text := "first. second. third, with clause. fourth"
	got := sources(Segment(text, 100))
	assert.Equal(t, []string{"first", "second", "third, with clause", "fourth"}, got)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "A. B", Join([]string{"A", "B"}))
	assert.Equal(t, "", Join(nil))
}

func TestFits(t *testing.T) {
	assert.True(t, Fits("abc", 4))
	assert.False(t, Fits("abcd", 4))
	assert.True(t, Fits(strings.Repeat("a", 299), 0))
	assert.False(t, Fits(strings.Repeat("a", 300), 0))
}
