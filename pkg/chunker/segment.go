// Package chunker splits long text into units small enough for a
// length-limited translation backend.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxQueryLength is the longest query the public MyMemory API accepts.
	DefaultMaxQueryLength = 300

	// SentenceDelimiter separates sentences on split and on reassembly.
	SentenceDelimiter = ". "
	// ClauseDelimiter separates clauses inside an over-long sentence.
	ClauseDelimiter = ", "
)

// Level tells whether a unit came from the sentence or the clause split.
type Level int

const (
	LevelSentence Level = iota
	LevelClause
)

func (l Level) String() string {
	if l == LevelClause {
		return "clause"
	}
	return "sentence"
}

// Unit is one piece of text to translate.
type Unit struct {
	// Source is the trimmed original text, substituted verbatim when translation fails.
	Source string
	// Query is the text sent to the backend. Sentences get a trailing period back.
	Query string
	Level Level
	// Oversized units are still too long after the clause split and must not be sent.
	Oversized bool
}

// Len counts code points, not bytes, so accented Portuguese text is measured
// the way the backend measures it.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Fits reports whether s can be sent in a single backend call.
func Fits(s string, maxLen int) bool {
	return Len(s) < normalizeMax(maxLen)
}

// Segment splits text on sentence boundaries and, for sentences that still do
// not fit, on clause boundaries. Blank pieces are dropped; order is preserved.
func Segment(text string, maxLen int) []Unit {
	maxLen = normalizeMax(maxLen)

	var units []Unit
	for _, raw := range strings.Split(text, SentenceDelimiter) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}

		query := sentence
		if !strings.HasSuffix(query, ".") {
			query += "."
		}
		if Len(query) < maxLen {
			units = append(units, Unit{Source: sentence, Query: query, Level: LevelSentence})
			continue
		}

		units = append(units, splitClauses(sentence, maxLen)...)
	}
	return units
}

// splitClauses works on the trimmed sentence, so no clause query carries the
// period Segment adds to sentence queries.
func splitClauses(sentence string, maxLen int) []Unit {
	var units []Unit
	for _, raw := range strings.Split(sentence, ClauseDelimiter) {
		clause := strings.TrimSpace(raw)
		if clause == "" {
			continue
		}
		units = append(units, Unit{
			Source:    clause,
			Query:     clause,
			Level:     LevelClause,
			Oversized: Len(clause) >= maxLen,
		})
	}
	return units
}

// Join reassembles translated pieces in order.
func Join(parts []string) string {
	return strings.Join(parts, SentenceDelimiter)
}

func normalizeMax(maxLen int) int {
	if maxLen <= 0 {
		return DefaultMaxQueryLength
	}
	return maxLen
}
