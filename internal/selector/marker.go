// Package selector picks the release asset that fits the running host
// out of an arbitrary list of candidate names or URLs. Candidates are
// opaque strings; all matching is literal substring testing driven by
// a per-host marker catalog.
package selector

import "strings"

// MatchPos controls where in the candidate a marker must occur.
type MatchPos int

const (
	// Contains matches the marker anywhere in the candidate.
	Contains MatchPos = iota
	// Prefix matches the marker at the start of the candidate.
	Prefix
	// Suffix matches the marker at the end of the candidate.
	Suffix
)

// Combination decides whether one marker of a set must match (Any) or
// every marker must (All).
type Combination int

const (
	Any Combination = iota
	All
)

// Marker is a literal string plus its match-position rule.
type Marker struct {
	Text string
	Pos  MatchPos
}

func (m Marker) match(candidate string, caseSensitive bool) bool {
	text := m.Text
	if !caseSensitive {
		candidate = strings.ToLower(candidate)
		text = strings.ToLower(text)
	}
	switch m.Pos {
	case Prefix:
		return strings.HasPrefix(candidate, text)
	case Suffix:
		return strings.HasSuffix(candidate, text)
	default:
		return strings.Contains(candidate, text)
	}
}

// markers builds a Contains marker set from plain strings.
func markers(texts ...string) []Marker {
	set := make([]Marker, len(texts))
	for i, t := range texts {
		set[i] = Marker{Text: t}
	}
	return set
}
