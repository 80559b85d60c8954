package search

import (
	"strings"

	sfuzzy "github.com/sahilm/fuzzy"
)

// NameMatch is one hit from FindNames.
type NameMatch struct {
	Index          int   // index into the searched names
	Score          int   // higher is better
	MatchedIndexes []int // character positions that matched (for highlighting)
}

// nameIndex implements sahilm/fuzzy.Source over pre-lowered names.
type nameIndex []string

func (n nameIndex) String(i int) string { return n[i] }
func (n nameIndex) Len() int            { return len(n) }

// FindNames runs a subsequence fuzzy search over names, best first.
func FindNames(query string, names []string) []NameMatch {
	query = strings.TrimSpace(query)
	if query == "" || len(names) == 0 {
		return nil
	}

	lower := make(nameIndex, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}

	matches := sfuzzy.FindFrom(strings.ToLower(query), lower)
	out := make([]NameMatch, len(matches))
	for i, m := range matches {
		out[i] = NameMatch{Index: m.Index, Score: m.Score, MatchedIndexes: m.MatchedIndexes}
	}
	return out
}
