// Package search ranks collection candidates against a movie title and
// searches cached collection names.
package search

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// token is a lowercase word of a title.
type token struct {
	text string
	pos  int // word position in the title
}

// tokenize splits text into lowercase letter/digit words.
func tokenize(text string) []token {
	var tokens []token
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		tokens = append(tokens, token{text: f, pos: i})
	}
	return tokens
}

// TitleScore matches every query word against a title, in any order.
// Lower is better; ok is false when some query word has no counterpart.
//
// Word scores: exact 0, prefix 10, query-extends-word 20, substring 50+,
// typo within tolerance 100+20/edit. Unmatched title words cost 5 each.
func TitleScore(query, title string) (score int, ok bool) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0, false
	}
	titleTokens := tokenize(title)
	used := make([]bool, len(titleTokens))
	lowerTitle := strings.ToLower(title)

	for _, q := range queryTokens {
		best, bestIdx := -1, -1
		for i, t := range titleTokens {
			if used[i] {
				continue
			}
			if s := wordScore(q.text, t.text); s >= 0 && (best < 0 || s < best) {
				best, bestIdx = s, i
			}
		}
		if best < 0 {
			idx := strings.Index(lowerTitle, q.text)
			if idx < 0 {
				return 0, false
			}
			best = 150 + idx
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
		}
		score += best
	}

	if extra := len(titleTokens) - len(queryTokens); extra > 0 {
		score += extra * 5
	}
	return score, true
}

func wordScore(query, word string) int {
	switch {
	case query == word:
		return 0
	case strings.HasPrefix(word, query):
		return 10
	case strings.HasPrefix(query, word):
		return 20
	}
	if idx := strings.Index(word, query); idx >= 0 {
		return 50 + idx
	}
	if typos := allowedTypos(len([]rune(query))); typos > 0 {
		if dist := fuzzy.LevenshteinDistance(query, word); dist <= typos {
			return 100 + dist*20
		}
	}
	return -1
}

// allowedTypos: 1-3 chars = 0, 4-6 chars = 1, 7+ chars = 2
func allowedTypos(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}
