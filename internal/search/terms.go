package search

import (
	"regexp"
	"strings"
)

var (
	yearSuffix    = regexp.MustCompile(`\s*[\(\[]?\b(19|20)\d{2}\b[\)\]]?\s*$`)
	sequelSuffix  = regexp.MustCompile(`(?i)\s+(part\s+)?(\d{1,2}|ii|iii|iv|v|vi|vii|viii|ix|x)\s*$`)
	collectionTag = regexp.MustCompile(`(?i)\s*[-:]?\s*(collection|saga|trilogy|anthology)\s*$`)
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true,
	"in": true, "on": true, "to": true, "la": true, "le": true, "der": true, "die": true,
}

// SearchTerm derives the collection search text from a movie name:
// subtitle after ':' or ' - ' dropped, trailing year and sequel numbering removed.
//
//	"Alien: Resurrection (1997)" -> "Alien"
//	"Toy Story 3"                -> "Toy Story"
func SearchTerm(name string) string {
	term := strings.TrimSpace(name)
	if i := strings.Index(term, ":"); i > 0 {
		term = term[:i]
	}
	if i := strings.Index(term, " - "); i > 0 {
		term = term[:i]
	}
	if stripped := yearSuffix.ReplaceAllString(term, ""); strings.TrimSpace(stripped) != "" {
		term = stripped
	}
	if stripped := sequelSuffix.ReplaceAllString(term, ""); strings.TrimSpace(stripped) != "" {
		term = stripped
	}
	return strings.TrimSpace(term)
}

// FirstSignificantWord returns the first word of term that is not a stop word,
// or "" when none qualifies.
func FirstSignificantWord(term string) string {
	for _, t := range tokenize(term) {
		if !stopWords[t.text] && len([]rune(t.text)) > 1 {
			return t.text
		}
	}
	return ""
}

// CollectionBase strips a trailing "Collection"-style tag from a collection name.
func CollectionBase(name string) string {
	base := collectionTag.ReplaceAllString(name, "")
	if strings.TrimSpace(base) == "" {
		return name
	}
	return strings.TrimSpace(base)
}
