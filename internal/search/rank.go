package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/G-grbz/monwui/internal/domain"
)

// noMatchPenalty ranks candidates with no word-level match after every matched one.
const noMatchPenalty = 10_000

// RankCandidates orders collection candidates by how well their base name
// matches term, best first. Candidates are never dropped: verification
// decides membership, ranking only decides the order of checks.
func RankCandidates(term string, candidates []domain.Item) []domain.Item {
	type ranked struct {
		item  domain.Item
		score int
	}

	lowerTerm := strings.ToLower(term)
	out := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		base := CollectionBase(c.Name)
		score, ok := TitleScore(term, base)
		if !ok {
			score = noMatchPenalty + fuzzy.LevenshteinDistance(lowerTerm, strings.ToLower(base))
		}
		out = append(out, ranked{item: c, score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score < out[j].score
	})

	items := make([]domain.Item, len(out))
	for i, r := range out {
		items[i] = r.item
	}
	return items
}
