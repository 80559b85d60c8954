package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/domain"
)

func TestSearchTerm(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Alien", "Alien"},
		{"Alien: Resurrection", "Alien"},
		{"Alien (1979)", "Alien"},
		{"Toy Story 3", "Toy Story"},
		{"Rocky II", "Rocky"},
		{"Back to the Future Part III", "Back to the Future"},
		{"Mission: Impossible - Fallout", "Mission"},
		{"2001: A Space Odyssey", "2001"},
		{"1917", "1917"},
		{"  Heat  ", "Heat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchTerm(tt.name))
		})
	}
}

func TestFirstSignificantWord(t *testing.T) {
	assert.Equal(t, "lord", FirstSignificantWord("The Lord of the Rings"))
	assert.Equal(t, "matrix", FirstSignificantWord("The Matrix"))
	assert.Equal(t, "", FirstSignificantWord("The A"))
}

func TestCollectionBase(t *testing.T) {
	assert.Equal(t, "Alien", CollectionBase("Alien Collection"))
	assert.Equal(t, "Star Wars", CollectionBase("Star Wars Saga"))
	assert.Equal(t, "Collection", CollectionBase("Collection"))
	assert.Equal(t, "Heat", CollectionBase("Heat"))
}

func TestTitleScoreOrdering(t *testing.T) {
	exact, ok := TitleScore("alien", "Alien")
	require.True(t, ok)
	prefix, ok := TitleScore("ali", "Alien")
	require.True(t, ok)
	typo, ok := TitleScore("aliem", "Alien")
	require.True(t, ok)

	assert.Less(t, exact, prefix)
	assert.Less(t, prefix, typo)

	_, ok = TitleScore("predator", "Alien")
	assert.False(t, ok)

	reordered, ok := TitleScore("robot mr", "Mr. Robot")
	require.True(t, ok)
	assert.Zero(t, reordered)
}

func TestRankCandidatesPrefersClosestName(t *testing.T) {
	candidates := []domain.Item{
		{ID: "c1", Name: "Alien vs. Predator Collection"},
		{ID: "c2", Name: "Predator Collection"},
		{ID: "c3", Name: "Alien Collection"},
	}

	ranked := RankCandidates("Alien", candidates)
	require.Len(t, ranked, 3)
	assert.Equal(t, "c3", ranked[0].ID)
	assert.Equal(t, "c1", ranked[1].ID)
	assert.Equal(t, "c2", ranked[2].ID)
}

func TestFindNames(t *testing.T) {
	names := []string{"Alien Collection", "Toy Story Collection", "The Matrix Collection"}

	matches := FindNames("toy", names)
	require.NotEmpty(t, matches)
	assert.Equal(t, 1, matches[0].Index)

	assert.Nil(t, FindNames("  ", names))
}
