package cache

import (
	"fmt"
	"time"

	"github.com/G-grbz/monwui/internal/domain"
)

// Meta key prefixes. Every scoped key embeds Scope.Key() right after the prefix
// so a prefix plus scope selects one tenant's records.
const (
	// PrefixMembership maps a movie to its collection (membership:{scope}|{movieId})
	PrefixMembership = "membership:"

	// PrefixCollection holds a collection's member list (collection:{scope}|{collectionId})
	PrefixCollection = "collection:"

	// PrefixIndexer holds crawl state (indexer:{scope}:{field})
	PrefixIndexer = "indexer:"

	// PrefixPicks holds a cached id pool per category (picks:{scope}:{category})
	PrefixPicks = "picks:"

	// PrefixLastShown holds the ids most recently returned per category (lastshown:{scope}:{category})
	PrefixLastShown = "lastshown:"

	// PrefixGenres holds the genre catalog per ISO week (genres:{scope}:{week})
	PrefixGenres = "genres:"
)

// Indexer state fields.
const (
	FieldPhase        = "phase"
	FieldMovieCursor  = "movieCursor"
	FieldBoxsetCursor = "boxsetCursor"
	FieldSeenBoxsets  = "seenBoxsets"
	FieldDoneAt       = "doneAt"
)

func MembershipKey(scope domain.Scope, movieID string) string {
	return PrefixMembership + scope.Key() + "|" + movieID
}

func CollectionKey(scope domain.Scope, collectionID string) string {
	return PrefixCollection + scope.Key() + "|" + collectionID
}

// CollectionPrefix selects every cached member list in scope.
func CollectionPrefix(scope domain.Scope) string {
	return PrefixCollection + scope.Key() + "|"
}

func IndexerKey(scope domain.Scope, field string) string {
	return PrefixIndexer + scope.Key() + ":" + field
}

func PicksKey(scope domain.Scope, category string) string {
	return PrefixPicks + scope.Key() + ":" + category
}

func LastShownKey(scope domain.Scope, category string) string {
	return PrefixLastShown + scope.Key() + ":" + category
}

// GenresKey rolls over once per ISO week, so the catalog refreshes weekly
// even without a TTL check.
func GenresKey(scope domain.Scope, t time.Time) string {
	return PrefixGenres + scope.Key() + ":" + WeekKey(t)
}

// WeekKey formats t as an ISO year-week, e.g. "2026-W42".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ScopedMetaPrefixes returns the meta prefixes purge sweeps for a scope.
// Indexer state is excluded: it is reset by the cycle, not by age.
func ScopedMetaPrefixes(scope domain.Scope) []string {
	key := scope.Key()
	return []string{
		PrefixMembership + key + "|",
		PrefixCollection + key + "|",
		PrefixPicks + key + ":",
		PrefixLastShown + key + ":",
		PrefixGenres + key + ":",
	}
}
