package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/G-grbz/monwui/internal/domain"
)

// FakeCatalog is an in-memory domain.Catalog. Items are returned in the
// order they were added. Safe for concurrent use.
type FakeCatalog struct {
	mu        sync.Mutex
	items     []domain.Item
	children  map[string][]string // collection id -> member ids
	ancestors map[string][]domain.Item
	genres    []string

	// ItemsHook runs before every Items call; a non-nil error fails the call.
	ItemsHook func(q domain.ItemQuery) error
	// AncestorsErr fails every Ancestors call when set.
	AncestorsErr error

	itemCalls     []domain.ItemQuery
	ancestorCalls int
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		children:  make(map[string][]string),
		ancestors: make(map[string][]domain.Item),
	}
}

// AddMovie adds a movie with the given id and name.
func (f *FakeCatalog) AddMovie(id, name string) domain.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := domain.Item{ID: id, Name: name, Type: domain.ItemTypeMovie}
	f.items = append(f.items, it)
	return it
}

// AddCollection adds a box set whose children are memberIDs.
func (f *FakeCatalog) AddCollection(id, name string, memberIDs ...string) domain.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := domain.Item{ID: id, Name: name, Type: domain.ItemTypeBoxSet}
	f.items = append(f.items, it)
	f.children[id] = append([]string(nil), memberIDs...)
	return it
}

// SetAncestors sets the Ancestors response for itemID.
func (f *FakeCatalog) SetAncestors(itemID string, chain ...domain.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ancestors[itemID] = chain
}

// SetPlayed marks items as watched.
func (f *FakeCatalog) SetPlayed(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if slices.Contains(ids, f.items[i].ID) {
			f.items[i].Played = true
		}
	}
}

// SetGenres sets the Genres response.
func (f *FakeCatalog) SetGenres(genres ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genres = genres
}

func (f *FakeCatalog) Items(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ItemPage{}, err
	}
	if f.ItemsHook != nil {
		if err := f.ItemsHook(q); err != nil {
			return domain.ItemPage{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls = append(f.itemCalls, q)

	var matched []domain.Item
	for _, it := range f.items {
		if f.matches(it, q) {
			matched = append(matched, it)
		}
	}

	total := len(matched)
	start := min(max(q.StartIndex, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	page := append([]domain.Item(nil), matched[start:end]...)
	return domain.ItemPage{Items: page, TotalCount: total}, nil
}

func (f *FakeCatalog) matches(it domain.Item, q domain.ItemQuery) bool {
	if len(q.IncludeItemTypes) > 0 && !slices.Contains(q.IncludeItemTypes, it.Type) {
		return false
	}
	if q.ParentID != "" && !slices.Contains(f.children[q.ParentID], it.ID) {
		return false
	}
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, it.ID) {
		return false
	}
	if q.SearchTerm != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(q.SearchTerm)) {
		return false
	}
	if q.IsPlayed != nil && it.Played != *q.IsPlayed {
		return false
	}
	return true
}

func (f *FakeCatalog) Ancestors(ctx context.Context, itemID string) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ancestorCalls++
	if f.AncestorsErr != nil {
		return nil, f.AncestorsErr
	}
	return f.ancestors[itemID], nil
}

func (f *FakeCatalog) Genres(ctx context.Context, _ []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.genres...), nil
}

// ItemCalls returns every Items query received, in order.
func (f *FakeCatalog) ItemCalls() []domain.ItemQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ItemQuery(nil), f.itemCalls...)
}

// ResetCalls clears recorded calls.
func (f *FakeCatalog) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls = nil
	f.ancestorCalls = 0
}

// AncestorCalls returns how many Ancestors calls were made.
func (f *FakeCatalog) AncestorCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ancestorCalls
}
