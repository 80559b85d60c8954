// Package collections holds the resolve, fetch-members and sync steps shared
// by the indexer and the consumer read surface.
package collections

import (
	"context"
	"fmt"

	"github.com/G-grbz/monwui/internal/domain"
)

const defaultMemberPageSize = 200

// memberFields is the projection cached for collection members.
var memberFields = []string{domain.FieldGenres, domain.FieldSortName, domain.FieldParentID}

// Fetcher pages through a collection's children.
type Fetcher struct {
	catalog  domain.Catalog
	pageSize int
}

// NewFetcher creates a Fetcher. pageSize <= 0 uses the default.
func NewFetcher(catalog domain.Catalog, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = defaultMemberPageSize
	}
	return &Fetcher{catalog: catalog, pageSize: pageSize}
}

// Members returns every child of collectionID, deduplicated by id and
// reduced to the cached field subset.
func (f *Fetcher) Members(ctx context.Context, collectionID string) ([]domain.Item, error) {
	seen := make(map[string]struct{})
	var members []domain.Item

	err := f.page(ctx, domain.ItemQuery{
		ParentID: collectionID,
		Fields:   memberFields,
		SortBy:   []string{"ProductionYear", "SortName"},
	}, func(items []domain.Item) bool {
		for _, it := range items {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			members = append(members, it.Minimal())
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("fetch members of %s: %w", collectionID, err)
	}
	return members, nil
}

// ContainsChild reports whether childID is a direct child of collectionID,
// paging ids only and stopping at the first hit.
func (f *Fetcher) ContainsChild(ctx context.Context, collectionID, childID string) (bool, error) {
	found := false
	err := f.page(ctx, domain.ItemQuery{ParentID: collectionID, IDsOnly: true}, func(items []domain.Item) bool {
		for _, it := range items {
			if it.ID == childID {
				found = true
				return false
			}
		}
		return true
	})
	return found, err
}

// page walks q to exhaustion, calling fn per non-empty page until fn returns false.
func (f *Fetcher) page(ctx context.Context, q domain.ItemQuery, fn func([]domain.Item) bool) error {
	q.Limit = f.pageSize
	q.StartIndex = 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := f.catalog.Items(ctx, q)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			return nil
		}
		if !fn(page.Items) {
			return nil
		}
		q.StartIndex += len(page.Items)
		if page.TotalCount > 0 && q.StartIndex >= page.TotalCount {
			return nil
		}
	}
}
