package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/G-grbz/monwui/internal/domain"
)

const (
	validateChunkSize   = 50
	validateConcurrency = 4
)

// UnwatchedValidator keeps only items the user has not played, checked live
// in parallel id chunks.
type UnwatchedValidator struct {
	catalog domain.Catalog
}

func NewUnwatchedValidator(catalog domain.Catalog) *UnwatchedValidator {
	return &UnwatchedValidator{catalog: catalog}
}

func (v *UnwatchedValidator) Validate(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	unplayed := false
	var mu sync.Mutex
	keep := make(map[string]struct{}, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validateConcurrency)
	for start := 0; start < len(items); start += validateChunkSize {
		chunk := items[start:min(start+validateChunkSize, len(items))]
		ids := make([]string, len(chunk))
		for i, it := range chunk {
			ids[i] = it.ID
		}

		g.Go(func() error {
			page, err := v.catalog.Items(gctx, domain.ItemQuery{
				IDs:      ids,
				IsPlayed: &unplayed,
				Limit:    len(ids),
				IDsOnly:  true,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			for _, it := range page.Items {
				keep[it.ID] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Item, 0, len(keep))
	for _, it := range items {
		if _, ok := keep[it.ID]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}
