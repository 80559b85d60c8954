package indexer

import (
	"context"
	"errors"

	"github.com/G-grbz/monwui/internal/collections"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/metrics"
)

// step processes one page of the current phase. It returns the state to
// checkpoint and whether the crawl cycle completed. On error the input
// state is the one to keep: the same cursor is retried.
func (h *Handle) step(ctx context.Context, r *run, state domain.IndexerState) (domain.IndexerState, bool, error) {
	switch state.Phase {
	case domain.PhaseNegative:
		return h.negativeStep(ctx, r, state)
	case domain.PhaseMovie:
		return h.movieStep(ctx, r, state)
	default:
		return h.boxsetStep(ctx, r, state)
	}
}

// exhaust applies the phase transition for an empty page.
func exhaust(state domain.IndexerState) (domain.IndexerState, bool) {
	next, cycleDone := domain.NextPhase(state.Phase, true)
	out := state.Clone()
	out.Phase = next
	out.MovieCursor = 0
	out.BoxsetCursor = 0
	return out, cycleDone
}

func (h *Handle) boxsetStep(ctx context.Context, r *run, state domain.IndexerState) (domain.IndexerState, bool, error) {
	page, err := h.catalog.Items(ctx, domain.ItemQuery{
		IncludeItemTypes: []string{domain.ItemTypeBoxSet},
		Recursive:        true,
		SortBy:           []string{"SortName"},
		SortOrder:        "Ascending",
		Fields:           []string{domain.FieldSortName},
		StartIndex:       state.BoxsetCursor,
		Limit:            r.opts.PageSize,
	})
	if err != nil {
		return state, false, err
	}
	r.lastTotal = page.TotalCount
	if len(page.Items) == 0 {
		next, done := exhaust(state)
		return next, done, nil
	}

	next := state.Clone()
	for _, coll := range page.Items {
		if err := ctx.Err(); err != nil {
			return state, false, err
		}
		if next.Seen(coll.ID) {
			continue
		}

		live, members, err := r.syncer.Sync(ctx, h.scope, coll, r.opts.MembersTTL)
		if errors.Is(err, domain.ErrItemNotFound) {
			h.logger.Info("collection vanished, skipping", "run", r.id, "collection", coll.ID)
			next.MarkSeen(coll.ID)
			continue
		}
		if err != nil {
			return state, false, err
		}
		next.MarkSeen(coll.ID)
		h.countSync(r, live, len(members))

		if live {
			if err := h.clock.Sleep(ctx, r.opts.CollectionThrottle); err != nil {
				return state, false, err
			}
		}
	}

	next.BoxsetCursor += len(page.Items)
	return next, false, nil
}

func (h *Handle) negativeStep(ctx context.Context, r *run, state domain.IndexerState) (domain.IndexerState, bool, error) {
	page, err := h.catalog.Items(ctx, domain.ItemQuery{
		IncludeItemTypes: []string{domain.ItemTypeMovie},
		Recursive:        true,
		SortBy:           []string{"SortName"},
		SortOrder:        "Ascending",
		StartIndex:       state.MovieCursor,
		Limit:            r.opts.PageSize,
		IDsOnly:          true,
	})
	if err != nil {
		return state, false, err
	}
	r.lastTotal = page.TotalCount
	if len(page.Items) == 0 {
		next, done := exhaust(state)
		return next, done, nil
	}

	ids := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	existing := h.cache.GetMemberships(ctx, h.scope, ids)

	batch := newNegativeBatch(h, r)
	for _, id := range ids {
		if _, known := existing[id]; known {
			continue
		}
		if err := batch.add(ctx, id); err != nil {
			return state, false, err
		}
	}
	if err := batch.flush(ctx); err != nil {
		return state, false, err
	}

	next := state.Clone()
	next.MovieCursor += len(page.Items)
	return next, false, nil
}

func (h *Handle) movieStep(ctx context.Context, r *run, state domain.IndexerState) (domain.IndexerState, bool, error) {
	page, err := h.catalog.Items(ctx, domain.ItemQuery{
		IncludeItemTypes: []string{domain.ItemTypeMovie},
		Recursive:        true,
		SortBy:           []string{"SortName"},
		SortOrder:        "Ascending",
		Fields:           []string{domain.FieldSortName},
		StartIndex:       state.MovieCursor,
		Limit:            r.opts.PageSize,
	})
	if err != nil {
		return state, false, err
	}
	r.lastTotal = page.TotalCount
	if len(page.Items) == 0 {
		next, done := exhaust(state)
		return next, done, nil
	}

	ids := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	existing := h.cache.GetMemberships(ctx, h.scope, ids)

	next := state.Clone()
	batch := newNegativeBatch(h, r)
	for _, movie := range page.Items {
		if err := ctx.Err(); err != nil {
			return state, false, err
		}
		if _, skip := r.fastSkip[movie.ID]; skip {
			continue
		}
		if m, ok := existing[movie.ID]; ok && !h.cache.IsStale(m.UpdatedAt, r.opts.MembershipTTL) {
			continue
		}

		live, err := h.resolveMovie(ctx, r, &next, batch, movie)
		if err != nil {
			return state, false, err
		}

		r.sessionItems++
		if live {
			if err := h.clock.Sleep(ctx, r.opts.Throttle); err != nil {
				return state, false, err
			}
		}
		if r.opts.MaxItemsPerSession > 0 && r.sessionItems >= r.opts.MaxItemsPerSession {
			if err := batch.flush(ctx); err != nil {
				return state, false, err
			}
			// The cursor still points at this page; only the seen set moves.
			h.checkpoint(r, next)
			r.sessionItems = 0
			h.logger.Debug("session limit reached, cooling down", "run", r.id, "cooldown", r.opts.SessionCooldown)
			if err := h.clock.Sleep(ctx, r.opts.SessionCooldown); err != nil {
				return state, false, err
			}
		}
	}
	if err := batch.flush(ctx); err != nil {
		return state, false, err
	}

	next.MovieCursor += len(page.Items)
	return next, false, nil
}

// resolveMovie finds and syncs the collection of one movie, queueing a
// negative entry when there is none. It reports whether the remote was hit.
func (h *Handle) resolveMovie(ctx context.Context, r *run, next *domain.IndexerState, batch *negativeBatch, movie domain.Item) (bool, error) {
	coll, live, err := r.resolver.Resolve(ctx, movie)
	if errors.Is(err, collections.ErrUnresolved) {
		h.logger.Debug("movie left unmapped, lookup incomplete", "movie", movie.ID, "error", err)
		return live, nil
	}
	if err != nil {
		return live, err
	}
	r.fastSkip[movie.ID] = struct{}{}

	if coll == nil {
		return live, batch.add(ctx, movie.ID)
	}

	if next.Seen(coll.ID) {
		return live, h.writePositive(ctx, r, *coll, movie)
	}

	synced, members, err := r.syncer.Sync(ctx, h.scope, *coll, r.opts.MembersTTL)
	if err != nil {
		if isCancellation(ctx, err) {
			return true, err
		}
		h.logger.Debug("member fetch failed, mapping movie only", "movie", movie.ID, "collection", coll.ID, "error", err)
		return true, h.writePositive(ctx, r, *coll, movie)
	}
	next.MarkSeen(coll.ID)
	h.countSync(r, synced, len(members))
	for _, m := range members {
		r.fastSkip[m.ID] = struct{}{}
	}
	return live || synced, nil
}

func (h *Handle) writePositive(ctx context.Context, r *run, coll, movie domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := h.cache.PutMemberships(ctx, h.scope, []domain.Membership{{
		MovieID:        movie.ID,
		CollectionID:   coll.ID,
		CollectionName: coll.Name,
	}})
	if err != nil {
		h.logger.Warn("failed to cache membership", "movie", movie.ID, "error", err)
		return nil
	}
	r.positive++
	metrics.IndexerMembershipsWritten.WithLabelValues("positive").Inc()
	return nil
}

func (h *Handle) countSync(r *run, live bool, members int) {
	source := "cache"
	if live {
		source = "live"
	}
	metrics.IndexerCollectionsSynced.WithLabelValues(source).Inc()
	metrics.IndexerMembershipsWritten.WithLabelValues("positive").Add(float64(members))
	r.collections++
	r.positive += members
}

// negativeBatch buffers "no collection" entries and writes them in batches.
type negativeBatch struct {
	h   *Handle
	r   *run
	ids []string
}

func newNegativeBatch(h *Handle, r *run) *negativeBatch {
	return &negativeBatch{h: h, r: r}
}

func (b *negativeBatch) add(ctx context.Context, id string) error {
	b.ids = append(b.ids, id)
	if len(b.ids) >= b.r.opts.NegativeBatchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *negativeBatch) flush(ctx context.Context) error {
	if len(b.ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries := make([]domain.Membership, len(b.ids))
	for i, id := range b.ids {
		entries[i] = domain.Membership{MovieID: id}
	}
	if err := b.h.cache.PutMemberships(ctx, b.h.scope, entries); err != nil {
		if isCancellation(ctx, err) {
			return err
		}
		b.h.logger.Warn("failed to cache negative entries", "count", len(entries), "error", err)
	} else {
		b.r.negative += len(entries)
		metrics.IndexerMembershipsWritten.WithLabelValues("negative").Add(float64(len(entries)))
	}
	b.ids = b.ids[:0]
	return nil
}
