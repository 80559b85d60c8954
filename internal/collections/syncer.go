package collections

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
)

// Syncer brings one collection's cached member list and memberships up to date.
type Syncer struct {
	cache   *cache.Accessor
	fetcher *Fetcher
	logger  *slog.Logger
}

func NewSyncer(c *cache.Accessor, fetcher *Fetcher, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{cache: c, fetcher: fetcher, logger: logger}
}

// Sync reuses a fresh cached member list, writing only the membership
// mappings, or fetches the list and persists it together with member
// entities and mappings. live reports whether the remote was queried.
// Cache write failures are logged, not returned.
func (s *Syncer) Sync(ctx context.Context, scope domain.Scope, coll domain.Item, ttl time.Duration) (live bool, members []domain.Item, err error) {
	if cached := s.cache.GetCollectionMembers(ctx, scope, coll.ID); cached != nil && !s.cache.IsStale(cached.UpdatedAt, ttl) {
		s.writeMemberships(ctx, scope, coll, cached.Items)
		return false, cached.Items, nil
	}

	members, err = s.Refresh(ctx, scope, coll)
	return true, members, err
}

// Refresh always fetches coll's member list and persists it together with
// member entities and mappings.
func (s *Syncer) Refresh(ctx context.Context, scope domain.Scope, coll domain.Item) ([]domain.Item, error) {
	members, err := s.fetcher.Members(ctx, coll.ID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.PutCollectionMembers(ctx, scope, domain.CollectionMembers{
		CollectionID: coll.ID,
		Name:         coll.Name,
		Items:        members,
	}); err != nil {
		s.warn(ctx, "failed to cache collection members", coll.ID, err)
	}
	if err := s.cache.PutEntities(ctx, scope, append([]domain.Item{coll.Minimal()}, members...)); err != nil {
		s.warn(ctx, "failed to cache member entities", coll.ID, err)
	}
	s.writeMemberships(ctx, scope, coll, members)
	return members, nil
}

func (s *Syncer) writeMemberships(ctx context.Context, scope domain.Scope, coll domain.Item, members []domain.Item) {
	if len(members) == 0 {
		return
	}
	if err := s.cache.PutMemberships(ctx, scope, MembershipsFor(coll, members)); err != nil {
		s.warn(ctx, "failed to cache memberships", coll.ID, err)
	}
}

// warn logs a cache write failure unless the caller went away.
func (s *Syncer) warn(ctx context.Context, msg, collectionID string, err error) {
	if isCancel(ctx, err) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.logger.Warn(msg, "collection", collectionID, "error", err)
}

// MembershipsFor maps every member to coll.
func MembershipsFor(coll domain.Item, members []domain.Item) []domain.Membership {
	out := make([]domain.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, domain.Membership{
			MovieID:        m.ID,
			CollectionID:   coll.ID,
			CollectionName: coll.Name,
		})
	}
	return out
}
