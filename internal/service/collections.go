package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/collections"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/search"
)

// CollectionService is the consumer read surface over memberships and
// member lists. The cached path never touches the network; the live path
// resolves remotely and writes through.
type CollectionService struct {
	catalog  domain.Catalog
	cache    *cache.Accessor
	scope    domain.Scope
	resolver *collections.Resolver
	syncer   *collections.Syncer
	logger   *slog.Logger
}

// NewCollectionService wires the shared resolution pipeline. candidateLimit
// <= 0 uses the resolver default.
func NewCollectionService(catalog domain.Catalog, c *cache.Accessor, scope domain.Scope, candidateLimit int, logger *slog.Logger) *CollectionService {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := collections.NewFetcher(catalog, 0)
	return &CollectionService{
		catalog:  catalog,
		cache:    c,
		scope:    scope,
		resolver: collections.NewResolver(catalog, fetcher, candidateLimit, logger),
		syncer:   collections.NewSyncer(c, fetcher, logger),
		logger:   logger,
	}
}

// GetCollectionForMovie returns the movie's mapping. nil means the movie was
// never checked; an empty CollectionID means it belongs to no collection.
// With live set the mapping is resolved remotely; remote failures fall back
// to the cached value. Only cancellation and unknown movies are errors.
func (s *CollectionService) GetCollectionForMovie(ctx context.Context, movieID string, live bool) (*domain.Membership, error) {
	cached := s.cache.GetMembership(ctx, s.scope, movieID)
	if !live {
		return cached, nil
	}

	movie, err := s.lookupItem(ctx, movieID)
	if err != nil {
		return s.degrade(ctx, "movie lookup", movieID, cached, err)
	}

	coll, _, err := s.resolver.Resolve(ctx, *movie)
	if err != nil {
		return s.degrade(ctx, "resolve", movieID, cached, err)
	}

	now := s.cache.NowMillis()
	if coll == nil {
		m := domain.Membership{MovieID: movieID, UpdatedAt: now}
		s.write(ctx, m)
		return &m, nil
	}

	if _, err := s.syncer.Refresh(ctx, s.scope, *coll); err != nil {
		if isCanceled(ctx, err) {
			return nil, err
		}
		s.logger.Debug("member refresh failed", "collection", coll.ID, "error", err)
	}
	m := domain.Membership{MovieID: movieID, CollectionID: coll.ID, CollectionName: coll.Name, UpdatedAt: now}
	s.write(ctx, m)
	return &m, nil
}

// GetMembersOfCollection returns the member list. The cached path returns
// nil on a miss; the live path refetches and writes through.
func (s *CollectionService) GetMembersOfCollection(ctx context.Context, collectionID string, live bool) ([]domain.Item, error) {
	cached := s.cache.GetCollectionMembers(ctx, s.scope, collectionID)
	if !live {
		if cached == nil {
			return nil, nil
		}
		return cached.Items, nil
	}

	coll := domain.Item{ID: collectionID, Type: domain.ItemTypeBoxSet}
	if cached != nil {
		coll.Name = cached.Name
	}
	if e := s.cache.GetEntity(ctx, s.scope, collectionID); e != nil {
		coll = *e
	}

	members, err := s.syncer.Refresh(ctx, s.scope, coll)
	if err != nil {
		if isCanceled(ctx, err) {
			return nil, err
		}
		s.logger.Warn("live member fetch failed, serving cache", "collection", collectionID, "error", err)
		if cached == nil {
			return nil, nil
		}
		return cached.Items, nil
	}
	return members, nil
}

// CollectionMatch is one FindCollections hit.
type CollectionMatch struct {
	CollectionID string
	Name         string
	Members      int
	Score        int
	UpdatedAt    time.Time
}

// FindCollections fuzzy-matches name against cached collection names, best
// first.
func (s *CollectionService) FindCollections(ctx context.Context, name string) []CollectionMatch {
	lists := s.cache.ListCollections(ctx, s.scope)
	names := make([]string, len(lists))
	for i, c := range lists {
		names[i] = c.Name
	}

	matches := search.FindNames(name, names)
	out := make([]CollectionMatch, 0, len(matches))
	for _, m := range matches {
		c := lists[m.Index]
		out = append(out, CollectionMatch{
			CollectionID: c.CollectionID,
			Name:         c.Name,
			Members:      len(c.Items),
			Score:        m.Score,
			UpdatedAt:    time.UnixMilli(c.UpdatedAt),
		})
	}
	return out
}

// lookupItem reads the item from cache, or fetches and caches it.
func (s *CollectionService) lookupItem(ctx context.Context, id string) (*domain.Item, error) {
	if it := s.cache.GetEntity(ctx, s.scope, id); it != nil {
		return it, nil
	}

	page, err := s.catalog.Items(ctx, domain.ItemQuery{
		IDs:    []string{id},
		Fields: []string{domain.FieldSortName},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, domain.ErrItemNotFound
	}
	it := page.Items[0]
	if err := s.cache.PutEntities(ctx, s.scope, []domain.Item{it}); err != nil {
		s.logger.Debug("failed to cache item", "item", id, "error", err)
	}
	return &it, nil
}

func (s *CollectionService) write(ctx context.Context, m domain.Membership) {
	if err := s.cache.PutMemberships(ctx, s.scope, []domain.Membership{m}); err != nil {
		s.logger.Warn("failed to cache membership", "movie", m.MovieID, "error", err)
	}
}

func (s *CollectionService) degrade(ctx context.Context, op, id string, cached *domain.Membership, err error) (*domain.Membership, error) {
	if isCanceled(ctx, err) || errors.Is(err, domain.ErrItemNotFound) {
		return nil, err
	}
	s.logger.Warn("live lookup failed, serving cache", "op", op, "item", id, "error", err)
	return cached, nil
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
