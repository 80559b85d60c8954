package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/metrics"
)

const defaultPoolSize = 60

// Validator filters items by a live check, keeping input order.
type Validator interface {
	Validate(ctx context.Context, items []domain.Item) ([]domain.Item, error)
}

// PickRequest describes one "N items from category" read.
type PickRequest struct {
	// Category names the cached id pool, e.g. "recent-movies".
	Category string
	Count    int
	// TTL bounds reuse of the cached id pool.
	TTL time.Duration

	// Query is the live fallback. Its Limit sets the pool size.
	Query domain.ItemQuery

	// Validator, when set, drops items failing a live check.
	Validator Validator
}

// idPool is the meta value stored under a picks key.
type idPool struct {
	IDs []string `json:"ids"`
}

// Picker serves cache-first random picks that avoid repeating the previous
// result. It never fails; errors degrade to fewer items.
type Picker struct {
	catalog domain.Catalog
	cache   *cache.Accessor
	scope   domain.Scope
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithRand sets the shuffle source.
func WithRand(r *rand.Rand) PickerOption {
	return func(p *Picker) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithPickerLogger sets the logger for degraded reads.
func WithPickerLogger(l *slog.Logger) PickerOption {
	return func(p *Picker) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPicker(catalog domain.Catalog, c *cache.Accessor, scope domain.Scope, opts ...PickerOption) *Picker {
	p := &Picker{
		catalog: catalog,
		cache:   c,
		scope:   scope,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pick returns up to req.Count items. A fresh cached pool is sampled first,
// minus the ids shown last time; the live query covers a missing or stale
// pool and a short hydration.
func (p *Picker) Pick(ctx context.Context, req PickRequest) []domain.Item {
	if req.Count <= 0 {
		return nil
	}

	cached := p.fromCache(ctx, req)
	if len(cached) >= req.Count {
		picked := cached[:req.Count]
		p.recordShown(ctx, req.Category, picked)
		metrics.PickerRequests.WithLabelValues(req.Category, "cache").Inc()
		return picked
	}

	live, err := p.fromLive(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("live pick failed, serving cached items", "category", req.Category, "error", err)
		}
		metrics.PickerRequests.WithLabelValues(req.Category, "partial").Inc()
		p.recordShown(ctx, req.Category, cached)
		return cached
	}

	picked := mergeByID(live, cached, req.Count)
	p.recordShown(ctx, req.Category, picked)
	metrics.PickerRequests.WithLabelValues(req.Category, "live").Inc()
	return picked
}

// fromCache samples the cached pool. It returns nil when the pool is
// missing, stale or empty.
func (p *Picker) fromCache(ctx context.Context, req PickRequest) []domain.Item {
	var pool idPool
	updatedAt, ok := p.cache.GetMeta(ctx, cache.PicksKey(p.scope, req.Category), &pool)
	if !ok || len(pool.IDs) == 0 || p.cache.IsStale(updatedAt, req.TTL) {
		return nil
	}

	candidates := pool.IDs
	var shown idPool
	if _, ok := p.cache.GetMeta(ctx, cache.LastShownKey(p.scope, req.Category), &shown); ok && len(shown.IDs) > 0 {
		if rest := subtract(pool.IDs, shown.IDs); len(rest) >= req.Count {
			candidates = rest
		}
	}

	items := p.cache.GetEntitiesByIDs(ctx, p.scope, candidates)
	items = p.validate(ctx, req, items)
	p.shuffle(items)
	return items
}

// fromLive runs the fallback query and persists its id pool and entities.
func (p *Picker) fromLive(ctx context.Context, req PickRequest) ([]domain.Item, error) {
	q := req.Query
	if q.Limit <= 0 {
		q.Limit = max(defaultPoolSize, req.Count)
	}

	page, err := p.catalog.Items(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	if err := p.cache.PutEntities(ctx, p.scope, page.Items); err != nil {
		p.logger.Warn("failed to cache picked entities", "category", req.Category, "error", err)
	}
	if err := p.cache.SetMeta(ctx, cache.PicksKey(p.scope, req.Category), idPool{IDs: ids}); err != nil {
		p.logger.Warn("failed to cache pick pool", "category", req.Category, "error", err)
	}

	items := p.validate(ctx, req, page.Items)
	p.shuffle(items)
	return items, nil
}

func (p *Picker) validate(ctx context.Context, req PickRequest, items []domain.Item) []domain.Item {
	if req.Validator == nil || len(items) == 0 {
		return items
	}
	valid, err := req.Validator.Validate(ctx, items)
	if err != nil {
		p.logger.Debug("pick validation failed, keeping items", "category", req.Category, "error", err)
		return items
	}
	return valid
}

func (p *Picker) recordShown(ctx context.Context, category string, items []domain.Item) {
	if len(items) == 0 {
		return
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if err := p.cache.SetMeta(ctx, cache.LastShownKey(p.scope, category), idPool{IDs: ids}); err != nil {
		p.logger.Debug("failed to record shown ids", "category", category, "error", err)
	}
}

func (p *Picker) shuffle(items []domain.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

func subtract(ids, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// mergeByID returns up to n items from primary, topped up from extra,
// without duplicate ids.
func mergeByID(primary, extra []domain.Item, n int) []domain.Item {
	seen := make(map[string]struct{}, n)
	out := make([]domain.Item, 0, n)
	for _, list := range [][]domain.Item{primary, extra} {
		for _, it := range list {
			if len(out) == n {
				return out
			}
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}
