// Package cache translates domain reads and writes into KV store operations
// and evaluates staleness. It never talks to the remote catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/G-grbz/monwui/internal/domain"
)

// Clock abstracts time retrieval so staleness is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Accessor is the typed view over a domain.KVStore. A nil store yields a
// disabled accessor: reads miss and writes succeed without effect.
type Accessor struct {
	kv     domain.KVStore
	clock  Clock
	logger *slog.Logger
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithClock sets the time source used for UpdatedAt stamps and staleness.
func WithClock(c Clock) Option {
	return func(a *Accessor) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithLogger sets the logger for soft-failed store operations.
func WithLogger(l *slog.Logger) Option {
	return func(a *Accessor) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an accessor over kv.
func New(kv domain.KVStore, opts ...Option) *Accessor {
	a := &Accessor{
		kv:     kv,
		clock:  RealClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether a backing store is present.
func (a *Accessor) Enabled() bool {
	return a != nil && a.kv != nil
}

// NowMillis returns the accessor clock in unix milliseconds.
func (a *Accessor) NowMillis() int64 {
	return a.clock.Now().UnixMilli()
}

// Stale reports whether a record written at updatedAt has outlived ttl at now.
// All timestamps are unix milliseconds. An age equal to ttl is still fresh.
func Stale(updatedAt int64, ttl time.Duration, now int64) bool {
	if updatedAt <= 0 {
		return true
	}
	return now-updatedAt > ttl.Milliseconds()
}

// IsStale evaluates Stale against the accessor clock.
func (a *Accessor) IsStale(updatedAt int64, ttl time.Duration) bool {
	return Stale(updatedAt, ttl, a.NowMillis())
}

// === Entities ===

// GetEntity returns the cached item or nil on miss or error.
func (a *Accessor) GetEntity(ctx context.Context, scope domain.Scope, id string) *domain.Item {
	if !a.Enabled() {
		return nil
	}
	rec, err := a.kv.Get(ctx, domain.NamespaceItems, scope.EntityKey(id))
	if err != nil {
		a.softFail("get entity", id, err)
		return nil
	}
	item, err := decodeItem(rec)
	if err != nil {
		a.softFail("decode entity", id, err)
		return nil
	}
	return &item
}

// GetEntitiesByIDs hydrates ids in order. Missing ids are omitted.
func (a *Accessor) GetEntitiesByIDs(ctx context.Context, scope domain.Scope, ids []string) []domain.Item {
	if !a.Enabled() || len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = scope.EntityKey(id)
	}
	recs, err := a.kv.GetMany(ctx, domain.NamespaceItems, keys)
	if err != nil {
		a.softFail("get entities", scope.Key(), err)
		return nil
	}

	items := make([]domain.Item, 0, len(recs))
	for i, key := range keys {
		rec, ok := recs[key]
		if !ok {
			continue
		}
		item, err := decodeItem(rec)
		if err != nil {
			a.softFail("decode entity", ids[i], err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// PutEntities upserts items and refreshes their UpdatedAt.
func (a *Accessor) PutEntities(ctx context.Context, scope domain.Scope, items []domain.Item) error {
	if !a.Enabled() || len(items) == 0 {
		return nil
	}

	now := a.NowMillis()
	recs := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		item.UpdatedAt = now
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode item %s: %w", item.ID, err)
		}
		recs = append(recs, domain.Record{Key: scope.EntityKey(item.ID), Value: data, UpdatedAt: now})
	}
	return a.kv.BatchPut(ctx, domain.NamespaceItems, recs)
}

func decodeItem(rec domain.Record) (domain.Item, error) {
	var item domain.Item
	if err := json.Unmarshal(rec.Value, &item); err != nil {
		return domain.Item{}, err
	}
	if item.UpdatedAt == 0 {
		item.UpdatedAt = rec.UpdatedAt
	}
	return item, nil
}

// === Meta ===

// GetMeta decodes the value at key into dest. ok is false on miss or error.
func (a *Accessor) GetMeta(ctx context.Context, key string, dest any) (updatedAt int64, ok bool) {
	if !a.Enabled() {
		return 0, false
	}
	rec, err := a.kv.Get(ctx, domain.NamespaceMeta, key)
	if err != nil {
		a.softFail("get meta", key, err)
		return 0, false
	}
	if err := json.Unmarshal(rec.Value, dest); err != nil {
		a.softFail("decode meta", key, err)
		return 0, false
	}
	return rec.UpdatedAt, true
}

// SetMeta overwrites the value at key.
func (a *Accessor) SetMeta(ctx context.Context, key string, value any) error {
	return a.SetMetaBatch(ctx, map[string]any{key: value})
}

// SetMetaBatch writes every entry in one transaction.
func (a *Accessor) SetMetaBatch(ctx context.Context, values map[string]any) error {
	if !a.Enabled() || len(values) == 0 {
		return nil
	}
	recs, err := a.metaRecords(values)
	if err != nil {
		return err
	}
	return a.kv.BatchPut(ctx, domain.NamespaceMeta, recs)
}

func (a *Accessor) metaRecords(values map[string]any) ([]domain.Record, error) {
	now := a.NowMillis()
	recs := make([]domain.Record, 0, len(values))
	for key, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode meta %s: %w", key, err)
		}
		recs = append(recs, domain.Record{Key: key, Value: data, UpdatedAt: now})
	}
	return recs, nil
}

// softFail logs store failures. Misses are expected and not logged.
func (a *Accessor) softFail(op, key string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	a.logger.Warn("cache read failed", "op", op, "key", key, "error", err)
}
