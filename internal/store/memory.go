package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/G-grbz/monwui/internal/domain"
)

// MemoryStore is a non-persistent domain.KVStore. Writes are atomic under a
// single lock, so batches are all-or-nothing like the durable backends.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[domain.Namespace]map[string]domain.Record
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	buckets := make(map[domain.Namespace]map[string]domain.Record, len(domain.Namespaces))
	for _, ns := range domain.Namespaces {
		buckets[ns] = make(map[string]domain.Record)
	}
	return &MemoryStore{buckets: buckets}
}

var errClosed = errors.New("kv: store is closed")

func (m *MemoryStore) bucket(ns domain.Namespace) (map[string]domain.Record, error) {
	if m.closed {
		return nil, errClosed
	}
	b, ok := m.buckets[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}
	return b, nil
}

func (m *MemoryStore) Get(ctx context.Context, ns domain.Namespace, key string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, err := m.bucket(ns)
	if err != nil {
		return domain.Record{}, err
	}
	rec, ok := b[key]
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) GetMany(ctx context.Context, ns domain.Namespace, keys []string) (map[string]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, err := m.bucket(ns)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Record, len(keys))
	for _, key := range keys {
		if rec, ok := b[key]; ok {
			out[key] = cloneRecord(rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Put(ctx context.Context, ns domain.Namespace, rec domain.Record) error {
	return m.BatchPut(ctx, ns, []domain.Record{rec})
}

func (m *MemoryStore) BatchPut(ctx context.Context, ns domain.Namespace, recs []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.Key == "" {
			return errors.New("kv: key must not be empty")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.bucket(ns)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		b[rec.Key] = cloneRecord(rec)
	}
	return nil
}

func (m *MemoryStore) Iterate(ctx context.Context, ns domain.Namespace, prefix string, fn func(domain.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	b, err := m.bucket(ns)
	if err != nil {
		m.mu.RUnlock()
		return err
	}
	recs := make([]domain.Record, 0)
	for key, rec := range b {
		if strings.HasPrefix(key, prefix) {
			recs = append(recs, cloneRecord(rec))
		}
	}
	m.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, ns domain.Namespace, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.bucket(ns)
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(b, key)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneRecord(rec domain.Record) domain.Record {
	clone := rec
	if rec.Value != nil {
		clone.Value = append([]byte(nil), rec.Value...)
	}
	return clone
}
