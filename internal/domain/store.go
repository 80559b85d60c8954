package domain

import (
	"context"
	"encoding/json"
)

// Namespace is a logical partition of the KV store.
type Namespace string

const (
	// NamespaceItems holds scope-qualified entity records keyed "scope|id".
	NamespaceItems Namespace = "items"
	// NamespaceMeta holds arbitrary named values (cursors, seen sets, id lists).
	NamespaceMeta Namespace = "meta"
)

// Namespaces lists every namespace a store must provide.
var Namespaces = []Namespace{NamespaceItems, NamespaceMeta}

// Record is a single stored value.
type Record struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt int64           `json:"updatedAt"`
}

// KVStore is the durable, transactional storage under the cache.
// Every call runs in its own transaction scoped to one namespace.
// BatchPut and Delete are all-or-nothing.
type KVStore interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, ns Namespace, key string) (Record, error)

	// GetMany reads all keys in one transaction. Missing keys are omitted.
	GetMany(ctx context.Context, ns Namespace, keys []string) (map[string]Record, error)

	Put(ctx context.Context, ns Namespace, rec Record) error
	BatchPut(ctx context.Context, ns Namespace, recs []Record) error

	// Iterate visits records whose key starts with prefix, in key order.
	// Returning an error from fn stops iteration and is returned.
	Iterate(ctx context.Context, ns Namespace, prefix string, fn func(Record) error) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, ns Namespace, keys []string) error

	Close() error
}
