// Package storetest holds a behavioural contract shared by every KVStore backend.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/G-grbz/monwui/internal/domain"
)

// KVFactory returns a fresh, empty store. Factories register their own cleanup.
type KVFactory func(tb testing.TB) domain.KVStore

type contractTestCase struct {
	name   string
	testFn func(t *testing.T, kv domain.KVStore)
}

// RunKVContract exercises the domain.KVStore interface against a supplied factory.
func RunKVContract(t *testing.T, factory KVFactory) {
	t.Helper()

	cases := []contractTestCase{
		{
			name: "put and get round trip",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				rec := record("srv|u1|m1", `{"name":"Alien"}`, 1000)
				if err := kv.Put(ctx, domain.NamespaceItems, rec); err != nil {
					t.Fatalf("Put returned error: %v", err)
				}

				got, err := kv.Get(ctx, domain.NamespaceItems, rec.Key)
				if err != nil {
					t.Fatalf("Get returned error: %v", err)
				}
				assertRecordEqual(t, rec, got)
			},
		},
		{
			name: "get missing returns ErrNotFound",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				_, err := kv.Get(context.Background(), domain.NamespaceMeta, "missing")
				if !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name: "namespaces are isolated",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				if err := kv.Put(ctx, domain.NamespaceItems, record("shared", `1`, 1)); err != nil {
					t.Fatalf("Put items failed: %v", err)
				}
				if err := kv.Put(ctx, domain.NamespaceMeta, record("shared", `2`, 2)); err != nil {
					t.Fatalf("Put meta failed: %v", err)
				}

				items, err := kv.Get(ctx, domain.NamespaceItems, "shared")
				if err != nil {
					t.Fatalf("Get items failed: %v", err)
				}
				meta, err := kv.Get(ctx, domain.NamespaceMeta, "shared")
				if err != nil {
					t.Fatalf("Get meta failed: %v", err)
				}
				if string(items.Value) != "1" || string(meta.Value) != "2" {
					t.Fatalf("namespaces leaked: items=%s meta=%s", items.Value, meta.Value)
				}
			},
		},
		{
			name: "unknown namespace is rejected",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				err := kv.Put(context.Background(), domain.Namespace("bogus"), record("k", `1`, 1))
				if !errors.Is(err, domain.ErrUnknownNamespace) {
					t.Fatalf("expected ErrUnknownNamespace, got %v", err)
				}
			},
		},
		{
			name: "put overwrites existing value",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				if err := kv.Put(ctx, domain.NamespaceMeta, record("cursor", `10`, 1)); err != nil {
					t.Fatalf("Put original failed: %v", err)
				}
				updated := record("cursor", `20`, 2)
				if err := kv.Put(ctx, domain.NamespaceMeta, updated); err != nil {
					t.Fatalf("Put updated failed: %v", err)
				}

				got, err := kv.Get(ctx, domain.NamespaceMeta, "cursor")
				if err != nil {
					t.Fatalf("Get returned error: %v", err)
				}
				assertRecordEqual(t, updated, got)
			},
		},
		{
			name: "batch put writes every record",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				recs := make([]domain.Record, 0, 5)
				keys := make([]string, 0, 6)
				for i := range 5 {
					key := fmt.Sprintf("k%d", i)
					recs = append(recs, record(key, fmt.Sprintf(`%d`, i), int64(i)))
					keys = append(keys, key)
				}
				keys = append(keys, "absent")

				if err := kv.BatchPut(ctx, domain.NamespaceItems, recs); err != nil {
					t.Fatalf("BatchPut returned error: %v", err)
				}

				got, err := kv.GetMany(ctx, domain.NamespaceItems, keys)
				if err != nil {
					t.Fatalf("GetMany returned error: %v", err)
				}
				if len(got) != len(recs) {
					t.Fatalf("expected %d records, got %d", len(recs), len(got))
				}
				if _, ok := got["absent"]; ok {
					t.Fatalf("GetMany returned a record for a missing key")
				}
				for _, rec := range recs {
					assertRecordEqual(t, rec, got[rec.Key])
				}
			},
		},
		{
			name: "batch put with invalid record writes nothing",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				recs := []domain.Record{
					record("good", `1`, 1),
					record("", `2`, 2),
				}
				if err := kv.BatchPut(ctx, domain.NamespaceMeta, recs); err == nil {
					t.Fatalf("expected BatchPut to reject an empty key")
				}
				if _, err := kv.Get(ctx, domain.NamespaceMeta, "good"); !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected partial batch to be discarded, got %v", err)
				}
			},
		},
		{
			name: "empty batch is a no-op",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				if err := kv.BatchPut(context.Background(), domain.NamespaceMeta, nil); err != nil {
					t.Fatalf("BatchPut(nil) returned error: %v", err)
				}
			},
		},
		{
			name: "iterate visits prefix in key order",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				recs := []domain.Record{
					record("s1|c", `3`, 3),
					record("s1|a", `1`, 1),
					record("s2|a", `9`, 9),
					record("s1|b", `2`, 2),
					record("s1", `0`, 0),
				}
				if err := kv.BatchPut(ctx, domain.NamespaceItems, recs); err != nil {
					t.Fatalf("BatchPut returned error: %v", err)
				}

				var keys []string
				err := kv.Iterate(ctx, domain.NamespaceItems, "s1|", func(rec domain.Record) error {
					keys = append(keys, rec.Key)
					return nil
				})
				if err != nil {
					t.Fatalf("Iterate returned error: %v", err)
				}
				want := []string{"s1|a", "s1|b", "s1|c"}
				if fmt.Sprint(keys) != fmt.Sprint(want) {
					t.Fatalf("expected keys %v, got %v", want, keys)
				}
			},
		},
		{
			name: "iterate stops on callback error",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				for i := range 3 {
					if err := kv.Put(ctx, domain.NamespaceMeta, record(fmt.Sprintf("p:%d", i), `1`, 1)); err != nil {
						t.Fatalf("Put failed: %v", err)
					}
				}

				stop := errors.New("stop")
				visited := 0
				err := kv.Iterate(ctx, domain.NamespaceMeta, "p:", func(domain.Record) error {
					visited++
					return stop
				})
				if !errors.Is(err, stop) {
					t.Fatalf("expected callback error, got %v", err)
				}
				if visited != 1 {
					t.Fatalf("expected iteration to stop after 1 record, visited %d", visited)
				}
			},
		},
		{
			name: "iterate callback may write",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				if err := kv.Put(ctx, domain.NamespaceItems, record("old|1", `1`, 1)); err != nil {
					t.Fatalf("Put failed: %v", err)
				}
				err := kv.Iterate(ctx, domain.NamespaceItems, "old|", func(rec domain.Record) error {
					return kv.Delete(ctx, domain.NamespaceItems, []string{rec.Key})
				})
				if err != nil {
					t.Fatalf("Iterate returned error: %v", err)
				}
				if _, err := kv.Get(ctx, domain.NamespaceItems, "old|1"); !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected record deleted during iteration, got %v", err)
				}
			},
		},
		{
			name: "delete removes keys and ignores missing",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx := context.Background()
				if err := kv.BatchPut(ctx, domain.NamespaceMeta, []domain.Record{
					record("a", `1`, 1),
					record("b", `2`, 2),
				}); err != nil {
					t.Fatalf("BatchPut failed: %v", err)
				}
				if err := kv.Delete(ctx, domain.NamespaceMeta, []string{"a", "missing"}); err != nil {
					t.Fatalf("Delete returned error: %v", err)
				}
				if _, err := kv.Get(ctx, domain.NamespaceMeta, "a"); !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected a deleted, got %v", err)
				}
				if _, err := kv.Get(ctx, domain.NamespaceMeta, "b"); err != nil {
					t.Fatalf("expected b to survive, got %v", err)
				}
			},
		},
		{
			name: "cancelled context is honoured",
			testFn: func(t *testing.T, kv domain.KVStore) {
				t.Helper()

				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				if err := kv.Put(ctx, domain.NamespaceMeta, record("k", `1`, 1)); err == nil {
					t.Fatalf("expected Put with cancelled context to fail")
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kv := factory(t)
			tc.testFn(t, kv)
		})
	}
}

// MemoryFactory is a factory for callers that only need a working store.
func MemoryFactory(newStore func() domain.KVStore) KVFactory {
	return func(tb testing.TB) domain.KVStore {
		tb.Helper()

		kv := newStore()
		tb.Cleanup(func() {
			_ = kv.Close()
		})
		return kv
	}
}

func record(key, value string, updatedAt int64) domain.Record {
	return domain.Record{Key: key, Value: json.RawMessage(value), UpdatedAt: updatedAt}
}

func assertRecordEqual(t *testing.T, expected, actual domain.Record) {
	t.Helper()

	if expected.Key != actual.Key {
		t.Fatalf("key mismatch: expected %q, got %q", expected.Key, actual.Key)
	}
	if string(expected.Value) != string(actual.Value) {
		t.Fatalf("value mismatch for %q: expected %s, got %s", expected.Key, expected.Value, actual.Value)
	}
	if expected.UpdatedAt != actual.UpdatedAt {
		t.Fatalf("updatedAt mismatch for %q: expected %d, got %d", expected.Key, expected.UpdatedAt, actual.UpdatedAt)
	}
}
