package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/store/storetest"
)

func TestKVContractWithSQLite(t *testing.T) {
	storetest.RunKVContract(t, func(tb testing.TB) domain.KVStore {
		tb.Helper()

		s, err := OpenSQLite(context.Background(), filepath.Join(tb.TempDir(), "kv.sqlite"))
		if err != nil {
			tb.Fatalf("failed to open sqlite store: %v", err)
		}
		tb.Cleanup(func() {
			_ = s.Close()
		})
		return s
	})
}

func TestSQLiteGetManyChunksLargeKeySets(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.sqlite"))
	require.NoError(t, err)
	defer s.Close()

	recs := make([]domain.Record, 0, 1200)
	keys := make([]string, 0, 1200)
	for i := range 1200 {
		key := fmt.Sprintf("srv|u|%04d", i)
		recs = append(recs, domain.Record{Key: key, Value: json.RawMessage(`{}`), UpdatedAt: int64(i)})
		keys = append(keys, key)
	}
	require.NoError(t, s.BatchPut(ctx, domain.NamespaceItems, recs))

	got, err := s.GetMany(ctx, domain.NamespaceItems, keys)
	require.NoError(t, err)
	assert.Len(t, got, 1200)
	assert.Equal(t, int64(1199), got["srv|u|1199"].UpdatedAt)
}

func TestSQLiteIterateTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.sqlite"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BatchPut(ctx, domain.NamespaceMeta, []domain.Record{
		{Key: "a%b", Value: json.RawMessage(`1`)},
		{Key: "axb", Value: json.RawMessage(`2`)},
	}))

	var keys []string
	require.NoError(t, s.Iterate(ctx, domain.NamespaceMeta, "a%", func(rec domain.Record) error {
		keys = append(keys, rec.Key)
		return nil
	}))
	assert.Equal(t, []string{"a%b"}, keys)
}
