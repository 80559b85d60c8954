package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/store/storetest"
)

func TestKVContractWithBolt(t *testing.T) {
	storetest.RunKVContract(t, func(tb testing.TB) domain.KVStore {
		tb.Helper()

		s, err := OpenPath(filepath.Join(tb.TempDir(), "kv.db"), Options{})
		if err != nil {
			tb.Fatalf("failed to open bolt store: %v", err)
		}
		tb.Cleanup(func() {
			_ = s.Close()
		})
		return s
	})
}

func TestKVContractWithMemory(t *testing.T) {
	storetest.RunKVContract(t, storetest.MemoryFactory(func() domain.KVStore {
		return NewMemory()
	}))
}

func TestOpenInitializesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenPath(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, currentSchemaVersion, readSchemaVersion(t, path))
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketStats)
		if err != nil {
			return err
		}
		return b.Put([]byte(keySchemaVersion), []byte(strconv.Itoa(currentSchemaVersion+1)))
	}))
	require.NoError(t, db.Close())

	_, err = OpenPath(path, Options{})
	assert.True(t, errors.Is(err, errUnknownSchema), "got %v", err)
}

func TestOpenSeparatesServers(t *testing.T) {
	base := t.TempDir()

	a, err := Open(base, "http://jellyfin.local:8096/", Options{})
	require.NoError(t, err)
	defer a.Close()

	b, err := Open(base, "http://other.local:8096", Options{})
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Path(), b.Path())
	assert.Equal(t, hashServerURL("HTTP://jellyfin.local:8096"), hashServerURL("http://jellyfin.local:8096/"))
}

func TestOpenRequiresDirectory(t *testing.T) {
	_, err := Open("", "http://jellyfin.local", Options{})
	assert.Error(t, err)
}

func TestRecordsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenPath(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, domain.NamespaceMeta, domain.Record{
		Key:       "indexer:srv|u1:movieCursor",
		Value:     json.RawMessage(`150`),
		UpdatedAt: 42,
	}))
	require.NoError(t, s.Close())

	reopened, err := OpenPath(path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, domain.NamespaceMeta, "indexer:srv|u1:movieCursor")
	require.NoError(t, err)
	assert.JSONEq(t, `150`, string(rec.Value))
	assert.Equal(t, int64(42), rec.UpdatedAt)
}

func readSchemaVersion(t *testing.T, path string) int {
	t.Helper()

	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true})
	require.NoError(t, err)
	defer db.Close()

	version := -1
	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketStats).Get([]byte(keySchemaVersion))
		version, err = strconv.Atoi(string(raw))
		return err
	}))
	return version
}
