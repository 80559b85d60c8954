package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/domain"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    any
	}{
		{backend: BackendBolt, want: &BoltStore{}},
		{backend: "", want: &BoltStore{}},
		{backend: BackendSQLite, want: &SQLiteStore{}},
		{backend: BackendMemory, want: &MemoryStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			kv, err := OpenBackend(ctx, tt.backend, filepath.Join(dir, tt.backend), "http://jf.local")
			require.NoError(t, err)
			t.Cleanup(func() { _ = kv.Close() })

			assert.IsType(t, tt.want, kv)
			require.NoError(t, kv.Put(ctx, domain.NamespaceMeta, domain.Record{Key: "k", Value: []byte(`1`)}))
		})
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	_, err := OpenBackend(context.Background(), "redis", t.TempDir(), "")
	assert.ErrorContains(t, err, "redis")
}

func TestServerDir(t *testing.T) {
	assert.Equal(t, "/c", ServerDir("/c", ""))
	assert.Equal(t, ServerDir("/c", "HTTP://JF/"), ServerDir("/c", "http://jf"))
	assert.NotEqual(t, ServerDir("/c", "http://a"), ServerDir("/c", "http://b"))
}
