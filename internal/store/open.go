package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/G-grbz/monwui/internal/domain"
)

// Backend names accepted by OpenBackend.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const sqliteFileName = "monwui.sqlite"

// OpenBackend opens the named backend for serverURL under baseCacheDir.
func OpenBackend(ctx context.Context, backend, baseCacheDir, serverURL string) (domain.KVStore, error) {
	switch backend {
	case BackendBolt, "":
		return Open(baseCacheDir, serverURL, Options{})
	case BackendSQLite:
		if baseCacheDir == "" {
			return nil, errors.New("kv: cache directory is required")
		}
		return OpenSQLite(ctx, filepath.Join(ServerDir(baseCacheDir, serverURL), sqliteFileName))
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", backend)
	}
}
