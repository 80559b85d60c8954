package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/G-grbz/monwui/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	currentSchemaVersion = 1

	dbFileName       = "monwui.db"
	keySchemaVersion = "schema_version"
)

// Bucket names
var (
	bucketItems = []byte(domain.NamespaceItems)
	bucketMeta  = []byte(domain.NamespaceMeta)
	bucketStats = []byte("stats")
)

var errUnknownSchema = errors.New("kv: unknown schema version")

// Options configures Open behaviour.
type Options struct {
	// Timeout bounds how long Open waits for the file lock. Zero means 1s.
	Timeout time.Duration
}

// BoltStore implements domain.KVStore using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Open opens (or creates) the store for serverURL under baseCacheDir.
// Each server gets its own directory so caches never mix across servers.
func Open(baseCacheDir, serverURL string, opts Options) (*BoltStore, error) {
	if baseCacheDir == "" {
		return nil, errors.New("kv: cache directory is required")
	}

	return OpenPath(filepath.Join(ServerDir(baseCacheDir, serverURL), dbFileName), opts)
}

// ServerDir returns the per-server directory under baseCacheDir.
func ServerDir(baseCacheDir, serverURL string) string {
	if serverURL == "" {
		return baseCacheDir
	}
	return filepath.Join(baseCacheDir, hashServerURL(serverURL))
}

// OpenPath opens the store at an explicit file path.
func OpenPath(path string, opts Options) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltStore{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ensureSchema creates missing buckets and applies additive migrations.
// A file written by a newer schema is refused rather than rewritten.
func (s *BoltStore) ensureSchema() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		stats, err := tx.CreateBucketIfNotExists(bucketStats)
		if err != nil {
			return fmt.Errorf("ensure stats bucket: %w", err)
		}

		version := 0
		if raw := stats.Get([]byte(keySchemaVersion)); len(raw) > 0 {
			version, err = strconv.Atoi(string(raw))
			if err != nil {
				return fmt.Errorf("parse schema version: %w", err)
			}
		}
		if version > currentSchemaVersion {
			return fmt.Errorf("%w: %d", errUnknownSchema, version)
		}
		if err := migrate(tx, version, currentSchemaVersion); err != nil {
			return err
		}
		return stats.Put([]byte(keySchemaVersion), []byte(strconv.Itoa(currentSchemaVersion)))
	})
}

// migrate only ever adds buckets; existing data is left untouched.
func migrate(tx *bolt.Tx, from, to int) error {
	for version := from; version < to; version++ {
		switch version {
		case 0:
			for _, bucket := range [][]byte{bucketItems, bucketMeta} {
				if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
					return fmt.Errorf("migrate v0 %s: %w", bucket, err)
				}
			}
		default:
			return fmt.Errorf("%w: %d", errUnknownSchema, version)
		}
	}
	return nil
}

func bucketFor(tx *bolt.Tx, ns domain.Namespace) (*bolt.Bucket, error) {
	switch ns {
	case domain.NamespaceItems, domain.NamespaceMeta:
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}
	b := tx.Bucket([]byte(ns))
	if b == nil {
		return nil, fmt.Errorf("missing bucket %s", ns)
	}
	return b, nil
}

// === domain.KVStore ===

func (s *BoltStore) Get(ctx context.Context, ns domain.Namespace, key string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}

	var rec domain.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, ns)
		if err != nil {
			return err
		}
		v := b.Get([]byte(key))
		if v == nil {
			return domain.ErrNotFound
		}
		rec, err = decodeRecord(v)
		return err
	})
	return rec, err
}

func (s *BoltStore) GetMany(ctx context.Context, ns domain.Namespace, keys []string) (map[string]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Record, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, ns)
		if err != nil {
			return err
		}
		for _, key := range keys {
			v := b.Get([]byte(key))
			if v == nil {
				continue
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			out[key] = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Put(ctx context.Context, ns domain.Namespace, rec domain.Record) error {
	return s.BatchPut(ctx, ns, []domain.Record{rec})
}

func (s *BoltStore) BatchPut(ctx context.Context, ns domain.Namespace, recs []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	// Encode outside the write lock; a bad record fails the whole batch.
	encoded := make([][]byte, len(recs))
	for i, rec := range recs {
		if rec.Key == "" {
			return errors.New("kv: key must not be empty")
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.Key, err)
		}
		encoded[i] = data
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, ns)
		if err != nil {
			return err
		}
		for i, rec := range recs {
			if err := b.Put([]byte(rec.Key), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Iterate(ctx context.Context, ns domain.Namespace, prefix string, fn func(domain.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Collect first so fn may write to the store without holding a read tx.
	var recs []domain.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, ns)
		if err != nil {
			return err
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, v := c.Seek(prefixBytes); k != nil && bytes.HasPrefix(k, prefixBytes); k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, ns domain.Namespace, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, ns)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeRecord(data []byte) (domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
