package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/G-grbz/monwui/internal/domain"
)

const sqlitePingTimeout = 5 * time.Second

// SQLiteStore implements domain.KVStore on a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a sqlite-backed store at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, sqlitePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer keeps batches serialized without "database is locked" retries.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		ns TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (ns, key)
	);

	CREATE INDEX IF NOT EXISTS idx_kv_updated_at ON kv(ns, updated_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkNamespace(ns domain.Namespace) error {
	switch ns {
	case domain.NamespaceItems, domain.NamespaceMeta:
		return nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}
}

func (s *SQLiteStore) Get(ctx context.Context, ns domain.Namespace, key string) (domain.Record, error) {
	if err := checkNamespace(ns); err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{Key: key}
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM kv WHERE ns = ? AND key = ?`, string(ns), key,
	).Scan(&value, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, err
	}
	rec.Value = value
	return rec, nil
}

func (s *SQLiteStore) GetMany(ctx context.Context, ns domain.Namespace, keys []string) (map[string]domain.Record, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// sqlite caps host parameters; chunk well below the limit.
	const chunk = 500
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		part := keys[start:end]

		args := make([]any, 0, len(part)+1)
		args = append(args, string(ns))
		for _, k := range part {
			args = append(args, k)
		}
		query := `SELECT key, value, updated_at FROM kv WHERE ns = ? AND key IN (?` +
			strings.Repeat(",?", len(part)-1) + `)`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var rec domain.Record
			var value []byte
			if err := rows.Scan(&rec.Key, &value, &rec.UpdatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			rec.Value = value
			out[rec.Key] = rec
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, tx.Commit()
}

func (s *SQLiteStore) Put(ctx context.Context, ns domain.Namespace, rec domain.Record) error {
	return s.BatchPut(ctx, ns, []domain.Record{rec})
}

func (s *SQLiteStore) BatchPut(ctx context.Context, ns domain.Namespace, recs []domain.Record) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	for _, rec := range recs {
		if rec.Key == "" {
			return errors.New("kv: key must not be empty")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (ns, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(ns, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		value := []byte(rec.Value)
		if value == nil {
			value = []byte("null")
		}
		if _, err := stmt.ExecContext(ctx, string(ns), rec.Key, value, rec.UpdatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", rec.Key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Iterate(ctx context.Context, ns domain.Namespace, prefix string, fn func(domain.Record) error) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}

	// Range scan on the primary key instead of LIKE so '%' and '_' in keys are literal.
	query := `SELECT key, value, updated_at FROM kv WHERE ns = ? AND key >= ? ORDER BY key`
	rows, err := s.db.QueryContext(ctx, query, string(ns), prefix)
	if err != nil {
		return err
	}

	var recs []domain.Record
	for rows.Next() {
		var rec domain.Record
		var value []byte
		if err := rows.Scan(&rec.Key, &value, &rec.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		if !strings.HasPrefix(rec.Key, prefix) {
			break
		}
		rec.Value = value
		recs = append(recs, rec)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ns domain.Namespace, keys []string) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE ns = ? AND key = ?`, string(ns), key); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
