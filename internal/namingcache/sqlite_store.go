package namingcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"flightstrip/internal/logging"
	"flightstrip/internal/naming"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older databases must be
// cleared with `flightstrip cache clear` or deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps schemes in a SQLite database. Each Store is a single
// upsert. Writers in one process share one connection; writers in other
// processes wait on busy_timeout.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	// Pragmas in the DSN run on every pooled connection, not only the first.
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}

	store := &SQLiteStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "namingcache")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Kind() string { return "sqlite" }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the scheme cached for key. Read failures are logged and
// reported as a miss.
func (s *SQLiteStore) Lookup(key string) (naming.Scheme, bool) {
	key, err := normalizeKey(key)
	if err != nil {
		return naming.Scheme{}, false
	}
	var separator, keptJSON string
	err = s.db.QueryRowContext(context.Background(),
		"SELECT separator, kept_json FROM naming_schemes WHERE block_key = ?", key,
	).Scan(&separator, &keptJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return naming.Scheme{}, false
	}
	if err != nil {
		s.warnUnreadable(err)
		return naming.Scheme{}, false
	}
	scheme, err := decodeRow(separator, keptJSON)
	if err != nil {
		s.warnUnreadable(fmt.Errorf("block %q: %w", key, err))
		return naming.Scheme{}, false
	}
	return scheme, true
}

// Store upserts the scheme for key.
func (s *SQLiteStore) Store(key string, scheme naming.Scheme) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if len(scheme.Kept) == 0 {
		return fmt.Errorf("scheme for block %q keeps no positions", key)
	}
	keptJSON, err := encodeKept(scheme.Kept)
	if err != nil {
		return err
	}
	ctx := context.Background()
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT INTO naming_schemes (block_key, separator, kept_json, cached_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(block_key) DO UPDATE SET
    separator = excluded.separator,
    kept_json = excluded.kept_json,
    cached_at = excluded.cached_at`,
			key, scheme.Separator, keptJSON, time.Now().UTC().Format(time.RFC3339Nano))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("persist naming scheme: %w", err)
	}
	s.logger.Debug("cached naming scheme",
		logging.String(logging.FieldBlock, key),
		logging.Any("kept", scheme.Positions()),
		logging.String("separator", scheme.Separator))
	return nil
}

// Remove deletes the entry for key.
func (s *SQLiteStore) Remove(key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	ctx := context.Background()
	var affected int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM naming_schemes WHERE block_key = ?", key)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("remove naming scheme: %w", err)
	}
	if affected == 0 {
		return notFound(key)
	}
	return nil
}

// Clear removes every entry.
func (s *SQLiteStore) Clear() error {
	ctx := context.Background()
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM naming_schemes")
		return err
	})
}

// List returns all entries, newest first.
func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT block_key, separator, kept_json, cached_at FROM naming_schemes ORDER BY cached_at DESC, block_key")
	if err != nil {
		return nil, fmt.Errorf("list naming schemes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var key, separator, keptJSON, cachedAt string
		if err := rows.Scan(&key, &separator, &keptJSON, &cachedAt); err != nil {
			return nil, fmt.Errorf("scan naming scheme: %w", err)
		}
		scheme, err := decodeRow(separator, keptJSON)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", key, err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, cachedAt)
		entries = append(entries, Entry{Key: key, Scheme: scheme, CachedAt: ts})
	}
	return entries, rows.Err()
}

// Count returns the number of cached blocks.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRowContext(context.Background(), "SELECT COUNT(1) FROM naming_schemes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count naming schemes: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) warnUnreadable(err error) {
	logging.WarnWithContext(s.logger, "naming cache unreadable", "naming_cache_load_failed",
		logging.Error(err),
		logging.String("path", s.path),
		logging.String(logging.FieldErrorHint, "run 'flightstrip cache clear' if the error persists"),
		logging.String(logging.FieldImpact, "the block will be analysed again"),
	)
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func encodeKept(kept map[int]int) (string, error) {
	out := make(map[string]int, len(kept))
	for p, c := range kept {
		out[strconv.Itoa(p)] = c
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal kept positions: %w", err)
	}
	return string(data), nil
}

func decodeRow(separator, keptJSON string) (naming.Scheme, error) {
	sepJSON, err := json.Marshal(separator)
	if err != nil {
		return naming.Scheme{}, err
	}
	return decodeEntry([]json.RawMessage{json.RawMessage(keptJSON), sepJSON})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
