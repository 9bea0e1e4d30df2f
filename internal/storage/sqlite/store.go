// Package sqlite implements the storage interface on SQLite, using the
// WASM-compiled ncruces driver so the binary stays pure Go.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
)

// Store is a SQLite-backed storage.Store.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

var _ storage.Store = (*Store)(nil)

// setupWASMCache configures WASM compilation caching so the embedded
// SQLite build is JIT-compiled once per machine instead of once per
// process start. Falls back to an in-memory cache if the user cache
// directory is unavailable.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		if c, err := wazero.NewCompilationCacheWithDir(filepath.Join(userCache, "issuecraft", "wasm")); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// Open opens or creates the database at path and ensures the schema and
// the seeded default user exist. The special path ":memory:" opens a
// process-shared in-memory database.
func Open(path string) (*Store, error) {
	var connStr string
	switch {
	case path == ":memory:":
		// WAL does not work for shared in-memory databases, use DELETE.
		// The name is required for cache=shared to span connections.
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=busy_timeout") {
			connStr += "&_pragma=busy_timeout(30000)&_time_format=sqlite"
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases are isolated per connection by default; force a
	// single pooled connection so every transaction sees the same data.
	if path == ":memory:" || (strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory")) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.seedDefaultUser(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// seedDefaultUser creates the built-in default user on first open. The
// check and the insert share one write transaction so concurrent opens
// cannot double-seed.
func (s *Store) seedDefaultUser(ctx context.Context) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Presence of the default user stands in for table emptiness: it is
	// written before any other user and can never be deleted.
	if _, err := tx.Get(ctx, storage.TableUsers, types.DefaultUsername); err == nil {
		return tx.Rollback()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	value, err := json.Marshal(types.User{
		Username:    types.DefaultUsername,
		DisplayName: types.DefaultDisplayName,
	})
	if err != nil {
		return fmt.Errorf("failed to encode default user: %w", err)
	}
	if err := tx.Put(ctx, storage.TableUsers, types.DefaultUsername, value); err != nil {
		return err
	}
	return tx.Commit()
}

// Begin starts a read-write transaction on a dedicated connection.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	return s.begin(ctx, false)
}

// View starts a read-only transaction.
func (s *Store) View(ctx context.Context) (storage.Tx, error) {
	return s.begin(ctx, true)
}

func (s *Store) begin(ctx context.Context, readonly bool) (storage.Tx, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("store is closed")
	}

	// A dedicated connection is required: BEGIN IMMEDIATE and COMMIT are
	// raw statements, and the database/sql pool would otherwise route
	// them to different connections. BeginTx cannot be used because it
	// only issues DEFERRED transactions.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	mode := "BEGIN IMMEDIATE"
	if readonly {
		mode = "BEGIN"
	}
	if _, err := conn.ExecContext(ctx, mode); err != nil {
		conn.Close()
		return nil, mapSQLiteErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	return &tx{conn: conn, readonly: readonly}, nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// mapSQLiteErr folds locking failures into storage.ErrConflict so callers
// can retry without knowing the backend.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.BUSY, sqlite3.LOCKED:
			return fmt.Errorf("%w: %v", storage.ErrConflict, err)
		}
	}
	return err
}
