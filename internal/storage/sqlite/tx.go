package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/issuecraft/issuecraft/internal/storage"
)

// tx is one transaction pinned to a dedicated connection. The connection
// returns to the pool on Commit or Rollback, whichever comes first.
type tx struct {
	conn     *sql.Conn
	readonly bool
	done     bool
}

var _ storage.Tx = (*tx)(nil)

// tableNames whitelists the identifiers spliced into SQL text.
var tableNames = map[storage.Table]string{
	storage.TableUsers:    "users",
	storage.TableProjects: "projects",
	storage.TableIssues:   "issues",
	storage.TableComments: "comments",
}

func (t *tx) table(tbl storage.Table) (string, error) {
	name, ok := tableNames[tbl]
	if !ok {
		return "", fmt.Errorf("unknown table %q", tbl)
	}
	return name, nil
}

func (t *tx) Get(ctx context.Context, tbl storage.Table, key string) ([]byte, error) {
	name, err := t.table(tbl)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = t.conn.QueryRowContext(ctx, "SELECT value FROM "+name+" WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, mapSQLiteErr(fmt.Errorf("failed to read %s/%s: %w", name, key, err))
	}
	return value, nil
}

func (t *tx) Put(ctx context.Context, tbl storage.Table, key string, value []byte) error {
	if t.readonly {
		return storage.ErrReadOnly
	}
	name, err := t.table(tbl)
	if err != nil {
		return err
	}
	_, err = t.conn.ExecContext(ctx,
		"INSERT INTO "+name+" (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(value))
	if err != nil {
		return mapSQLiteErr(fmt.Errorf("failed to write %s/%s: %w", name, key, err))
	}
	return nil
}

func (t *tx) Delete(ctx context.Context, tbl storage.Table, key string) error {
	if t.readonly {
		return storage.ErrReadOnly
	}
	name, err := t.table(tbl)
	if err != nil {
		return err
	}
	if _, err := t.conn.ExecContext(ctx, "DELETE FROM "+name+" WHERE key = ?", key); err != nil {
		return mapSQLiteErr(fmt.Errorf("failed to delete %s/%s: %w", name, key, err))
	}
	return nil
}

func (t *tx) Scan(ctx context.Context, tbl storage.Table) ([]storage.Entry, error) {
	name, err := t.table(tbl)
	if err != nil {
		return nil, err
	}
	rows, err := t.conn.QueryContext(ctx, "SELECT key, value FROM "+name+" ORDER BY key")
	if err != nil {
		return nil, mapSQLiteErr(fmt.Errorf("failed to scan %s: %w", name, err))
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var e storage.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", name, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteErr(fmt.Errorf("failed to scan %s: %w", name, err))
	}
	return entries, nil
}

func (t *tx) NextSeq(ctx context.Context, scope string) (int64, error) {
	if t.readonly {
		return 0, storage.ErrReadOnly
	}
	var next int64
	err := t.conn.QueryRowContext(ctx, "SELECT next_seq FROM counters WHERE scope = ?", scope).Scan(&next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		next = 1
	case err != nil:
		return 0, mapSQLiteErr(fmt.Errorf("failed to read counter %q: %w", scope, err))
	}
	_, err = t.conn.ExecContext(ctx,
		"INSERT INTO counters (scope, next_seq) VALUES (?, ?) ON CONFLICT(scope) DO UPDATE SET next_seq = excluded.next_seq",
		scope, next+1)
	if err != nil {
		return 0, mapSQLiteErr(fmt.Errorf("failed to advance counter %q: %w", scope, err))
	}
	return next, nil
}

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	defer t.conn.Close()
	if _, err := t.conn.ExecContext(context.Background(), "COMMIT"); err != nil {
		_, _ = t.conn.ExecContext(context.Background(), "ROLLBACK")
		return mapSQLiteErr(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Rollback after Commit is a no-op, so callers can defer it
// unconditionally.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Close()
	if _, err := t.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
		return mapSQLiteErr(fmt.Errorf("failed to roll back: %w", err))
	}
	return nil
}
