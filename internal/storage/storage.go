// Package storage defines the transactional key-value interface the
// execution engine runs against. Entities are stored as JSON values under
// string keys, one table per entity family, with named counters for
// sequence allocation.
package storage

import (
	"context"
	"errors"
)

// Table names one of the entity tables.
type Table string

// Entity tables.
const (
	TableUsers    Table = "users"
	TableProjects Table = "projects"
	TableIssues   Table = "issues"
	TableComments Table = "comments"
)

// Counter scopes. Per-project issue counters use the project ID as scope.
const (
	CounterComments = "comments"
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrConflict reports a transaction that lost a locking race and can
	// be retried.
	ErrConflict = errors.New("storage: transaction conflict")
	// ErrReadOnly reports a write attempted inside a read-only transaction.
	ErrReadOnly = errors.New("storage: transaction is read-only")
)

// Entry is one key-value pair returned by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Store hands out transactions. A write transaction holds the store's
// write lock until Commit or Rollback; read transactions run concurrently.
type Store interface {
	// Begin starts a read-write transaction.
	Begin(ctx context.Context) (Tx, error)
	// View starts a read-only transaction.
	View(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a single transaction. Every statement executes inside exactly one
// transaction; partial effects never become visible.
type Tx interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, table Table, key string) ([]byte, error)
	// Put stores value under key, replacing any existing value.
	Put(ctx context.Context, table Table, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, table Table, key string) error
	// Scan returns every entry of table in ascending key order.
	Scan(ctx context.Context, table Table) ([]Entry, error)
	// NextSeq allocates the next value of the named counter, starting
	// at 1. Allocation is transactional: a rolled-back transaction does
	// not consume numbers.
	NextSeq(ctx context.Context, scope string) (int64, error)
	Commit() error
	Rollback() error
}
