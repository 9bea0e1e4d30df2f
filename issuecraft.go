// Package issuecraft provides a minimal public API for embedding the
// issue tracker in other Go programs.
//
// Most uses go through the ic CLI. This package exports the entity
// types and an Open helper for programs that want to execute IQL
// statements against a store directly.
package issuecraft

import (
	"context"
	"os"
	"path/filepath"

	"github.com/issuecraft/issuecraft/internal/configfile"
	"github.com/issuecraft/issuecraft/internal/engine"
	"github.com/issuecraft/issuecraft/internal/storage/sqlite"
	"github.com/issuecraft/issuecraft/internal/types"
)

// Entity types.
type (
	// User is an account that owns projects and authors comments.
	User = types.User
	// Project groups issues under a shared identifier prefix.
	Project = types.Project
	// Issue is a unit of tracked work belonging to one project.
	Issue = types.Issue
	// Comment is an immutable remark attached to an issue.
	Comment = types.Comment
	// Priority represents issue urgency.
	Priority = types.Priority
	// Status represents the lifecycle state of an issue.
	Status = types.Status
	// Kind represents the category of an issue.
	Kind = types.Kind
	// Result is the outcome of one executed statement.
	Result = engine.Result
	// Option configures the engine handed out by Open.
	Option = engine.Option
	// IdentityProvider supplies the acting identity for statements.
	IdentityProvider = engine.IdentityProvider
	// AuthorizationProvider decides whether an identity may write.
	AuthorizationProvider = engine.AuthorizationProvider
	// StaticIdentity is an IdentityProvider with a fixed username.
	StaticIdentity = engine.StaticIdentity
)

// Status constants.
const (
	StatusOpen   = types.StatusOpen
	StatusClosed = types.StatusClosed
)

// Priority constants.
const (
	PriorityCritical = types.PriorityCritical
	PriorityHigh     = types.PriorityHigh
	PriorityMedium   = types.PriorityMedium
	PriorityLow      = types.PriorityLow
)

// Kind constants.
const (
	KindBug         = types.KindBug
	KindTask        = types.KindTask
	KindImprovement = types.KindImprovement
	KindEpic        = types.KindEpic
)

// Engine options re-exported for Open.
var (
	WithIdentity   = engine.WithIdentity
	WithAuthorizer = engine.WithAuthorizer
)

// Tracker bundles a store with its engine.
type Tracker struct {
	eng   *engine.Engine
	store *sqlite.Store
}

// Open opens or creates the database at path and returns a tracker
// ready to execute statements. The special path ":memory:" opens an
// in-memory store.
func Open(path string, opts ...Option) (*Tracker, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	return &Tracker{eng: engine.New(store, opts...), store: store}, nil
}

// Execute parses and runs one IQL statement.
func (t *Tracker) Execute(ctx context.Context, query string) (*Result, error) {
	return t.eng.Execute(ctx, query)
}

// Close releases the underlying store.
func (t *Tracker) Close() error {
	return t.store.Close()
}

// FindWorkspaceDir walks up from the working directory looking for a
// .issuecraft directory. Returns the empty string when none exists.
func FindWorkspaceDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, configfile.DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
