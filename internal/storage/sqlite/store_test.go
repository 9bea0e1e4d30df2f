package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaultUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	defer tx.Rollback()

	value, err := tx.Get(ctx, storage.TableUsers, types.DefaultUsername)
	if err != nil {
		t.Fatalf("Get(default) failed: %v", err)
	}
	var user types.User
	if err := json.Unmarshal(value, &user); err != nil {
		t.Fatalf("failed to decode default user: %v", err)
	}
	if user.Username != types.DefaultUsername || user.DisplayName != types.DefaultDisplayName {
		t.Errorf("default user = %+v; want username %q, name %q",
			user, types.DefaultUsername, types.DefaultDisplayName)
	}
}

func TestReopenDoesNotReseed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Overwrite the seeded user, then reopen; the edit must survive.
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	edited, _ := json.Marshal(types.User{Username: types.DefaultUsername, DisplayName: "Renamed"})
	if err := tx.Put(ctx, storage.TableUsers, types.DefaultUsername, edited); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	tx, err = s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	defer tx.Rollback()
	value, err := tx.Get(ctx, storage.TableUsers, types.DefaultUsername)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var user types.User
	if err := json.Unmarshal(value, &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.DisplayName != "Renamed" {
		t.Errorf("display name = %q; want %q (reseed clobbered the edit)", user.DisplayName, "Renamed")
	}
}

func TestPutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Put(ctx, storage.TableProjects, "webapp", []byte(`{"project_id":"webapp"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := tx.Get(ctx, storage.TableProjects, "webapp")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"project_id":"webapp"}` {
		t.Errorf("Get = %s; want the stored value", got)
	}
	if err := tx.Delete(ctx, storage.TableProjects, "webapp"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := tx.Get(ctx, storage.TableProjects, "webapp"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after Delete err = %v; want ErrNotFound", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Put(ctx, storage.TableIssues, "webapp#1", []byte(`{}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	view, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	defer view.Rollback()
	if _, err := view.Get(ctx, storage.TableIssues, "webapp#1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after rollback err = %v; want ErrNotFound", err)
	}
}

func TestScanOrdersByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, key := range []string{"webapp#3", "webapp#1", "api#2"} {
		if err := tx.Put(ctx, storage.TableIssues, key, []byte(`{}`)); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}
	entries, err := tx.Scan(ctx, storage.TableIssues)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []string{"api#2", "webapp#1", "webapp#3"}
	if len(entries) != len(want) {
		t.Fatalf("Scan returned %d entries; want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Key != want[i] {
			t.Errorf("entries[%d].Key = %q; want %q", i, e.Key, want[i])
		}
	}
	tx.Rollback()
}

func TestNextSeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Counters start at 1 and are independent per scope.
	for want := int64(1); want <= 3; want++ {
		got, err := tx.NextSeq(ctx, "webapp")
		if err != nil {
			t.Fatalf("NextSeq failed: %v", err)
		}
		if got != want {
			t.Errorf("NextSeq(webapp) = %d; want %d", got, want)
		}
	}
	got, err := tx.NextSeq(ctx, "api")
	if err != nil {
		t.Fatalf("NextSeq failed: %v", err)
	}
	if got != 1 {
		t.Errorf("NextSeq(api) = %d; want 1", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestNextSeqRollbackDoesNotConsume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.NextSeq(ctx, "webapp"); err != nil {
		t.Fatalf("NextSeq failed: %v", err)
	}
	tx.Rollback()

	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	got, err := tx.NextSeq(ctx, "webapp")
	if err != nil {
		t.Fatalf("NextSeq failed: %v", err)
	}
	if got != 1 {
		t.Errorf("NextSeq after rollback = %d; want 1 (rolled-back allocation leaked)", got)
	}
}

func TestReadOnlyTransactionRejectsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	defer tx.Rollback()

	if err := tx.Put(ctx, storage.TableUsers, "x", []byte(`{}`)); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("Put in view err = %v; want ErrReadOnly", err)
	}
	if err := tx.Delete(ctx, storage.TableUsers, "x"); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("Delete in view err = %v; want ErrReadOnly", err)
	}
	if _, err := tx.NextSeq(ctx, "s"); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("NextSeq in view err = %v; want ErrReadOnly", err)
	}
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Put(ctx, storage.TableComments, "C1", []byte(`{"comment_id":"C1"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	tx2, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	defer tx2.Rollback()
	got, err := tx2.Get(ctx, storage.TableComments, "C1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `{"comment_id":"C1"}` {
		t.Errorf("Get = %s; want the committed value", got)
	}
}

func TestConcurrentWritersConflict(t *testing.T) {
	// A short busy_timeout keeps the second writer from blocking for the
	// default 30 seconds.
	uri := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(50)&_time_format=sqlite"
	ctx := context.Background()

	s1, err := Open(uri)
	if err != nil {
		t.Fatalf("Open first store failed: %v", err)
	}
	defer s1.Close()
	s2, err := Open(uri)
	if err != nil {
		t.Fatalf("Open second store failed: %v", err)
	}
	defer s2.Close()

	tx1, err := s1.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin first writer failed: %v", err)
	}
	defer tx1.Rollback()
	if err := tx1.Put(ctx, storage.TableUsers, "alice", []byte(`{"username":"alice"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// The first writer holds the write lock, so a second write
	// transaction must surface a conflict instead of partially applying.
	if _, err := s2.Begin(ctx); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("Begin second writer err = %v; want ErrConflict", err)
	}

	if err := tx1.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// The lock is released on commit; the second writer proceeds.
	tx2, err := s2.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin after commit failed: %v", err)
	}
	defer tx2.Rollback()
	if _, err := tx2.Get(ctx, storage.TableUsers, "alice"); err != nil {
		t.Errorf("Get(alice) after conflict resolution failed: %v", err)
	}
}
