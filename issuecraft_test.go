package issuecraft

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenExecuteRoundTrip(t *testing.T) {
	tracker, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer tracker.Close()

	ctx := context.Background()
	if _, err := tracker.Execute(ctx, "CREATE PROJECT demo WITH NAME 'Demo'"); err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	res, err := tracker.Execute(ctx, "CREATE ISSUE OF KIND bug IN demo WITH TITLE 'It broke'")
	if err != nil {
		t.Fatalf("create issue failed: %v", err)
	}
	if res.Key != "demo#1" {
		t.Errorf("issue key = %q; want demo#1", res.Key)
	}

	res, err = tracker.Execute(ctx, "SELECT issue_id, kind, status FROM issues")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(res.Rows))
	}
	want := []string{"demo#1", "bug", "open"}
	for i, cell := range res.Rows[0] {
		if cell != want[i] {
			t.Errorf("row[%d] = %q; want %q", i, cell, want[i])
		}
	}
}

func TestOpenWithIdentity(t *testing.T) {
	tracker, err := Open(filepath.Join(t.TempDir(), "test.db"), WithIdentity(StaticIdentity("alice")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer tracker.Close()

	ctx := context.Background()
	if _, err := tracker.Execute(ctx, "CREATE USER alice"); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if _, err := tracker.Execute(ctx, "CREATE PROJECT p"); err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	res, err := tracker.Execute(ctx, "SELECT owner FROM projects")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if res.Rows[0][0] != "alice" {
		t.Errorf("owner = %q; want alice", res.Rows[0][0])
	}
}
