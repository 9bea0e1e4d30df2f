package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/storage/sqlite"
	"github.com/issuecraft/issuecraft/internal/types"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, opts...)
}

func exec(t *testing.T, e *Engine, query string) *Result {
	t.Helper()
	res, err := e.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute(%q) failed: %v", query, err)
	}
	return res
}

func execErr(t *testing.T, e *Engine, query string) error {
	t.Helper()
	_, err := e.Execute(context.Background(), query)
	if err == nil {
		t.Fatalf("Execute(%q) succeeded; want error", query)
	}
	return err
}

func seedProject(t *testing.T, e *Engine) {
	t.Helper()
	exec(t, e, "CREATE USER alice WITH EMAIL 'alice@example.com'")
	exec(t, e, "CREATE PROJECT webapp WITH NAME 'Web App' OWNER alice")
}

func TestFreshStoreHasDefaultUser(t *testing.T) {
	e := newTestEngine(t)
	res := exec(t, e, "SELECT username, name FROM users")
	want := [][]string{{"default", "Default User"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUserRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	res := exec(t, e, "CREATE USER alice WITH EMAIL 'alice@example.com' NAME 'Alice A'")
	if res.Key != "alice" || res.Affected != 1 {
		t.Errorf("result = %+v; want key alice, affected 1", res)
	}

	res = exec(t, e, "SELECT username, name, email FROM users WHERE username = alice")
	want := [][]string{{"alice", "Alice A", "alice@example.com"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)

	for _, query := range []string{"CREATE USER alice", "CREATE PROJECT webapp"} {
		err := execErr(t, e, query)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Kind != DuplicateKey {
			t.Errorf("Execute(%q) err = %v; want DuplicateKey validation error", query, err)
		}
	}
}

func TestIssueSequencePerProject(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE PROJECT api WITH OWNER alice")

	wantIDs := []string{"webapp#1", "webapp#2", "api#1", "webapp#3"}
	queries := []string{
		"CREATE ISSUE IN webapp WITH TITLE 'one'",
		"CREATE ISSUE IN webapp WITH TITLE 'two'",
		"CREATE ISSUE IN api WITH TITLE 'other project'",
		"CREATE ISSUE IN webapp WITH TITLE 'three'",
	}
	for i, query := range queries {
		res := exec(t, e, query)
		if res.Key != wantIDs[i] {
			t.Errorf("Execute(%q) key = %q; want %q", query, res.Key, wantIDs[i])
		}
	}
}

func TestFailedStatementConsumesNoSequence(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)

	// The assignee check fails after the project check; the rolled-back
	// transaction must not burn a sequence number.
	execErr(t, e, "CREATE ISSUE IN webapp WITH TITLE 'bad' ASSIGNEE ghost")
	res := exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'good'")
	if res.Key != "webapp#1" {
		t.Errorf("issue ID = %q; want webapp#1 (failed create consumed a sequence number)", res.Key)
	}
}

func TestCreateIssueDefaults(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Defaults'")

	res := exec(t, e, "SELECT issue_id, kind, title, status FROM issues")
	want := [][]string{{"webapp#1", "task", "Defaults", "open"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelsFormASet(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'x' LABELS ['backend', 'auth', 'backend']")

	res := exec(t, e, "SELECT labels FROM issues")
	if diff := cmp.Diff([][]string{{"backend,auth"}}, res.Rows); diff != "" {
		t.Errorf("labels after create (-want +got):\n%s", diff)
	}

	exec(t, e, "UPDATE ISSUE webapp#1 SET labels = 'ui, ui, infra'")
	res = exec(t, e, "SELECT labels FROM issues")
	if diff := cmp.Diff([][]string{{"ui,infra"}}, res.Rows); diff != "" {
		t.Errorf("labels after update (-want +got):\n%s", diff)
	}
}

func TestCreateIssueAssigneeDefaultsToActingIdentity(t *testing.T) {
	e := newTestEngine(t, WithIdentity(StaticIdentity("alice")))
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'no assignee given'")

	res := exec(t, e, "SELECT assignee FROM issues")
	if diff := cmp.Diff([][]string{{"alice"}}, res.Rows); diff != "" {
		t.Errorf("assignee (-want +got):\n%s", diff)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)

	tests := []struct {
		name  string
		query string
		kind  ValidationKind
	}{
		{"unknown project", "CREATE ISSUE IN ghost WITH TITLE 'x'", UnknownReference},
		{"unknown assignee", "CREATE ISSUE IN webapp WITH TITLE 'x' ASSIGNEE ghost", UnknownReference},
		{"illegal priority", "CREATE ISSUE IN webapp WITH TITLE 'x' PRIORITY urgent", IllegalEnumValue},
		{"illegal kind", "CREATE ISSUE OF KIND story IN webapp WITH TITLE 'x'", IllegalEnumValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execErr(t, e, tt.query)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Kind != tt.kind {
				t.Errorf("err = %v; want validation kind %d", err, tt.kind)
			}
		})
	}
}

func TestSelectWhere(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Login fails' PRIORITY critical LABELS ['backend', 'auth']")
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Slow page' PRIORITY low LABELS ['frontend']")
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Refactor' DESCRIPTION 'split the handler' ASSIGNEE alice")
	exec(t, e, "CLOSE ISSUE webapp#2")

	tests := []struct {
		name  string
		query string
		want  []string // expected issue_id values in order
	}{
		{"status", "SELECT issue_id FROM issues WHERE status = 'open'", []string{"webapp#1", "webapp#3"}},
		{"priority rank", "SELECT issue_id FROM issues WHERE priority > low", []string{"webapp#1"}},
		{"label membership", "SELECT issue_id FROM issues WHERE labels = 'auth'", []string{"webapp#1"}},
		{"is null", "SELECT issue_id FROM issues WHERE description IS NULL", []string{"webapp#1", "webapp#2"}},
		{"is not null", "SELECT issue_id FROM issues WHERE description IS NOT NULL", []string{"webapp#3"}},
		{"assignee equality", "SELECT issue_id FROM issues WHERE assignee = alice", []string{"webapp#3"}},
		{"in list", "SELECT issue_id FROM issues WHERE priority IN (critical, high)", []string{"webapp#1"}},
		{"like", "SELECT issue_id FROM issues WHERE title LIKE '%page%'", []string{"webapp#2"}},
		{"not", "SELECT issue_id FROM issues WHERE NOT status = 'closed'", []string{"webapp#1", "webapp#3"}},
		{"and or", "SELECT issue_id FROM issues WHERE status = 'closed' OR labels = 'backend' AND priority = critical", []string{"webapp#1", "webapp#2"}},
		{"null never matches comparison", "SELECT issue_id FROM issues WHERE priority = critical OR priority != critical", []string{"webapp#1", "webapp#2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec(t, e, tt.query)
			var got []string
			for _, row := range res.Rows {
				got = append(got, row[0])
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Execute(%q) rows mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestSelectUnknownFieldRejected(t *testing.T) {
	e := newTestEngine(t)
	for _, query := range []string{
		"SELECT severity FROM issues",
		"SELECT * FROM issues WHERE severity = 'high'",
		"SELECT * FROM issues ORDER BY severity",
	} {
		err := execErr(t, e, query)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Kind != UnknownReference {
			t.Errorf("Execute(%q) err = %v; want UnknownReference", query, err)
		}
	}
}

func TestSelectOrderLimitOffset(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'a' PRIORITY low")
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'b' PRIORITY critical")
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'c' PRIORITY medium")

	res := exec(t, e, "SELECT issue_id FROM issues ORDER BY priority DESC LIMIT 1")
	if len(res.Rows) != 1 || res.Rows[0][0] != "webapp#2" {
		t.Errorf("highest priority = %v; want [[webapp#2]]", res.Rows)
	}

	res = exec(t, e, "SELECT issue_id FROM issues ORDER BY priority DESC LIMIT 10 OFFSET 1")
	want := [][]string{{"webapp#3"}, {"webapp#1"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	res = exec(t, e, "SELECT issue_id FROM issues LIMIT 10 OFFSET 99")
	if len(res.Rows) != 0 {
		t.Errorf("offset beyond rows returned %d rows; want 0", len(res.Rows))
	}
}

func TestSelectOrdersIssueIDsNumerically(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	for i := 0; i < 11; i++ {
		exec(t, e, fmt.Sprintf("CREATE ISSUE IN webapp WITH TITLE 'issue %d'", i+1))
	}

	res := exec(t, e, "SELECT issue_id FROM issues ORDER BY issue_id DESC LIMIT 2")
	want := [][]string{{"webapp#11"}, {"webapp#10"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateIssue(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Original'")

	exec(t, e, "UPDATE ISSUE webapp#1 SET title = 'Renamed', priority = high")
	res := exec(t, e, "SELECT title, priority FROM issues WHERE issue_id = 'webapp#1'")
	want := [][]string{{"Renamed", "high"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	// NULL clears optional fields.
	exec(t, e, "UPDATE ISSUE webapp#1 SET priority = NULL")
	res = exec(t, e, "SELECT issue_id FROM issues WHERE priority IS NULL")
	if len(res.Rows) != 1 {
		t.Errorf("after clearing priority got %d null-priority issues; want 1", len(res.Rows))
	}
}

func TestUpdateProjectRename(t *testing.T) {
	e := newTestEngine(t)
	exec(t, e, "CREATE PROJECT test WITH NAME 'Test Project'")

	exec(t, e, "UPDATE PROJECT test SET name = 'Renamed Project'")
	res := exec(t, e, "SELECT name FROM projects WHERE project_id = test")
	want := [][]string{{"Renamed Project"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateRejections(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'x'")

	for _, query := range []string{
		"UPDATE ISSUE webapp#1 SET issue_id = 'webapp#9'",
		"UPDATE ISSUE webapp#1 SET project = 'api'",
		"UPDATE ISSUE webapp#1 SET status = 'closed'",
		"UPDATE ISSUE webapp#1 SET priority = urgent",
		"UPDATE ISSUE webapp#1 SET title = ''",
		"UPDATE USER alice SET username = bob",
		"UPDATE ISSUE webapp#9 SET title = 'ghost'",
	} {
		execErr(t, e, query)
	}
}

func TestAssignCloseReopenLifecycle(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Lifecycle'")

	exec(t, e, "ASSIGN ISSUE webapp#1 TO alice")
	res := exec(t, e, "SELECT assignee, status FROM issues")
	if diff := cmp.Diff([][]string{{"alice", "open"}}, res.Rows); diff != "" {
		t.Errorf("after assign (-want +got):\n%s", diff)
	}

	exec(t, e, "CLOSE ISSUE webapp#1 WITH wontfix")
	res = exec(t, e, "SELECT status, close_reason FROM issues")
	if diff := cmp.Diff([][]string{{"closed", "wontfix"}}, res.Rows); diff != "" {
		t.Errorf("after close (-want +got):\n%s", diff)
	}

	if err := execErr(t, e, "CLOSE ISSUE webapp#1"); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("double close err = %v; want ErrAlreadyClosed", err)
	}

	exec(t, e, "REOPEN ISSUE webapp#1")
	res = exec(t, e, "SELECT status FROM issues WHERE close_reason IS NULL")
	if diff := cmp.Diff([][]string{{"open"}}, res.Rows); diff != "" {
		t.Errorf("after reopen (-want +got):\n%s", diff)
	}

	// Reopening an open issue is a no-op.
	if res := exec(t, e, "REOPEN ISSUE webapp#1"); res.Affected != 0 {
		t.Errorf("reopen of open issue affected = %d; want 0", res.Affected)
	}

	if err := execErr(t, e, "ASSIGN ISSUE webapp#1 TO ghost"); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Kind != UnknownReference {
			t.Errorf("assign to ghost err = %v; want UnknownReference", err)
		}
	}
}

func TestComments(t *testing.T) {
	e := newTestEngine(t, WithIdentity(StaticIdentity("alice")))
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'Discussed'")

	res := exec(t, e, "COMMENT ON ISSUE webapp#1 WITH 'First'")
	if res.Key != "C1" {
		t.Errorf("first comment key = %q; want C1", res.Key)
	}
	res = exec(t, e, "CREATE COMMENT ON ISSUE webapp#1 WITH 'Second' AUTHOR default")
	if res.Key != "C2" {
		t.Errorf("second comment key = %q; want C2", res.Key)
	}

	res = exec(t, e, "SELECT comment_id, issue, author, content FROM comments")
	want := [][]string{
		{"C1", "webapp#1", "alice", "First"},
		{"C2", "webapp#1", "default", "Second"},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	err := execErr(t, e, "COMMENT ON ISSUE webapp#99 WITH 'into the void'")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != UnknownReference {
		t.Errorf("comment on missing issue err = %v; want UnknownReference", err)
	}
}

func TestCommentAuthorDefaultsToSeededUser(t *testing.T) {
	e := newTestEngine(t)
	exec(t, e, "CREATE PROJECT test WITH NAME 'Test Project'")
	exec(t, e, "CREATE ISSUE OF KIND bug IN test WITH TITLE 'Something is wrong'")

	exec(t, e, "COMMENT ON ISSUE test#1 WITH 'Some Comment'")
	res := exec(t, e, "SELECT issue, author, content FROM comments")
	want := [][]string{{"test#1", "default", "Some Comment"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteCascades(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'a'")
	exec(t, e, "CREATE ISSUE IN webapp WITH TITLE 'b'")
	exec(t, e, "COMMENT ON ISSUE webapp#1 WITH 'on a'")
	exec(t, e, "COMMENT ON ISSUE webapp#2 WITH 'on b'")

	res := exec(t, e, "DELETE ISSUE webapp#1")
	if res.Affected != 2 {
		t.Errorf("delete issue affected = %d; want 2 (issue plus comment)", res.Affected)
	}
	res = exec(t, e, "SELECT comment_id FROM comments")
	if diff := cmp.Diff([][]string{{"C2"}}, res.Rows); diff != "" {
		t.Errorf("surviving comments (-want +got):\n%s", diff)
	}

	res = exec(t, e, "DELETE PROJECT webapp")
	if res.Affected != 3 {
		t.Errorf("delete project affected = %d; want 3 (project, issue, comment)", res.Affected)
	}
	for _, query := range []string{"SELECT * FROM issues", "SELECT * FROM comments", "SELECT * FROM projects"} {
		if res := exec(t, e, query); len(res.Rows) != 0 {
			t.Errorf("Execute(%q) returned %d rows after cascade; want 0", query, len(res.Rows))
		}
	}
}

func TestDeleteUserGuards(t *testing.T) {
	e := newTestEngine(t)
	seedProject(t, e)

	if err := execErr(t, e, "DELETE USER default"); !errors.Is(err, ErrDefaultUserDelete) {
		t.Errorf("delete default err = %v; want ErrDefaultUserDelete", err)
	}
	// alice owns webapp.
	execErr(t, e, "DELETE USER alice")

	exec(t, e, "DELETE PROJECT webapp")
	res := exec(t, e, "DELETE USER alice")
	if res.Affected != 1 {
		t.Errorf("delete user affected = %d; want 1", res.Affected)
	}
}

func TestDefaultOwnerIsActingIdentity(t *testing.T) {
	e := newTestEngine(t, WithIdentity(StaticIdentity("alice")))
	exec(t, e, "CREATE USER alice")
	exec(t, e, "CREATE PROJECT solo")

	res := exec(t, e, "SELECT owner FROM projects")
	if diff := cmp.Diff([][]string{{"alice"}}, res.Rows); diff != "" {
		t.Errorf("owner (-want +got):\n%s", diff)
	}
}

type denyWrites struct{}

func (denyWrites) Authorize(identity string, op Operation, target string) error {
	return errors.New("denied")
}

func TestAuthorizationBlocksWrites(t *testing.T) {
	e := newTestEngine(t, WithAuthorizer(denyWrites{}))

	err := execErr(t, e, "CREATE USER mallory")
	var aerr *AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v; want *AuthorizationError", err)
	}
	if aerr.Op != OpCreate {
		t.Errorf("op = %q; want %q", aerr.Op, OpCreate)
	}

	// Reads are not authorized and must still work.
	res := exec(t, e, "SELECT username FROM users")
	if len(res.Rows) != 1 {
		t.Errorf("select returned %d rows; want 1", len(res.Rows))
	}
	for _, row := range res.Rows {
		if row[0] == "mallory" {
			t.Error("denied create still wrote the user")
		}
	}
}

func TestExecuteStmt(t *testing.T) {
	e := newTestEngine(t)
	stmt, err := iql.Parse("SELECT username FROM users")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	res, err := e.ExecuteStmt(context.Background(), stmt)
	if err != nil {
		t.Fatalf("ExecuteStmt failed: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0] != types.DefaultUsername {
		t.Errorf("rows = %v; want the default user", res.Rows)
	}
}
