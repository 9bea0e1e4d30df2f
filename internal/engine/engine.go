// Package engine executes IQL statements against a storage.Store. Every
// statement runs in exactly one transaction: reads in a read-only view,
// writes in a read-write transaction that is committed only after
// authorization and validation both pass.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
	"github.com/issuecraft/issuecraft/internal/utils"
)

// Result is the outcome of one executed statement. SELECT fills Columns
// and Rows; mutations fill Affected and, for creates, the Key of the new
// entity.
type Result struct {
	Columns  []string
	Rows     [][]string
	Affected int
	Key      string
}

// Engine parses and executes IQL statements.
type Engine struct {
	store    storage.Store
	identity IdentityProvider
	authz    AuthorizationProvider
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithIdentity sets the identity provider. The default is the seeded
// default user.
func WithIdentity(p IdentityProvider) Option {
	return func(e *Engine) { e.identity = p }
}

// WithAuthorizer sets the authorization provider. The default allows
// everything.
func WithAuthorizer(p AuthorizationProvider) Option {
	return func(e *Engine) { e.authz = p }
}

// WithLogger sets the logger used for statement tracing.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		identity: StaticIdentity(types.DefaultUsername),
		authz:    AllowAll{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute parses and runs one statement.
func (e *Engine) Execute(ctx context.Context, query string) (*Result, error) {
	stmt, err := iql.Parse(query)
	if err != nil {
		return nil, err
	}
	return e.ExecuteStmt(ctx, stmt)
}

// ExecuteStmt runs an already parsed statement.
func (e *Engine) ExecuteStmt(ctx context.Context, stmt iql.Statement) (*Result, error) {
	start := time.Now()
	res, err := e.dispatch(ctx, stmt)
	if err != nil {
		e.logger.Debug("statement failed", "type", fmt.Sprintf("%T", stmt), "err", err)
		return nil, err
	}
	e.logger.Debug("statement executed",
		"type", fmt.Sprintf("%T", stmt), "affected", res.Affected, "elapsed", time.Since(start))
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, stmt iql.Statement) (*Result, error) {
	if sel, ok := stmt.(*iql.SelectStmt); ok {
		return e.executeSelect(ctx, sel)
	}
	return e.executeWrite(ctx, stmt)
}

// executeWrite runs a mutating statement: authorize, open a write
// transaction, apply, commit. Any error rolls the transaction back.
func (e *Engine) executeWrite(ctx context.Context, stmt iql.Statement) (*Result, error) {
	identity := e.identity.CurrentIdentity()
	op, target := describeWrite(stmt)
	if err := e.authz.Authorize(identity, op, target); err != nil {
		return nil, &AuthorizationError{Identity: identity, Op: op, Target: target, Err: err}
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var res *Result
	switch s := stmt.(type) {
	case *iql.CreateUserStmt:
		res, err = e.createUser(ctx, tx, s)
	case *iql.CreateProjectStmt:
		res, err = e.createProject(ctx, tx, s, identity)
	case *iql.CreateIssueStmt:
		res, err = e.createIssue(ctx, tx, s, identity)
	case *iql.CommentStmt:
		res, err = e.createComment(ctx, tx, s, identity)
	case *iql.UpdateStmt:
		res, err = e.update(ctx, tx, s)
	case *iql.DeleteStmt:
		res, err = e.delete(ctx, tx, s)
	case *iql.AssignStmt:
		res, err = e.assign(ctx, tx, s)
	case *iql.CloseStmt:
		res, err = e.close(ctx, tx, s)
	case *iql.ReopenStmt:
		res, err = e.reopen(ctx, tx, s)
	default:
		return nil, fmt.Errorf("unhandled statement %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// describeWrite maps a statement to its authorization operation and a
// human-readable target.
func describeWrite(stmt iql.Statement) (Operation, string) {
	switch s := stmt.(type) {
	case *iql.CreateUserStmt:
		return OpCreate, "user " + s.Username
	case *iql.CreateProjectStmt:
		return OpCreate, "project " + s.ProjectID
	case *iql.CreateIssueStmt:
		return OpCreate, "issue in " + s.Project
	case *iql.CommentStmt:
		return OpCreate, "comment on " + s.Issue.String()
	case *iql.UpdateStmt:
		return OpUpdate, s.Entity.Singular() + " " + s.Key
	case *iql.DeleteStmt:
		return OpDelete, s.Entity.Singular() + " " + s.Key
	case *iql.AssignStmt:
		return OpAssign, "issue " + s.Issue.String()
	case *iql.CloseStmt:
		return OpClose, "issue " + s.Issue.String()
	case *iql.ReopenStmt:
		return OpReopen, "issue " + s.Issue.String()
	}
	return "", ""
}

// issueCounterScope names the per-project sequence counter.
func issueCounterScope(project string) string {
	return "issues/" + project
}

func (e *Engine) createUser(ctx context.Context, tx storage.Tx, s *iql.CreateUserStmt) (*Result, error) {
	if _, err := getUser(ctx, tx, s.Username); err == nil {
		return nil, duplicateKey("user", s.Username)
	} else if !isNotFound(err) {
		return nil, err
	}

	user := types.User{Username: s.Username, DisplayName: s.Name, Email: s.Email}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := putJSON(ctx, tx, storage.TableUsers, user.Username, &user); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: user.Username}, nil
}

func (e *Engine) createProject(ctx context.Context, tx storage.Tx, s *iql.CreateProjectStmt, identity string) (*Result, error) {
	if _, err := getProject(ctx, tx, s.ProjectID); err == nil {
		return nil, duplicateKey("project", s.ProjectID)
	} else if !isNotFound(err) {
		return nil, err
	}

	owner := s.Owner
	if owner == "" {
		owner = identity
	}
	if _, err := getUser(ctx, tx, owner); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", owner)
		}
		return nil, err
	}

	project := types.Project{ID: s.ProjectID, DisplayName: s.Name, Description: s.Description, Owner: owner}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	if err := putJSON(ctx, tx, storage.TableProjects, project.ID, &project); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: project.ID}, nil
}

func (e *Engine) createIssue(ctx context.Context, tx storage.Tx, s *iql.CreateIssueStmt, identity string) (*Result, error) {
	if s.Title == "" {
		return nil, missingField("issue", "title")
	}
	if _, err := getProject(ctx, tx, s.Project); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("project", s.Project)
		}
		return nil, err
	}

	kind := types.DefaultKind
	if s.Kind != "" {
		kind = types.Kind(strings.ToLower(s.Kind))
		if !types.ValidKind(kind) {
			return nil, illegalEnum("issue", "kind", s.Kind)
		}
	}
	var priority types.Priority
	if s.Priority != "" {
		priority = types.Priority(strings.ToLower(s.Priority))
		if !types.ValidPriority(priority) {
			return nil, illegalEnum("issue", "priority", s.Priority)
		}
	}
	assignee := s.Assignee
	if assignee == "" {
		assignee = identity
	}
	if _, err := getUser(ctx, tx, assignee); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", assignee)
		}
		return nil, err
	}

	seq, err := tx.NextSeq(ctx, issueCounterScope(s.Project))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	issue := types.Issue{
		ID:          utils.FormatIssueID(s.Project, int(seq)),
		Project:     s.Project,
		Kind:        kind,
		Title:       s.Title,
		Description: s.Description,
		Priority:    priority,
		Assignee:    assignee,
		Status:      types.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, label := range s.Labels {
		issue.AddLabel(label)
	}
	if err := issue.Validate(); err != nil {
		return nil, err
	}
	if err := putJSON(ctx, tx, storage.TableIssues, issue.ID, &issue); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: issue.ID}, nil
}

func (e *Engine) createComment(ctx context.Context, tx storage.Tx, s *iql.CommentStmt, identity string) (*Result, error) {
	if s.Content == "" {
		return nil, missingField("comment", "content")
	}
	issueID := s.Issue.String()
	if _, err := getIssue(ctx, tx, issueID); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", issueID)
		}
		return nil, err
	}

	author := s.Author
	if author == "" {
		author = identity
	}
	if _, err := getUser(ctx, tx, author); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", author)
		}
		return nil, err
	}

	seq, err := tx.NextSeq(ctx, storage.CounterComments)
	if err != nil {
		return nil, err
	}
	comment := types.Comment{
		ID:        "C" + strconv.FormatInt(seq, 10),
		Issue:     issueID,
		Author:    author,
		Content:   s.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	if err := putJSON(ctx, tx, storage.TableComments, comment.ID, &comment); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: comment.ID}, nil
}

func (e *Engine) assign(ctx context.Context, tx storage.Tx, s *iql.AssignStmt) (*Result, error) {
	issue, err := getIssue(ctx, tx, s.Issue.String())
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", s.Issue.String())
		}
		return nil, err
	}
	if _, err := getUser(ctx, tx, s.Assignee); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", s.Assignee)
		}
		return nil, err
	}

	issue.Assignee = s.Assignee
	issue.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, tx, storage.TableIssues, issue.ID, issue); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: issue.ID}, nil
}

func (e *Engine) close(ctx context.Context, tx storage.Tx, s *iql.CloseStmt) (*Result, error) {
	issue, err := getIssue(ctx, tx, s.Issue.String())
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", s.Issue.String())
		}
		return nil, err
	}
	if issue.Closed() {
		return nil, fmt.Errorf("%s: %w", issue.ID, ErrAlreadyClosed)
	}

	issue.Status = types.StatusClosed
	issue.CloseReason = s.Reason
	issue.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, tx, storage.TableIssues, issue.ID, issue); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: issue.ID}, nil
}

func (e *Engine) reopen(ctx context.Context, tx storage.Tx, s *iql.ReopenStmt) (*Result, error) {
	issue, err := getIssue(ctx, tx, s.Issue.String())
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", s.Issue.String())
		}
		return nil, err
	}
	if !issue.Closed() {
		// Reopening an open issue is a no-op.
		return &Result{Affected: 0, Key: issue.ID}, nil
	}

	issue.Status = types.StatusOpen
	issue.CloseReason = ""
	issue.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, tx, storage.TableIssues, issue.ID, issue); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: issue.ID}, nil
}

// JSON codec helpers shared by the mutation paths.

func putJSON(ctx context.Context, tx storage.Tx, table storage.Table, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", table, key, err)
	}
	return tx.Put(ctx, table, key, data)
}

func getUser(ctx context.Context, tx storage.Tx, username string) (*types.User, error) {
	var u types.User
	if err := getJSON(ctx, tx, storage.TableUsers, username, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func getProject(ctx context.Context, tx storage.Tx, id string) (*types.Project, error) {
	var p types.Project
	if err := getJSON(ctx, tx, storage.TableProjects, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func getIssue(ctx context.Context, tx storage.Tx, id string) (*types.Issue, error) {
	var i types.Issue
	if err := getJSON(ctx, tx, storage.TableIssues, id, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func getComment(ctx context.Context, tx storage.Tx, id string) (*types.Comment, error) {
	var c types.Comment
	if err := getJSON(ctx, tx, storage.TableComments, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func getJSON(ctx context.Context, tx storage.Tx, table storage.Table, key string, v any) error {
	data, err := tx.Get(ctx, table, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", table, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
