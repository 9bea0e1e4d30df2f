package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
)

func (e *Engine) delete(ctx context.Context, tx storage.Tx, s *iql.DeleteStmt) (*Result, error) {
	switch s.Entity {
	case iql.EntityUsers:
		return e.deleteUser(ctx, tx, s.Key)
	case iql.EntityProjects:
		return e.deleteProject(ctx, tx, s.Key)
	case iql.EntityIssues:
		return e.deleteIssue(ctx, tx, s.Key)
	case iql.EntityComments:
		return e.deleteComment(ctx, tx, s.Key)
	}
	return nil, fmt.Errorf("%s cannot be deleted", s.Entity)
}

// deleteUser removes a user. The seeded default user is permanent, and a
// user still referenced as project owner, issue assignee, or comment
// author cannot be removed.
func (e *Engine) deleteUser(ctx context.Context, tx storage.Tx, username string) (*Result, error) {
	if username == types.DefaultUsername {
		return nil, ErrDefaultUserDelete
	}
	if _, err := getUser(ctx, tx, username); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", username)
		}
		return nil, err
	}

	if ref, err := e.userReference(ctx, tx, username); err != nil {
		return nil, err
	} else if ref != "" {
		return nil, fmt.Errorf("user %q is still referenced by %s", username, ref)
	}

	if err := tx.Delete(ctx, storage.TableUsers, username); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: username}, nil
}

// userReference finds one entity that still references username, or
// returns an empty string.
func (e *Engine) userReference(ctx context.Context, tx storage.Tx, username string) (string, error) {
	projects, err := tx.Scan(ctx, storage.TableProjects)
	if err != nil {
		return "", err
	}
	for _, entry := range projects {
		var p types.Project
		if err := json.Unmarshal(entry.Value, &p); err != nil {
			return "", fmt.Errorf("failed to decode project %s: %w", entry.Key, err)
		}
		if p.Owner == username {
			return "project " + p.ID, nil
		}
	}

	issues, err := tx.Scan(ctx, storage.TableIssues)
	if err != nil {
		return "", err
	}
	for _, entry := range issues {
		var i types.Issue
		if err := json.Unmarshal(entry.Value, &i); err != nil {
			return "", fmt.Errorf("failed to decode issue %s: %w", entry.Key, err)
		}
		if i.Assignee == username {
			return "issue " + i.ID, nil
		}
	}

	comments, err := tx.Scan(ctx, storage.TableComments)
	if err != nil {
		return "", err
	}
	for _, entry := range comments {
		var c types.Comment
		if err := json.Unmarshal(entry.Value, &c); err != nil {
			return "", fmt.Errorf("failed to decode comment %s: %w", entry.Key, err)
		}
		if c.Author == username {
			return "comment " + c.ID, nil
		}
	}
	return "", nil
}

// deleteProject removes a project and cascades to its issues and their
// comments, so no dangling references survive.
func (e *Engine) deleteProject(ctx context.Context, tx storage.Tx, projectID string) (*Result, error) {
	if _, err := getProject(ctx, tx, projectID); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("project", projectID)
		}
		return nil, err
	}

	issues, err := tx.Scan(ctx, storage.TableIssues)
	if err != nil {
		return nil, err
	}
	affected := 1
	doomed := make(map[string]bool)
	for _, entry := range issues {
		var i types.Issue
		if err := json.Unmarshal(entry.Value, &i); err != nil {
			return nil, fmt.Errorf("failed to decode issue %s: %w", entry.Key, err)
		}
		if i.Project != projectID {
			continue
		}
		if err := tx.Delete(ctx, storage.TableIssues, entry.Key); err != nil {
			return nil, err
		}
		doomed[entry.Key] = true
		affected++
	}

	n, err := e.deleteCommentsWhere(ctx, tx, func(c *types.Comment) bool { return doomed[c.Issue] })
	if err != nil {
		return nil, err
	}
	affected += n

	if err := tx.Delete(ctx, storage.TableProjects, projectID); err != nil {
		return nil, err
	}
	return &Result{Affected: affected, Key: projectID}, nil
}

// deleteIssue removes an issue and its comments.
func (e *Engine) deleteIssue(ctx context.Context, tx storage.Tx, issueID string) (*Result, error) {
	if _, err := getIssue(ctx, tx, issueID); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", issueID)
		}
		return nil, err
	}

	n, err := e.deleteCommentsWhere(ctx, tx, func(c *types.Comment) bool { return c.Issue == issueID })
	if err != nil {
		return nil, err
	}
	if err := tx.Delete(ctx, storage.TableIssues, issueID); err != nil {
		return nil, err
	}
	return &Result{Affected: n + 1, Key: issueID}, nil
}

func (e *Engine) deleteComment(ctx context.Context, tx storage.Tx, commentID string) (*Result, error) {
	if _, err := getComment(ctx, tx, commentID); err != nil {
		if isNotFound(err) {
			return nil, unknownRef("comment", commentID)
		}
		return nil, err
	}
	if err := tx.Delete(ctx, storage.TableComments, commentID); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: commentID}, nil
}

func (e *Engine) deleteCommentsWhere(ctx context.Context, tx storage.Tx, match func(*types.Comment) bool) (int, error) {
	comments, err := tx.Scan(ctx, storage.TableComments)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, entry := range comments {
		var c types.Comment
		if err := json.Unmarshal(entry.Value, &c); err != nil {
			return 0, fmt.Errorf("failed to decode comment %s: %w", entry.Key, err)
		}
		if !match(&c) {
			continue
		}
		if err := tx.Delete(ctx, storage.TableComments, entry.Key); err != nil {
			return 0, err
		}
		deleted++
	}
	return deleted, nil
}
