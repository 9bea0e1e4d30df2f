package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
)

func immutableField(entity, field string) error {
	return fmt.Errorf("field %q of %s is immutable", field, entity)
}

func (e *Engine) update(ctx context.Context, tx storage.Tx, s *iql.UpdateStmt) (*Result, error) {
	switch s.Entity {
	case iql.EntityUsers:
		return e.updateUser(ctx, tx, s)
	case iql.EntityProjects:
		return e.updateProject(ctx, tx, s)
	case iql.EntityIssues:
		return e.updateIssue(ctx, tx, s)
	}
	return nil, fmt.Errorf("%s cannot be updated", s.Entity)
}

func (e *Engine) updateUser(ctx context.Context, tx storage.Tx, s *iql.UpdateStmt) (*Result, error) {
	user, err := getUser(ctx, tx, s.Key)
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("user", s.Key)
		}
		return nil, err
	}

	for _, set := range s.Sets {
		null := set.Value.Kind == iql.ValueNull
		switch set.Field {
		case "name":
			if null {
				user.DisplayName = ""
			} else {
				user.DisplayName = set.Value.String()
			}
		case "email":
			if null {
				user.Email = ""
			} else {
				user.Email = set.Value.String()
			}
		case "username", "id":
			return nil, immutableField("user", set.Field)
		default:
			return nil, unknownRef("user field", set.Field)
		}
	}
	if err := putJSON(ctx, tx, storage.TableUsers, user.Username, user); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: user.Username}, nil
}

func (e *Engine) updateProject(ctx context.Context, tx storage.Tx, s *iql.UpdateStmt) (*Result, error) {
	project, err := getProject(ctx, tx, s.Key)
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("project", s.Key)
		}
		return nil, err
	}

	for _, set := range s.Sets {
		null := set.Value.Kind == iql.ValueNull
		switch set.Field {
		case "name":
			if null {
				project.DisplayName = ""
			} else {
				project.DisplayName = set.Value.String()
			}
		case "description":
			if null {
				project.Description = ""
			} else {
				project.Description = set.Value.String()
			}
		case "owner":
			if null {
				project.Owner = ""
				continue
			}
			owner := set.Value.String()
			if _, err := getUser(ctx, tx, owner); err != nil {
				if isNotFound(err) {
					return nil, unknownRef("user", owner)
				}
				return nil, err
			}
			project.Owner = owner
		case "project_id", "id":
			return nil, immutableField("project", set.Field)
		default:
			return nil, unknownRef("project field", set.Field)
		}
	}
	if err := putJSON(ctx, tx, storage.TableProjects, project.ID, project); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: project.ID}, nil
}

func (e *Engine) updateIssue(ctx context.Context, tx storage.Tx, s *iql.UpdateStmt) (*Result, error) {
	issue, err := getIssue(ctx, tx, s.Key)
	if err != nil {
		if isNotFound(err) {
			return nil, unknownRef("issue", s.Key)
		}
		return nil, err
	}

	for _, set := range s.Sets {
		null := set.Value.Kind == iql.ValueNull
		switch set.Field {
		case "title":
			if null || set.Value.String() == "" {
				return nil, missingField("issue", "title")
			}
			issue.Title = set.Value.String()
		case "description":
			if null {
				issue.Description = ""
			} else {
				issue.Description = set.Value.String()
			}
		case "kind":
			if null {
				issue.Kind = types.DefaultKind
				continue
			}
			kind := types.Kind(strings.ToLower(set.Value.String()))
			if !types.ValidKind(kind) {
				return nil, illegalEnum("issue", "kind", set.Value.String())
			}
			issue.Kind = kind
		case "priority":
			if null {
				issue.Priority = ""
				continue
			}
			priority := types.Priority(strings.ToLower(set.Value.String()))
			if !types.ValidPriority(priority) {
				return nil, illegalEnum("issue", "priority", set.Value.String())
			}
			issue.Priority = priority
		case "assignee":
			if null {
				issue.Assignee = ""
				continue
			}
			assignee := set.Value.String()
			if _, err := getUser(ctx, tx, assignee); err != nil {
				if isNotFound(err) {
					return nil, unknownRef("user", assignee)
				}
				return nil, err
			}
			issue.Assignee = assignee
		case "labels":
			if null {
				issue.Labels = nil
				continue
			}
			issue.Labels = nil
			for _, label := range splitLabels(set.Value.String()) {
				issue.AddLabel(label)
			}
		case "status", "close_reason":
			return nil, fmt.Errorf("field %q changes through CLOSE and REOPEN", set.Field)
		case "issue_id", "project", "id":
			return nil, immutableField("issue", set.Field)
		default:
			return nil, unknownRef("issue field", set.Field)
		}
	}

	issue.UpdatedAt = time.Now().UTC()
	if err := putJSON(ctx, tx, storage.TableIssues, issue.ID, issue); err != nil {
		return nil, err
	}
	return &Result{Affected: 1, Key: issue.ID}, nil
}

// splitLabels parses a comma-separated label list, dropping empty parts.
func splitLabels(s string) []string {
	var labels []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
