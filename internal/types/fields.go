package types

import "strings"

// Canonical column orders used by SELECT * projections.
var (
	UserColumns    = []string{"username", "name", "email"}
	ProjectColumns = []string{"project_id", "name", "description", "owner"}
	IssueColumns   = []string{"issue_id", "project", "kind", "title", "description", "priority", "assignee", "labels", "status", "close_reason"}
	CommentColumns = []string{"comment_id", "issue", "author", "content", "created_at"}
)

// Field resolves a queryable field on a user. The second return value is
// false when the field is unset (NULL) or unknown to the entity.
// "id" is accepted as an alias for the primary key on every entity.
func (u *User) Field(name string) (any, bool) {
	switch name {
	case "username", "id":
		return u.Username, true
	case "name":
		return u.DisplayName, u.DisplayName != ""
	case "email":
		return u.Email, u.Email != ""
	}
	return nil, false
}

// Field resolves a queryable field on a project.
func (p *Project) Field(name string) (any, bool) {
	switch name {
	case "project_id", "id":
		return p.ID, true
	case "name":
		return p.DisplayName, p.DisplayName != ""
	case "description":
		return p.Description, p.Description != ""
	case "owner":
		return p.Owner, p.Owner != ""
	}
	return nil, false
}

// Field resolves a queryable field on an issue.
func (i *Issue) Field(name string) (any, bool) {
	switch name {
	case "issue_id", "id":
		return i.ID, true
	case "project":
		return i.Project, true
	case "kind":
		return string(i.Kind), i.Kind != ""
	case "title":
		return i.Title, true
	case "description":
		return i.Description, i.Description != ""
	case "priority":
		return string(i.Priority), i.Priority != ""
	case "assignee":
		return i.Assignee, i.Assignee != ""
	case "labels":
		return strings.Join(i.Labels, ","), len(i.Labels) > 0
	case "status":
		return string(i.Status), true
	case "close_reason":
		return i.CloseReason, i.CloseReason != ""
	}
	return nil, false
}

// Field resolves a queryable field on a comment.
func (c *Comment) Field(name string) (any, bool) {
	switch name {
	case "comment_id", "id":
		return c.ID, true
	case "issue":
		return c.Issue, true
	case "author":
		return c.Author, true
	case "content":
		return c.Content, true
	case "created_at":
		return c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), true
	}
	return nil, false
}
