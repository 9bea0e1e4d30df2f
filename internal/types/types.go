// Package types defines the entities tracked by IssueCraft and their
// validation rules. All identifiers are strings; issue IDs are composed
// as <project_id>#<sequence>.
package types

import (
	"fmt"
	"strings"
	"time"
)

// DefaultUsername is the seeded identity present in every fresh store.
const DefaultUsername = "default"

// DefaultDisplayName is the display name of the seeded identity.
const DefaultDisplayName = "Default User"

// Priority represents issue urgency.
type Priority string

// Priority levels, ordered from most to least urgent.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ValidPriority reports whether p is one of the fixed priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps a priority to an integer so that relational comparisons and
// ORDER BY treat critical as the highest value. Unknown or empty
// priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Status represents the lifecycle state of an issue.
type Status string

// Issue statuses.
const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ValidStatus reports whether s is a legal issue status.
func ValidStatus(s Status) bool {
	return s == StatusOpen || s == StatusClosed
}

// Kind represents the category of an issue.
type Kind string

// Issue kinds.
const (
	KindBug         Kind = "bug"
	KindTask        Kind = "task"
	KindImprovement Kind = "improvement"
	KindEpic        Kind = "epic"
)

// DefaultKind is used when CREATE ISSUE omits the OF KIND clause.
const DefaultKind = KindTask

// ValidKind reports whether k is a legal issue kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindBug, KindTask, KindImprovement, KindEpic:
		return true
	}
	return false
}

// Well-known close reasons. CLOSE ISSUE also accepts a free-form quoted
// string, so these are conventions rather than an enforced enum.
const (
	ReasonDuplicate = "duplicate"
	ReasonWontFix   = "wontfix"
	ReasonDone      = "done"
)

// User is an account that can own projects, be assigned issues, and
// author comments. The username is the immutable primary key.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Validate checks required fields.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("user validation: username is required")
	}
	return nil
}

// Project groups issues under a shared identifier prefix. The project ID
// is the immutable primary key and the namespace of its issue IDs.
type Project struct {
	ID          string `json:"project_id"`
	DisplayName string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// Validate checks required fields.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("project validation: project_id is required")
	}
	if strings.Contains(p.ID, "#") {
		return fmt.Errorf("project validation: project_id must not contain '#'")
	}
	return nil
}

// Issue is a unit of tracked work belonging to exactly one project.
type Issue struct {
	ID          string    `json:"issue_id"`
	Project     string    `json:"project"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Status      Status    `json:"status"`
	CloseReason string    `json:"close_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks required fields and enum values.
func (i *Issue) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("issue validation: title is required")
	}
	if i.Project == "" {
		return fmt.Errorf("issue validation: project is required")
	}
	if i.Kind != "" && !ValidKind(i.Kind) {
		return fmt.Errorf("issue validation: invalid kind %q", i.Kind)
	}
	if i.Priority != "" && !ValidPriority(i.Priority) {
		return fmt.Errorf("issue validation: invalid priority %q", i.Priority)
	}
	if i.Status != "" && !ValidStatus(i.Status) {
		return fmt.Errorf("issue validation: invalid status %q", i.Status)
	}
	return nil
}

// Closed reports whether the issue has been closed.
func (i *Issue) Closed() bool {
	return i.Status == StatusClosed
}

// HasLabel reports whether the issue carries the given label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel appends a label unless the issue already carries it. Labels
// form a set; order of first appearance is kept.
func (i *Issue) AddLabel(label string) {
	if !i.HasLabel(label) {
		i.Labels = append(i.Labels, label)
	}
}

// Comment is an immutable remark attached to an issue.
type Comment struct {
	ID        string    `json:"comment_id"`
	Issue     string    `json:"issue"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields.
func (c *Comment) Validate() error {
	if c.Content == "" {
		return fmt.Errorf("comment validation: content is required")
	}
	if c.Issue == "" {
		return fmt.Errorf("comment validation: issue is required")
	}
	return nil
}
