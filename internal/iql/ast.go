// Package iql implements the IssueCraft query language: a lexer, a
// recursive-descent parser, and the typed statement tree the execution
// engine interprets.
package iql

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement is the closed set of IQL statement forms. The marker method
// keeps the set exhaustively checkable in type switches, following the
// pattern of go/ast.
type Statement interface {
	statementNode()
}

// EntityType names one of the four entity tables.
type EntityType string

// Entity tables addressable by SELECT, UPDATE, and DELETE.
const (
	EntityUsers    EntityType = "users"
	EntityProjects EntityType = "projects"
	EntityIssues   EntityType = "issues"
	EntityComments EntityType = "comments"
)

// IssueRef addresses an issue as <project>#<sequence>.
type IssueRef struct {
	Project string
	Seq     int
}

func (r IssueRef) String() string {
	return fmt.Sprintf("%s#%d", r.Project, r.Seq)
}

// CreateUserStmt is CREATE USER u [WITH EMAIL e] [NAME n].
type CreateUserStmt struct {
	Username string
	Email    string
	Name     string
}

// CreateProjectStmt is CREATE PROJECT p [WITH NAME n | DESCRIPTION d | OWNER o].
type CreateProjectStmt struct {
	ProjectID   string
	Name        string
	Description string
	Owner       string
}

// CreateIssueStmt is CREATE ISSUE [OF KIND k] IN p WITH TITLE t ...
// Kind is empty when OF KIND was omitted.
type CreateIssueStmt struct {
	Project     string
	Kind        string
	Title       string
	Description string
	Priority    string
	Assignee    string
	Labels      []string
}

// CommentStmt covers both CREATE COMMENT ON ISSUE ... and the top-level
// COMMENT ON ISSUE ... sugar. Author is empty when defaulted to the
// acting identity.
type CommentStmt struct {
	Issue   IssueRef
	Content string
	Author  string
}

// SelectStmt is SELECT cols FROM entity [WHERE f] [ORDER BY f dir]
// [LIMIT n [OFFSET m]]. Columns nil means '*'. Limit/Offset nil means
// unbounded / zero.
type SelectStmt struct {
	Columns []string
	From    EntityType
	Where   FilterExpr
	OrderBy *OrderBy
	Limit   *int
	Offset  *int
}

// OrderBy names the sort field and direction of a SELECT.
type OrderBy struct {
	Field      string
	Descending bool
}

// Assignment is one field = value pair in a SET clause.
type Assignment struct {
	Field string
	Value Value
}

// UpdateStmt is UPDATE entity key SET field = value, ...
// Key is the primary key of the target entity (issue keys are the
// rendered <project>#<seq> form).
type UpdateStmt struct {
	Entity EntityType
	Key    string
	Sets   []Assignment
}

// DeleteStmt is DELETE entity key.
type DeleteStmt struct {
	Entity EntityType
	Key    string
}

// AssignStmt is ASSIGN ISSUE ref TO user.
type AssignStmt struct {
	Issue    IssueRef
	Assignee string
}

// CloseStmt is CLOSE ISSUE ref [WITH reason].
type CloseStmt struct {
	Issue  IssueRef
	Reason string
}

// ReopenStmt is REOPEN ISSUE ref.
type ReopenStmt struct {
	Issue IssueRef
}

func (*CreateUserStmt) statementNode()    {}
func (*CreateProjectStmt) statementNode() {}
func (*CreateIssueStmt) statementNode()   {}
func (*CommentStmt) statementNode()       {}
func (*SelectStmt) statementNode()        {}
func (*UpdateStmt) statementNode()        {}
func (*DeleteStmt) statementNode()        {}
func (*AssignStmt) statementNode()        {}
func (*CloseStmt) statementNode()         {}
func (*ReopenStmt) statementNode()        {}

// ValueKind discriminates literal values in filters and SET clauses.
type ValueKind int

// Literal value kinds.
const (
	ValueString ValueKind = iota
	ValueNumber
	ValueFloat
	ValueBool
	ValueNull
	ValueIdent
)

// Value is a literal appearing in a WHERE condition, IN list, or SET
// assignment. Exactly one payload field is meaningful per kind; bare
// words (enum values, usernames) carry ValueIdent.
type Value struct {
	Kind  ValueKind
	Text  string
	Int   int64
	Float float64
	Bool  bool
}

// Text values render unquoted; this is the form used for entity field
// comparison and for echoing assignments in error messages.
func (v Value) String() string {
	switch v.Kind {
	case ValueString, ValueIdent:
		return v.Text
	case ValueNumber:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueNull:
		return "NULL"
	}
	return ""
}

// IsTextual reports whether the value carries its payload in Text.
func (v Value) IsTextual() bool {
	return v.Kind == ValueString || v.Kind == ValueIdent
}

// CompareOp is a comparison operator in a WHERE predicate.
type CompareOp int

// Comparison operators.
const (
	OpEq CompareOp = iota
	OpNeq
	OpGt
	OpLt
	OpGte
	OpLte
	OpLike
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpLike:
		return "LIKE"
	}
	return "?"
}

// FilterExpr is the closed set of WHERE expression forms.
// Precedence: OR binds loosest, then AND, then NOT and parentheses.
type FilterExpr interface {
	filterNode()
}

// Comparison is field op value.
type Comparison struct {
	Field string
	Op    CompareOp
	Value Value
}

// AndExpr is left AND right.
type AndExpr struct {
	Left, Right FilterExpr
}

// OrExpr is left OR right.
type OrExpr struct {
	Left, Right FilterExpr
}

// NotExpr negates its operand.
type NotExpr struct {
	Expr FilterExpr
}

// InExpr is field IN (v1, v2, ...).
type InExpr struct {
	Field  string
	Values []Value
}

// NullCheck is field IS NULL / field IS NOT NULL.
type NullCheck struct {
	Field   string
	Negated bool
}

func (*Comparison) filterNode() {}
func (*AndExpr) filterNode()    {}
func (*OrExpr) filterNode()     {}
func (*NotExpr) filterNode()    {}
func (*InExpr) filterNode()     {}
func (*NullCheck) filterNode()  {}

// entityFromToken normalizes singular and plural entity spellings.
func entityFromToken(t TokenType) (EntityType, bool) {
	switch t {
	case TokenUser, TokenUsers:
		return EntityUsers, true
	case TokenProject, TokenProjects:
		return EntityProjects, true
	case TokenIssue, TokenIssues:
		return EntityIssues, true
	case TokenComment, TokenComments:
		return EntityComments, true
	}
	return "", false
}

// Singular returns the singular spelling used in messages.
func (e EntityType) Singular() string {
	return strings.TrimSuffix(string(e), "s")
}
