package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/types"
)

// record is any entity exposing its queryable fields by name. The second
// return value is false when the field is unset (NULL).
type record interface {
	Field(name string) (any, bool)
}

// knownFields returns the queryable field set of an entity family,
// including the "id" primary-key alias.
func knownFields(entity iql.EntityType) map[string]bool {
	var cols []string
	switch entity {
	case iql.EntityUsers:
		cols = types.UserColumns
	case iql.EntityProjects:
		cols = types.ProjectColumns
	case iql.EntityIssues:
		cols = types.IssueColumns
	case iql.EntityComments:
		cols = types.CommentColumns
	}
	fields := map[string]bool{"id": true}
	for _, c := range cols {
		fields[c] = true
	}
	return fields
}

// checkFilterFields walks a filter once and rejects fields the entity
// does not have, so an unknown field is an error rather than a silent
// empty result.
func checkFilterFields(expr iql.FilterExpr, entity iql.EntityType, fields map[string]bool) error {
	switch e := expr.(type) {
	case *iql.Comparison:
		return checkField(e.Field, entity, fields)
	case *iql.InExpr:
		return checkField(e.Field, entity, fields)
	case *iql.NullCheck:
		return checkField(e.Field, entity, fields)
	case *iql.NotExpr:
		return checkFilterFields(e.Expr, entity, fields)
	case *iql.AndExpr:
		if err := checkFilterFields(e.Left, entity, fields); err != nil {
			return err
		}
		return checkFilterFields(e.Right, entity, fields)
	case *iql.OrExpr:
		if err := checkFilterFields(e.Left, entity, fields); err != nil {
			return err
		}
		return checkFilterFields(e.Right, entity, fields)
	}
	return fmt.Errorf("unhandled filter expression %T", expr)
}

func checkField(name string, entity iql.EntityType, fields map[string]bool) error {
	if !fields[name] {
		return unknownRef(entity.Singular()+" field", name)
	}
	return nil
}

// evalFilter evaluates a WHERE expression against one record. Unset
// fields behave like SQL NULL: every comparison against them is false
// and only IS NULL matches.
func evalFilter(expr iql.FilterExpr, rec record) bool {
	switch e := expr.(type) {
	case *iql.Comparison:
		return evalComparison(e, rec)
	case *iql.AndExpr:
		return evalFilter(e.Left, rec) && evalFilter(e.Right, rec)
	case *iql.OrExpr:
		return evalFilter(e.Left, rec) || evalFilter(e.Right, rec)
	case *iql.NotExpr:
		return !evalFilter(e.Expr, rec)
	case *iql.InExpr:
		val, ok := rec.Field(e.Field)
		if !ok {
			return false
		}
		for _, v := range e.Values {
			if matchEquality(e.Field, fmt.Sprint(val), v) {
				return true
			}
		}
		return false
	case *iql.NullCheck:
		_, ok := rec.Field(e.Field)
		if e.Negated {
			return ok
		}
		return !ok
	}
	return false
}

func evalComparison(c *iql.Comparison, rec record) bool {
	val, ok := rec.Field(c.Field)
	if !ok || c.Value.Kind == iql.ValueNull {
		return false
	}
	s := fmt.Sprint(val)

	switch c.Op {
	case iql.OpEq:
		return matchEquality(c.Field, s, c.Value)
	case iql.OpNeq:
		return !matchEquality(c.Field, s, c.Value)
	case iql.OpLike:
		// LIKE patterns are meaningful only for string operands.
		return c.Value.IsTextual() && matchLike(s, c.Value.Text)
	}

	// Relational operators. Priorities compare by rank so that
	// critical > high > medium > low holds.
	if c.Field == "priority" {
		return relCompare(c.Op, types.Priority(s).Rank(), types.Priority(c.Value.String()).Rank())
	}
	if fv, err1 := strconv.ParseFloat(s, 64); err1 == nil {
		switch c.Value.Kind {
		case iql.ValueNumber:
			return relCompareFloat(c.Op, fv, float64(c.Value.Int))
		case iql.ValueFloat:
			return relCompareFloat(c.Op, fv, c.Value.Float)
		}
	}
	return relCompare(c.Op, strings.Compare(s, c.Value.String()), 0)
}

// matchEquality applies = semantics. On the labels field equality means
// set membership, so WHERE labels = 'backend' matches an issue carrying
// that label among others.
func matchEquality(field, fieldValue string, v iql.Value) bool {
	if field == "labels" {
		for _, label := range strings.Split(fieldValue, ",") {
			if label == v.String() {
				return true
			}
		}
		return false
	}
	return fieldValue == v.String()
}

// matchLike applies SQL LIKE semantics: % matches any run of characters,
// _ matches exactly one, case-insensitively.
func matchLike(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func relCompare(op iql.CompareOp, a, b int) bool {
	switch op {
	case iql.OpGt:
		return a > b
	case iql.OpLt:
		return a < b
	case iql.OpGte:
		return a >= b
	case iql.OpLte:
		return a <= b
	}
	return false
}

func relCompareFloat(op iql.CompareOp, a, b float64) bool {
	switch op {
	case iql.OpGt:
		return a > b
	case iql.OpLt:
		return a < b
	case iql.OpGte:
		return a >= b
	case iql.OpLte:
		return a <= b
	}
	return false
}
