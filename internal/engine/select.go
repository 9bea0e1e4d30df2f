package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/issuecraft/issuecraft/internal/iql"
	"github.com/issuecraft/issuecraft/internal/storage"
	"github.com/issuecraft/issuecraft/internal/types"
	"github.com/issuecraft/issuecraft/internal/utils"
)

var entityTables = map[iql.EntityType]storage.Table{
	iql.EntityUsers:    storage.TableUsers,
	iql.EntityProjects: storage.TableProjects,
	iql.EntityIssues:   storage.TableIssues,
	iql.EntityComments: storage.TableComments,
}

// defaultColumns is the projection used by SELECT *.
func defaultColumns(entity iql.EntityType) []string {
	switch entity {
	case iql.EntityUsers:
		return types.UserColumns
	case iql.EntityProjects:
		return types.ProjectColumns
	case iql.EntityIssues:
		return types.IssueColumns
	case iql.EntityComments:
		return types.CommentColumns
	}
	return nil
}

// executeSelect runs the read pipeline: scan, filter, sort, offset,
// limit, project. The whole read happens in one read-only transaction.
func (e *Engine) executeSelect(ctx context.Context, s *iql.SelectStmt) (*Result, error) {
	fields := knownFields(s.From)

	columns := s.Columns
	if columns == nil {
		columns = defaultColumns(s.From)
	}
	for _, col := range columns {
		if !fields[col] {
			return nil, unknownRef(s.From.Singular()+" field", col)
		}
	}
	if s.Where != nil {
		if err := checkFilterFields(s.Where, s.From, fields); err != nil {
			return nil, err
		}
	}
	if s.OrderBy != nil && !fields[s.OrderBy.Field] {
		return nil, unknownRef(s.From.Singular()+" field", s.OrderBy.Field)
	}

	tx, err := e.store.View(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entries, err := tx.Scan(ctx, entityTables[s.From])
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(s.From, entries)
	if err != nil {
		return nil, err
	}

	if s.Where != nil {
		kept := records[:0]
		for _, rec := range records {
			if evalFilter(s.Where, rec) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	if s.OrderBy != nil {
		sortRecords(records, s.From, s.OrderBy)
	}

	if s.Offset != nil {
		if *s.Offset >= len(records) {
			records = nil
		} else {
			records = records[*s.Offset:]
		}
	}
	if s.Limit != nil && *s.Limit < len(records) {
		records = records[:*s.Limit]
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if val, ok := rec.Field(col); ok {
				row[i] = fmt.Sprint(val)
			}
		}
		rows = append(rows, row)
	}
	return &Result{Columns: columns, Rows: rows, Affected: len(rows)}, nil
}

func decodeRecords(entity iql.EntityType, entries []storage.Entry) ([]record, error) {
	records := make([]record, 0, len(entries))
	for _, entry := range entries {
		var rec record
		var err error
		switch entity {
		case iql.EntityUsers:
			u := new(types.User)
			err = json.Unmarshal(entry.Value, u)
			rec = u
		case iql.EntityProjects:
			p := new(types.Project)
			err = json.Unmarshal(entry.Value, p)
			rec = p
		case iql.EntityIssues:
			i := new(types.Issue)
			err = json.Unmarshal(entry.Value, i)
			rec = i
		case iql.EntityComments:
			c := new(types.Comment)
			err = json.Unmarshal(entry.Value, c)
			rec = c
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", entity, entry.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// sortRecords stably sorts by the ORDER BY field. Priorities order by
// rank, issue and comment IDs by their numeric sequence, everything else
// lexicographically. Unset fields sort before set ones ascending.
func sortRecords(records []record, entity iql.EntityType, ob *iql.OrderBy) {
	less := func(a, b record) bool {
		av, aok := a.Field(ob.Field)
		bv, bok := b.Field(ob.Field)
		if aok != bok {
			return !aok
		}
		as, bs := fmt.Sprint(av), fmt.Sprint(bv)
		switch {
		case ob.Field == "priority":
			return types.Priority(as).Rank() < types.Priority(bs).Rank()
		case entity == iql.EntityIssues && (ob.Field == "issue_id" || ob.Field == "id"):
			return lessIssueID(as, bs)
		case entity == iql.EntityComments && (ob.Field == "comment_id" || ob.Field == "id"):
			return lessCommentID(as, bs)
		}
		return as < bs
	}
	sort.SliceStable(records, func(i, j int) bool {
		if ob.Descending {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

// lessIssueID orders issue IDs by project, then numeric sequence, so
// webapp#2 sorts before webapp#10.
func lessIssueID(a, b string) bool {
	ap, aseq, aerr := utils.SplitIssueID(a)
	bp, bseq, berr := utils.SplitIssueID(b)
	if aerr != nil || berr != nil {
		return a < b
	}
	if ap != bp {
		return ap < bp
	}
	return aseq < bseq
}

// lessCommentID orders C<n> identifiers numerically.
func lessCommentID(a, b string) bool {
	an, aerr := strconv.Atoi(strings.TrimPrefix(a, "C"))
	bn, berr := strconv.Atoi(strings.TrimPrefix(b, "C"))
	if aerr != nil || berr != nil {
		return a < b
	}
	return an < bn
}
