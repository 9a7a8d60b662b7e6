package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"editionlinks/internal/index"
)

// titleColumns maps index fields onto columns of the titles table
var titleColumns = map[string]string{
	index.FieldUUID:      "pid",
	index.FieldItemModel: "item_model",
	index.FieldAvisID:    "avis_id",
	index.FieldStartDate: "start_date",
	index.FieldEndDate:   "end_date",
}

// dateFields are compared by day and treat a missing value as unbounded
var dateFields = map[string]bool{
	index.FieldStartDate: true,
	index.FieldEndDate:   true,
}

// Search evaluates a conjunctive Term/Range query over the titles table
func (r *Repository) Search(ctx context.Context, q index.Query) ([]index.Row, error) {
	clauses, err := index.ParseClauses(q.Q)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	where, args, err := buildWhere(clauses)
	if err != nil {
		return nil, err
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{index.FieldUUID, index.FieldItemModel, index.FieldAvisID, index.FieldStartDate, index.FieldEndDate}
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := titleColumns[f]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", f)
		}
		cols = append(cols, col)
	}

	query := "SELECT " + strings.Join(cols, ", ") + " FROM titles"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY pid LIMIT ? OFFSET ?"

	limit := q.Rows
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, q.Start)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var results []index.Row
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}

		row := make(index.Row, len(fields))
		for i, f := range fields {
			if values[i].Valid {
				row[f] = nullToString(values[i])
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating titles: %w", err)
	}

	return results, nil
}

func buildWhere(clauses []index.Clause) (string, []any, error) {
	var (
		conds []string
		args  []any
	)

	for _, c := range clauses {
		col, ok := titleColumns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown field %q", c.Field)
		}

		if !c.IsRange {
			value := c.Value
			if dateFields[c.Field] {
				value = dateKey(value)
			}
			conds = append(conds, col+" = ?")
			args = append(args, value)
			continue
		}

		from, to := c.From, c.To
		if dateFields[c.Field] {
			from, to = dateKey(from), dateKey(to)
		}

		var parts []string
		if from != "*" {
			parts = append(parts, col+" >= ?")
			args = append(args, from)
		}
		if to != "*" {
			parts = append(parts, col+" <= ?")
			args = append(args, to)
		}
		if len(parts) == 0 {
			// [* TO *] matches any value, including none
			continue
		}

		cond := strings.Join(parts, " AND ")
		if dateFields[c.Field] {
			cond = "(" + col + " IS NULL OR (" + cond + "))"
		}
		conds = append(conds, cond)
	}

	return strings.Join(conds, " AND "), args, nil
}
