// Package index resolves the newspaper titles an edition should be linked to
// by querying the repository's search index.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"editionlinks/internal/domain"
)

// Index field names and values for newspaper title records
const (
	FieldItemModel     = "item_model"
	FieldAvisID        = "newspapr_title_avisID"
	FieldStartDate     = "newspapr_title_startDate"
	FieldEndDate       = "newspapr_title_endDate"
	FieldUUID          = "item_uuid"
	TitleContentModel  = "doms:ContentModel_Newspaper"
	wildcard           = "*"
	unboundedRowsLimit = math.MaxInt32
)

// Query is a single search request
type Query struct {
	Q      string
	Start  int
	Rows   int
	Fields []string
	Facet  bool
}

// Row is one search result, keyed by field name
type Row map[string]any

// Searcher executes search queries against the index
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Row, error)
}

// TitleIndex finds the title records valid for an avis id on a date
type TitleIndex struct {
	searcher Searcher
}

// NewTitleIndex creates a title index backed by the given searcher
func NewTitleIndex(searcher Searcher) *TitleIndex {
	return &TitleIndex{searcher: searcher}
}

// WantedTitles returns the titles whose avis id matches and whose validity
// window covers date
func (t *TitleIndex) WantedTitles(ctx context.Context, avisID, date string) (domain.ItemSet, error) {
	q := TitleQuery(avisID, date)

	rows, err := t.searcher.Search(ctx, q)
	if err != nil {
		return nil, &domain.IndexQueryError{Query: q.Q, Err: err}
	}

	titles := make(domain.ItemSet, len(rows))
	for i, row := range rows {
		uuid, ok := rowString(row, FieldUUID)
		if !ok {
			return nil, &domain.IndexQueryError{
				Query: q.Q,
				Err:   fmt.Errorf("result %d has no %s", i, FieldUUID),
			}
		}
		titles.Add(domain.NewItem(uuid))
	}

	return titles, nil
}

// TitleQuery builds the index query for titles matching avisID on date.
// All result rows are fetched in one page, only the uuid field is returned,
// and faceting is switched off.
func TitleQuery(avisID, date string) Query {
	clauses := []string{
		Term(FieldItemModel, TitleContentModel),
		Term(FieldAvisID, avisID),
		Range(FieldStartDate, wildcard, date),
		Range(FieldEndDate, date, wildcard),
	}

	return Query{
		Q:      strings.Join(clauses, " AND "),
		Start:  0,
		Rows:   unboundedRowsLimit,
		Fields: []string{FieldUUID},
		Facet:  false,
	}
}

// Term renders field:"value"
func Term(field, value string) string {
	return field + ":" + quote(value)
}

// Range renders field:[from TO to]; a "*" bound is left open
func Range(field, from, to string) string {
	return fmt.Sprintf("%s:[%s TO %s]", field, bound(from), bound(to))
}

func bound(v string) string {
	if v == wildcard {
		return wildcard
	}
	return quote(v)
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Unquote reverses quote; it reports false when v is not a quoted value
func Unquote(v string) (string, bool) {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return "", false
	}

	var b strings.Builder
	inner := v[1 : len(v)-1]
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' {
			if i+1 >= len(inner) {
				return "", false
			}
			i++
			c = inner[i]
		} else if c == '"' {
			return "", false
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

// rowString reads a field that may come back as a scalar or a multi-valued list
func rowString(row Row, field string) (string, bool) {
	switch v := row[field].(type) {
	case string:
		return v, v != ""
	case []string:
		if len(v) > 0 && v[0] != "" {
			return v[0], true
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// IsQueryError reports whether err came from a failed index query
func IsQueryError(err error) bool {
	var qe *domain.IndexQueryError
	return errors.As(err, &qe)
}
