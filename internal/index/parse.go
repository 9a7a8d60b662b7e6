package index

import (
	"fmt"
	"strings"
)

// Clause is one conjunct of a query built by Term or Range
type Clause struct {
	Field   string
	Value   string
	IsRange bool
	From    string // "*" when open
	To      string // "*" when open
}

// ParseClauses splits a conjunctive query built from Term and Range clauses
// joined by AND. It is used by backends that evaluate queries themselves.
func ParseClauses(q string) ([]Clause, error) {
	parts, err := splitAnd(q)
	if err != nil {
		return nil, err
	}

	clauses := make([]Clause, 0, len(parts))
	for _, part := range parts {
		c, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// splitAnd splits on the AND operator outside quoted values
func splitAnd(q string) ([]string, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("empty query")
	}

	var (
		parts   []string
		current strings.Builder
		quoted  bool
	)

	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\\' && quoted && i+1 < len(q):
			current.WriteByte(c)
			i++
			current.WriteByte(q[i])
			continue
		case c == '"':
			quoted = !quoted
		case !quoted && strings.HasPrefix(q[i:], " AND "):
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
			i += len(" AND ") - 1
			continue
		}
		current.WriteByte(c)
	}

	if quoted {
		return nil, fmt.Errorf("unterminated quote in query")
	}
	return append(parts, strings.TrimSpace(current.String())), nil
}

func parseClause(s string) (Clause, error) {
	field, value, ok := strings.Cut(s, ":")
	if !ok || field == "" || strings.ContainsAny(field, ` "`) {
		return Clause{}, fmt.Errorf("invalid clause %q", s)
	}

	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		from, to, err := parseRange(value[1 : len(value)-1])
		if err != nil {
			return Clause{}, fmt.Errorf("invalid range in %q: %w", s, err)
		}
		return Clause{Field: field, IsRange: true, From: from, To: to}, nil
	}

	v, ok := Unquote(value)
	if !ok {
		return Clause{}, fmt.Errorf("invalid term value in %q", s)
	}
	return Clause{Field: field, Value: v}, nil
}

func parseRange(body string) (string, string, error) {
	idx := indexOutsideQuotes(body, " TO ")
	if idx < 0 {
		return "", "", fmt.Errorf("missing TO")
	}

	from, err := parseBound(strings.TrimSpace(body[:idx]))
	if err != nil {
		return "", "", err
	}
	to, err := parseBound(strings.TrimSpace(body[idx+len(" TO "):]))
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func parseBound(s string) (string, error) {
	if s == wildcard {
		return wildcard, nil
	}
	v, ok := Unquote(s)
	if !ok {
		return "", fmt.Errorf("invalid bound %q", s)
	}
	return v, nil
}

func indexOutsideQuotes(s, sep string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && quoted:
			i++
		case s[i] == '"':
			quoted = !quoted
		case !quoted && strings.HasPrefix(s[i:], sep):
			return i
		}
	}
	return -1
}
