package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a record or datastream does not exist
var ErrNotFound = errors.New("not found")

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt converts a bool to SQLite's 0/1 representation
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Date Helpers
// ============================================================================

// dateKey reduces an ISO date or date-time to its YYYY-MM-DD day so that
// edition timestamps compare correctly against title validity dates
func dateKey(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 10 && v[4] == '-' && v[7] == '-' {
		return v[:10]
	}
	return v
}
