package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"editionlinks/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository is a local document repository and title index backed by SQLite
type Repository struct {
	db           *sql.DB
	guardPublish bool
}

// Option configures a Repository
type Option func(*Repository)

// WithPublishGuard makes relation writes on active records fail with
// domain.ErrPublished, as the production repository does
func WithPublishGuard(enabled bool) Option {
	return func(r *Repository) {
		r.guardPublish = enabled
	}
}

// New opens (creating if needed) a SQLite repository
func New(dbPath string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases and pragmas consistent
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, guardPublish: true}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	pragmas := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	PRAGMA foreign_keys = ON;
	`
	if _, err := r.db.Exec(pragmas); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS objects (
		pid TEXT PRIMARY KEY,
		state TEXT NOT NULL DEFAULT 'A',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS datastreams (
		pid TEXT NOT NULL,
		name TEXT NOT NULL,
		content BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (pid, name),
		FOREIGN KEY (pid) REFERENCES objects(pid) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS relations (
		pid TEXT NOT NULL,
		subject TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object TEXT NOT NULL,
		is_literal INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (pid, subject, predicate, object),
		FOREIGN KEY (pid) REFERENCES objects(pid) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS titles (
		pid TEXT PRIMARY KEY,
		item_model TEXT NOT NULL,
		avis_id TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		FOREIGN KEY (pid) REFERENCES objects(pid) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_relations_predicate ON relations(pid, predicate);
	CREATE INDEX IF NOT EXISTS idx_titles_avis ON titles(avis_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// GetDocument returns the content of a datastream
func (r *Repository) GetDocument(ctx context.Context, pid, datastream string) ([]byte, error) {
	var content []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT content FROM datastreams WHERE pid = ? AND name = ?
	`, pid, datastream).Scan(&content)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.TransportError{Op: "get datastream " + datastream, PID: pid, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &domain.TransportError{Op: "get datastream " + datastream, PID: pid, Err: err}
	}
	return content, nil
}

// ListNamedRelations lists relations recorded on pid with the predicate.
// A non-empty object restricts the result to that object.
func (r *Repository) ListNamedRelations(ctx context.Context, pid, predicate, object string) ([]domain.Relation, error) {
	query := `SELECT subject, predicate, object FROM relations WHERE pid = ? AND predicate = ?`
	args := []any{pid, predicate}
	if object != "" {
		query += ` AND object = ?`
		args = append(args, object)
	}
	query += ` ORDER BY object`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.TransportError{Op: "list relations", PID: pid, Err: err}
	}
	defer rows.Close()

	var relations []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		if err := rows.Scan(&rel.Subject, &rel.Predicate, &rel.Object); err != nil {
			return nil, &domain.TransportError{Op: "list relations", PID: pid, Err: err}
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.TransportError{Op: "list relations", PID: pid, Err: err}
	}

	return relations, nil
}

// AddRelation records a relation on pid. Adding an existing relation is a no-op.
func (r *Repository) AddRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error {
	return r.writeRelation(ctx, "add relation", pid, `
		INSERT OR IGNORE INTO relations (pid, subject, predicate, object, is_literal)
		VALUES (?, ?, ?, ?, ?)
	`, pid, subject, predicate, object, boolToInt(literal))
}

// DeleteRelation removes a relation from pid. Removing a missing relation is a no-op.
func (r *Repository) DeleteRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error {
	return r.writeRelation(ctx, "delete relation", pid, `
		DELETE FROM relations
		WHERE pid = ? AND subject = ? AND predicate = ? AND object = ? AND is_literal = ?
	`, pid, subject, predicate, object, boolToInt(literal))
}

func (r *Repository) writeRelation(ctx context.Context, op, pid, stmt string, args ...any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.TransportError{Op: op, PID: pid, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	state, err := objectState(ctx, tx, pid)
	if err != nil {
		return &domain.TransportError{Op: op, PID: pid, Err: err}
	}
	if r.guardPublish && state == domain.StateActive {
		return &domain.TransportError{Op: op, PID: pid, Err: domain.ErrPublished}
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return &domain.TransportError{Op: op, PID: pid, Err: err}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE objects SET updated_at = CURRENT_TIMESTAMP WHERE pid = ?
	`, pid); err != nil {
		return &domain.TransportError{Op: op, PID: pid, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.TransportError{Op: op, PID: pid, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// SetObjectState changes the publication state of pid
func (r *Repository) SetObjectState(ctx context.Context, pid string, state domain.State, comment string) error {
	if state != domain.StateActive && state != domain.StateInactive {
		return &domain.TransportError{Op: "set state", PID: pid, Err: fmt.Errorf("invalid state %q", state)}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE objects SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE pid = ?
	`, string(state), pid)
	if err != nil {
		return &domain.TransportError{Op: "set state " + string(state), PID: pid, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &domain.TransportError{Op: "set state " + string(state), PID: pid, Err: err}
	}
	if affected == 0 {
		return &domain.TransportError{Op: "set state " + string(state), PID: pid, Err: ErrNotFound}
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func objectState(ctx context.Context, q queryer, pid string) (domain.State, error) {
	var state string
	err := q.QueryRowContext(ctx, `SELECT state FROM objects WHERE pid = ?`, pid).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query object state: %w", err)
	}
	return domain.State(state), nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
