package sqlite

import (
	"context"
	"fmt"

	"editionlinks/internal/domain"
	"editionlinks/internal/index"
)

// ImportStrategy controls how an import treats existing data
type ImportStrategy string

const (
	ImportMerge   ImportStrategy = "merge"
	ImportReplace ImportStrategy = "replace"
)

// ImportResult counts the records written by an import
type ImportResult struct {
	Titles    int `json:"titles"`
	Editions  int `json:"editions"`
	Relations int `json:"relations"`
}

// Import loads a dataset in a single transaction. Replace clears all existing
// records first; merge upserts over them.
func (r *Repository) Import(ctx context.Context, ds *domain.Dataset, strategy ImportStrategy) (*ImportResult, error) {
	if strategy == "" {
		strategy = ImportMerge
	}
	if strategy != ImportMerge && strategy != ImportReplace {
		return nil, fmt.Errorf("invalid strategy %s, must be 'merge' or 'replace'", strategy)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if strategy == ImportReplace {
		// Order matters due to foreign keys
		for _, table := range []string{"relations", "datastreams", "titles", "objects"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return nil, fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	objectStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO objects (pid, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pid) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare object statement: %w", err)
	}
	defer objectStmt.Close()

	titleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO titles (pid, item_model, avis_id, start_date, end_date) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pid) DO UPDATE SET
			avis_id = excluded.avis_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare title statement: %w", err)
	}
	defer titleStmt.Close()

	dsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO datastreams (pid, name, content, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pid, name) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare datastream statement: %w", err)
	}
	defer dsStmt.Close()

	relStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO relations (pid, subject, predicate, object, is_literal) VALUES (?, ?, ?, ?, 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare relation statement: %w", err)
	}
	defer relStmt.Close()

	result := &ImportResult{}

	for _, title := range ds.Titles {
		if title.PID == "" {
			return nil, fmt.Errorf("title without pid")
		}
		if _, err := objectStmt.ExecContext(ctx, title.PID, string(stateOrActive(title.State))); err != nil {
			return nil, fmt.Errorf("failed to insert title object %s: %w", title.PID, err)
		}
		if _, err := titleStmt.ExecContext(ctx, title.PID, index.TitleContentModel, title.AvisID,
			stringToNull(dateKey(title.StartDate)), stringToNull(dateKey(title.EndDate))); err != nil {
			return nil, fmt.Errorf("failed to insert title %s: %w", title.PID, err)
		}
		result.Titles++
	}

	for _, edition := range ds.Editions {
		if edition.PID == "" {
			return nil, fmt.Errorf("edition without pid")
		}
		if _, err := objectStmt.ExecContext(ctx, edition.PID, string(stateOrActive(edition.State))); err != nil {
			return nil, fmt.Errorf("failed to insert edition %s: %w", edition.PID, err)
		}
		if len(edition.Metadata) > 0 {
			if _, err := dsStmt.ExecContext(ctx, edition.PID, domain.EditionDatastream, edition.Metadata); err != nil {
				return nil, fmt.Errorf("failed to insert metadata for %s: %w", edition.PID, err)
			}
		}
		for _, title := range edition.Titles {
			rel := domain.NewRelation(domain.NewItem(edition.PID), domain.PredicateIsPartOfNewspaper, title)
			if _, err := relStmt.ExecContext(ctx, edition.PID, rel.Subject, rel.Predicate, rel.Object); err != nil {
				return nil, fmt.Errorf("failed to insert relation %s -> %s: %w", edition.PID, title, err)
			}
			result.Relations++
		}
		result.Editions++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func stateOrActive(s domain.State) domain.State {
	if s == "" {
		return domain.StateActive
	}
	return s
}
