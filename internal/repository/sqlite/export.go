package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"editionlinks/internal/domain"
)

// Export reads every title and edition back as a dataset. Editions are the
// objects with an edition metadata datastream; their titles are the targets
// of their title relations.
func (r *Repository) Export(ctx context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{}

	titleRows, err := r.db.QueryContext(ctx, `
		SELECT t.pid, t.avis_id, t.start_date, t.end_date, o.state
		FROM titles t JOIN objects o ON o.pid = t.pid
		ORDER BY t.pid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer titleRows.Close()

	for titleRows.Next() {
		var (
			title      domain.Title
			start, end sql.NullString
			state      string
		)
		if err := titleRows.Scan(&title.PID, &title.AvisID, &start, &end, &state); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		title.StartDate = nullToString(start)
		title.EndDate = nullToString(end)
		title.State = domain.State(state)
		ds.Titles = append(ds.Titles, title)
	}
	if err := titleRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	// Each cursor is closed before the next query; the pool holds one connection
	titleRows.Close()

	editionRows, err := r.db.QueryContext(ctx, `
		SELECT o.pid, o.state, d.content
		FROM objects o JOIN datastreams d ON d.pid = o.pid AND d.name = ?
		ORDER BY o.pid
	`, domain.EditionDatastream)
	if err != nil {
		return nil, fmt.Errorf("failed to query editions: %w", err)
	}
	defer editionRows.Close()

	for editionRows.Next() {
		var (
			edition domain.Edition
			state   string
		)
		if err := editionRows.Scan(&edition.PID, &state, &edition.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan edition: %w", err)
		}
		edition.State = domain.State(state)
		ds.Editions = append(ds.Editions, edition)
	}
	if err := editionRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read editions: %w", err)
	}

	editionRows.Close()
	for i := range ds.Editions {
		rels, err := r.ListNamedRelations(ctx, ds.Editions[i].PID, domain.PredicateIsPartOfNewspaper, "")
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			ds.Editions[i].Titles = append(ds.Editions[i].Titles, rel.Target())
		}
	}

	return ds, nil
}
