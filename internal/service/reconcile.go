package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"editionlinks/internal/domain"
	"editionlinks/internal/metadata"
	"editionlinks/internal/metrics"
	"editionlinks/internal/repository"
)

// TitleFinder returns the titles an edition should be linked to
type TitleFinder interface {
	WantedTitles(ctx context.Context, avisID, date string) (domain.ItemSet, error)
}

// ReconcileService keeps the edition to title relations of an edition equal
// to what the title index says they should be
type ReconcileService struct {
	repo     repository.Repository
	titles   TitleFinder
	eventBus *EventBus
	logger   *slog.Logger
}

// NewReconcileService creates a new reconcile service. eventBus may be nil.
func NewReconcileService(repo repository.Repository, titles TitleFinder, eventBus *EventBus, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		repo:     repo,
		titles:   titles,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Result describes what a reconciliation did to one edition
type Result struct {
	Edition  domain.Item            `json:"edition"`
	Metadata domain.EditionMetadata `json:"metadata"`
	Wanted   []domain.Item          `json:"wanted"`
	Existing []domain.Item          `json:"existing"`
	Added    []domain.Item          `json:"added"`
	Removed  []domain.Item          `json:"removed"`
}

// Changed reports whether any relation was written
func (r *Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Reconcile brings the relations of edition in line with the title index.
// Metadata, index and relation read failures abort before anything is
// written. Each add and remove is applied independently; failures are joined
// into the returned error and the Result lists every relation write that took
// effect, including one whose edition could not be republished afterwards.
func (r *ReconcileService) Reconcile(ctx context.Context, edition domain.Item) (result *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeUnchanged
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailed
		case result.Changed():
			outcome = metrics.OutcomeChanged
		}
		metrics.RecordReconcile(outcome, time.Since(start))
	}()

	result = &Result{Edition: edition}

	doc, err := r.repo.GetDocument(ctx, edition.PID, domain.EditionDatastream)
	if err != nil {
		return result, fmt.Errorf("read edition metadata: %w", err)
	}

	meta, err := metadata.Extract(doc)
	if err != nil {
		return result, err
	}
	result.Metadata = meta

	wanted, err := r.titles.WantedTitles(ctx, meta.AvisID, meta.IssueDate)
	if err != nil {
		return result, err
	}

	existing, err := r.existingTitles(ctx, edition)
	if err != nil {
		return result, err
	}

	result.Wanted = wanted.Sorted()
	result.Existing = existing.Sorted()

	toAdd := wanted.Difference(existing)
	toRemove := existing.Difference(wanted)

	r.logger.Debug("computed relation delta",
		"edition", edition.PID,
		"avis_id", meta.AvisID,
		"date", meta.IssueDate,
		"wanted", len(wanted),
		"existing", len(existing),
		"add", len(toAdd),
		"remove", len(toRemove))

	var errs []error

	for _, title := range toAdd.Sorted() {
		committed, err := r.addRelation(ctx, edition, title)
		if committed {
			result.Added = append(result.Added, title)
			metrics.RecordRelationAdded()
			r.logger.Info("added relation", "edition", edition.PID, "title", title.PID)
			r.eventBus.Publish(Event{Type: EventRelationAdded, Edition: edition.PID, Payload: title})
		}
		if err != nil {
			r.logger.Warn("failed to add relation", "edition", edition.PID, "title", title.PID, "committed", committed, "error", err)
			errs = append(errs, fmt.Errorf("add relation to %s: %w", title, err))
		}
	}

	for _, title := range toRemove.Sorted() {
		committed, err := r.removeRelation(ctx, edition, title)
		if committed {
			result.Removed = append(result.Removed, title)
			metrics.RecordRelationRemoved()
			r.logger.Info("removed relation", "edition", edition.PID, "title", title.PID)
			r.eventBus.Publish(Event{Type: EventRelationRemoved, Edition: edition.PID, Payload: title})
		}
		if err != nil {
			r.logger.Warn("failed to remove relation", "edition", edition.PID, "title", title.PID, "committed", committed, "error", err)
			errs = append(errs, fmt.Errorf("remove relation to %s: %w", title, err))
		}
	}

	return result, errors.Join(errs...)
}

// existingTitles returns the titles edition is currently linked to
func (r *ReconcileService) existingTitles(ctx context.Context, edition domain.Item) (domain.ItemSet, error) {
	relations, err := r.repo.ListNamedRelations(ctx, edition.PID, domain.PredicateIsPartOfNewspaper, "")
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	titles := make(domain.ItemSet, len(relations))
	for _, rel := range relations {
		titles.Add(rel.Target())
	}
	return titles, nil
}

func (r *ReconcileService) addRelation(ctx context.Context, edition, title domain.Item) (bool, error) {
	return r.withPublishGuard(ctx, edition, func(ctx context.Context) error {
		return r.repo.AddRelation(ctx, edition.PID, edition.URI(), domain.PredicateIsPartOfNewspaper,
			title.URI(), false, domain.RelationComment)
	})
}

func (r *ReconcileService) removeRelation(ctx context.Context, edition, title domain.Item) (bool, error) {
	return r.withPublishGuard(ctx, edition, func(ctx context.Context) error {
		return r.repo.DeleteRelation(ctx, edition.PID, edition.URI(), domain.PredicateIsPartOfNewspaper,
			title.URI(), false, domain.RelationComment)
	})
}
