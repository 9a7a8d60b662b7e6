package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"editionlinks/internal/domain"
)

// EventID names the work a batch performs on each edition
const EventID = "Editions_relations_generated"

// Reconciler reconciles a single edition
type Reconciler interface {
	Reconcile(ctx context.Context, edition domain.Item) (*Result, error)
}

// ItemResult is the outcome for one edition in a batch
type ItemResult struct {
	Edition  domain.Item   `json:"edition"`
	EventID  string        `json:"event_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Added    []domain.Item `json:"added,omitempty"`
	Removed  []domain.Item `json:"removed,omitempty"`
	Duration time.Duration `json:"duration"`

	err error
}

// Err returns the failure of this edition, if any
func (r ItemResult) Err() error {
	return r.err
}

// BatchResult collects the outcome of a batch run
type BatchResult struct {
	RunID    string       `json:"run_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Items    []ItemResult `json:"items"`
}

// ContainsFailures reports whether any edition failed
func (b *BatchResult) ContainsFailures() bool {
	return b.Failures() > 0
}

// Failures counts failed editions
func (b *BatchResult) Failures() int {
	n := 0
	for _, item := range b.Items {
		if !item.Success {
			n++
		}
	}
	return n
}

// BatchRunner reconciles many editions with bounded concurrency. Each edition
// is reconciled at most once per run, so no two workers touch the same edition.
type BatchRunner struct {
	reconciler Reconciler
	workers    int
	eventBus   *EventBus
	logger     *slog.Logger
}

// NewBatchRunner creates a batch runner. workers below 1 means 1.
func NewBatchRunner(reconciler Reconciler, workers int, eventBus *EventBus, logger *slog.Logger) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		reconciler: reconciler,
		workers:    workers,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Run reconciles every edition and returns one ItemResult per distinct
// edition, in input order. A failing edition never stops the others.
func (b *BatchRunner) Run(ctx context.Context, editions []domain.Item) *BatchResult {
	batch := &BatchResult{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}

	editions = dedupe(editions)
	batch.Items = make([]ItemResult, len(editions))

	b.logger.Info("starting batch", "run_id", batch.RunID, "editions", len(editions), "workers", b.workers)

	var g errgroup.Group
	g.SetLimit(b.workers)

	for i, edition := range editions {
		g.Go(func() error {
			batch.Items[i] = b.runOne(ctx, edition)
			return nil
		})
	}
	_ = g.Wait()

	batch.Finished = time.Now()
	b.logger.Info("batch finished",
		"run_id", batch.RunID,
		"editions", len(batch.Items),
		"failures", batch.Failures(),
		"elapsed", batch.Finished.Sub(batch.Started))

	return batch
}

func (b *BatchRunner) runOne(ctx context.Context, edition domain.Item) ItemResult {
	item := ItemResult{Edition: edition, EventID: EventID}
	start := time.Now()

	if err := ctx.Err(); err != nil {
		item.err = err
	} else {
		result, err := b.reconciler.Reconcile(ctx, edition)
		item.err = err
		if result != nil {
			item.Added = result.Added
			item.Removed = result.Removed
		}
	}

	item.Duration = time.Since(start)
	item.Success = item.err == nil

	if item.err != nil {
		item.Error = item.err.Error()
		b.logger.Error("edition failed", "edition", edition.PID, "error", item.err)
		b.eventBus.Publish(Event{Type: EventEditionFailed, Edition: edition.PID, Payload: item.Error})
	} else {
		b.eventBus.Publish(Event{Type: EventEditionReconciled, Edition: edition.PID, Payload: map[string]int{
			"added":   len(item.Added),
			"removed": len(item.Removed),
		}})
	}

	return item
}

func dedupe(editions []domain.Item) []domain.Item {
	seen := make(domain.ItemSet, len(editions))
	out := make([]domain.Item, 0, len(editions))
	for _, e := range editions {
		if e.PID == "" || seen.Contains(e) {
			continue
		}
		seen.Add(e)
		out = append(out, e)
	}
	return out
}
