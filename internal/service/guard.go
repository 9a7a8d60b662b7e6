package service

import (
	"context"
	"errors"
	"fmt"

	"editionlinks/internal/domain"
	"editionlinks/internal/metrics"
)

// withPublishGuard runs write against edition. If the repository refuses
// because the edition is published, the edition is set inactive, write is
// retried once, and the edition is set active again on every exit path.
// Any other error is returned as is.
//
// committed reports whether write took effect. It can be true together with
// a non-nil err when only the republish failed.
func (r *ReconcileService) withPublishGuard(ctx context.Context, edition domain.Item, write func(context.Context) error) (committed bool, err error) {
	err = write(ctx)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrPublished) {
		return false, err
	}

	r.logger.Info("edition is published, unpublishing to change relations", "edition", edition.PID)

	if err := r.repo.SetObjectState(ctx, edition.PID, domain.StateInactive, domain.StateComment); err != nil {
		return false, fmt.Errorf("unpublish edition: %w", err)
	}
	r.eventBus.Publish(Event{Type: EventEditionUnpublished, Edition: edition.PID})

	defer func() {
		// The edition must not stay unpublished because the caller gave up
		restoreCtx := context.WithoutCancel(ctx)
		if restoreErr := r.repo.SetObjectState(restoreCtx, edition.PID, domain.StateActive, domain.StateComment); restoreErr != nil {
			r.logger.Error("failed to republish edition", "edition", edition.PID, "error", restoreErr)
			err = errors.Join(err, fmt.Errorf("republish edition: %w", restoreErr))
			return
		}
		r.eventBus.Publish(Event{Type: EventEditionRepublished, Edition: edition.PID})
	}()

	err = write(ctx)
	committed = err == nil
	metrics.RecordPublishGuard(committed)
	return committed, err
}
