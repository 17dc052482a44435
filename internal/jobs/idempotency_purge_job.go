package jobs

import (
	"context"
	"time"
)

// Purger deletes idempotency records that expired at or before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgerFunc adapts a function to Purger.
type PurgerFunc func(ctx context.Context, now time.Time) (int64, error)

// PurgeExpired calls f.
func (f PurgerFunc) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

// IdempotencyPurgeJob keeps the idempotency table bounded.
type IdempotencyPurgeJob struct {
	scheduled
	purger Purger
	now    func() time.Time
}

// NewIdempotencyPurgeJob creates the purge job. An empty spec disables it.
func NewIdempotencyPurgeJob(p Purger, spec string) *IdempotencyPurgeJob {
	j := &IdempotencyPurgeJob{purger: p, now: time.Now}
	j.scheduled = newScheduled("idempotency_purge_job", spec, j.RunOnce)
	return j
}

// RunOnce performs one purge.
func (j *IdempotencyPurgeJob) RunOnce(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.Info().Int64("deleted", n).Msg("expired idempotency records purged")
	}
	return nil
}
