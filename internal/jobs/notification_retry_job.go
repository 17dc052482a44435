package jobs

import "context"

// Resender re-dispatches every order whose current status entry has not
// been notified.
type Resender interface {
	ResendPending(ctx context.Context) (attempted, sent int, err error)
}

// NotificationRetryJob periodically retries failed or skipped notifications.
type NotificationRetryJob struct {
	scheduled
	resender Resender
}

// NewNotificationRetryJob creates the retry job. An empty spec disables it.
func NewNotificationRetryJob(r Resender, spec string) *NotificationRetryJob {
	j := &NotificationRetryJob{resender: r}
	j.scheduled = newScheduled("notification_retry_job", spec, j.RunOnce)
	return j
}

// RunOnce performs one retry pass.
func (j *NotificationRetryJob) RunOnce(ctx context.Context) error {
	attempted, sent, err := j.resender.ResendPending(ctx)
	if err != nil {
		return err
	}
	if attempted > 0 {
		j.logger.Info().Int("attempted", attempted).Int("sent", sent).Msg("notification retry pass")
	}
	return nil
}
