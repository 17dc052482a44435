// Package jobs runs scheduled background maintenance for the tracker.
//
// Jobs are cron-based (github.com/robfig/cron/v3; five-field specs, an
// optional leading seconds field, or descriptors) and managed through
// JobManager:
//
//	jm := jobs.NewJobManager(
//		jobs.NewNotificationRetryJob(tracker, cfg.Notify.RetrySchedule),
//		jobs.NewIdempotencyPurgeJob(purger, cfg.Notify.PurgeSchedule),
//	)
//	if err := jm.StartAll(); err != nil {
//		log.Fatal().Err(err).Msg("start jobs")
//	}
//	defer jm.StopAll()
//
// # Available jobs
//
//  1. NotificationRetryJob re-dispatches orders whose current status was
//     never notified. It does nothing while auto-notify is off.
//  2. IdempotencyPurgeJob deletes idempotency records whose replay window
//     has closed.
//
// A job with an empty schedule is disabled: Start logs and returns nil.
// A run never overlaps the previous run of the same job.
package jobs
