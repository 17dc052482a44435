package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRunTimeout bounds a single run.
const DefaultRunTimeout = time.Minute

// scheduled is the cron plumbing shared by every job.
type scheduled struct {
	name    string
	spec    string
	timeout time.Duration
	run     func(ctx context.Context) error

	cron   *cron.Cron
	logger zerolog.Logger
}

// specParser accepts standard five-field specs, a leading seconds field and
// descriptors like @every 5m.
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func newScheduled(name, spec string, run func(ctx context.Context) error) scheduled {
	logger := log.With().Str("component", name).Logger()
	return scheduled{
		name:    name,
		spec:    spec,
		timeout: DefaultRunTimeout,
		run:     run,
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// Name identifies the job in logs.
func (s *scheduled) Name() string { return s.name }

// Enabled reports whether a schedule is configured.
func (s *scheduled) Enabled() bool { return s.spec != "" }

// Start registers the job and starts its scheduler.
func (s *scheduled) Start() error {
	if !s.Enabled() {
		s.logger.Info().Msg("job disabled (no schedule)")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("schedule %s %q: %w", s.name, s.spec, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("job started")
	return nil
}

// Stop halts the scheduler and waits for a running tick to finish.
func (s *scheduled) Stop() {
	if !s.Enabled() {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("job stopped")
}

func (s *scheduled) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("job run failed")
	}
}
