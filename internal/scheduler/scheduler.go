// Package scheduler runs the digest on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"job-digest/internal/logger"
)

// Job is one digest run.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron. Runs never overlap and runs falling on a
// skipped weekday are dropped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	loc  *time.Location
	skip []time.Weekday
	job  Job
	now  func() time.Time
	log  zerolog.Logger
}

func New(spec string, loc *time.Location, skip []time.Weekday, job Job) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	log := logger.Get().With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec: spec,
		loc:  loc,
		skip: slices.Clone(skip),
		job:  job,
		now:  time.Now,
		log:  log,
	}
}

// Start registers the job and starts the cron loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Str("timezone", s.loc.String()).Msg("Cron started")
	return nil
}

// Stop halts the loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Cron stopped")
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunOnce executes the job unless today is a skipped weekday. Job errors
// are logged, never returned, so the loop keeps going.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	today := s.now().In(s.loc).Weekday()
	if slices.Contains(s.skip, today) {
		s.log.Info().Str("weekday", today.String()).Msg("Skipping scheduled run")
		return false
	}

	s.log.Info().Msg("Scheduled run started")
	start := s.now()
	if err := s.job(ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled run failed")
		return true
	}
	s.log.Info().Dur("took", s.now().Sub(start)).Msg("Scheduled run complete")
	return true
}

// cronLogger routes robfig/cron's logging into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
