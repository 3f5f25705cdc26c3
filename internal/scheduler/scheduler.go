package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// jobTimeout bounds a single job run
const jobTimeout = 30 * time.Minute

// Scheduler manages the worker's periodic jobs. Each job is chained
// with SkipIfStillRunning, so at most one instance of a given job is
// ever in flight
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger *slog.Logger
}

// New creates a scheduler
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)))

	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]cron.EntryID),
		logger: logger,
	}
}

// AddInterval schedules a job to run repeatedly at the given interval
func (s *Scheduler) AddInterval(name string, every time.Duration, job Job) error {
	spec := fmt.Sprintf("@every %s", every)
	entryID, err := s.cron.AddFunc(spec, s.wrap(name, job))
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = entryID
	s.logger.Info("scheduled job", "job", name, "every", every)
	return nil
}

// RunNow executes a registered job immediately, outside its schedule.
// The run goes through the same wrapper chain as scheduled runs, so a
// manual run never overlaps an in-flight scheduled one (and vice versa)
func (s *Scheduler) RunNow(name string) {
	entryID, ok := s.jobs[name]
	if !ok {
		s.logger.Warn("cannot run unknown job", "job", name)
		return
	}
	s.logger.Info("running job now", "job", name)
	s.cron.Entry(entryID).WrappedJob.Run()
}

// wrap gives a job a bounded context and start/finish logging
func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		s.logger.Info("job starting", "job", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("job completed", "job", name, "duration", time.Since(start).Round(time.Millisecond))
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running
// jobs have finished
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// cronLogger adapts slog to the cron.Logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
