package backup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner performs one backup.
type Runner interface {
	RunNow(ctx context.Context) (string, error)
}

// Scheduler runs backups on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *zap.Logger
	timeout time.Duration
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as @daily).
func NewScheduler(spec string, runner Runner, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		log:     log.Named("backup.scheduler"),
		timeout: 30 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	name, err := s.runner.RunNow(ctx)
	if err != nil {
		s.log.Error("scheduled backup failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled backup done", zap.String("file", name))
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("backup scheduler started", zap.Time("next", s.Next()))
}

// Next returns the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
