package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rschio/sunbed/internal/logger"
)

// Scheduler runs a Job once when started and then every day at local
// midnight.
type Scheduler struct {
	log  *slog.Logger
	job  *Job
	cron *cron.Cron
	now  func() time.Time
}

func NewScheduler(log *slog.Logger, job *Job) *Scheduler {
	cl := cron.PrintfLogger(logger.StdLogger(log, slog.LevelInfo))

	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	return &Scheduler{
		log:  log,
		job:  job,
		cron: c,
		now:  time.Now,
	}
}

// Start runs the job and registers the daily run.
func (s *Scheduler) Start() error {
	s.job.Run(s.now())

	if _, err := s.cron.AddFunc("@midnight", func() { s.job.Run(s.now()) }); err != nil {
		return err
	}
	s.cron.Start()

	s.log.Info("startup", "status", "backup scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
