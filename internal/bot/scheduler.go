// internal/bot/scheduler.go
package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type StaleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

type Sweeper interface {
	Sweep() int
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	expirer StaleExpirer
	sweeper Sweeper
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler builds the job table. sweeper may be nil when counters live in Redis.
func NewScheduler(expirer StaleExpirer, sweeper Sweeper, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		expirer: expirer,
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger.With(zap.String("feature", "scheduler")),
	}

	if _, err := s.cron.AddFunc("@every 1h", s.expireStale); err != nil {
		return nil, errors.Wrap(err, "could not set up expiry job")
	}
	if sweeper != nil {
		if _, err := s.cron.AddFunc("@midnight", s.sweep); err != nil {
			return nil, errors.Wrap(err, "could not set up sweep job")
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) expireStale() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("expiring stale challenges failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired stale challenges", zap.Int("count", n))
	}
}

func (s *Scheduler) sweep() {
	n := s.sweeper.Sweep()
	s.logger.Debug("swept rate limit counters", zap.Int("count", n))
}
