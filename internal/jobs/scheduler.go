package jobs

import (
	"context"
	"time"

	"revshare/pkg/config"
	"revshare/pkg/logger"
	queue "revshare/pkg/queue/asynq"

	"github.com/robfig/cron/v3"
)

// Scheduler enqueues the daily fetch cycle on a cron spec. The enqueued
// task carries no date; the worker resolves it to yesterday at run time.
type Scheduler struct {
	cron *cron.Cron
	q    *queue.Manager
	spec string
}

// NewScheduler creates the daily fetch scheduler
func NewScheduler(cfg *config.SchedulerConfig, q *queue.Manager) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		q:    q,
		spec: cfg.CronSpec,
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.q.EnqueueFetchCycle(ctx, time.Time{}, false); err != nil {
			logger.Errorf("scheduler: failed to enqueue daily fetch: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Infof("scheduler: daily fetch registered with spec %q", s.spec)
	return nil
}

// Stop halts scheduling and waits for a running enqueue to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
