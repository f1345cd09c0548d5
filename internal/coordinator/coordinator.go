package coordinator

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"revshare/pkg/logger"
	"revshare/pkg/store/mysql/model"
)

// RunStore is the lock-table surface the coordinator needs.
type RunStore interface {
	GetByDate(ctx context.Context, fetchDate time.Time) (*model.CrawlRun, error)
	Create(ctx context.Context, run *model.CrawlRun) error
	Update(ctx context.Context, run *model.CrawlRun) error
	GetRunning(ctx context.Context, fetchDate time.Time) (*model.CrawlRun, error)
}

// ProbeFunc reports whether the process owning a lock is still alive.
type ProbeFunc func(pid int) bool

// processAlive probes with signal 0. EPERM means the process exists but
// belongs to another user, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// Coordinator enforces the one-cycle-per-date rule through the crawl_runs
// lock table, and tracks the in-process trigger state served by the
// crawl-status endpoint.
type Coordinator struct {
	runs  RunStore
	probe ProbeFunc
	pid   func() int
	now   func() time.Time

	mu     sync.Mutex
	status Status
}

// Status is a point-in-time snapshot of the trigger state.
type Status struct {
	Running        bool       `json:"running"`
	FetchDate      string     `json:"fetch_date,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	LastStatus     string     `json:"last_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
}

// NewCoordinator creates a run coordinator with the default liveness probe
func NewCoordinator(runs RunStore) *Coordinator {
	return &Coordinator{
		runs:  runs,
		probe: processAlive,
		pid:   os.Getpid,
		now:   time.Now,
	}
}

// Acquire takes the per-date run lock. Completed, failed and stale-running
// rows are reclaimed in place; a live running row refuses the acquire.
// Persistence errors refuse the acquire too (fail-closed), never panic.
func (c *Coordinator) Acquire(ctx context.Context, fetchDate time.Time) bool {
	dateText := fetchDate.Format("2006-01-02")

	run, err := c.runs.GetByDate(ctx, fetchDate)
	if err != nil {
		logger.Errorf("run lock: lookup failed for %s: %v", dateText, err)
		return false
	}

	if run == nil {
		run = &model.CrawlRun{
			FetchDate: fetchDate,
			Status:    model.RunStatusRunning,
			PID:       c.pid(),
			StartedAt: c.now(),
		}
		if err := c.runs.Create(ctx, run); err != nil {
			logger.Errorf("run lock: create failed for %s: %v", dateText, err)
			return false
		}
		logger.Infof("run lock: acquired %s (pid %d)", dateText, run.PID)
		return true
	}

	if run.Status == model.RunStatusRunning {
		if c.probe(run.PID) {
			logger.Warnf("run lock: %s held by live pid %d, refusing", dateText, run.PID)
			return false
		}
		logger.Warnf("run lock: %s held by dead pid %d, reclaiming", dateText, run.PID)
	}

	run.Status = model.RunStatusRunning
	run.PID = c.pid()
	run.StartedAt = c.now()
	run.CompletedAt = nil
	if err := c.runs.Update(ctx, run); err != nil {
		logger.Errorf("run lock: reclaim failed for %s: %v", dateText, err)
		return false
	}
	logger.Infof("run lock: acquired %s (pid %d)", dateText, run.PID)
	return true
}

// Release transitions the running lock row for a date to completed. A
// missing running row is logged and ignored so that release is safe to
// call from every exit path.
func (c *Coordinator) Release(ctx context.Context, fetchDate time.Time) {
	dateText := fetchDate.Format("2006-01-02")

	run, err := c.runs.GetRunning(ctx, fetchDate)
	if err != nil {
		logger.Errorf("run lock: release lookup failed for %s: %v", dateText, err)
		return
	}
	if run == nil {
		logger.Warnf("run lock: no running row for %s, nothing to release", dateText)
		return
	}

	now := c.now()
	run.Status = model.RunStatusCompleted
	run.CompletedAt = &now
	if err := c.runs.Update(ctx, run); err != nil {
		logger.Errorf("run lock: release failed for %s: %v", dateText, err)
		return
	}
	logger.Infof("run lock: released %s", dateText)
}

// TryBegin claims the process-wide trigger slot. Only one externally
// triggered cycle runs at a time regardless of date.
func (c *Coordinator) TryBegin(fetchDate time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Running {
		return false
	}
	now := c.now()
	c.status.Running = true
	c.status.FetchDate = fetchDate.Format("2006-01-02")
	c.status.StartedAt = &now
	return true
}

// Finish releases the trigger slot, recording the outcome for status reads.
func (c *Coordinator) Finish(outcome string, errMessage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.status.Running = false
	c.status.StartedAt = nil
	c.status.LastStatus = outcome
	c.status.LastError = errMessage
	c.status.LastFinishedAt = &now
}

// Snapshot returns a copy of the current trigger state.
func (c *Coordinator) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
