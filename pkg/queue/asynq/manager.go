package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"revshare/pkg/config"
	"revshare/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	// TypeFetchCycle runs one fetch-and-store cycle for a date.
	TypeFetchCycle = "fetch:cycle"
)

// FetchCyclePayload is the fetch:cycle task body.
type FetchCyclePayload struct {
	Date          string `json:"date"`
	FirstPageOnly bool   `json:"first_page_only"`
}

// Manager queue manager
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// One worker: cycles are sequential units of work, and the
			// coordinator already refuses same-date overlap.
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				"default": 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	mux := asynq.NewServeMux()

	return &Manager{
		client: client,
		server: server,
		mux:    mux,
	}, nil
}

// EnqueueFetchCycle enqueues a fetch cycle for one date. A zero fetchDate
// defers the date choice to the worker, which defaults to yesterday.
func (m *Manager) EnqueueFetchCycle(ctx context.Context, fetchDate time.Time, firstPageOnly bool) error {
	date := ""
	if !fetchDate.IsZero() {
		date = fetchDate.Format("2006-01-02")
	}
	payload, err := json.Marshal(FetchCyclePayload{
		Date:          date,
		FirstPageOnly: firstPageOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal fetch payload: %w", err)
	}

	task := asynq.NewTask(TypeFetchCycle, payload)

	opts := []asynq.Option{
		asynq.Timeout(time.Duration(config.GlobalConfig.Queue.CycleTimeout) * time.Second),
		asynq.MaxRetry(config.GlobalConfig.Queue.MaxRetry),
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue fetch cycle: %w", err)
	}

	if date == "" {
		date = "yesterday"
	}
	logger.Infof("fetch cycle enqueued for %s, queue: %s", date, info.Queue)
	return nil
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.Infof("starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.Infof("stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}

// GetPendingTaskCount retrieves pending task count
func (m *Manager) GetPendingTaskCount() (int, error) {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     config.GlobalConfig.Redis.Addr,
		Password: config.GlobalConfig.Redis.Password,
		DB:       config.GlobalConfig.Redis.DB,
	})
	defer inspector.Close()

	stats, err := inspector.GetQueueInfo("default")
	if err != nil {
		return 0, err
	}

	return stats.Pending, nil
}
