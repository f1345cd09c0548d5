package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"revshare/internal/coordinator"
	"revshare/internal/model"
	"revshare/internal/service"
	"revshare/pkg/logger"
	queue "revshare/pkg/queue/asynq"

	"github.com/hibiken/asynq"
)

// FetchCycleHandler consumes fetch:cycle tasks from the queue.
type FetchCycleHandler struct {
	fetch *service.FetchService
	coord *coordinator.Coordinator
}

// NewFetchCycleHandler creates a fetch cycle task handler
func NewFetchCycleHandler(fetch *service.FetchService, coord *coordinator.Coordinator) *FetchCycleHandler {
	return &FetchCycleHandler{fetch: fetch, coord: coord}
}

// ProcessTask runs one fetch cycle. Cycle failures are recorded in the
// fetch log and trigger status, not surfaced as task errors; a retried
// scrape of a dead upstream would fail the same way.
func (h *FetchCycleHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.FetchCyclePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed fetch payload: %v: %w", err, asynq.SkipRetry)
	}

	fetchDate := h.fetch.DefaultFetchDate()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return fmt.Errorf("malformed fetch date %q: %v: %w", payload.Date, err, asynq.SkipRetry)
		}
		fetchDate = parsed
	}

	if !h.coord.TryBegin(fetchDate) {
		logger.Warnf("fetch cycle for %s skipped: another trigger in flight", fetchDate.Format("2006-01-02"))
		return nil
	}

	result := h.fetch.Run(ctx, fetchDate, payload.FirstPageOnly)
	h.coord.Finish(result.Status, result.Error)

	if result.Status == model.CycleStatusFailed {
		logger.Errorf("fetch cycle for %s failed: %s", result.FetchDate, result.Error)
	}
	return nil
}
