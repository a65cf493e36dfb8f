package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"narrator/internal/logging"
	"narrator/internal/queue"
)

// HeartbeatMonitor keeps in-flight items alive and fails the ones that stopped
// reporting.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleItems marks items FAILED when their heartbeat is older than the
// timeout. The failed stage is kept so the item can be resumed. Claims that
// never reached a stage are released.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context) (int64, error) {
	if h.heartbeatTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.FailStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	released, err := h.store.ReleaseStaleClaims(ctx, cutoff)
	if err != nil {
		return reclaimed, err
	}
	if released > 0 {
		h.logger.Warn("released stale claims",
			logging.Int64("count", released),
			logging.String(logging.FieldEventType, "stale_claim_released"),
		)
	}
	if reclaimed > 0 {
		h.logger.Warn("failed stale items",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "stale_reclaimed"),
			logging.String(logging.FieldErrorHint, "resume the items with narrator resume"),
		)
	}
	return reclaimed, nil
}

// StartLoop runs a heartbeat updater for a specific item until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
