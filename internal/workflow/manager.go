package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"narrator/internal/config"
	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/services"
)

// Manager is the worker pool that claims queued runs and executes them.
type Manager struct {
	store        *queue.Store
	controller   *Controller
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastErr  error
	lastItem *queue.Item
	active   map[int64]string
}

// NewManager constructs a worker pool sized by workflow.workers.
func NewManager(cfg *config.Config, store *queue.Store, controller *Controller, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		store:        store,
		controller:   controller,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		workers:      workers,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		active:       make(map[int64]string),
	}
}

// Start launches the workers in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if m.controller == nil {
		return errors.New("workflow controller not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.done = make(chan struct{})

	group, groupCtx := errgroup.WithContext(runCtx)
	for i := 1; i <= m.workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		group.Go(func() error {
			return m.runWorker(groupCtx, name)
		})
	}
	go func() {
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
			m.logger.Error("worker pool stopped", logging.Error(err))
		}
		close(m.done)
	}()

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String(logging.FieldEventType, "workflow_start"),
	)
	return nil
}

// Stop cancels the workers and waits for them to return. Items interrupted
// mid-stage stay in their processing status until the stale reclaimer fails
// them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Manager) runWorker(ctx context.Context, name string) error {
	ctx = services.WithWorker(ctx, name)
	logger := logging.WithContext(ctx, m.logger)
	for {
		if ctx.Err() != nil {
			return nil
		}

		item, action, err := m.store.ClaimNextRun(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.setLastError(err)
			logger.Error("failed to claim queued run",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if !wait(ctx, m.retryDelay) {
				return nil
			}
			continue
		}
		if item == nil {
			if !wait(ctx, m.pollInterval) {
				return nil
			}
			continue
		}

		m.trackActive(item.ID, name)
		err = m.controller.execute(ctx, item, action)
		m.untrackActive(item.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			m.setLastError(err)
		}
		if latest, loadErr := m.store.GetByID(context.WithoutCancel(ctx), item.ID); loadErr == nil && latest != nil {
			m.setLastItem(latest)
		}
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) trackActive(id int64, worker string) {
	m.mu.Lock()
	m.active[id] = worker
	m.mu.Unlock()
}

func (m *Manager) untrackActive(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
