package workflow

import (
	"context"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	Active      map[int64]string
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	active := make(map[int64]string, len(m.active))
	for id, worker := range m.active {
		active[id] = worker
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health)
	if m.controller != nil {
		for _, stg := range m.controller.stages.pipeline() {
			if stg.handler == nil {
				health[stg.name] = stage.Unhealthy(stg.name, "no handler configured")
				continue
			}
			health[stg.name] = stg.handler.HealthCheck(ctx)
		}
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     m.workers,
		Active:      active,
		QueueStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copy := *lastItem
		summary.LastItem = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
