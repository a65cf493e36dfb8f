// Package stage defines the contract between the workflow controller and the
// pipeline stage handlers, plus the prerequisite checks handlers run in
// Prepare.
package stage

import (
	"context"
	"log/slog"

	"narrator/internal/queue"
)

// Handler describes the contract the workflow controller needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the run-scoped logger before Prepare.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Saver persists an item. Handlers call it after every artifact write so an
// interrupted stage keeps what it already produced on disk and in the row.
type Saver interface {
	Save(context.Context, *queue.Item) error
}

// Health summarizes the readiness of a workflow stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
