package logging

import (
	"context"
	"log/slog"

	"narrator/internal/services"
)

const (
	FieldComponent     = "component"
	FieldItemID        = "item_id"
	FieldStage         = "stage"
	FieldWorker        = "worker"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
	FieldAttempt       = "attempt"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	scope := services.ScopeFrom(ctx)
	fields := make([]slog.Attr, 0, 4)
	if scope.ItemID > 0 {
		fields = append(fields, slog.Int64(FieldItemID, scope.ItemID))
	}
	if scope.Stage != "" {
		fields = append(fields, slog.String(FieldStage, scope.Stage))
	}
	if scope.Worker != "" {
		fields = append(fields, slog.String(FieldWorker, scope.Worker))
	}
	if scope.RequestID != "" {
		fields = append(fields, slog.String(FieldCorrelationID, scope.RequestID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
