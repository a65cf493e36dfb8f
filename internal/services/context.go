package services

import "context"

// RunScope identifies the run a context belongs to. Every field is optional;
// loggers lift the set fields into structured attributes.
type RunScope struct {
	ItemID    int64
	Stage     string
	Worker    string
	RequestID string
}

type runScopeKey struct{}

// ScopeFrom returns the run scope carried by ctx, or the zero scope.
func ScopeFrom(ctx context.Context) RunScope {
	if ctx == nil {
		return RunScope{}
	}
	scope, _ := ctx.Value(runScopeKey{}).(RunScope)
	return scope
}

func withScope(ctx context.Context, update func(*RunScope)) context.Context {
	scope := ScopeFrom(ctx)
	update(&scope)
	return context.WithValue(ctx, runScopeKey{}, scope)
}

// WithItemID annotates context with the content item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return withScope(ctx, func(s *RunScope) { s.ItemID = id })
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *RunScope) { s.Stage = stage })
}

// WithWorker annotates context with the worker pool slot running the item.
func WithWorker(ctx context.Context, worker string) context.Context {
	if worker == "" {
		return ctx
	}
	return withScope(ctx, func(s *RunScope) { s.Worker = worker })
}

// WithRequestID annotates context with the run's correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *RunScope) { s.RequestID = id })
}
