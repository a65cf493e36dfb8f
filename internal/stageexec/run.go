// Package stageexec runs a single pipeline stage against an item: transition,
// checkpoint, prerequisite validation, execution and failure recording.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"narrator/internal/logging"
	"narrator/internal/notifications"
	"narrator/internal/queue"
	"narrator/internal/services"
	"narrator/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// Options controls stage execution and persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      stage.Saver
	Notifier   notifications.Service
	Handler    Handler
	Processing queue.Status
	Item       *queue.Item
}

// Run checks the stage prerequisites, moves the item into opts.Processing,
// persists it, runs Prepare then Execute, and persists the checkpoint. A
// rejected entry returns the validation error with the item untouched. Any
// later failure other than cancellation marks the item FAILED, persists it and
// sends a failure notification.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.Processing)
	}
	if opts.Store == nil {
		return errors.New("queue store is required")
	}
	if opts.Item == nil {
		return errors.New("queue item is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	stageCtx := services.WithStage(ctx, string(opts.Processing))
	stageLogger := logging.WithContext(stageCtx, logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if check := stage.EntryCheck(opts.Processing); check != nil {
		if err := check(opts.Item); err != nil {
			stageLogger.Warn("stage entry rejected",
				logging.String(logging.FieldEventType, "stage_rejected"),
				logging.String(logging.FieldErrorHint, failureHint(err)),
				logging.Error(err),
			)
			return err
		}
	}
	if err := opts.Item.TransitionTo(opts.Processing); err != nil {
		return err
	}
	setItemProcessingState(opts.Item, opts.Processing)
	if err := opts.Store.Save(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	started := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("topic", strings.TrimSpace(opts.Item.Topic)),
		logging.Int("scenes", len(opts.Item.Script)),
	)

	if err := opts.Handler.Prepare(stageCtx, opts.Item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}
	if err := opts.Store.Save(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Item); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Info("stage interrupted by shutdown",
				logging.String(logging.FieldEventType, "stage_interrupted"))
			return err
		}
		return handleFailure(stageCtx, stageLogger, opts, err)
	}

	if err := opts.Store.Save(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("progress_message", strings.TrimSpace(opts.Item.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	item := opts.Item
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", deriveStageLabel(opts.Processing))
	}
	item.SetFailed(message)

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", item.ErrorMessage),
		logging.Bool("retryable", services.IsRetryable(stageErr)),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Error(stageErr),
	)
	if err := opts.Store.Save(ctx, item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil {
		if err := opts.Notifier.NotifyFailed(ctx, item.ID, item.DisplayTitle(), item.ErrorMessage); err != nil {
			logger.Warn("failure notification not delivered",
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.Error(err),
			)
		}
	}
	return stageErr
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "check credentials and paths in config.toml"
	case errors.Is(err, services.ErrFatal):
		return "provider refused the request; check quota and billing"
	case errors.Is(err, services.ErrExternalTool):
		return "inspect ffmpeg stderr in the error message"
	case errors.Is(err, services.ErrValidation):
		return "artifacts are inconsistent; resume from an earlier stage"
	default:
		return "resume the item once the provider recovers"
	}
}

func setItemProcessingState(item *queue.Item, processing queue.Status) {
	now := time.Now().UTC()
	item.InitProgress(deriveStageLabel(processing), fmt.Sprintf("%s started", deriveStageLabel(processing)))
	item.LastHeartbeat = &now
}

func deriveStageLabel(status queue.Status) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
