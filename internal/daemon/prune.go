package daemon

import (
	"context"
	"log/slog"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/staging"
)

// PruneWorkDirs removes work directories under stagingDir whose item no
// longer exists in the queue. It returns the number of directories removed.
func PruneWorkDirs(ctx context.Context, store *queue.Store, stagingDir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	known, err := store.IDs(ctx)
	if err != nil {
		return 0, err
	}
	result := staging.CleanOrphaned(ctx, stagingDir, known, logger)
	if len(result.Removed) > 0 {
		logger.Info("pruned orphaned work directories",
			logging.Int("count", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "workdir_pruned"),
		)
	}
	return len(result.Removed), nil
}
