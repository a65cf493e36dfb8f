package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/services"
	"narrator/internal/stage"
)

type base struct {
	name       string
	configured bool
	missing    string
	logger     *slog.Logger
}

func newBase(name string, configured bool, missing string, logger *slog.Logger) base {
	if logger == nil {
		logger = logging.NewNop()
	}
	return base{name: name, configured: configured, missing: missing, logger: logger}
}

// SetLogger implements stage.LoggerAware.
func (b *base) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// HealthCheck reports whether the stage's provider is configured.
func (b *base) HealthCheck(context.Context) stage.Health {
	if !b.configured {
		return stage.Unhealthy(b.name, b.missing)
	}
	return stage.Healthy(b.name)
}

func ensureWorkDir(item *queue.Item, stagingDir string) (string, error) {
	dir := item.WorkDir(stagingDir)
	if dir == "" {
		return "", services.Wrap(services.ErrConfiguration, string(item.Status), "work dir",
			fmt.Sprintf("no work directory for item %d", item.ID), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, string(item.Status), "work dir",
			"Failed to create work directory", err)
	}
	return dir, nil
}

func scenePercent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func saveArtifact(ctx context.Context, saver stage.Saver, item *queue.Item) error {
	if saver == nil {
		return nil
	}
	if err := saver.Save(ctx, item); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}
	return nil
}
