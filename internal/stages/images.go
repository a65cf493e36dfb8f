package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/stage"
)

// ImageGenerator renders the still for one scene into dest.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, sceneNumber int, prompt, dest string) (queue.ImageAsset, error)
}

// Images is the GENERATING_IMAGES stage handler.
type Images struct {
	base
	gen        ImageGenerator
	saver      stage.Saver
	stagingDir string
	ext        string
}

// NewImages builds the image handler. ext is the configured output format.
func NewImages(gen ImageGenerator, saver stage.Saver, stagingDir, ext string, configured bool, logger *slog.Logger) *Images {
	return &Images{
		base:       newBase("generating_images", configured, "replicate api token not configured", logger),
		gen:        gen,
		saver:      saver,
		stagingDir: stagingDir,
		ext:        imageExtension(ext),
	}
}

func imageExtension(format string) string {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpg"
	}
}

// Prepare requires a complete script.
func (s *Images) Prepare(_ context.Context, item *queue.Item) error {
	if err := stage.RequireScript(item); err != nil {
		return err
	}
	item.InitProgress("Generating images", fmt.Sprintf("0/%d images", len(item.Script)))
	return nil
}

// Execute renders one image per scene, in scene order.
func (s *Images) Execute(ctx context.Context, item *queue.Item) error {
	dir, err := ensureWorkDir(item, s.stagingDir)
	if err != nil {
		return err
	}
	total := len(item.Script)
	for i, scene := range item.Script {
		if i < len(item.Images) {
			continue
		}
		dest := filepath.Join(dir, queue.SceneFile("scene", scene.Number, s.ext))
		asset, err := s.gen.GenerateImage(ctx, scene.Number, scene.ImagePrompt, dest)
		if err != nil {
			return err
		}
		item.Images = append(item.Images, asset)
		item.SetProgress("Generating images", fmt.Sprintf("%d/%d images", i+1, total), scenePercent(i+1, total))
		if err := saveArtifact(ctx, s.saver, item); err != nil {
			return err
		}
		s.logger.Debug("scene image ready",
			logging.Int("scene", scene.Number),
			logging.String("path", dest),
		)
	}
	s.logger.Info("images generated",
		logging.String(logging.FieldEventType, "images_generated"),
		logging.Int("count", len(item.Images)),
	)
	return nil
}
