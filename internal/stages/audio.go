package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/stage"
)

// AudioGenerator narrates one scene into dest and measures it.
type AudioGenerator interface {
	GenerateAudio(ctx context.Context, sceneNumber int, text, dest string) (queue.AudioClip, error)
}

// Audio is the GENERATING_AUDIO stage handler.
type Audio struct {
	base
	gen        AudioGenerator
	saver      stage.Saver
	stagingDir string
}

// NewAudio builds the narration handler.
func NewAudio(gen AudioGenerator, saver stage.Saver, stagingDir string, configured bool, logger *slog.Logger) *Audio {
	return &Audio{
		base:       newBase("generating_audio", configured, "elevenlabs api key not configured", logger),
		gen:        gen,
		saver:      saver,
		stagingDir: stagingDir,
	}
}

// Prepare requires a script with one image per scene.
func (s *Audio) Prepare(_ context.Context, item *queue.Item) error {
	if err := stage.RequireImages(item); err != nil {
		return err
	}
	item.InitProgress("Generating audio", fmt.Sprintf("0/%d narrations", len(item.Script)))
	return nil
}

// Execute narrates every scene, in scene order.
func (s *Audio) Execute(ctx context.Context, item *queue.Item) error {
	dir, err := ensureWorkDir(item, s.stagingDir)
	if err != nil {
		return err
	}
	total := len(item.Script)
	for i, scene := range item.Script {
		if i < len(item.Audio) {
			continue
		}
		dest := filepath.Join(dir, queue.SceneFile("scene", scene.Number, "mp3"))
		clip, err := s.gen.GenerateAudio(ctx, scene.Number, scene.Narration, dest)
		if err != nil {
			return err
		}
		item.Audio = append(item.Audio, clip)
		item.SetProgress("Generating audio", fmt.Sprintf("%d/%d narrations", i+1, total), scenePercent(i+1, total))
		if err := saveArtifact(ctx, s.saver, item); err != nil {
			return err
		}
	}
	s.logger.Info("narration generated",
		logging.String(logging.FieldEventType, "audio_generated"),
		logging.Int("count", len(item.Audio)),
		logging.Float64("total_seconds", item.TotalAudioDuration()),
	)
	return nil
}
