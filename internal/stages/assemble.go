package stages

import (
	"context"
	"log/slog"

	"narrator/internal/assembly"
	"narrator/internal/logging"
	"narrator/internal/publish"
	"narrator/internal/queue"
	"narrator/internal/stage"
)

// Assembler renders scene assets into the final video.
type Assembler interface {
	Assemble(ctx context.Context, in assembly.Input) (assembly.Result, error)
}

// Assemble is the ASSEMBLING stage handler.
type Assemble struct {
	base
	assembler  Assembler
	publisher  publish.Publisher
	stagingDir string
}

// NewAssemble builds the assembly handler. publisher may be nil.
func NewAssemble(assembler Assembler, publisher publish.Publisher, stagingDir string, configured bool, logger *slog.Logger) *Assemble {
	return &Assemble{
		base:       newBase("assembling", configured, "ffmpeg not available", logger),
		assembler:  assembler,
		publisher:  publisher,
		stagingDir: stagingDir,
	}
}

// Prepare requires matching script, image and audio counts.
func (s *Assemble) Prepare(_ context.Context, item *queue.Item) error {
	if err := stage.RequireAudio(item); err != nil {
		return err
	}
	item.InitProgress("Assembling", "Rendering video")
	return nil
}

// Execute renders the video, records degraded steps as warnings and publishes
// the result.
func (s *Assemble) Execute(ctx context.Context, item *queue.Item) error {
	dir, err := ensureWorkDir(item, s.stagingDir)
	if err != nil {
		return err
	}
	in, err := assembly.InputFromItem(item, dir)
	if err != nil {
		return err
	}
	result, err := s.assembler.Assemble(ctx, in)
	if err != nil {
		return err
	}
	item.FinalVideoPath = result.VideoPath
	item.ThumbnailPath = result.ThumbnailPath
	item.CaptionsPath = result.CaptionsPath
	item.Warnings = nil
	for _, degraded := range result.Degraded {
		item.Warnings = append(item.Warnings, degraded.Error())
	}
	item.SetProgress("Assembling", "Video rendered", 90)

	if s.publisher != nil {
		published, err := s.publisher.Publish(ctx, publish.Artifacts{
			ItemID:        item.ID,
			VideoPath:     result.VideoPath,
			ThumbnailPath: result.ThumbnailPath,
		})
		if err != nil {
			logging.WarnWithContext(s.logger, "publishing failed; keeping local reference", "publish_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video available locally only"),
				logging.String(logging.FieldErrorHint, "check storage settings and bucket permissions"),
			)
			item.Warnings = append(item.Warnings, "publish: "+err.Error())
		}
		if published.Uploaded {
			item.PublishedURL = published.VideoRef
		}
	}
	item.SetProgress("Assembling", "Video ready", 100)

	s.logger.Info("video assembled",
		logging.String(logging.FieldEventType, "video_assembled"),
		logging.String("video", result.VideoPath),
		logging.Int("degraded_steps", len(result.Degraded)),
	)
	return nil
}
