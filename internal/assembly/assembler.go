package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"narrator/internal/captions"
	"narrator/internal/config"
	"narrator/internal/fileutil"
	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/services"
)

const stageName = "assembling"

// Settings holds the rendering parameters.
type Settings struct {
	FFmpegBinary    string
	Width           int
	Height          int
	FPS             int
	CRF             int
	Preset          string
	ZoomFactor      float64
	MotionSeed      int64
	CaptionsEnabled bool
	WordsPerChunk   int
	CaptionStyle    captions.Style
	MusicDir        string
	MusicVolumeDB   float64
	Thumbnail       ThumbnailSettings
}

// SettingsFromConfig maps the assembly, captions, music and thumbnail sections.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:    cfg.Assembly.FFmpegBinary,
		Width:           cfg.Assembly.Width,
		Height:          cfg.Assembly.Height,
		FPS:             cfg.Assembly.FPS,
		CRF:             cfg.Assembly.CRF,
		Preset:          cfg.Assembly.Preset,
		ZoomFactor:      cfg.Assembly.ZoomFactor,
		MotionSeed:      cfg.Assembly.MotionSeed,
		CaptionsEnabled: cfg.Captions.Enabled,
		WordsPerChunk:   cfg.Captions.WordsPerChunk,
		CaptionStyle:    captions.StyleFromConfig(cfg.Captions),
		MusicDir:        cfg.Music.Dir,
		MusicVolumeDB:   cfg.Music.VolumeDB,
		Thumbnail: ThumbnailSettings{
			Enabled:      cfg.Thumbnail.Enabled,
			Width:        cfg.Thumbnail.Width,
			Height:       cfg.Thumbnail.Height,
			Badge:        cfg.Thumbnail.Badge,
			BadgeColor:   cfg.Thumbnail.BadgeColor,
			FontFile:     cfg.Thumbnail.FontFile,
			MaxLineChars: cfg.Thumbnail.MaxLineChars,
			Language:     cfg.Thumbnail.Language,
		},
	}
}

// SceneInput is one scene's assets with its measured narration length.
type SceneInput struct {
	Number    int
	Narration string
	ImagePath string
	AudioPath string
	Duration  float64
}

// Input describes one assembly run.
type Input struct {
	ItemID  int64
	Title   string
	Style   string
	WorkDir string
	Scenes  []SceneInput
}

// InputFromItem pairs an item's script, images and audio by scene order.
func InputFromItem(item *queue.Item, workDir string) (Input, error) {
	if !item.ImagesComplete() || !item.AudioComplete() {
		return Input{}, services.Wrap(services.ErrValidation, stageName, "collect assets",
			fmt.Sprintf("item %d has %d scenes, %d images, %d audio clips", item.ID, len(item.Script), len(item.Images), len(item.Audio)), nil)
	}
	in := Input{
		ItemID:  item.ID,
		Title:   item.DisplayTitle(),
		Style:   item.Style,
		WorkDir: workDir,
		Scenes:  make([]SceneInput, 0, len(item.Script)),
	}
	for i, scene := range item.Script {
		in.Scenes = append(in.Scenes, SceneInput{
			Number:    scene.Number,
			Narration: scene.Narration,
			ImagePath: item.Images[i].Path,
			AudioPath: item.Audio[i].Path,
			Duration:  item.Audio[i].Duration,
		})
	}
	return in, nil
}

// Result lists what was produced. Degraded holds the failures of optional
// steps; the video is still usable when it is non-empty.
type Result struct {
	VideoPath     string
	ThumbnailPath string
	CaptionsPath  string
	Effects       []Effect
	Degraded      []error
}

// Verifier checks a finished video before it is handed to publishing.
// minDuration is the summed narration length.
type Verifier func(ctx context.Context, path string, minDuration float64) error

// Assembler runs the ffmpeg steps.
type Assembler struct {
	settings Settings
	run      CommandRunner
	verify   Verifier
	logger   *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(r CommandRunner) Option {
	return func(a *Assembler) {
		if r != nil {
			a.run = r
		}
	}
}

// WithVerifier inspects final.mp4 after rendering. A rejected video fails the
// assembly.
func WithVerifier(v Verifier) Option {
	return func(a *Assembler) {
		a.verify = v
	}
}

// New constructs an Assembler.
func New(settings Settings, logger *slog.Logger, opts ...Option) *Assembler {
	if strings.TrimSpace(settings.FFmpegBinary) == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	a := &Assembler{
		settings: settings,
		run:      defaultCommandRunner,
		logger:   logging.NewComponentLogger(logger, "assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble renders in into final.mp4 under in.WorkDir.
func (a *Assembler) Assemble(ctx context.Context, in Input) (Result, error) {
	if err := validateInput(in); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, a.logger)
	if err := os.MkdirAll(in.WorkDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "ensure workdir", "Failed to create work directory", err)
	}

	var result Result
	seed := a.settings.MotionSeed
	if seed == 0 {
		seed = in.ItemID
	}
	result.Effects = PickEffects(seed, len(in.Scenes))

	clips := make([]string, 0, len(in.Scenes))
	for i, scene := range in.Scenes {
		clip := filepath.Join(in.WorkDir, queue.SceneFile("clip", i+1, ".mp4"))
		if err := a.renderClip(ctx, scene, result.Effects[i], clip); err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, stageName, "render clip",
				fmt.Sprintf("scene %d clip failed", i+1), err)
		}
		clips = append(clips, clip)
		logger.Debug("scene clip rendered",
			logging.Int("scene", i+1),
			logging.String("effect", string(result.Effects[i])),
			logging.Float64("duration_seconds", scene.Duration),
		)
	}

	current := filepath.Join(in.WorkDir, "concat.mp4")
	if err := a.concat(ctx, in.WorkDir, clips, current); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "concat", "concatenating scene clips failed", err)
	}

	if a.settings.CaptionsEnabled {
		srtPath, next, err := a.burnCaptions(ctx, in, current)
		if srtPath != "" {
			result.CaptionsPath = srtPath
		}
		if err != nil {
			result.Degraded = append(result.Degraded, a.degrade(logger, "captions", "video published without burned-in captions", err))
		} else {
			current = next
		}
	}

	if next, mixed, err := a.mixMusic(ctx, in, current); err != nil {
		result.Degraded = append(result.Degraded, a.degrade(logger, "music", "video published without background music", err))
	} else if mixed {
		current = next
	}

	if a.settings.Thumbnail.Enabled {
		thumb := filepath.Join(in.WorkDir, "thumbnail.jpg")
		if err := a.thumbnail(ctx, in, thumb); err != nil {
			result.Degraded = append(result.Degraded, a.degrade(logger, "thumbnail", "item has no thumbnail", err))
		} else {
			result.ThumbnailPath = thumb
		}
	}

	final := filepath.Join(in.WorkDir, "final.mp4")
	if err := fileutil.CopyFile(current, final); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "finalize", "copying final video failed", err)
	}
	if a.verify != nil {
		// Frame rounding trims a few milliseconds from each clip.
		minDuration := narrationSeconds(in.Scenes) * 0.98
		if err := a.verify(ctx, final, minDuration); err != nil {
			return Result{}, services.Wrap(services.ErrValidation, stageName, "verify", "final video failed verification", err)
		}
	}
	result.VideoPath = final
	logger.Info("assembly complete",
		logging.String(logging.FieldEventType, "assembly_complete"),
		logging.String("video_path", final),
		logging.Int("scene_count", len(in.Scenes)),
		logging.Int("degraded_steps", len(result.Degraded)),
	)
	return result, nil
}

func (a *Assembler) degrade(logger *slog.Logger, step, impact string, err error) error {
	wrapped := services.Wrap(services.ErrDegraded, stageName, step, step+" step failed", err)
	logging.WarnWithContext(logger, "optional assembly step failed", "assembly_step_degraded",
		logging.String("step", step),
		logging.Error(err),
		logging.String(logging.FieldImpact, impact),
		logging.String(logging.FieldErrorHint, "check the ffmpeg stderr in the error and the step inputs"),
	)
	return wrapped
}

func narrationSeconds(scenes []SceneInput) float64 {
	var total float64
	for _, scene := range scenes {
		total += scene.Duration
	}
	return total
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.WorkDir) == "" {
		return services.Wrap(services.ErrValidation, stageName, "validate input", "work directory is empty", nil)
	}
	if len(in.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "validate input", "no scenes to assemble", nil)
	}
	for i, scene := range in.Scenes {
		if scene.Duration <= 0 {
			return services.Wrap(services.ErrValidation, stageName, "validate input",
				fmt.Sprintf("scene %d has no measured duration", i+1), nil)
		}
		for _, path := range []string{scene.ImagePath, scene.AudioPath} {
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return services.Wrap(services.ErrValidation, stageName, "validate input",
						fmt.Sprintf("scene %d asset missing: %s", i+1, path), err)
				}
				return services.Wrap(services.ErrValidation, stageName, "validate input",
					fmt.Sprintf("scene %d asset unreadable: %s", i+1, path), err)
			}
		}
	}
	return nil
}
