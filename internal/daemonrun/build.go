package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"narrator/internal/assembly"
	"narrator/internal/config"
	"narrator/internal/generation"
	"narrator/internal/media/ffprobe"
	"narrator/internal/notifications"
	"narrator/internal/publish"
	"narrator/internal/queue"
	"narrator/internal/services/elevenlabs"
	"narrator/internal/services/llm"
	"narrator/internal/services/replicate"
	"narrator/internal/stages"
	"narrator/internal/workflow"
)

// Pipeline bundles the wired controller and worker pool.
type Pipeline struct {
	Controller *workflow.Controller
	Manager    *workflow.Manager
	Notifier   notifications.Service
}

// BuildPipeline constructs provider clients, generators, the assembler, the
// publisher and the four stage handlers, then wires them into a controller and
// worker pool sharing store.
func BuildPipeline(cfg *config.Config, store *queue.Store, logger *slog.Logger) (Pipeline, error) {
	if cfg == nil || store == nil {
		return Pipeline{}, fmt.Errorf("pipeline requires config and store")
	}

	publisher, err := publish.NewFromConfig(cfg)
	if err != nil {
		return Pipeline{}, fmt.Errorf("configure publisher: %w", err)
	}
	notifier := notifications.NewService(cfg)

	stageSet := BuildStages(cfg, store, publisher, logger)
	controller := workflow.NewController(cfg, store, stageSet, notifier, logger)
	manager := workflow.NewManager(cfg, store, controller, logger)
	return Pipeline{Controller: controller, Manager: manager, Notifier: notifier}, nil
}

// BuildStages creates the production stage handlers.
func BuildStages(cfg *config.Config, store *queue.Store, publisher publish.Publisher, logger *slog.Logger) workflow.StageSet {
	policy := generation.PolicyFromConfig(cfg, logger)

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	scriptGen := generation.NewScriptGenerator(llmClient, policy, generation.ScriptOptions{
		SceneCount:       cfg.Script.SceneCount,
		MinWordsPerScene: cfg.Script.MinWordsPerScene,
		Language:         cfg.Script.NarrationLanguage,
	}, logger)

	imageClient := replicate.NewClient(replicate.Config{
		APIToken:       cfg.Images.APIToken,
		BaseURL:        cfg.Images.BaseURL,
		Model:          cfg.Images.Model,
		AspectRatio:    cfg.Images.AspectRatio,
		OutputFormat:   cfg.Images.OutputFormat,
		OutputQuality:  cfg.Images.OutputQuality,
		PollInterval:   cfg.PollInterval(),
		MaxPolls:       cfg.Images.MaxPolls,
		TimeoutSeconds: cfg.Images.TimeoutSeconds,
	})
	imageGen := generation.NewImageGenerator(imageClient, policy)

	speechClient := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:          cfg.Audio.APIKey,
		BaseURL:         cfg.Audio.BaseURL,
		VoiceID:         cfg.Audio.VoiceID,
		Model:           cfg.Audio.Model,
		Stability:       cfg.Audio.Stability,
		SimilarityBoost: cfg.Audio.SimilarityBoost,
		TimeoutSeconds:  cfg.Audio.TimeoutSeconds,
	})
	ffprobeBinary := cfg.Assembly.FFprobeBinary
	measure := func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, ffprobeBinary, path)
	}
	audioGen := generation.NewAudioGenerator(speechClient, measure, policy)

	width, height := cfg.Assembly.Width, cfg.Assembly.Height
	verify := func(ctx context.Context, path string, minDuration float64) error {
		return ffprobe.VerifyVideo(ctx, ffprobeBinary, path, ffprobe.Expectation{Width: width, Height: height, MinDuration: minDuration})
	}
	assembler := assembly.New(assembly.SettingsFromConfig(cfg), logger, assembly.WithVerifier(verify))

	staging := cfg.Paths.StagingDir
	return workflow.StageSet{
		Script:   stages.NewScript(scriptGen, cfg.Script.DefaultStyle, cfg.LLM.APIKey != "", logger),
		Images:   stages.NewImages(imageGen, store, staging, cfg.Images.OutputFormat, cfg.Images.APIToken != "", logger),
		Audio:    stages.NewAudio(audioGen, store, staging, cfg.Audio.APIKey != "" && binaryAvailable(ffprobeBinary), logger),
		Assemble: stages.NewAssemble(assembler, publisher, staging, binaryAvailable(cfg.Assembly.FFmpegBinary) && binaryAvailable(ffprobeBinary), logger),
	}
}

func binaryAvailable(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
