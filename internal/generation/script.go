package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/services"
	"narrator/internal/services/llm"
	"narrator/internal/textutil"
)

// Completer is the chat-completions surface the script generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Script is a validated script ready to persist on an item.
type Script struct {
	Title       string
	Description string
	Tags        []string
	Scenes      []queue.Scene
}

// ScriptOptions shape the prompt.
type ScriptOptions struct {
	SceneCount       int
	MinWordsPerScene int
	Language         string
}

type scriptPayload struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	Tags        []string       `json:"tags" validate:"max=50"`
	Scenes      []scenePayload `json:"scenes" validate:"required,min=1,dive"`
}

type scenePayload struct {
	SceneNumber     int     `json:"scene_number"`
	Narration       string  `json:"narration" validate:"required"`
	ImagePrompt     string  `json:"image_prompt" validate:"required"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=0"`
}

// ScriptGenerator asks the LLM for a scene-by-scene script.
type ScriptGenerator struct {
	client   Completer
	policy   Policy
	opts     ScriptOptions
	validate *validator.Validate
	logger   *slog.Logger
}

// NewScriptGenerator wires a completer with the retry policy.
func NewScriptGenerator(client Completer, policy Policy, opts ScriptOptions, logger *slog.Logger) *ScriptGenerator {
	if opts.SceneCount <= 0 {
		opts.SceneCount = 18
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "French"
	}
	return &ScriptGenerator{
		client:   client,
		policy:   policy,
		opts:     opts,
		validate: validator.New(),
		logger:   logging.NewComponentLogger(logger, "script-generator"),
	}
}

// GenerateScript produces a script for topic in the given visual style.
// Unparsable or incomplete payloads are retried like transient failures.
func (g *ScriptGenerator) GenerateScript(ctx context.Context, topic, style string) (Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Script{}, services.Wrap(services.ErrValidation, "scripting", "generate script", "topic is empty", nil)
	}
	systemPrompt := g.systemPrompt()
	userPrompt := g.userPrompt(topic, style)

	var script Script
	err := g.policy.Do(ctx, "generate script", func(ctx context.Context, attempt int) error {
		content, err := g.client.CompleteJSON(ctx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		parsed, err := g.parse(content)
		if err != nil {
			return err
		}
		script = parsed
		return nil
	})
	if err != nil {
		return Script{}, err
	}

	short := 0
	for _, scene := range script.Scenes {
		if textutil.WordCount(scene.Narration) < g.opts.MinWordsPerScene {
			short++
		}
	}
	if short > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "script has short narrations", "script_short_narration",
			logging.Int("short_scenes", short),
			logging.Int("min_words", g.opts.MinWordsPerScene),
			logging.String(logging.FieldImpact, "video will run shorter than planned"),
			logging.String(logging.FieldErrorHint, "raise script.min_words_per_scene in the prompt or pick a richer topic"),
		)
	}
	return script, nil
}

func (g *ScriptGenerator) parse(content string) (Script, error) {
	var payload scriptPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Script{}, fmt.Errorf("%w: script payload is not valid JSON: %w", services.ErrValidation, err)
	}
	payload.Title = strings.TrimSpace(payload.Title)
	payload.Description = strings.TrimSpace(payload.Description)
	for i := range payload.Scenes {
		payload.Scenes[i].Narration = strings.TrimSpace(payload.Scenes[i].Narration)
		payload.Scenes[i].ImagePrompt = strings.TrimSpace(payload.Scenes[i].ImagePrompt)
	}
	if err := g.validate.Struct(payload); err != nil {
		return Script{}, fmt.Errorf("%w: script payload incomplete: %w", services.ErrValidation, err)
	}

	script := Script{
		Title:       payload.Title,
		Description: payload.Description,
		Scenes:      make([]queue.Scene, 0, len(payload.Scenes)),
	}
	for _, tag := range payload.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			script.Tags = append(script.Tags, tag)
		}
	}
	for i, scene := range payload.Scenes {
		script.Scenes = append(script.Scenes, queue.Scene{
			Number:         i + 1,
			Narration:      scene.Narration,
			ImagePrompt:    scene.ImagePrompt,
			TargetDuration: scene.DurationSeconds,
		})
	}
	return script, nil
}

func (g *ScriptGenerator) systemPrompt() string {
	return fmt.Sprintf(`You are an expert documentary scriptwriter for narrated YouTube videos.
Write the narration in %s. Write image prompts in English.
Respond with strict JSON only, no text before or after, using this shape:
{
  "title": "catchy video title, at most 70 characters",
  "description": "video description of about 150 words with keywords",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5", "tag6", "tag7", "tag8"],
  "scenes": [
    {
      "scene_number": 1,
      "narration": "immersive storytelling narration for this scene",
      "image_prompt": "English prompt for the still image of this scene",
      "duration_seconds": 30
    }
  ]
}`, g.opts.Language)
}

func (g *ScriptGenerator) userPrompt(topic, style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		style = "cinematic"
	}
	return fmt.Sprintf(`Topic: %q
Write exactly %d scenes for a 7 to 10 minute video.
Each narration must be at least %d words (5 to 6 sentences), immersive and detailed, keeping the audience hooked.
Every image_prompt must describe the scene in the %s style, cinematic, dramatic lighting, 16:9.`,
		topic, g.opts.SceneCount, g.opts.MinWordsPerScene, style)
}
