package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"narrator/internal/generation"
	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/stage"
)

// ScriptGenerator produces a scene-by-scene script for a topic.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, topic, style string) (generation.Script, error)
}

// Script is the SCRIPTING stage handler.
type Script struct {
	base
	gen          ScriptGenerator
	defaultStyle string
}

// NewScript builds the scripting handler. configured reports whether the LLM
// credentials are present.
func NewScript(gen ScriptGenerator, defaultStyle string, configured bool, logger *slog.Logger) *Script {
	return &Script{
		base:         newBase("scripting", configured, "llm api key not configured", logger),
		gen:          gen,
		defaultStyle: defaultStyle,
	}
}

// Prepare validates the topic and fills in the default style.
func (s *Script) Prepare(_ context.Context, item *queue.Item) error {
	if err := stage.RequireTopic(item); err != nil {
		return err
	}
	if strings.TrimSpace(item.Style) == "" {
		item.Style = s.defaultStyle
	}
	item.InitProgress("Scripting", fmt.Sprintf("Writing script for %q", item.Topic))
	return nil
}

// Execute generates the script and stores it with its metadata.
func (s *Script) Execute(ctx context.Context, item *queue.Item) error {
	script, err := s.gen.GenerateScript(ctx, item.Topic, item.Style)
	if err != nil {
		return err
	}
	item.Title = script.Title
	item.Description = script.Description
	item.Tags = script.Tags
	item.Script = script.Scenes
	item.SetProgress("Scripting", fmt.Sprintf("Script ready: %d scenes", len(script.Scenes)), 100)
	s.logger.Info("script generated",
		logging.String(logging.FieldEventType, "script_generated"),
		logging.String("title", script.Title),
		logging.Int("scenes", len(script.Scenes)),
	)
	return nil
}
