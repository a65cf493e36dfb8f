package stage

import (
	"fmt"
	"strings"

	"narrator/internal/queue"
	"narrator/internal/services"
)

// RequireTopic rejects items without a topic.
func RequireTopic(item *queue.Item) error {
	if strings.TrimSpace(item.Topic) == "" {
		return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
			fmt.Sprintf("item %d has no topic", item.ID), nil)
	}
	return nil
}

// RequireScript rejects items without scenes or with blank scene content.
func RequireScript(item *queue.Item) error {
	if !item.HasScript() {
		return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
			fmt.Sprintf("item %d has no script; resume from scripting", item.ID), nil)
	}
	for i, scene := range item.Script {
		if strings.TrimSpace(scene.Narration) == "" || strings.TrimSpace(scene.ImagePrompt) == "" {
			return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
				fmt.Sprintf("item %d scene %d is missing narration or image prompt", item.ID, i+1), nil)
		}
	}
	return nil
}

// RequireImages rejects items whose image count does not match the script.
func RequireImages(item *queue.Item) error {
	if err := RequireScript(item); err != nil {
		return err
	}
	if !item.ImagesComplete() {
		return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
			fmt.Sprintf("item %d has %d images for %d scenes", item.ID, len(item.Images), len(item.Script)), nil)
	}
	return nil
}

// RequireAudio rejects items whose narration count does not match the script
// or whose clips lack a measured duration.
func RequireAudio(item *queue.Item) error {
	if err := RequireImages(item); err != nil {
		return err
	}
	if !item.AudioComplete() {
		return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
			fmt.Sprintf("item %d has %d audio clips for %d scenes", item.ID, len(item.Audio), len(item.Script)), nil)
	}
	for _, clip := range item.Audio {
		if clip.Duration <= 0 {
			return services.Wrap(services.ErrValidation, string(item.Status), "prepare",
				fmt.Sprintf("item %d scene %d has no measured duration", item.ID, clip.SceneNumber), nil)
		}
	}
	return nil
}

// EntryCheck returns the prerequisite an item must satisfy before it may move
// into the processing status, or nil when the status has none.
func EntryCheck(processing queue.Status) func(*queue.Item) error {
	switch processing {
	case queue.StatusScripting:
		return RequireTopic
	case queue.StatusGeneratingImages:
		return RequireScript
	case queue.StatusGeneratingAudio:
		return RequireImages
	case queue.StatusAssembling:
		return RequireAudio
	default:
		return nil
	}
}
