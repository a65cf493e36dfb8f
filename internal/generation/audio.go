package generation

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"narrator/internal/fileutil"
	"narrator/internal/queue"
	"narrator/internal/services"
)

// SpeechClient turns text into MPEG audio bytes.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DurationMeter measures a media file in seconds.
type DurationMeter func(ctx context.Context, path string) (float64, error)

// AudioGenerator produces narration clips with measured durations.
type AudioGenerator struct {
	client  SpeechClient
	measure DurationMeter
	policy  Policy
}

// NewAudioGenerator wires a speech client, a duration meter and the retry policy.
func NewAudioGenerator(client SpeechClient, measure DurationMeter, policy Policy) *AudioGenerator {
	return &AudioGenerator{client: client, measure: measure, policy: policy}
}

// GenerateAudio narrates text into dest and measures the result.
func (g *AudioGenerator) GenerateAudio(ctx context.Context, sceneNumber int, text, dest string) (queue.AudioClip, error) {
	var clip queue.AudioClip
	op := fmt.Sprintf("generate audio for scene %d", sceneNumber)
	err := g.policy.Do(ctx, op, func(ctx context.Context, attempt int) error {
		audio, err := g.client.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		if !IsMPEGAudio(audio) {
			return fmt.Errorf("%w: scene %d narration is not MPEG audio (%d bytes)", services.ErrValidation, sceneNumber, len(audio))
		}
		if _, err := fileutil.WriteFileAtomic(dest, bytes.NewReader(audio)); err != nil {
			return fmt.Errorf("%w: write narration: %w", services.ErrTransient, err)
		}
		duration, err := g.measure(ctx, dest)
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("measure scene %d narration: %w", sceneNumber, err)
		}
		if duration <= 0 {
			_ = os.Remove(dest)
			return fmt.Errorf("%w: scene %d narration has no duration", services.ErrValidation, sceneNumber)
		}
		clip = queue.AudioClip{SceneNumber: sceneNumber, Path: dest, Duration: duration}
		return nil
	})
	return clip, err
}
