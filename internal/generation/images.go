package generation

import (
	"context"
	"fmt"
	"os"

	"narrator/internal/queue"
	"narrator/internal/services"
)

// ImageClient renders a prompt to dest and returns the source URL.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt, dest string) (string, error)
}

// ImageGenerator produces validated scene stills.
type ImageGenerator struct {
	client ImageClient
	policy Policy
}

// NewImageGenerator wires an image client with the retry policy.
func NewImageGenerator(client ImageClient, policy Policy) *ImageGenerator {
	return &ImageGenerator{client: client, policy: policy}
}

// GenerateImage renders the still for one scene into dest.
func (g *ImageGenerator) GenerateImage(ctx context.Context, sceneNumber int, prompt, dest string) (queue.ImageAsset, error) {
	var asset queue.ImageAsset
	op := fmt.Sprintf("generate image for scene %d", sceneNumber)
	err := g.policy.Do(ctx, op, func(ctx context.Context, attempt int) error {
		source, err := g.client.GenerateImage(ctx, prompt, dest)
		if err != nil {
			return err
		}
		header, err := readHeader(dest, 12)
		if err != nil {
			return fmt.Errorf("%w: read image: %w", services.ErrTransient, err)
		}
		if ImageFormat(header) == "" {
			_ = os.Remove(dest)
			return fmt.Errorf("%w: scene %d image is not JPEG, PNG or WEBP", services.ErrValidation, sceneNumber)
		}
		asset = queue.ImageAsset{SceneNumber: sceneNumber, SourceURL: source, Path: dest}
		return nil
	})
	return asset, err
}
