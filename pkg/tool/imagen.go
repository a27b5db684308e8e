package tool

import (
	"context"
	"fmt"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"google.golang.org/genai"
)

const (
	DefaultImageModel    = "imagen-3.0-generate-002"
	DefaultImageLocation = "us-central1"
)

// ImagenGenerator generates images with Imagen on Vertex AI. Credentials
// come from Application Default Credentials; the project is supplied per call.
type ImagenGenerator struct {
	Model       string
	Location    string
	AspectRatio string
}

// NewImagenGenerator returns a generator with defaults applied.
func NewImagenGenerator(model, location, aspectRatio string) *ImagenGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	if location == "" {
		location = DefaultImageLocation
	}
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	return &ImagenGenerator{Model: model, Location: location, AspectRatio: aspectRatio}
}

// GenerateImage requests exactly one image for prompt and returns it as PNG
// cropped to the configured aspect ratio.
func (g *ImagenGenerator) GenerateImage(ctx context.Context, prompt, project string) ([]byte, error) {
	if project == "" {
		return nil, &adapter.Error{Provider: "imagen", Kind: adapter.KindInvalidInput, Err: fmt.Errorf("google cloud project is required")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: g.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, &adapter.Error{Provider: "imagen", Kind: adapter.KindAuth, Err: fmt.Errorf("failed to create vertex client: %w", err)}
	}

	resp, err := client.Models.GenerateImages(ctx, g.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    g.AspectRatio,
	})
	if err != nil {
		return nil, adapter.Classify("imagen", adapter.GenaiStatus(err), err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, adapter.Malformed("imagen", "no image returned")
	}

	data := resp.GeneratedImages[0].Image.ImageBytes
	if len(data) == 0 {
		return nil, adapter.Malformed("imagen", "empty image returned")
	}
	return NormalizeImage(data, g.AspectRatio)
}
