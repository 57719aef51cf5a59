package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/ziadkadry99/sitesmith/internal/llm"
)

// Aspect ratios understood by every backend.
const (
	AspectWide   = "16:9"
	AspectSquare = "1:1"
)

// ImageRequest describes a single render.
type ImageRequest struct {
	Model       string
	Prompt      string
	Count       int
	OutputMIME  string
	AspectRatio string
}

// Image is one rendered payload.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as an embeddable data reference.
func (i *Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Generator renders images from text prompts.
type Generator interface {
	Generate(ctx context.Context, req ImageRequest) (*Image, error)
	Name() string
}

// NewGenerator creates an image generator for the given provider and model.
// Supported provider types: "google", "openai".
func NewGenerator(providerType string, model string) (Generator, error) {
	switch providerType {
	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		if IsGeminiImageModel(model) {
			return NewGeminiGenerator(apiKey, model), nil
		}
		return NewImagenGenerator(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIGenerator(apiKey, model), nil

	default:
		return nil, fmt.Errorf("unsupported image provider type: %s", providerType)
	}
}

// IsGeminiImageModel reports whether model is a native Gemini image model
// (generateContent) rather than an Imagen model (predict).
func IsGeminiImageModel(model string) bool {
	return strings.HasPrefix(model, "gemini-") && strings.Contains(model, "image")
}

// RateLimitedGenerator wraps a Generator with the shared token bucket.
type RateLimitedGenerator struct {
	gen    Generator
	bucket *llm.TokenBucket
}

// NewRateLimitedGenerator allows at most rpm renders per minute.
func NewRateLimitedGenerator(gen Generator, rpm int) Generator {
	return &RateLimitedGenerator{gen: gen, bucket: llm.NewTokenBucket(rpm)}
}

func (r *RateLimitedGenerator) Name() string { return r.gen.Name() }

func (r *RateLimitedGenerator) Generate(ctx context.Context, req ImageRequest) (*Image, error) {
	if err := r.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return r.gen.Generate(ctx, req)
}
