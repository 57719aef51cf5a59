package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator renders images with the OpenAI Images API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	http   *http.Client
}

// NewOpenAIGenerator creates a new OpenAI image generator.
func NewOpenAIGenerator(apiKey string, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		http:   &http.Client{},
	}
}

// NewOpenAIGeneratorWithConfig is used with a custom base URL.
func NewOpenAIGeneratorWithConfig(cfg openai.ClientConfig, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		http:   &http.Client{},
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, req ImageRequest) (*Image, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	apiReq := openai.ImageRequest{
		Prompt: req.Prompt,
		Model:  model,
		N:      1,
		Size:   openAISize(model, req.AspectRatio),
	}
	// gpt-image models always answer with base64 and reject response_format.
	if !strings.HasPrefix(model, "gpt-image") {
		apiReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := g.client.CreateImage(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai returned no images")
	}

	item := resp.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai image: decode: %w", err)
		}
		return &Image{MIMEType: sniffMIME(data), Data: data}, nil
	}
	if item.URL != "" {
		return g.download(ctx, item.URL)
	}
	return nil, errors.New("openai image response carried neither data nor url")
}

func (g *OpenAIGenerator) download(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai image: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai image: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai image: read: %w", err)
	}
	return &Image{MIMEType: sniffMIME(data), Data: data}, nil
}

// openAISize maps an aspect ratio onto the fixed sizes each model accepts.
func openAISize(model, aspect string) string {
	wide := aspect == AspectWide
	switch {
	case strings.HasPrefix(model, "dall-e-3"):
		if wide {
			return openai.CreateImageSize1792x1024
		}
		return openai.CreateImageSize1024x1024
	case strings.HasPrefix(model, "dall-e-2"):
		return openai.CreateImageSize1024x1024
	default:
		if wide {
			return "1536x1024"
		}
		return "1024x1024"
	}
}

func sniffMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
