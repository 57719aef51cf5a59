package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ImagenGenerator renders images with the Imagen predict endpoint.
type ImagenGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewImagenGenerator creates a new Imagen generator.
func NewImagenGenerator(apiKey string, model string) *ImagenGenerator {
	return &ImagenGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: googleAPIBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL points the generator at a different endpoint.
func (g *ImagenGenerator) WithBaseURL(baseURL string) *ImagenGenerator {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

func (g *ImagenGenerator) Name() string { return "google" }

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount   int                  `json:"sampleCount"`
	AspectRatio   string               `json:"aspectRatio,omitempty"`
	OutputOptions *imagenOutputOptions `json:"outputOptions,omitempty"`
}

type imagenOutputOptions struct {
	MimeType string `json:"mimeType"`
}

type imagenResponse struct {
	Predictions []imagenPrediction `json:"predictions"`
	Error       *googleError       `json:"error,omitempty"`
}

type imagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
	RAIFilteredReason  string `json:"raiFilteredReason,omitempty"`
}

func (g *ImagenGenerator) Generate(ctx context.Context, req ImageRequest) (*Image, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	apiReq := imagenRequest{
		Instances: []imagenInstance{{Prompt: req.Prompt}},
		Parameters: imagenParameters{
			SampleCount: count,
			AspectRatio: req.AspectRatio,
		},
	}
	if req.OutputMIME != "" {
		apiReq.Parameters.OutputOptions = &imagenOutputOptions{MimeType: req.OutputMIME}
	}

	endpoint := fmt.Sprintf("%s/%s:predict?key=%s", g.baseURL, url.PathEscape(model), g.apiKey)
	var apiResp imagenResponse
	if err := postJSON(ctx, g.client, endpoint, apiReq, &apiResp, "imagen"); err != nil {
		return nil, err
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("imagen API error %d (%s): %s", apiResp.Error.Code, apiResp.Error.Status, apiResp.Error.Message)
	}

	for _, p := range apiResp.Predictions {
		if p.BytesBase64Encoded == "" {
			if p.RAIFilteredReason != "" {
				return nil, fmt.Errorf("imagen: image blocked by safety filter: %s", p.RAIFilteredReason)
			}
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("imagen: decode image: %w", err)
		}
		return &Image{MIMEType: firstNonEmpty(p.MimeType, req.OutputMIME, "image/png"), Data: data}, nil
	}
	return nil, errors.New("imagen returned no images")
}

// GeminiGenerator renders images with native Gemini image models.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiGenerator creates a new Gemini image generator.
func NewGeminiGenerator(apiKey string, model string) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: googleAPIBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL points the generator at a different endpoint.
func (g *GeminiGenerator) WithBaseURL(baseURL string) *GeminiGenerator {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

func (g *GeminiGenerator) Name() string { return "google" }

type geminiImageRequest struct {
	Contents         []geminiContent      `json:"contents"`
	GenerationConfig geminiImageGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiImageGenConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiImageResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *googleError `json:"error,omitempty"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req ImageRequest) (*Image, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	apiReq := geminiImageRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: geminiImageGenConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if req.AspectRatio != "" {
		apiReq.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: req.AspectRatio}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, url.PathEscape(model), g.apiKey)
	var apiResp geminiImageResponse
	if err := postJSON(ctx, g.client, endpoint, apiReq, &apiResp, "gemini image"); err != nil {
		return nil, err
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("gemini API error %d (%s): %s", apiResp.Error.Code, apiResp.Error.Status, apiResp.Error.Message)
	}
	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini image: prompt blocked by safety filter: %s", apiResp.PromptFeedback.BlockReason)
	}

	for _, c := range apiResp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini image: decode inline data: %w", err)
			}
			return &Image{MIMEType: firstNonEmpty(part.InlineData.MimeType, "image/png"), Data: data}, nil
		}
	}
	return nil, errors.New("gemini returned no image parts")
}

// postJSON sends payload and decodes the reply into out. Non-JSON error
// bodies are reported with their status code.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload any, out any, label string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", label, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", label, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", label, err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned status %d: %s", label, httpResp.StatusCode, truncate(string(respBody), 500))
		}
		return fmt.Errorf("failed to unmarshal %s response: %w", label, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
