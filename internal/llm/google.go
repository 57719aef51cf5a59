package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider implements Provider using the Google Gemini API via direct HTTP.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(apiKey string, model string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: googleAPIBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL points the provider at a different endpoint (tests, proxies).
func (p *GoogleProvider) WithBaseURL(baseURL string) *GoogleProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiGenConfig struct {
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	Temperature      float64         `json:"temperature"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any  `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinking `json:"thinkingConfig,omitempty"`
}

type geminiThinking struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func decodeGeminiError(body []byte) (string, string, bool) {
	var env struct {
		Error *struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return "", "", false
	}
	return env.Error.Status, env.Error.Message, true
}

// geminiRole maps conversation roles; Gemini calls the assistant "model".
func geminiRole(r Role) string {
	if r == RoleAssistant {
		return "model"
	}
	return "user"
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	apiReq := geminiRequest{
		GenerationConfig: geminiGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	var system []geminiPart
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, geminiPart{Text: msg.Content})
			continue
		}
		apiReq.Contents = append(apiReq.Contents, geminiContent{
			Role:  geminiRole(msg.Role),
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	if len(apiReq.Contents) == 0 {
		apiReq.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: ""}}}}
	}
	if len(system) > 0 {
		apiReq.SystemInstruction = &geminiContent{Parts: system}
	}

	if req.JSONMode {
		apiReq.GenerationConfig.ResponseMIMEType = "application/json"
		apiReq.GenerationConfig.ResponseSchema = req.ResponseSchema
	}

	// Only the flash family accepts a zero thinking budget.
	if req.DisableThinking && strings.Contains(model, "flash") {
		apiReq.GenerationConfig.ThinkingConfig = &geminiThinking{ThinkingBudget: 0}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, model, url.QueryEscape(p.apiKey))
	var apiResp geminiResponse
	if err := postJSON(ctx, p.client, "gemini", endpoint, nil, apiReq, &apiResp, decodeGeminiError); err != nil {
		return nil, err
	}

	if fb := apiResp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked the prompt: %s", fb.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	cand := apiResp.Candidates[0]
	var content strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if !part.Thought {
				content.WriteString(part.Text)
			}
		}
	}
	if content.Len() == 0 && cand.FinishReason == "SAFETY" {
		return nil, fmt.Errorf("gemini reply blocked for safety")
	}

	resp := &CompletionResponse{
		Content:      content.String(),
		Model:        model,
		FinishReason: cand.FinishReason,
	}
	if u := apiResp.UsageMetadata; u != nil {
		resp.InputTokens = u.PromptTokenCount
		resp.OutputTokens = u.CandidatesTokenCount
	}
	return resp, nil
}
