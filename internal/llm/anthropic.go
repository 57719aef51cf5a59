package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	// anthropicReplyTool is the forced tool used to get schema-shaped JSON.
	anthropicReplyTool = "reply"
)

// AnthropicProvider implements Provider using the Anthropic Messages API via direct HTTP.
// Structured replies are obtained by forcing a single tool whose input schema
// is the requested ResponseSchema.
type AnthropicProvider struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey: apiKey,
		model:  model,
		url:    anthropicAPIURL,
		client: &http.Client{},
	}
}

// WithURL points the provider at a different messages endpoint.
func (p *AnthropicProvider) WithURL(url string) *AnthropicProvider {
	p.url = url
	return p
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func decodeAnthropicError(body []byte) (string, string, bool) {
	var env struct {
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return "", "", false
	}
	return env.Error.Type, env.Error.Message, true
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var system []string
	var messages []anthropicMessage
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleUser, RoleAssistant:
			messages = append(messages, anthropicMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}

	apiReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    messages,
	}

	switch {
	case req.JSONMode && req.ResponseSchema != nil:
		apiReq.Tools = []anthropicTool{{
			Name:        anthropicReplyTool,
			Description: "Return the complete answer as structured data.",
			InputSchema: req.ResponseSchema,
		}}
		apiReq.ToolChoice = &anthropicToolChoice{Type: "tool", Name: anthropicReplyTool}
	case req.JSONMode:
		system = append(system, "Respond with a single JSON object and nothing else.")
	}
	apiReq.System = strings.Join(system, "\n\n")

	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var apiResp anthropicResponse
	if err := postJSON(ctx, p.client, "anthropic", p.url, header, apiReq, &apiResp, decodeAnthropicError); err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			if block.Name == anthropicReplyTool {
				// The tool input is the structured reply.
				return p.response(apiResp, string(block.Input)), nil
			}
		}
	}
	if apiReq.ToolChoice != nil && content.Len() == 0 {
		return nil, fmt.Errorf("anthropic reply had no content")
	}

	return p.response(apiResp, content.String()), nil
}

func (p *AnthropicProvider) response(r anthropicResponse, content string) *CompletionResponse {
	return &CompletionResponse{
		Content:      content,
		InputTokens:  r.Usage.InputTokens,
		OutputTokens: r.Usage.OutputTokens,
		Model:        r.Model,
		FinishReason: r.StopReason,
	}
}
