package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx reply from a provider's REST endpoint. The message
// format keeps the status visible to error classification.
type APIError struct {
	Provider string
	Status   int
	Kind     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Message)
}

// errorDecoder extracts kind and message from a provider error body. It
// returns ok=false when the body has no recognisable error envelope.
type errorDecoder func(body []byte) (kind, msg string, ok bool)

// postJSON sends payload as JSON and decodes a 200 reply into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, payload, out any, decodeErr errorDecoder) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", provider, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: provider, Status: httpResp.StatusCode, Message: truncate(string(respBody), 300)}
		if decodeErr != nil {
			if kind, msg, ok := decodeErr(respBody); ok {
				apiErr.Kind, apiErr.Message = kind, msg
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", provider, err)
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
