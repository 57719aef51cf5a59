// Package apperr defines the error taxonomy shared by the generator, the
// export path and the persistence bridge, plus a classifier that turns
// provider failures into actionable messages.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/sitesmith/internal/llm"
)

// ErrNothingGenerated is returned by operations that need a document when
// none exists yet.
var ErrNothingGenerated = errors.New("no website has been generated yet")

// FatalPipelineError aborts a generation run. No document is produced.
type FatalPipelineError struct {
	Stage string
	Err   error
}

func (e *FatalPipelineError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Stage, e.Err)
}

func (e *FatalPipelineError) Unwrap() error { return e.Err }

// DegradedAssetError records a per-asset failure that was replaced by a
// fallback. It is logged, never surfaced.
type DegradedAssetError struct {
	Asset string
	Err   error
}

func (e *DegradedAssetError) Error() string {
	return fmt.Sprintf("asset %s degraded: %v", e.Asset, e.Err)
}

func (e *DegradedAssetError) Unwrap() error { return e.Err }

// ExportPreconditionError is returned before any export work starts.
type ExportPreconditionError struct {
	Reason string
}

func (e *ExportPreconditionError) Error() string {
	return "cannot export: " + e.Reason
}

// PersistenceWriteError wraps a failed store write.
type PersistenceWriteError struct {
	Stripped bool
	Err      error
}

func (e *PersistenceWriteError) Error() string {
	if e.Stripped {
		return fmt.Sprintf("saving state without images: %v", e.Err)
	}
	return fmt.Sprintf("saving state: %v", e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

// ParseError reports a model reply or markup that could not be parsed.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Category is the coarse failure class derived from an error.
type Category string

const (
	CategoryAuthentication    Category = "authentication"
	CategoryQuota             Category = "quota"
	CategoryOverload          Category = "overload"
	CategoryContentPolicy     Category = "content-policy"
	CategoryMalformedResponse Category = "malformed-response"
	CategoryNetwork           Category = "network"
	CategoryUnknown           Category = "unknown"
)

// Classify maps an error to a Category. Typed errors are inspected first,
// then the message text, since most providers only report status codes and
// vendor strings.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return CategoryMalformedResponse
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return CategoryAuthentication
		case apiErr.HTTPStatusCode == 429:
			if apiErr.Type == "insufficient_quota" {
				return CategoryQuota
			}
			return CategoryOverload
		case apiErr.HTTPStatusCode >= 500:
			return CategoryOverload
		}
		if apiErr.Code == "content_policy_violation" {
			return CategoryContentPolicy
		}
	}

	var restErr *llm.APIError
	if errors.As(err, &restErr) {
		switch {
		case restErr.Status == 401 || restErr.Status == 403:
			return CategoryAuthentication
		case restErr.Status == 429:
			if containsAny(strings.ToLower(restErr.Message), "quota", "billing") {
				return CategoryQuota
			}
			return CategoryOverload
		case restErr.Status >= 500:
			return CategoryOverload
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "api key", "api_key", "unauthorized", "unauthenticated", "permission_denied", "status 401", "status 403", "not set"):
		return CategoryAuthentication
	case containsAny(msg, "quota", "resource_exhausted", "billing", "insufficient"):
		return CategoryQuota
	case containsAny(msg, "overloaded", "unavailable", "rate limit", "status 429", "status 500", "status 502", "status 503", "status 504", "api error 500", "api error 502", "api error 503", "api error 504", "too many requests"):
		return CategoryOverload
	case containsAny(msg, "safety", "blocked", "content policy", "content_policy", "filtered"):
		return CategoryContentPolicy
	case containsAny(msg, "unmarshal", "invalid character", "unexpected end of json", "no candidates", "empty response", "no content"):
		return CategoryMalformedResponse
	case containsAny(msg, "connection refused", "connection reset", "no such host", "timeout", "network", "eof"):
		return CategoryNetwork
	}
	return CategoryUnknown
}

// Retryable reports whether a single retry after a pause is worthwhile.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case CategoryOverload, CategoryNetwork:
		return true
	}
	return false
}

// UserMessage returns an actionable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pre *ExportPreconditionError
	if errors.As(err, &pre) {
		return "Nothing to export yet: " + pre.Reason + "."
	}
	if errors.Is(err, ErrNothingGenerated) {
		return "Generate a website first."
	}

	switch Classify(err) {
	case CategoryAuthentication:
		return "The model provider rejected the credentials. Check that the API key environment variable is set and valid."
	case CategoryQuota:
		return "The model provider quota is exhausted. Check your plan and billing, or try again later."
	case CategoryOverload:
		return "The model provider is overloaded or rate limiting requests. Wait a moment and try again."
	case CategoryContentPolicy:
		return "The request was blocked by the provider's content policy. Rephrase the idea and try again."
	case CategoryMalformedResponse:
		return "The model returned a response that could not be understood. Try again, or pick a stronger quality tier."
	case CategoryNetwork:
		return "Could not reach the model provider. Check your network connection and try again."
	}
	return "Something went wrong while generating the website. Please try again."
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
