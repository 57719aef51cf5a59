package pipeline

import (
	"sync"
	"time"

	"github.com/ziadkadry99/sitesmith/internal/llm"
)

// Stats summarises one generation run.
type Stats struct {
	RunID          string        `json:"runId"`
	TextModel      string        `json:"textModel"`
	ImageModel     string        `json:"imageModel"`
	TextCalls      int           `json:"textCalls"`
	ImageCalls     int           `json:"imageCalls"`
	InputTokens    int           `json:"inputTokens"`
	OutputTokens   int           `json:"outputTokens"`
	RefineFailures int           `json:"refineFailures"`
	ImageFailures  int           `json:"imageFailures"`
	FaviconFailed  bool          `json:"faviconFailed"`
	MissingIDs     []string      `json:"missingIds,omitempty"`
	EstimatedCost  float64       `json:"estimatedCost"`
	Duration       time.Duration `json:"duration"`
}

// usage accumulates token counts from concurrent calls.
type usage struct {
	mu    sync.Mutex
	stats *Stats
}

func (u *usage) text(resp *llm.CompletionResponse) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.TextCalls++
	if resp != nil {
		u.stats.InputTokens += resp.InputTokens
		u.stats.OutputTokens += resp.OutputTokens
	}
}

func (u *usage) image(failed bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.ImageCalls++
	if failed {
		u.stats.ImageFailures++
	}
}

func (u *usage) refineFailed() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.RefineFailures++
}

func (s *Stats) finish(started time.Time) {
	s.Duration = time.Since(started)
	s.EstimatedCost = llm.EstimateCost(s.TextModel, s.InputTokens, s.OutputTokens) +
		llm.EstimateImageCost(s.ImageModel, s.ImageCalls)
}

func (u *usage) favicon(failed bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.ImageCalls++
	u.stats.FaviconFailed = failed
}
