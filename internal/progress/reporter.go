package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Stage names a pipeline milestone.
type Stage string

const (
	StageRequestSent       Stage = "request-sent"
	StageStructureReceived Stage = "structure-received"
	StageOptimizing        Stage = "optimizing-assets"
	StageRendering         Stage = "rendering"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Event is one advisory progress update. Current and Total count the
// pipeline steps completed so far.
type Event struct {
	RunID   string `json:"runId,omitempty"`
	Stage   Stage  `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Reporter provides progress feedback during site generation.
type Reporter interface {
	Start(total int)
	Update(ev Event)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar on stderr.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Generating site"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(ev Event) {
	if r.bar == nil {
		return
	}
	if ev.Total > 0 && ev.Total != r.bar.GetMax() {
		r.bar.ChangeMax(ev.Total)
	}
	r.bar.Describe(ev.Message)
	_ = r.bar.Set(ev.Current)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	Out   io.Writer
	total int
}

func (r *CIReporter) out() io.Writer {
	if r.Out == nil {
		return os.Stderr
	}
	return r.Out
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.out(), "Starting site generation (%d steps)\n", total)
}

func (r *CIReporter) Update(ev Event) {
	total := ev.Total
	if total == 0 {
		total = r.total
	}
	fmt.Fprintf(r.out(), "[%d/%d] %s\n", ev.Current, total, ev.Message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.out(), "Site generation complete")
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int)    {}
func (Nop) Update(Event) {}
func (Nop) Finish()      {}

// Multi forwards every call to each reporter in order.
type Multi []Reporter

func (m Multi) Start(total int) {
	for _, r := range m {
		r.Start(total)
	}
}

func (m Multi) Update(ev Event) {
	for _, r := range m {
		r.Update(ev)
	}
}

func (m Multi) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

// Func adapts a function to a Reporter that only sees updates.
type Func func(Event)

func (f Func) Start(int)       {}
func (f Func) Update(ev Event) { f(ev) }
func (f Func) Finish()         {}

// Hub fans events out to subscribers, typically websocket connections.
// Slow subscribers miss events rather than block the pipeline.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	last   *Event
	buffer int
}

// NewHub returns a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a cancel func that closes it.
// The most recent event, if any, is delivered first.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Last returns the most recent event.
func (h *Hub) Last() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Event{}, false
	}
	return *h.last, true
}

func (h *Hub) Start(int) {}

func (h *Hub) Update(ev Event) { h.Publish(ev) }

func (h *Hub) Finish() {}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &ev
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
