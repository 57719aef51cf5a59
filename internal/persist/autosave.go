package persist

import (
	"context"
	"sync"
	"time"

	"github.com/ziadkadry99/sitesmith/internal/document"
)

// Saver is what the Autosaver writes through.
type Saver interface {
	Save(ctx context.Context, doc *document.Document) error
}

// Autosaver debounces saves: each Schedule restarts the quiet period and
// only the latest document is written.
type Autosaver struct {
	saver Saver
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *document.Document
	dirty   bool
	stopped bool
	writeMu sync.Mutex
}

// NewAutosaver returns an Autosaver waiting delay after the last change.
func NewAutosaver(saver Saver, delay time.Duration) *Autosaver {
	return &Autosaver{saver: saver, delay: delay}
}

// Schedule queues doc for saving once no further change arrives within
// the delay. A nil doc schedules a clear.
func (a *Autosaver) Schedule(doc *document.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = doc.Clone()
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	_ = a.Flush(context.Background())
}

// Flush writes any pending document now.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	doc := a.pending
	a.pending = nil
	a.dirty = false
	a.mu.Unlock()

	return a.saver.Save(ctx, doc)
}

// Stop flushes pending work and ignores later Schedule calls.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	return a.Flush(ctx)
}
