package document

import (
	"errors"
	"sync"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/history"
)

// ErrGenerationInProgress is returned when a second generation is started
// while one is running.
var ErrGenerationInProgress = errors.New("a generation is already in progress")

// ChangeFunc is called after every state change with a copy of the new
// document (nil after Clear).
type ChangeFunc func(doc *Document)

// Session owns the current document and its edit history. All mutations
// are atomic with respect to readers.
type Session struct {
	// writeMu serialises mutations together with their notifications so
	// listeners observe changes in commit order. Always taken before mu.
	writeMu    sync.Mutex
	mu         sync.Mutex
	doc        *Document
	hist       *history.Stack
	generating bool
	listeners  []ChangeFunc
}

// HistoryState summarises the undo stack.
type HistoryState struct {
	Cursor  int  `json:"cursor"`
	Len     int  `json:"len"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
	Limit   int  `json:"limit"`
}

// NewSession returns an empty session whose history keeps at most
// historyLimit snapshots (0 = unbounded).
func NewSession(historyLimit int) *Session {
	return &Session{hist: history.New(historyLimit)}
}

// OnChange registers a listener. Listeners run synchronously, in commit
// order, after the state lock is released; they may read the session but
// must not mutate it.
func (s *Session) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Publish replaces the document and resets history to one snapshot.
func (s *Session) Publish(doc *Document) {
	s.replace(doc)
}

// Restore installs a document loaded from storage.
func (s *Session) Restore(doc *Document) {
	s.replace(doc)
}

func (s *Session) replace(doc *Document) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.doc = doc.Clone()
	if s.doc != nil {
		s.hist.Reset(s.doc.HTML, s.doc.CSS)
	} else {
		s.hist.Clear()
	}
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// Clear forgets the document and its history.
func (s *Session) Clear() {
	s.replace(nil)
}

// Edit replaces the editable markup and stylesheet and records a snapshot.
// It reports whether anything changed.
func (s *Session) Edit(html, css string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return false, apperr.ErrNothingGenerated
	}
	if !s.hist.Push(html, css) {
		s.mu.Unlock()
		return false, nil
	}
	s.doc.HTML = html
	s.doc.CSS = css
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return true, nil
}

// Undo steps back one snapshot. It returns false at the oldest entry.
func (s *Session) Undo() bool {
	return s.move((*history.Stack).Undo)
}

// Redo steps forward one snapshot. It returns false at the newest entry.
func (s *Session) Redo() bool {
	return s.move((*history.Stack).Redo)
}

func (s *Session) move(step func(*history.Stack) (history.Snapshot, bool)) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return false
	}
	snap, ok := step(s.hist)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.doc.HTML = snap.HTML
	s.doc.CSS = snap.CSS
	doc := s.doc.Clone()
	s.mu.Unlock()
	s.notify(doc)
	return true
}

// Snapshot returns a copy of the current document, nil before the first
// generation.
func (s *Session) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// History returns the state of the undo stack.
func (s *Session) History() HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HistoryState{
		Cursor:  s.hist.Cursor(),
		Len:     s.hist.Len(),
		CanUndo: s.hist.CanUndo(),
		CanRedo: s.hist.CanRedo(),
		Limit:   s.hist.Limit(),
	}
}

// BeginGeneration marks a generation as running. It fails when one is
// already running; callers must pair a successful call with EndGeneration.
func (s *Session) BeginGeneration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return ErrGenerationInProgress
	}
	s.generating = true
	return nil
}

// EndGeneration clears the running flag.
func (s *Session) EndGeneration() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// Generating reports whether a generation is running.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *Session) notify(doc *Document) {
	s.mu.Lock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(doc)
	}
}
