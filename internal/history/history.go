// Package history keeps the linear undo/redo stack of editable snapshots.
package history

// Snapshot is one editable state of the page.
type Snapshot struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
}

// Stack is an ordered list of snapshots with a cursor. Pushing after an
// undo truncates the redo tail. A zero Stack is empty and unbounded.
//
// Stack is not safe for concurrent use; the owning session serialises access.
type Stack struct {
	entries []Snapshot
	cursor  int
	limit   int
}

// New returns an empty stack keeping at most limit snapshots. limit <= 0
// means unbounded.
func New(limit int) *Stack {
	if limit < 0 {
		limit = 0
	}
	return &Stack{cursor: -1, limit: limit}
}

// Limit returns the configured cap, 0 when unbounded.
func (s *Stack) Limit() int { return s.limit }

// Reset replaces the whole history with a single snapshot.
func (s *Stack) Reset(html, css string) {
	s.entries = []Snapshot{{HTML: html, CSS: css}}
	s.cursor = 0
}

// Clear empties the stack.
func (s *Stack) Clear() {
	s.entries = nil
	s.cursor = -1
}

// Push records a new snapshot after the cursor, discarding any redo tail.
// A snapshot equal to the current one adds no entry but still discards the
// tail. It reports whether the stack changed.
func (s *Stack) Push(html, css string) bool {
	snap := Snapshot{HTML: html, CSS: css}
	if s.cursor >= 0 && s.entries[s.cursor] == snap {
		if !s.CanRedo() {
			return false
		}
		s.entries = s.entries[:s.cursor+1]
		return true
	}
	s.entries = append(s.entries[:s.cursor+1], snap)
	s.cursor = len(s.entries) - 1
	if s.limit > 0 && len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = append([]Snapshot(nil), s.entries[drop:]...)
		s.cursor -= drop
	}
	return true
}

// Undo moves the cursor back one step and returns the snapshot now current.
// At the oldest entry it returns false and leaves the cursor alone.
func (s *Stack) Undo() (Snapshot, bool) {
	if !s.CanUndo() {
		return Snapshot{}, false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// Redo moves the cursor forward one step.
func (s *Stack) Redo() (Snapshot, bool) {
	if !s.CanRedo() {
		return Snapshot{}, false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

// Current returns the snapshot at the cursor.
func (s *Stack) Current() (Snapshot, bool) {
	if s.cursor < 0 {
		return Snapshot{}, false
	}
	return s.entries[s.cursor], true
}

func (s *Stack) CanUndo() bool { return s.cursor > 0 }

func (s *Stack) CanRedo() bool { return s.cursor >= 0 && s.cursor < len(s.entries)-1 }

func (s *Stack) Len() int { return len(s.entries) }

// Cursor returns the index of the current snapshot, -1 when empty.
func (s *Stack) Cursor() int { return s.cursor }

// Entries returns a copy of all snapshots, oldest first.
func (s *Stack) Entries() []Snapshot {
	return append([]Snapshot(nil), s.entries...)
}
