// Package history tracks the accepted diagrams of one section and drives
// its generate, edit, undo and redo transitions.
package history

// History is an ordered list of accepted diagrams with a cursor at the one
// being displayed. The first entry is never removed.
type History struct {
	entries []string
	cursor  int
}

// NewHistory returns a History seeded with initial, or an empty one when
// initial is "".
func NewHistory(initial string) *History {
	h := &History{}
	if initial != "" {
		h.entries = []string{initial}
	}
	return h
}

// Accept records diagram as the displayed entry. Entries after the cursor
// are discarded. It returns false, leaving the history untouched, when
// diagram equals the displayed entry.
func (h *History) Accept(diagram string) bool {
	if len(h.entries) == 0 {
		h.entries = append(h.entries, diagram)
		h.cursor = 0
		return true
	}
	if h.entries[h.cursor] == diagram {
		return false
	}
	h.entries = append(h.entries[:h.cursor+1:h.cursor+1], diagram)
	h.cursor = len(h.entries) - 1
	return true
}

// Current returns the displayed diagram, or "" when nothing was accepted.
func (h *History) Current() string {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[h.cursor]
}

// Undo moves the cursor back one entry.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	return true
}

// Redo moves the cursor forward one entry.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	return true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

func (h *History) Len() int { return len(h.entries) }

func (h *History) Cursor() int { return h.cursor }

// Entries returns a copy of the accepted diagrams, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
