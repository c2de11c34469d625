package memory

import (
	"strings"
	"time"
)

const (
	// DefaultCapacity is the number of turns retained per conversation.
	DefaultCapacity = 20
	// contextTurns bounds how many retained turns are rendered into prompts.
	contextTurns = 10
	// recentTurns bounds the slice used for lightweight feature detection.
	recentTurns = 6
)

// Turn is a single conversational exchange held in a Window.
type Turn struct {
	Role      string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Window is a bounded FIFO buffer of recent conversation turns. It is rebuilt
// from the persisted message history on every request and performs no I/O.
// Appending beyond capacity evicts the oldest turn first.
type Window struct {
	capacity int
	turns    []Turn
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// Append records a turn with a server-assigned timestamp, evicting the oldest
// turn when the window is full.
func (w *Window) Append(role, content string, metadata map[string]any) {
	w.AppendAt(role, content, metadata, time.Now().UTC())
}

// AppendAt is Append with an explicit timestamp, used when rebuilding the
// window from persisted messages.
func (w *Window) AppendAt(role, content string, metadata map[string]any, at time.Time) {
	w.turns = append(w.turns, Turn{
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: at,
	})
	if len(w.turns) > w.capacity {
		w.turns = w.turns[len(w.turns)-w.capacity:]
	}
}

func (w *Window) Len() int {
	return len(w.turns)
}

// Turns returns a copy of the retained turns in chronological order.
func (w *Window) Turns() []Turn {
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Context renders the most recent turns as "ROLE: content" lines for LLM
// prompts, oldest first. At most contextTurns turns are included.
func (w *Window) Context() string {
	if len(w.turns) == 0 {
		return ""
	}
	start := 0
	if len(w.turns) > contextTurns {
		start = len(w.turns) - contextTurns
	}
	lines := make([]string, 0, len(w.turns)-start)
	for _, t := range w.turns[start:] {
		lines = append(lines, strings.ToUpper(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// Recent returns the last few user/assistant turns, excluding system entries.
func (w *Window) Recent() []Turn {
	start := 0
	if len(w.turns) > recentTurns {
		start = len(w.turns) - recentTurns
	}
	out := make([]Turn, 0, recentTurns)
	for _, t := range w.turns[start:] {
		if t.Role == "user" || t.Role == "assistant" {
			out = append(out, t)
		}
	}
	return out
}
