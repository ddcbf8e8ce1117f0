package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TraceEntry is one timestamped diagnostic line.
type TraceEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Trace is an append-only diagnostic log for one session. Entries are also
// written to the logger at debug level.
type Trace struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []TraceEntry
}

// NewTrace creates a Trace. A nil logger only records.
func NewTrace(logger *slog.Logger) *Trace {
	return &Trace{logger: logger}
}

// Addf appends a formatted entry.
func (t *Trace) Addf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	t.mu.Lock()
	t.entries = append(t.entries, TraceEntry{Time: time.Now(), Message: msg})
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Log(context.Background(), slog.LevelDebug, msg)
	}
}

// Entries returns a copy of the trace.
func (t *Trace) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEntry(nil), t.entries...)
}

// Contains reports whether any entry has exactly msg.
func (t *Trace) Contains(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}
