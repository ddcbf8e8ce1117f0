// Package audience mirrors the presenter's slide on a second screen.
package audience

import (
	"fmt"
	"log/slog"
	"sync"
)

// TypeGotoSlide is the only message type the audience view acts on.
const TypeGotoSlide = "GOTO_SLIDE"

// Message is the frame sent from a presenter to its audience view.
type Message struct {
	Type        string `json:"type"`
	SlideNumber int    `json:"slideNumber"`
	Direction   string `json:"direction,omitempty"`
	URL         string `json:"url,omitempty"`
}

// GotoSlide builds a navigation message.
func GotoSlide(slide int, direction string) Message {
	return Message{Type: TypeGotoSlide, SlideNumber: slide, Direction: direction}
}

// State is a copy of the view's observable fields.
type State struct {
	CurrentSlide int    `json:"current_slide"`
	ViewURL      string `json:"view_url"`
	Fullscreen   bool   `json:"fullscreen"`
}

// View tracks what the audience screen shows. It trusts only messages from
// its own origin.
type View struct {
	origin string
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewView creates a view served from origin, starting at slide 1.
func NewView(origin, viewURL string, logger *slog.Logger) *View {
	return &View{
		origin: origin,
		logger: logger,
		state:  State{CurrentSlide: 1, ViewURL: viewURL},
	}
}

// Mount asks for fullscreen. A refusal is returned as a warning and the view
// keeps working windowed.
func (v *View) Mount(requestFullscreen func() error) error {
	if requestFullscreen == nil {
		return nil
	}
	if err := requestFullscreen(); err != nil {
		if v.logger != nil {
			v.logger.Warn("fullscreen request refused", "error", err)
		}
		return fmt.Errorf("fullscreen: %w", err)
	}
	v.mu.Lock()
	v.state.Fullscreen = true
	v.mu.Unlock()
	return nil
}

// HandleMessage applies msg if it came from the view's origin and is a
// slide change. It reports whether the message was applied.
func (v *View) HandleMessage(origin string, msg Message) bool {
	if origin != v.origin || msg.Type != TypeGotoSlide {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.CurrentSlide = msg.SlideNumber
	if msg.URL != "" {
		v.state.ViewURL = msg.URL
	}
	return true
}

// State returns a copy of the current view state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}
