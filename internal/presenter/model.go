package presenter

import (
	"fmt"
	"time"
)

// State is the lifecycle of a presenter session.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Direction is a relative slide move.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// ParseDirection accepts next/prev.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionNext, DirectionPrev:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Key is the keyboard key that performs the move in the embedded viewer.
func (d Direction) Key() string {
	if d == DirectionPrev {
		return "ArrowLeft"
	}
	return "ArrowRight"
}

func (d Direction) delta() int {
	if d == DirectionPrev {
		return -1
	}
	return 1
}

// Mode selects how navigation reaches the slides.
type Mode string

const (
	// ModeEmbed sends key intents to the presenter page's embedded viewer.
	ModeEmbed Mode = "embed"
	// ModeAddin drives PowerPoint through the Office add-in bridge.
	ModeAddin Mode = "addin"
)

// ParseMode accepts embed/addin; empty means embed.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeEmbed, nil
	case ModeEmbed, ModeAddin:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	PresentationID string       `json:"presentation_id"`
	Mode           Mode         `json:"mode"`
	State          State        `json:"state"`
	CurrentSlide   int          `json:"current_slide"`
	TotalSlides    int          `json:"total_slides"`
	HostSlide      int          `json:"host_slide,omitempty"`
	ViewURL        string       `json:"view_url,omitempty"`
	AudienceOpen   bool         `json:"audience_open"`
	AudienceURL    string       `json:"audience_url,omitempty"`
	SurfaceURL     string       `json:"surface_url,omitempty"`
	PresenterURL   string       `json:"presenter_url"`
	Error          string       `json:"error,omitempty"`
	Trace          []TraceEntry `json:"trace"`
	OpenedAt       time.Time    `json:"opened_at"`
}
