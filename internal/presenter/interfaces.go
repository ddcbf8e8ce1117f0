package presenter

import (
	"context"

	"github.com/rpggio/lectern/internal/officeaddin"
)

// Navigator carries a navigation intent to wherever the slides render.
type Navigator interface {
	Navigate(ctx context.Context, direction Direction, newIndex int) error
}

// AudienceWindow is a handle to an opened audience view.
type AudienceWindow interface {
	// Post sends msg to the window if it is located at targetOrigin.
	Post(msg any, targetOrigin string) error
	// Closed reports whether the window has gone away.
	Closed() bool
	// Close tears the window down.
	Close() error
	// URL is the address the audience view is opened at.
	URL() string
}

// WindowOpener opens audience windows.
type WindowOpener interface {
	Open(ctx context.Context, url string) (AudienceWindow, error)
}

// Poster delivers relay frames.
type Poster interface {
	Post(msg any, targetOrigin string) error
}

// SlideGoer jumps directly to a slide index.
type SlideGoer interface {
	GoToSlide(ctx context.Context, index int) error
}

// Slideshow is a host-side slide show. The controller starts it once the
// deck has loaded and stops it on close.
type Slideshow interface {
	StartPresentation(ctx context.Context) error
	StopPresentation(ctx context.Context) error
	CurrentSlide(ctx context.Context) (int, error)
}

// AddinBridge is what add-in mode needs from the Office host.
type AddinBridge interface {
	SlideGoer
	Slideshow
	PresentationInfo(ctx context.Context) (*officeaddin.PresentationInfo, error)
}
