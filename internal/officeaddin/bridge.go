// Package officeaddin drives PowerPoint through an Office add-in host.
package officeaddin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var (
	ErrNotInitialized    = errors.New("office bridge not initialized")
	ErrHostUnavailable   = errors.New("office host is not loaded")
	ErrNotOfficeHost     = errors.New("not running in office environment")
	ErrPresentationInfo  = errors.New("failed to get presentation info")
	ErrNavigate          = errors.New("failed to navigate to slide")
	ErrCurrentSlide      = errors.New("failed to get current slide")
	ErrStartPresentation = errors.New("failed to start presentation")
	ErrStopPresentation  = errors.New("failed to stop presentation")
)

// DefaultPlatform is the platform value a desktop or web Office host reports.
const DefaultPlatform = "Office"

// SlideInfo describes one slide.
type SlideInfo struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

// PresentationInfo describes the open deck.
type PresentationInfo struct {
	TotalSlides  int         `json:"total_slides"`
	CurrentSlide int         `json:"current_slide"`
	Slides       []SlideInfo `json:"slides"`
}

type slideRange struct {
	Slides []struct {
		Title string `json:"title"`
		Notes string `json:"notes"`
	} `json:"slides"`
	SlideIndex int `json:"slideIndex"`
}

// Bridge turns host callbacks into blocking calls with typed errors.
type Bridge struct {
	host     Host
	platform string

	mu          sync.Mutex
	initialized bool
}

// NewBridge creates a Bridge over host. A nil host makes Initialize fail
// with ErrHostUnavailable.
func NewBridge(host Host, expectedPlatform string) *Bridge {
	if expectedPlatform == "" {
		expectedPlatform = DefaultPlatform
	}
	return &Bridge{host: host, platform: expectedPlatform}
}

// Initialize waits for the host to report ready. It is a no-op once it
// has succeeded.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	if b.host == nil {
		return ErrHostUnavailable
	}

	info, err := b.host.OnReady(ctx)
	if err != nil {
		return err
	}
	if info.Platform != b.platform {
		return fmt.Errorf("%w: platform %q", ErrNotOfficeHost, info.Platform)
	}
	b.initialized = true
	return nil
}

// Reset forgets a previous Initialize, e.g. after the host went away.
func (b *Bridge) Reset() {
	b.mu.Lock()
	b.initialized = false
	b.mu.Unlock()
}

// Initialized reports whether Initialize has succeeded.
func (b *Bridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// PresentationInfo returns the slides of the open deck. Untitled slides
// are named "Slide N".
func (b *Bridge) PresentationInfo(ctx context.Context) (*PresentationInfo, error) {
	res, err := b.await(ctx, func(cb Callback) {
		b.host.GetSelectedDataAsync(ctx, CoercionSlideRange, cb)
	})
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		return nil, hostError(ErrPresentationInfo, res)
	}

	var sr slideRange
	if err := json.Unmarshal(res.Value, &sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPresentationInfo, err)
	}
	info := &PresentationInfo{
		TotalSlides:  len(sr.Slides),
		CurrentSlide: sr.SlideIndex,
		Slides:       make([]SlideInfo, len(sr.Slides)),
	}
	for i, s := range sr.Slides {
		title := s.Title
		if title == "" {
			title = "Slide " + strconv.Itoa(i+1)
		}
		info.Slides[i] = SlideInfo{Index: i + 1, Title: title, Notes: s.Notes}
	}
	return info, nil
}

// GoToSlide jumps to the 1-based slide index.
func (b *Bridge) GoToSlide(ctx context.Context, index int) error {
	res, err := b.await(ctx, func(cb Callback) {
		b.host.GoToByIDAsync(ctx, "slide-"+strconv.Itoa(index), GoToSlide, cb)
	})
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return hostError(ErrNavigate, res)
	}
	return nil
}

// CurrentSlide returns the slide the host has selected.
func (b *Bridge) CurrentSlide(ctx context.Context) (int, error) {
	res, err := b.await(ctx, func(cb Callback) {
		b.host.GetSelectedDataAsync(ctx, CoercionSlideRange, cb)
	})
	if err != nil {
		return 0, err
	}
	if !res.Succeeded() {
		return 0, hostError(ErrCurrentSlide, res)
	}

	var sr slideRange
	if err := json.Unmarshal(res.Value, &sr); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCurrentSlide, err)
	}
	return sr.SlideIndex, nil
}

// StartPresentation starts the slide show.
func (b *Bridge) StartPresentation(ctx context.Context) error {
	res, err := b.await(ctx, func(cb Callback) {
		b.host.StartPresentationAsync(ctx, cb)
	})
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return hostError(ErrStartPresentation, res)
	}
	return nil
}

// StopPresentation ends the slide show.
func (b *Bridge) StopPresentation(ctx context.Context) error {
	res, err := b.await(ctx, func(cb Callback) {
		b.host.StopPresentationAsync(ctx, cb)
	})
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return hostError(ErrStopPresentation, res)
	}
	return nil
}

// await issues call and blocks for its first callback or ctx.
func (b *Bridge) await(ctx context.Context, call func(Callback)) (AsyncResult, error) {
	if !b.Initialized() {
		return AsyncResult{}, ErrNotInitialized
	}

	results := make(chan AsyncResult, 1)
	var once sync.Once
	call(func(res AsyncResult) {
		once.Do(func() { results <- res })
	})

	select {
	case res := <-results:
		return res, nil
	case <-ctx.Done():
		return AsyncResult{}, ctx.Err()
	}
}

func hostError(sentinel error, res AsyncResult) error {
	if res.Error == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, res.Error)
}
