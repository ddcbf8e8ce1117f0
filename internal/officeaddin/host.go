package officeaddin

import (
	"context"
	"encoding/json"
)

// Status is the outcome reported to an async callback.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// CoercionType selects the shape of selected data.
type CoercionType string

// CoercionSlideRange returns the selected slides and current index.
const CoercionSlideRange CoercionType = "slideRange"

// GoToType selects what a go-to call targets.
type GoToType string

// GoToSlide targets a slide by ID.
const GoToSlide GoToType = "slide"

// AsyncResult is passed to host callbacks.
type AsyncResult struct {
	Status Status          `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Succeeded reports whether the call completed.
func (r AsyncResult) Succeeded() bool { return r.Status == StatusSucceeded }

// Callback receives the outcome of an async host call. Hosts may invoke it
// more than once; only the first invocation counts.
type Callback func(AsyncResult)

// HostInfo is what the host reports when ready.
type HostInfo struct {
	Host     string `json:"host"`
	Platform string `json:"platform"`
}

// Host is the callback-style document API of a PowerPoint host.
type Host interface {
	OnReady(ctx context.Context) (HostInfo, error)
	GetSelectedDataAsync(ctx context.Context, coercion CoercionType, cb Callback)
	GoToByIDAsync(ctx context.Context, id string, goTo GoToType, cb Callback)
	StartPresentationAsync(ctx context.Context, cb Callback)
	StopPresentationAsync(ctx context.Context, cb Callback)
}
