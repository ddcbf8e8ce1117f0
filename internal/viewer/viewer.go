// Package viewer turns stored files into Office Online embed URLs.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/rpggio/lectern/internal/graph"
	"github.com/rpggio/lectern/internal/identity"
	"golang.org/x/sync/singleflight"
)

// DefaultEmbedEndpoint is the public Office Online viewer.
const DefaultEmbedEndpoint = "https://view.officeapps.live.com/op/embed.aspx"

const presentationModeParams = "&wdStartOn=1&wdSlide=1&wdPresentationMode=1"

// lookupTimeout bounds a shared metadata lookup, which outlives the caller
// that started it.
const lookupTimeout = 30 * time.Second

var (
	// ErrFileNotAccessible indicates the storage provider refused the
	// metadata request.
	ErrFileNotAccessible = errors.New("file not accessible")
	// ErrDownloadURLMissing indicates the metadata had no download URL.
	ErrDownloadURLMissing = errors.New("download url missing")
)

// ItemFetcher reads drive item metadata.
type ItemFetcher interface {
	Item(ctx context.Context, id string, fields ...string) (*graph.DriveItem, error)
}

// Resolver resolves drive items to viewer URLs.
type Resolver struct {
	items    ItemFetcher
	endpoint string
	logger   *slog.Logger
	group    singleflight.Group
}

// NewResolver creates a Resolver. An empty endpoint uses
// DefaultEmbedEndpoint.
func NewResolver(items ItemFetcher, endpoint string, logger *slog.Logger) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEmbedEndpoint
	}
	return &Resolver{items: items, endpoint: endpoint, logger: logger}
}

// EmbedURL builds the viewer URL for a download URL.
func EmbedURL(endpoint, downloadURL string, presentationMode bool) string {
	u := endpoint + "?src=" + url.QueryEscape(downloadURL)
	if presentationMode {
		u += presentationModeParams
	}
	return u
}

// Resolve returns the plain viewer URL for a drive item.
func (r *Resolver) Resolve(ctx context.Context, fileID string) (string, error) {
	downloadURL, err := r.downloadURL(ctx, fileID)
	if err != nil {
		return "", err
	}
	return EmbedURL(r.endpoint, downloadURL, false), nil
}

// ResolvePresentation returns the viewer URL opened in presentation mode
// at slide 1.
func (r *Resolver) ResolvePresentation(ctx context.Context, fileID string) (string, error) {
	downloadURL, err := r.downloadURL(ctx, fileID)
	if err != nil {
		return "", err
	}
	return EmbedURL(r.endpoint, downloadURL, true), nil
}

// ResolvePublic builds a viewer URL for a file that is already publicly
// downloadable.
func (r *Resolver) ResolvePublic(publicURL string, presentationMode bool) (string, error) {
	if publicURL == "" {
		return "", ErrDownloadURLMissing
	}
	return EmbedURL(r.endpoint, publicURL, presentationMode), nil
}

func (r *Resolver) downloadURL(ctx context.Context, fileID string) (string, error) {
	// The lookup runs detached; each caller waits on its own context.
	ch := r.group.DoChan(fileID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		item, err := r.items.Item(lookupCtx, fileID, "id", "webUrl", "cTag", "@microsoft.graph.downloadUrl")
		if err != nil {
			return "", err
		}
		return item.DownloadURL, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if r.logger != nil {
		r.logger.DebugContext(ctx, "resolved file metadata", "file_id", fileID, "shared", shared, "error", err)
	}
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAuthRequired):
			return "", err
		case errors.Is(err, graph.ErrStorageOperationFailed):
			return "", fmt.Errorf("%w: %w", ErrFileNotAccessible, err)
		default:
			return "", fmt.Errorf("fetching file metadata: %w", err)
		}
	}

	downloadURL, _ := v.(string)
	if downloadURL == "" {
		return "", ErrDownloadURLMissing
	}
	return downloadURL, nil
}
