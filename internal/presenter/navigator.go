package presenter

import (
	"context"
	"fmt"

	"github.com/rpggio/lectern/internal/relay"
)

// KeyFrame is posted to the presenter surface for each move.
type KeyFrame struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// KeyNavigator sends synthetic key intents to the presenter page, which
// replays them into the embedded viewer.
type KeyNavigator struct {
	surface Poster
	origin  string
}

// NewKeyNavigator creates a KeyNavigator posting to surface.
func NewKeyNavigator(surface Poster, targetOrigin string) *KeyNavigator {
	return &KeyNavigator{surface: surface, origin: targetOrigin}
}

// Navigate implements Navigator.
func (n *KeyNavigator) Navigate(_ context.Context, direction Direction, _ int) error {
	return n.surface.Post(KeyFrame{Type: "KEY", Key: direction.Key()}, n.origin)
}

// AddinNavigator jumps PowerPoint to the new slide through the add-in.
type AddinNavigator struct {
	bridge SlideGoer
}

// NewAddinNavigator creates an AddinNavigator.
func NewAddinNavigator(bridge SlideGoer) *AddinNavigator {
	return &AddinNavigator{bridge: bridge}
}

// Navigate implements Navigator.
func (n *AddinNavigator) Navigate(ctx context.Context, _ Direction, newIndex int) error {
	return n.bridge.GoToSlide(ctx, newIndex)
}

// RelayOpener opens audience windows as relay channels. The returned URL
// tells the audience page which channel to follow.
type RelayOpener struct {
	hub *relay.Hub
}

// NewRelayOpener creates a RelayOpener on hub.
func NewRelayOpener(hub *relay.Hub) *RelayOpener {
	return &RelayOpener{hub: hub}
}

// Open implements WindowOpener.
func (o *RelayOpener) Open(_ context.Context, target string) (AudienceWindow, error) {
	ch := o.hub.Open()
	return &relayWindow{Channel: ch, url: fmt.Sprintf("%s&channel=%s", target, ch.ID())}, nil
}

type relayWindow struct {
	*relay.Channel
	url string
}

func (w *relayWindow) URL() string { return w.url }
