// Package relay fans JSON frames out to browser windows over websockets.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// AnyOrigin delivers a frame regardless of subscriber origin.
const AnyOrigin = "*"

const subscriberBuffer = 16

var (
	// ErrChannelClosed indicates the channel no longer accepts frames or
	// subscribers.
	ErrChannelClosed = errors.New("relay channel closed")
	// ErrChannelNotFound indicates no channel has the requested ID.
	ErrChannelNotFound = errors.New("relay channel not found")
)

type frame struct {
	data   []byte
	origin string
}

// Channel is a named fan-out point. Unless opened WithoutReplay, the most
// recent frame is kept and replayed to late subscribers.
type Channel struct {
	id     string
	replay bool

	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	last     *frame
	attached bool
	closed   bool
	onClose  func()
}

// ChannelOption configures a channel opened by Hub.Open.
type ChannelOption func(*Channel)

// WithoutReplay opens a channel whose frames reach only the subscribers
// attached when they are posted. Use it for relative moves, where replaying
// a stale frame would apply it twice.
func WithoutReplay() ChannelOption {
	return func(c *Channel) { c.replay = false }
}

func newChannel(id string, onClose func(), opts ...ChannelOption) *Channel {
	c := &Channel{id: id, replay: true, subs: map[*Subscription]struct{}{}, onClose: onClose}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.id }

// Post encodes msg and delivers it to every subscriber whose origin equals
// targetOrigin. Delivery is fire-and-forget; a subscriber that is not
// keeping up misses the frame.
func (c *Channel) Post(msg any, targetOrigin string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding relay frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}

	f := &frame{data: data, origin: targetOrigin}
	if c.replay {
		c.last = f
	}
	for sub := range c.subs {
		sub.deliver(f)
	}
	return nil
}

// Subscribe attaches a receiver located at origin. The last posted frame,
// if it targets origin, is delivered first.
func (c *Channel) Subscribe(origin string) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}

	sub := &Subscription{
		channel: c,
		origin:  origin,
		frames:  make(chan []byte, subscriberBuffer),
	}
	c.subs[sub] = struct{}{}
	c.attached = true
	if c.last != nil {
		sub.deliver(c.last)
	}
	return sub, nil
}

// Subscribers returns the number of attached receivers.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Closed reports whether the channel was closed, or whether every receiver
// that ever attached has gone away.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || (c.attached && len(c.subs) == 0)
}

// Close detaches all subscribers and rejects further use.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for sub := range c.subs {
		sub.closeFrames()
		delete(c.subs, sub)
	}
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (c *Channel) detach(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[sub]; ok {
		delete(c.subs, sub)
		sub.closeFrames()
	}
}

// Subscription receives frames for one receiver.
type Subscription struct {
	channel *Channel
	origin  string
	frames  chan []byte
	once    sync.Once
}

// Frames yields encoded frames until the subscription or channel closes.
func (s *Subscription) Frames() <-chan []byte { return s.frames }

// Close detaches the subscription.
func (s *Subscription) Close() { s.channel.detach(s) }

// deliver is called with the channel lock held.
func (s *Subscription) deliver(f *frame) {
	if f.origin != AnyOrigin && f.origin != s.origin {
		return
	}
	select {
	case s.frames <- f.data:
	default:
	}
}

func (s *Subscription) closeFrames() {
	s.once.Do(func() { close(s.frames) })
}
