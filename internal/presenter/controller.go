package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/lectern/internal/audience"
)

// DefaultTotalSlides is assumed until the real count is known.
const DefaultTotalSlides = 10

// DefaultPollInterval is how often an open audience window is checked.
const DefaultPollInterval = time.Second

// DefaultNavigateTimeout bounds one navigator call.
const DefaultNavigateTimeout = 5 * time.Second

const stopSlideshowTimeout = 5 * time.Second

// Options configures a Controller.
type Options struct {
	PresentationID string
	Mode           Mode
	// ResolveView returns the viewer URL in presentation mode.
	ResolveView func(ctx context.Context) (string, error)
	// CountSlides is optional; a failure or zero keeps DefaultTotalSlides.
	CountSlides func(ctx context.Context) (int, error)
	Navigator   Navigator
	// NavigateTimeout bounds each Navigator call.
	NavigateTimeout time.Duration
	// Slideshow is optional; it is started after a successful load.
	Slideshow Slideshow
	Opener    WindowOpener
	// TargetOrigin restricts which windows receive audience messages.
	TargetOrigin       string
	DefaultTotalSlides int
	PollInterval       time.Duration
	// SurfaceURL is where the presenter page follows key intents.
	SurfaceURL string
	// OnClose runs once when the controller closes.
	OnClose func()
	Logger  *slog.Logger
}

// Controller drives one presenter session: it resolves the viewer URL,
// keeps the current slide and mirrors every move to the audience window.
type Controller struct {
	opts  Options
	trace *Trace
	key   string

	// navMu orders moves. It is held across the navigator call; mu is not.
	navMu sync.Mutex

	mu        sync.Mutex
	started   bool
	state     State
	errMsg    string
	viewURL   string
	current   int
	total     int
	audience  AudienceWindow
	stopPoll  chan struct{}
	closed    bool
	openedAt  time.Time
	pollDone  sync.WaitGroup
	closeOnce sync.Once
}

// NewController creates a controller in the loading state.
func NewController(opts Options) *Controller {
	if opts.DefaultTotalSlides <= 0 {
		opts.DefaultTotalSlides = DefaultTotalSlides
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = DefaultNavigateTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeEmbed
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("presentation_id", opts.PresentationID)
	}
	return &Controller{
		opts:     opts,
		trace:    NewTrace(logger),
		key:      uuid.NewString(),
		state:    StateLoading,
		current:  1,
		total:    opts.DefaultTotalSlides,
		openedAt: time.Now(),
	}
}

// Load resolves the viewer URL and then, best effort, the slide count. A
// resolution failure leaves the controller in the error state for good.
func (c *Controller) Load(ctx context.Context) error {
	c.trace.Addf("Loading presentation %s", c.opts.PresentationID)

	viewURL, err := c.opts.ResolveView(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateError
		c.errMsg = err.Error()
		c.mu.Unlock()
		c.trace.Addf("Failed to resolve viewer URL: %v", err)
		return fmt.Errorf("loading presentation: %w", err)
	}
	c.trace.Addf("Viewer URL resolved")

	total := c.opts.DefaultTotalSlides
	if c.opts.CountSlides != nil {
		n, err := c.opts.CountSlides(ctx)
		switch {
		case err != nil:
			c.trace.Addf("Could not determine slide count, using %d: %v", total, err)
		case n > 0:
			total = n
			c.trace.Addf("Slide count: %d", n)
		default:
			c.trace.Addf("Slide count unavailable, using %d", total)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.viewURL = viewURL
	c.total = total
	c.current = 1
	c.state = StateReady
	c.mu.Unlock()

	if c.opts.Slideshow != nil {
		if err := c.opts.Slideshow.StartPresentation(ctx); err != nil {
			c.trace.Addf("Could not start slide show: %v", err)
			return nil
		}
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
		c.trace.Addf("Slide show started")
	}
	return nil
}

// Navigate moves one slide in direction and returns the new index. The
// index is updated even when the navigator fails; there is no clamping.
// Snapshot and the audience window stay available while the navigator runs.
func (c *Controller) Navigate(ctx context.Context, direction Direction) (int, error) {
	if _, err := ParseDirection(string(direction)); err != nil {
		return 0, err
	}

	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return 0, ErrNotReady
	}
	newIndex := c.current + direction.delta()
	c.current = newIndex
	c.mu.Unlock()

	if c.opts.Navigator != nil {
		navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigateTimeout)
		err := c.opts.Navigator.Navigate(navCtx, direction, newIndex)
		cancel()
		if err != nil {
			c.trace.Addf("Navigation %s failed: %v", direction.Key(), err)
		} else {
			c.trace.Addf("Sent %s to viewer", direction.Key())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audience == nil {
		c.trace.Addf("audience view window is not open")
		return newIndex, nil
	}
	msg := audience.GotoSlide(newIndex, string(direction))
	if err := c.audience.Post(msg, c.opts.TargetOrigin); err != nil {
		c.trace.Addf("Failed to post GOTO_SLIDE %d: %v", newIndex, err)
	} else {
		c.trace.Addf("Posted GOTO_SLIDE %d to audience view", newIndex)
	}
	return newIndex, nil
}

// OpenAudienceView opens the audience window and starts watching it. A
// window that is already open is replaced.
func (c *Controller) OpenAudienceView(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	if c.viewURL == "" {
		c.trace.Addf("Cannot open audience view: no view URL")
		return "", ErrNoViewURL
	}

	target := fmt.Sprintf("/presentations/%s/audience?viewUrl=%s",
		url.PathEscape(c.opts.PresentationID), url.QueryEscape(c.viewURL))
	win, err := c.opts.Opener.Open(ctx, target)
	if err != nil {
		c.trace.Addf("Failed to open audience view: %v", err)
		return "", fmt.Errorf("opening audience view: %w", err)
	}

	if c.audience != nil {
		c.trace.Addf("Replacing open audience view")
		c.stopAudienceLocked()
	}
	c.audience = win
	c.stopPoll = make(chan struct{})
	c.pollDone.Add(1)
	go c.poll(win, c.stopPoll)

	c.trace.Addf("Audience view opened")
	return win.URL(), nil
}

// poll clears the audience handle once the window reports closed.
func (c *Controller) poll(win AudienceWindow, stop <-chan struct{}) {
	defer c.pollDone.Done()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !win.Closed() {
				continue
			}
			c.mu.Lock()
			if c.audience == win {
				c.audience = nil
				c.stopPoll = nil
				c.trace.Addf("Audience view window closed")
			}
			c.mu.Unlock()
			return
		}
	}
}

// stopAudienceLocked must be called with c.mu held.
func (c *Controller) stopAudienceLocked() {
	if c.stopPoll != nil {
		close(c.stopPoll)
		c.stopPoll = nil
	}
	if c.audience != nil {
		if err := c.audience.Close(); err != nil {
			c.trace.Addf("Closing audience view: %v", err)
		}
		c.audience = nil
	}
}

// AudienceOpen reports whether an audience window is attached.
func (c *Controller) AudienceOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audience != nil
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		PresentationID: c.opts.PresentationID,
		Mode:           c.opts.Mode,
		State:          c.state,
		CurrentSlide:   c.current,
		TotalSlides:    c.total,
		ViewURL:        c.viewURL,
		AudienceOpen:   c.audience != nil,
		SurfaceURL:     c.opts.SurfaceURL,
		PresenterURL:   c.presenterURL(),
		Error:          c.errMsg,
		Trace:          c.trace.Entries(),
		OpenedAt:       c.openedAt,
	}
	if c.audience != nil {
		s.AudienceURL = c.audience.URL()
	}
	return s
}

func (c *Controller) presenterURL() string {
	return fmt.Sprintf("/presentations/%s/presenter?key=%s",
		url.PathEscape(c.opts.PresentationID), url.QueryEscape(c.key))
}

// ControlKey is the per-session secret the presenter page sends with its
// navigation requests.
func (c *Controller) ControlKey() string { return c.key }

// HostSnapshot is Snapshot plus the slide the slide show host has selected.
// A failed host lookup is traced and leaves HostSlide zero.
func (c *Controller) HostSnapshot(ctx context.Context) Snapshot {
	if c.opts.Slideshow == nil {
		return c.Snapshot()
	}
	n, err := c.opts.Slideshow.CurrentSlide(ctx)
	if err != nil {
		c.trace.Addf("Could not read host slide: %v", err)
	}
	s := c.Snapshot()
	if err == nil {
		s.HostSlide = n
	}
	return s
}

// Trace returns the session's diagnostic trace.
func (c *Controller) Trace() *Trace { return c.trace }

// Close stops watching and closes the audience window. It is safe to call
// more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.stopAudienceLocked()
		started := c.started
		c.mu.Unlock()

		c.pollDone.Wait()
		if started {
			ctx, cancel := context.WithTimeout(context.Background(), stopSlideshowTimeout)
			if err := c.opts.Slideshow.StopPresentation(ctx); err != nil {
				c.trace.Addf("Could not stop slide show: %v", err)
			}
			cancel()
		}
		if c.opts.OnClose != nil {
			c.opts.OnClose()
		}
		c.trace.Addf("Presenter session closed")
	})
}
