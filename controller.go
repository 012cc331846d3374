package protectimg

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gcslaoli/protectimg/internal/logging"
)

// Controller owns one display slot: a pixel surface, an optional protected
// node, and the overlay shown while loading or after an error. Each call to
// SetSource with a new request starts a generation; results from any older
// generation, or arriving after Close, are discarded without touching state.
type Controller struct {
	fetcher  Fetcher
	renderer *Renderer
	logger   *slog.Logger
	now      func() time.Time
	baseCtx  context.Context
	observer func(State)

	mu        sync.Mutex
	req       ImageRequest
	started   bool
	closed    bool
	state     State
	attempts  []LoadAttempt
	surface   *image.RGBA
	protected *ProtectedNode
	container *html.Node
	surfaceEl *html.Node
	overlay   *html.Node
	dispose   func()
	settled   chan struct{}

	// wg tracks generation goroutines so tests can wait for late results.
	wg sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the base logger. A component attribute is added.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "protectimg")
	}
}

// WithClock overrides the time source used for cache busting and attempt timing.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithContext sets the parent context of every generation. Cancelling it
// aborts in-flight fetches, which then settle as errors.
func WithContext(ctx context.Context) ControllerOption {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithObserver registers a callback for every state change. It runs with the
// controller lock held and must not call back into the controller.
func WithObserver(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.observer = fn
	}
}

// NewController builds a controller. A nil fetcher falls back to a default
// HTTPLoader and a nil renderer to the default watermark pattern.
func NewController(fetcher Fetcher, renderer *Renderer, opts ...ControllerOption) *Controller {
	if fetcher == nil {
		fetcher = NewHTTPLoader()
	}
	if renderer == nil {
		renderer = &Renderer{pattern: DefaultPattern()}
	}

	c := &Controller{
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logging.NewComponentLogger(nil, "protectimg"),
		now:      time.Now,
		baseCtx:  context.Background(),
		settled:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.container = element(atom.Div,
		attr("class", "protected-image-container"),
		attr("style", containerCSS),
		attr("oncontextmenu", "return false"),
	)
	c.surfaceEl = element(atom.Img,
		attr("class", "pixel-surface"),
		attr("draggable", "false"),
		attr("style", "display:block;"+noSelectStyle+"-webkit-user-drag:none;"),
	)
	c.container.AppendChild(c.surfaceEl)
	c.resetSurfaceLocked()
	c.showOverlayLocked("loading", "Loading…")

	return c
}

// SetSource makes req the active request. Passing the request that is already
// active does nothing, so re-rendering with unchanged input never refetches.
func (c *Controller) SetSource(req ImageRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.started && req == c.req {
		return
	}
	c.beginLocked(req)
}

// Reload restarts the active request as a fresh generation.
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.started {
		return
	}
	c.beginLocked(c.req)
}

// Close tears the controller down. In-flight fetches are cancelled, their
// results are dropped, and any protected node is detached.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.disposeLocked()
	c.closed = true
	c.logger.Debug("controller closed",
		logging.Uint64("generation", c.state.Generation),
		logging.String("phase", c.state.Phase.String()),
	)
	return nil
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Surface returns the pixel surface. It is a blank 1x1 bitmap unless the
// active request succeeded on the pixel path.
func (c *Controller) Surface() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// ProtectedNode returns the attached fallback node, or nil.
func (c *Controller) ProtectedNode() *ProtectedNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protected
}

// Attempts returns the load attempts of the active generation.
func (c *Controller) Attempts() []LoadAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LoadAttempt, len(c.attempts))
	copy(out, c.attempts)
	return out
}

// Wait blocks until the active request settles, the controller is closed, or
// ctx is done. A request replaced while waiting is followed to its successor.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		state := c.state
		if c.closed {
			c.mu.Unlock()
			return state, ErrClosed
		}
		if c.started && state.Settled() {
			c.mu.Unlock()
			return state, nil
		}
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

func (c *Controller) beginLocked(req ImageRequest) {
	c.disposeLocked()

	c.started = true
	c.req = req
	c.attempts = nil
	c.settled = make(chan struct{})
	c.state = State{
		Phase:      PhaseIdle,
		Generation: c.state.Generation + 1,
		RequestID:  uuid.NewString(),
		Source:     req.SourceURL,
	}
	c.resetSurfaceLocked()
	c.showOverlayLocked("loading", "Loading…")
	c.notifyLocked()

	gen := c.state.Generation
	logger := c.logger.With(
		logging.String(logging.FieldRequestID, c.state.RequestID),
		logging.Uint64("generation", gen),
	)

	if strings.TrimSpace(req.SourceURL) == "" {
		logging.WarnWithContext(logger, "image request has no source", "image_no_source",
			logging.String(logging.FieldErrorHint, "pass a non-empty source URL"),
			logging.String(logging.FieldImpact, "error overlay shown, no fetch made"),
		)
		c.failLocked(ErrNoSource)
		c.notifyLocked()
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.dispose = func() {
		cancel()
		if c.protected != nil {
			c.protected.detach()
			c.protected = nil
		}
	}

	primaryURL := StampURL(req.SourceURL, c.now())
	c.attempts = append(c.attempts, LoadAttempt{
		Mode:    CrossOrigin,
		Status:  Pending,
		URL:     primaryURL,
		Started: c.now(),
	})
	c.state.Phase = PhaseLoadingPrimary
	c.notifyLocked()
	logger.Debug("primary load started", logging.String("url", primaryURL))

	c.wg.Add(1)
	go c.run(ctx, gen, req, primaryURL, logger)
}

// run performs the primary attempt and, if it fails, the fallback attempt.
// Every state change goes through commit so superseded generations are inert.
func (c *Controller) run(ctx context.Context, gen uint64, req ImageRequest, primaryURL string, logger *slog.Logger) {
	defer c.wg.Done()

	decoded, err := c.fetcher.Fetch(ctx, primaryURL, CrossOrigin)
	if err == nil && (decoded == nil || decoded.Image == nil) {
		err = fmt.Errorf("%w: no pixels returned", ErrInvalidImage)
	}

	var surface *image.RGBA
	if err == nil {
		// Rendering is part of the primary path: a surface that cannot be
		// painted is treated like refused pixel access.
		surface, err = c.renderer.Render(decoded.Image)
	}

	if err == nil {
		c.commit(gen, logger, func() {
			elapsed := c.finishAttemptLocked(CrossOrigin, Decoded, nil)
			c.showSurfaceLocked(surface)
			c.succeedLocked(ResultPixelSurface)
			logger.Info("image rendered with watermark",
				logging.Int("width", surface.Bounds().Dx()),
				logging.Int("height", surface.Bounds().Dy()),
				logging.Duration("elapsed", elapsed),
			)
		})
		return
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		// Cancellation is not a refusal of pixel access; there is nothing to
		// fall back to.
		c.commit(gen, logger, func() {
			c.finishAttemptLocked(CrossOrigin, Failed, err)
			logger.Info("image load cancelled", logging.Error(ctxErr))
			c.failLocked(fmt.Errorf("%w: %w", ErrLoadFailed, ctxErr))
		})
		return
	}

	var fallbackURL string
	ok := c.commit(gen, logger, func() {
		c.finishAttemptLocked(CrossOrigin, Failed, err)
		logger.Info("primary load failed, retrying without cross-origin access",
			logging.Error(err),
			logging.String("source", req.SourceURL),
		)
		fallbackURL = StampURL(req.SourceURL, c.now())
		c.attempts = append(c.attempts, LoadAttempt{
			Mode:    SameOriginOnly,
			Status:  Pending,
			URL:     fallbackURL,
			Started: c.now(),
		})
		c.state.Phase = PhaseLoadingFallback
	})
	if !ok {
		return
	}

	decoded, err = c.fetcher.Fetch(ctx, fallbackURL, SameOriginOnly)
	if err == nil && decoded == nil {
		err = fmt.Errorf("%w: empty result", ErrInvalidImage)
	}
	if err != nil {
		c.commit(gen, logger, func() {
			c.finishAttemptLocked(SameOriginOnly, Failed, err)
			logging.WarnWithContext(logger, "image failed to load", "image_load_failed",
				logging.Error(err),
				logging.String("source", req.SourceURL),
				logging.String(logging.FieldErrorHint, "check that the URL is reachable and serves an image"),
				logging.String(logging.FieldImpact, "error overlay shown"),
			)
			c.failLocked(fmt.Errorf("%w: %w", ErrLoadFailed, err))
		})
		return
	}

	c.commit(gen, logger, func() {
		elapsed := c.finishAttemptLocked(SameOriginOnly, Decoded, nil)
		c.showProtectedLocked(newProtectedNode(fallbackURL, req.Alt, req.LayoutHint))
		c.succeedLocked(ResultProtectedNode)
		logger.Info("image shown without watermark",
			logging.String("format", decoded.Format),
			logging.Int("width", decoded.Config.Width),
			logging.Int("height", decoded.Config.Height),
			logging.Duration("elapsed", elapsed),
		)
	})
}

// commit applies fn if gen is still the active generation. It reports whether
// the change was applied.
func (c *Controller) commit(gen uint64, logger *slog.Logger, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.state.Generation {
		logger.Debug("dropping stale load result",
			logging.Uint64("active_generation", c.state.Generation),
			logging.Bool("closed", c.closed),
		)
		return false
	}
	fn()
	c.notifyLocked()
	return true
}

func (c *Controller) disposeLocked() {
	if c.dispose != nil {
		c.dispose()
		c.dispose = nil
	}
	c.wakeLocked()
}

// wakeLocked releases Wait callers of the current generation.
func (c *Controller) wakeLocked() {
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

func (c *Controller) notifyLocked() {
	if c.observer != nil {
		c.observer(c.state)
	}
}

func (c *Controller) finishAttemptLocked(mode LoadMode, status LoadStatus, err error) time.Duration {
	for i := range c.attempts {
		if c.attempts[i].Mode == mode {
			c.attempts[i].Status = status
			c.attempts[i].Err = err
			c.attempts[i].Elapsed = c.now().Sub(c.attempts[i].Started)
			return c.attempts[i].Elapsed
		}
	}
	return 0
}

func (c *Controller) succeedLocked(kind ResultKind) {
	c.state.Phase = PhaseSuccess
	c.state.Result = kind
	c.state.Err = nil
	c.removeOverlayLocked()
	c.wakeLocked()
}

func (c *Controller) failLocked(err error) {
	c.state.Phase = PhaseError
	c.state.Result = ResultNone
	c.state.Err = err
	c.showOverlayLocked("error", userMessage(err))
	c.wakeLocked()
}

// showSurfaceLocked activates the pixel surface and retires any protected node.
func (c *Controller) showSurfaceLocked(surface *image.RGBA) {
	if c.protected != nil {
		c.protected.detach()
		c.protected = nil
	}
	c.surface = surface
	c.syncSurfaceElLocked()
}

// showProtectedLocked attaches node beside the surface, which is blanked so no
// earlier pixels linger behind it.
func (c *Controller) showProtectedLocked(node *ProtectedNode) {
	if c.protected != nil {
		c.protected.detach()
	}
	c.resetSurfaceLocked()
	c.protected = node
	c.container.InsertBefore(node.node, c.surfaceEl.NextSibling)
}

func (c *Controller) resetSurfaceLocked() {
	c.surface = image.NewRGBA(image.Rect(0, 0, 1, 1))
	c.syncSurfaceElLocked()
}

func (c *Controller) syncSurfaceElLocked() {
	b := c.surface.Bounds()
	setAttr(c.surfaceEl, "width", strconv.Itoa(b.Dx()))
	setAttr(c.surfaceEl, "height", strconv.Itoa(b.Dy()))
}

func (c *Controller) showOverlayLocked(kind, message string) {
	c.removeOverlayLocked()

	role := "status"
	if kind == "error" {
		role = "alert"
	}
	c.overlay = element(atom.Div,
		attr("class", "protected-image-overlay "+kind),
		attr("role", role),
	)
	c.overlay.AppendChild(&html.Node{Type: html.TextNode, Data: message})
	c.container.AppendChild(c.overlay)
}

func (c *Controller) removeOverlayLocked() {
	if c.overlay != nil {
		if c.overlay.Parent != nil {
			c.overlay.Parent.RemoveChild(c.overlay)
		}
		c.overlay = nil
	}
}
