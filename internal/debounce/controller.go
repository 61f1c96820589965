// Package debounce coalesces rapid edits into a single analysis request.
//
// The controller owns exactly one pending task and a monotonic request
// counter. Every executed request carries a request id; a response is only
// applied when its id is still the current one (last-request-wins, not
// first-response-wins). Superseded requests are not cancelled mid-flight,
// their results are simply discarded on arrival.
package debounce

import (
	"context"
	"sync"
	"time"

	"redline.app/engine/internal/textpos"
)

// ExecuteFunc runs one analysis request. Implementations check
// Controller.Accept(requestID) before applying results.
type ExecuteFunc func(ctx context.Context, requestID uint64, text string)

type Config struct {
	Delay time.Duration
	// MinLength is measured in code units.
	MinLength int
}

type Controller struct {
	mu      sync.Mutex
	cfg     Config
	execute ExecuteFunc

	timer      *time.Timer
	pending    string
	pendingCtx context.Context
	hasPending bool

	lastTriggered string
	seq           uint64 // last issued request id
	current       uint64 // id whose response will be accepted
}

func New(cfg Config, execute ExecuteFunc) *Controller {
	if cfg.Delay <= 0 {
		cfg.Delay = 400 * time.Millisecond
	}
	return &Controller{cfg: cfg, execute: execute}
}

// Trigger schedules analysis of text after the debounce delay, resetting
// any pending timer. Text shorter than the minimum length or identical to
// the last triggered text is a no-op.
func (c *Controller) Trigger(ctx context.Context, text string) {
	if textpos.CodeUnitLen(text) < c.cfg.MinLength {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if text == c.lastTriggered {
		return
	}

	c.stopTimerLocked()
	c.pending = text
	c.pendingCtx = ctx
	c.hasPending = true
	c.timer = time.AfterFunc(c.cfg.Delay, c.fire)
}

// Flush immediately executes the pending request, if any.
func (c *Controller) Flush() {
	c.fire()
}

// Cancel drops the pending request without executing it.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.clearPendingLocked()
}

// Reset cancels pending work, forgets the last triggered text, and
// invalidates any in-flight request so its response is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.clearPendingLocked()
	c.lastTriggered = ""
	c.seq++
	c.current = c.seq
}

// Accept reports whether a response with the given request id is still
// current and may be applied.
func (c *Controller) Accept(requestID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return requestID == c.current
}

func (c *Controller) fire() {
	c.mu.Lock()
	if !c.hasPending {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()

	text := c.pending
	ctx := c.pendingCtx
	c.clearPendingLocked()
	c.lastTriggered = text

	c.seq++
	id := c.seq
	c.current = id
	execute := c.execute
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	go execute(ctx, id, text)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) clearPendingLocked() {
	c.pending = ""
	c.pendingCtx = nil
	c.hasPending = false
}
