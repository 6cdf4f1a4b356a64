// Package focus owns the single focus-hint coordinator: it guards indicate
// requests, keeps at most one hint alive, and holds the pending-focus slot
// triggers use to hand a target to the workspace-switch synchronizer.
package focus

import (
	"errors"
	"log/slog"
	"time"

	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
	"github.com/1broseidon/focushint/internal/stage"
)

// ErrDestroyed is returned by operations attempted after Destroy.
var ErrDestroyed = errors.New("focus coordinator destroyed")

// Config wires a Coordinator to its collaborators. Shell and Lock are
// optional.
type Config struct {
	Display   platform.Display
	Shell     platform.Shell
	Lock      platform.SessionLock
	Stage     stage.Stage
	Scheduler loop.Scheduler
	Settings  func() hint.Settings
	Strategy  hint.Kind
	// PendingTTL bounds how long a pending focus stays readable. Zero
	// disables expiry.
	PendingTTL time.Duration
	Logger     *slog.Logger
}

// Options are the optional parts of an indicate request.
type Options struct {
	Start     *platform.Point
	Arrival   *hint.Arrival
	Overrides []hint.Override
}

// Status is a snapshot for diagnostics.
type Status struct {
	Strategy hint.Kind `json:"strategy"`
	Phase    string    `json:"phase"`
	Actors   int       `json:"actors"`
	Window   uint32    `json:"window,omitempty"`
	Pending  uint32    `json:"pending,omitempty"`
}

// Coordinator is confined to the event loop.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	strategy  hint.Strategy
	current   platform.Window
	pending   platform.Window
	pendingAt time.Time

	subs      signals.Group
	unmanaged map[platform.WindowID]signals.Subscription
	settle    loop.Timer
	destroyed bool
}

// New builds a coordinator with cfg.Strategy active.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Display == nil || cfg.Stage == nil || cfg.Scheduler == nil {
		return nil, errors.New("focus: display, stage and scheduler are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Settings == nil {
		cfg.Settings = hint.DefaultSettings
	}
	c := &Coordinator{
		cfg:       cfg,
		logger:    cfg.Logger,
		strategy:  hint.Disabled(),
		unmanaged: make(map[platform.WindowID]signals.Subscription),
	}
	if err := c.SetStrategy(cfg.Strategy); err != nil {
		return nil, err
	}

	c.subs.Add(cfg.Display.OnWindowCreated(c.watch))
	for _, w := range cfg.Display.AllWindows() {
		c.watch(w)
	}
	if cfg.Shell != nil {
		c.subs.Add(cfg.Shell.OnOverviewShowing(c.Reset))
	}
	if cfg.Lock != nil {
		c.subs.Add(cfg.Lock.OnLockChanged(func(locked bool) {
			if locked {
				c.Reset()
			}
		}))
	}
	return c, nil
}

// Indicate starts a hint on w. It returns false without touching any state
// when w is absent, the overview is visible, w is fullscreen, maximized on
// both axes or minimized, or w has no actor. Otherwise the previous hint is
// cancelled first, synchronously.
func (c *Coordinator) Indicate(w platform.Window, opts Options) bool {
	if c.destroyed || w == nil {
		return false
	}
	if c.cfg.Shell != nil && c.cfg.Shell.OverviewVisible() {
		return false
	}
	if !hint.Presentable(w) {
		return false
	}

	c.Reset()
	ok := c.strategy.Indicate(hint.Request{
		Window:    w,
		Start:     opts.Start,
		Arrival:   opts.Arrival,
		Overrides: opts.Overrides,
	})
	if ok {
		c.current = w
	}
	c.logger.Debug("indicate",
		"window_id", w.ID(),
		"strategy", c.strategy.Kind(),
		"arrival", opts.Arrival != nil,
		"ok", ok,
	)
	return ok
}

// Reset cancels the active hint and restores the source window. Idempotent.
func (c *Coordinator) Reset() {
	if c.destroyed {
		return
	}
	c.strategy.ResetAnimation()
	c.current = nil
}

// SetStrategy destroys the current strategy and activates kind.
func (c *Coordinator) SetStrategy(kind hint.Kind) error {
	if c.destroyed {
		return ErrDestroyed
	}
	if kind == "" {
		kind = hint.KindNone
	}
	prev := c.strategy
	prev.Destroy()
	c.current = nil

	var next hint.Strategy
	next, err := hint.New(kind, hint.Deps{
		Stage:     c.cfg.Stage,
		Scheduler: c.cfg.Scheduler,
		Display:   c.cfg.Display,
		Settings:  c.cfg.Settings,
		Logger:    c.logger.With("strategy", string(kind)),
		Finished: func() {
			if c.strategy == next {
				c.Reset()
			}
		},
	})
	if err != nil {
		c.strategy = hint.Disabled()
		return err
	}
	c.strategy = next
	if prev.Kind() != kind {
		c.logger.Info("hint strategy changed", "from", prev.Kind(), "to", kind)
	}
	return nil
}

// Strategy reports the active strategy kind.
func (c *Coordinator) Strategy() hint.Kind { return c.strategy.Kind() }

// HidesSwitchClone reports whether the active strategy replaces the
// workspace-switch clone of the hinted window.
func (c *Coordinator) HidesSwitchClone() bool { return c.strategy.HidesSwitchClone() }

// Phase reports the active strategy's phase.
func (c *Coordinator) Phase() hint.Phase { return c.strategy.Phase() }

// ActiveActors is the size of the active animation set.
func (c *Coordinator) ActiveActors() int { return c.strategy.Actors() }

// Current is the window of the active hint, or nil.
func (c *Coordinator) Current() platform.Window { return c.current }

// SetPendingFocus stores the next focus target. Last writer wins; nil clears.
func (c *Coordinator) SetPendingFocus(w platform.Window) {
	if c.destroyed {
		return
	}
	c.pending = w
	c.pendingAt = c.cfg.Scheduler.Now()
}

// PendingFocus returns the stored target without consuming it.
func (c *Coordinator) PendingFocus() platform.Window {
	if c.pending == nil {
		return nil
	}
	if ttl := c.cfg.PendingTTL; ttl > 0 && c.cfg.Scheduler.Now().Sub(c.pendingAt) > ttl {
		c.logger.Debug("pending focus expired", "window_id", c.pending.ID())
		c.pending = nil
		return nil
	}
	return c.pending
}

// TakePendingFocus returns and clears the stored target.
func (c *Coordinator) TakePendingFocus() platform.Window {
	w := c.PendingFocus()
	c.pending = nil
	return w
}

// SetPendingTTL changes the pending-focus expiry for values set afterwards
// and for the one already held.
func (c *Coordinator) SetPendingTTL(ttl time.Duration) { c.cfg.PendingTTL = ttl }

// Status returns a diagnostic snapshot.
func (c *Coordinator) Status() Status {
	st := Status{
		Strategy: c.strategy.Kind(),
		Phase:    c.strategy.Phase().String(),
		Actors:   c.strategy.Actors(),
	}
	if c.current != nil {
		st.Window = uint32(c.current.ID())
	}
	if p := c.PendingFocus(); p != nil {
		st.Pending = uint32(p.ID())
	}
	return st
}

// Destroy releases every subscription and transient state. Subsequent calls
// are no-ops.
func (c *Coordinator) Destroy() {
	if c.destroyed {
		return
	}
	c.Reset()
	c.strategy.Destroy()
	c.strategy = hint.Disabled()
	c.subs.Unsubscribe()
	for id, sub := range c.unmanaged {
		sub.Unsubscribe()
		delete(c.unmanaged, id)
	}
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	c.pending = nil
	c.destroyed = true
}

func (c *Coordinator) watch(w platform.Window) {
	if w == nil || w.Type() != platform.WindowNormal {
		return
	}
	id := w.ID()
	if _, ok := c.unmanaged[id]; ok {
		return
	}
	c.unmanaged[id] = c.cfg.Display.OnWindowUnmanaged(id, func() { c.onUnmanaged(w) })
}

// onUnmanaged re-hints the window that receives focus after w closes. The
// lookup waits for the next frame so the window manager can move focus.
func (c *Coordinator) onUnmanaged(w platform.Window) {
	if c.destroyed {
		return
	}
	delete(c.unmanaged, w.ID())
	if platform.SameWindow(c.current, w) {
		c.Reset()
	}
	if platform.SameWindow(c.pending, w) {
		c.pending = nil
	}
	if c.settle != nil {
		c.settle.Stop()
	}
	closed := w.ID()
	c.settle = c.cfg.Scheduler.BeforeRedraw(func() {
		c.settle = nil
		focus := c.cfg.Display.FocusWindow()
		if focus == nil || focus.ID() == closed {
			return
		}
		c.Indicate(focus, Options{})
	})
}
