// Package daemon owns the focus-hint lifecycle: it installs the coordinator
// and its triggers on Enable, tears them down on Disable and applies
// configuration reloads to the running pieces.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/focushint/internal/config"
	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/session"
	"github.com/1broseidon/focushint/internal/signals"
	"github.com/1broseidon/focushint/internal/stage"
	"github.com/1broseidon/focushint/internal/switchanim"
	"github.com/1broseidon/focushint/internal/switcher"
	"github.com/1broseidon/focushint/internal/triggers"
	"github.com/1broseidon/focushint/internal/wsswitch"
)

// ErrDisabled is returned by commands that need the hint triggers installed.
var ErrDisabled = errors.New("focus hints are disabled")

// Desktop is a window model that can also switch workspaces.
type Desktop interface {
	platform.Display
	Workspaces() int
	ActivateDesktop(ws int) error
}

// Bindings grabs global hotkeys.
type Bindings interface {
	RegisterSlots(modifier string, fn func(slot int)) error
	RegisterSwitcher(hotkey string, fn func(backward bool)) error
	UnregisterAll()
}

// SwitcherInput drives the app-switcher popup from the keyboard.
type SwitcherInput interface {
	Trigger(backward bool)
	SetHotkey(hotkey string) error
	Close()
}

// Config wires a Controller. Everything past Stage is optional.
type Config struct {
	Scheduler loop.Scheduler
	Display   Desktop
	Stage     stage.Stage
	Shell     platform.Shell
	Lock      platform.SessionLock
	Launcher  platform.AppLauncher
	Idle      triggers.IdleMonitor
	Switcher  switcher.Host
	Keys      SwitcherInput
	Bindings  Bindings
	Settings  *config.Config
	Logger    *slog.Logger
}

// Status is a snapshot of the controller.
type Status struct {
	Enabled        bool
	Locked         bool
	RestorePending bool
	Switching      bool
	Workspace      int
	Workspaces     int
	Hint           focus.Status
}

// Controller is confined to the event loop.
type Controller struct {
	cfg      Config
	logger   *slog.Logger
	settings *config.Config

	animator *switchanim.Animator
	host     *switchanim.Host

	enabled     bool
	coord       *focus.Coordinator
	sync        *wsswitch.Synchronizer
	appSwitcher *triggers.AppSwitcher
	idle        *triggers.Idle
	slots       *triggers.Slots

	restore    func()
	restoreSub signals.Subscription
}

// New builds a disabled controller and the workspace-switch animator it
// decorates once enabled.
func New(cfg Config) (*Controller, error) {
	if cfg.Scheduler == nil || cfg.Display == nil || cfg.Stage == nil {
		return nil, errors.New("daemon: scheduler, display and stage are required")
	}
	if cfg.Settings == nil {
		cfg.Settings = config.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Controller{cfg: cfg, logger: cfg.Logger, settings: cfg.Settings}
	c.animator = switchanim.New(switchanim.Config{
		Scheduler:  cfg.Scheduler,
		Display:    cfg.Display,
		Duration:   func() time.Duration { return c.settings.SwitchSettings().NominalDuration },
		Mode:       c.settings.HintSettings().StaticMode,
		Workspaces: cfg.Display.Workspaces,
		Activate:   c.activate,
		Logger:     cfg.Logger.With("component", "switchanim"),
	})
	c.host = switchanim.NewHost(c.animator)
	return c, nil
}

// Settings is the configuration in effect.
func (c *Controller) Settings() *config.Config { return c.settings }

// Enabled reports whether the hint triggers are installed.
func (c *Controller) Enabled() bool { return c.enabled }

// Animator is the workspace-switch animator driven by gestures.
func (c *Controller) Animator() *switchanim.Animator { return c.animator }

// Enable installs the coordinator, the switch synchronizer and the triggers.
// A restore still waiting for the session unlock runs first.
func (c *Controller) Enable() (err error) {
	if c.enabled {
		return nil
	}
	c.flushRestore()

	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		c.coord, c.sync, c.appSwitcher, c.idle, c.slots = nil, nil, nil, nil, nil
	}()

	coord, err := focus.New(focus.Config{
		Display:    c.cfg.Display,
		Shell:      c.cfg.Shell,
		Lock:       c.cfg.Lock,
		Stage:      c.cfg.Stage,
		Scheduler:  c.cfg.Scheduler,
		Settings:   func() hint.Settings { return c.settings.HintSettings() },
		Strategy:   c.settings.Kind(),
		PendingTTL: c.settings.PendingTTL(),
		Logger:     c.logger.With("component", "focus"),
	})
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}
	c.coord = coord
	undo = append(undo, coord.Destroy)

	sync, err := wsswitch.Install(wsswitch.Config{
		Host:        c.host,
		Gestures:    c.animator,
		Coordinator: coord,
		Display:     c.cfg.Display,
		Settings:    func() wsswitch.Settings { return c.settings.SwitchSettings() },
		Logger:      c.logger.With("component", "wsswitch"),
	})
	if err != nil {
		return fmt.Errorf("install switch synchronizer: %w", err)
	}
	c.sync = sync
	undo = append(undo, sync.Destroy)

	if c.cfg.Switcher != nil {
		as, err := triggers.InstallAppSwitcher(triggers.AppSwitcherConfig{
			Host:        c.cfg.Switcher,
			Coordinator: coord,
			Display:     c.cfg.Display,
			Overrides:   func() []hint.Override { return c.settings.AppSwitcherOverrides() },
			Logger:      c.logger.With("component", "appswitcher"),
		})
		if err != nil {
			return fmt.Errorf("install app switcher trigger: %w", err)
		}
		c.appSwitcher = as
		undo = append(undo, as.Destroy)
	}

	if c.cfg.Idle != nil {
		idle, err := triggers.NewIdle(triggers.IdleConfig{
			Monitor:     c.cfg.Idle,
			Coordinator: coord,
			Display:     c.cfg.Display,
			Lock:        c.cfg.Lock,
			Settings:    func() triggers.IdleSettings { return c.settings.IdleSettings() },
			Logger:      c.logger.With("component", "idle"),
		})
		if err != nil {
			// The other triggers still work without idle notifications.
			c.logger.Warn("idle trigger unavailable", "error", err)
		} else {
			c.idle = idle
			undo = append(undo, idle.Destroy)
		}
	}

	c.slots = triggers.NewSlots(triggers.SlotsConfig{
		Coordinator: coord,
		Display:     c.cfg.Display,
		Shell:       c.cfg.Shell,
		Launcher:    c.cfg.Launcher,
		Favorites:   func() []triggers.Favorite { return c.settings.Favorites() },
		Logger:      c.logger.With("component", "slots"),
	})

	c.bindKeys()
	c.enabled = true
	c.logger.Info("focus hints enabled", "strategy", coord.Strategy())
	return nil
}

// Disable destroys the coordinator and the idle trigger at once. Restoring
// the decorated switcher, the switch animator and the hotkey grabs is
// deferred until the session is unlocked.
func (c *Controller) Disable() {
	if !c.enabled {
		return
	}
	c.enabled = false
	if c.idle != nil {
		c.idle.Destroy()
		c.idle = nil
	}
	c.coord.Destroy()
	c.coord = nil
	c.slots = nil

	sync, as := c.sync, c.appSwitcher
	c.sync, c.appSwitcher = nil, nil
	c.restore = func() {
		if c.cfg.Keys != nil {
			c.cfg.Keys.Close()
		}
		if c.cfg.Bindings != nil {
			c.cfg.Bindings.UnregisterAll()
		}
		if as != nil {
			as.Destroy()
		}
		sync.Destroy()
	}
	sub := session.DeferUntilUnlocked(c.cfg.Lock, c.runRestore)
	if c.restore != nil {
		c.logger.Info("session locked; restoring on unlock")
		c.restoreSub = sub
	}
	c.logger.Info("focus hints disabled")
}

func (c *Controller) runRestore() {
	restore := c.restore
	c.restore = nil
	c.restoreSub = nil
	if restore != nil {
		restore()
	}
}

// flushRestore performs a deferred restore immediately.
func (c *Controller) flushRestore() {
	if c.restore == nil {
		return
	}
	if c.restoreSub != nil {
		c.restoreSub.Unsubscribe()
	}
	c.runRestore()
}

// Shutdown disables and restores unconditionally.
func (c *Controller) Shutdown() {
	c.Disable()
	c.flushRestore()
}

// Reload applies next. The strategy, pending-focus expiry, idle watch and
// hotkeys follow immediately; hint parameters apply from the next Indicate.
func (c *Controller) Reload(next *config.Config) error {
	if next == nil {
		return errors.New("daemon: reload with nil config")
	}
	prev := c.settings
	c.settings = next
	if !c.enabled {
		return nil
	}

	var errs []error
	if prev.Strategy != next.Strategy {
		if err := c.coord.SetStrategy(next.Kind()); err != nil {
			errs = append(errs, fmt.Errorf("set strategy: %w", err))
		}
	}
	c.coord.SetPendingTTL(next.PendingTTL())
	if c.idle != nil && prev.Idle != next.Idle {
		if err := c.idle.Rewatch(); err != nil {
			errs = append(errs, fmt.Errorf("rewatch idle: %w", err))
		}
	}
	if prev.AppSwitcher.Hotkey != next.AppSwitcher.Hotkey || prev.Slots.Modifier != next.Slots.Modifier {
		c.bindKeys()
	}
	c.logger.Info("configuration reloaded", "strategy", next.Strategy)
	return errors.Join(errs...)
}

func (c *Controller) bindKeys() {
	if c.cfg.Bindings == nil {
		return
	}
	c.cfg.Bindings.UnregisterAll()
	if err := c.cfg.Bindings.RegisterSlots(c.settings.Slots.Modifier, c.onSlotKey); err != nil {
		c.logger.Warn("slot hotkeys unavailable", "modifier", c.settings.Slots.Modifier, "error", err)
	}
	if c.cfg.Keys == nil || c.settings.AppSwitcher.Hotkey == "" {
		return
	}
	if err := c.cfg.Keys.SetHotkey(c.settings.AppSwitcher.Hotkey); err != nil {
		c.logger.Warn("switcher hotkey invalid", "hotkey", c.settings.AppSwitcher.Hotkey, "error", err)
		return
	}
	if err := c.cfg.Bindings.RegisterSwitcher(c.settings.AppSwitcher.Hotkey, c.cfg.Keys.Trigger); err != nil {
		c.logger.Warn("switcher hotkey unavailable", "hotkey", c.settings.AppSwitcher.Hotkey, "error", err)
	}
}

func (c *Controller) onSlotKey(slot int) {
	if err := c.SwitchSlot(slot); err != nil {
		c.logger.Debug("slot hotkey", "slot", slot, "error", err)
	}
}

// Indicate hints the window with the given id, or the focused window when id
// is zero.
func (c *Controller) Indicate(id platform.WindowID) (bool, error) {
	if !c.enabled {
		return false, ErrDisabled
	}
	if id == 0 {
		return c.coord.Indicate(c.cfg.Display.FocusWindow(), focus.Options{}), nil
	}
	for _, w := range c.cfg.Display.AllWindows() {
		if w.ID() == id {
			return c.coord.Indicate(w, focus.Options{}), nil
		}
	}
	return false, fmt.Errorf("window %d is not managed", id)
}

// Reset cancels the active hint.
func (c *Controller) Reset() error {
	if !c.enabled {
		return ErrDisabled
	}
	c.coord.Reset()
	return nil
}

// SetStrategy swaps the strategy and keeps it across reloads of an
// unchanged file.
func (c *Controller) SetStrategy(name string) error {
	kind, err := hint.ParseKind(name)
	if err != nil {
		return err
	}
	next := *c.settings
	next.Strategy = string(kind)
	if c.enabled {
		if err := c.coord.SetStrategy(kind); err != nil {
			return err
		}
	}
	c.settings = &next
	return nil
}

// SwitchSlot activates favorite slot (1-based).
func (c *Controller) SwitchSlot(slot int) error {
	if !c.enabled {
		return ErrDisabled
	}
	return c.slots.SwitchTo(slot)
}

// DesktopChanged animates a window-manager desktop change.
func (c *Controller) DesktopChanged(from, to int) {
	c.host.DesktopChanged(from, to)
}

func (c *Controller) BeginGesture() { c.animator.BeginGesture() }

func (c *Controller) UpdateGesture(delta float64) { c.animator.UpdateGesture(delta) }

func (c *Controller) EndGesture(cancel bool) { c.animator.EndGesture(cancel) }

func (c *Controller) activate(ws int) {
	if err := c.cfg.Display.ActivateDesktop(ws); err != nil {
		c.logger.Warn("failed to activate workspace", "workspace", ws, "error", err)
	}
}

// Status returns a snapshot.
func (c *Controller) Status() Status {
	st := Status{
		Enabled:        c.enabled,
		RestorePending: c.restore != nil,
		Switching:      c.animator.Active(),
		Workspace:      c.cfg.Display.ActiveWorkspace(),
		Workspaces:     c.cfg.Display.Workspaces(),
		Hint:           focus.Status{Strategy: c.settings.Kind(), Phase: hint.Idle.String()},
	}
	if c.cfg.Lock != nil {
		st.Locked = c.cfg.Lock.Locked()
	}
	if c.coord != nil {
		st.Hint = c.coord.Status()
	}
	return st
}

// checkInvariants repairs hint state the event stream should never leave
// behind and reports what it found.
func (c *Controller) checkInvariants() []string {
	if !c.enabled {
		return nil
	}
	var problems []string
	if c.coord.Phase() == hint.Idle && c.coord.ActiveActors() > 0 {
		problems = append(problems, fmt.Sprintf("idle strategy holds %d actors", c.coord.ActiveActors()))
	}
	if cur := c.coord.Current(); cur != nil && !c.managed(cur) {
		problems = append(problems, fmt.Sprintf("hinted window %d is no longer managed", cur.ID()))
	}
	if len(problems) > 0 {
		c.coord.Reset()
	}
	return problems
}

func (c *Controller) managed(w platform.Window) bool {
	for _, m := range c.cfg.Display.AllWindows() {
		if platform.SameWindow(m, w) {
			return true
		}
	}
	return false
}
