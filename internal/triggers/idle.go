package triggers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/platform"
)

// WatchID identifies a registered idle-monitor watch. Zero is never valid.
type WatchID uint32

// IdleMonitor registers idle and activity watches. Callbacks run on the
// event loop.
type IdleMonitor interface {
	// AddIdleWatch fires fn once the user has been idle for interval.
	AddIdleWatch(interval time.Duration, fn func()) (WatchID, error)
	// AddUserActiveWatch fires fn once, on the next user activity.
	AddUserActiveWatch(fn func()) (WatchID, error)
	RemoveWatch(id WatchID) error
}

// IdleSettings are re-read by Rewatch.
type IdleSettings struct {
	Enabled   bool
	Threshold time.Duration
}

// IdleConfig wires an Idle trigger. Lock is optional.
type IdleConfig struct {
	Monitor     IdleMonitor
	Coordinator Coordinator
	Display     platform.Display
	Lock        platform.SessionLock
	Settings    func() IdleSettings
	Logger      *slog.Logger
}

// Idle hints the focused window when the user comes back from idle.
type Idle struct {
	cfg       IdleConfig
	logger    *slog.Logger
	idleID    WatchID
	activeID  WatchID
	destroyed bool
}

// NewIdle registers the idle watch.
func NewIdle(cfg IdleConfig) (*Idle, error) {
	if cfg.Monitor == nil || cfg.Coordinator == nil || cfg.Display == nil || cfg.Settings == nil {
		return nil, errors.New("triggers: idle monitor, coordinator, display and settings are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	i := &Idle{cfg: cfg, logger: cfg.Logger}
	if err := i.Rewatch(); err != nil {
		return nil, err
	}
	return i, nil
}

// Rewatch drops both watches and registers the idle watch again with the
// current settings. Called whenever the configuration changes.
func (i *Idle) Rewatch() error {
	if i.destroyed {
		return nil
	}
	i.clear()
	s := i.cfg.Settings()
	if !s.Enabled || s.Threshold <= 0 {
		i.logger.Debug("idle trigger disabled")
		return nil
	}
	id, err := i.cfg.Monitor.AddIdleWatch(s.Threshold, i.onIdle)
	if err != nil {
		return fmt.Errorf("add idle watch: %w", err)
	}
	i.idleID = id
	i.logger.Debug("idle watch registered", "threshold", s.Threshold, "watch", id)
	return nil
}

func (i *Idle) onIdle() {
	if i.destroyed {
		return
	}
	if i.activeID != 0 {
		i.remove(i.activeID)
	}
	id, err := i.cfg.Monitor.AddUserActiveWatch(i.onActive)
	if err != nil {
		i.logger.Warn("add user-active watch failed", "error", err)
		return
	}
	i.activeID = id
}

func (i *Idle) onActive() {
	i.activeID = 0
	if i.destroyed {
		return
	}
	if i.cfg.Lock != nil && i.cfg.Lock.Locked() {
		return
	}
	i.cfg.Coordinator.Indicate(i.cfg.Display.FocusWindow(), focus.Options{})
}

// Destroy removes every watch.
func (i *Idle) Destroy() {
	if i.destroyed {
		return
	}
	i.clear()
	i.destroyed = true
}

func (i *Idle) clear() {
	if i.activeID != 0 {
		i.remove(i.activeID)
		i.activeID = 0
	}
	if i.idleID != 0 {
		i.remove(i.idleID)
		i.idleID = 0
	}
}

func (i *Idle) remove(id WatchID) {
	if err := i.cfg.Monitor.RemoveWatch(id); err != nil {
		i.logger.Debug("remove idle watch", "watch", id, "error", err)
	}
}
