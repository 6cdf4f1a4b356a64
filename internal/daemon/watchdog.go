package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/focushint/internal/loop"
)

// DefaultWatchdogInterval is used when WatchdogConfig.Interval is unset.
const DefaultWatchdogInterval = 10 * time.Second

// WatchdogConfig holds configuration for the watchdog.
type WatchdogConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Watchdog periodically checks the controller for hint state that outlived
// its window or animation and resets it.
type Watchdog struct {
	interval time.Duration
	ctrl     *Controller
	sched    loop.Scheduler
	logger   *slog.Logger
}

// NewWatchdog creates a watchdog for ctrl. Checks run on sched.
func NewWatchdog(cfg WatchdogConfig, ctrl *Controller, sched loop.Scheduler) *Watchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{interval: interval, ctrl: ctrl, sched: sched, logger: logger}
}

// Run starts the check loop. Blocks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("watchdog started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watchdog stopped")
			return nil
		case <-ticker.C:
			if _, err := loop.Do(ctx, w.sched, func() (struct{}, error) {
				w.CheckNow()
				return struct{}{}, nil
			}); err != nil && ctx.Err() == nil {
				w.logger.Warn("watchdog check failed", "error", err)
			}
		}
	}
}

// CheckNow performs a single pass. It must run on the event loop.
func (w *Watchdog) CheckNow() int {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("watchdog panic recovered", "error", err)
		}
	}()

	problems := w.ctrl.checkInvariants()
	for _, p := range problems {
		w.logger.Warn("watchdog: hint state repaired", "problem", p)
	}
	return len(problems)
}
