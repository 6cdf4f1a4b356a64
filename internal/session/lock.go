package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

const (
	login1Service          = "org.freedesktop.login1"
	login1Path             = "/org/freedesktop/login1"
	login1Manager          = "org.freedesktop.login1.Manager"
	login1Session          = "org.freedesktop.login1.Session"
	propertiesInterface    = "org.freedesktop.DBus.Properties"
	propertiesChangedEvent = propertiesInterface + ".PropertiesChanged"
)

// LockWatcher tracks the session lock through logind. It implements
// platform.SessionLock; state changes are applied on the event loop.
type LockWatcher struct {
	conn   *dbus.Conn
	path   dbus.ObjectPath
	sched  loop.Scheduler
	logger *slog.Logger

	// loop-confined
	locked  bool
	changed signals.Emitter[bool]
}

// ConnectLockWatcher resolves the current logind session on the system bus
// and reads its LockedHint.
func ConnectLockWatcher(sched loop.Scheduler, logger *slog.Logger) (*LockWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	path, err := sessionPath(conn.Object(login1Service, login1Path))
	if err != nil {
		conn.Close()
		return nil, err
	}
	w := &LockWatcher{conn: conn, path: path, sched: sched, logger: logger}
	v, err := conn.Object(login1Service, path).GetProperty(login1Session + ".LockedHint")
	if err != nil {
		logger.Debug("read LockedHint", "error", err)
	} else if locked, ok := v.Value().(bool); ok {
		w.locked = locked
	}
	return w, nil
}

func sessionPath(manager caller) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		if err := manager.Call(login1Manager+".GetSession", 0, id).Store(&path); err == nil {
			return path, nil
		}
	}
	if err := manager.Call(login1Manager+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
		return "", fmt.Errorf("resolve logind session: %w", err)
	}
	return path, nil
}

// Locked implements platform.SessionLock.
func (w *LockWatcher) Locked() bool { return w.locked }

// OnLockChanged implements platform.SessionLock.
func (w *LockWatcher) OnLockChanged(fn func(bool)) signals.Subscription {
	return w.changed.Connect(fn)
}

// Run forwards lock signals until ctx is done.
func (w *LockWatcher) Run(ctx context.Context) error {
	for _, opts := range [][]dbus.MatchOption{
		{dbus.WithMatchObjectPath(w.path), dbus.WithMatchInterface(login1Session), dbus.WithMatchMember("Lock")},
		{dbus.WithMatchObjectPath(w.path), dbus.WithMatchInterface(login1Session), dbus.WithMatchMember("Unlock")},
		{dbus.WithMatchObjectPath(w.path), dbus.WithMatchInterface(propertiesInterface), dbus.WithMatchMember("PropertiesChanged")},
	} {
		if err := w.conn.AddMatchSignal(opts...); err != nil {
			return fmt.Errorf("match logind signal: %w", err)
		}
	}
	ch := make(chan *dbus.Signal, 16)
	w.conn.Signal(ch)
	defer w.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return errors.New("system bus closed")
			}
			if locked, ok := lockState(sig, w.path); ok {
				w.sched.Post(func() { w.set(locked) })
			}
		}
	}
}

// lockState extracts the lock state carried by sig, if any.
func lockState(sig *dbus.Signal, path dbus.ObjectPath) (bool, bool) {
	if sig == nil || sig.Path != path {
		return false, false
	}
	switch sig.Name {
	case login1Session + ".Lock":
		return true, true
	case login1Session + ".Unlock":
		return false, true
	case propertiesChangedEvent:
		if len(sig.Body) < 2 {
			return false, false
		}
		if iface, _ := sig.Body[0].(string); iface != login1Session {
			return false, false
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		v, ok := changed["LockedHint"]
		if !ok {
			return false, false
		}
		locked, ok := v.Value().(bool)
		return locked, ok
	}
	return false, false
}

func (w *LockWatcher) set(locked bool) {
	if w.locked == locked {
		return
	}
	w.locked = locked
	w.logger.Debug("session lock changed", "locked", locked)
	w.changed.Emit(locked)
}

// Close releases the bus connection.
func (w *LockWatcher) Close() error { return w.conn.Close() }

// DeferUntilUnlocked runs fn now when the session is unlocked, otherwise
// once on the next unlock. The returned subscription cancels a deferred run.
func DeferUntilUnlocked(lock platform.SessionLock, fn func()) signals.Subscription {
	if lock == nil || !lock.Locked() {
		fn()
		return signals.Nop
	}
	var sub signals.Subscription
	sub = lock.OnLockChanged(func(locked bool) {
		if locked {
			return
		}
		sub.Unsubscribe()
		fn()
	})
	return sub
}

var _ platform.SessionLock = (*LockWatcher)(nil)
