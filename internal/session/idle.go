// Package session talks to the desktop session over D-Bus: the compositor's
// idle monitor and the login manager's lock state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/triggers"
)

const (
	idleMonitorService   = "org.gnome.Mutter.IdleMonitor"
	idleMonitorPath      = "/org/gnome/Mutter/IdleMonitor/Core"
	idleMonitorInterface = "org.gnome.Mutter.IdleMonitor"
)

// ErrNoIdleMonitor is returned when the session bus has no idle monitor.
var ErrNoIdleMonitor = errors.New("idle monitor service not available")

// caller is the subset of dbus.BusObject used for method calls.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// IdleMonitor implements triggers.IdleMonitor on top of Mutter's
// IdleMonitor D-Bus API. Watch callbacks are posted to the event loop.
type IdleMonitor struct {
	conn   *dbus.Conn
	obj    caller
	sched  loop.Scheduler
	logger *slog.Logger

	// loop-confined
	watches map[triggers.WatchID]idleWatch
}

type idleWatch struct {
	fn      func()
	oneShot bool
}

// ConnectIdleMonitor connects to the session bus and checks that the idle
// monitor is present.
func ConnectIdleMonitor(sched loop.Scheduler, logger *slog.Logger) (*IdleMonitor, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	var owner string
	if err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, idleMonitorService).Store(&owner); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrNoIdleMonitor, err)
	}
	m := newIdleMonitor(conn.Object(idleMonitorService, idleMonitorPath), sched, logger)
	m.conn = conn
	return m, nil
}

func newIdleMonitor(obj caller, sched loop.Scheduler, logger *slog.Logger) *IdleMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleMonitor{
		obj:     obj,
		sched:   sched,
		logger:  logger,
		watches: make(map[triggers.WatchID]idleWatch),
	}
}

// Run forwards WatchFired signals until ctx is done.
func (m *IdleMonitor) Run(ctx context.Context) error {
	if m.conn == nil {
		return errors.New("idle monitor has no bus connection")
	}
	if err := m.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(idleMonitorPath),
		dbus.WithMatchInterface(idleMonitorInterface),
		dbus.WithMatchMember("WatchFired"),
	); err != nil {
		return fmt.Errorf("match WatchFired: %w", err)
	}
	ch := make(chan *dbus.Signal, 16)
	m.conn.Signal(ch)
	defer m.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return errors.New("session bus closed")
			}
			m.handleSignal(sig)
		}
	}
}

// handleSignal runs on the signal goroutine.
func (m *IdleMonitor) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != idleMonitorInterface+".WatchFired" || len(sig.Body) != 1 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	m.sched.Post(func() { m.fire(triggers.WatchID(id)) })
}

func (m *IdleMonitor) fire(id triggers.WatchID) {
	w, ok := m.watches[id]
	if !ok {
		return
	}
	if w.oneShot {
		delete(m.watches, id)
	}
	w.fn()
}

// AddIdleWatch implements triggers.IdleMonitor.
func (m *IdleMonitor) AddIdleWatch(interval time.Duration, fn func()) (triggers.WatchID, error) {
	var id uint32
	if err := m.obj.Call(idleMonitorInterface+".AddIdleWatch", 0, uint64(interval.Milliseconds())).Store(&id); err != nil {
		return 0, fmt.Errorf("AddIdleWatch: %w", err)
	}
	m.watches[triggers.WatchID(id)] = idleWatch{fn: fn}
	return triggers.WatchID(id), nil
}

// AddUserActiveWatch implements triggers.IdleMonitor. The compositor drops
// the watch after it fires once.
func (m *IdleMonitor) AddUserActiveWatch(fn func()) (triggers.WatchID, error) {
	var id uint32
	if err := m.obj.Call(idleMonitorInterface+".AddUserActiveWatch", 0).Store(&id); err != nil {
		return 0, fmt.Errorf("AddUserActiveWatch: %w", err)
	}
	m.watches[triggers.WatchID(id)] = idleWatch{fn: fn, oneShot: true}
	return triggers.WatchID(id), nil
}

// RemoveWatch implements triggers.IdleMonitor.
func (m *IdleMonitor) RemoveWatch(id triggers.WatchID) error {
	delete(m.watches, id)
	if call := m.obj.Call(idleMonitorInterface+".RemoveWatch", 0, uint32(id)); call.Err != nil {
		return fmt.Errorf("RemoveWatch: %w", call.Err)
	}
	return nil
}

// Close releases the bus connection.
func (m *IdleMonitor) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}

var _ triggers.IdleMonitor = (*IdleMonitor)(nil)
