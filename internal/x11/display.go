package x11

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

// Display is the EWMH window model. It follows the root window's
// _NET_CLIENT_LIST, _NET_ACTIVE_WINDOW and _NET_CURRENT_DESKTOP properties
// and keeps its own most-recently-used order, since EWMH has none.
//
// Display is confined to the event loop: its X callbacks run while the loop
// pumps xevent.
type Display struct {
	conn   *Connection
	logger *slog.Logger

	monitors []platform.Monitor
	clients  map[xproto.Window]*window
	mru      []xproto.Window
	active   xproto.Window
	desktop  int

	focusSig   signals.Emitter[platform.Window]
	createdSig signals.Emitter[platform.Window]
	desktopSig signals.Emitter[DesktopChange]
	unmanaged  map[platform.WindowID]*signals.Emitter[struct{}]
	geometry   map[platform.WindowID]*signals.Emitter[struct{}]
}

// DesktopChange is emitted when _NET_CURRENT_DESKTOP changes.
type DesktopChange struct {
	From, To int
}

// NewDisplay loads the current window list and starts following root
// property changes.
func NewDisplay(conn *Connection, logger *slog.Logger) (*Display, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Display{
		conn:      conn,
		logger:    logger,
		clients:   make(map[xproto.Window]*window),
		unmanaged: make(map[platform.WindowID]*signals.Emitter[struct{}]),
		geometry:  make(map[platform.WindowID]*signals.Emitter[struct{}]),
	}
	if err := d.refreshMonitors(); err != nil {
		return nil, err
	}
	if ws, err := conn.CurrentDesktop(); err == nil {
		d.desktop = ws
	}

	xu := conn.XUtil
	// One mask for every root listener; Listen replaces earlier masks.
	if err := xwindow.New(xu, conn.Root).Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify, xproto.EventMaskSubstructureNotify); err != nil {
		return nil, fmt.Errorf("listen on root window: %w", err)
	}
	xevent.PropertyNotifyFun(d.onRootProperty).Connect(xu, conn.Root)
	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if ev.Window != conn.Root {
			return
		}
		if err := d.refreshMonitors(); err != nil {
			d.logger.Warn("refresh monitors", "error", err)
		}
	}).Connect(xu, conn.Root)

	stacking, err := ewmh.ClientListStackingGet(xu)
	if err != nil {
		stacking, err = ewmh.ClientListGet(xu)
		if err != nil {
			return nil, fmt.Errorf("read client list: %w", err)
		}
	}
	// Topmost first approximates recency at startup.
	for i := len(stacking) - 1; i >= 0; i-- {
		d.track(stacking[i])
	}
	if active, err := ewmh.ActiveWindowGet(xu); err == nil && d.clients[active] != nil {
		d.active = active
		d.mru = promote(d.mru, active)
	}
	return d, nil
}

func (d *Display) refreshMonitors() error {
	monitors, err := d.conn.Monitors()
	if err != nil {
		return err
	}
	d.monitors = monitors
	return nil
}

func (d *Display) onRootProperty(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(xu, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "_NET_CLIENT_LIST":
		d.refreshClients()
	case "_NET_ACTIVE_WINDOW":
		d.refreshActive()
	case "_NET_CURRENT_DESKTOP":
		d.refreshDesktop()
	}
}

func (d *Display) refreshClients() {
	list, err := ewmh.ClientListGet(d.conn.XUtil)
	if err != nil {
		d.logger.Debug("read client list", "error", err)
		return
	}
	added, removed := diffClients(d.mru, list)
	for _, id := range removed {
		d.untrack(id)
	}
	for _, id := range added {
		w := d.track(id)
		d.createdSig.Emit(w)
	}
}

func (d *Display) refreshActive() {
	id, err := ewmh.ActiveWindowGet(d.conn.XUtil)
	if err != nil || id == d.active {
		return
	}
	d.active = id
	w, ok := d.clients[id]
	if !ok {
		d.focusSig.Emit(nil)
		return
	}
	d.mru = promote(d.mru, id)
	d.focusSig.Emit(w)
}

func (d *Display) refreshDesktop() {
	ws, err := d.conn.CurrentDesktop()
	if err != nil || ws == d.desktop {
		return
	}
	from := d.desktop
	d.desktop = ws
	d.logger.Debug("desktop changed", "from", from, "to", ws)
	d.desktopSig.Emit(DesktopChange{From: from, To: ws})
}

func (d *Display) track(id xproto.Window) *window {
	if w, ok := d.clients[id]; ok {
		return w
	}
	w := &window{d: d, id: id}
	w.actor = &windowActor{w: w}
	d.clients[id] = w
	d.mru = append(d.mru, id)

	xu := d.conn.XUtil
	if err := xwindow.New(xu, id).Listen(xproto.EventMaskStructureNotify); err != nil {
		d.logger.Debug("listen on client", "window_id", uint32(id), "error", err)
	}
	xevent.ConfigureNotifyFun(func(*xgbutil.XUtil, xevent.ConfigureNotifyEvent) {
		emitKeyed(d.geometry, w.ID())
	}).Connect(xu, id)
	return w
}

func (d *Display) untrack(id xproto.Window) {
	if _, ok := d.clients[id]; !ok {
		return
	}
	delete(d.clients, id)
	d.mru = slices.DeleteFunc(d.mru, func(x xproto.Window) bool { return x == id })
	xevent.Detach(d.conn.XUtil, id)

	wid := platform.WindowID(id)
	emitKeyed(d.unmanaged, wid)
	delete(d.unmanaged, wid)
	delete(d.geometry, wid)
}

// FocusWindow returns the window named by the last _NET_ACTIVE_WINDOW
// update, or nil.
func (d *Display) FocusWindow() platform.Window {
	if w, ok := d.clients[d.active]; ok {
		return w
	}
	return nil
}

func (d *Display) Windows(ws int) []platform.Window {
	var out []platform.Window
	for _, id := range d.mru {
		w := d.clients[id]
		if got := w.Workspace(); got == ws || got == platform.AllWorkspaces {
			out = append(out, w)
		}
	}
	return out
}

func (d *Display) AllWindows() []platform.Window {
	out := make([]platform.Window, 0, len(d.mru))
	for _, id := range d.mru {
		out = append(out, d.clients[id])
	}
	return out
}

func (d *Display) ActiveWorkspace() int { return d.desktop }

// Workspaces reports _NET_NUMBER_OF_DESKTOPS, or 0 when unknown.
func (d *Display) Workspaces() int {
	n, err := d.conn.DesktopCount()
	if err != nil {
		return 0
	}
	return n
}

func (d *Display) Monitor(index int) (platform.Monitor, bool) {
	for _, m := range d.monitors {
		if m.Index == index {
			return m, true
		}
	}
	return platform.Monitor{}, false
}

func (d *Display) Monitors() []platform.Monitor {
	return append([]platform.Monitor(nil), d.monitors...)
}

// Window looks up a managed window by id.
func (d *Display) Window(id platform.WindowID) (platform.Window, bool) {
	w, ok := d.clients[xproto.Window(id)]
	if !ok {
		return nil, false
	}
	return w, true
}

// ActivateDesktop switches the window manager to ws.
func (d *Display) ActivateDesktop(ws int) error { return d.conn.ActivateDesktop(ws) }

func (d *Display) OnFocusChanged(fn func(platform.Window)) signals.Subscription {
	return d.focusSig.Connect(fn)
}

func (d *Display) OnWindowCreated(fn func(platform.Window)) signals.Subscription {
	return d.createdSig.Connect(fn)
}

func (d *Display) OnDesktopChanged(fn func(DesktopChange)) signals.Subscription {
	return d.desktopSig.Connect(fn)
}

func (d *Display) OnWindowUnmanaged(id platform.WindowID, fn func()) signals.Subscription {
	return connectKeyed(d.unmanaged, id, fn)
}

func (d *Display) OnGeometryChanged(id platform.WindowID, fn func()) signals.Subscription {
	return connectKeyed(d.geometry, id, fn)
}

func connectKeyed(m map[platform.WindowID]*signals.Emitter[struct{}], id platform.WindowID, fn func()) signals.Subscription {
	e := m[id]
	if e == nil {
		e = &signals.Emitter[struct{}]{}
		m[id] = e
	}
	return e.Connect(func(struct{}) { fn() })
}

func emitKeyed(m map[platform.WindowID]*signals.Emitter[struct{}], id platform.WindowID) {
	if e := m[id]; e != nil {
		e.Emit(struct{}{})
	}
}

// diffClients compares the known windows with a fresh client list.
func diffClients(known, list []xproto.Window) (added, removed []xproto.Window) {
	seen := make(map[xproto.Window]bool, len(list))
	for _, id := range list {
		seen[id] = true
		if !slices.Contains(known, id) {
			added = append(added, id)
		}
	}
	for _, id := range known {
		if !seen[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// promote moves id to the front of order.
func promote(order []xproto.Window, id xproto.Window) []xproto.Window {
	i := slices.Index(order, id)
	if i < 0 {
		return slices.Insert(order, 0, id)
	}
	copy(order[1:i+1], order[:i])
	order[0] = id
	return order
}

var _ platform.Display = (*Display)(nil)
