// Package platformtest provides in-memory implementations of the platform
// contracts for tests and headless runs.
package platformtest

import (
	"fmt"

	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

// Actor is a recording WindowActor.
type Actor struct {
	Pos     platform.Point
	Alpha   uint8
	Changes int
}

// Position implements platform.WindowActor.
func (a *Actor) Position() platform.Point { return a.Pos }

// Opacity implements platform.WindowActor.
func (a *Actor) Opacity() uint8 { return a.Alpha }

// SetOpacity implements platform.WindowActor.
func (a *Actor) SetOpacity(v uint8) {
	a.Alpha = v
	a.Changes++
}

// Window is a mutable fake window. Fields may be changed between calls.
type Window struct {
	WID        platform.WindowID
	Kind       platform.WindowType
	Class      string
	Name       string
	Fullscreen bool
	Max        platform.Maximize
	Minimized  bool
	Frame      platform.Rect
	MonitorIdx int
	WS         int
	// NoActor simulates an unmapped window.
	NoActor bool

	actor *Actor
}

// NewWindow returns a normal window with a mapped actor at frame.
func NewWindow(id platform.WindowID, ws int, frame platform.Rect) *Window {
	return &Window{
		WID:   id,
		Kind:  platform.WindowNormal,
		Class: fmt.Sprintf("app-%d", id),
		Name:  fmt.Sprintf("window %d", id),
		Frame: frame,
		WS:    ws,
		actor: &Actor{Pos: frame.Origin(), Alpha: 255},
	}
}

func (w *Window) ID() platform.WindowID        { return w.WID }
func (w *Window) Type() platform.WindowType    { return w.Kind }
func (w *Window) AppID() string                { return w.Class }
func (w *Window) Title() string                { return w.Name }
func (w *Window) IsFullscreen() bool           { return w.Fullscreen }
func (w *Window) Maximized() platform.Maximize { return w.Max }
func (w *Window) IsMinimized() bool            { return w.Minimized }
func (w *Window) FrameRect() platform.Rect     { return w.Frame }
func (w *Window) Monitor() int                 { return w.MonitorIdx }
func (w *Window) Workspace() int               { return w.WS }
func (w *Window) FakeActor() *Actor            { return w.actor }

// Actor implements platform.Window.
func (w *Window) Actor() platform.WindowActor {
	if w.NoActor || w.actor == nil {
		return nil
	}
	return w.actor
}

// Display is an in-memory window model. Windows are kept in MRU order;
// Focus moves a window to the front.
type Display struct {
	Active   int
	Outputs  []platform.Monitor
	windows  []*Window
	focus    *Window
	focusSig signals.Emitter[platform.Window]
	created  signals.Emitter[platform.Window]
	unmanage map[platform.WindowID]*signals.Emitter[struct{}]
	geometry map[platform.WindowID]*signals.Emitter[struct{}]
}

// NewDisplay returns a display with a single 1920x1080 monitor.
func NewDisplay() *Display {
	return &Display{
		Outputs:  []platform.Monitor{{Index: 0, Name: "fake-0", Bounds: platform.Rect{Width: 1920, Height: 1080}}},
		unmanage: make(map[platform.WindowID]*signals.Emitter[struct{}]),
		geometry: make(map[platform.WindowID]*signals.Emitter[struct{}]),
	}
}

// Add manages w (appended as least recently used) and emits window-created.
func (d *Display) Add(w *Window) {
	d.windows = append(d.windows, w)
	d.created.Emit(w)
}

// Remove unmanages w and emits its unmanaged signal.
func (d *Display) Remove(w *Window) {
	for i, cur := range d.windows {
		if cur == w {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			break
		}
	}
	if d.focus == w {
		d.focus = nil
	}
	if e := d.unmanage[w.WID]; e != nil {
		e.Emit(struct{}{})
		delete(d.unmanage, w.WID)
	}
}

// Focus makes w the focus window without emitting focus-changed.
func (d *Display) Focus(w *Window) {
	d.focus = w
	if w == nil {
		return
	}
	for i, cur := range d.windows {
		if cur == w {
			copy(d.windows[1:i+1], d.windows[:i])
			d.windows[0] = w
			return
		}
	}
}

// FocusAndNotify focuses w and emits focus-changed.
func (d *Display) FocusAndNotify(w *Window) {
	d.Focus(w)
	d.focusSig.Emit(d.FocusWindow())
}

// Move changes w's frame and emits its geometry signal.
func (d *Display) Move(w *Window, frame platform.Rect) {
	w.Frame = frame
	if w.actor != nil {
		w.actor.Pos = frame.Origin()
	}
	if e := d.geometry[w.WID]; e != nil {
		e.Emit(struct{}{})
	}
}

// FocusWindow implements platform.Display.
func (d *Display) FocusWindow() platform.Window {
	if d.focus == nil {
		return nil
	}
	return d.focus
}

// Windows implements platform.Display.
func (d *Display) Windows(ws int) []platform.Window {
	var out []platform.Window
	for _, w := range d.windows {
		if w.WS == ws || w.WS == platform.AllWorkspaces {
			out = append(out, w)
		}
	}
	return out
}

// AllWindows implements platform.Display.
func (d *Display) AllWindows() []platform.Window {
	out := make([]platform.Window, 0, len(d.windows))
	for _, w := range d.windows {
		out = append(out, w)
	}
	return out
}

func (d *Display) ActiveWorkspace() int { return d.Active }

// Monitor implements platform.Display.
func (d *Display) Monitor(index int) (platform.Monitor, bool) {
	if index < 0 || index >= len(d.Outputs) {
		return platform.Monitor{}, false
	}
	return d.Outputs[index], true
}

func (d *Display) Monitors() []platform.Monitor { return append([]platform.Monitor(nil), d.Outputs...) }

func (d *Display) OnFocusChanged(fn func(platform.Window)) signals.Subscription {
	return d.focusSig.Connect(fn)
}

func (d *Display) OnWindowCreated(fn func(platform.Window)) signals.Subscription {
	return d.created.Connect(fn)
}

func (d *Display) OnWindowUnmanaged(id platform.WindowID, fn func()) signals.Subscription {
	return connectKeyed(d.unmanage, id, fn)
}

func (d *Display) OnGeometryChanged(id platform.WindowID, fn func()) signals.Subscription {
	return connectKeyed(d.geometry, id, fn)
}

// Subscribers reports the number of live per-window subscriptions.
func (d *Display) Subscribers(id platform.WindowID) (unmanaged, geometry int) {
	if e := d.unmanage[id]; e != nil {
		unmanaged = e.Len()
	}
	if e := d.geometry[id]; e != nil {
		geometry = e.Len()
	}
	return unmanaged, geometry
}

func connectKeyed(m map[platform.WindowID]*signals.Emitter[struct{}], id platform.WindowID, fn func()) signals.Subscription {
	e := m[id]
	if e == nil {
		e = &signals.Emitter[struct{}]{}
		m[id] = e
	}
	return e.Connect(func(struct{}) { fn() })
}

// Shell is a fake overview.
type Shell struct {
	Visible bool
	Hides   int
	showing signals.Emitter[struct{}]
}

func (s *Shell) OverviewVisible() bool { return s.Visible }

// HideOverview implements platform.Shell.
func (s *Shell) HideOverview() {
	s.Visible = false
	s.Hides++
}

func (s *Shell) OnOverviewShowing(fn func()) signals.Subscription {
	return s.showing.Connect(func(struct{}) { fn() })
}

// Show makes the overview visible and emits showing.
func (s *Shell) Show() {
	s.Visible = true
	s.showing.Emit(struct{}{})
}

// Lock is a fake session lock.
type Lock struct {
	locked  bool
	changed signals.Emitter[bool]
}

func (l *Lock) Locked() bool { return l.locked }

func (l *Lock) OnLockChanged(fn func(bool)) signals.Subscription {
	return l.changed.Connect(fn)
}

// Set changes the lock state and emits when it differs.
func (l *Lock) Set(locked bool) {
	if l.locked == locked {
		return
	}
	l.locked = locked
	l.changed.Emit(locked)
}

// Listeners reports connected lock handlers.
func (l *Lock) Listeners() int { return l.changed.Len() }

// Launcher records activations and launches. OnActivate runs after recording.
type Launcher struct {
	Activated  []platform.WindowID
	Launched   []string
	OnActivate func(platform.Window)
}

func (l *Launcher) Activate(w platform.Window) error {
	l.Activated = append(l.Activated, w.ID())
	if l.OnActivate != nil {
		l.OnActivate(w)
	}
	return nil
}

func (l *Launcher) Launch(command string) error {
	l.Launched = append(l.Launched, command)
	return nil
}

var (
	_ platform.Window      = (*Window)(nil)
	_ platform.WindowActor = (*Actor)(nil)
	_ platform.Display     = (*Display)(nil)
	_ platform.Shell       = (*Shell)(nil)
	_ platform.SessionLock = (*Lock)(nil)
	_ platform.AppLauncher = (*Launcher)(nil)
)
