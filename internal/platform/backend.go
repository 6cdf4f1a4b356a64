// Package platform defines the window-system contracts the focus-hint core
// consumes. Concrete implementations live in internal/x11; tests use
// internal/platform/platformtest.
package platform

import "github.com/1broseidon/focushint/internal/signals"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Grow returns r expanded by m pixels on every side. Negative m shrinks.
func (r Rect) Grow(m int) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, Width: r.Width + 2*m, Height: r.Height + 2*m}
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.Width, o.X+o.Width)
	y1 := min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Origin returns the top-left corner as a Point.
func (r Rect) Origin() Point {
	return Point{X: float64(r.X), Y: float64(r.Y)}
}

// Point is a position in absolute stage coordinates.
type Point struct {
	X float64
	Y float64
}

// IsZero reports whether both coordinates are zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Monitor describes a physical output.
type Monitor struct {
	Index  int
	Name   string
	Bounds Rect
}

// WindowType classifies top-level windows. Only WindowNormal windows are
// tracked for close notifications.
type WindowType int

const (
	WindowNormal WindowType = iota
	WindowDialog
	WindowUtility
	WindowDock
	WindowDesktop
	WindowOther
)

// Maximize is a bit set of maximized axes.
type Maximize uint8

const (
	MaximizedHorizontal Maximize = 1 << iota
	MaximizedVertical

	MaximizedBoth = MaximizedHorizontal | MaximizedVertical
)

// AllWorkspaces is returned by Window.Workspace for sticky windows.
const AllWorkspaces = -1

// Window is an externally owned top-level window. Implementations read live
// state on every call; callers must not cache results across turns.
type Window interface {
	ID() WindowID
	Type() WindowType
	AppID() string
	Title() string
	IsFullscreen() bool
	Maximized() Maximize
	IsMinimized() bool
	FrameRect() Rect
	Monitor() int
	Workspace() int
	// Actor returns the compositor actor, or nil when the window is not
	// currently presentable.
	Actor() WindowActor
}

// WindowActor is the rendered representation of a window. Implementations
// must be comparable pointer types: actor identity is compared with ==.
type WindowActor interface {
	Position() Point
	Opacity() uint8
	SetOpacity(v uint8)
}

// Display is the window/workspace model.
type Display interface {
	FocusWindow() Window
	// Windows lists windows on workspace ws in most-recently-used order.
	// Sticky windows are included for every workspace.
	Windows(ws int) []Window
	// AllWindows lists every managed window in most-recently-used order.
	AllWindows() []Window
	ActiveWorkspace() int
	Monitor(index int) (Monitor, bool)
	Monitors() []Monitor

	OnFocusChanged(fn func(Window)) signals.Subscription
	OnWindowCreated(fn func(Window)) signals.Subscription
	OnWindowUnmanaged(id WindowID, fn func()) signals.Subscription
	OnGeometryChanged(id WindowID, fn func()) signals.Subscription
}

// Shell exposes the overview/launcher state.
type Shell interface {
	OverviewVisible() bool
	HideOverview()
	OnOverviewShowing(fn func()) signals.Subscription
}

// SessionLock reports screen-lock state.
type SessionLock interface {
	Locked() bool
	OnLockChanged(fn func(locked bool)) signals.Subscription
}

// AppLauncher activates existing windows or starts applications.
type AppLauncher interface {
	Activate(w Window) error
	Launch(command string) error
}

// SameWindow reports whether a and b refer to the same window. Two nil
// windows are not considered the same.
func SameWindow(a, b Window) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

// Focusable reports whether a workspace switch may hand focus to w.
func Focusable(w Window) bool {
	if w == nil || w.IsMinimized() {
		return false
	}
	t := w.Type()
	return t == WindowNormal || t == WindowDialog
}

// FirstWindowOn returns the most recently used focusable window on ws.
// Windows placed on ws win over sticky ones; docks, desktops and other
// panels are never returned. It returns nil when ws has nothing to focus.
func FirstWindowOn(d Display, ws int) Window {
	var sticky Window
	for _, w := range d.Windows(ws) {
		if !Focusable(w) {
			continue
		}
		if w.Workspace() == ws {
			return w
		}
		if sticky == nil {
			sticky = w
		}
	}
	return sticky
}
