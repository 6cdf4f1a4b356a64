package x11

import (
	"math"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/focushint/internal/platform"
)

const opacityProp = "_NET_WM_WINDOW_OPACITY"

// window is a managed client. Every accessor reads live X state.
type window struct {
	d     *Display
	id    xproto.Window
	actor *windowActor
}

func (w *window) ID() platform.WindowID { return platform.WindowID(w.id) }

func (w *window) Type() platform.WindowType {
	types, err := ewmh.WmWindowTypeGet(w.d.conn.XUtil, w.id)
	if err != nil {
		// Untyped windows are normal per EWMH.
		return platform.WindowNormal
	}
	return classifyType(types)
}

func (w *window) AppID() string {
	wmClass, err := icccm.WmClassGet(w.d.conn.XUtil, w.id)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (w *window) Title() string {
	if title, err := ewmh.WmNameGet(w.d.conn.XUtil, w.id); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(w.d.conn.XUtil, w.id); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

func (w *window) state() windowState {
	states, err := ewmh.WmStateGet(w.d.conn.XUtil, w.id)
	if err != nil {
		return windowState{}
	}
	return parseState(states)
}

func (w *window) IsFullscreen() bool { return w.state().fullscreen }

func (w *window) Maximized() platform.Maximize { return w.state().maximized }

func (w *window) IsMinimized() bool { return w.state().hidden }

// FrameRect is the client rectangle grown by the window manager's
// decorations.
func (w *window) FrameRect() platform.Rect {
	conn := w.d.conn
	geom, err := xproto.GetGeometry(conn.XUtil.Conn(), xproto.Drawable(w.id)).Reply()
	if err != nil {
		return platform.Rect{}
	}
	translate, err := xproto.TranslateCoordinates(conn.XUtil.Conn(), w.id, conn.Root, 0, 0).Reply()
	if err != nil {
		return platform.Rect{}
	}
	r := platform.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}
	if ext, err := ewmh.FrameExtentsGet(conn.XUtil, w.id); err == nil {
		r.X -= int(ext.Left)
		r.Y -= int(ext.Top)
		r.Width += int(ext.Left) + int(ext.Right)
		r.Height += int(ext.Top) + int(ext.Bottom)
	}
	return r
}

func (w *window) Monitor() int {
	f := w.FrameRect()
	return monitorAt(w.d.Monitors(), f.X+f.Width/2, f.Y+f.Height/2)
}

func (w *window) Workspace() int {
	ws, err := w.d.conn.WindowDesktop(w.id)
	if err != nil {
		return w.d.desktop
	}
	return ws
}

// Actor is nil while the window is iconified.
func (w *window) Actor() platform.WindowActor {
	if w.IsMinimized() {
		return nil
	}
	return w.actor
}

// windowActor drives the compositor opacity of a client window.
type windowActor struct {
	w *window
}

func (a *windowActor) Position() platform.Point { return a.w.FrameRect().Origin() }

func (a *windowActor) Opacity() uint8 {
	v, err := xprop.PropValNum(xprop.GetProperty(a.w.d.conn.XUtil, a.w.id, opacityProp))
	if err != nil {
		return 255
	}
	return opacityFromCardinal(uint32(v))
}

// SetOpacity writes _NET_WM_WINDOW_OPACITY. Full opacity removes the
// property so compositors fall back to their own rules.
func (a *windowActor) SetOpacity(v uint8) {
	xu := a.w.d.conn.XUtil
	if v == 255 {
		if atom, err := xprop.Atm(xu, opacityProp); err == nil {
			xproto.DeleteProperty(xu.Conn(), a.w.id, atom)
		}
		return
	}
	if err := xprop.ChangeProp32(xu, a.w.id, opacityProp, "CARDINAL", uint(opacityToCardinal(v))); err != nil {
		a.w.d.logger.Debug("set window opacity", "window_id", uint32(a.w.id), "error", err)
	}
}

func opacityToCardinal(v uint8) uint32 {
	return uint32(math.Round(float64(v) / 255 * math.MaxUint32))
}

func opacityFromCardinal(v uint32) uint8 {
	return uint8(math.Round(float64(v) / math.MaxUint32 * 255))
}

type windowState struct {
	fullscreen bool
	hidden     bool
	maximized  platform.Maximize
}

func parseState(states []string) windowState {
	var st windowState
	for _, s := range states {
		switch s {
		case "_NET_WM_STATE_FULLSCREEN":
			st.fullscreen = true
		case "_NET_WM_STATE_HIDDEN":
			st.hidden = true
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			st.maximized |= platform.MaximizedHorizontal
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			st.maximized |= platform.MaximizedVertical
		}
	}
	return st
}

// classifyType maps _NET_WM_WINDOW_TYPE to a WindowType. The first
// recognised type wins, as EWMH lists them in order of preference.
func classifyType(types []string) platform.WindowType {
	if len(types) == 0 {
		return platform.WindowNormal
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return platform.WindowNormal
		case "_NET_WM_WINDOW_TYPE_DIALOG":
			return platform.WindowDialog
		case "_NET_WM_WINDOW_TYPE_UTILITY", "_NET_WM_WINDOW_TYPE_TOOLBAR", "_NET_WM_WINDOW_TYPE_MENU":
			return platform.WindowUtility
		case "_NET_WM_WINDOW_TYPE_DOCK":
			return platform.WindowDock
		case "_NET_WM_WINDOW_TYPE_DESKTOP":
			return platform.WindowDesktop
		}
	}
	return platform.WindowOther
}
