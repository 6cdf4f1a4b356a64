package x11

import (
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

// Shell treats mapped launcher windows (rofi, dmenu, an app grid) as the
// overview. Which WM_CLASS values count is decided by isOverview, read on
// every map so configuration reloads apply.
type Shell struct {
	conn       *Connection
	logger     *slog.Logger
	isOverview func(class string) bool

	// visible maps the mapped window to the client carrying WM_CLASS.
	visible map[xproto.Window]xproto.Window
	showing signals.Emitter[struct{}]
}

// NewShell follows root substructure notifications. The root event mask is
// selected by NewDisplay, which must run first.
func NewShell(conn *Connection, isOverview func(class string) bool, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shell{conn: conn, logger: logger, isOverview: isOverview, visible: make(map[xproto.Window]xproto.Window)}
	xu := conn.XUtil
	xevent.MapNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		s.mapped(ev.Window)
	}).Connect(xu, conn.Root)
	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		s.gone(ev.Window)
	}).Connect(xu, conn.Root)
	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		s.gone(ev.Window)
	}).Connect(xu, conn.Root)
	return s
}

func (s *Shell) mapped(win xproto.Window) {
	class, client := s.classOf(win)
	if class == "" || !s.isOverview(class) {
		return
	}
	if _, ok := s.visible[win]; ok {
		return
	}
	s.visible[win] = client
	s.logger.Debug("overview showing", "class", class, "window_id", uint32(win))
	s.showing.Emit(struct{}{})
}

func (s *Shell) gone(win xproto.Window) {
	delete(s.visible, win)
}

// classOf reads WM_CLASS from win or, for a window manager frame, from its
// first child.
func (s *Shell) classOf(win xproto.Window) (string, xproto.Window) {
	xu := s.conn.XUtil
	if c, err := icccm.WmClassGet(xu, win); err == nil {
		return c.Class, win
	}
	tree, err := xproto.QueryTree(xu.Conn(), win).Reply()
	if err != nil || len(tree.Children) == 0 {
		return "", 0
	}
	child := tree.Children[0]
	if c, err := icccm.WmClassGet(xu, child); err == nil {
		return c.Class, child
	}
	return "", 0
}

func (s *Shell) OverviewVisible() bool { return len(s.visible) > 0 }

// HideOverview closes every visible launcher. Override-redirect launchers
// ignore WM_DELETE_WINDOW, so their client connection is killed instead.
func (s *Shell) HideOverview() {
	conn := s.conn.XUtil.Conn()
	for win, client := range s.visible {
		attrs, err := xproto.GetWindowAttributes(conn, win).Reply()
		if err == nil && attrs.OverrideRedirect {
			xproto.KillClient(conn, uint32(client))
		} else if err := s.conn.CloseWindow(client); err != nil {
			s.logger.Debug("close overview window", "window_id", uint32(client), "error", err)
		}
		delete(s.visible, win)
	}
}

func (s *Shell) OnOverviewShowing(fn func()) signals.Subscription {
	return s.showing.Connect(func(struct{}) { fn() })
}

var _ platform.Shell = (*Shell)(nil)
