package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/focushint/internal/switcher"
)

const (
	keysymTab        = 0xff09
	keysymISOLeftTab = 0xfe20
	keysymReturn     = 0xff0d
	keysymKPEnter    = 0xff8d
	keysymEscape     = 0xff1b
)

type switcherAction int

const (
	actionNone switcherAction = iota
	actionNext
	actionPrev
	actionFinish
	actionCancel
)

func actionForKeysym(sym xproto.Keysym, state uint16) switcherAction {
	switch sym {
	case keysymTab:
		if state&xproto.ModMaskShift != 0 {
			return actionPrev
		}
		return actionNext
	case keysymISOLeftTab:
		return actionPrev
	case keysymReturn, keysymKPEnter:
		return actionFinish
	case keysymEscape:
		return actionCancel
	}
	return actionNone
}

// SwitcherKeys drives a switcher.Popup from the keyboard Alt-Tab style: the
// hotkey opens the popup, further presses cycle while the modifier is held,
// and releasing the modifier confirms the selection.
type SwitcherKeys struct {
	conn   *Connection
	popup  *switcher.Popup
	logger *slog.Logger

	mods       uint16
	grabWindow xproto.Window
	grabbed    bool
	attached   bool
}

// NewSwitcherKeys binds popup to the modifiers of hotkey, e.g. "Mod1-Tab".
func NewSwitcherKeys(conn *Connection, popup *switcher.Popup, hotkey string, logger *slog.Logger) (*SwitcherKeys, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mods, _, err := keybind.ParseString(conn.XUtil, hotkey)
	if err != nil {
		return nil, fmt.Errorf("parse switcher hotkey %q: %w", hotkey, err)
	}
	return &SwitcherKeys{conn: conn, popup: popup, logger: logger, mods: mods}, nil
}

// Trigger is bound to the switcher hotkey.
func (k *SwitcherKeys) Trigger(backward bool) {
	if k.popup.IsOpen() {
		if backward {
			k.popup.Prev()
		} else {
			k.popup.Next()
		}
		return
	}
	if !k.popup.Open(backward) {
		return
	}
	if err := k.grab(); err != nil {
		k.logger.Warn("switcher keyboard grab failed", "error", err)
		k.popup.Cancel()
	}
}

// Close cancels an open selection and releases the grab and the grab
// window.
func (k *SwitcherKeys) Close() {
	k.ungrab()
	k.popup.Cancel()
	if k.grabWindow != 0 {
		xproto.DestroyWindow(k.conn.XUtil.Conn(), k.grabWindow)
		k.grabWindow = 0
	}
}

// SetHotkey rebinds the release modifiers to those of hotkey.
func (k *SwitcherKeys) SetHotkey(hotkey string) error {
	mods, _, err := keybind.ParseString(k.conn.XUtil, hotkey)
	if err != nil {
		return fmt.Errorf("parse switcher hotkey %q: %w", hotkey, err)
	}
	k.mods = mods
	return nil
}

func (k *SwitcherKeys) grab() error {
	xu := k.conn.XUtil
	if err := k.ensureGrabWindow(); err != nil {
		return err
	}
	grab := func() (*xproto.GrabKeyboardReply, error) {
		return xproto.GrabKeyboard(xu.Conn(), false, k.conn.Root, xproto.TimeCurrentTime,
			xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	}
	reply, err := grab()
	if err != nil {
		return err
	}
	// The passive grab of the hotkey may still be active.
	if reply.Status == xproto.GrabStatusAlreadyGrabbed {
		xproto.UngrabKeyboard(xu.Conn(), xproto.TimeCurrentTime)
		if reply, err = grab(); err != nil {
			return err
		}
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("keyboard grab failed with status %d", reply.Status)
	}

	xevent.RedirectKeyEvents(xu, k.grabWindow)
	if !k.attached {
		xevent.KeyPressFun(k.onKeyPress).Connect(xu, k.grabWindow)
		xevent.KeyReleaseFun(k.onKeyRelease).Connect(xu, k.grabWindow)
		k.attached = true
	}
	k.grabbed = true
	return nil
}

func (k *SwitcherKeys) ungrab() {
	if !k.grabbed {
		return
	}
	xu := k.conn.XUtil
	xproto.UngrabKeyboard(xu.Conn(), xproto.TimeCurrentTime)
	xevent.RedirectKeyEvents(xu, 0)
	if k.attached && k.grabWindow != 0 {
		xevent.Detach(xu, k.grabWindow)
		k.attached = false
	}
	k.grabbed = false
}

func (k *SwitcherKeys) ensureGrabWindow() error {
	if k.grabWindow != 0 {
		return nil
	}
	conn := k.conn.XUtil.Conn()
	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return err
	}
	// InputOnly target for redirected key events.
	err = xproto.CreateWindowChecked(
		conn,
		0,
		wid,
		k.conn.Root,
		0, 0,
		1, 1,
		0,
		xproto.WindowClassInputOnly,
		xproto.Visualid(0),
		xproto.CwEventMask,
		[]uint32{uint32(xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease)},
	).Check()
	if err != nil {
		return err
	}
	xproto.MapWindow(conn, wid)
	k.grabWindow = wid
	return nil
}

func (k *SwitcherKeys) onKeyPress(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
	if !k.popup.IsOpen() {
		k.ungrab()
		return
	}
	switch actionForKeysym(keybind.KeysymGet(xu, ev.Detail, 0), ev.State) {
	case actionNext:
		k.popup.Next()
	case actionPrev:
		k.popup.Prev()
	case actionFinish:
		k.ungrab()
		k.popup.Finish()
	case actionCancel:
		k.ungrab()
		k.popup.Cancel()
	}
}

func (k *SwitcherKeys) onKeyRelease(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
	if !k.popup.IsOpen() {
		k.ungrab()
		return
	}
	if keybind.ModGet(xu, ev.Detail)&k.mods == 0 {
		return
	}
	k.ungrab()
	k.popup.Finish()
}
