package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/focushint/internal/platform"
)

// sourcePager marks client messages as direct user actions.
const sourcePager = 2

const stickyDesktop = 0xFFFFFFFF

// CurrentDesktop returns the current virtual desktop number (0-indexed).
func (c *Connection) CurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// WindowDesktop returns the desktop a window is on, or
// platform.AllWorkspaces for sticky windows.
func (c *Connection) WindowDesktop(win xproto.Window) (int, error) {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, win)
	if err != nil {
		return 0, fmt.Errorf("failed to get window desktop: %w", err)
	}
	if desktop == stickyDesktop {
		return platform.AllWorkspaces, nil
	}
	return int(desktop), nil
}

// DesktopCount returns the number of virtual desktops.
func (c *Connection) DesktopCount() (int, error) {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get desktop count: %w", err)
	}
	return int(count), nil
}

// ActivateDesktop asks the window manager to switch to desktop.
func (c *Connection) ActivateDesktop(desktop int) error {
	if err := c.rootMessage(c.Root, "_NET_CURRENT_DESKTOP", uint32(desktop), uint32(xproto.TimeCurrentTime)); err != nil {
		return fmt.Errorf("switch to desktop %d: %w", desktop, err)
	}
	return nil
}

// ActivateWindow activates and raises a window using _NET_ACTIVE_WINDOW.
func (c *Connection) ActivateWindow(win xproto.Window) error {
	if err := c.rootMessage(win, "_NET_ACTIVE_WINDOW", sourcePager, uint32(xproto.TimeCurrentTime)); err != nil {
		return fmt.Errorf("activate window 0x%x: %w", uint32(win), err)
	}
	return nil
}

// CloseWindow requests graceful close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(win xproto.Window) error {
	protocols, err := xprop.Atm(c.XUtil, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	deleteWin, err := xprop.Atm(c.XUtil, "WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteWin), uint32(xproto.TimeCurrentTime), 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		win,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}
