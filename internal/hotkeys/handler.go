// Package hotkeys binds global key sequences on the root window.
package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/focushint/internal/triggers"
	"github.com/1broseidon/focushint/internal/x11"
)

// Handler manages global keyboard shortcuts. Callbacks run on the event loop
// because xevent dispatches there.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
	bound  []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on conn.
func NewHandler(conn *x11.Connection, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})
	return &Handler{xu: conn.XUtil, root: conn.Root, logger: logger}
}

// RegisterSlots binds modifier-1 .. modifier-9 to fn(slot).
func (h *Handler) RegisterSlots(modifier string, fn func(slot int)) error {
	for _, seq := range slotSequences(modifier) {
		slot := seq.slot
		if err := h.RegisterFunc(seq.keys, func() { fn(slot) }); err != nil {
			return fmt.Errorf("failed to register slot hotkey %q: %w", seq.keys, err)
		}
	}
	return nil
}

// RegisterSwitcher binds hotkey to fn(false) and Shift plus hotkey to
// fn(true).
func (h *Handler) RegisterSwitcher(hotkey string, fn func(backward bool)) error {
	if err := h.RegisterFunc(hotkey, func() { fn(false) }); err != nil {
		return fmt.Errorf("failed to register switcher hotkey: %w", err)
	}
	if err := h.RegisterFunc("Shift-"+hotkey, func() { fn(true) }); err != nil {
		h.logger.Debug("backward switcher hotkey unavailable", "hotkey", hotkey, "error", err)
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return err
	}
	h.bound = append(h.bound, keySequence)
	h.logger.Debug("hotkey registered", "keys", keySequence)
	return nil
}

// UnregisterAll releases every grab made by this handler.
func (h *Handler) UnregisterAll() {
	if len(h.bound) == 0 {
		return
	}
	keybind.Detach(h.xu, h.root)
	h.bound = nil
}

// Bound lists the registered key sequences.
func (h *Handler) Bound() []string { return append([]string(nil), h.bound...) }

type slotSequence struct {
	slot int
	keys string
}

func slotSequences(modifier string) []slotSequence {
	out := make([]slotSequence, 0, triggers.MaxSlots)
	for slot := 1; slot <= triggers.MaxSlots; slot++ {
		out = append(out, slotSequence{slot: slot, keys: fmt.Sprintf("%s-%d", modifier, slot)})
	}
	return out
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the lock masks, including none.
func ignoreMasks(base []uint16) []uint16 {
	out := make([]uint16, 0, 1<<len(base))
	for subset := 0; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
