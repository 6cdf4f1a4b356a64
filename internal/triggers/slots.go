package triggers

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/platform"
)

// MaxSlots is the number of switch-to-slot bindings.
const MaxSlots = 9

// Favorite is one slot: an application matched by window class, and the
// command that starts it.
type Favorite struct {
	Class   string
	Command string
}

// SlotsConfig wires Slots. Shell is optional.
type SlotsConfig struct {
	Coordinator Coordinator
	Display     platform.Display
	Shell       platform.Shell
	Launcher    platform.AppLauncher
	Favorites   func() []Favorite
	Logger      *slog.Logger
}

// Slots handles switch-to-slot commands.
type Slots struct {
	cfg    SlotsConfig
	logger *slog.Logger
}

// NewSlots returns a slot trigger.
func NewSlots(cfg SlotsConfig) *Slots {
	if cfg.Favorites == nil {
		cfg.Favorites = func() []Favorite { return nil }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Slots{cfg: cfg, logger: cfg.Logger}
}

// SwitchTo activates favorite slot (1-based). The most recently used window
// of the application is hinted, or handed to the switch synchronizer when it
// lives on another workspace. An application without windows is launched.
func (s *Slots) SwitchTo(slot int) error {
	favs := s.cfg.Favorites()
	if slot < 1 || slot > MaxSlots || slot > len(favs) {
		return fmt.Errorf("no favorite in slot %d", slot)
	}
	fav := favs[slot-1]

	if s.cfg.Shell != nil && s.cfg.Shell.OverviewVisible() {
		s.cfg.Shell.HideOverview()
	}

	var target platform.Window
	for _, w := range s.cfg.Display.AllWindows() {
		if w.Type() == platform.WindowNormal && strings.EqualFold(w.AppID(), fav.Class) {
			target = w
			break
		}
	}
	if target != nil {
		if crossesWorkspace(s.cfg.Display, target) {
			s.cfg.Coordinator.SetPendingFocus(target)
		} else {
			s.cfg.Coordinator.Indicate(target, focus.Options{})
		}
	}

	if s.cfg.Launcher == nil {
		return nil
	}
	if target != nil {
		if err := s.cfg.Launcher.Activate(target); err != nil {
			return fmt.Errorf("activate %s: %w", fav.Class, err)
		}
		return nil
	}
	if fav.Command == "" {
		s.logger.Debug("slot application has no windows and no command", "slot", slot, "class", fav.Class)
		return nil
	}
	if err := s.cfg.Launcher.Launch(fav.Command); err != nil {
		return fmt.Errorf("launch %s: %w", fav.Class, err)
	}
	return nil
}
