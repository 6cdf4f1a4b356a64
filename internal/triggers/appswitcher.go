package triggers

import (
	"errors"
	"log/slog"

	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/switcher"
)

// AppSwitcherConfig wires an AppSwitcher.
type AppSwitcherConfig struct {
	Host        switcher.Host
	Coordinator Coordinator
	Display     platform.Display
	// Overrides are applied to hints started directly by the switcher.
	Overrides func() []hint.Override
	Logger    *slog.Logger
}

// AppSwitcher decorates the switcher's Finisher.
type AppSwitcher struct {
	cfg       AppSwitcherConfig
	logger    *slog.Logger
	inner     switcher.Finisher
	destroyed bool
}

// InstallAppSwitcher wraps the host's Finisher.
func InstallAppSwitcher(cfg AppSwitcherConfig) (*AppSwitcher, error) {
	if cfg.Host == nil || cfg.Coordinator == nil || cfg.Display == nil {
		return nil, errors.New("triggers: switcher host, coordinator and display are required")
	}
	if cfg.Overrides == nil {
		cfg.Overrides = func() []hint.Override { return nil }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &AppSwitcher{cfg: cfg, logger: cfg.Logger, inner: cfg.Host.Finisher()}
	cfg.Host.SetFinisher(a)
	return a, nil
}

// Finish hints w, or leaves it for the switch synchronizer when activating
// it changes workspace, then runs the wrapped Finisher.
func (a *AppSwitcher) Finish(w platform.Window) {
	if !a.destroyed && w != nil {
		if crossesWorkspace(a.cfg.Display, w) {
			a.cfg.Coordinator.SetPendingFocus(w)
		} else {
			a.cfg.Coordinator.Indicate(w, focus.Options{Overrides: a.cfg.Overrides()})
		}
	}
	a.inner.Finish(w)
}

// Destroy restores the wrapped Finisher.
func (a *AppSwitcher) Destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	if a.cfg.Host.Finisher() != switcher.Finisher(a) {
		a.logger.Warn("switcher finisher was replaced after install")
	}
	a.cfg.Host.SetFinisher(a.inner)
}

var _ switcher.Finisher = (*AppSwitcher)(nil)
