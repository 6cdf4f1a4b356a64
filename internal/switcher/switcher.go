// Package switcher implements an Alt-Tab style window switcher model. The
// action taken when a selection is confirmed is an explicit extension point:
// decorators replace the popup's Finisher and restore it on teardown.
package switcher

import (
	"log/slog"

	"github.com/1broseidon/focushint/internal/platform"
)

// Finisher completes a switcher selection.
type Finisher interface {
	Finish(w platform.Window)
}

// FinisherFunc adapts a function to Finisher.
type FinisherFunc func(w platform.Window)

func (f FinisherFunc) Finish(w platform.Window) { f(w) }

// Host exposes the replaceable Finisher.
type Host interface {
	Finisher() Finisher
	SetFinisher(f Finisher)
}

// Config wires a Popup.
type Config struct {
	Display  platform.Display
	Launcher platform.AppLauncher
	Logger   *slog.Logger
}

// Popup tracks an open switcher: the candidate windows in most recently
// used order and the selected index.
type Popup struct {
	cfg      Config
	logger   *slog.Logger
	finisher Finisher

	items    []platform.Window
	selected int
	open     bool
}

// New returns a closed popup whose Finisher activates the selection.
func New(cfg Config) *Popup {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &Popup{cfg: cfg, logger: cfg.Logger}
	p.finisher = FinisherFunc(p.activate)
	return p
}

func (p *Popup) Finisher() Finisher { return p.finisher }

func (p *Popup) SetFinisher(f Finisher) { p.finisher = f }

// Open collects the switchable windows and preselects the one after the
// current focus, or the last one when backward is set. It reports false when
// there is nothing to switch to.
func (p *Popup) Open(backward bool) bool {
	p.items = p.items[:0]
	for _, w := range p.cfg.Display.AllWindows() {
		if w.Type() == platform.WindowNormal {
			p.items = append(p.items, w)
		}
	}
	if len(p.items) == 0 {
		p.open = false
		return false
	}
	p.open = true
	p.selected = 0
	if len(p.items) > 1 {
		p.selected = 1
		if backward {
			p.selected = len(p.items) - 1
		}
	}
	return true
}

// IsOpen reports whether a selection is in progress.
func (p *Popup) IsOpen() bool { return p.open }

// Next advances the selection, wrapping around.
func (p *Popup) Next() { p.step(1) }

// Prev moves the selection back, wrapping around.
func (p *Popup) Prev() { p.step(-1) }

func (p *Popup) step(d int) {
	if !p.open || len(p.items) == 0 {
		return
	}
	p.selected = (p.selected + d + len(p.items)) % len(p.items)
}

// Selected is the highlighted window, or nil when closed.
func (p *Popup) Selected() platform.Window {
	if !p.open || len(p.items) == 0 {
		return nil
	}
	return p.items[p.selected]
}

// Items returns the candidates in display order.
func (p *Popup) Items() []platform.Window {
	return append([]platform.Window(nil), p.items...)
}

// Finish closes the popup and hands the selection to the Finisher.
func (p *Popup) Finish() {
	w := p.Selected()
	p.Cancel()
	if w == nil {
		return
	}
	p.finisher.Finish(w)
}

// Cancel closes the popup without acting.
func (p *Popup) Cancel() {
	p.open = false
	p.items = p.items[:0]
	p.selected = 0
}

func (p *Popup) activate(w platform.Window) {
	if p.cfg.Launcher == nil {
		return
	}
	if err := p.cfg.Launcher.Activate(w); err != nil {
		p.logger.Warn("switcher activation failed", "window_id", w.ID(), "error", err)
	}
}

var _ Host = (*Popup)(nil)
