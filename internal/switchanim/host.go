package switchanim

import "github.com/1broseidon/focushint/internal/wsswitch"

// Host owns the installed switch animator. Decorators such as
// wsswitch.Synchronizer replace it through SetSwitchAnimator.
type Host struct {
	base *Animator
	cur  wsswitch.Animator
}

// NewHost installs base as the active animator.
func NewHost(base *Animator) *Host {
	return &Host{base: base, cur: base}
}

func (h *Host) SwitchAnimator() wsswitch.Animator { return h.cur }

func (h *Host) SetSwitchAnimator(a wsswitch.Animator) { h.cur = a }

// DesktopChanged animates a window-manager desktop change through the
// active animator. Changes a gesture already animated are skipped.
func (h *Host) DesktopChanged(from, to int) {
	if from == to || h.base.ClaimSwitch(to) {
		return
	}
	h.cur.AnimateSwitch(from, to, direction(from, to), nil)
}

func direction(from, to int) wsswitch.Direction {
	if to < from {
		return wsswitch.DirectionUp
	}
	return wsswitch.DirectionDown
}

var _ wsswitch.Host = (*Host)(nil)
