package hint

import (
	"github.com/1broseidon/focushint/internal/anim"
)

// upscaleHint scales a clone of the window up and back down while the real
// window is hidden underneath it.
type upscaleHint struct {
	animated
}

func newUpscale(deps Deps) *upscaleHint {
	return &upscaleHint{animated{deps: deps}}
}

func (u *upscaleHint) Kind() Kind { return KindUpscale }

func (u *upscaleHint) HidesSwitchClone() bool { return true }

func (u *upscaleHint) Indicate(req Request) bool {
	w := req.Window
	frame := w.FrameRect()
	s := resolve(u.deps, req, func(s *Settings) {
		if req.Arrival != nil {
			s.Up.Delay = req.Arrival.Remaining
		}
	})
	start := startPosition(req, frame)

	clone := u.deps.Stage.NewClone(w)
	clone.SetBounds(start.X, start.Y, float64(frame.Width), float64(frame.Height))
	u.track(clone)
	// Restored in ResetAnimation, which every exit path goes through.
	u.hide(w.Actor())

	if dest := frame.Origin(); start != dest {
		u.slide(dest, slideParams(req, s), clone)
	}

	up := func() []*anim.Transition {
		return []*anim.Transition{clone.Ease(anim.Props{anim.ScaleX: s.ScaleTo, anim.ScaleY: s.ScaleTo}, s.Up.params())}
	}
	down := func() []*anim.Transition {
		return []*anim.Transition{clone.Ease(anim.Props{anim.ScaleX: 1, anim.ScaleY: 1}, s.Down.params())}
	}
	u.phases.run(up, down, u.finish)
	return true
}

func (u *upscaleHint) Destroy() { u.ResetAnimation() }

var _ Strategy = (*upscaleHint)(nil)
