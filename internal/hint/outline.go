package hint

import (
	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/stage"
)

// darkenOpacity is the backdrop opacity at the peak of the Up phase.
const darkenOpacity = 0.35

// outlineHint clones the window and grows a border around it by the
// configured margin, then shrinks it back.
type outlineHint struct {
	animated
}

func newOutline(deps Deps) *outlineHint {
	return &outlineHint{animated{deps: deps}}
}

func (o *outlineHint) Kind() Kind { return KindOutline }

func (o *outlineHint) HidesSwitchClone() bool { return true }

func (o *outlineHint) Indicate(req Request) bool {
	w := req.Window
	frame := w.FrameRect()
	clip := monitorClip(o.deps.Display, w)
	s := resolve(o.deps, req, func(s *Settings) {
		if req.Arrival != nil {
			s.Up.Delay = arrivalDelay(*req.Arrival, s.ArrivalProportion)
		}
	})
	start := startPosition(req, frame)
	fw, fh := float64(frame.Width), float64(frame.Height)

	clone := o.deps.Stage.NewClone(w)
	clone.SetBounds(start.X, start.Y, fw, fh)
	border := o.deps.Stage.NewOutline(stage.Style{Color: s.Color, BorderWidth: s.BorderWidth})
	border.SetBounds(start.X, start.Y, fw, fh)
	border.SetClip(clip)
	o.track(clone, border)

	var backdrop stage.Actor
	if s.Darken && !clip.Empty() {
		backdrop = o.deps.Stage.NewBackdrop(clip, stage.Style{Color: 0x000000})
		backdrop.SetProperty(anim.Opacity, 0)
		o.track(backdrop)
	}

	if dest := frame.Origin(); start != dest {
		o.slide(dest, slideParams(req, s), clone, border)
	}

	margin := float64(s.Margin)
	up := func() []*anim.Transition {
		trs := []*anim.Transition{border.Ease(anim.Props{anim.Spread: margin}, s.Up.params())}
		if backdrop != nil {
			trs = append(trs, backdrop.Ease(anim.Props{anim.Opacity: darkenOpacity}, s.Up.params()))
		}
		return trs
	}
	down := func() []*anim.Transition {
		trs := []*anim.Transition{border.Ease(anim.Props{anim.Spread: 0}, s.Down.params())}
		if backdrop != nil {
			trs = append(trs, backdrop.Ease(anim.Props{anim.Opacity: 0}, s.Down.params()))
		}
		return trs
	}
	o.phases.run(up, down, o.finish)
	return true
}

func (o *outlineHint) Destroy() { o.ResetAnimation() }

// slideParams times the move from the arrival position to the resting
// position: the rest of the parent switch, or the Up phase otherwise.
func slideParams(req Request, s Settings) anim.Params {
	if req.Arrival != nil {
		return anim.Params{Duration: req.Arrival.Remaining, Mode: s.SlideMode}
	}
	return anim.Params{Duration: s.Up.Duration, Mode: s.SlideMode}
}

var _ Strategy = (*outlineHint)(nil)
