package hint

import (
	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
	"github.com/1broseidon/focushint/internal/stage"
)

// staticHint keeps one border around the focused window at all times. During
// a workspace switch it additionally plays a short slide-in transition on a
// transient border.
type staticHint struct {
	animated

	border    stage.Actor
	tracked   platform.Window
	subs      signals.Group
	winSubs   signals.Group
	syncTimer loop.Timer
	fallback  loop.Timer
	counter   uint64
	destroyed bool
}

func newStatic(deps Deps) *staticHint {
	s := &staticHint{animated: animated{deps: deps}}
	if deps.Display != nil {
		s.subs.Add(deps.Display.OnFocusChanged(s.follow))
		s.follow(deps.Display.FocusWindow())
	}
	return s
}

func (s *staticHint) Kind() Kind { return KindStaticOutline }

func (s *staticHint) HidesSwitchClone() bool { return false }

func (s *staticHint) follow(w platform.Window) {
	if platform.SameWindow(w, s.tracked) {
		s.queueSync()
		return
	}
	s.winSubs.Unsubscribe()
	s.tracked = w
	if w != nil && s.deps.Display != nil {
		s.winSubs.Add(s.deps.Display.OnGeometryChanged(w.ID(), s.queueSync))
		s.winSubs.Add(s.deps.Display.OnWindowUnmanaged(w.ID(), func() { s.follow(nil) }))
	}
	s.queueSync()
}

// queueSync coalesces geometry updates into one reposition before the next
// frame.
func (s *staticHint) queueSync() {
	if s.syncTimer != nil || s.destroyed {
		return
	}
	s.syncTimer = s.deps.Scheduler.BeforeRedraw(func() {
		s.syncTimer = nil
		s.sync()
	})
}

func (s *staticHint) sync() {
	if s.destroyed {
		return
	}
	w := s.tracked
	if !Presentable(w) {
		if s.border != nil {
			s.border.Hide()
		}
		return
	}
	st := s.deps.Settings()
	if s.border == nil {
		s.border = s.deps.Stage.NewOutline(stage.Style{Color: st.Color, BorderWidth: st.BorderWidth})
	}
	f := w.FrameRect()
	s.border.SetBounds(float64(f.X), float64(f.Y), float64(f.Width), float64(f.Height))
	s.border.SetClip(monitorClip(s.deps.Display, w))
	if s.phases.phase == Idle {
		s.border.Show()
	} else {
		s.border.Hide()
	}
}

func (s *staticHint) Indicate(req Request) bool {
	if s.destroyed {
		return false
	}
	w := req.Window
	if !platform.SameWindow(w, s.tracked) {
		s.follow(w)
	}
	if req.Arrival == nil {
		s.sync()
		return true
	}

	st := resolve(s.deps, req, nil)
	frame := w.FrameRect()
	start := startPosition(req, frame)

	transient := s.deps.Stage.NewOutline(stage.Style{Color: st.Color, BorderWidth: st.BorderWidth})
	transient.SetBounds(start.X, start.Y, float64(frame.Width), float64(frame.Height))
	transient.SetClip(monitorClip(s.deps.Display, w))
	transient.SetProperty(anim.Opacity, 0)
	s.track(transient)

	s.counter++
	id := s.counter
	params := anim.Params{Delay: st.Up.Delay, Duration: st.StaticDuration, Mode: st.StaticMode}
	up := func() []*anim.Transition {
		dest := frame.Origin()
		return []*anim.Transition{transient.Ease(anim.Props{anim.X: dest.X, anim.Y: dest.Y, anim.Opacity: 1}, params)}
	}
	s.phases.run(up, nil, s.finish)
	if s.border != nil {
		s.border.Hide()
	}

	wait := max(req.Arrival.Total, params.Delay+params.Duration)
	s.fallback = s.deps.Scheduler.AfterFunc(wait, func() {
		s.fallback = nil
		if s.counter == id && s.phases.phase != Idle {
			s.deps.Logger.Debug("static hint fallback reset", "window_id", w.ID())
			s.finish()
		}
	})
	return true
}

func (s *staticHint) ResetAnimation() {
	if s.fallback != nil {
		s.fallback.Stop()
		s.fallback = nil
	}
	s.animated.ResetAnimation()
	s.sync()
}

func (s *staticHint) Destroy() {
	if s.destroyed {
		return
	}
	s.ResetAnimation()
	s.destroyed = true
	s.subs.Unsubscribe()
	s.winSubs.Unsubscribe()
	if s.syncTimer != nil {
		s.syncTimer.Stop()
		s.syncTimer = nil
	}
	if s.border != nil {
		s.border.Destroy()
		s.border = nil
	}
	s.tracked = nil
}

var _ Strategy = (*staticHint)(nil)
