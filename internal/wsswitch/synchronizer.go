package wsswitch

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

// MarkerName is the marker added to gesture transitions.
const MarkerName = "start_focus_indication"

// DefaultMarkerRatio reproduces the discrete-switch feel: indication starts
// 200ms into a 250ms switch.
const DefaultMarkerRatio = 200.0 / 250.0

// MarkerTime is the offset of the indication marker inside a transition of
// duration d.
func MarkerTime(d time.Duration, ratio float64) time.Duration {
	return time.Duration(float64(d) * ratio)
}

// Settings are read on every switch.
type Settings struct {
	MarkerRatio float64
	// UpDelay, when positive, replaces the Up phase delay of hints started by
	// discrete switches.
	UpDelay time.Duration
	// NominalDuration is used when the switch has no progress transition.
	NominalDuration time.Duration
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	return Settings{MarkerRatio: DefaultMarkerRatio, NominalDuration: 250 * time.Millisecond}
}

// Coordinator is the part of focus.Coordinator the synchronizer drives.
type Coordinator interface {
	Indicate(w platform.Window, opts focus.Options) bool
	Reset()
	TakePendingFocus() platform.Window
	HidesSwitchClone() bool
}

// Config wires a Synchronizer.
type Config struct {
	Host        Host
	Gestures    GestureTracker
	Coordinator Coordinator
	Display     platform.Display
	Settings    func() Settings
	Logger      *slog.Logger
}

// Synchronizer decorates the host's Animator.
type Synchronizer struct {
	cfg    Config
	logger *slog.Logger
	inner  Animator

	subs      signals.Group
	marker    signals.Subscription
	markerOn  Transition
	destroyed bool
}

// Install wraps the host's current animator and subscribes to gestures.
func Install(cfg Config) (*Synchronizer, error) {
	if cfg.Host == nil || cfg.Coordinator == nil || cfg.Display == nil {
		return nil, errors.New("wsswitch: host, coordinator and display are required")
	}
	inner := cfg.Host.SwitchAnimator()
	if inner == nil {
		return nil, errors.New("wsswitch: host has no switch animator")
	}
	if cfg.Settings == nil {
		cfg.Settings = DefaultSettings
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Synchronizer{cfg: cfg, logger: cfg.Logger, inner: inner}
	cfg.Host.SetSwitchAnimator(s)
	if cfg.Gestures != nil {
		s.subs.Add(cfg.Gestures.OnBegin(s.onGestureBegin))
		s.subs.Add(cfg.Gestures.OnEnd(s.onGestureEnd))
	}
	return s, nil
}

// Inner returns the wrapped animator.
func (s *Synchronizer) Inner() Animator { return s.inner }

func (s *Synchronizer) SwitchData() *SwitchData { return s.inner.SwitchData() }

func (s *Synchronizer) MovingWindow() platform.Window { return s.inner.MovingWindow() }

// AnimateSwitch runs the wrapped animation, then hints the window the switch
// lands on.
func (s *Synchronizer) AnimateSwitch(from, to int, dir Direction, onComplete func()) {
	s.inner.AnimateSwitch(from, to, dir, onComplete)
	if s.destroyed {
		return
	}
	if s.inner.MovingWindow() != nil {
		return
	}

	target := s.cfg.Coordinator.TakePendingFocus()
	if target == nil {
		target = platform.FirstWindowOn(s.cfg.Display, to)
	}
	if target == nil {
		s.logger.Debug("switch target workspace is empty", "to", to)
		return
	}
	if platform.SameWindow(s.cfg.Display.FocusWindow(), target) {
		return
	}

	st := s.cfg.Settings()
	clone, group := s.findClone(target.Actor())
	if clone == nil {
		s.cfg.Coordinator.Indicate(target, focus.Options{})
		return
	}
	total := st.NominalDuration
	if tr := group.ProgressTransition(); tr != nil {
		total = tr.Duration()
	}
	opts := focus.Options{
		Arrival: &hint.Arrival{
			Position:  AbsolutePosition(clone, s.monitorOf(target)),
			Remaining: total,
			Total:     total,
		},
	}
	if st.UpDelay > 0 {
		opts.Overrides = append(opts.Overrides, hint.WithUpDelay(st.UpDelay))
	}
	s.indicateFromClone(target, clone, opts)
}

func (s *Synchronizer) onGestureBegin() {
	if s.destroyed {
		return
	}
	s.cancelMarker()
	s.cfg.Coordinator.Reset()
}

func (s *Synchronizer) onGestureEnd(ev GestureEnd) {
	if s.destroyed {
		return
	}
	data := s.inner.SwitchData()
	if data == nil {
		// The swipe already landed. Focus may still sit on the workspace
		// being left until the window manager catches up.
		ws := int(math.Round(ev.EndProgress))
		target := s.cfg.Display.FocusWindow()
		if !onWorkspace(target, ws) {
			target = platform.FirstWindowOn(s.cfg.Display, ws)
		}
		if target == nil {
			return
		}
		s.cfg.Coordinator.Indicate(target, focus.Options{})
		return
	}
	if len(data.Monitors) == 0 {
		return
	}
	tr := data.Monitors[0].ProgressTransition()
	if tr == nil {
		return
	}
	base := data.Base
	if base == nil {
		base = data.Monitors[0]
	}
	newWs := base.FindClosestWorkspace(ev.EndProgress)

	s.cancelMarker()
	tr.AddMarker(MarkerName, MarkerTime(tr.Duration(), s.cfg.Settings().MarkerRatio))
	s.markerOn = tr
	s.marker = tr.OnMarkerReached(func(m anim.Marker) {
		if m.Name != MarkerName {
			return
		}
		s.cancelMarker()
		s.onMarker(tr, newWs, m.Elapsed)
	})
}

func (s *Synchronizer) onMarker(tr Transition, ws int, elapsed time.Duration) {
	if s.destroyed {
		return
	}
	target := platform.FirstWindowOn(s.cfg.Display, ws)
	if target == nil {
		return
	}
	clone, _ := s.findClone(target.Actor())
	if clone == nil {
		s.cfg.Coordinator.Indicate(target, focus.Options{})
		return
	}
	opts := focus.Options{
		Arrival: &hint.Arrival{
			Position:  AbsolutePosition(clone, s.monitorOf(target)),
			Remaining: tr.Duration() - elapsed,
			Total:     tr.Duration(),
		},
	}
	s.indicateFromClone(target, clone, opts)
}

func (s *Synchronizer) indicateFromClone(target platform.Window, clone Clone, opts focus.Options) {
	if s.cfg.Coordinator.Indicate(target, opts) && s.cfg.Coordinator.HidesSwitchClone() {
		clone.Hide()
	}
}

// findClone searches every monitor group for the record of actor. The first
// match wins.
func (s *Synchronizer) findClone(actor platform.WindowActor) (Clone, MonitorGroup) {
	if actor == nil {
		return nil, nil
	}
	data := s.inner.SwitchData()
	if data == nil {
		return nil, nil
	}
	for _, mg := range data.Monitors {
		for _, wg := range mg.WorkspaceGroups() {
			for _, rec := range wg.Records() {
				if rec.Actor == actor && rec.Clone != nil {
					return rec.Clone, mg
				}
			}
		}
	}
	return nil, nil
}

func onWorkspace(w platform.Window, ws int) bool {
	if w == nil {
		return false
	}
	got := w.Workspace()
	return got == ws || got == platform.AllWorkspaces
}

func (s *Synchronizer) monitorOf(w platform.Window) platform.Rect {
	if m, ok := s.cfg.Display.Monitor(w.Monitor()); ok {
		return m.Bounds
	}
	return platform.Rect{}
}

func (s *Synchronizer) cancelMarker() {
	if s.marker != nil {
		s.marker.Unsubscribe()
		s.marker = nil
	}
	if s.markerOn != nil {
		s.markerOn.RemoveMarker(MarkerName)
		s.markerOn = nil
	}
}

// Destroy restores the wrapped animator and drops every subscription.
func (s *Synchronizer) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.cancelMarker()
	s.subs.Unsubscribe()
	if cur := s.cfg.Host.SwitchAnimator(); cur != Animator(s) {
		s.logger.Warn("switch animator was replaced after install; restoring original anyway")
	}
	s.cfg.Host.SetSwitchAnimator(s.inner)
}

var _ Animator = (*Synchronizer)(nil)
