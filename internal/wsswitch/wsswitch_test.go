package wsswitch

import (
	"testing"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/loop/looptest"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/platform/platformtest"
	"github.com/1broseidon/focushint/internal/signals"
	"github.com/1broseidon/focushint/internal/stage"
)

type fakeNode struct {
	local  platform.Point
	parent Positioned
}

func (n *fakeNode) LocalPosition() platform.Point { return n.local }
func (n *fakeNode) Parent() Positioned {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

type fakeClone struct {
	fakeNode
	transformed  platform.Point
	hasTransform bool
	hidden       bool
}

func (c *fakeClone) TransformedPosition() (platform.Point, bool) {
	return c.transformed, c.hasTransform
}
func (c *fakeClone) Hide() { c.hidden = true }

type fakeGroup struct {
	ws      int
	records []WindowRecord
}

func (g *fakeGroup) Workspace() int          { return g.ws }
func (g *fakeGroup) Records() []WindowRecord { return g.records }

type fakeMonitor struct {
	geometry platform.Rect
	groups   []WorkspaceGroup
	tr       Transition
	closest  int
}

func (m *fakeMonitor) Index() int                        { return 0 }
func (m *fakeMonitor) Geometry() platform.Rect           { return m.geometry }
func (m *fakeMonitor) WorkspaceGroups() []WorkspaceGroup { return m.groups }
func (m *fakeMonitor) ProgressTransition() Transition    { return m.tr }
func (m *fakeMonitor) FindClosestWorkspace(float64) int  { return m.closest }

// fakeAnimator is both the host's animator and its gesture tracker.
type fakeAnimator struct {
	data     *SwitchData
	moving   platform.Window
	switches int
	begin    signals.Emitter[struct{}]
	end      signals.Emitter[GestureEnd]
}

func (a *fakeAnimator) AnimateSwitch(from, to int, dir Direction, onComplete func()) { a.switches++ }
func (a *fakeAnimator) SwitchData() *SwitchData                                      { return a.data }
func (a *fakeAnimator) MovingWindow() platform.Window                                { return a.moving }
func (a *fakeAnimator) OnBegin(fn func()) signals.Subscription {
	return a.begin.Connect(func(struct{}) { fn() })
}
func (a *fakeAnimator) OnEnd(fn func(GestureEnd)) signals.Subscription {
	return a.end.Connect(fn)
}

type fakeHost struct{ cur Animator }

func (h *fakeHost) SwitchAnimator() Animator     { return h.cur }
func (h *fakeHost) SetSwitchAnimator(a Animator) { h.cur = a }

type indicateCall struct {
	window platform.WindowID
	opts   focus.Options
}

// recorder stands in for the coordinator when only the request matters.
type recorder struct {
	calls   []indicateCall
	resets  int
	pending platform.Window
	hides   bool
}

func (r *recorder) Indicate(w platform.Window, opts focus.Options) bool {
	if w == nil {
		return false
	}
	r.calls = append(r.calls, indicateCall{window: w.ID(), opts: opts})
	return true
}
func (r *recorder) Reset() { r.resets++ }
func (r *recorder) TakePendingFocus() platform.Window {
	w := r.pending
	r.pending = nil
	return w
}
func (r *recorder) HidesSwitchClone() bool { return r.hides }

type fixture struct {
	clock   *looptest.Fake
	display *platformtest.Display
	anim    *fakeAnimator
	host    *fakeHost
	sync    *Synchronizer
}

func newFixture(t *testing.T, coord Coordinator) *fixture {
	t.Helper()
	f := &fixture{clock: looptest.New(), display: platformtest.NewDisplay(), anim: &fakeAnimator{}}
	f.host = &fakeHost{cur: f.anim}
	s, err := Install(Config{Host: f.host, Gestures: f.anim, Coordinator: coord, Display: f.display})
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	f.sync = s
	return f
}

// withClone puts a clone for w into a single-monitor switch.
func (f *fixture) withClone(w *platformtest.Window, clone *fakeClone, tr Transition) *fakeMonitor {
	mon := &fakeMonitor{
		geometry: platform.Rect{Width: 1920, Height: 1080},
		groups:   []WorkspaceGroup{&fakeGroup{ws: w.WS, records: []WindowRecord{{Actor: w.Actor(), Clone: clone}}}},
		tr:       tr,
		closest:  w.WS,
	}
	f.anim.data = &SwitchData{Monitors: []MonitorGroup{mon}, Base: mon}
	return mon
}

func TestMarkerTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want time.Duration
	}{
		{100 * time.Millisecond, 80 * time.Millisecond},
		{250 * time.Millisecond, 200 * time.Millisecond},
		{400 * time.Millisecond, 320 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := MarkerTime(tt.d, DefaultMarkerRatio); got != tt.want {
			t.Fatalf("MarkerTime(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestAbsolutePosition(t *testing.T) {
	monitor := platform.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}
	root := &fakeNode{local: platform.Point{X: 10, Y: 5}}
	group := &fakeNode{local: platform.Point{X: 0, Y: 100}, parent: root}

	c := &fakeClone{fakeNode: fakeNode{local: platform.Point{X: 40, Y: 30}, parent: group}}
	if got, want := AbsolutePosition(c, monitor), (platform.Point{X: 1970, Y: 135}); got != want {
		t.Fatalf("ancestor sum = %+v, want %+v", got, want)
	}

	c.transformed, c.hasTransform = platform.Point{X: 300, Y: 400}, true
	if got := AbsolutePosition(c, monitor); got != c.transformed {
		t.Fatalf("transformed = %+v, want %+v", got, c.transformed)
	}

	c.transformed = platform.Point{X: 0, Y: 400}
	if got, want := AbsolutePosition(c, monitor), (platform.Point{X: 1970, Y: 135}); got != want {
		t.Fatalf("zero transformed x should fall back: %+v", got)
	}
}

func TestDiscreteSwitchHintsArrivingWindow(t *testing.T) {
	clock := looptest.New()
	display := platformtest.NewDisplay()
	st := stage.NewMemory(clock)
	coord, err := focus.New(focus.Config{Display: display, Stage: st, Scheduler: clock, Strategy: hint.KindOutline})
	if err != nil {
		t.Fatalf("focus.New() error: %v", err)
	}

	here := platformtest.NewWindow(1, 0, platform.Rect{X: 0, Y: 0, Width: 800, Height: 600})
	there := platformtest.NewWindow(2, 1, platform.Rect{X: 100, Y: 100, Width: 800, Height: 600})
	display.Add(here)
	display.Add(there)
	display.Focus(here)

	a := &fakeAnimator{}
	host := &fakeHost{cur: a}
	s, err := Install(Config{Host: host, Gestures: a, Coordinator: coord, Display: display})
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	clone := &fakeClone{fakeNode: fakeNode{local: platform.Point{X: 100, Y: 1180}}}
	mon := &fakeMonitor{
		geometry: platform.Rect{Width: 1920, Height: 1080},
		groups:   []WorkspaceGroup{&fakeGroup{ws: 1, records: []WindowRecord{{Actor: there.Actor(), Clone: clone}}}},
	}
	a.data = &SwitchData{Monitors: []MonitorGroup{mon}, Base: mon}

	host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)

	if a.switches != 1 {
		t.Fatalf("inner animator ran %d times", a.switches)
	}
	if !platform.SameWindow(coord.Current(), there) {
		t.Fatalf("arriving window not hinted")
	}
	if !clone.hidden {
		t.Fatalf("switch clone not hidden")
	}
	clones := st.LiveOf(stage.KindClone)
	if len(clones) != 1 {
		t.Fatalf("live clones = %d", len(clones))
	}
	if got := clones[0].Position(); got != (platform.Point{X: 100, Y: 1180}) {
		t.Fatalf("hint clone starts at %+v, want arrival position", got)
	}

	clock.Advance(2 * time.Second)
	if len(st.Live()) != 0 || coord.Current() != nil {
		t.Fatalf("hint not cleared after switch: live=%d", len(st.Live()))
	}
	if got := clones[0].Position(); got != there.Frame.Origin() {
		t.Fatalf("hint clone ended at %+v", got)
	}

	s.Destroy()
	if host.SwitchAnimator() != Animator(a) {
		t.Fatalf("Destroy did not restore the inner animator")
	}
}

func TestDiscreteSwitchSkips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, there *platformtest.Window)
	}{
		{name: "moving window", setup: func(f *fixture, there *platformtest.Window) { f.anim.moving = there }},
		{name: "already focused", setup: func(f *fixture, there *platformtest.Window) { f.display.Focus(there) }},
		{name: "empty workspace", setup: func(f *fixture, there *platformtest.Window) { f.display.Remove(there) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			f := newFixture(t, r)
			there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
			f.display.Add(there)
			tt.setup(f, there)

			f.host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)
			if len(r.calls) != 0 {
				t.Fatalf("Indicate called: %+v", r.calls)
			}
			if f.anim.switches != 1 {
				t.Fatalf("inner animator skipped")
			}
		})
	}
}

func TestDiscreteSwitchPrefersPendingFocus(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	first := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	pending := platformtest.NewWindow(3, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(first)
	f.display.Add(pending)
	r.pending = pending

	f.host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)

	if len(r.calls) != 1 || r.calls[0].window != 3 {
		t.Fatalf("calls = %+v, want pending window 3", r.calls)
	}
	if r.calls[0].opts.Arrival != nil {
		t.Fatalf("arrival set without a clone")
	}
	if r.pending != nil {
		t.Fatalf("pending focus not consumed")
	}
}

// stickyAhead adds a window shown on every workspace so it sorts before
// anything added later.
func stickyAhead(f *fixture, id platform.WindowID, kind platform.WindowType) {
	w := platformtest.NewWindow(id, platform.AllWorkspaces, platform.Rect{Width: 1920, Height: 32})
	w.Kind = kind
	f.display.Add(w)
}

func TestDiscreteSwitchSkipsStickyAndPanelWindows(t *testing.T) {
	tests := []struct {
		name string
		kind platform.WindowType
	}{
		{name: "sticky dock", kind: platform.WindowDock},
		{name: "sticky desktop", kind: platform.WindowDesktop},
		{name: "sticky normal window", kind: platform.WindowNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			f := newFixture(t, r)
			stickyAhead(f, 9, tt.kind)
			f.display.Add(platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100}))

			f.host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)

			if len(r.calls) != 1 || r.calls[0].window != 2 {
				t.Fatalf("calls = %+v, want window 2", r.calls)
			}
		})
	}
}

func TestDiscreteSwitchFallsBackToStickyWindow(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	stickyAhead(f, 8, platform.WindowDock)
	stickyAhead(f, 9, platform.WindowNormal)

	f.host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)

	if len(r.calls) != 1 || r.calls[0].window != 9 {
		t.Fatalf("calls = %+v, want sticky window 9", r.calls)
	}
}

func TestDiscreteSwitchArrivalTiming(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	f.sync.cfg.Settings = func() Settings {
		s := DefaultSettings()
		s.UpDelay = 50 * time.Millisecond
		return s
	}
	there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(there)
	tr := anim.New(f.clock, anim.Params{Duration: 300 * time.Millisecond}, nil)
	f.withClone(there, &fakeClone{}, tr)

	f.host.SwitchAnimator().AnimateSwitch(0, 1, DirectionDown, nil)

	if len(r.calls) != 1 {
		t.Fatalf("calls = %d", len(r.calls))
	}
	arr := r.calls[0].opts.Arrival
	if arr == nil || arr.Remaining != 300*time.Millisecond || arr.Total != 300*time.Millisecond {
		t.Fatalf("arrival = %+v", arr)
	}
	if len(r.calls[0].opts.Overrides) != 1 {
		t.Fatalf("up delay override missing")
	}
	s := hint.DefaultSettings()
	r.calls[0].opts.Overrides[0](&s)
	if s.Up.Delay != 50*time.Millisecond {
		t.Fatalf("override up delay = %v", s.Up.Delay)
	}
}

func TestGestureBeginResets(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	f.anim.begin.Emit(struct{}{})
	if r.resets != 1 {
		t.Fatalf("resets = %d, want 1", r.resets)
	}
}

func TestFullSwipeHintsFocusWindow(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	w := platformtest.NewWindow(4, 2, platform.Rect{Width: 100, Height: 100})
	f.display.Add(w)
	f.display.Focus(w)

	f.anim.end.Emit(GestureEnd{Duration: 200 * time.Millisecond, EndProgress: 2})

	if len(r.calls) != 1 || r.calls[0].window != 4 || r.calls[0].opts.Arrival != nil {
		t.Fatalf("calls = %+v, want plain indicate of window 4", r.calls)
	}
}

func TestFullSwipeHintsDestinationBeforeFocusMoves(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	left := platformtest.NewWindow(1, 0, platform.Rect{Width: 100, Height: 100})
	stickyAhead(f, 9, platform.WindowDock)
	f.display.Add(left)
	f.display.Add(platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100}))
	f.display.Focus(left)

	f.anim.end.Emit(GestureEnd{EndProgress: 1})

	if len(r.calls) != 1 || r.calls[0].window != 2 {
		t.Fatalf("calls = %+v, want window 2 on the destination", r.calls)
	}
}

func TestFullSwipeToEmptyWorkspace(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	left := platformtest.NewWindow(1, 0, platform.Rect{Width: 100, Height: 100})
	f.display.Add(left)
	f.display.Focus(left)

	f.anim.end.Emit(GestureEnd{EndProgress: 3})

	if len(r.calls) != 0 {
		t.Fatalf("indicated on an empty workspace: %+v", r.calls)
	}
}

func TestGestureMarkerHintsDestination(t *testing.T) {
	r := &recorder{hides: true}
	f := newFixture(t, r)
	there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(there)
	clone := &fakeClone{transformed: platform.Point{X: 12, Y: 700}, hasTransform: true}
	tr := anim.New(f.clock, anim.Params{Duration: 400 * time.Millisecond}, nil)
	f.withClone(there, clone, tr)
	tr.Start()

	f.anim.end.Emit(GestureEnd{Duration: 400 * time.Millisecond, EndProgress: 0.6})
	f.clock.Advance(319 * time.Millisecond)
	if len(r.calls) != 0 {
		t.Fatalf("indicated before the marker")
	}
	f.clock.Advance(time.Millisecond)

	if len(r.calls) != 1 || r.calls[0].window != 2 {
		t.Fatalf("calls = %+v", r.calls)
	}
	arr := r.calls[0].opts.Arrival
	if arr == nil || arr.Remaining != 80*time.Millisecond || arr.Total != 400*time.Millisecond {
		t.Fatalf("arrival = %+v", arr)
	}
	if arr.Position != clone.transformed {
		t.Fatalf("arrival position = %+v", arr.Position)
	}
	if !clone.hidden {
		t.Fatalf("clone not hidden")
	}

	f.clock.Advance(time.Second)
	if len(r.calls) != 1 {
		t.Fatalf("marker fired twice")
	}
}

func TestGestureMarkerSkipsStickyWindows(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	stickyAhead(f, 9, platform.WindowNormal)
	there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(there)
	tr := anim.New(f.clock, anim.Params{Duration: 250 * time.Millisecond}, nil)
	f.withClone(there, &fakeClone{}, tr)
	tr.Start()

	f.anim.end.Emit(GestureEnd{Duration: 250 * time.Millisecond, EndProgress: 1})
	f.clock.Advance(time.Second)

	if len(r.calls) != 1 || r.calls[0].window != 2 {
		t.Fatalf("calls = %+v, want window 2", r.calls)
	}
}

func TestGestureBeginCancelsMarker(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(there)
	tr := anim.New(f.clock, anim.Params{Duration: 250 * time.Millisecond}, nil)
	f.withClone(there, &fakeClone{}, tr)
	tr.Start()

	f.anim.end.Emit(GestureEnd{EndProgress: 1})
	f.anim.begin.Emit(struct{}{})
	f.clock.Advance(time.Second)

	if len(r.calls) != 0 {
		t.Fatalf("cancelled marker still indicated: %+v", r.calls)
	}
}

func TestDestroyStopsReacting(t *testing.T) {
	r := &recorder{}
	f := newFixture(t, r)
	there := platformtest.NewWindow(2, 1, platform.Rect{Width: 100, Height: 100})
	f.display.Add(there)

	f.sync.Destroy()
	f.sync.Destroy()
	if f.host.SwitchAnimator() != Animator(f.anim) {
		t.Fatalf("host animator not restored")
	}
	f.anim.begin.Emit(struct{}{})
	f.anim.end.Emit(GestureEnd{})
	f.sync.AnimateSwitch(0, 1, DirectionDown, nil)
	if r.resets != 0 || len(r.calls) != 0 {
		t.Fatalf("destroyed synchronizer reacted: resets=%d calls=%d", r.resets, len(r.calls))
	}
	if f.anim.begin.Len() != 0 || f.anim.end.Len() != 0 {
		t.Fatalf("gesture subscriptions left")
	}
}
