package hint

import (
	"testing"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop/looptest"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/platform/platformtest"
	"github.com/1broseidon/focushint/internal/stage"
)

type harness struct {
	clock    *looptest.Fake
	stage    *stage.Memory
	display  *platformtest.Display
	strategy Strategy
	finished int
}

func newHarness(t *testing.T, kind Kind) *harness {
	t.Helper()
	h := &harness{
		clock:   looptest.New(),
		display: platformtest.NewDisplay(),
	}
	h.stage = stage.NewMemory(h.clock)
	s, err := New(kind, Deps{
		Stage:     h.stage,
		Scheduler: h.clock,
		Display:   h.display,
		Settings:  DefaultSettings,
		Finished: func() {
			h.finished++
			h.strategy.ResetAnimation()
		},
	})
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	h.strategy = s
	return h
}

func (h *harness) window(id platform.WindowID, frame platform.Rect) *platformtest.Window {
	w := platformtest.NewWindow(id, 0, frame)
	h.display.Add(w)
	return w
}

func TestOutlineRunsUpThenDownThenFinishes(t *testing.T) {
	h := newHarness(t, KindOutline)
	w := h.window(1, platform.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	s := DefaultSettings()

	if !h.strategy.Indicate(Request{Window: w}) {
		t.Fatalf("Indicate() = false")
	}
	if got := h.strategy.Actors(); got != 2 {
		t.Fatalf("Actors() = %d, want 2 (clone + outline)", got)
	}
	if h.strategy.Phase() != Up {
		t.Fatalf("Phase() = %s, want up", h.strategy.Phase())
	}

	h.clock.Advance(s.Up.Total())
	outline := h.stage.LiveOf(stage.KindOutline)[0]
	if got := outline.Property(anim.Spread); got != float64(s.Margin) {
		t.Fatalf("spread after Up = %v, want %d", got, s.Margin)
	}
	if h.strategy.Phase() != Down {
		t.Fatalf("Phase() = %s, want down", h.strategy.Phase())
	}

	h.clock.Advance(s.Down.Total())
	if h.finished != 1 {
		t.Fatalf("finished = %d, want 1", h.finished)
	}
	if h.strategy.Phase() != Idle || h.strategy.Actors() != 0 || len(h.stage.Live()) != 0 {
		t.Fatalf("not idle after Down: phase=%s actors=%d live=%d", h.strategy.Phase(), h.strategy.Actors(), len(h.stage.Live()))
	}
}

func TestOutlineClipsToMonitor(t *testing.T) {
	h := newHarness(t, KindOutline)
	w := h.window(1, platform.Rect{X: 1800, Y: 0, Width: 400, Height: 300})

	h.strategy.Indicate(Request{Window: w})
	outline := h.stage.LiveOf(stage.KindOutline)[0]
	if got, want := outline.Clip(), (platform.Rect{Width: 1920, Height: 1080}); got != want {
		t.Fatalf("Clip() = %+v, want %+v", got, want)
	}
	if p := outline.Painted(); p.X+p.Width > 1920 {
		t.Fatalf("outline paints past monitor edge: %+v", p)
	}
}

func TestOutlineArrivalStartsAtClonePositionAndSettles(t *testing.T) {
	h := newHarness(t, KindOutline)
	w := h.window(1, platform.Rect{X: 300, Y: 200, Width: 400, Height: 300})
	arrival := &Arrival{Position: platform.Point{X: 2220, Y: 200}, Remaining: 250 * time.Millisecond, Total: 250 * time.Millisecond}

	h.strategy.Indicate(Request{Window: w, Arrival: arrival})
	outline := h.stage.LiveOf(stage.KindOutline)[0]
	if got := outline.Position(); got != arrival.Position {
		t.Fatalf("start = %+v, want %+v", got, arrival.Position)
	}

	// Up starts at 70% of the switch.
	h.clock.Advance(170 * time.Millisecond)
	if got := outline.Property(anim.Spread); got != 0 {
		t.Fatalf("spread before arrival delay = %v", got)
	}

	h.clock.Advance(80 * time.Millisecond)
	if got, want := outline.Position(), (platform.Point{X: 300, Y: 200}); got != want {
		t.Fatalf("terminal = %+v, want %+v", got, want)
	}
	if outline.Property(anim.Spread) == 0 {
		t.Fatalf("Up phase did not start after arrival delay")
	}
}

func TestOverrideBeatsArrivalDelay(t *testing.T) {
	h := newHarness(t, KindOutline)
	w := h.window(1, platform.Rect{X: 0, Y: 0, Width: 400, Height: 300})
	arrival := &Arrival{Position: platform.Point{X: 10, Y: 10}, Remaining: 250 * time.Millisecond, Total: 250 * time.Millisecond}

	h.strategy.Indicate(Request{Window: w, Arrival: arrival, Overrides: []Override{WithUpDelay(0)}})
	h.clock.Advance(50 * time.Millisecond)
	outline := h.stage.LiveOf(stage.KindOutline)[0]
	if outline.Property(anim.Spread) == 0 {
		t.Fatalf("override up delay ignored")
	}
}

func TestUpscaleHidesSourceAndRestoresOnInterrupt(t *testing.T) {
	h := newHarness(t, KindUpscale)
	w := h.window(1, platform.Rect{X: 10, Y: 20, Width: 400, Height: 300})
	actor := w.FakeActor()

	h.strategy.Indicate(Request{Window: w})
	if actor.Alpha != 0 {
		t.Fatalf("source opacity = %d during hint, want 0", actor.Alpha)
	}
	h.clock.Advance(50 * time.Millisecond)
	h.strategy.ResetAnimation()
	h.strategy.ResetAnimation()

	if actor.Alpha != 255 {
		t.Fatalf("source opacity = %d after reset, want 255", actor.Alpha)
	}
	if len(h.stage.Live()) != 0 || h.strategy.Phase() != Idle {
		t.Fatalf("reset left live=%d phase=%s", len(h.stage.Live()), h.strategy.Phase())
	}
}

func TestUpscaleScalesAndArrivalSlides(t *testing.T) {
	h := newHarness(t, KindUpscale)
	w := h.window(1, platform.Rect{X: 500, Y: 400, Width: 400, Height: 300})
	s := DefaultSettings()
	arrival := &Arrival{Position: platform.Point{X: -1420, Y: 400}, Remaining: 100 * time.Millisecond, Total: 250 * time.Millisecond}

	h.strategy.Indicate(Request{Window: w, Arrival: arrival})
	clone := h.stage.LiveOf(stage.KindClone)[0]
	if got := clone.Position(); got != arrival.Position {
		t.Fatalf("start = %+v, want %+v", got, arrival.Position)
	}

	h.clock.Advance(arrival.Remaining)
	if got, want := clone.Position(), (platform.Point{X: 500, Y: 400}); got != want {
		t.Fatalf("terminal = %+v, want %+v", got, want)
	}
	if clone.Property(anim.ScaleX) != 1 {
		t.Fatalf("scaled before arrival completed")
	}

	h.clock.Advance(s.Up.Duration)
	if got := clone.Property(anim.ScaleX); got != s.ScaleTo {
		t.Fatalf("scale after Up = %v, want %v", got, s.ScaleTo)
	}
	h.clock.Advance(s.Down.Total())
	if h.finished != 1 || w.FakeActor().Alpha != 255 {
		t.Fatalf("finished=%d opacity=%d", h.finished, w.FakeActor().Alpha)
	}
}

func TestStaticBorderTracksGeometryBeforeRedraw(t *testing.T) {
	h := newHarness(t, KindStaticOutline)
	w := h.window(1, platform.Rect{X: 0, Y: 0, Width: 400, Height: 300})
	h.display.FocusAndNotify(w)
	h.clock.Flush()

	borders := h.stage.LiveOf(stage.KindOutline)
	if len(borders) != 1 {
		t.Fatalf("persistent borders = %d, want 1", len(borders))
	}
	border := borders[0]

	h.display.Move(w, platform.Rect{X: 50, Y: 60, Width: 400, Height: 300})
	h.display.Move(w, platform.Rect{X: 70, Y: 80, Width: 500, Height: 300})
	if got := border.Position(); got.X != 0 {
		t.Fatalf("border moved synchronously")
	}
	before := border.Changes
	h.clock.Flush()
	if got, want := border.Position(), (platform.Point{X: 70, Y: 80}); got != want {
		t.Fatalf("border at %+v, want %+v", got, want)
	}
	if border.Changes-before != 2 {
		t.Fatalf("expected one coalesced sync (bounds+clip), got %d changes", border.Changes-before)
	}
	if h.strategy.Actors() != 0 {
		t.Fatalf("persistent border counted in active set")
	}
}

func TestStaticTransitionFallbackReset(t *testing.T) {
	h := newHarness(t, KindStaticOutline)
	w := h.window(1, platform.Rect{X: 0, Y: 0, Width: 400, Height: 300})
	h.display.FocusAndNotify(w)
	h.clock.Flush()

	arrival := &Arrival{Position: platform.Point{X: 1920, Y: 0}, Remaining: 250 * time.Millisecond, Total: 400 * time.Millisecond}
	if !h.strategy.Indicate(Request{Window: w, Arrival: arrival}) {
		t.Fatalf("Indicate() = false")
	}
	if h.strategy.Actors() != 1 {
		t.Fatalf("Actors() = %d, want 1 transient", h.strategy.Actors())
	}
	persistent := h.stage.LiveOf(stage.KindOutline)[0]
	if persistent.Visible() {
		t.Fatalf("persistent border visible during transition")
	}

	h.clock.Advance(DefaultSettings().StaticDuration)
	if h.finished != 1 || h.strategy.Actors() != 0 {
		t.Fatalf("finished=%d actors=%d", h.finished, h.strategy.Actors())
	}
	if !persistent.Visible() {
		t.Fatalf("persistent border hidden after transition")
	}
	h.clock.Advance(time.Second)
	if h.finished != 1 {
		t.Fatalf("fallback fired after natural completion")
	}

	h.strategy.Destroy()
	if len(h.stage.Live()) != 0 {
		t.Fatalf("Destroy left %d actors", len(h.stage.Live()))
	}
	if u, g := h.display.Subscribers(w.ID()); u != 0 || g != 0 {
		t.Fatalf("Destroy left subscriptions unmanaged=%d geometry=%d", u, g)
	}
}

func TestNoneNeverIndicates(t *testing.T) {
	h := newHarness(t, KindNone)
	w := h.window(1, platform.Rect{Width: 10, Height: 10})
	if h.strategy.Indicate(Request{Window: w}) {
		t.Fatalf("none strategy indicated")
	}
	h.strategy.ResetAnimation()
	h.strategy.Destroy()
}

func TestPresentable(t *testing.T) {
	mk := func(mut func(*platformtest.Window)) platform.Window {
		w := platformtest.NewWindow(1, 0, platform.Rect{Width: 10, Height: 10})
		mut(w)
		return w
	}
	tests := []struct {
		name string
		w    platform.Window
		want bool
	}{
		{"nil", nil, false},
		{"normal", mk(func(*platformtest.Window) {}), true},
		{"fullscreen", mk(func(w *platformtest.Window) { w.Fullscreen = true }), false},
		{"maximized both", mk(func(w *platformtest.Window) { w.Max = platform.MaximizedBoth }), false},
		{"maximized vertical", mk(func(w *platformtest.Window) { w.Max = platform.MaximizedVertical }), true},
		{"minimized", mk(func(w *platformtest.Window) { w.Minimized = true }), false},
		{"no actor", mk(func(w *platformtest.Window) { w.NoActor = true }), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Presentable(tt.w); got != tt.want {
				t.Fatalf("Presentable() = %v, want %v", got, tt.want)
			}
		})
	}
}
