package stage

import (
	"testing"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop/looptest"
	"github.com/1broseidon/focushint/internal/platform"
)

func TestPaintedScalesAboutCentreAndClips(t *testing.T) {
	clock := looptest.New()
	n := NewNode(KindOutline, clock, nil)
	n.SetBounds(100, 100, 200, 100)
	n.SetProperty(anim.ScaleX, 1.5)
	n.SetProperty(anim.ScaleY, 1.5)

	got := n.Painted()
	want := platform.Rect{X: 50, Y: 75, Width: 300, Height: 150}
	if got != want {
		t.Fatalf("Painted() = %+v, want %+v", got, want)
	}

	n.SetProperty(anim.ScaleX, 1)
	n.SetProperty(anim.ScaleY, 1)
	n.SetProperty(anim.Spread, 10)
	n.SetClip(platform.Rect{X: 0, Y: 0, Width: 250, Height: 1000})
	got = n.Painted()
	want = platform.Rect{X: 90, Y: 90, Width: 160, Height: 120}
	if got != want {
		t.Fatalf("clipped Painted() = %+v, want %+v", got, want)
	}
}

func TestEaseReplacesConflictingTransition(t *testing.T) {
	clock := looptest.New()
	n := NewNode(KindClone, clock, nil)

	first := n.Ease(anim.Props{anim.X: 100, anim.Opacity: 0}, anim.Params{Duration: 100 * time.Millisecond})
	clock.Advance(20 * time.Millisecond)
	second := n.Ease(anim.Props{anim.X: 0}, anim.Params{Duration: 100 * time.Millisecond})

	if first.State() != anim.Stopped {
		t.Fatalf("first transition state = %s, want stopped", first.State())
	}
	if second.State() != anim.Running {
		t.Fatalf("second transition state = %s", second.State())
	}
	clock.Advance(200 * time.Millisecond)
	if n.Property(anim.X) != 0 {
		t.Fatalf("X = %v, want 0", n.Property(anim.X))
	}
	if n.Transitions() != 0 {
		t.Fatalf("Transitions() = %d after completion", n.Transitions())
	}
}

func TestDestroyStopsTransitionsAndIsIdempotent(t *testing.T) {
	clock := looptest.New()
	st := NewMemory(clock)
	a := st.NewOutline(Style{BorderWidth: 4})
	tr := a.Ease(anim.Props{anim.Spread: 10}, anim.Params{Duration: time.Second})

	a.Destroy()
	a.Destroy()

	if tr.State() != anim.Stopped {
		t.Fatalf("transition state = %s", tr.State())
	}
	if len(st.Live()) != 0 || len(st.Created()) != 1 {
		t.Fatalf("live=%d created=%d", len(st.Live()), len(st.Created()))
	}
	if a.Visible() {
		t.Fatalf("destroyed actor reports visible")
	}
}
