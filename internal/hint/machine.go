package hint

import (
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/stage"
)

// step starts the transitions of one phase. The first transition returned
// drives the phase: its completion is the only way to leave it.
type step func() []*anim.Transition

// machine is the Idle -> Up -> Down -> Idle phase machine. Cancelling is a
// single operation regardless of the current phase.
type machine struct {
	phase   Phase
	gen     uint64
	current []*anim.Transition
	down    step
	done    func()
}

func (m *machine) run(up, down step, done func()) {
	m.cancel()
	m.down = down
	m.done = done
	m.enter(Up, up, m.gen)
}

func (m *machine) enter(p Phase, s step, gen uint64) {
	m.phase = p
	m.current = s()
	if gen != m.gen {
		return
	}
	if len(m.current) == 0 {
		m.advance(gen)
		return
	}
	m.current[0].OnCompleted(func() {
		if m.gen == gen {
			m.advance(gen)
		}
	})
}

func (m *machine) advance(gen uint64) {
	if m.phase == Up && m.down != nil {
		down := m.down
		m.down = nil
		m.enter(Down, down, gen)
		return
	}
	m.phase = Idle
	m.current = nil
	done := m.done
	m.done = nil
	if done != nil {
		done()
	}
}

func (m *machine) cancel() {
	m.gen++
	current := m.current
	m.current = nil
	m.phase = Idle
	m.down = nil
	m.done = nil
	for _, tr := range current {
		tr.Stop()
	}
}

type hiddenActor struct {
	actor   platform.WindowActor
	opacity uint8
}

// animated holds the active animation set shared by the animated variants.
type animated struct {
	deps   Deps
	phases machine
	actors []stage.Actor
	extras []*anim.Transition
	hidden []hiddenActor
}

func (a *animated) Phase() Phase { return a.phases.phase }

func (a *animated) Actors() int { return len(a.actors) }

func (a *animated) track(actors ...stage.Actor) {
	a.actors = append(a.actors, actors...)
}

// hide makes the real window actor transparent until reset.
func (a *animated) hide(actor platform.WindowActor) {
	if actor == nil {
		return
	}
	a.hidden = append(a.hidden, hiddenActor{actor: actor, opacity: actor.Opacity()})
	actor.SetOpacity(0)
}

// slide moves actors from their current position to dest. It runs alongside
// the phases and is cancelled with them.
func (a *animated) slide(dest platform.Point, p anim.Params, actors ...stage.Actor) {
	for _, act := range actors {
		a.extras = append(a.extras, act.Ease(anim.Props{anim.X: dest.X, anim.Y: dest.Y}, p))
	}
}

func (a *animated) ResetAnimation() {
	a.phases.cancel()
	extras := a.extras
	a.extras = nil
	for _, tr := range extras {
		tr.Stop()
	}
	actors := a.actors
	a.actors = nil
	for i := len(actors) - 1; i >= 0; i-- {
		actors[i].Destroy()
	}
	hidden := a.hidden
	a.hidden = nil
	for _, h := range hidden {
		h.actor.SetOpacity(h.opacity)
	}
}

func (a *animated) finish() {
	a.deps.Finished()
}

// Presentable reports whether w can carry a hint: it exists, has an actor,
// and is neither fullscreen, maximized on both axes, nor minimized.
func Presentable(w platform.Window) bool {
	if w == nil {
		return false
	}
	if w.IsFullscreen() || w.IsMinimized() || w.Maximized() == platform.MaximizedBoth {
		return false
	}
	return w.Actor() != nil
}

// arrivalDelay places the start of the Up phase at proportion of the parent
// transition, measured from the moment the hint starts.
func arrivalDelay(a Arrival, proportion float64) time.Duration {
	elapsed := a.Total - a.Remaining
	d := time.Duration(float64(a.Total)*proportion) - elapsed
	if d < 0 {
		return 0
	}
	return d
}
