package anim

import (
	"time"

	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/signals"
)

// Property names an animatable actor property.
type Property int

const (
	X Property = iota
	Y
	Width
	Height
	ScaleX
	ScaleY
	Opacity
	// Spread grows an outline outward from its bounds, in pixels.
	Spread
	// Progress is a free-standing value used by switch transitions.
	Progress

	PropertyCount
)

var propertyNames = [PropertyCount]string{"x", "y", "width", "height", "scale-x", "scale-y", "opacity", "spread", "progress"}

func (p Property) String() string {
	if p < 0 || p >= PropertyCount {
		return "invalid"
	}
	return propertyNames[p]
}

// Props maps properties to target values.
type Props map[Property]float64

// Target is anything with animatable properties.
type Target interface {
	Property(p Property) float64
	SetProperty(p Property, v float64)
}

// Params describes one eased leg.
type Params struct {
	Delay    time.Duration
	Duration time.Duration
	Mode     Mode
}

// State is the lifecycle of a Transition.
type State int

const (
	Pending State = iota
	Running
	Completed
	Stopped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Marker is delivered when a named time offset is reached.
type Marker struct {
	Name    string
	Elapsed time.Duration
}

type marker struct {
	name    string
	at      time.Duration
	reached bool
}

// Transition eases a value from 0 to 1 over Params and applies it through a
// callback. Elapsed time excludes the delay, as do marker offsets.
type Transition struct {
	sched  loop.Scheduler
	params Params
	apply  func(eased float64)

	state   State
	started time.Time
	timer   loop.Timer
	markers []*marker

	markerSig    signals.Emitter[Marker]
	completedSig signals.Emitter[struct{}]
	stoppedSig   signals.Emitter[struct{}]
}

// New creates a transition that calls apply with eased progress on every
// frame. It does not start until Start is called.
func New(sched loop.Scheduler, p Params, apply func(eased float64)) *Transition {
	if apply == nil {
		apply = func(float64) {}
	}
	return &Transition{sched: sched, params: p, apply: apply}
}

// Tween creates and starts a transition moving each property in props from
// its current value on target to the given value.
func Tween(sched loop.Scheduler, target Target, props Props, p Params) *Transition {
	from := make(Props, len(props))
	for prop := range props {
		from[prop] = target.Property(prop)
	}
	tr := New(sched, p, func(e float64) {
		for prop, to := range props {
			if e == 1 {
				target.SetProperty(prop, to)
				continue
			}
			f := from[prop]
			target.SetProperty(prop, f+(to-f)*e)
		}
	})
	tr.Start()
	return tr
}

// Params returns the transition's timing.
func (t *Transition) Params() Params { return t.params }

// Duration excludes the delay.
func (t *Transition) Duration() time.Duration { return t.params.Duration }

func (t *Transition) State() State { return t.state }

// Playing reports whether the transition is started and not finished.
func (t *Transition) Playing() bool { return t.state == Running }

// Elapsed is the time spent past the delay, clamped to [0, Duration].
func (t *Transition) Elapsed() time.Duration {
	switch t.state {
	case Pending:
		return 0
	case Completed:
		return t.params.Duration
	}
	el := t.sched.Now().Sub(t.started) - t.params.Delay
	if el < 0 {
		return 0
	}
	if el > t.params.Duration {
		return t.params.Duration
	}
	return el
}

// Start begins playback. Calling Start on a running or finished transition
// does nothing.
func (t *Transition) Start() {
	if t.state != Pending {
		return
	}
	t.state = Running
	t.started = t.sched.Now()
	t.schedule()
}

// Stop halts playback without completing. Stopped handlers run; completed
// handlers do not.
func (t *Transition) Stop() {
	if t.state == Completed || t.state == Stopped {
		return
	}
	t.state = Stopped
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.stoppedSig.Emit(struct{}{})
	t.release()
}

// AddMarker registers a named offset. Offsets beyond the duration are
// clamped to it; markers already passed never fire.
func (t *Transition) AddMarker(name string, at time.Duration) {
	if at < 0 {
		at = 0
	}
	if at > t.params.Duration {
		at = t.params.Duration
	}
	m := &marker{name: name, at: at}
	if t.state == Running && at < t.Elapsed() {
		m.reached = true
	}
	t.markers = append(t.markers, m)
	if t.state == Running {
		t.schedule()
	}
}

// RemoveMarker drops every marker called name.
func (t *Transition) RemoveMarker(name string) {
	var kept []*marker
	for _, m := range t.markers {
		if m.name != name {
			kept = append(kept, m)
		}
	}
	t.markers = kept
}

// OnMarkerReached connects fn to marker delivery.
func (t *Transition) OnMarkerReached(fn func(Marker)) signals.Subscription {
	return t.markerSig.Connect(fn)
}

// OnCompleted connects fn to natural completion.
func (t *Transition) OnCompleted(fn func()) signals.Subscription {
	return t.completedSig.Connect(func(struct{}) { fn() })
}

// OnStopped connects fn to early termination.
func (t *Transition) OnStopped(fn func()) signals.Subscription {
	return t.stoppedSig.Connect(func(struct{}) { fn() })
}

func (t *Transition) schedule() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = t.sched.AfterFunc(t.nextTick(), t.tick)
}

func (t *Transition) nextTick() time.Duration {
	el := t.sched.Now().Sub(t.started) - t.params.Delay
	if el < 0 {
		return -el
	}
	next := t.sched.FrameInterval()
	if rest := t.params.Duration - el; rest < next {
		next = rest
	}
	for _, m := range t.markers {
		if !m.reached && m.at >= el && m.at-el < next {
			next = m.at - el
		}
	}
	if next < 0 {
		next = 0
	}
	return next
}

func (t *Transition) tick() {
	t.timer = nil
	if t.state != Running {
		return
	}
	el := t.sched.Now().Sub(t.started) - t.params.Delay
	if el < 0 {
		t.schedule()
		return
	}
	if el > t.params.Duration {
		el = t.params.Duration
	}
	frac := 1.0
	if t.params.Duration > 0 {
		frac = float64(el) / float64(t.params.Duration)
	}
	t.apply(t.params.Mode.Ease(frac))

	for _, m := range t.markers {
		if m.reached || m.at > el {
			continue
		}
		m.reached = true
		t.markerSig.Emit(Marker{Name: m.name, Elapsed: m.at})
		if t.state != Running {
			return
		}
	}

	if el >= t.params.Duration {
		t.state = Completed
		t.completedSig.Emit(struct{}{})
		t.release()
		return
	}
	t.schedule()
}

func (t *Transition) release() {
	t.markerSig.Clear()
	t.completedSig.Clear()
	t.stoppedSig.Clear()
}
