// Package switchanim models workspace-switch animations for window managers
// that switch desktops instantly. It keeps a per-monitor registry of window
// clones whose positions follow a progress transition, so hints can start
// where a window appears to arrive from and finish in step with the switch.
package switchanim

import (
	"log/slog"
	"math"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
	"github.com/1broseidon/focushint/internal/wsswitch"
)

// DefaultDuration is the length of a discrete switch.
const DefaultDuration = 250 * time.Millisecond

// minGestureDuration keeps short gesture tails visible.
const minGestureDuration = 80 * time.Millisecond

// Config wires an Animator.
type Config struct {
	Scheduler loop.Scheduler
	Display   platform.Display
	// Duration is read at the start of every switch.
	Duration func() time.Duration
	Mode     anim.Mode
	// Workspaces reports the number of workspaces. When nil the count is
	// derived from the managed windows.
	Workspaces func() int
	// Activate switches the window manager to ws when a gesture lands.
	Activate func(ws int)
	Logger   *slog.Logger
}

// Animator is a wsswitch.Animator and wsswitch.GestureTracker.
type Animator struct {
	cfg    Config
	logger *slog.Logger

	progress float64
	from     int
	tr       *anim.Transition
	data     *wsswitch.SwitchData
	monitors []*monitorGroup
	moving   platform.Window
	done     func()

	gesturing bool
	claimed   map[int]int

	begin signals.Emitter[struct{}]
	end   signals.Emitter[wsswitch.GestureEnd]
}

// New returns an idle animator.
func New(cfg Config) *Animator {
	if cfg.Duration == nil {
		cfg.Duration = func() time.Duration { return DefaultDuration }
	}
	if cfg.Mode == 0 {
		cfg.Mode = anim.EaseOutCubic
	}
	if cfg.Activate == nil {
		cfg.Activate = func(int) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Animator{cfg: cfg, logger: cfg.Logger, claimed: make(map[int]int)}
}

// AnimateSwitch animates from one workspace to another. onComplete runs once
// the transition finishes or is superseded.
func (a *Animator) AnimateSwitch(from, to int, dir wsswitch.Direction, onComplete func()) {
	a.AnimateMove(from, to, dir, nil, onComplete)
}

// AnimateMove is AnimateSwitch carrying moving across with the view.
func (a *Animator) AnimateMove(from, to int, dir wsswitch.Direction, moving platform.Window, onComplete func()) {
	a.cancel()
	a.moving = moving
	a.done = onComplete
	a.build(from, from, to)
	a.logger.Debug("switch animation", "from", from, "to", to, "direction", dir.String())
	a.play(float64(to), a.cfg.Duration(), func() {})
}

// SwitchData implements wsswitch.Animator.
func (a *Animator) SwitchData() *wsswitch.SwitchData { return a.data }

// MovingWindow implements wsswitch.Animator.
func (a *Animator) MovingWindow() platform.Window { return a.moving }

// Progress is the current position in workspace units.
func (a *Animator) Progress() float64 { return a.progress }

// Active reports whether a switch or gesture is in flight.
func (a *Animator) Active() bool { return a.data != nil }

// OnBegin implements wsswitch.GestureTracker.
func (a *Animator) OnBegin(fn func()) signals.Subscription {
	return a.begin.Connect(func(struct{}) { fn() })
}

// OnEnd implements wsswitch.GestureTracker.
func (a *Animator) OnEnd(fn func(wsswitch.GestureEnd)) signals.Subscription {
	return a.end.Connect(fn)
}

// BeginGesture starts tracking a swipe from the active workspace. A running
// transition is taken over from its current progress.
func (a *Animator) BeginGesture() {
	start := a.progress
	if a.data == nil {
		start = float64(a.cfg.Display.ActiveWorkspace())
	}
	a.cancel()
	a.gesturing = true
	n := a.workspaceCount()
	a.build(int(math.Round(start)), 0, n-1)
	a.setProgress(start)
	a.begin.Emit(struct{}{})
}

// UpdateGesture moves the swipe by delta workspaces.
func (a *Animator) UpdateGesture(delta float64) {
	if !a.gesturing {
		return
	}
	a.setProgress(clamp(a.progress+delta, 0, float64(a.workspaceCount()-1)))
}

// EndGesture releases the swipe. With cancel the view returns to the
// workspace the gesture started on; otherwise it settles on the closest one.
func (a *Animator) EndGesture(cancel bool) {
	if !a.gesturing {
		return
	}
	a.gesturing = false
	target := a.from
	if !cancel && len(a.monitors) > 0 {
		target = a.monitors[0].FindClosestWorkspace(a.progress)
	}
	endProgress := float64(target)
	distance := math.Abs(endProgress - a.progress)

	if distance < 1e-3 {
		// Nothing left to animate: the switch is already complete.
		from := a.from
		a.setProgress(endProgress)
		a.finish()
		a.land(from, target)
		a.end.Emit(wsswitch.GestureEnd{EndProgress: endProgress})
		return
	}

	d := time.Duration(float64(a.cfg.Duration()) * math.Min(distance, 1))
	if d < minGestureDuration {
		d = minGestureDuration
	}
	from := a.from
	a.play(endProgress, d, func() { a.land(from, target) })
	a.end.Emit(wsswitch.GestureEnd{Duration: d, EndProgress: endProgress})
}

// ClaimSwitch reports whether a desktop change to ws was caused by a gesture
// landing, consuming the claim.
func (a *Animator) ClaimSwitch(ws int) bool {
	if a.claimed[ws] == 0 {
		return false
	}
	a.claimed[ws]--
	if a.claimed[ws] == 0 {
		delete(a.claimed, ws)
	}
	return true
}

func (a *Animator) land(from, to int) {
	if from == to {
		return
	}
	a.claimed[to]++
	a.cfg.Activate(to)
}

// play eases progress to target over d and then finishes.
func (a *Animator) play(target float64, d time.Duration, then func()) {
	start := a.progress
	tr := anim.New(a.cfg.Scheduler, anim.Params{Duration: d, Mode: a.cfg.Mode}, func(e float64) {
		a.setProgress(start + (target-start)*e)
	})
	a.tr = tr
	tr.OnCompleted(func() {
		if a.tr != tr {
			return
		}
		a.finish()
		then()
	})
	tr.Start()
}

func (a *Animator) cancel() {
	a.gesturing = false
	if a.tr != nil {
		tr := a.tr
		a.tr = nil
		tr.Stop()
	}
	if a.data != nil {
		a.finish()
	}
}

func (a *Animator) finish() {
	a.tr = nil
	a.data = nil
	a.monitors = nil
	a.moving = nil
	if done := a.done; done != nil {
		a.done = nil
		done()
	}
}

// build registers clones for workspaces lo..hi on every monitor, starting
// the view at from.
func (a *Animator) build(from, lo, hi int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	a.from = from
	a.progress = float64(from)
	a.monitors = a.monitors[:0]
	data := &wsswitch.SwitchData{}
	for _, m := range a.cfg.Display.Monitors() {
		mg := &monitorGroup{anim: a, monitor: m, lo: lo, hi: hi}
		for ws := lo; ws <= hi; ws++ {
			mg.groups = append(mg.groups, newWorkspaceGroup(mg, ws, a.windowsOn(ws, m.Index)))
		}
		a.monitors = append(a.monitors, mg)
		data.Monitors = append(data.Monitors, mg)
	}
	if len(a.monitors) > 0 {
		data.Base = a.monitors[0]
	}
	a.data = data
}

func (a *Animator) windowsOn(ws, monitor int) []platform.Window {
	var out []platform.Window
	for _, w := range a.cfg.Display.Windows(ws) {
		if w.Workspace() == platform.AllWorkspaces || w.Monitor() != monitor {
			continue
		}
		if a.moving != nil && platform.SameWindow(w, a.moving) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (a *Animator) setProgress(p float64) { a.progress = p }

func (a *Animator) transition() wsswitch.Transition {
	if a.tr == nil {
		return nil
	}
	return a.tr
}

func (a *Animator) workspaceCount() int {
	if a.cfg.Workspaces != nil {
		if n := a.cfg.Workspaces(); n > 0 {
			return n
		}
	}
	n := a.cfg.Display.ActiveWorkspace() + 1
	for _, w := range a.cfg.Display.AllWindows() {
		if ws := w.Workspace(); ws+1 > n {
			n = ws + 1
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(hi, v))
}

var (
	_ wsswitch.Animator       = (*Animator)(nil)
	_ wsswitch.GestureTracker = (*Animator)(nil)
)
