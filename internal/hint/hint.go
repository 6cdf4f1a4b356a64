// Package hint implements the focus-hint strategies. A strategy owns the
// transient actors of one hint and drives them through an Up then Down
// phase.
package hint

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/stage"
)

// Kind selects a strategy.
type Kind string

const (
	KindOutline       Kind = "outline"
	KindUpscale       Kind = "upscale"
	KindStaticOutline Kind = "static-outline"
	KindNone          Kind = "none"
)

// Kinds lists every strategy in display order.
func Kinds() []Kind {
	return []Kind{KindOutline, KindUpscale, KindStaticOutline, KindNone}
}

// ParseKind validates a strategy name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown hint strategy %q", s)
}

// PhaseSpec is one eased leg of a hint.
type PhaseSpec struct {
	Delay    time.Duration
	Duration time.Duration
	Mode     anim.Mode
}

func (p PhaseSpec) params() anim.Params {
	return anim.Params{Delay: p.Delay, Duration: p.Duration, Mode: p.Mode}
}

// Total is delay plus duration.
func (p PhaseSpec) Total() time.Duration { return p.Delay + p.Duration }

// Settings is the snapshot of tunables a strategy reads at Indicate time.
type Settings struct {
	Up   PhaseSpec
	Down PhaseSpec
	// ScaleTo is the upscale factor, 1.05 for five percent.
	ScaleTo     float64
	Margin      int
	BorderWidth int
	Color       uint32
	Darken      bool
	// ArrivalProportion positions the outward phase inside a parent switch
	// transition, as a fraction of its total duration.
	ArrivalProportion float64
	SlideMode         anim.Mode
	StaticDuration    time.Duration
	StaticMode        anim.Mode
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	return Settings{
		Up:                PhaseSpec{Duration: 200 * time.Millisecond, Mode: anim.EaseOutBack},
		Down:              PhaseSpec{Delay: 100 * time.Millisecond, Duration: 200 * time.Millisecond, Mode: anim.EaseIn},
		ScaleTo:           1.05,
		Margin:            10,
		BorderWidth:       4,
		Color:             0x3584e4,
		ArrivalProportion: 0.7,
		SlideMode:         anim.EaseOutCubic,
		StaticDuration:    250 * time.Millisecond,
		StaticMode:        anim.EaseOutCubic,
	}
}

// Override adjusts a settings snapshot for a single request.
type Override func(*Settings)

// WithUpDelay replaces the Up phase delay.
func WithUpDelay(d time.Duration) Override {
	return func(s *Settings) { s.Up.Delay = d }
}

// WithPhases replaces both phase specs.
func WithPhases(up, down PhaseSpec) Override {
	return func(s *Settings) {
		s.Up = up
		s.Down = down
	}
}

// WithScale replaces the upscale factor.
func WithScale(scale float64) Override {
	return func(s *Settings) { s.ScaleTo = scale }
}

// Arrival describes where a window visually was during an in-progress
// workspace switch and how long that switch has left.
type Arrival struct {
	Position  platform.Point
	Remaining time.Duration
	Total     time.Duration
}

// Request is one Indicate call.
type Request struct {
	Window platform.Window
	// Start overrides the initial actor position.
	Start     *platform.Point
	Arrival   *Arrival
	Overrides []Override
}

// Phase is the animation state of a strategy.
type Phase int

const (
	Idle Phase = iota
	Up
	Down
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Strategy produces and owns the visuals of one hint at a time.
type Strategy interface {
	Kind() Kind
	// Indicate starts a hint for req.Window. The caller has already checked
	// the window is presentable and reset any previous hint.
	Indicate(req Request) bool
	// ResetAnimation stops running phases, destroys transient actors and
	// restores anything hidden on the source window. Idempotent.
	ResetAnimation()
	Destroy()
	Phase() Phase
	// Actors is the size of the active animation set.
	Actors() int
	// HidesSwitchClone reports whether the workspace-switch clone of the
	// window should be hidden once this strategy takes over.
	HidesSwitchClone() bool
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	Stage     stage.Stage
	Scheduler loop.Scheduler
	Display   platform.Display
	Settings  func() Settings
	// Finished is called when a hint runs to completion on its own.
	Finished func()
	Logger   *slog.Logger
}

// New constructs the strategy for kind.
func New(kind Kind, deps Deps) (Strategy, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Settings == nil {
		deps.Settings = DefaultSettings
	}
	if deps.Finished == nil {
		deps.Finished = func() {}
	}
	switch kind {
	case KindOutline:
		return newOutline(deps), nil
	case KindUpscale:
		return newUpscale(deps), nil
	case KindStaticOutline:
		return newStatic(deps), nil
	case KindNone, "":
		return none{}, nil
	default:
		return nil, fmt.Errorf("unknown hint strategy %q", kind)
	}
}

// resolve returns the settings for req: the snapshot, arrival-derived
// timing from derive, then per-request overrides.
func resolve(deps Deps, req Request, derive func(*Settings)) Settings {
	s := deps.Settings()
	if derive != nil {
		derive(&s)
	}
	for _, o := range req.Overrides {
		if o != nil {
			o(&s)
		}
	}
	return s
}

func startPosition(req Request, frame platform.Rect) platform.Point {
	switch {
	case req.Start != nil:
		return *req.Start
	case req.Arrival != nil:
		return req.Arrival.Position
	default:
		return frame.Origin()
	}
}

func monitorClip(d platform.Display, w platform.Window) platform.Rect {
	if d == nil {
		return platform.Rect{}
	}
	if m, ok := d.Monitor(w.Monitor()); ok {
		return m.Bounds
	}
	return platform.Rect{}
}
