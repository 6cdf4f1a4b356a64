// Package wsswitch synchronizes focus hints with workspace-switch
// animations, both discrete and gesture driven.
package wsswitch

import (
	"time"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/signals"
)

// Direction of a workspace switch.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "unknown"
	}
}

// Animator is the workspace-switch animation entry point.
type Animator interface {
	AnimateSwitch(from, to int, dir Direction, onComplete func())
	// SwitchData is nil when no switch is being animated.
	SwitchData() *SwitchData
	// MovingWindow is the window carried across by the current switch.
	MovingWindow() platform.Window
}

// Host owns the active Animator. Decorators install themselves through it.
type Host interface {
	SwitchAnimator() Animator
	SetSwitchAnimator(a Animator)
}

// SwitchData is the per-switch registry of monitor groups.
type SwitchData struct {
	Monitors []MonitorGroup
	// Base is the group that follows the gesture; usually the primary.
	Base MonitorGroup
}

// MonitorGroup holds the workspace groups animated on one monitor.
type MonitorGroup interface {
	Index() int
	Geometry() platform.Rect
	WorkspaceGroups() []WorkspaceGroup
	// ProgressTransition is nil when the group is not transitioning.
	ProgressTransition() Transition
	FindClosestWorkspace(progress float64) int
}

// WorkspaceGroup holds the window clones of one workspace.
type WorkspaceGroup interface {
	Workspace() int
	Records() []WindowRecord
}

// WindowRecord pairs a window actor with its clone in the switch animation.
type WindowRecord struct {
	Actor platform.WindowActor
	Clone Clone
}

// Positioned is a node in the switch animation's actor tree.
type Positioned interface {
	LocalPosition() platform.Point
	// Parent is nil at the root.
	Parent() Positioned
}

// Clone is a window clone inside the switch animation.
type Clone interface {
	Positioned
	// TransformedPosition is the absolute position, if the animation can
	// compute it.
	TransformedPosition() (platform.Point, bool)
	Hide()
}

// Transition is the variable-duration progress transition of a switch.
type Transition interface {
	Duration() time.Duration
	Elapsed() time.Duration
	AddMarker(name string, at time.Duration)
	RemoveMarker(name string)
	OnMarkerReached(fn func(anim.Marker)) signals.Subscription
}

// GestureEnd is delivered when a swipe is released.
type GestureEnd struct {
	Duration    time.Duration
	EndProgress float64
}

// GestureTracker reports swipe begin and end.
type GestureTracker interface {
	OnBegin(fn func()) signals.Subscription
	OnEnd(fn func(GestureEnd)) signals.Subscription
}

var _ Transition = (*anim.Transition)(nil)
