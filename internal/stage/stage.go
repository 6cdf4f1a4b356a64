// Package stage defines the rendering primitives hint strategies draw with.
package stage

import (
	"math"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
)

// Kind identifies what an actor renders.
type Kind int

const (
	KindOutline Kind = iota
	KindClone
	KindBackdrop
)

func (k Kind) String() string {
	switch k {
	case KindOutline:
		return "outline"
	case KindClone:
		return "clone"
	case KindBackdrop:
		return "backdrop"
	default:
		return "unknown"
	}
}

// Style configures outline and backdrop appearance.
type Style struct {
	Color       uint32
	BorderWidth int
}

// Actor is a transient visual object.
type Actor interface {
	anim.Target
	Kind() Kind
	SetBounds(x, y, w, h float64)
	// SetClip restricts painting to r. A zero Rect removes the clip.
	SetClip(r platform.Rect)
	Show()
	Hide()
	Visible() bool
	// Ease tweens props, stopping any running transition that touches one
	// of the same properties.
	Ease(props anim.Props, p anim.Params) *anim.Transition
	RemoveAllTransitions()
	Destroy()
	Destroyed() bool
}

// Stage creates actors.
type Stage interface {
	NewOutline(style Style) Actor
	NewClone(source platform.Window) Actor
	NewBackdrop(bounds platform.Rect, style Style) Actor
}

// Node is the shared actor state machine: properties, clip, visibility and
// per-property transition ownership. Renderers embed it and receive change
// notifications through the hook passed to NewNode.
type Node struct {
	kind      Kind
	sched     loop.Scheduler
	props     [anim.PropertyCount]float64
	clip      platform.Rect
	visible   bool
	destroyed bool
	owners    [anim.PropertyCount]*anim.Transition
	changed   func()
}

// NewNode returns a visible node with unit scale and opacity.
func NewNode(kind Kind, sched loop.Scheduler, changed func()) *Node {
	n := &Node{kind: kind, sched: sched, visible: true, changed: changed}
	n.props[anim.ScaleX] = 1
	n.props[anim.ScaleY] = 1
	n.props[anim.Opacity] = 1
	return n
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Property(p anim.Property) float64 { return n.props[p] }

// SetProperty implements anim.Target.
func (n *Node) SetProperty(p anim.Property, v float64) {
	if n.destroyed || n.props[p] == v {
		return
	}
	n.props[p] = v
	n.notify()
}

// SetBounds sets position and size in one notification.
func (n *Node) SetBounds(x, y, w, h float64) {
	if n.destroyed {
		return
	}
	n.props[anim.X], n.props[anim.Y] = x, y
	n.props[anim.Width], n.props[anim.Height] = w, h
	n.notify()
}

func (n *Node) SetClip(r platform.Rect) {
	n.clip = r
	n.notify()
}

func (n *Node) Clip() platform.Rect { return n.clip }

func (n *Node) Show() {
	if !n.visible {
		n.visible = true
		n.notify()
	}
}

func (n *Node) Hide() {
	if n.visible {
		n.visible = false
		n.notify()
	}
}

func (n *Node) Visible() bool { return n.visible && !n.destroyed }

// Ease implements Actor.
func (n *Node) Ease(props anim.Props, p anim.Params) *anim.Transition {
	for prop := range props {
		if cur := n.owners[prop]; cur != nil {
			cur.Stop()
		}
	}
	tr := anim.Tween(n.sched, n, props, p)
	for prop := range props {
		n.owners[prop] = tr
	}
	release := func() {
		for prop := range props {
			if n.owners[prop] == tr {
				n.owners[prop] = nil
			}
		}
	}
	tr.OnCompleted(release)
	tr.OnStopped(release)
	return tr
}

// RemoveAllTransitions stops every running transition on the node.
func (n *Node) RemoveAllTransitions() {
	for _, tr := range n.owners {
		if tr != nil {
			tr.Stop()
		}
	}
}

// Transitions reports how many properties are currently being eased.
func (n *Node) Transitions() int {
	c := 0
	for _, tr := range n.owners {
		if tr != nil {
			c++
		}
	}
	return c
}

// Destroy stops transitions and marks the node dead. Idempotent.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.RemoveAllTransitions()
	n.destroyed = true
	n.notify()
}

func (n *Node) Destroyed() bool { return n.destroyed }

// Position returns the unscaled top-left corner.
func (n *Node) Position() platform.Point {
	return platform.Point{X: n.props[anim.X], Y: n.props[anim.Y]}
}

// Painted returns the on-screen rectangle: bounds scaled about their centre,
// grown by Spread, then clipped.
func (n *Node) Painted() platform.Rect {
	w := n.props[anim.Width] * n.props[anim.ScaleX]
	h := n.props[anim.Height] * n.props[anim.ScaleY]
	cx := n.props[anim.X] + n.props[anim.Width]/2
	cy := n.props[anim.Y] + n.props[anim.Height]/2
	s := n.props[anim.Spread]
	r := platform.Rect{
		X:      int(math.Round(cx - w/2 - s)),
		Y:      int(math.Round(cy - h/2 - s)),
		Width:  int(math.Round(w + 2*s)),
		Height: int(math.Round(h + 2*s)),
	}
	if !n.clip.Empty() {
		r = r.Intersect(n.clip)
	}
	return r
}

func (n *Node) notify() {
	if n.changed != nil {
		n.changed()
	}
}

var _ Actor = (*Node)(nil)
