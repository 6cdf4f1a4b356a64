package switchanim

import (
	"math"

	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/wsswitch"
)

// monitorGroup stacks the workspace groups of one monitor vertically, one
// monitor height apart.
type monitorGroup struct {
	anim    *Animator
	monitor platform.Monitor
	lo, hi  int
	groups  []*workspaceGroup
}

func (m *monitorGroup) Index() int { return m.monitor.Index }

func (m *monitorGroup) Geometry() platform.Rect { return m.monitor.Bounds }

func (m *monitorGroup) WorkspaceGroups() []wsswitch.WorkspaceGroup {
	out := make([]wsswitch.WorkspaceGroup, len(m.groups))
	for i, g := range m.groups {
		out[i] = g
	}
	return out
}

func (m *monitorGroup) ProgressTransition() wsswitch.Transition { return m.anim.transition() }

// FindClosestWorkspace rounds progress to the nearest workspace this group
// animates.
func (m *monitorGroup) FindClosestWorkspace(progress float64) int {
	ws := int(math.Round(progress))
	if ws < m.lo {
		return m.lo
	}
	if ws > m.hi {
		return m.hi
	}
	return ws
}

type workspaceGroup struct {
	mg      *monitorGroup
	ws      int
	records []wsswitch.WindowRecord
}

func newWorkspaceGroup(mg *monitorGroup, ws int, windows []platform.Window) *workspaceGroup {
	g := &workspaceGroup{mg: mg, ws: ws}
	origin := mg.monitor.Bounds.Origin()
	for _, w := range windows {
		actor := w.Actor()
		if actor == nil {
			continue
		}
		frame := w.FrameRect()
		g.records = append(g.records, wsswitch.WindowRecord{
			Actor: actor,
			Clone: &Clone{
				group: g,
				local: platform.Point{X: float64(frame.X) - origin.X, Y: float64(frame.Y) - origin.Y},
			},
		})
	}
	return g
}

func (g *workspaceGroup) Workspace() int { return g.ws }

func (g *workspaceGroup) Records() []wsswitch.WindowRecord { return g.records }

// LocalPosition is the group's offset inside its monitor at the current
// progress.
func (g *workspaceGroup) LocalPosition() platform.Point {
	h := float64(g.mg.monitor.Bounds.Height)
	return platform.Point{Y: (float64(g.ws) - g.mg.anim.progress) * h}
}

func (g *workspaceGroup) Parent() wsswitch.Positioned { return nil }

// Clone stands in for a window while its workspace slides.
type Clone struct {
	group  *workspaceGroup
	local  platform.Point
	hidden bool
}

func (c *Clone) LocalPosition() platform.Point { return c.local }

func (c *Clone) Parent() wsswitch.Positioned { return c.group }

// TransformedPosition is the clone's position on the root window.
func (c *Clone) TransformedPosition() (platform.Point, bool) {
	origin := c.group.mg.monitor.Bounds.Origin()
	g := c.group.LocalPosition()
	return platform.Point{X: origin.X + g.X + c.local.X, Y: origin.Y + g.Y + c.local.Y}, true
}

// Hide marks the clone as replaced by a hint.
func (c *Clone) Hide() { c.hidden = true }

func (c *Clone) Hidden() bool { return c.hidden }
