// Package triggers turns user activity into focus hints: returning from
// idle, confirming the app switcher, and switch-to-slot commands.
package triggers

import (
	"github.com/1broseidon/focushint/internal/focus"
	"github.com/1broseidon/focushint/internal/platform"
)

// Coordinator is the part of focus.Coordinator triggers drive.
type Coordinator interface {
	Indicate(w platform.Window, opts focus.Options) bool
	SetPendingFocus(w platform.Window)
}

// crossesWorkspace reports whether activating w switches away from the
// active workspace. Such targets are handed to the switch synchronizer
// through the pending-focus slot instead of being hinted directly.
func crossesWorkspace(d platform.Display, w platform.Window) bool {
	ws := w.Workspace()
	return ws != platform.AllWorkspaces && ws != d.ActiveWorkspace()
}

var _ Coordinator = (*focus.Coordinator)(nil)
