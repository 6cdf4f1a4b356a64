package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/focushint/internal/platform"
)

// Monitors retrieves all active outputs using XRandR. When RandR reports
// nothing the root window is the single monitor.
func (c *Connection) Monitors() ([]platform.Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return c.rootMonitor()
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []platform.Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTC.
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, platform.Monitor{
			Index: len(monitors),
			Name:  name,
			Bounds: platform.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	if len(monitors) == 0 {
		return c.rootMonitor()
	}
	return monitors, nil
}

func (c *Connection) rootMonitor() ([]platform.Monitor, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return []platform.Monitor{{
		Name:   "root",
		Bounds: platform.Rect{Width: int(geom.Width), Height: int(geom.Height)},
	}}, nil
}

// monitorAt returns the index of the monitor containing (x, y), falling back
// to the nearest monitor by centre distance and to 0 when there are none.
func monitorAt(monitors []platform.Monitor, x, y int) int {
	best, bestDist := 0, -1
	for _, m := range monitors {
		if m.Bounds.Contains(x, y) {
			return m.Index
		}
		cx := m.Bounds.X + m.Bounds.Width/2
		cy := m.Bounds.Y + m.Bounds.Height/2
		d := (cx-x)*(cx-x) + (cy-y)*(cy-y)
		if bestDist < 0 || d < bestDist {
			best, bestDist = m.Index, d
		}
	}
	return best
}
