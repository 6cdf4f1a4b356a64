package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Explain returns the effective value at a YAML path and where it came
// from. Paths use dots, with list indexes as segments:
//
//	strategy
//	hint.up.duration
//	switch.gesture_marker_ratio
//	slots.favorites.0.class
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every scalar path Explain accepts for cfg.
func Paths(cfg *Config) []string {
	var out []string
	for p := range scalarPaths(cfg) {
		out = append(out, p)
	}
	for i := range cfg.Slots.Favorites {
		out = append(out, fmt.Sprintf("slots.favorites.%d.class", i), fmt.Sprintf("slots.favorites.%d.command", i))
	}
	sort.Strings(out)
	return out
}

func scalarPaths(c *Config) map[string]any {
	phase := func(prefix string, p Phase, m map[string]any) {
		m[prefix+".delay"] = p.Delay
		m[prefix+".duration"] = p.Duration
		m[prefix+".mode"] = p.Mode.String()
	}
	m := map[string]any{
		"strategy":                    c.Strategy,
		"log_level":                   c.LogLevel,
		"display":                     c.Display,
		"xauthority":                  c.XAuthority,
		"hint.scale_to":               c.Hint.ScaleTo,
		"hint.margin":                 c.Hint.Margin,
		"hint.border_width":           c.Hint.BorderWidth,
		"hint.color":                  c.Hint.Color,
		"hint.darken":                 c.Hint.Darken,
		"hint.arrival_proportion":     c.Hint.ArrivalProportion,
		"switch.nominal_duration":     c.Switch.NominalDuration,
		"switch.up_delay":             c.Switch.UpDelay,
		"switch.gesture_marker_ratio": c.Switch.GestureMarkerRatio,
		"switch.static_duration":      c.Switch.StaticDuration,
		"switch.static_mode":          c.Switch.StaticMode.String(),
		"switch.pending_ttl":          c.Switch.PendingTTL,
		"app_switcher.hotkey":         c.AppSwitcher.Hotkey,
		"app_switcher.scale_to":       c.AppSwitcher.ScaleTo,
		"slots.modifier":              c.Slots.Modifier,
		"slots.favorites":             c.Slots.Favorites,
		"idle.enabled":                c.Idle.Enabled,
		"idle.seconds":                c.Idle.Seconds,
		"overview_classes":            c.OverviewClasses,
	}
	phase("hint.up", c.Hint.Up, m)
	phase("hint.down", c.Hint.Down, m)
	phase("app_switcher.up", c.AppSwitcher.Up, m)
	phase("app_switcher.down", c.AppSwitcher.Down, m)
	return m
}

func lookupValue(cfg *Config, path string) (any, error) {
	if v, ok := scalarPaths(cfg)[path]; ok {
		return v, nil
	}
	parts := strings.Split(path, ".")
	if len(parts) == 4 && parts[0] == "slots" && parts[1] == "favorites" {
		i, err := strconv.Atoi(parts[2])
		if err != nil || i < 0 || i >= len(cfg.Slots.Favorites) {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		switch parts[3] {
		case "class":
			return cfg.Slots.Favorites[i].Class, nil
		case "command":
			return cfg.Slots.Favorites[i].Command, nil
		}
	}
	return nil, fmt.Errorf("unknown path %q", path)
}
