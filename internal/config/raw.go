package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// Raw* types mirror the effective config with pointer fields so that an
// absent key can be told apart from a zero value when files are merged.

type RawPhase struct {
	Delay    *int    `yaml:"delay"`
	Duration *int    `yaml:"duration"`
	Mode     *Easing `yaml:"mode"`
}

type RawHint struct {
	ScaleTo           *int     `yaml:"scale_to"`
	Margin            *int     `yaml:"margin"`
	BorderWidth       *int     `yaml:"border_width"`
	Color             *string  `yaml:"color"`
	Darken            *bool    `yaml:"darken"`
	Up                RawPhase `yaml:"up"`
	Down              RawPhase `yaml:"down"`
	ArrivalProportion *float64 `yaml:"arrival_proportion"`
}

type RawSwitch struct {
	NominalDuration    *int     `yaml:"nominal_duration"`
	UpDelay            *int     `yaml:"up_delay"`
	GestureMarkerRatio *float64 `yaml:"gesture_marker_ratio"`
	StaticDuration     *int     `yaml:"static_duration"`
	StaticMode         *Easing  `yaml:"static_mode"`
	PendingTTL         *int     `yaml:"pending_ttl"`
}

type RawAppSwitcher struct {
	Hotkey  *string  `yaml:"hotkey"`
	ScaleTo *int     `yaml:"scale_to"`
	Up      RawPhase `yaml:"up"`
	Down    RawPhase `yaml:"down"`
}

type RawSlots struct {
	Modifier *string `yaml:"modifier"`
	// Favorites replaces the whole list when present.
	Favorites *[]Favorite `yaml:"favorites"`
}

type RawIdle struct {
	Enabled *bool `yaml:"enabled"`
	Seconds *int  `yaml:"seconds"`
}

type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Strategy        *string        `yaml:"strategy"`
	LogLevel        *string        `yaml:"log_level"`
	Display         *string        `yaml:"display"`
	XAuthority      *string        `yaml:"xauthority"`
	Hint            RawHint        `yaml:"hint"`
	Switch          RawSwitch      `yaml:"switch"`
	AppSwitcher     RawAppSwitcher `yaml:"app_switcher"`
	Slots           RawSlots       `yaml:"slots"`
	Idle            RawIdle        `yaml:"idle"`
	OverviewClasses *[]string      `yaml:"overview_classes"`
}

// merge returns c with every key set in overlay replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil

	pick(&out.Strategy, overlay.Strategy)
	pick(&out.LogLevel, overlay.LogLevel)
	pick(&out.Display, overlay.Display)
	pick(&out.XAuthority, overlay.XAuthority)

	pick(&out.Hint.ScaleTo, overlay.Hint.ScaleTo)
	pick(&out.Hint.Margin, overlay.Hint.Margin)
	pick(&out.Hint.BorderWidth, overlay.Hint.BorderWidth)
	pick(&out.Hint.Color, overlay.Hint.Color)
	pick(&out.Hint.Darken, overlay.Hint.Darken)
	out.Hint.Up = mergeRawPhase(out.Hint.Up, overlay.Hint.Up)
	out.Hint.Down = mergeRawPhase(out.Hint.Down, overlay.Hint.Down)
	pick(&out.Hint.ArrivalProportion, overlay.Hint.ArrivalProportion)

	pick(&out.Switch.NominalDuration, overlay.Switch.NominalDuration)
	pick(&out.Switch.UpDelay, overlay.Switch.UpDelay)
	pick(&out.Switch.GestureMarkerRatio, overlay.Switch.GestureMarkerRatio)
	pick(&out.Switch.StaticDuration, overlay.Switch.StaticDuration)
	pick(&out.Switch.StaticMode, overlay.Switch.StaticMode)
	pick(&out.Switch.PendingTTL, overlay.Switch.PendingTTL)

	pick(&out.AppSwitcher.Hotkey, overlay.AppSwitcher.Hotkey)
	pick(&out.AppSwitcher.ScaleTo, overlay.AppSwitcher.ScaleTo)
	out.AppSwitcher.Up = mergeRawPhase(out.AppSwitcher.Up, overlay.AppSwitcher.Up)
	out.AppSwitcher.Down = mergeRawPhase(out.AppSwitcher.Down, overlay.AppSwitcher.Down)

	pick(&out.Slots.Modifier, overlay.Slots.Modifier)
	pick(&out.Slots.Favorites, overlay.Slots.Favorites)

	pick(&out.Idle.Enabled, overlay.Idle.Enabled)
	pick(&out.Idle.Seconds, overlay.Idle.Seconds)

	pick(&out.OverviewClasses, overlay.OverviewClasses)
	return out
}

func mergeRawPhase(base, overlay RawPhase) RawPhase {
	out := base
	pick(&out.Delay, overlay.Delay)
	pick(&out.Duration, overlay.Duration)
	pick(&out.Mode, overlay.Mode)
	return out
}

// pick replaces *dst with v when v is set.
func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}
