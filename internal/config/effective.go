package config

import (
	"fmt"
)

// ValidationError carries the YAML path of an invalid key and, once loaded
// from disk, the file position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw onto DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	set(&cfg.Strategy, raw.Strategy)
	set(&cfg.LogLevel, raw.LogLevel)
	set(&cfg.Display, raw.Display)
	set(&cfg.XAuthority, raw.XAuthority)

	set(&cfg.Hint.ScaleTo, raw.Hint.ScaleTo)
	set(&cfg.Hint.Margin, raw.Hint.Margin)
	set(&cfg.Hint.BorderWidth, raw.Hint.BorderWidth)
	set(&cfg.Hint.Color, raw.Hint.Color)
	set(&cfg.Hint.Darken, raw.Hint.Darken)
	applyPhase(&cfg.Hint.Up, raw.Hint.Up)
	applyPhase(&cfg.Hint.Down, raw.Hint.Down)
	set(&cfg.Hint.ArrivalProportion, raw.Hint.ArrivalProportion)

	set(&cfg.Switch.NominalDuration, raw.Switch.NominalDuration)
	set(&cfg.Switch.UpDelay, raw.Switch.UpDelay)
	set(&cfg.Switch.GestureMarkerRatio, raw.Switch.GestureMarkerRatio)
	set(&cfg.Switch.StaticDuration, raw.Switch.StaticDuration)
	set(&cfg.Switch.StaticMode, raw.Switch.StaticMode)
	set(&cfg.Switch.PendingTTL, raw.Switch.PendingTTL)

	set(&cfg.AppSwitcher.Hotkey, raw.AppSwitcher.Hotkey)
	set(&cfg.AppSwitcher.ScaleTo, raw.AppSwitcher.ScaleTo)
	applyPhase(&cfg.AppSwitcher.Up, raw.AppSwitcher.Up)
	applyPhase(&cfg.AppSwitcher.Down, raw.AppSwitcher.Down)

	set(&cfg.Slots.Modifier, raw.Slots.Modifier)
	if raw.Slots.Favorites != nil {
		cfg.Slots.Favorites = append([]Favorite(nil), (*raw.Slots.Favorites)...)
	}

	set(&cfg.Idle.Enabled, raw.Idle.Enabled)
	set(&cfg.Idle.Seconds, raw.Idle.Seconds)

	if raw.OverviewClasses != nil {
		cfg.OverviewClasses = append([]string(nil), (*raw.OverviewClasses)...)
	}
	return cfg
}

func applyPhase(dst *Phase, raw RawPhase) {
	set(&dst.Delay, raw.Delay)
	set(&dst.Duration, raw.Duration)
	set(&dst.Mode, raw.Mode)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
