package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/focushint/internal/anim"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/triggers"
	"github.com/1broseidon/focushint/internal/wsswitch"
)

// Easing is an easing curve. In YAML it is written as the curve name
// (ease-out-back) or as its ordinal in the easing table.
type Easing anim.Mode

func (e *Easing) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("easing mode must be a name or an index")
	}
	m, err := anim.ParseMode(value.Value)
	if err != nil {
		return err
	}
	*e = Easing(m)
	return nil
}

func (e Easing) MarshalYAML() (any, error) {
	return anim.Mode(e).String(), nil
}

func (e Easing) String() string { return anim.Mode(e).String() }

// Phase is one eased leg of a hint. Times are milliseconds.
type Phase struct {
	Delay    int    `yaml:"delay"`
	Duration int    `yaml:"duration"`
	Mode     Easing `yaml:"mode"`
}

func (p Phase) spec() hint.PhaseSpec {
	return hint.PhaseSpec{Delay: ms(p.Delay), Duration: ms(p.Duration), Mode: anim.Mode(p.Mode)}
}

// HintConfig tunes the visual hint.
type HintConfig struct {
	// ScaleTo is the upscale target in percent.
	ScaleTo     int    `yaml:"scale_to"`
	Margin      int    `yaml:"margin"`
	BorderWidth int    `yaml:"border_width"`
	Color       string `yaml:"color"`
	Darken      bool   `yaml:"darken"`
	Up          Phase  `yaml:"up"`
	Down        Phase  `yaml:"down"`
	// ArrivalProportion places the outward phase inside a workspace switch.
	ArrivalProportion float64 `yaml:"arrival_proportion"`
}

// SwitchConfig tunes workspace-switch synchronization.
type SwitchConfig struct {
	NominalDuration int `yaml:"nominal_duration"`
	// UpDelay replaces the derived Up delay of discrete switches when > 0.
	UpDelay            int     `yaml:"up_delay"`
	GestureMarkerRatio float64 `yaml:"gesture_marker_ratio"`
	StaticDuration     int     `yaml:"static_duration"`
	StaticMode         Easing  `yaml:"static_mode"`
	PendingTTL         int     `yaml:"pending_ttl"`
}

// AppSwitcherConfig tunes hints started by the app switcher.
type AppSwitcherConfig struct {
	Hotkey  string `yaml:"hotkey"`
	ScaleTo int    `yaml:"scale_to"`
	Up      Phase  `yaml:"up"`
	Down    Phase  `yaml:"down"`
}

// Favorite binds a slot to an application.
type Favorite struct {
	Class   string `yaml:"class"`
	Command string `yaml:"command"`
}

type SlotsConfig struct {
	Modifier  string     `yaml:"modifier"`
	Favorites []Favorite `yaml:"favorites"`
}

type IdleConfig struct {
	Enabled bool `yaml:"enabled"`
	Seconds int  `yaml:"seconds"`
}

// Config is the effective daemon configuration.
type Config struct {
	Strategy        string            `yaml:"strategy"`
	LogLevel        string            `yaml:"log_level"`
	Display         string            `yaml:"display"`
	XAuthority      string            `yaml:"xauthority"`
	Hint            HintConfig        `yaml:"hint"`
	Switch          SwitchConfig      `yaml:"switch"`
	AppSwitcher     AppSwitcherConfig `yaml:"app_switcher"`
	Slots           SlotsConfig       `yaml:"slots"`
	Idle            IdleConfig        `yaml:"idle"`
	OverviewClasses []string          `yaml:"overview_classes"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Strategy: string(hint.KindOutline),
		LogLevel: "info",
		Hint: HintConfig{
			ScaleTo:           105,
			Margin:            10,
			BorderWidth:       4,
			Color:             "#3584e4",
			Up:                Phase{Delay: 0, Duration: 200, Mode: Easing(anim.EaseOutBack)},
			Down:              Phase{Delay: 100, Duration: 200, Mode: Easing(anim.EaseIn)},
			ArrivalProportion: 0.7,
		},
		Switch: SwitchConfig{
			NominalDuration:    250,
			GestureMarkerRatio: wsswitch.DefaultMarkerRatio,
			StaticDuration:     250,
			StaticMode:         Easing(anim.EaseOutCubic),
			PendingTTL:         1000,
		},
		AppSwitcher: AppSwitcherConfig{
			Hotkey:  "Mod1-Tab",
			ScaleTo: 105,
			Up:      Phase{Duration: 150, Mode: Easing(anim.EaseOutQuad)},
			Down:    Phase{Duration: 150, Mode: Easing(anim.EaseInQuad)},
		},
		Slots: SlotsConfig{Modifier: "Mod4"},
		Idle:  IdleConfig{Enabled: true, Seconds: 60},
	}
}

// DefaultConfigPath honours XDG_CONFIG_HOME.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "focushint", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "focushint", "config.yaml"), nil
}

// Kind returns the configured strategy.
func (c *Config) Kind() hint.Kind { return hint.Kind(c.Strategy) }

// HintSettings converts the hint section into strategy settings.
func (c *Config) HintSettings() hint.Settings {
	s := hint.DefaultSettings()
	s.Up = c.Hint.Up.spec()
	s.Down = c.Hint.Down.spec()
	s.ScaleTo = float64(c.Hint.ScaleTo) / 100
	s.Margin = c.Hint.Margin
	s.BorderWidth = c.Hint.BorderWidth
	s.Darken = c.Hint.Darken
	s.ArrivalProportion = c.Hint.ArrivalProportion
	s.StaticDuration = ms(c.Switch.StaticDuration)
	s.StaticMode = anim.Mode(c.Switch.StaticMode)
	if color, err := ParseColor(c.Hint.Color); err == nil {
		s.Color = color
	}
	return s
}

// SwitchSettings converts the switch section.
func (c *Config) SwitchSettings() wsswitch.Settings {
	return wsswitch.Settings{
		MarkerRatio:     c.Switch.GestureMarkerRatio,
		UpDelay:         ms(c.Switch.UpDelay),
		NominalDuration: ms(c.Switch.NominalDuration),
	}
}

// AppSwitcherOverrides are applied to hints started by the app switcher.
func (c *Config) AppSwitcherOverrides() []hint.Override {
	return []hint.Override{
		hint.WithPhases(c.AppSwitcher.Up.spec(), c.AppSwitcher.Down.spec()),
		hint.WithScale(float64(c.AppSwitcher.ScaleTo) / 100),
	}
}

func (c *Config) IdleSettings() triggers.IdleSettings {
	return triggers.IdleSettings{Enabled: c.Idle.Enabled, Threshold: time.Duration(c.Idle.Seconds) * time.Second}
}

func (c *Config) Favorites() []triggers.Favorite {
	out := make([]triggers.Favorite, len(c.Slots.Favorites))
	for i, f := range c.Slots.Favorites {
		out[i] = triggers.Favorite{Class: f.Class, Command: f.Command}
	}
	return out
}

func (c *Config) PendingTTL() time.Duration { return ms(c.Switch.PendingTTL) }

// IsOverviewClass reports whether windows of class count as an open
// overview or launcher.
func (c *Config) IsOverviewClass(class string) bool {
	for _, oc := range c.OverviewClasses {
		if strings.EqualFold(oc, class) {
			return true
		}
	}
	return false
}

// ParseColor parses #rrggbb or #rgb.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q must be #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q must be #rrggbb", s)
	}
	return uint32(v), nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := hint.ParseKind(c.Strategy); err != nil {
		return &ValidationError{Path: "strategy", Err: fmt.Errorf("strategy must be one of: %s", kindList())}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if c.Hint.ScaleTo < 100 || c.Hint.ScaleTo > 200 {
		return &ValidationError{Path: "hint.scale_to", Err: fmt.Errorf("scale_to must be between 100 and 200")}
	}
	if c.Hint.Margin < 0 {
		return &ValidationError{Path: "hint.margin", Err: fmt.Errorf("margin must be >= 0")}
	}
	if c.Hint.BorderWidth < 1 {
		return &ValidationError{Path: "hint.border_width", Err: fmt.Errorf("border_width must be >= 1")}
	}
	if _, err := ParseColor(c.Hint.Color); err != nil {
		return &ValidationError{Path: "hint.color", Err: err}
	}
	for _, p := range []struct {
		path  string
		phase Phase
	}{
		{"hint.up", c.Hint.Up}, {"hint.down", c.Hint.Down},
		{"app_switcher.up", c.AppSwitcher.Up}, {"app_switcher.down", c.AppSwitcher.Down},
	} {
		if err := validatePhase(p.path, p.phase); err != nil {
			return err
		}
	}
	if c.Hint.ArrivalProportion <= 0 || c.Hint.ArrivalProportion > 1 {
		return &ValidationError{Path: "hint.arrival_proportion", Err: fmt.Errorf("arrival_proportion must be in (0, 1]")}
	}
	if c.Switch.NominalDuration <= 0 || c.Switch.NominalDuration > maxMillis {
		return &ValidationError{Path: "switch.nominal_duration", Err: fmt.Errorf("nominal_duration must be between 1 and %d", maxMillis)}
	}
	if c.Switch.UpDelay < 0 || c.Switch.UpDelay > maxMillis {
		return &ValidationError{Path: "switch.up_delay", Err: fmt.Errorf("up_delay must be between 0 and %d", maxMillis)}
	}
	if c.Switch.GestureMarkerRatio <= 0 || c.Switch.GestureMarkerRatio > 1 {
		return &ValidationError{Path: "switch.gesture_marker_ratio", Err: fmt.Errorf("gesture_marker_ratio must be in (0, 1]")}
	}
	if c.Switch.StaticDuration < 0 || c.Switch.StaticDuration > maxMillis {
		return &ValidationError{Path: "switch.static_duration", Err: fmt.Errorf("static_duration must be between 0 and %d", maxMillis)}
	}
	if c.Switch.PendingTTL < 0 {
		return &ValidationError{Path: "switch.pending_ttl", Err: fmt.Errorf("pending_ttl must be >= 0")}
	}
	if strings.TrimSpace(c.AppSwitcher.Hotkey) == "" {
		return &ValidationError{Path: "app_switcher.hotkey", Err: fmt.Errorf("hotkey is required")}
	}
	if c.AppSwitcher.ScaleTo < 100 || c.AppSwitcher.ScaleTo > 200 {
		return &ValidationError{Path: "app_switcher.scale_to", Err: fmt.Errorf("scale_to must be between 100 and 200")}
	}
	if strings.TrimSpace(c.Slots.Modifier) == "" {
		return &ValidationError{Path: "slots.modifier", Err: fmt.Errorf("modifier is required")}
	}
	if len(c.Slots.Favorites) > triggers.MaxSlots {
		return &ValidationError{Path: "slots.favorites", Err: fmt.Errorf("at most %d favorites", triggers.MaxSlots)}
	}
	for i, f := range c.Slots.Favorites {
		if strings.TrimSpace(f.Class) == "" {
			return &ValidationError{Path: fmt.Sprintf("slots.favorites.%d.class", i), Err: fmt.Errorf("class must not be empty")}
		}
	}
	if c.Idle.Enabled && c.Idle.Seconds < 1 {
		return &ValidationError{Path: "idle.seconds", Err: fmt.Errorf("seconds must be >= 1 when idle is enabled")}
	}
	return nil
}

const maxMillis = 10000

func validatePhase(path string, p Phase) error {
	if p.Delay < 0 || p.Delay > maxMillis {
		return &ValidationError{Path: path + ".delay", Err: fmt.Errorf("delay must be between 0 and %d", maxMillis)}
	}
	if p.Duration < 0 || p.Duration > maxMillis {
		return &ValidationError{Path: path + ".duration", Err: fmt.Errorf("duration must be between 0 and %d", maxMillis)}
	}
	if !anim.Mode(p.Mode).Valid() {
		return &ValidationError{Path: path + ".mode", Err: fmt.Errorf("unknown easing mode %d", p.Mode)}
	}
	return nil
}

func kindList() string {
	var names []string
	for _, k := range hint.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
