package mcp

// EmptyInput is the input of tools without arguments.
type EmptyInput struct{}

// IndicateInput is the input for the indicate_window tool.
type IndicateInput struct {
	Window uint32 `json:"window,omitempty" jsonschema:"X11 window id to hint (default: the focused window)"`
}

// IndicateOutput is the output for the indicate_window tool.
type IndicateOutput struct {
	Indicated bool   `json:"indicated"`
	Reason    string `json:"reason,omitempty"`
}

// SetStrategyInput is the input for the set_strategy tool.
type SetStrategyInput struct {
	Strategy string `json:"strategy" jsonschema:"Hint strategy: outline, upscale, static-outline or none"`
}

// SetStrategyOutput is the output for the set_strategy tool.
type SetStrategyOutput struct {
	Strategy string `json:"strategy"`
	Previous string `json:"previous,omitempty"`
}

// ListStrategiesOutput is the output for the list_strategies tool.
type ListStrategiesOutput struct {
	Strategies []string `json:"strategies"`
	Active     string   `json:"active,omitempty"`
}

// SwitchSlotInput is the input for the switch_slot tool.
type SwitchSlotInput struct {
	Slot int `json:"slot" jsonschema:"Favorite slot number, 1 to 9"`
}

// SwitchSlotOutput is the output for the switch_slot tool.
type SwitchSlotOutput struct {
	Slot int `json:"slot"`
}

// ResetOutput is the output for the reset_hint tool.
type ResetOutput struct {
	Reset bool `json:"reset"`
}
