package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/ipc"
	"github.com/1broseidon/focushint/internal/triggers"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

func (s *Server) handleIndicate(_ context.Context, _ *mcpsdk.CallToolRequest, args IndicateInput) (*mcpsdk.CallToolResult, IndicateOutput, error) {
	indicated, err := s.daemon.Indicate(args.Window)
	if err != nil {
		return nil, IndicateOutput{}, err
	}
	out := IndicateOutput{Indicated: indicated}
	if !indicated {
		out.Reason = "window cannot be hinted right now"
	}
	s.logger.Debug("mcp indicate", "window", args.Window, "indicated", indicated)
	return nil, out, nil
}

func (s *Server) handleReset(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ResetOutput, error) {
	if err := s.daemon.Reset(); err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{Reset: true}, nil
}

func (s *Server) handleListStrategies(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListStrategiesOutput, error) {
	out := ListStrategiesOutput{}
	for _, k := range hint.Kinds() {
		out.Strategies = append(out.Strategies, string(k))
	}
	// The list is still useful without a running daemon.
	if status, err := s.daemon.GetStatus(); err == nil {
		out.Active = status.Strategy
	}
	return nil, out, nil
}

func (s *Server) handleSetStrategy(_ context.Context, _ *mcpsdk.CallToolRequest, args SetStrategyInput) (*mcpsdk.CallToolResult, SetStrategyOutput, error) {
	kind, err := hint.ParseKind(args.Strategy)
	if err != nil {
		return nil, SetStrategyOutput{}, err
	}
	out := SetStrategyOutput{Strategy: string(kind)}
	if status, err := s.daemon.GetStatus(); err == nil {
		out.Previous = status.Strategy
	}
	if err := s.daemon.SetStrategy(string(kind)); err != nil {
		return nil, SetStrategyOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleSwitchSlot(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchSlotInput) (*mcpsdk.CallToolResult, SwitchSlotOutput, error) {
	if args.Slot < 1 || args.Slot > triggers.MaxSlots {
		return nil, SwitchSlotOutput{}, fmt.Errorf("slot must be between 1 and %d, got %d", triggers.MaxSlots, args.Slot)
	}
	if err := s.daemon.SwitchSlot(args.Slot); err != nil {
		return nil, SwitchSlotOutput{}, err
	}
	return nil, SwitchSlotOutput{Slot: args.Slot}, nil
}
