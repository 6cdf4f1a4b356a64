package mcp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/1broseidon/focushint/internal/ipc"
)

type fakeDaemon struct {
	status    ipc.StatusData
	statusErr error
	indicated map[uint32]bool
	resets    int
	strategy  string
	slot      int
	err       error
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := f.status
	return &st, nil
}

func (f *fakeDaemon) Indicate(window uint32) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.indicated[window], nil
}

func (f *fakeDaemon) Reset() error { f.resets++; return f.err }

func (f *fakeDaemon) SetStrategy(name string) error {
	if f.err != nil {
		return f.err
	}
	f.strategy = name
	f.status.Strategy = name
	return nil
}

func (f *fakeDaemon) SwitchSlot(slot int) error {
	if f.err != nil {
		return f.err
	}
	f.slot = slot
	return nil
}

func newTestServer(d *fakeDaemon) *Server { return NewServer(d, nil) }

func TestGetStatus(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{DaemonRunning: true, Strategy: "outline", Phase: "idle"}}
	s := newTestServer(d)

	_, out, err := s.handleGetStatus(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if !out.DaemonRunning || out.Strategy != "outline" {
		t.Fatalf("unexpected status %+v", out)
	}

	d.statusErr = errors.New("failed to connect to daemon")
	if _, _, err := s.handleGetStatus(context.Background(), nil, EmptyInput{}); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestIndicate(t *testing.T) {
	d := &fakeDaemon{indicated: map[uint32]bool{0: true}}
	s := newTestServer(d)

	_, out, err := s.handleIndicate(context.Background(), nil, IndicateInput{})
	if err != nil || !out.Indicated || out.Reason != "" {
		t.Fatalf("handleIndicate(focused) = %+v, %v", out, err)
	}

	_, out, err = s.handleIndicate(context.Background(), nil, IndicateInput{Window: 7})
	if err != nil || out.Indicated || out.Reason == "" {
		t.Fatalf("handleIndicate(7) = %+v, %v", out, err)
	}
}

func TestSetStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{"known", "upscale", "upscale", ""},
		{"static", "static-outline", "static-outline", ""},
		{"unknown", "sparkle", "", "sparkle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{status: ipc.StatusData{Strategy: "outline"}}
			s := newTestServer(d)
			_, out, err := s.handleSetStrategy(context.Background(), nil, SetStrategyInput{Strategy: tt.input})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				if d.strategy != "" {
					t.Fatalf("invalid strategy reached the daemon")
				}
				return
			}
			if err != nil {
				t.Fatalf("handleSetStrategy: %v", err)
			}
			if out.Strategy != tt.want || out.Previous != "outline" || d.strategy != tt.want {
				t.Fatalf("unexpected output %+v (daemon %q)", out, d.strategy)
			}
		})
	}
}

func TestListStrategies(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{Strategy: "none"}}
	s := newTestServer(d)

	_, out, err := s.handleListStrategies(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleListStrategies: %v", err)
	}
	want := []string{"outline", "upscale", "static-outline", "none"}
	if !reflect.DeepEqual(out.Strategies, want) || out.Active != "none" {
		t.Fatalf("unexpected output %+v", out)
	}

	d.statusErr = errors.New("offline")
	_, out, err = s.handleListStrategies(context.Background(), nil, EmptyInput{})
	if err != nil || out.Active != "" || len(out.Strategies) != len(want) {
		t.Fatalf("offline list = %+v, %v", out, err)
	}
}

func TestSwitchSlot(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)

	for _, slot := range []int{0, 10, -1} {
		if _, _, err := s.handleSwitchSlot(context.Background(), nil, SwitchSlotInput{Slot: slot}); err == nil {
			t.Fatalf("slot %d accepted", slot)
		}
	}
	_, out, err := s.handleSwitchSlot(context.Background(), nil, SwitchSlotInput{Slot: 4})
	if err != nil || out.Slot != 4 || d.slot != 4 {
		t.Fatalf("handleSwitchSlot(4) = %+v, %v", out, err)
	}

	d.err = errors.New("daemon error: focus hints are disabled")
	if _, _, err := s.handleSwitchSlot(context.Background(), nil, SwitchSlotInput{Slot: 2}); err == nil {
		t.Fatal("expected daemon error")
	}
}

func TestReset(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)
	_, out, err := s.handleReset(context.Background(), nil, EmptyInput{})
	if err != nil || !out.Reset || d.resets != 1 {
		t.Fatalf("handleReset = %+v, %v", out, err)
	}
}
