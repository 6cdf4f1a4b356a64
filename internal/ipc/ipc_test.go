package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

type fakeBackend struct {
	status   StatusData
	strategy string
	slot     int
	deltas   []float64
	ended    []bool
	window   uint32
	resets   int
	enabled  bool
	reloads  int
	failWith error
}

func (f *fakeBackend) Status(context.Context) (StatusData, error) { return f.status, f.failWith }

func (f *fakeBackend) Indicate(_ context.Context, window uint32) (bool, error) {
	f.window = window
	return window != 0, f.failWith
}

func (f *fakeBackend) Reset(context.Context) error { f.resets++; return f.failWith }

func (f *fakeBackend) SetStrategy(_ context.Context, name string) error {
	if name == "sparkle" {
		return errors.New("unknown strategy")
	}
	f.strategy = name
	return nil
}

func (f *fakeBackend) SwitchSlot(_ context.Context, slot int) error { f.slot = slot; return f.failWith }

func (f *fakeBackend) GestureBegin(context.Context) error { return nil }

func (f *fakeBackend) GestureUpdate(_ context.Context, delta float64) error {
	f.deltas = append(f.deltas, delta)
	return nil
}

func (f *fakeBackend) GestureEnd(_ context.Context, cancel bool) error {
	f.ended = append(f.ended, cancel)
	return nil
}

func (f *fakeBackend) Enable(context.Context) error  { f.enabled = true; return nil }
func (f *fakeBackend) Disable(context.Context) error { f.enabled = false; return nil }
func (f *fakeBackend) Reload(context.Context) error  { f.reloads++; return f.failWith }

func startServer(t *testing.T, backend Backend) *Client {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "focushint.sock")
	srv, err := NewServer(sock, backend, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(sock)
}

func TestServer_RoundTrip(t *testing.T) {
	backend := &fakeBackend{status: StatusData{DaemonRunning: true, Enabled: true, Strategy: "outline", Phase: "up", Actors: 1}}
	client := startServer(t, backend)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || status.Strategy != "outline" || status.Phase != "up" || status.Actors != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	indicated, err := client.Indicate(42)
	if err != nil {
		t.Fatalf("Indicate: %v", err)
	}
	if !indicated || backend.window != 42 {
		t.Fatalf("expected window 42 to be indicated, got %v/%d", indicated, backend.window)
	}
	if indicated, err := client.Indicate(0); err != nil || indicated {
		t.Fatalf("Indicate(0) = %v, %v", indicated, err)
	}

	if err := client.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := client.SetStrategy("upscale"); err != nil {
		t.Fatalf("SetStrategy: %v", err)
	}
	if err := client.SwitchSlot(3); err != nil {
		t.Fatalf("SwitchSlot: %v", err)
	}
	if err := client.GestureBegin(); err != nil {
		t.Fatalf("GestureBegin: %v", err)
	}
	if err := client.GestureUpdate(0.25); err != nil {
		t.Fatalf("GestureUpdate: %v", err)
	}
	if err := client.GestureEnd(true); err != nil {
		t.Fatalf("GestureEnd: %v", err)
	}
	if err := client.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if backend.resets != 1 || backend.strategy != "upscale" || backend.slot != 3 || !backend.enabled || backend.reloads != 1 {
		t.Fatalf("backend did not receive commands: %+v", backend)
	}
	if len(backend.deltas) != 1 || backend.deltas[0] != 0.25 {
		t.Fatalf("unexpected gesture deltas %v", backend.deltas)
	}
	if len(backend.ended) != 1 || !backend.ended[0] {
		t.Fatalf("unexpected gesture end %v", backend.ended)
	}
}

func TestServer_ErrorsAreReported(t *testing.T) {
	backend := &fakeBackend{}
	client := startServer(t, backend)

	err := client.SetStrategy("sparkle")
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Fatalf("expected strategy error, got %v", err)
	}

	if err := client.SetStrategy(""); err == nil || !strings.Contains(err.Error(), "strategy is required") {
		t.Fatalf("expected missing strategy error, got %v", err)
	}

	backend.failWith = errors.New("disabled")
	if err := client.SwitchSlot(1); err == nil || !strings.Contains(err.Error(), "Failed to switch slot: disabled") {
		t.Fatalf("expected slot error, got %v", err)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	srv := &Server{backend: &fakeBackend{}, logger: nilLogger()}
	resp := srv.handleCommand(context.Background(), &Request{Command: "TILE"})
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "Unknown command: TILE") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestParseRequest(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"command":"RESET"}`)); err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if _, err := ParseRequest([]byte(`{}`)); err == nil {
		t.Fatal("expected missing command error")
	}
	if _, err := ParseRequest([]byte(`not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	err := client.Ping()
	if err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func nilLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
