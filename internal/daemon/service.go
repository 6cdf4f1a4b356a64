package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/focushint/internal/config"
	"github.com/1broseidon/focushint/internal/ipc"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
)

// Service exposes a Controller to other goroutines. Every call is marshalled
// onto the event loop.
type Service struct {
	sched      loop.Scheduler
	ctrl       *Controller
	configPath string
	logger     *slog.Logger
	started    time.Time

	reloadMu sync.Mutex
}

// NewService wraps ctrl. configPath is the file Reload reads; empty means
// the default location.
func NewService(sched loop.Scheduler, ctrl *Controller, configPath string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sched: sched, ctrl: ctrl, configPath: configPath, logger: logger, started: time.Now()}
}

func (s *Service) do(ctx context.Context, fn func() error) error {
	_, err := loop.Do(ctx, s.sched, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (s *Service) Status(ctx context.Context) (ipc.StatusData, error) {
	st, err := loop.Do(ctx, s.sched, func() (Status, error) { return s.ctrl.Status(), nil })
	if err != nil {
		return ipc.StatusData{}, err
	}
	return ipc.StatusData{
		DaemonRunning:  true,
		Enabled:        st.Enabled,
		Locked:         st.Locked,
		Strategy:       string(st.Hint.Strategy),
		Phase:          st.Hint.Phase,
		Actors:         st.Hint.Actors,
		Window:         st.Hint.Window,
		Pending:        st.Hint.Pending,
		Workspace:      st.Workspace,
		Workspaces:     st.Workspaces,
		Switching:      st.Switching,
		RestorePending: st.RestorePending,
		ConfigPath:     s.configPath,
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
	}, nil
}

func (s *Service) Indicate(ctx context.Context, window uint32) (bool, error) {
	return loop.Do(ctx, s.sched, func() (bool, error) {
		return s.ctrl.Indicate(platform.WindowID(window))
	})
}

func (s *Service) Reset(ctx context.Context) error { return s.do(ctx, s.ctrl.Reset) }

func (s *Service) SetStrategy(ctx context.Context, name string) error {
	return s.do(ctx, func() error { return s.ctrl.SetStrategy(name) })
}

func (s *Service) SwitchSlot(ctx context.Context, slot int) error {
	return s.do(ctx, func() error { return s.ctrl.SwitchSlot(slot) })
}

func (s *Service) GestureBegin(ctx context.Context) error {
	return s.do(ctx, func() error { s.ctrl.BeginGesture(); return nil })
}

func (s *Service) GestureUpdate(ctx context.Context, delta float64) error {
	return s.do(ctx, func() error { s.ctrl.UpdateGesture(delta); return nil })
}

func (s *Service) GestureEnd(ctx context.Context, cancel bool) error {
	return s.do(ctx, func() error { s.ctrl.EndGesture(cancel); return nil })
}

func (s *Service) Enable(ctx context.Context) error { return s.do(ctx, s.ctrl.Enable) }

func (s *Service) Disable(ctx context.Context) error {
	return s.do(ctx, func() error { s.ctrl.Disable(); return nil })
}

// Reload reads the configuration file and applies it.
func (s *Service) Reload(ctx context.Context) error {
	var (
		res *config.LoadResult
		err error
	)
	if s.configPath != "" {
		res, err = config.LoadFromPath(s.configPath)
	} else {
		res, err = config.LoadWithSources()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return s.Apply(ctx, res)
}

// Apply hands an already loaded configuration to the controller.
func (s *Service) Apply(ctx context.Context, res *config.LoadResult) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.do(ctx, func() error { return s.ctrl.Reload(res.Config) })
}

var _ ipc.Backend = (*Service)(nil)
