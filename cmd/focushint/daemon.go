package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/focushint/internal/config"
	"github.com/1broseidon/focushint/internal/daemon"
	"github.com/1broseidon/focushint/internal/hotkeys"
	"github.com/1broseidon/focushint/internal/ipc"
	"github.com/1broseidon/focushint/internal/loop"
	"github.com/1broseidon/focushint/internal/platform"
	"github.com/1broseidon/focushint/internal/session"
	"github.com/1broseidon/focushint/internal/stage"
	"github.com/1broseidon/focushint/internal/switcher"
	"github.com/1broseidon/focushint/internal/triggers"
	"github.com/1broseidon/focushint/internal/x11"
)

// parseLevel maps log_level onto slog levels. Unknown names fall back to
// info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/focushint/config.yaml)")
	disabled := fs.Bool("disabled", false, "Start with hint triggers removed")
	dryRun := fs.Bool("dry-run", false, "Track hints without drawing overlay windows")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focushint daemon [--path PATH] [--disabled] [--dry-run]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the focus hint daemon in the foreground.")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	cfg := res.Config
	configPath := *path
	if configPath == "" {
		if p, perr := config.DefaultConfigPath(); perr == nil {
			configPath = p
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "strategy", cfg.Strategy, "files", len(res.Files))

	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}

	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		log.Printf("Failed to connect to display: %v", err)
		return 1
	}
	defer conn.Close()

	lp := loop.New(loop.Config{Logger: logger})

	display, err := x11.NewDisplay(conn, logger)
	if err != nil {
		log.Printf("Failed to read window state: %v", err)
		return 1
	}

	var ctrl *daemon.Controller
	shell := x11.NewShell(conn, func(class string) bool {
		if ctrl != nil {
			return ctrl.Settings().IsOverviewClass(class)
		}
		return cfg.IsOverviewClass(class)
	}, logger)

	var scene stage.Stage
	if *dryRun {
		logger.Info("dry run: hints are tracked but not drawn")
		scene = stage.NewMemory(lp)
	} else {
		overlay := x11.NewOverlay(conn, lp, logger)
		defer overlay.Close()
		scene = overlay
	}

	launcher := x11.NewLauncher(conn, logger)
	popup := switcher.New(switcher.Config{Display: display, Launcher: launcher, Logger: logger})
	keys, err := x11.NewSwitcherKeys(conn, popup, cfg.AppSwitcher.Hotkey, logger)
	if err != nil {
		log.Printf("Failed to set up switcher keys: %v", err)
		return 1
	}
	bindings := hotkeys.NewHandler(conn, logger)

	var lock platform.SessionLock
	lockWatcher, err := session.ConnectLockWatcher(lp, logger)
	if err != nil {
		logger.Warn("session lock state unavailable; disable restores immediately", "error", err)
	} else {
		defer lockWatcher.Close()
		lock = lockWatcher
	}

	var idle triggers.IdleMonitor
	idleMonitor, err := session.ConnectIdleMonitor(lp, logger)
	if err != nil {
		logger.Info("session idle monitor unavailable; polling the screensaver extension", "error", err)
		ss, sserr := x11.NewScreenSaverIdle(conn, lp, logger)
		if sserr != nil {
			logger.Warn("idle hints disabled", "error", sserr)
		} else {
			defer ss.Close()
			idle = ss
		}
	} else {
		defer idleMonitor.Close()
		idle = idleMonitor
	}

	ctrl, err = daemon.New(daemon.Config{
		Scheduler: lp,
		Display:   display,
		Stage:     scene,
		Shell:     shell,
		Lock:      lock,
		Launcher:  launcher,
		Idle:      idle,
		Switcher:  popup,
		Keys:      keys,
		Bindings:  bindings,
		Settings:  cfg,
		Logger:    logger,
	})
	if err != nil {
		log.Printf("Failed to create controller: %v", err)
		return 1
	}
	display.OnDesktopChanged(func(ch x11.DesktopChange) { ctrl.DesktopChanged(ch.From, ch.To) })

	if *disabled {
		logger.Info("starting with hints disabled")
	} else if err := ctrl.Enable(); err != nil {
		log.Printf("Failed to enable focus hints: %v", err)
		return 1
	}

	service := daemon.NewService(lp, ctrl, *path, logger)

	socketPath, err := ipc.SocketPath(cfg.Display)
	if err != nil {
		log.Printf("Failed to resolve IPC socket path: %v", err)
		return 1
	}
	server, err := ipc.NewServer(socketPath, service, logger)
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		return 1
	}

	watchdog := daemon.NewWatchdog(daemon.WatchdogConfig{Logger: logger}, ctrl, lp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lp.Run(gctx, conn.XUtil) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return watchdog.Run(gctx) })
	if lockWatcher != nil {
		g.Go(func() error {
			if err := lockWatcher.Run(gctx); err != nil {
				logger.Warn("lock watcher stopped", "error", err)
			}
			return nil
		})
	}
	if idleMonitor != nil {
		g.Go(func() error {
			if err := idleMonitor.Run(gctx); err != nil {
				logger.Warn("idle monitor stopped", "error", err)
			}
			return nil
		})
	}
	if configPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, config.DefaultDebounce, logger, func(res *config.LoadResult, err error) {
				if err != nil {
					logger.Warn("config reload failed", "error", err)
					return
				}
				if err := service.Apply(gctx, res); err != nil {
					logger.Warn("config apply failed", "error", err)
					return
				}
				logger.Info("configuration reloaded", "path", configPath)
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				if err := service.Reload(gctx); err != nil {
					logger.Warn("config reload failed", "error", err)
				}
			}
		}
	})

	logger.Info("focushint daemon started", "socket", server.SocketPath(), "enabled", ctrl.Enabled())
	err = g.Wait()

	// The loop has stopped, so the controller is touched from this goroutine
	// only.
	ctrl.Shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped", "error", err)
		return 1
	}
	logger.Info("shutting down focushint daemon")
	return 0
}
