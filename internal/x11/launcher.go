package x11

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/focushint/internal/platform"
)

// Launcher activates windows through the window manager and starts
// favorites as detached processes.
type Launcher struct {
	conn   *Connection
	logger *slog.Logger
}

func NewLauncher(conn *Connection, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{conn: conn, logger: logger}
}

func (l *Launcher) Activate(w platform.Window) error {
	return l.conn.ActivateWindow(xproto.Window(w.ID()))
}

// Launch runs command in its own session. Quoting follows the shell, but no
// shell is involved.
func (l *Launcher) Launch(command string) error {
	argv, err := splitCommand(command)
	if err != nil {
		return fmt.Errorf("parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %q: %w", argv[0], err)
	}
	l.logger.Debug("launched", "command", argv[0], "pid", cmd.Process.Pid)
	go func() { _ = cmd.Wait() }()
	return nil
}

func splitCommand(s string) ([]string, error) {
	var out []string

	var buf strings.Builder
	inSingle := false
	inDouble := false
	escaped := false

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
	}

	for _, r := range s {
		if escaped {
			buf.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case !inSingle && r == '\\':
			escaped = true
		case !inDouble && r == '\'':
			inSingle = !inSingle
		case !inSingle && r == '"':
			inDouble = !inDouble
		case !inSingle && !inDouble && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			buf.WriteRune(r)
		}
	}

	if escaped {
		return nil, fmt.Errorf("unfinished escape")
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote")
	}
	flush()
	return out, nil
}

var _ platform.AppLauncher = (*Launcher)(nil)
