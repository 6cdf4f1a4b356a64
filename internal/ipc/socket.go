package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// SocketEnv overrides the socket path for the daemon and every client.
const SocketEnv = "FOCUSHINT_SOCKET"

// SocketPath returns the socket of the daemon serving an X display. An
// empty display means $DISPLAY. One daemon runs per display, so the display
// number is part of the file name.
func SocketPath(display string) (string, error) {
	if p := os.Getenv(SocketEnv); p != "" {
		return p, nil
	}
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName(display)), nil
}

// socketName maps "[host]:number[.screen]" to a file name. The screen is
// dropped since one daemon drives every screen of a display.
func socketName(display string) string {
	i := strings.LastIndex(display, ":")
	if i < 0 {
		return "focushint.sock"
	}
	host, num := display[:i], display[i+1:]
	if j := strings.IndexByte(num, '.'); j >= 0 {
		num = num[:j]
	}
	num = sanitize(num)
	if num == "" {
		return "focushint.sock"
	}
	if host == "" || host == "unix" || strings.HasPrefix(host, "/") {
		return "focushint-" + num + ".sock"
	}
	return "focushint-" + sanitize(host) + "-" + num + ".sock"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}

// runtimeDir prefers $XDG_RUNTIME_DIR. Otherwise a private directory under
// the system temp dir is used, and refused if another user can write to it.
func runtimeDir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	uid := os.Getuid()
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("focushint-%d", uid))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create runtime dir: %w", err)
	}
	info, err := os.Lstat(dir)
	if err != nil {
		return "", fmt.Errorf("stat runtime dir: %w", err)
	}
	if !info.IsDir() || info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("runtime dir %s is not private", dir)
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) != uid {
		return "", fmt.Errorf("runtime dir %s is owned by uid %d", dir, st.Uid)
	}
	return dir, nil
}
