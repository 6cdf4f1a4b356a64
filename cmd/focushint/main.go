package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/focushint/internal/config"
	"github.com/1broseidon/focushint/internal/hint"
	"github.com/1broseidon/focushint/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "indicate":
		os.Exit(runIndicate(os.Args[2:]))
	case "reset":
		os.Exit(runSimple("reset", "Cancel the running focus hint.", os.Args[2:], ipc.NewClient().Reset))
	case "strategy":
		os.Exit(runStrategy(os.Args[2:]))
	case "slot":
		os.Exit(runSlot(os.Args[2:]))
	case "gesture":
		os.Exit(runGesture(os.Args[2:]))
	case "enable":
		os.Exit(runSimple("enable", "Install the focus hint triggers.", os.Args[2:], ipc.NewClient().Enable))
	case "disable":
		os.Exit(runSimple("disable", "Remove the focus hint triggers. While the session is locked, restoring\nhotkeys and the switcher waits for the unlock.", os.Args[2:], ipc.NewClient().Disable))
	case "reload":
		os.Exit(runSimple("reload", "Reload the daemon configuration.", os.Args[2:], ipc.NewClient().Reload))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: focushint <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the focushint daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  indicate [WINDOW]   Hint a window (default: the focused window)")
	fmt.Fprintln(w, "  reset               Cancel the running hint")
	fmt.Fprintln(w, "  strategy [NAME]     Show or set the hint strategy")
	fmt.Fprintln(w, "  slot N              Switch to favorite slot N (1-9)")
	fmt.Fprintln(w, "  enable              Install the hint triggers")
	fmt.Fprintln(w, "  disable             Remove the hint triggers")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  gesture begin       Start a workspace swipe")
	fmt.Fprintln(w, "  gesture update D    Move the swipe by D workspaces")
	fmt.Fprintln(w, "  gesture end         Release the swipe (--cancel to return)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'focushint <command> --help' for command-specific options.")
}

// parseFlags reports the exit code to use when parsing stops the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runSimple(name, description string, args []string, call func() error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: focushint %s\n\n%s\n", name, description)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	if err := call(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focushint status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:  %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "enabled:         %v\n", status.Enabled)
	fmt.Fprintf(w, "locked:          %v\n", status.Locked)
	fmt.Fprintf(w, "strategy:        %s\n", status.Strategy)
	fmt.Fprintf(w, "phase:           %s\n", status.Phase)
	fmt.Fprintf(w, "actors:          %d\n", status.Actors)
	if status.Window != 0 {
		fmt.Fprintf(w, "window:          0x%x\n", status.Window)
	}
	if status.Pending != 0 {
		fmt.Fprintf(w, "pending:         0x%x\n", status.Pending)
	}
	fmt.Fprintf(w, "workspace:       %d/%d\n", status.Workspace+1, status.Workspaces)
	fmt.Fprintf(w, "switching:       %v\n", status.Switching)
	if status.RestorePending {
		fmt.Fprintln(w, "restore_pending: true (waiting for unlock)")
	}
	if status.ConfigPath != "" {
		fmt.Fprintf(w, "config:          %s\n", status.ConfigPath)
	}
	fmt.Fprintf(w, "uptime_seconds:  %d\n", status.UptimeSeconds)
}

// parseWindowID accepts decimal or 0x-prefixed hexadecimal ids as printed
// by xprop and wmctrl.
func parseWindowID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return uint32(v), nil
}

func runIndicate(args []string) int {
	fs := flag.NewFlagSet("indicate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focushint indicate [WINDOW]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hint WINDOW (decimal or 0x hex id), or the focused window.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}
	var window uint32
	if fs.NArg() == 1 {
		id, err := parseWindowID(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		window = id
	}
	indicated, err := ipc.NewClient().Indicate(window)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !indicated {
		fmt.Fprintln(os.Stderr, "window cannot be hinted right now")
		return 1
	}
	return 0
}

func runStrategy(args []string) int {
	fs := flag.NewFlagSet("strategy", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focushint strategy [NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the active strategy, or switch to NAME until the next reload.")
		fmt.Fprintf(os.Stderr, "Strategies: %s\n", strategyNames())
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}
	client := ipc.NewClient()
	if fs.NArg() == 0 {
		status, err := client.GetStatus()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(status.Strategy)
		return 0
	}
	kind, err := hint.ParseKind(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Strategies: %s\n", strategyNames())
		return 2
	}
	if err := client.SetStrategy(string(kind)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func strategyNames() string {
	var out string
	for i, k := range hint.Kinds() {
		if i > 0 {
			out += ", "
		}
		out += string(k)
	}
	return out
}

func runSlot(args []string) int {
	fs := flag.NewFlagSet("slot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: focushint slot N")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Activate favorite slot N (1-9) from slots.favorites.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	slot, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid slot %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().SwitchSlot(slot); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runGesture(args []string) int {
	usage := func(w io.Writer) {
		fmt.Fprintln(w, "Usage:")
		fmt.Fprintln(w, "  focushint gesture begin")
		fmt.Fprintln(w, "  focushint gesture update DELTA")
		fmt.Fprintln(w, "  focushint gesture end [--cancel]")
	}
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	client := ipc.NewClient()
	var err error
	switch args[0] {
	case "begin":
		err = client.GestureBegin()
	case "update":
		if len(args) != 2 {
			usage(os.Stderr)
			return 2
		}
		delta, perr := strconv.ParseFloat(args[1], 64)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "invalid delta %q\n", args[1])
			return 2
		}
		err = client.GestureUpdate(delta)
	case "end":
		fs := flag.NewFlagSet("gesture end", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		cancel := fs.Bool("cancel", false, "Return to the workspace the swipe started on")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		err = client.GestureEnd(*cancel)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown gesture subcommand: %s\n", args[0])
		usage(os.Stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  focushint config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  focushint config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  focushint config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "  focushint config paths")
		return 2
	}

	const pathHelp = "Config file path (default: ~/.config/focushint/config.yaml)"

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: ok (%d file(s))\n", len(res.Files))
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathHelp)
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		_ = fs.Bool("effective", true, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "paths":
		for _, p := range config.Paths(config.DefaultConfig()) {
			fmt.Println(p)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
