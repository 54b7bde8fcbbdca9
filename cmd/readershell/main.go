package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/readershell/internal/bridge"
	"github.com/1broseidon/readershell/internal/config"
	"github.com/1broseidon/readershell/internal/ipc"
	"github.com/1broseidon/readershell/internal/mcp"
	"github.com/1broseidon/readershell/internal/menu"
	"github.com/1broseidon/readershell/internal/platform"
	"github.com/1broseidon/readershell/internal/settings"
	"github.com/1broseidon/readershell/internal/sites"
	"github.com/1broseidon/readershell/internal/watcher"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: readershell run")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "run takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: readershell run")
			os.Exit(2)
		}
		runShell()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "displays":
		os.Exit(runDisplays(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "settings":
		os.Exit(runSettings(os.Args[2:]))
	case "rebuild":
		os.Exit(runRebuild(os.Args[2:]))
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
	fmt.Fprintln(w, "Usage: readershell <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the shell (foreground)")
	fmt.Fprintln(w, "  status              Show shell status")
	fmt.Fprintln(w, "  displays            List displays and the window's current one")
	fmt.Fprintln(w, "  move <index>        Move the window to a display")
	fmt.Fprintln(w, "  settings            Print the persisted settings document")
	fmt.Fprintln(w, "  rebuild             Force a menu rebuild")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'readershell <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: readershell status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show shell status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("running:         %v\n", status.DaemonRunning)
	fmt.Printf("site:            %s\n", status.Site)
	fmt.Printf("display_count:   %d\n", status.DisplayCount)
	if status.Located {
		fmt.Printf("current_display: %d\n", status.CurrentDisplay)
	} else {
		fmt.Printf("current_display: none (window off-screen)\n")
	}
	fmt.Printf("settings_ver:    %d\n", status.SettingsVersion)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	return 0
}

func runDisplays(args []string) int {
	fs := flag.NewFlagSet("displays", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: readershell displays [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List active displays. The current one is marked with *.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "displays takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	data, err := client.GetDisplays()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data.Displays); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	for _, d := range data.Displays {
		marker := " "
		if d.Current {
			marker = "*"
		}
		fmt.Printf("%s %d  %-12s %dx%d+%d+%d  scale %.2f\n",
			marker, d.Index, d.Name, d.Width, d.Height, d.X, d.Y, d.Scale)
	}
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: readershell move <index>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Move the window to the display with the given index and center it.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "move requires exactly one <index>")
		fs.Usage()
		return 2
	}

	index, err := strconv.Atoi(fs.Arg(0))
	if err != nil || index < 0 {
		fmt.Fprintf(os.Stderr, "invalid display index %q\n", fs.Arg(0))
		return 2
	}

	if err := ipc.NewClient().MoveToDisplay(index); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSettings(args []string) int {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: readershell settings")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Print the persisted settings document and its version.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "settings takes no arguments")
		fs.Usage()
		return 2
	}

	data, err := ipc.NewClient().GetSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("version: %d\n", data.Version)
	out, err := json.MarshalIndent(data.Document, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func runRebuild(args []string) int {
	fs := flag.NewFlagSet("rebuild", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: readershell rebuild")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Force the shell to rebuild its menu from a fresh display snapshot.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "rebuild takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().RebuildMenu(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  readershell config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  readershell config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/readershell/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/readershell/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			var err error
			if *path == "" {
				cfg, err = config.Load()
			} else {
				cfg, err = config.LoadFromPath(*path)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage: readershell mcp serve")
		return 2
	}

	switch args[0] {
	case "serve":
		server := mcp.NewServer()
		if err := server.Run(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown mcp subcommand: %s\n", args[0])
		return 2
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openURL(url string) error {
	return exec.Command("xdg-open", url).Start()
}

func runShell() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	site, ok := sites.Lookup(cfg.Site)
	if !ok {
		log.Fatalf("Unknown site %q in configuration", cfg.Site)
	}
	log.Printf("Configuration loaded (site: %s, poll: %dms, settle: %dms)",
		site.ID, cfg.PollIntervalMS, cfg.SettleDelayMS)

	if !site.Reachable(time.Second) {
		logger.Warn("site not reachable, continuing offline", "site", site.ID, "addr", site.NetworkCheckAddr())
	}

	storePath, err := settings.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve settings path: %v", err)
	}
	store := settings.NewStore(storePath, logger)

	backend, err := platform.NewLinuxBackend(cfg.WindowClass, cfg.ScaleOverrides)
	if err != nil {
		log.Fatalf("Failed to attach to shell window: %v", err)
	}
	defer backend.Disconnect()

	log.Println("readershell started")

	hub := bridge.NewHub(cfg.BridgeAddr, store, logger)

	controller := menu.NewController(hub, hub, store,
		backend.Displays, backend.WindowPosition, site.ID, menu.DefaultLabels(), logger)

	quitCh := make(chan struct{}, 1)
	quit := func() {
		select {
		case quitCh <- struct{}{}:
		default:
		}
	}

	router := menu.NewRouter(backend, hub, controller, store,
		backend.Displays, site, cfg.SettleDelay(), openURL, quit, logger)
	hub.SetDispatcher(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("bridge stopped", "error", err)
		}
	}()

	if err := controller.Rebuild(); err != nil {
		logger.Warn("initial menu build failed", "error", err)
	}

	w := watcher.New(backend.WindowPosition, backend.Displays, controller,
		cfg.PollInterval(), cfg.SettleDelay(), logger)
	go w.Run(ctx)

	ipcServer, err := ipc.NewServer(backend, store, router, controller, site.ID)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down...", sig)
	case <-quitCh:
		log.Println("Quit requested, shutting down...")
	}

	// Auto page flipping must not survive into the next session.
	router.ClearAutoFlip()
	cancel()
	ipcServer.Stop()
}
