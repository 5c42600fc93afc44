package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	_ "github.com/1broseidon/deskmod/internal/addons/demo"
	"github.com/1broseidon/deskmod/internal/config"
	"github.com/1broseidon/deskmod/internal/host"
	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/logging"
	"github.com/1broseidon/deskmod/internal/plugin"
	"github.com/1broseidon/deskmod/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(runHost(nil))
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runHost(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "modules":
		os.Exit(runModules(os.Args[2:]))
	case "enable":
		os.Exit(runSetEnabled("enable", true, os.Args[2:]))
	case "disable":
		os.Exit(runSetEnabled("disable", false, os.Args[2:]))
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "stop":
		os.Exit(runStop(os.Args[2:]))
	case "addons":
		os.Exit(runAddons(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		// A bare entry point is shorthand for "run <entry>".
		if !strings.HasPrefix(os.Args[1], "-") && strings.Contains(os.Args[1], ".") {
			os.Exit(runHost(os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskmod [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run [entry]         Start the host (default). entry is preloaded before the package scan")
	fmt.Fprintln(w, "  status              Show host status")
	fmt.Fprintln(w, "  modules             List modules")
	fmt.Fprintln(w, "  enable <module>     Show a module")
	fmt.Fprintln(w, "  disable <module>    Hide a module")
	fmt.Fprintln(w, "  toggle              Hide all modules, or restore the hidden ones")
	fmt.Fprintln(w, "  monitors            List monitors")
	fmt.Fprintln(w, "  stop                Stop the running host")
	fmt.Fprintln(w, "  addons              Scan packages_dir without loading anything")
	fmt.Fprintln(w, "  tui                 Interactive module manager")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskmod <command> --help' for command-specific options.")
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runHost(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/deskmod/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmod run [--path PATH] [entry]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the host in the foreground. entry (e.g. demo.DemoAddon) is loaded")
		fmt.Fprintln(os.Stderr, "before packages_dir is scanned.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if res.File != "" {
		logger.Info("configuration loaded", "file", res.File)
	}

	backend, release, err := openBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		return 1
	}
	defer release()

	h, err := host.New(host.Options{
		Config:  cfg,
		Backend: backend,
		Preload: fs.Arg(0),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to create host", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := h.Run(ctx); err != nil {
		logger.Error("host stopped with error", "error", err)
		return 1
	}
	return 0
}

// parseClientFlags handles the shared --json flag of the IPC subcommands.
func parseClientFlags(name, usage string, args []string) (*flag.FlagSet, bool, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, false, 0
		}
		return nil, false, 2
	}
	return fs, *asJSON, -1
}

func printJSON(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	os.Stdout.Write(pretty.Pretty(data))
	return 0
}

func runStatus(args []string) int {
	_, asJSON, code := parseClientFlags("status", "Usage: deskmod status [--json]", args)
	if code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if asJSON {
		return printJSON(status)
	}
	fmt.Printf("running: %t\n", status.Running)
	fmt.Printf("uptime: %ds\n", status.UptimeSeconds)
	fmt.Printf("addons: %d\n", status.Addons)
	fmt.Printf("modules: %d (%d shown)\n", status.Modules, status.EnabledModules)
	return 0
}

func runModules(args []string) int {
	_, asJSON, code := parseClientFlags("modules", "Usage: deskmod modules [--json]", args)
	if code >= 0 {
		return code
	}

	modules, err := ipc.NewClient().ListModules()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if asJSON {
		return printJSON(modules)
	}
	if len(modules) == 0 {
		fmt.Println("no modules registered")
		return 0
	}
	for _, m := range modules {
		state := "hidden"
		if m.Enabled {
			state = "shown"
		}
		pos := "unplaced"
		if m.HasPosition {
			pos = fmt.Sprintf("%d,%d", m.X, m.Y)
		}
		fmt.Printf("%-20s %-20s %-6s %4dx%-4d %s\n", m.Addon, m.Key, state, m.Width, m.Height, pos)
	}
	return 0
}

func runSetEnabled(name string, enabled bool, args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addonName := fs.String("addon", "", "Owning addon (needed when the module key is ambiguous)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deskmod %s [--addon NAME] <module>\n", name)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	info, err := ipc.NewClient().SetModuleEnabled(*addonName, fs.Arg(0), enabled)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	state := "hidden"
	if info.Enabled {
		state = "shown"
	}
	fmt.Printf("%s/%s: %s\n", info.Addon, info.Key, state)
	return 0
}

func runToggle(args []string) int {
	_, _, code := parseClientFlags("toggle", "Usage: deskmod toggle", args)
	if code >= 0 {
		return code
	}

	modules, err := ipc.NewClient().ToggleAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	shown := 0
	for _, m := range modules {
		if m.Enabled {
			shown++
		}
	}
	fmt.Printf("%d of %d modules shown\n", shown, len(modules))
	return 0
}

func runMonitors(args []string) int {
	_, asJSON, code := parseClientFlags("monitors", "Usage: deskmod monitors [--json]", args)
	if code >= 0 {
		return code
	}

	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if asJSON {
		return printJSON(data)
	}
	for _, m := range data.Monitors {
		fmt.Printf("%d  %-12s %dx%d+%d+%d\n", m.ID, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	return 0
}

func runStop(args []string) int {
	_, _, code := parseClientFlags("stop", "Usage: deskmod stop", args)
	if code >= 0 {
		return code
	}

	if err := ipc.NewClient().Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("deskmod: stopping")
	return 0
}

func runTUI(args []string) int {
	_, _, code := parseClientFlags("tui", "Usage: deskmod tui", args)
	if code >= 0 {
		return code
	}
	if err := tui.Run(nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runAddons(args []string) int {
	fs := flag.NewFlagSet("addons", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/deskmod/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmod addons [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the packages found in packages_dir and the built-in entry points.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	candidates, errs := plugin.Scan(res.Config.PackagesDir)
	fmt.Printf("packages (%s):\n", res.Config.PackagesDir)
	if len(candidates) == 0 {
		fmt.Println("  none")
	}
	for _, c := range candidates {
		fmt.Printf("  %-20s %-30s %s\n", c.Manifest.ID, c.Manifest.Main, c.Location)
	}
	fmt.Println("builtin:")
	for _, name := range plugin.DefaultRegistry.Names() {
		fmt.Printf("  %s\n", name)
	}
	for _, err := range errs {
		var derr *plugin.DiscoveryError
		if errors.As(err, &derr) {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", derr.Path, derr.Err)
			continue
		}
		fmt.Fprintln(os.Stderr, err)
	}
	if len(errs) > 0 {
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  deskmod config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  deskmod config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  deskmod config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskmod/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskmod/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
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
		path := fs.String("path", "", "Config file path (default: ~/.config/deskmod/config.yaml)")
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
	case config.SourceEnv:
		return "env:" + src.Name
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
