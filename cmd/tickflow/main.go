package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ahroberts/tickflow/internal/api"
	"github.com/ahroberts/tickflow/internal/broker"
	"github.com/ahroberts/tickflow/internal/config"
	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/doctor"
	"github.com/ahroberts/tickflow/internal/events"
	"github.com/ahroberts/tickflow/internal/feed"
	"github.com/ahroberts/tickflow/internal/lock"
	"github.com/ahroberts/tickflow/internal/log"
	"github.com/ahroberts/tickflow/internal/storage"
	"github.com/ahroberts/tickflow/internal/tui/watch"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	case "run":
		return runRun(args)
	case "watch":
		return runWatch(args)
	case "doctor":
		return runDoctor(args)
	case "import":
		return runImport(args)
	case "config":
		return runConfigNoun(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

// runRun starts a dispatch run in the foreground.
func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, path, code := loadConfig(*configPath)
	if code != 0 {
		return code
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("tickflow starting", "version", version, "config", path)

	pidLock, err := lock.ForDatabase(cfg.Data.Database)
	if err != nil {
		logger.Error("failed to acquire run lock", "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired run lock", "path", pidLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(ctx, cfg.Data.Database)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Data.Database, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Data.Database)

	bars := storage.NewBarStore(db)
	runs := storage.NewRunStore(db)
	hub := events.NewHub(256)

	disp := dispatch.New(dispatch.Config{
		Hub:       hub,
		NeverStop: cfg.Service.NeverStop,
	})

	var barCount, tickCount, fillCount atomic.Int64
	var lastEvent atomic.Pointer[time.Time]
	observe := func(at time.Time) {
		t := at
		lastEvent.Store(&t)
	}

	var historical []*feed.BarFeed
	for _, fc := range cfg.Feeds {
		switch fc.Kind {
		case config.KindHistorical:
			src, err := bars.Source(ctx, fc.Symbol, fc.From, fc.To)
			if err != nil {
				logger.Error("failed to load bars", "feed", fc.Name, "symbol", fc.Symbol, "error", err)
				return 1
			}
			bf := feed.NewBarFeed(fc.Name, src, dispatch.Priority(fc.Priority))
			bf.OnBar(func(b feed.Bar) {
				barCount.Add(1)
				observe(b.DateTime)
			})
			if err := disp.AddSubject(bf); err != nil {
				logger.Error("failed to register feed", "feed", fc.Name, "error", err)
				return 1
			}
			historical = append(historical, bf)

		case config.KindLive:
			// Live feeds are fed by an embedding process via Push; from the
			// CLI they keep the run open until stopped.
			tf := feed.NewTickFeed(fc.Name, fc.Buffer, nil, dispatch.Priority(fc.Priority))
			tf.OnTick(func(t feed.Tick) {
				tickCount.Add(1)
				observe(t.DateTime)
			})
			if err := disp.AddSubject(tf); err != nil {
				logger.Error("failed to register feed", "feed", fc.Name, "error", err)
				return 1
			}
		}
	}

	if cfg.Broker.Enabled {
		pb := broker.NewPaper(cfg.Broker.Cash, historical...)
		pb.OnFill(func(f broker.Fill) {
			fillCount.Add(1)
		})
		if err := disp.AddSubject(pb); err != nil {
			logger.Error("failed to register broker", "error", err)
			return 1
		}
		logger.Info("paper broker enabled", "cash", cfg.Broker.Cash)
	}

	runID, err := runs.Begin(ctx)
	if err != nil {
		logger.Error("failed to journal run", "error", err)
		return 1
	}
	logger = logger.With("run_id", runID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.APIKey,
		}, disp, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("api server failed", "error", err)
				cancel()
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("tickflow running (press Ctrl+C to stop)", "subjects", len(disp.Subjects()))

	runErr := disp.Run(ctx)

	stats := storage.RunStats{
		Bars:        barCount.Load(),
		Ticks:       tickCount.Load(),
		Fills:       fillCount.Load(),
		LastEventAt: lastEvent.Load(),
		Err:         runErr,
	}
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer finishCancel()
	if err := runs.Finish(finishCtx, runID, stats); err != nil {
		logger.Error("failed to close run journal", "error", err)
	}

	if runErr != nil {
		logger.Error("run finished with error", "error", runErr)
		return 1
	}
	logger.Info("run finished",
		"bars", stats.Bars, "ticks", stats.Ticks, "fills", stats.Fills)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8753", "Tickflow API URL")
	apiKey := fs.String("api-key", os.Getenv("TICKFLOW_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or TICKFLOW_API_KEY env var.")
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, path, code := loadConfig(*configPath)
	if code != 0 {
		return code
	}

	log.Setup("error")
	result := doctor.New(cfg, path).Validate(context.Background())

	if *jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		printDoctorReport(result)
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func printDoctorReport(r *doctor.Result) {
	for _, e := range r.Errors {
		field := ""
		if e.Field != "" {
			field = " (" + e.Field + ")"
		}
		fmt.Printf("ERROR [%s]%s: %s\n", e.Category, field, e.Message)
	}
	for _, w := range r.Warnings {
		field := ""
		if w.Field != "" {
			field = " (" + w.Field + ")"
		}
		fmt.Printf("WARN  [%s]%s: %s\n", w.Category, field, w.Message)
	}
	if r.Valid {
		fmt.Printf("OK (%d warnings)\n", len(r.Warnings))
	} else {
		fmt.Printf("FAILED (%d errors, %d warnings)\n", len(r.Errors), len(r.Warnings))
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigHelp()
		return 1
	}
	switch args[0] {
	case "lock":
		return runConfigLock(args[1:])
	case "help", "--help", "-h":
		printConfigHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n\n", args[0])
		printConfigHelp()
		return 1
	}
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("config lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := *configPath
	if path == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		path = discovered
	}

	if err := config.WriteChecksums(path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s\n", path)
	return 0
}

func loadConfig(configPath string) (*config.Config, string, int) {
	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return nil, "", 1
		}
		configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, "", 1
	}
	return cfg, configPath, 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: tickflow version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("tickflow %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`tickflow - Deterministic multi-source event dispatcher

Usage:
  tickflow <command> [flags]

Commands:
  run       Start a dispatch run in the foreground
  watch     Real-time run monitoring TUI
  doctor    Validate configuration and bar database
  import    Load OHLCV bars from a CSV file
  config    Configuration management (lock)
  version   Show version information
  help      Show this help

Run 'tickflow <command> --help' for command flags.
`)
}

func printConfigHelp() {
	fmt.Println("Usage: tickflow config <action> [flags]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  lock    Write a .checksums manifest for the config file")
}
