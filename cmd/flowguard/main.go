// Package main provides the flowguard runner: it loads configuration,
// selects scenarios, runs them with guaranteed cleanup and writes a report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/entrhq/flowguard/pkg/browser"
	"github.com/entrhq/flowguard/pkg/config"
	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/overlay"
	"github.com/entrhq/flowguard/pkg/report"
	"github.com/entrhq/flowguard/pkg/scenario"
	"github.com/entrhq/flowguard/pkg/suites"
)

const version = "0.1.0"

// errScenariosFailed marks a run that completed with failing scenarios.
var errScenariosFailed = errors.New("one or more scenarios failed")

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	BaseURL     string
	APIBaseURL  string
	Suite       string
	Run         string
	Parallel    int
	Headless    bool
	OutputDir   string
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("flowguard v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Scenarios already running still tear down after a cancel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	err := run(ctx, cli)
	cancel()
	if err != nil {
		if !errors.Is(err, errScenariosFailed) {
			log.Printf("Execution failed: %v", err)
		}
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{set: map[string]bool{}}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.BaseURL, "base-url", "", "Web application base URL")
	flag.StringVar(&cli.APIBaseURL, "api-base-url", "", "Backend API base URL")
	flag.StringVar(&cli.Suite, "suite", suites.SuiteAll, "Suite to run: api, ui, hybrid or all")
	flag.StringVar(&cli.Run, "run", "", "Glob over scenario ids, e.g. 'API-USER-*'")
	flag.IntVar(&cli.Parallel, "parallel", 0, "Maximum concurrently running scenarios")
	flag.BoolVar(&cli.Headless, "headless", true, "Run the browser without a window")
	flag.StringVar(&cli.OutputDir, "output", "", "Directory for results.json and summary.md")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flowguard - end-to-end checks with guaranteed cleanup\n\n")
		fmt.Fprintf(os.Stderr, "Usage: flowguard [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Backend checks only\n")
		fmt.Fprintf(os.Stderr, "  flowguard -suite api\n\n")
		fmt.Fprintf(os.Stderr, "  # One scenario against a local deployment\n")
		fmt.Fprintf(os.Stderr, "  flowguard -run HYBRID-001 -base-url http://localhost:8080 -api-base-url http://localhost:8080/api/\n\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })
	return cli
}

// loadConfig loads the configuration file and applies explicit flags on top.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return nil, err
	}

	if cli.set["base-url"] {
		cfg.BaseURL = cli.BaseURL
	}
	if cli.set["api-base-url"] {
		cfg.APIBaseURL = cli.APIBaseURL
	}
	if cli.set["parallel"] {
		cfg.Parallel = cli.Parallel
	}
	if cli.set["headless"] {
		cfg.Headless = cli.Headless
	}
	if cli.set["output"] {
		cfg.Artifacts.Enabled = true
		cfg.Artifacts.OutputDir = cli.OutputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run executes the selected scenarios
//
//nolint:gocyclo
func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// A logger is returned even on error, falling back to stderr
	logger, _ := logging.NewLogger("flowguard")
	defer logger.Close()
	level, _ := logging.ParseLevel(cfg.Logging.Verbosity)
	logger.SetLevel(level)

	selected, err := suites.Select(cli.Suite, cli.Run)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no scenarios in suite %q match %q", cli.Suite, cli.Run)
	}

	clientOpts := []gateway.Option{gateway.WithTimeout(cfg.Timeouts.Request)}
	runnerOpts := []scenario.Option{
		scenario.WithTimeouts(cfg.Timeouts.Scenario, cfg.Timeouts.Teardown),
		scenario.WithIdentityPrefix(cfg.IdentityPrefix),
		scenario.WithLogger(logger),
	}

	// The driver serves both browser sessions and the playwright transport
	needsBrowser := suites.NeedsBrowser(selected)
	if needsBrowser || cfg.Transport == config.TransportPlaywright {
		manager := browser.NewSessionManager(browser.ManagerOptions{
			Headless:    cfg.Headless,
			MaxSessions: cfg.Parallel,
		}, logger.With("browser"))
		if err := manager.Initialize(); err != nil {
			return fmt.Errorf("failed to start browser driver: %w", err)
		}
		defer func() {
			if err := manager.Shutdown(); err != nil {
				logger.Warnf("browser shutdown: %v", err)
			}
		}()

		if cfg.Transport == config.TransportPlaywright {
			clientOpts = append(clientOpts, gateway.WithPlaywright(manager.Playwright()))
		}
		if needsBrowser {
			runnerOpts = append(runnerOpts, scenario.WithBrowsers(scenario.ManagedBrowsers(manager, browser.SessionOptions{
				BaseURL:           cfg.BaseURL,
				Timeout:           cfg.Timeouts.Action,
				NavigationTimeout: cfg.Timeouts.Navigation,
			})))
		}
	}

	layer, err := overlay.NewLayer(
		overlay.WithMarkers(cfg.Overlay.InterstitialMarkers...),
		overlay.WithTimeouts(cfg.Timeouts.OverlayCheck, cfg.Timeouts.OverlayDismiss),
		overlay.WithBudget(cfg.Timeouts.OverlayBudget),
		overlay.WithSettle(cfg.Timeouts.OverlaySettle),
		overlay.WithLogger(logger.With("overlay")),
	)
	if err != nil {
		return err
	}

	console := report.NewConsole(os.Stdout)
	var consoleMu sync.Mutex
	runnerOpts = append(runnerOpts,
		scenario.WithClientOptions(clientOpts...),
		scenario.WithLayer(layer),
		scenario.WithFinishHook(func(r *report.ScenarioReport) {
			consoleMu.Lock()
			defer consoleMu.Unlock()
			console.ScenarioFinished(r)
		}),
	)

	runner, err := scenario.NewRunner(cfg.APIBaseURL, runnerOpts...)
	if err != nil {
		return err
	}

	suiteName := cli.Suite
	if cli.Run != "" {
		suiteName += " (" + cli.Run + ")"
	}
	logger.Infof("running %d scenarios from %s (parallel %d, transport %s)", len(selected), suiteName, cfg.Parallel, cfg.Transport)
	console.Header(suiteName, len(selected))

	suiteReport := report.NewSuiteReport(suiteName, logger.RunID())
	suiteReport.Finish(runner.RunSuite(ctx, selected, cfg.Parallel))
	console.Summary(suiteReport)

	if cfg.Artifacts.Enabled {
		writer := report.NewArtifactWriter(cfg.Artifacts.OutputDir).Formats(cfg.Artifacts.JSON, cfg.Artifacts.Markdown)
		if err := writer.WriteAll(suiteReport); err != nil {
			logger.Errorf("failed to write artifacts: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: failed to write artifacts: %v\n", err)
		}
	}

	if suiteReport.Failed() {
		return errScenariosFailed
	}
	return nil
}
