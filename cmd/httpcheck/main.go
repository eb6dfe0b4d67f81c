package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/y0f/httpcheck/internal/assertion"
	"github.com/y0f/httpcheck/internal/checker"
	"github.com/y0f/httpcheck/internal/config"
	"github.com/y0f/httpcheck/internal/runner"
)

var version = "dev"

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	only := flag.String("check", "", "run only the named check")
	showVersion := flag.Bool("version", false, "print version and exit")
	metricsFile := flag.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flag.Parse()

	if *showVersion {
		fmt.Printf("httpcheck %s\n", version)
		os.Exit(exitOK)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitConfig)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	checks := cfg.Checks
	if *only != "" {
		chk, ok := cfg.LookupCheck(*only)
		if !ok {
			fmt.Fprintf(os.Stderr, "error: no check named %q\n", *only)
			os.Exit(exitConfig)
		}
		checks = []checker.Options{chk}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, checks, logger, os.Stdout, *metricsFile)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, checks []checker.Options, logger *slog.Logger, out io.Writer, metricsFile string) int {
	client := checker.NewHTTPClient(cfg.Client.AllowPrivateTargets, logger)
	defer client.CloseIdleConnections()

	engine := checker.NewEngine(client, cfg.Builder(), logger)
	assertion.Register(engine)

	limiter := rate.NewLimiter(rate.Limit(cfg.Runner.RateLimitPerSec), cfg.Runner.RateLimitBurst)
	reg := prometheus.NewRegistry()
	r := runner.New(engine, cfg.Runner.Workers, limiter, cfg.Runner.CheckTimeout, logger).
		WithMetrics(runner.NewMetrics(reg))

	logger.Info("running checks", "version", version, "checks", len(checks), "workers", cfg.Runner.Workers)
	results := r.Run(ctx, checks)
	printResults(out, results)

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			logger.Error("write metrics", "path", metricsFile, "error", err)
		}
	}
	return exitCode(results)
}

func exitCode(results []runner.Result) int {
	code := exitOK
	for _, res := range results {
		if res.Err != nil {
			return exitConfig
		}
		if res.Verdict.Status == checker.StatusError {
			code = exitFailed
		}
	}
	return code
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
)

func printResults(w io.Writer, results []runner.Result) {
	for _, res := range results {
		if res.Err != nil {
			errColor.Fprintf(w, "%-6s", "FATAL")
			fmt.Fprintf(w, " %s: %v\n", res.Name, res.Err)
			continue
		}

		c := okColor
		switch res.Verdict.Status {
		case checker.StatusWarn:
			c = warnColor
		case checker.StatusError:
			c = errColor
		}
		c.Fprintf(w, "%-6s", strings.ToUpper(string(res.Verdict.Status)))
		fmt.Fprintf(w, " %s (%s)", res.Name, res.Elapsed.Round(time.Millisecond))
		if res.Verdict.Message != "" {
			fmt.Fprintf(w, ": %s", res.Verdict.Message)
		}
		fmt.Fprintln(w)
	}
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
