package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"texlsp/internal/buildpipeline"
	"texlsp/internal/config"
	"texlsp/internal/diagnostics"
	"texlsp/internal/logfields"
	"texlsp/internal/metrics"
)

// env is the process-wide state shared by every subcommand.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	registry *prometheus.Registry
	cleanup  []func()
}

var current *env

func setupRuntime(cmd *cobra.Command, _ []string) error {
	root := cmd.Root().PersistentFlags()
	configPath, err := root.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Resolve(configPath, ".")
	if err != nil {
		return err
	}
	if level, _ := root.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if addr, _ := root.GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if err := applyColorFlag(cmd); err != nil {
		return err
	}

	level, err := parseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	e := &env{cfg: cfg, logger: logger, recorder: metrics.NoopRecorder{}}
	current = e
	if cfg.Path != "" {
		logger.Debug("loaded config", slog.String("path", cfg.Path))
	}

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	e.cleanup = append(e.cleanup, traceCleanup)

	if cfg.Metrics.Addr != "" {
		if err := e.startMetrics(cfg.Metrics.Addr); err != nil {
			return err
		}
	}
	return nil
}

func teardownRuntime(_ *cobra.Command, _ []string) error {
	if current == nil {
		return nil
	}
	for i := len(current.cleanup) - 1; i >= 0; i-- {
		current.cleanup[i]()
	}
	current.cleanup = nil
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", value)
	}
}

func applyColorFlag(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(value) {
	case "", "auto":
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}

// startMetrics exposes /metrics until teardown.
func (e *env) startMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	e.registry = reg
	e.recorder = metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server stopped", logfields.Error(err))
		}
	}()
	e.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	e.cleanup = append(e.cleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return nil
}

func (e *env) buildOptions() buildpipeline.Options {
	opts := buildpipeline.DefaultOptions()
	if e.cfg.Build.Executable != "" {
		opts.Executable = e.cfg.Build.Executable
	}
	if e.cfg.Build.Args != nil {
		opts.Args = e.cfg.Build.Args
	}
	return opts
}

// newManager builds the enabled linters in report order: chktex, then hunspell.
func (e *env) newManager() *diagnostics.Manager {
	var linters []*diagnostics.Linter
	for _, entry := range []struct {
		tool diagnostics.Tool
		cfg  config.ToolConfig
	}{
		{diagnostics.Chktex(), e.cfg.Lint.Chktex},
		{diagnostics.Hunspell(), e.cfg.Lint.Hunspell},
	} {
		if !entry.cfg.IsEnabled() {
			continue
		}
		tool := entry.tool
		if entry.cfg.Executable != "" {
			tool.Command.Name = entry.cfg.Executable
		}
		if entry.cfg.Args != nil {
			tool.Command.Args = entry.cfg.Args
		}
		if entry.cfg.Interval.IsSet() {
			tool.Interval = entry.cfg.Interval.Duration
		}
		linters = append(linters, diagnostics.NewLinter(tool, diagnostics.LinterOptions{
			Recorder: e.recorder,
			Logger:   e.logger,
		}))
	}
	return diagnostics.NewManager(linters...)
}

// openStore returns nil when persistence is disabled or unavailable.
func (e *env) openStore() *diagnostics.DiskStore {
	if e.cfg.Cache.Disabled {
		return nil
	}
	store, err := diagnostics.OpenDiskStore(e.cfg.Cache.Dir, "texlsp")
	if err != nil {
		e.logger.Warn("diagnostics cache disabled", logfields.Error(err))
		return nil
	}
	return store
}

func (e *env) restore(store *diagnostics.DiskStore, m *diagnostics.Manager) {
	ok, err := store.Load(m)
	switch {
	case err != nil:
		e.logger.Warn("failed to restore diagnostics", logfields.Error(err))
	case ok:
		e.logger.Debug("restored diagnostics", slog.String("path", store.Path()))
	}
}

func (e *env) persist(store *diagnostics.DiskStore, m *diagnostics.Manager) {
	if err := store.Save(m); err != nil {
		e.logger.Warn("failed to persist diagnostics", logfields.Error(err))
	}
}
