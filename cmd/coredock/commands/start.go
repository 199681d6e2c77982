package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/internal/telemetry"
	"github.com/coredock/coredock/pkg/api"
	"github.com/coredock/coredock/pkg/config"
	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/hostinfo"
	"github.com/coredock/coredock/pkg/mcptools"
	"github.com/coredock/coredock/pkg/metrics"
	"github.com/coredock/coredock/pkg/metrics/prometheus"
	"github.com/coredock/coredock/pkg/session"
	"github.com/coredock/coredock/pkg/symbols"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Coredock server",
	Long: `Start the Coredock server with the specified configuration.

The server runs in the foreground and stops on SIGINT or SIGTERM. Use
--config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/coredock/config.yaml.

Examples:
  # Start with the default config file
  coredock start

  # Start with custom config file
  coredock start --config /etc/coredock/config.yaml

  # Start with environment variable overrides
  COREDOCK_LOGGING_LEVEL=DEBUG coredock start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "coredock",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "coredock",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	fmt.Println("Coredock - Remote crash-dump debugging service")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics (if enabled)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	// Probe the host and warn early when the debugger is missing
	host := hostinfo.Probe("/etc/alpine-release")
	dbgKind, dbgPath := platformDebugger(&cfg.Debugger)
	if !hostinfo.DebuggerAvailable(dbgPath) {
		logger.Warn("debugger binary not found, sessions will fail to open dumps",
			logger.Debugger(string(dbgKind)), logger.Path(dbgPath))
	}
	runtimeVersion := hostinfo.RuntimeVersion(ctx)
	logger.Info("Host probed",
		"platform", host.Platform, "arch", host.Arch,
		"alpine", host.IsAlpine, "debugger", host.Debugger,
		"dotnet", runtimeVersion)

	// Open the dump and symbol stores under the storage root
	dumps, err := dump.New(dump.Config{
		Root:        filepath.Join(cfg.Storage.Root, "dumps"),
		MaxDumpSize: int64(cfg.Storage.MaxDumpSize),
	})
	if err != nil {
		return fmt.Errorf("failed to open dump store: %w", err)
	}
	defer func() {
		if err := dumps.Close(); err != nil {
			logger.Error("dump store close error", logger.Err(err))
		}
	}()

	syms, err := symbols.New(filepath.Join(cfg.Storage.Root, "symbols"))
	if err != nil {
		return fmt.Errorf("failed to open symbol store: %w", err)
	}

	// Create the session manager; it reloads persisted sessions
	mgr, err := session.NewManager(session.Config{
		Root:                cfg.Storage.Root,
		MaxPerUser:          cfg.Session.MaxPerUser,
		IdleTTL:             cfg.Session.IdleTTL,
		ToolTimeout:         cfg.Session.ToolTimeout,
		TickInterval:        cfg.Session.TickInterval,
		DefaultSymbolServer: cfg.Symbols.DefaultServer,
		Debugger: debugger.Config{
			Kind:           dbgKind,
			Path:           dbgPath,
			SOSPluginPath:  cfg.Debugger.SOSPluginPath,
			SpawnTimeout:   cfg.Debugger.SpawnTimeout,
			DefaultTimeout: cfg.Session.ToolTimeout,
		},
		Metrics: prometheus.NewDebuggerMetrics(),
	}, dumps, syms)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	defer mgr.Shutdown()

	// Deleting a dump that an open session holds must fail with a conflict
	dumps.SetSessionRegistry(mgr)

	// Idle session eviction loop
	go mgr.Run(ctx)

	logger.Info("Session manager initialized",
		"sessions", mgr.SessionCount(),
		"max_per_user", cfg.Session.MaxPerUser,
		"idle_ttl", cfg.Session.IdleTTL)

	// Scrape-time store and session gauges
	prometheus.RegisterStatsCollector(dumps, mgr)

	// Standalone metrics server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Info("Metrics server listening", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", logger.Err(err))
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error("metrics server shutdown error", logger.Err(err))
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// MCP tool dispatcher, mounted on the API server at /mcp
	mcpServer := mcptools.New(mcptools.Deps{
		Sessions: mgr,
		Dumps:    dumps,
		Host:     host,
		Version:  Version,
		Tools:    prometheus.NewToolMetrics(),
	})

	apiServer := api.NewServer(api.APIConfig(cfg.API), api.Deps{
		Dumps:          dumps,
		Symbols:        syms,
		Host:           host,
		Version:        Version,
		RuntimeVersion: runtimeVersion,
		MCP:            mcpServer.HTTPHandler(),
		HTTPMetrics:    prometheus.NewHTTPMetrics(),
	})
	logger.Info("API server configured", "port", apiServer.Port(), "auth", cfg.API.Key != "")

	// Serve until signalled or the listener fails
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// platformDebugger picks the debugger backend for the host OS.
func platformDebugger(cfg *config.DebuggerConfig) (debugger.Kind, string) {
	if runtime.GOOS == "windows" {
		return debugger.KindCDB, cfg.CDBPath
	}
	return debugger.KindLLDB, cfg.LLDBPath
}
