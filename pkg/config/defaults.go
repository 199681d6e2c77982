package config

import (
	"strings"
	"time"

	"github.com/coredock/coredock/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyStorageDefaults(&cfg.Storage, &cfg.API)
	applySessionDefaults(&cfg.Session)
	applyDebuggerDefaults(&cfg.Debugger)
	applySymbolsDefaults(&cfg.Symbols)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets HTTP API server defaults.
// The API is always enabled; it is the only way to reach the service.
func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 2 * bytesize.GiB
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// WriteTimeout stays 0 (disabled): report generation can take minutes.
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
}

// applyStorageDefaults sets storage defaults.
// Root has no default and must be configured by the user.
func applyStorageDefaults(cfg *StorageConfig, api *APIConfig) {
	if cfg.MaxDumpSize == 0 {
		cfg.MaxDumpSize = api.MaxRequestBodySize
	}
}

// applySessionDefaults sets session policy defaults.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.MaxPerUser == 0 {
		cfg.MaxPerUser = 3
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = 300 * time.Second
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Minute
	}
}

// applyDebuggerDefaults sets debugger subprocess defaults.
func applyDebuggerDefaults(cfg *DebuggerConfig) {
	if cfg.LLDBPath == "" {
		cfg.LLDBPath = "lldb"
	}
	if cfg.CDBPath == "" {
		cfg.CDBPath = "cdb"
	}
	if cfg.SpawnTimeout == 0 {
		cfg.SpawnTimeout = 120 * time.Second
	}
}

// applySymbolsDefaults sets symbol resolution defaults.
func applySymbolsDefaults(cfg *SymbolsConfig) {
	if cfg.DefaultServer == "" {
		cfg.DefaultServer = "https://msdl.microsoft.com/download/symbols"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{},
		Storage: StorageConfig{
			Root: "/var/lib/coredock",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
