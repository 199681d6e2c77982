package prometheus

import (
	"time"

	"github.com/coredock/coredock/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type toolMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewToolMetrics creates the MCP tool-dispatch metrics, nil when
// collection is disabled.
func NewToolMetrics() metrics.ToolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &toolMetrics{
		calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coredock_tool_calls_total",
				Help: "Total MCP tool calls by tool and error code",
			},
			[]string{"tool", "error_code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coredock_tool_call_duration_seconds",
				Help: "MCP tool call duration in seconds",
				// Analyses and reports run debugger commands for minutes
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"tool"},
		),
	}
}

func (m *toolMetrics) RecordCall(tool string, duration time.Duration, errorCode string) {
	if errorCode == "" {
		errorCode = "none"
	}
	m.calls.WithLabelValues(tool, errorCode).Inc()
	m.duration.WithLabelValues(tool).Observe(duration.Seconds())
}

type debuggerMetrics struct {
	spawns   *prometheus.CounterVec
	deaths   *prometheus.CounterVec
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewDebuggerMetrics creates the debugger lifecycle metrics, nil when
// collection is disabled.
func NewDebuggerMetrics() metrics.DebuggerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &debuggerMetrics{
		spawns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coredock_debugger_spawns_total",
				Help: "Debugger subprocesses spawned by kind",
			},
			[]string{"kind"},
		),
		deaths: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coredock_debugger_deaths_total",
				Help: "Debugger subprocesses that died outside Close by kind",
			},
			[]string{"kind"},
		),
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coredock_debugger_commands_total",
				Help: "Debugger commands executed by kind and error code",
			},
			[]string{"kind", "error_code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coredock_debugger_command_duration_seconds",
				Help: "Debugger command duration in seconds",
				Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
			},
			[]string{"kind"},
		),
	}
}

func (m *debuggerMetrics) RecordSpawn(kind string) {
	m.spawns.WithLabelValues(kind).Inc()
}

func (m *debuggerMetrics) RecordDeath(kind string) {
	m.deaths.WithLabelValues(kind).Inc()
}

func (m *debuggerMetrics) RecordCommand(kind string, duration time.Duration, errorCode string) {
	if errorCode == "" {
		errorCode = "none"
	}
	m.commands.WithLabelValues(kind, errorCode).Inc()
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
}
