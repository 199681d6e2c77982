package prometheus

import (
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// DumpStatser is the slice of the dump store the collector reads.
type DumpStatser interface {
	Stats() (*dump.Stats, error)
}

// SessionCounter is the slice of the session manager the collector reads.
type SessionCounter interface {
	SessionCount() int
}

// statsCollector exports store and session gauges computed at scrape
// time, so the stores stay free of metrics plumbing.
type statsCollector struct {
	dumps    DumpStatser
	sessions SessionCounter

	dumpsTotal   *prometheus.Desc
	dumpBytes    *prometheus.Desc
	dumpsFormat  *prometheus.Desc
	sessionsLive *prometheus.Desc
}

// RegisterStatsCollector registers the scrape-time gauges. A no-op when
// collection is disabled.
func RegisterStatsCollector(dumps DumpStatser, sessions SessionCounter) {
	if !metrics.IsEnabled() {
		return
	}
	metrics.GetRegistry().MustRegister(&statsCollector{
		dumps:    dumps,
		sessions: sessions,
		dumpsTotal: prometheus.NewDesc(
			"coredock_dumps_stored",
			"Dumps currently stored", nil, nil),
		dumpBytes: prometheus.NewDesc(
			"coredock_dump_bytes_stored",
			"Total bytes of stored dumps", nil, nil),
		dumpsFormat: prometheus.NewDesc(
			"coredock_dumps_stored_by_format",
			"Dumps currently stored by format", []string{"format"}, nil),
		sessionsLive: prometheus.NewDesc(
			"coredock_sessions_active",
			"Sessions currently registered", nil, nil),
	})
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.dumpsTotal
	ch <- c.dumpBytes
	ch <- c.dumpsFormat
	ch <- c.sessionsLive
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.sessions != nil {
		ch <- prometheus.MustNewConstMetric(c.sessionsLive,
			prometheus.GaugeValue, float64(c.sessions.SessionCount()))
	}
	if c.dumps == nil {
		return
	}
	stats, err := c.dumps.Stats()
	if err != nil {
		return // scrape-time failure drops the dump gauges, nothing else
	}
	ch <- prometheus.MustNewConstMetric(c.dumpsTotal,
		prometheus.GaugeValue, float64(stats.TotalDumps))
	ch <- prometheus.MustNewConstMetric(c.dumpBytes,
		prometheus.GaugeValue, float64(stats.TotalBytes))
	for format, count := range stats.PerFormat {
		ch <- prometheus.MustNewConstMetric(c.dumpsFormat,
			prometheus.GaugeValue, float64(count), string(format))
	}
}
