package api

import (
	"time"

	"github.com/coredock/coredock/internal/bytesize"
)

// APIConfig configures the HTTP API server (REST surface + MCP mount).
type APIConfig struct {
	// Port is the HTTP listen port.
	// Default: 8080
	Port int

	// Key is the shared API key checked against the X-API-Key header.
	// Empty disables authentication.
	Key string

	// MaxRequestBodySize caps uploads (dumps, symbols, executables).
	// Default: 2Gi
	MaxRequestBodySize bytesize.ByteSize

	// ReadTimeout bounds request header reads.
	// Default: 30s
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes. Zero disables it; tool calls
	// and report generation can run for minutes.
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration
}

// applyDefaults fills in zero values. Idempotent with the defaults
// applied during config loading, so directly constructed servers work
// the same way.
func (c *APIConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.MaxRequestBodySize == 0 {
		c.MaxRequestBodySize = 2 * bytesize.GiB
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
}
