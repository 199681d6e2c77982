package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/api/handlers"
	"github.com/coredock/coredock/pkg/api/middleware"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/hostinfo"
	"github.com/coredock/coredock/pkg/metrics"
	"github.com/coredock/coredock/pkg/symbols"
)

// Deps carries everything the router serves.
type Deps struct {
	Dumps   *dump.Store
	Symbols *symbols.Store

	// Host describes the debugging host for the capabilities endpoints.
	Host hostinfo.Info

	// Version is the server build version.
	Version string

	// RuntimeVersion is the managed runtime detected at startup, empty
	// when none is installed.
	RuntimeVersion string

	// MCP, when set, is mounted at /mcp behind the API key check.
	MCP http.Handler

	// HTTPMetrics, when set, records per-request metrics.
	HTTPMetrics metrics.HTTPMetrics
}

// NewRouter builds the chi router: health unauthenticated, everything
// under /api and /mcp behind the API key, uploads capped by
// MaxRequestBodySize.
func NewRouter(cfg APIConfig, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack, order matters
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(deps.HTTPMetrics))

	r.Get("/health", handlers.Health)

	serverHandler := handlers.NewServerHandler(deps.Host, deps.Version, deps.RuntimeVersion)
	dumpsHandler := handlers.NewDumpsHandler(deps.Dumps)
	symbolsHandler := handlers.NewSymbolsHandler(deps.Symbols)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Key))

		r.Route("/server", func(r chi.Router) {
			r.Get("/capabilities", serverHandler.Capabilities)
			r.Get("/info", serverHandler.Info)
		})

		r.Route("/dumps", func(r chi.Router) {
			r.With(bodyLimit(cfg)).Post("/upload", dumpsHandler.Upload)
			r.Get("/stats", dumpsHandler.Stats)
			r.Get("/user/{userId}", dumpsHandler.List)
			r.Get("/{userId}/{dumpId}", dumpsHandler.Get)
			r.Delete("/{userId}/{dumpId}", dumpsHandler.Delete)
			r.With(bodyLimit(cfg)).Post("/{userId}/{dumpId}/binary", dumpsHandler.UploadBinary)
		})

		r.Route("/symbols", func(r chi.Router) {
			r.With(bodyLimit(cfg)).Post("/upload", symbolsHandler.Upload)
			r.With(bodyLimit(cfg)).Post("/upload-batch", symbolsHandler.UploadBatch)
			r.With(bodyLimit(cfg)).Post("/upload-zip", symbolsHandler.UploadZip)
			r.Get("/dump/{dumpId}", symbolsHandler.List)
			r.Get("/dump/{dumpId}/exists", symbolsHandler.Exists)
			r.Delete("/dump/{dumpId}", symbolsHandler.Clear)
			r.Get("/servers", symbolsHandler.Servers)
		})
	})

	if deps.MCP != nil {
		r.Route("/mcp", func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.Key))
			r.Handle("/*", deps.MCP)
			r.Handle("/", deps.MCP)
		})
	}

	return r
}

// bodyLimit caps upload bodies at MaxRequestBodySize. The store's own
// size cap still applies underneath; this bound covers multipart
// overhead and protects the spool.
func bodyLimit(cfg APIConfig) func(http.Handler) http.Handler {
	limit := int64(cfg.MaxRequestBodySize)
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs request start at DEBUG and completion at INFO with
// the request id, status, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
