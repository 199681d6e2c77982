package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coredock/coredock/pkg/metrics"
)

// Metrics records per-request HTTP metrics labelled by the chi route
// pattern, not the raw path, so ids never explode label cardinality.
// A nil HTTPMetrics disables collection entirely.
func Metrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Route pattern is only known after routing; the in-flight
			// gauge tracks by method alone to keep labels bounded.
			m.RecordRequestStart(r.Method, "*")
			next.ServeHTTP(ww, r)
			m.RecordRequestEnd(r.Method, "*")

			pattern := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					pattern = p
				}
			}
			m.RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
		})
	}
}
