package httpmiddleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument records a request counter and a latency histogram on the given
// meter, labeled by method and status code.
func Instrument(name string, mp metric.MeterProvider) Middleware {
	meter := mp.Meter(name)
	requests, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Handled HTTP requests"),
	)
	latency, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.Int("http.status_code", sw.status),
			)
			requests.Add(r.Context(), 1, attrs)
			latency.Record(r.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
		})
	}
}
