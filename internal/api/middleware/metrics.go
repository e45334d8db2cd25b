// Package middleware provides the Echo middleware of the marketplace-sync
// API server: request logging with request IDs, Prometheus metrics and panic
// recovery.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/marketplace-sync/internal/metrics"
)

// probeGauges maps probe paths to their up/down gauge. Probes and /metrics
// are not recorded in the request histogram.
var probeGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

const metricsPath = "/metrics"

// Metrics returns Echo middleware recording request duration and count by
// method, route template and status.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status

			if g, ok := probeGauges[route]; ok {
				g.Set(boolGauge(status < 300 && status >= 200))
				return nil
			}
			if route == metricsPath {
				return nil
			}

			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			return nil
		}
	}
}

func boolGauge(up bool) float64 {
	if up {
		return 1
	}
	return 0
}
