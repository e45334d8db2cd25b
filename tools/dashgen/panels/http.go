package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate plots API requests per second.
func RequestRate() *timeseries.PanelBuilder {
	return newTimeseries("Request Rate", "API requests per second", 8).
		WithTarget(PromQuery(`mps:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// LatencyPercentiles plots p50 and p95 API latency. On-demand syncs answer
// after the sink write, so the tail reaches minutes.
func LatencyPercentiles() *timeseries.PanelBuilder {
	q := func(quantile float64) string {
		return fmt.Sprintf(
			`histogram_quantile(%.2f, sum by (le) (rate(mps_http_request_duration_seconds_bucket{job="marketplace-sync"}[5m])))`,
			quantile,
		)
	}
	return newTimeseries("Latency Percentiles", "API request duration", 8).
		WithTarget(PromQuery(q(0.50), "p50", "A")).
		WithTarget(PromQuery(q(0.95), "p95", "B")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ErrorRate plots 5xx responses as a share of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return newTimeseries("Error Rate %", "5xx responses as a percentage of API requests", 8).
		WithTarget(PromQuery(`mps:http_errors:rate5m / mps:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
