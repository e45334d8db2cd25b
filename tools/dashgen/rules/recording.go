package rules

// RecordingRules precomputes the rates shared by dashboards and alerts.
func RecordingRules() PrometheusRule {
	return newResource("mps-recording-rules",
		record("mps:http_requests:rate5m", `sum(rate(mps_http_requests_total[5m]))`),
		record("mps:http_errors:rate5m", `sum(rate(mps_http_requests_total{status=~"5.."}[5m]))`),
		record("mps:platform_calls:rate5m", `sum by (platform, outcome) (rate(mps_platform_calls_total[5m]))`),
		record("mps:sync_records:rate5m", `sum by (kind, platform) (rate(mps_sync_records_total[5m]))`),
		record("mps:sink_quota:rate5m", `sum(rate(mps_sink_attempts_total{outcome="quota"}[5m]))`),
	)
}
