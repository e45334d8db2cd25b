package main

import "errors"

// KnownMetrics is the set of metric names exported by marketplace-sync
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"mps_http_request_duration_seconds": true,
	"mps_http_requests_total":           true,

	// Health metrics.
	"mps_healthz_up": true,
	"mps_readyz_up":  true,

	// Marketplace API metrics.
	"mps_platform_calls_total":           true,
	"mps_platform_call_duration_seconds": true,
	"mps_token_refreshes_total":          true,
	"mps_token_access_expiry_timestamp":  true,
	"mps_token_refresh_expiry_timestamp": true,

	// Fetch metrics.
	"mps_fetch_pages_total":      true,
	"mps_fetch_duplicates_total": true,
	"mps_fetch_omissions_total":  true,

	// Sink metrics.
	"mps_sink_attempts_total":             true,
	"mps_sink_credential_rotations_total": true,
	"mps_sink_backoff_seconds":            true,

	// Sync metrics.
	"mps_sync_runs_total":      true,
	"mps_sync_records_total":   true,
	"mps_sync_duration_seconds": true,

	// Notification metrics.
	"mps_notification_failures_total": true,

	// Scheduler metrics.
	"mps_scheduler_next_run_timestamp": true,
	"mps_scheduler_lock_skips_total":   true,

	// Recording rules.
	"mps:http_requests:rate5m":  true,
	"mps:http_errors:rate5m":    true,
	"mps:platform_calls:rate5m": true,
	"mps:sync_records:rate5m":   true,
	"mps:sink_quota:rate5m":     true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
