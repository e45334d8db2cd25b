package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// HealthzStat shows the liveness gauge.
func HealthzStat() *stat.PanelBuilder {
	return upStat("Healthz", "Liveness (1 = serving)", "mps_healthz_up")
}

// ReadyzStat shows the readiness gauge, which drops when the credential
// or job store cannot be reached.
func ReadyzStat() *stat.PanelBuilder {
	return upStat("Readyz", "Readiness (1 = backends reachable)", "mps_readyz_up")
}

// SyncFailuresStat counts failed syncs over the last day.
func SyncFailuresStat() *stat.PanelBuilder {
	return newStat(
		"Failed Syncs (24h)",
		"Sync runs that ended in failure during the last 24 hours",
		`sum(increase(mps_sync_runs_total{job="marketplace-sync",result="failure"}[24h]))`,
	).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorMode(common.BigValueColorModeBackground)
}

// UptimeStat shows time since the process started.
func UptimeStat() *stat.PanelBuilder {
	return newStat("Uptime", "Time since process start", `time() - `+sel("process_start_time_seconds")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}
