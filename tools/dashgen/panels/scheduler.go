package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// NextRuns returns a bar gauge of the time until each scheduled job runs.
func NextRuns() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Next Scheduled Runs").
		Description("Time until each scheduled job runs").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(TSWidth).
		WithTarget(PromQuery(sel("mps_scheduler_next_run_timestamp")+` - time()`, "{{job_name}}", "A")).
		Unit("s").
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// LockSkips returns a stat panel counting runs skipped because another
// replica held the job lock.
func LockSkips() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Lock Skips (24h)").
		Description("Scheduled runs skipped because another replica held the lock").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(increase(mps_scheduler_lock_skips_total{job="marketplace-sync"}[24h])) by (job_name)`,
			"{{job_name}}", "A",
		)).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeNone)
}
