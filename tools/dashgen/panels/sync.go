package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SyncRuns returns a timeseries panel of sync runs by kind and result.
func SyncRuns() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sync Runs").
		Description("Sync runs per hour by kind, platform and result").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(mps_sync_runs_total{job="marketplace-sync"}[1h])) by (kind, platform, result)`,
			"{{kind}} {{platform}} {{result}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("sum")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// SyncRecords returns a timeseries panel of records written per minute.
func SyncRecords() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Records / min").
		Description("Deduplicated records written to the sink per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`mps:sync_records:rate5m * 60`, "{{kind}} {{platform}}", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SyncDuration returns a timeseries panel of p95 sync duration by kind.
func SyncDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sync Duration (p95)").
		Description("95th percentile sync duration by kind").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(mps_sync_duration_seconds_bucket{job="marketplace-sync"}[1h])) by (le, kind))`,
			"{{kind}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FetchQuality returns a timeseries panel of pages, duplicates and omitted
// windows per endpoint.
func FetchQuality() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Pages, Duplicates and Omissions").
		Description("Hourly page requests, discarded duplicates and skipped windows by endpoint").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(FullWidth).
		WithTarget(PromQuery(
			`sum(increase(mps_fetch_pages_total{job="marketplace-sync"}[1h])) by (endpoint)`,
			"pages {{endpoint}}", "A",
		)).
		WithTarget(PromQuery(
			`sum(increase(mps_fetch_duplicates_total{job="marketplace-sync"}[1h])) by (endpoint)`,
			"duplicates {{endpoint}}", "B",
		)).
		WithTarget(PromQuery(
			`sum(increase(mps_fetch_omissions_total{job="marketplace-sync"}[1h])) by (endpoint)`,
			"omitted {{endpoint}}", "C",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("sum", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
