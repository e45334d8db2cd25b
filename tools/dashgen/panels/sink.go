package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SinkAttempts returns a timeseries panel of spreadsheet calls by outcome.
func SinkAttempts() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sheet Calls").
		Description("Spreadsheet mutating calls per minute by outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(mps_sink_attempts_total{job="marketplace-sync"}[5m])) by (outcome) * 60`,
			"{{outcome}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SinkBackoff returns a stat panel of the current delay between sheet calls.
func SinkBackoff() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Sheet Call Delay").
		Description("Current minimum delay between spreadsheet calls").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(sel("mps_sink_backoff_seconds"), "", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(5, 30)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// SinkRotations returns a stat panel counting credential rotations in the
// last day.
func SinkRotations() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Credential Rotations (24h)").
		Description("Times the sink moved to the next service account after quota failures").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`increase(`+sel("mps_sink_credential_rotations_total")+`[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
