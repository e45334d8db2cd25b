package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PlatformCallRate returns a timeseries panel of marketplace API calls by
// platform and outcome.
func PlatformCallRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("API Calls").
		Description("Marketplace API calls per second by platform and outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`mps:platform_calls:rate5m`, "{{platform}} {{outcome}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// PlatformLatency returns a timeseries panel of p95 marketplace API latency.
func PlatformLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("API Latency (p95)").
		Description("95th percentile marketplace API call duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(mps_platform_call_duration_seconds_bucket{job="marketplace-sync"}[5m])) by (le, platform))`,
			"{{platform}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// TokenRefreshes returns a timeseries panel of token refresh exchanges.
func TokenRefreshes() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Token Refreshes").
		Description("Refresh exchanges per hour by platform and result").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(mps_token_refreshes_total{job="marketplace-sync"}[1h])) by (platform, result)`,
			"{{platform}} {{result}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// AccessTokenRemaining returns a bar gauge of the time left on each access
// token. Absent tokens read as negative.
func AccessTokenRemaining() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Access Token Remaining").
		Description("Time until each platform's access token expires").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(sel("mps_token_access_expiry_timestamp")+` - time()`, "{{platform}}", "A")).
		Unit("s").
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsRedGreen(600)).
		ColorScheme(ColorSchemeThresholds())
}

// RefreshTokenRemaining returns a bar gauge of the time left before each
// platform needs to be reauthorized.
func RefreshTokenRemaining() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Refresh Token Remaining").
		Description("Time until each platform requires reauthorization").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(sel("mps_token_refresh_expiry_timestamp")+` - time()`, "{{platform}}", "A")).
		Unit("s").
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsRedGreen(3 * 24 * 3600)).
		ColorScheme(ColorSchemeThresholds())
}
