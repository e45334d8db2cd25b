// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/marketplace-sync/tools/dashgen/panels"
)

// BuildOverview constructs the marketplace-sync overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Marketplace Sync Overview").
		Uid("mps-overview").
		Tags([]string{"mps", "marketplace-sync"}).
		Refresh("1m").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.SyncFailuresStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Marketplace APIs").
		WithPanel(panels.PlatformCallRate()).
		WithPanel(panels.PlatformLatency()).
		WithPanel(panels.TokenRefreshes()))

	b.WithRow(dashboard.NewRowBuilder("Tokens").
		WithPanel(panels.AccessTokenRemaining()).
		WithPanel(panels.RefreshTokenRemaining()))

	b.WithRow(dashboard.NewRowBuilder("Sync").
		WithPanel(panels.SyncRuns()).
		WithPanel(panels.SyncRecords()).
		WithPanel(panels.SyncDuration()).
		WithPanel(panels.FetchQuality()))

	b.WithRow(dashboard.NewRowBuilder("Spreadsheet Sink").
		WithPanel(panels.SinkAttempts()).
		WithPanel(panels.SinkBackoff()).
		WithPanel(panels.SinkRotations()))

	b.WithRow(dashboard.NewRowBuilder("Scheduler").
		WithPanel(panels.NextRuns()).
		WithPanel(panels.LockSkips()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
