package metrics

import (
	"testing"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HealthzUp)
	assert.NotNil(t, ReadyzUp)
	assert.NotNil(t, PlatformCallsTotal)
	assert.NotNil(t, PlatformCallDuration)
	assert.NotNil(t, TokenRefreshesTotal)
	assert.NotNil(t, FetchPagesTotal)
	assert.NotNil(t, FetchDuplicatesTotal)
	assert.NotNil(t, FetchOmissionsTotal)
	assert.NotNil(t, SinkAttemptsTotal)
	assert.NotNil(t, SinkRotationsTotal)
	assert.NotNil(t, SinkBackoffSeconds)
	assert.NotNil(t, SyncRunsTotal)
	assert.NotNil(t, SyncRecordsTotal)
	assert.NotNil(t, SyncDuration)
}

func TestSinkBackoffGauge(t *testing.T) {
	t.Parallel()

	SinkBackoffSeconds.Set(6)
	assert.InDelta(t, 6.0, ptestutil.ToFloat64(SinkBackoffSeconds), 0)
}
