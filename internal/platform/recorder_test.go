package platform_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/pkg/logger"
)

func TestRecorder_WritesRedactedEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := platform.NewRecorder(dir, 4, logger.Discard())

	r.Record(platform.Entry{
		Platform: credential.Shopee,
		Endpoint: "/api/v2/order/get_order_list",
		Params: platform.SortedParams(map[string]string{
			"access_token": "secret-token",
			"page_size":    "100",
			"sign":         "abc",
		}),
		Status:    200,
		Response:  []byte(`{"response":{"more":false}}`),
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	r.Close()

	files, err := filepath.Glob(filepath.Join(dir, "shopee", "api_v2_order_get_order_list_20250102_030405*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	params := doc["params"].(map[string]any)
	assert.Equal(t, "[REDACTED]", params["access_token"])
	assert.Equal(t, "100", params["page_size"])
	assert.InDelta(t, 200, doc["status"], 0)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var r *platform.Recorder
	r.Record(platform.Entry{})
	r.Close()
	assert.Zero(t, r.Dropped())
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	r := platform.NewRecorder(t.TempDir(), 1, logger.Discard())
	r.Close()
	r.Close()
}
