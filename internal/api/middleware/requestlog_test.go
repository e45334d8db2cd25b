package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HandlerFunc, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)
	for k, v := range header {
		req.Header.Set(k, v[0])
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(echo.New().NewContext(req, rec)))
	return rec
}

func TestRequestLog_Fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		status     int
		header     http.Header
		wantFields []string
		wantID     string
	}{
		{
			name:   "generated id",
			method: http.MethodGet,
			path:   "/api/v1/credentials",
			status: http.StatusOK,
			wantFields: []string{
				"level=INFO", "method=GET", "path=/api/v1/credentials",
				"status=200", "duration_ms=", "request_id=",
			},
		},
		{
			name:       "sync trigger",
			method:     http.MethodPost,
			path:       "/api/v1/sync/orders/lazada",
			status:     http.StatusAccepted,
			wantFields: []string{"method=POST", "status=202"},
		},
		{
			name:       "caller supplied id",
			method:     http.MethodGet,
			path:       "/api/v1/jobs",
			status:     http.StatusOK,
			header:     http.Header{requestIDHeader: {"run-7f3a"}},
			wantFields: []string{"request_id=run-7f3a"},
			wantID:     "run-7f3a",
		},
		{
			name:       "upstream failure",
			method:     http.MethodPost,
			path:       "/api/v1/sync/wallet",
			status:     http.StatusBadGateway,
			wantFields: []string{"level=WARN", "status=502"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			var ctxID any
			h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
				ctxID = c.Get(requestIDKey)
				return c.NoContent(tt.status)
			})

			rec := serve(t, h, tt.method, tt.path, tt.header)

			for _, f := range tt.wantFields {
				assert.Contains(t, buf.String(), f)
			}
			got := rec.Header().Get(requestIDHeader)
			require.NotEmpty(t, got)
			assert.Equal(t, got, ctxID)
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, got)
			}
		})
	}
}

func TestRequestLog_Probes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		statuses []int
		wantLogs int
	}{
		{name: "healthy healthz logs once", path: "/healthz", statuses: []int{200, 200, 200}, wantLogs: 1},
		{name: "failing readyz always logs", path: "/readyz", statuses: []int{503, 503}, wantLogs: 2},
		{name: "failure after suppressed success", path: "/readyz", statuses: []int{200, 200, 503}, wantLogs: 2},
		{name: "recovery is logged", path: "/readyz", statuses: []int{200, 503, 200, 200}, wantLogs: 3},
		{name: "api paths never suppressed", path: "/api/v1/sink/budget", statuses: []int{200, 200}, wantLogs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			call := 0
			h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
				status := tt.statuses[call]
				call++
				return c.NoContent(status)
			})

			for range tt.statuses {
				serve(t, h, http.MethodGet, tt.path, nil)
			}

			assert.Equal(t, tt.wantLogs, strings.Count(buf.String(), "msg=request"))
		})
	}
}

func TestRequestLog_StoresIDInRequestContext(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestLog(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(func(c echo.Context) error {
		seen = RequestID(c.Request().Context())
		return c.NoContent(http.StatusAccepted)
	})

	serve(t, h, http.MethodPost, "/api/v1/sync/orders/shopee", http.Header{requestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", seen)
}

func TestRequestLog_HandlerErrorRendered(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "sheets down")
	})

	rec := serve(t, h, http.MethodGet, "/api/v1/sink/budget", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=502")
}

func TestRequestID_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RequestID(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))
}
