package lazada_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/internal/platform/lazada"
)

func testCred() credential.Credential {
	return credential.Credential{
		Platform:     credential.Lazada,
		AccessToken:  "tok",
		RefreshToken: "refresh-tok",
		Identity:     credential.Identity{AppKey: "100200", AppSecret: "lazada-secret"},
	}
}

func TestSignature_KnownVector(t *testing.T) {
	t.Parallel()

	got := lazada.Signature("lazada-secret", map[string]string{
		"app_key":      "100200",
		"timestamp":    "1700000000000",
		"sign_method":  "sha256",
		"access_token": "tok",
		"offset":       "0",
		"limit":        "100",
	})
	assert.Equal(t, "B11B1EB99BFBF0B5B41EBA7D696C19FEF619BBF6E13B3636BBCEF5DACED06B1F", got)
}

func TestTransport_Sign(t *testing.T) {
	t.Parallel()

	tr := lazada.New(lazada.WithBaseURL("https://api.test/rest"), lazada.WithAuthURL("https://auth.test/rest"))
	sr, err := tr.Sign(testCred(), platform.Request{
		Endpoint: lazada.PathOrdersGet,
		Params:   map[string]string{"offset": "0", "limit": "100"},
	}, time.UnixMilli(1700000000000))
	require.NoError(t, err)

	assert.Equal(t, "B11B1EB99BFBF0B5B41EBA7D696C19FEF619BBF6E13B3636BBCEF5DACED06B1F", sr.Param("sign"))
	assert.Equal(t, "https://api.test/rest", sr.BaseURL)

	boot, err := tr.Sign(testCred(), platform.Request{
		Endpoint: lazada.PathTokenRefresh,
		Params:   map[string]string{"refresh_token": "r"},
	}, time.UnixMilli(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, "https://auth.test/rest", boot.BaseURL)
	assert.Empty(t, boot.Param("access_token"))
}

func TestTransport_SignPayload(t *testing.T) {
	t.Parallel()

	sr, err := lazada.New().Sign(testCred(), platform.Request{
		Endpoint: "/product/create",
		Body:     map[string]any{"sku": "A1"},
	}, time.UnixMilli(1700000000000))
	require.NoError(t, err)

	assert.JSONEq(t, `{"sku":"A1"}`, sr.Param("payload"))
	assert.Empty(t, sr.Body)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantKind platform.Kind
	}{
		{name: "success", body: `{"code":"0","data":{"orders":[]}}`},
		{name: "token response at top level", body: `{"code":"0","access_token":"a","expires_in":100}`},
		{name: "illegal token", body: `{"code":"IllegalAccessToken","message":"expired"}`, wantKind: platform.KindAuth},
		{name: "call limit", body: `{"code":"ApiCallLimit"}`, wantKind: platform.KindRateLimited},
		{name: "service timeout", body: `{"code":"ServiceTimeout"}`, wantKind: platform.KindTransient},
		{name: "missing param", body: `{"code":"MissingParameter"}`, wantKind: platform.KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, perr := lazada.Normalize([]byte(tt.body))
			if tt.wantKind == 0 {
				require.Nil(t, perr)
				assert.NotEmpty(t, env.Data)
				return
			}
			require.NotNil(t, perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
		})
	}
}

func TestTransport_OffsetContinuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		offset   string
		orders   string
		wantMore bool
		wantCont string
	}{
		{name: "full page advances offset", offset: "200", orders: `[{},{}]`, wantMore: true, wantCont: "202"},
		{name: "short page ends", offset: "0", orders: `[{}]`},
		{name: "empty page ends", offset: "0", orders: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"code":"0","data":{"count":2,"orders":` + tt.orders + `}}`))
			}))
			defer srv.Close()

			tr := lazada.New(lazada.WithBaseURL(srv.URL))
			sr, err := tr.Sign(testCred(), platform.Request{
				Endpoint: lazada.PathOrdersGet,
				Params:   map[string]string{"offset": tt.offset, "limit": "2"},
			}, time.Now())
			require.NoError(t, err)

			env, err := tr.Execute(context.Background(), sr, time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMore, env.HasMore)
			assert.Equal(t, tt.wantCont, env.Continuation)
		})
	}
}

func TestRefresher(t *testing.T) {
	t.Parallel()

	var gotPath, gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRefresh = r.URL.Query().Get("refresh_token")
		_, _ = w.Write([]byte(`{"code":"0","access_token":"new-a","refresh_token":"new-r",` +
			`"expires_in":604800,"refresh_expires_in":2592000,"account":"seller@test","country":"id"}`))
	}))
	defer srv.Close()

	r := lazada.NewRefresher(lazada.New(lazada.WithAuthURL(srv.URL)), time.Second)
	g, err := r.Refresh(context.Background(), testCred())
	require.NoError(t, err)

	assert.Equal(t, lazada.PathTokenRefresh, gotPath)
	assert.Equal(t, "refresh-tok", gotRefresh)
	assert.Equal(t, "new-r", g.RefreshToken)
	assert.Equal(t, 7*24*time.Hour, g.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, g.RefreshTTL)
	assert.Equal(t, "seller@test", g.Identity.SellerName)
	assert.Equal(t, 180*24*time.Hour, r.Lifetimes().Refresh)
}
