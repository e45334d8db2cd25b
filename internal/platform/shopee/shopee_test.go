package shopee_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/internal/platform/shopee"
)

var signTime = time.Unix(1700000000, 0)

func testCred() credential.Credential {
	return credential.Credential{
		Platform:     credential.Shopee,
		AccessToken:  "access-tok",
		RefreshToken: "refresh-tok",
		Identity: credential.Identity{
			PartnerID:  "2001",
			PartnerKey: "test-partner-key",
			ShopID:     "42",
		},
	}
}

func TestSignature_KnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  string
		extra string
		want  string
	}{
		{
			name:  "shop call",
			path:  shopee.PathOrderList,
			extra: "access-tok42",
			want:  "7b0d761c22b102ea4fdda126930b33a9131efbab4ce8b1ae50b5bb52288ba728",
		},
		{
			name: "bootstrap call",
			path: shopee.PathAccessTokenGet,
			want: "a348a122709fdddaf7be9b4b9ff76ef7ecd9dcaa8d2afbca6180f7da4f660686",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := shopee.Signature("test-partner-key", "2001", tt.path, 1700000000, tt.extra)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransport_Sign(t *testing.T) {
	t.Parallel()

	tr := shopee.New(shopee.WithBaseURL("https://partner.test"))

	t.Run("shop call carries token and shop id", func(t *testing.T) {
		t.Parallel()
		sr, err := tr.Sign(testCred(), platform.Request{
			Endpoint: shopee.PathOrderList,
			Params:   map[string]string{"page_size": "100"},
		}, signTime)
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, sr.Method)
		assert.Equal(t, "7b0d761c22b102ea4fdda126930b33a9131efbab4ce8b1ae50b5bb52288ba728", sr.Signature)
		assert.Equal(t, sr.Signature, sr.Param("sign"))
		assert.Equal(t, "access-tok", sr.Param("access_token"))
		assert.Equal(t, "42", sr.Param("shop_id"))
		assert.Equal(t, "1700000000", sr.Param("timestamp"))
		assert.Equal(t, "100", sr.Param("page_size"))

		u, err := url.Parse(sr.URL())
		require.NoError(t, err)
		assert.Equal(t, "partner.test", u.Host)
		assert.Equal(t, shopee.PathOrderList, u.Path)
	})

	t.Run("bootstrap call omits token", func(t *testing.T) {
		t.Parallel()
		sr, err := tr.Sign(testCred(), platform.Request{
			Endpoint: shopee.PathAccessTokenGet,
			Body:     map[string]any{"refresh_token": "r"},
		}, signTime)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, sr.Method)
		assert.Empty(t, sr.Param("access_token"))
		assert.Empty(t, sr.Param("shop_id"))
		assert.Equal(t, "a348a122709fdddaf7be9b4b9ff76ef7ecd9dcaa8d2afbca6180f7da4f660686", sr.Signature)
		assert.JSONEq(t, `{"refresh_token":"r"}`, string(sr.Body))
	})

	t.Run("signature changes with timestamp", func(t *testing.T) {
		t.Parallel()
		req := platform.Request{Endpoint: shopee.PathOrderList}
		a, err := tr.Sign(testCred(), req, signTime)
		require.NoError(t, err)
		b, err := tr.Sign(testCred(), req, signTime.Add(time.Second))
		require.NoError(t, err)
		assert.NotEqual(t, a.Signature, b.Signature)
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantKind platform.Kind
		wantData string
		wantMore bool
		wantCur  string
	}{
		{
			name:     "cursor page",
			body:     `{"error":"","message":"","response":{"order_list":[],"more":true,"next_cursor":"20"}}`,
			wantData: `{"order_list":[],"more":true,"next_cursor":"20"}`,
			wantMore: true,
			wantCur:  "20",
		},
		{
			name:     "numeric cursor",
			body:     `{"response":{"more":false,"next_cursor":7}}`,
			wantData: `{"more":false,"next_cursor":7}`,
			wantCur:  "7",
		},
		{
			name:     "auth response at top level",
			body:     `{"access_token":"a","refresh_token":"r","expire_in":14400,"error":""}`,
			wantData: `{"access_token":"a","refresh_token":"r","expire_in":14400,"error":""}`,
		},
		{name: "invalid token", body: `{"error":"invalid_acceess_token","message":"bad"}`, wantKind: platform.KindAuth},
		{name: "rate limit", body: `{"error":"error_too_many_request"}`, wantKind: platform.KindRateLimited},
		{name: "server busy", body: `{"error":"error_server"}`, wantKind: platform.KindTransient},
		{name: "bad param", body: `{"error":"error_param","message":"page_size"}`, wantKind: platform.KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, perr := shopee.Normalize([]byte(tt.body))
			if tt.wantKind != 0 {
				require.NotNil(t, perr)
				assert.Equal(t, tt.wantKind, perr.Kind)
				return
			}
			require.Nil(t, perr)
			assert.JSONEq(t, tt.wantData, string(env.Data))
			assert.Equal(t, tt.wantMore, env.HasMore)
			assert.Equal(t, tt.wantCur, env.Continuation)
		})
	}
}

func TestRefresher(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"error":"","access_token":"new-a","refresh_token":"new-r","expire_in":14400}`))
	}))
	defer srv.Close()

	r := shopee.NewRefresher(shopee.New(shopee.WithBaseURL(srv.URL)), time.Second)

	g, err := r.Refresh(context.Background(), testCred())
	require.NoError(t, err)
	assert.Equal(t, shopee.PathAccessTokenGet, gotPath)
	assert.Equal(t, "refresh-tok", gotBody["refresh_token"])
	assert.InDelta(t, 2001, gotBody["partner_id"], 0)
	assert.InDelta(t, 42, gotBody["shop_id"], 0)
	assert.Equal(t, "new-a", g.AccessToken)
	assert.Equal(t, 4*time.Hour, g.AccessTTL)

	_, err = r.Exchange(context.Background(), testCred(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, shopee.PathTokenGet, gotPath)
	assert.Equal(t, "auth-code", gotBody["code"])
	assert.Equal(t, 30*24*time.Hour, r.Lifetimes().Refresh)
}

func TestRefresher_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"error_auth","message":"refresh token expired"}`))
	}))
	defer srv.Close()

	r := shopee.NewRefresher(shopee.New(shopee.WithBaseURL(srv.URL)), time.Second)
	_, err := r.Refresh(context.Background(), testCred())
	require.ErrorIs(t, err, platform.ErrAuth)

	bad := testCred()
	bad.ShopID = "not-a-number"
	_, err = r.Refresh(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop id")
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	u := shopee.New().AuthorizationURL("2001", "test-partner-key", "https://example.com/cb", signTime)
	parsed, err := url.Parse(u)
	require.NoError(t, err)

	assert.Equal(t, shopee.PathAuthPartner, parsed.Path)
	assert.Equal(t, "https://example.com/cb", parsed.Query().Get("redirect"))
	assert.Equal(t,
		shopee.Signature("test-partner-key", "2001", shopee.PathAuthPartner, 1700000000, ""),
		parsed.Query().Get("sign"),
	)
}
