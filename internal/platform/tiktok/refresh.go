package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

// Refresher drives the TikTok token exchanges on the auth host.
type Refresher struct {
	transport *Transport
	timeout   time.Duration
	nowFunc   func() time.Time
}

// NewRefresher creates a Refresher executing through t.
func NewRefresher(t *Transport, timeout time.Duration) *Refresher {
	return &Refresher{transport: t, timeout: timeout, nowFunc: time.Now}
}

type tokenData struct {
	AccessToken          string   `json:"access_token"`
	AccessTokenExpireIn  int64    `json:"access_token_expire_in"`
	RefreshToken         string   `json:"refresh_token"`
	RefreshTokenExpireIn int64    `json:"refresh_token_expire_in"`
	OpenID               string   `json:"open_id"`
	SellerName           string   `json:"seller_name"`
	SellerBaseRegion     string   `json:"seller_base_region"`
	GrantedScopes        []string `json:"granted_scopes"`
}

// Lifetimes reports the fallback token lifetimes.
func (*Refresher) Lifetimes() credential.Lifetimes { return Lifetimes }

// Refresh exchanges the refresh token for a new pair.
func (r *Refresher) Refresh(ctx context.Context, cred credential.Credential) (credential.Grant, error) {
	return r.exchange(ctx, cred, PathTokenRefresh, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": cred.RefreshToken,
	})
}

// Exchange trades an authorization code for the first token pair.
func (r *Refresher) Exchange(ctx context.Context, cred credential.Credential, code string) (credential.Grant, error) {
	return r.exchange(ctx, cred, PathTokenGet, map[string]string{
		"grant_type": "authorized_code",
		"auth_code":  code,
	})
}

func (r *Refresher) exchange(
	ctx context.Context,
	cred credential.Credential,
	path string,
	params map[string]string,
) (credential.Grant, error) {
	signed, err := r.transport.Sign(cred, platform.Request{Endpoint: path, Params: params}, r.nowFunc())
	if err != nil {
		return credential.Grant{}, err
	}

	env, err := r.transport.Execute(ctx, signed, r.timeout)
	if err != nil {
		return credential.Grant{}, err
	}

	var td tokenData
	if err := json.Unmarshal(env.Data, &td); err != nil {
		return credential.Grant{}, fmt.Errorf("parsing token response: %w", err)
	}
	if td.AccessToken == "" {
		return credential.Grant{}, fmt.Errorf("token response from %s has no access_token", path)
	}

	g := credential.Grant{
		AccessToken:  td.AccessToken,
		RefreshToken: td.RefreshToken,
		Identity: credential.Identity{
			OpenID:       td.OpenID,
			SellerName:   td.SellerName,
			SellerRegion: td.SellerBaseRegion,
		},
	}
	if td.AccessTokenExpireIn > 0 {
		g.AccessExpiresAt = time.Unix(td.AccessTokenExpireIn, 0).UTC()
	}
	if td.RefreshTokenExpireIn > 0 {
		g.RefreshExpiresAt = time.Unix(td.RefreshTokenExpireIn, 0).UTC()
	}
	return g, nil
}
