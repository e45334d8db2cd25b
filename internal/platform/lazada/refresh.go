package lazada

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

// Refresher drives the Lazada token exchanges against the auth host.
type Refresher struct {
	transport *Transport
	timeout   time.Duration
	nowFunc   func() time.Time
}

// NewRefresher creates a Refresher executing through t.
func NewRefresher(t *Transport, timeout time.Duration) *Refresher {
	return &Refresher{transport: t, timeout: timeout, nowFunc: time.Now}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Account          string `json:"account"`
	Country          string `json:"country"`
}

// Lifetimes reports the platform token lifetimes.
func (*Refresher) Lifetimes() credential.Lifetimes { return Lifetimes }

// Refresh exchanges the refresh token for a new pair.
func (r *Refresher) Refresh(ctx context.Context, cred credential.Credential) (credential.Grant, error) {
	return r.exchange(ctx, cred, PathTokenRefresh, map[string]string{"refresh_token": cred.RefreshToken})
}

// Exchange trades an authorization code for the first token pair.
func (r *Refresher) Exchange(ctx context.Context, cred credential.Credential, code string) (credential.Grant, error) {
	return r.exchange(ctx, cred, PathTokenCreate, map[string]string{"code": code})
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

	var tr tokenResponse
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		return credential.Grant{}, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return credential.Grant{}, fmt.Errorf("token response from %s has no access_token", path)
	}

	return credential.Grant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		AccessTTL:    time.Duration(tr.ExpiresIn) * time.Second,
		RefreshTTL:   time.Duration(tr.RefreshExpiresIn) * time.Second,
		Identity:     credential.Identity{SellerName: tr.Account, SellerRegion: tr.Country},
	}, nil
}
