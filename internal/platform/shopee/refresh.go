package shopee

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

// Refresher drives the Shopee token exchanges.
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
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}

// Lifetimes reports the platform token lifetimes.
func (*Refresher) Lifetimes() credential.Lifetimes { return Lifetimes }

// Refresh exchanges the refresh token for a new pair.
func (r *Refresher) Refresh(ctx context.Context, cred credential.Credential) (credential.Grant, error) {
	body, err := shopBody(cred)
	if err != nil {
		return credential.Grant{}, err
	}
	body["refresh_token"] = cred.RefreshToken
	return r.exchange(ctx, cred, PathAccessTokenGet, body)
}

// Exchange trades an authorization code for the first token pair.
func (r *Refresher) Exchange(ctx context.Context, cred credential.Credential, code string) (credential.Grant, error) {
	body, err := shopBody(cred)
	if err != nil {
		return credential.Grant{}, err
	}
	body["code"] = code
	return r.exchange(ctx, cred, PathTokenGet, body)
}

func (r *Refresher) exchange(
	ctx context.Context,
	cred credential.Credential,
	path string,
	body map[string]any,
) (credential.Grant, error) {
	signed, err := r.transport.Sign(cred, platform.Request{Endpoint: path, Body: body}, r.nowFunc())
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
		AccessTTL:    time.Duration(tr.ExpireIn) * time.Second,
	}, nil
}

func shopBody(cred credential.Credential) (map[string]any, error) {
	partnerID, err := strconv.ParseInt(cred.PartnerID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("partner id %q: %w", cred.PartnerID, err)
	}
	shopID, err := strconv.ParseInt(cred.ShopID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("shop id %q: %w", cred.ShopID, err)
	}
	return map[string]any{"partner_id": partnerID, "shop_id": shopID}, nil
}
