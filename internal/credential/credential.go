// Package credential holds the per-platform token pair, its expiries, and the
// identity fields each marketplace needs for signing. Credentials are owned
// through a Handle and persisted through a Store after every mutation.
package credential

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies one marketplace integration.
type Platform string

// Supported platforms.
const (
	Shopee Platform = "shopee"
	Lazada Platform = "lazada"
	TikTok Platform = "tiktok"
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{Shopee, Lazada, TikTok}
}

// ParsePlatform converts a user-provided name into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Shopee, Lazada, TikTok:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Identity carries the platform-specific, non-token fields used by signers.
// Shopee uses PartnerID, PartnerKey and ShopID. Lazada uses AppKey and
// AppSecret. TikTok uses AppKey, AppSecret, ShopID and ShopCipher.
type Identity struct {
	PartnerID    string `json:"partnerId,omitempty"    yaml:"partner_id"`
	PartnerKey   string `json:"partnerKey,omitempty"   yaml:"partner_key"`
	ShopID       string `json:"shopId,omitempty"       yaml:"shop_id"`
	AppKey       string `json:"appKey,omitempty"       yaml:"app_key"`
	AppSecret    string `json:"appSecret,omitempty"    yaml:"app_secret"`
	ShopCipher   string `json:"shopCipher,omitempty"   yaml:"shop_cipher"`
	OpenID       string `json:"openId,omitempty"       yaml:"-"`
	SellerName   string `json:"sellerName,omitempty"   yaml:"-"`
	SellerRegion string `json:"sellerRegion,omitempty" yaml:"-"`
}

// Merge overwrites fields of id with every non-empty field of other.
func (id *Identity) Merge(other Identity) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&id.PartnerID, other.PartnerID)
	set(&id.PartnerKey, other.PartnerKey)
	set(&id.ShopID, other.ShopID)
	set(&id.AppKey, other.AppKey)
	set(&id.AppSecret, other.AppSecret)
	set(&id.ShopCipher, other.ShopCipher)
	set(&id.OpenID, other.OpenID)
	set(&id.SellerName, other.SellerName)
	set(&id.SellerRegion, other.SellerRegion)
}

// Credential is the persisted token state of one platform. Expiries are nil
// until the first grant is applied.
type Credential struct {
	Platform      Platform   `json:"platform"`
	AccessToken   string     `json:"accessToken"`
	RefreshToken  string     `json:"refreshToken"`
	AccessExpiry  *time.Time `json:"accessExpiry"`
	RefreshExpiry *time.Time `json:"refreshExpiry"`
	// Code is the authorization code awaiting exchange, if any.
	Code      string     `json:"code,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	Identity
}

// New returns an empty credential for p.
func New(p Platform) Credential {
	return Credential{Platform: p}
}

// State describes where a credential sits in the token lifecycle.
type State int

// Token lifecycle states.
const (
	StateNoToken State = iota
	StateValid
	StateAccessExpired
	StateRefreshExpired
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateValid:
		return "valid"
	case StateAccessExpired:
		return "access_expired"
	case StateRefreshExpired:
		return "refresh_expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// State evaluates the credential at now. A missing access token or a
// missing access expiry counts as expired. A refresh token without a known
// expiry is assumed usable; the platform decides.
func (c *Credential) State(now time.Time) State {
	if c.AccessToken == "" && c.RefreshToken == "" {
		return StateNoToken
	}
	if c.AccessToken != "" && c.AccessExpiry != nil && now.Before(*c.AccessExpiry) {
		return StateValid
	}
	if c.RefreshToken == "" {
		return StateRefreshExpired
	}
	if c.RefreshExpiry != nil && !now.Before(*c.RefreshExpiry) {
		return StateRefreshExpired
	}
	return StateAccessExpired
}

// Lifetimes are the platform defaults used when a grant omits a TTL.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
}

// Grant is the token material returned by a code exchange or a refresh.
// Absolute expiries take precedence over TTLs; zero values fall back to the
// platform Lifetimes.
type Grant struct {
	AccessToken      string
	RefreshToken     string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Identity         Identity
}

// Apply overwrites tokens and both expiries from g. An empty refresh token in
// the grant keeps the existing one. The pending authorization code is
// consumed.
func (c *Credential) Apply(g Grant, now time.Time, def Lifetimes) {
	c.AccessToken = g.AccessToken
	if g.RefreshToken != "" {
		c.RefreshToken = g.RefreshToken
	}

	access := expiry(now, g.AccessExpiresAt, g.AccessTTL, def.Access)
	refresh := expiry(now, g.RefreshExpiresAt, g.RefreshTTL, def.Refresh)
	c.AccessExpiry = &access
	c.RefreshExpiry = &refresh
	c.Code = ""
	c.Identity.Merge(g.Identity)

	ts := now
	c.UpdatedAt = &ts
}

// ClearTokens drops all token material while keeping identity fields.
func (c *Credential) ClearTokens(now time.Time) {
	c.AccessToken = ""
	c.RefreshToken = ""
	c.AccessExpiry = nil
	c.RefreshExpiry = nil
	c.Code = ""
	ts := now
	c.UpdatedAt = &ts
}

// Clone returns a deep copy.
func (c *Credential) Clone() Credential {
	out := *c
	out.AccessExpiry = cloneTime(c.AccessExpiry)
	out.RefreshExpiry = cloneTime(c.RefreshExpiry)
	out.UpdatedAt = cloneTime(c.UpdatedAt)
	return out
}

func expiry(now, abs time.Time, ttl, def time.Duration) time.Time {
	switch {
	case !abs.IsZero():
		return abs
	case ttl > 0:
		return now.Add(ttl)
	default:
		return now.Add(def)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
