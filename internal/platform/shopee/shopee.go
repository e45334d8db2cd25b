// Package shopee implements the Shopee partner API v2 transport: HMAC-SHA256
// signing over partner id, path, timestamp and (for shop calls) token and
// shop id, plus the error/response envelope.
package shopee

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

// DefaultBaseURL is the production partner API host.
const DefaultBaseURL = "https://partner.shopeemobile.com"

// Endpoints.
const (
	PathTokenGet           = "/api/v2/auth/token/get"
	PathAccessTokenGet     = "/api/v2/auth/access_token/get"
	PathAuthPartner        = "/api/v2/shop/auth_partner"
	PathWalletTransactions = "/api/v2/payment/get_wallet_transaction_list"
	PathOrderList          = "/api/v2/order/get_order_list"
	PathOrderDetail        = "/api/v2/order/get_order_detail"
	PathEscrowDetail       = "/api/v2/payment/get_escrow_detail"
)

// Lifetimes: the access TTL is used only when the server omits expire_in.
var Lifetimes = credential.Lifetimes{
	Access:  14312 * time.Second,
	Refresh: 30 * 24 * time.Hour,
}

var (
	authCodes = map[string]struct{}{
		"error_auth":            {},
		"invalid_access_token":  {},
		"invalid_acceess_token": {},
		"error_permission":      {},
		"error_invalid_token":   {},
	}
	rateCodes = map[string]struct{}{
		"error_too_many_request": {},
		"error_rate_limit":       {},
	}
	transientCodes = map[string]struct{}{
		"error_server": {},
		"error_inner":  {},
		"error_busy":   {},
	}
)

// Transport signs and executes Shopee calls.
type Transport struct {
	baseURL  string
	execOpts []platform.ExecutorOption
	exec     *platform.Executor
}

// Option configures a Transport.
type Option func(*Transport)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(t *Transport) {
		t.baseURL = u
	}
}

// WithExecutorOptions passes options to the underlying executor.
func WithExecutorOptions(opts ...platform.ExecutorOption) Option {
	return func(t *Transport) {
		t.execOpts = append(t.execOpts, opts...)
	}
}

// New creates a Shopee transport.
func New(opts ...Option) *Transport {
	t := &Transport{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(t)
	}
	t.exec = platform.NewExecutor(credential.Shopee, Normalize, t.execOpts...)
	return t
}

// Platform implements platform.Transport.
func (*Transport) Platform() credential.Platform { return credential.Shopee }

// IsBootstrap implements platform.Transport.
func (*Transport) IsBootstrap(endpoint string) bool {
	return endpoint == PathTokenGet || endpoint == PathAccessTokenGet
}

// Signature computes the lowercase hex HMAC-SHA256 of
// partnerID + path + timestamp + extra under partnerKey.
func Signature(partnerKey, partnerID, path string, timestamp int64, extra string) string {
	mac := hmac.New(sha256.New, []byte(partnerKey))
	mac.Write([]byte(partnerID + path + strconv.FormatInt(timestamp, 10) + extra))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign implements platform.Transport. Shop-level calls carry access_token and
// shop_id; bootstrap calls sign with an empty extra string.
func (t *Transport) Sign(cred credential.Credential, req platform.Request, now time.Time) (platform.SignedRequest, error) {
	ts := now.Unix()

	common := map[string]string{
		"partner_id": cred.PartnerID,
		"timestamp":  strconv.FormatInt(ts, 10),
	}
	extra := ""
	if !t.IsBootstrap(req.Endpoint) {
		extra = cred.AccessToken + cred.ShopID
		common["access_token"] = cred.AccessToken
		common["shop_id"] = cred.ShopID
	}
	sig := Signature(cred.PartnerKey, cred.PartnerID, req.Endpoint, ts, extra)
	common["sign"] = sig

	body, err := encodeBody(req.Body)
	if err != nil {
		return platform.SignedRequest{}, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	return platform.SignedRequest{
		Platform:  credential.Shopee,
		Method:    method,
		BaseURL:   t.baseURL,
		Endpoint:  req.Endpoint,
		Params:    platform.SortedParams(req.Params, common),
		Body:      body,
		Header:    map[string]string{"Content-Type": "application/json"},
		Signature: sig,
		Timestamp: time.Unix(ts, 0),
	}, nil
}

// Execute implements platform.Transport.
func (t *Transport) Execute(ctx context.Context, req platform.SignedRequest, timeout time.Duration) (platform.Envelope, error) {
	return t.exec.Execute(ctx, req, timeout)
}

// AuthorizationURL builds the shop authorization link an operator opens to
// obtain an authorization code.
func (t *Transport) AuthorizationURL(partnerID, partnerKey, redirect string, now time.Time) string {
	ts := now.Unix()
	q := url.Values{}
	q.Set("partner_id", partnerID)
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", Signature(partnerKey, partnerID, PathAuthPartner, ts, ""))
	q.Set("redirect", redirect)
	return t.baseURL + PathAuthPartner + "?" + q.Encode()
}

type envelope struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
}

type pageInfo struct {
	NextCursor json.RawMessage `json:"next_cursor"`
	More       *bool           `json:"more"`
	HasNext    *bool           `json:"has_next_page"`
}

// Normalize maps a Shopee body onto platform.Envelope. Data is the response
// object when present, otherwise the whole body (auth endpoints answer at the
// top level).
func Normalize(body []byte) (platform.Envelope, *platform.Error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return platform.Envelope{}, &platform.Error{
			Kind: platform.KindPermanent,
			Err:  fmt.Errorf("decoding response: %w", err),
		}
	}

	if env.Error != "" {
		return platform.Envelope{}, &platform.Error{
			Kind:    classify(env.Error),
			Code:    env.Error,
			Message: env.Message,
		}
	}

	data := env.Response
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = json.RawMessage(body)
	}

	out := platform.Envelope{Data: data}
	var pi pageInfo
	if json.Unmarshal(data, &pi) == nil {
		out.Continuation = cursorString(pi.NextCursor)
		switch {
		case pi.More != nil:
			out.HasMore = *pi.More
		case pi.HasNext != nil:
			out.HasMore = *pi.HasNext
		}
	}
	return out, nil
}

func classify(code string) platform.Kind {
	if _, ok := authCodes[code]; ok {
		return platform.KindAuth
	}
	if _, ok := rateCodes[code]; ok {
		return platform.KindRateLimited
	}
	if _, ok := transientCodes[code]; ok {
		return platform.KindTransient
	}
	return platform.KindPermanent
}

// cursorString accepts a cursor encoded as a JSON string or number.
func cursorString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	return b, nil
}
