// Package tiktok implements the TikTok Shop open API (version 202309)
// transport: secret-wrapped HMAC-SHA256 over path, filtered sorted params and
// the canonical JSON body, the x-tts-access-token header, and the code/data
// envelope with next_page_token continuation.
package tiktok

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

// Hosts.
const (
	DefaultBaseURL = "https://open-api.tiktokglobalshop.com"
	DefaultAuthURL = "https://auth.tiktok-shops.com"
	APIVersion     = "202309"
)

// Endpoints.
const (
	PathTokenGet     = "/api/v2/token/get"
	PathTokenRefresh = "/api/v2/token/refresh"
	PathOrderSearch  = "/order/202309/orders/search"
	PathOrderDetail  = "/order/202309/orders"
)

// Lifetimes are fallbacks; TikTok normally returns absolute expiries.
var Lifetimes = credential.Lifetimes{
	Access:  7 * 24 * time.Hour,
	Refresh: 365 * 24 * time.Hour,
}

// signExcluded params never enter the canonical string.
var signExcluded = map[string]struct{}{
	"access_token": {},
	"sign":         {},
}

var (
	authCodes = map[int64]struct{}{
		105000: {},
		105001: {},
		105002: {},
		105003: {},
		105004: {},
		105005: {},
	}
	rateCodes = map[int64]struct{}{
		36009004: {},
	}
)

// Transport signs and executes TikTok Shop calls.
type Transport struct {
	baseURL  string
	authURL  string
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

// WithAuthURL overrides DefaultAuthURL.
func WithAuthURL(u string) Option {
	return func(t *Transport) {
		t.authURL = u
	}
}

// WithExecutorOptions passes options to the underlying executor.
func WithExecutorOptions(opts ...platform.ExecutorOption) Option {
	return func(t *Transport) {
		t.execOpts = append(t.execOpts, opts...)
	}
}

// New creates a TikTok Shop transport.
func New(opts ...Option) *Transport {
	t := &Transport{baseURL: DefaultBaseURL, authURL: DefaultAuthURL}
	for _, opt := range opts {
		opt(t)
	}
	t.exec = platform.NewExecutor(credential.TikTok, Normalize, t.execOpts...)
	return t
}

// Platform implements platform.Transport.
func (*Transport) Platform() credential.Platform { return credential.TikTok }

// IsBootstrap implements platform.Transport.
func (*Transport) IsBootstrap(endpoint string) bool {
	return endpoint == PathTokenGet || endpoint == PathTokenRefresh
}

// CanonicalBody serializes v as compact JSON with object keys sorted at every
// level and no HTML escaping, so equal payloads always sign identically.
func CanonicalBody(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalizing body: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encoding canonical body: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Signature computes the lowercase hex HMAC-SHA256 of
// appSecret + path + sorted(key+value) + body + appSecret under appSecret.
// access_token and sign are excluded from the parameter string.
func Signature(appSecret, path string, params map[string]string, body []byte) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if _, skip := signExcluded[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(appSecret)
	sb.WriteString(path)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}
	sb.Write(body)
	sb.WriteString(appSecret)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign implements platform.Transport. Bootstrap calls go to the auth host
// unsigned, carrying app_key and app_secret as the auth service expects.
func (t *Transport) Sign(cred credential.Credential, req platform.Request, now time.Time) (platform.SignedRequest, error) {
	if t.IsBootstrap(req.Endpoint) {
		return t.signBootstrap(cred, req, now), nil
	}

	ts := now.Unix()
	params := make(map[string]string, len(req.Params)+7)
	for k, v := range req.Params {
		params[k] = v
	}
	params["app_key"] = cred.AppKey
	params["timestamp"] = strconv.FormatInt(ts, 10)
	params["version"] = APIVersion
	params["shop_cipher"] = cred.ShopCipher
	if cred.ShopID != "" {
		params["shop_id"] = cred.ShopID
	}

	var body []byte
	if req.Body != nil {
		b, err := CanonicalBody(req.Body)
		if err != nil {
			return platform.SignedRequest{}, err
		}
		body = b
	}

	sig := Signature(cred.AppSecret, req.Endpoint, params, body)
	params["sign"] = sig
	if cred.AccessToken != "" {
		params["access_token"] = cred.AccessToken
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	return platform.SignedRequest{
		Platform: credential.TikTok,
		Method:   method,
		BaseURL:  t.baseURL,
		Endpoint: req.Endpoint,
		Params:   platform.SortedParams(params),
		Body:     body,
		Header: map[string]string{
			"Content-Type":       "application/json",
			"x-tts-access-token": cred.AccessToken,
		},
		Signature: sig,
		Timestamp: time.Unix(ts, 0),
	}, nil
}

func (t *Transport) signBootstrap(cred credential.Credential, req platform.Request, now time.Time) platform.SignedRequest {
	params := platform.SortedParams(req.Params, map[string]string{
		"app_key":    cred.AppKey,
		"app_secret": cred.AppSecret,
	})
	return platform.SignedRequest{
		Platform:  credential.TikTok,
		Method:    http.MethodGet,
		BaseURL:   t.authURL,
		Endpoint:  req.Endpoint,
		Params:    params,
		Timestamp: now,
	}
}

// Execute implements platform.Transport.
func (t *Transport) Execute(ctx context.Context, req platform.SignedRequest, timeout time.Duration) (platform.Envelope, error) {
	return t.exec.Execute(ctx, req, timeout)
}

type envelope struct {
	Code      *int64          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type pageInfo struct {
	NextPageToken string `json:"next_page_token"`
}

// Normalize maps a TikTok body onto platform.Envelope. Success is code 0.
func Normalize(body []byte) (platform.Envelope, *platform.Error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return platform.Envelope{}, &platform.Error{
			Kind: platform.KindPermanent,
			Err:  fmt.Errorf("decoding response: %w", err),
		}
	}
	if env.Code == nil {
		return platform.Envelope{}, &platform.Error{
			Kind:    platform.KindPermanent,
			Message: "response has no code field",
		}
	}
	if *env.Code != 0 {
		return platform.Envelope{}, &platform.Error{
			Kind:    classify(*env.Code),
			Code:    strconv.FormatInt(*env.Code, 10),
			Message: env.Message,
		}
	}

	out := platform.Envelope{Data: env.Data}
	var pi pageInfo
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &pi) == nil && pi.NextPageToken != "" {
		out.Continuation = pi.NextPageToken
		out.HasMore = true
	}
	return out, nil
}

func classify(code int64) platform.Kind {
	if _, ok := authCodes[code]; ok {
		return platform.KindAuth
	}
	if _, ok := rateCodes[code]; ok {
		return platform.KindRateLimited
	}
	return platform.KindPermanent
}
