// Package lazada implements the Lazada open platform transport: system
// parameters, an uppercase HMAC-SHA256 over the alphabetically sorted
// key+value concatenation, and the code/data envelope. Offset pagination is
// surfaced to fetchers as a continuation carrying the next offset.
package lazada

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
	DefaultBaseURL = "https://api.lazada.co.id/rest"
	DefaultAuthURL = "https://auth.lazada.com/rest"
)

// Endpoints.
const (
	PathTokenCreate  = "/auth/token/create"
	PathTokenRefresh = "/auth/token/refresh"
	PathOrdersGet    = "/orders/get"
	PathOrderItems   = "/orders/items/get"
)

// Lifetimes defaults: 30 days access when expires_in is missing, 180 days refresh.
var Lifetimes = credential.Lifetimes{
	Access:  30 * 24 * time.Hour,
	Refresh: 180 * 24 * time.Hour,
}

var (
	authCodes = map[string]struct{}{
		"IllegalAccessToken":  {},
		"MissingAccessToken":  {},
		"InvalidAccessToken":  {},
		"IllegalRefreshToken": {},
	}
	rateCodes = map[string]struct{}{
		"ApiCallLimit":    {},
		"AppCallLimit":    {},
		"SellerCallLimit": {},
		"E0008":           {},
	}
	transientCodes = map[string]struct{}{
		"ServiceTimeout":     {},
		"ServiceUnavailable": {},
		"InternalError":      {},
	}
)

// Transport signs and executes Lazada calls.
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

// New creates a Lazada transport.
func New(opts ...Option) *Transport {
	t := &Transport{baseURL: DefaultBaseURL, authURL: DefaultAuthURL}
	for _, opt := range opts {
		opt(t)
	}
	t.exec = platform.NewExecutor(credential.Lazada, Normalize, t.execOpts...)
	return t
}

// Platform implements platform.Transport.
func (*Transport) Platform() credential.Platform { return credential.Lazada }

// IsBootstrap implements platform.Transport.
func (*Transport) IsBootstrap(endpoint string) bool {
	return endpoint == PathTokenCreate || endpoint == PathTokenRefresh
}

// Signature computes the uppercase hex HMAC-SHA256 of the "key+value"
// concatenation of params sorted by key.
func Signature(appSecret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Sign implements platform.Transport. A request body is sent as the JSON
// "payload" parameter and is covered by the signature.
func (t *Transport) Sign(cred credential.Credential, req platform.Request, now time.Time) (platform.SignedRequest, error) {
	ts := now.UnixMilli()

	params := make(map[string]string, len(req.Params)+5)
	for k, v := range req.Params {
		params[k] = v
	}
	params["app_key"] = cred.AppKey
	params["timestamp"] = strconv.FormatInt(ts, 10)
	params["sign_method"] = "sha256"
	if !t.IsBootstrap(req.Endpoint) && cred.AccessToken != "" {
		params["access_token"] = cred.AccessToken
	}
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return platform.SignedRequest{}, fmt.Errorf("encoding payload: %w", err)
		}
		params["payload"] = string(payload)
	}

	sig := Signature(cred.AppSecret, params)
	params["sign"] = sig

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	base := t.baseURL
	if t.IsBootstrap(req.Endpoint) {
		base = t.authURL
	}

	return platform.SignedRequest{
		Platform:  credential.Lazada,
		Method:    method,
		BaseURL:   base,
		Endpoint:  req.Endpoint,
		Params:    platform.SortedParams(params),
		Signature: sig,
		Timestamp: time.UnixMilli(ts),
	}, nil
}

// Execute implements platform.Transport.
func (t *Transport) Execute(ctx context.Context, req platform.SignedRequest, timeout time.Duration) (platform.Envelope, error) {
	env, err := t.exec.Execute(ctx, req, timeout)
	if err != nil {
		return env, err
	}
	return withOffsetContinuation(env, req), nil
}

type envelope struct {
	Code      json.RawMessage `json:"code"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// Normalize maps a Lazada body onto platform.Envelope. Success is code "0".
// Auth endpoints answer with tokens at the top level, so when data is absent
// the whole body becomes Data.
func Normalize(body []byte) (platform.Envelope, *platform.Error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return platform.Envelope{}, &platform.Error{
			Kind: platform.KindPermanent,
			Err:  fmt.Errorf("decoding response: %w", err),
		}
	}

	code := strings.Trim(string(env.Code), `"`)
	if code != "" && code != "0" {
		return platform.Envelope{}, &platform.Error{
			Kind:    classify(code),
			Code:    code,
			Message: env.Message,
		}
	}

	data := env.Data
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = json.RawMessage(body)
	}
	return platform.Envelope{Data: data}, nil
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

type listPage struct {
	Count  *int              `json:"count"`
	Orders []json.RawMessage `json:"orders"`
}

// withOffsetContinuation turns offset/limit paging into a continuation: when
// the page was full, the continuation is the next offset.
func withOffsetContinuation(env platform.Envelope, req platform.SignedRequest) platform.Envelope {
	limit, err := strconv.Atoi(req.Param("limit"))
	if err != nil || limit <= 0 {
		return env
	}
	offset, _ := strconv.Atoi(req.Param("offset")) //nolint:errcheck // absent offset is zero

	var page listPage
	if json.Unmarshal(env.Data, &page) != nil {
		return env
	}
	if len(page.Orders) >= limit {
		env.HasMore = true
		env.Continuation = strconv.Itoa(offset + len(page.Orders))
	}
	return env
}
