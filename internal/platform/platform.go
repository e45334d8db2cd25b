// Package platform defines the authenticated-call capability shared by every
// marketplace integration: request signing, HTTP execution with response
// classification, and the normalized response envelope consumed by fetchers.
// Concrete signers and envelopes live in the shopee, lazada and tiktok
// subpackages.
package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// Request is an unsigned call against a platform endpoint.
type Request struct {
	Endpoint string
	Method   string
	Params   map[string]string
	// Body is encoded as JSON when non-nil.
	Body any
}

// Param is one query parameter of a SignedRequest.
type Param struct {
	Key   string
	Value string
}

// SignedRequest is a transport-ready request. It is built per call and never
// reused: the signature covers Timestamp.
type SignedRequest struct {
	Platform  credential.Platform
	Method    string
	BaseURL   string
	Endpoint  string
	Params    []Param
	Body      []byte
	Header    map[string]string
	Signature string
	Timestamp time.Time
}

// URL returns the absolute request URL including the encoded query.
func (r SignedRequest) URL() string {
	q := make(url.Values, len(r.Params))
	for _, p := range r.Params {
		q.Set(p.Key, p.Value)
	}
	u := r.BaseURL + r.Endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Param returns the value of key, or "" when absent.
func (r SignedRequest) Param(key string) string {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Envelope is the platform-independent view of a response.
type Envelope struct {
	Data         json.RawMessage
	IsError      bool
	ErrorMessage string
	Continuation string
	HasMore      bool
}

// Transport is one marketplace's signing and execution strategy. A single
// implementation is chosen per platform at startup.
type Transport interface {
	Platform() credential.Platform
	// Sign is pure: the same inputs at the same instant produce the same request.
	Sign(cred credential.Credential, req Request, now time.Time) (SignedRequest, error)
	Execute(ctx context.Context, req SignedRequest, timeout time.Duration) (Envelope, error)
	// IsBootstrap reports whether endpoint exchanges a code or refresh token
	// and therefore must not trigger token validation.
	IsBootstrap(endpoint string) bool
}

// SortedParams merges param maps (later maps win) and returns them ordered by key.
func SortedParams(maps ...map[string]string) []Param {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	out := make([]Param, 0, len(merged))
	for k, v := range merged {
		out = append(out, Param{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
