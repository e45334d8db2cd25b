package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

const maxResponseBytes = 32 << 20

// NormalizeFunc maps a platform's native response body onto an Envelope. It
// returns a non-nil *Error when the body itself signals failure; Platform,
// Endpoint and Status are filled in by the Executor.
type NormalizeFunc func(body []byte) (Envelope, *Error)

// Executor performs the HTTP round trip for a SignedRequest and classifies the
// outcome. It never retries.
type Executor struct {
	platform  credential.Platform
	client    *http.Client
	normalize NormalizeFunc
	recorder  *Recorder
	nowFunc   func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) {
		e.client = c
	}
}

// WithRecorder attaches an API call recorder.
func WithRecorder(r *Recorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// WithExecutorNowFunc overrides the time function for testing.
func WithExecutorNowFunc(f func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.nowFunc = f
	}
}

// NewExecutor creates an Executor for platform p using normalize to read
// response envelopes.
func NewExecutor(p credential.Platform, normalize NormalizeFunc, opts ...ExecutorOption) *Executor {
	e := &Executor{
		platform:  p,
		client:    &http.Client{},
		normalize: normalize,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends req and returns the normalized envelope. A timeout or network
// failure is KindTransient; cancellation of ctx itself is returned as the
// context error.
func (e *Executor) Execute(ctx context.Context, req SignedRequest, timeout time.Duration) (Envelope, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, req.URL(), body)
	if err != nil {
		return Envelope{}, e.fail(req, KindPermanent, 0, fmt.Errorf("creating request: %w", err))
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Envelope{}, ctx.Err()
		}
		return Envelope{}, e.fail(req, KindTransient, 0, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return Envelope{}, ctx.Err()
		}
		return Envelope{}, e.fail(req, KindTransient, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	e.recorder.Record(Entry{
		Platform:  e.platform,
		Endpoint:  req.Endpoint,
		Params:    req.Params,
		Status:    resp.StatusCode,
		Response:  raw,
		Timestamp: e.nowFunc(),
	})

	env, perr := e.normalize(raw)
	if kind, ok := statusKind(resp.StatusCode, perr); ok {
		msg := ""
		code := ""
		if perr != nil {
			msg, code = perr.Message, perr.Code
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return errorEnvelope(msg), &Error{
			Kind:     kind,
			Platform: e.platform,
			Endpoint: req.Endpoint,
			Status:   resp.StatusCode,
			Code:     code,
			Message:  msg,
		}
	}
	if perr != nil {
		perr.Platform = e.platform
		perr.Endpoint = req.Endpoint
		perr.Status = resp.StatusCode
		return errorEnvelope(perr.Message), perr
	}
	return env, nil
}

// statusKind maps HTTP status onto a Kind where the status alone decides.
// 429 and 5xx override the body; 401/403 and other 4xx apply only when the
// body did not classify itself.
func statusKind(status int, perr *Error) (Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status >= http.StatusInternalServerError:
		return KindTransient, true
	case perr != nil:
		return 0, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth, true
	case status >= http.StatusBadRequest:
		return KindPermanent, true
	default:
		return 0, false
	}
}

func (e *Executor) fail(req SignedRequest, kind Kind, status int, err error) *Error {
	return &Error{
		Kind:     kind,
		Platform: e.platform,
		Endpoint: req.Endpoint,
		Status:   status,
		Err:      err,
	}
}

func errorEnvelope(msg string) Envelope {
	return Envelope{IsError: true, ErrorMessage: msg}
}
