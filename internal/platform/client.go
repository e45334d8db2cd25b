package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/metrics"
)

const defaultCallTimeout = 30 * time.Second

// TokenValidator guarantees the credential is usable before a call.
type TokenValidator interface {
	EnsureValid(ctx context.Context) error
}

// Caller performs authenticated platform calls. Fetchers depend on this
// interface rather than on *Client.
type Caller interface {
	Call(ctx context.Context, req Request) (Envelope, error)
}

// Client binds a Transport to one credential Handle. Every non-bootstrap call
// runs token validation, then signs with a fresh timestamp and executes.
type Client struct {
	transport Transport
	handle    *credential.Handle
	tokens    TokenValidator
	timeout   time.Duration
	nowFunc   func() time.Time
	log       *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTokenValidator sets the validator consulted before non-bootstrap calls.
func WithTokenValidator(v TokenValidator) ClientOption {
	return func(c *Client) {
		c.tokens = v
	}
}

// WithNowFunc overrides the signing clock for testing.
func WithNowFunc(f func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowFunc = f
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Client for the credential held by h.
func NewClient(t Transport, h *credential.Handle, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		handle:    h,
		timeout:   defaultCallTimeout,
		nowFunc:   time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform returns the platform this client talks to.
func (c *Client) Platform() credential.Platform {
	return c.transport.Platform()
}

// Call validates the token (unless req targets a bootstrap endpoint), signs
// req against the current credential, and executes it.
func (c *Client) Call(ctx context.Context, req Request) (Envelope, error) {
	p := c.transport.Platform()

	if !c.transport.IsBootstrap(req.Endpoint) && c.tokens != nil {
		if err := c.tokens.EnsureValid(ctx); err != nil {
			return Envelope{}, err
		}
	}

	cred := c.handle.Snapshot()
	if err := credential.ValidateIdentity(p, cred.Identity); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	signed, err := c.transport.Sign(cred, req, c.nowFunc())
	if err != nil {
		return Envelope{}, fmt.Errorf("signing %s %s: %w", p, req.Endpoint, err)
	}

	start := time.Now()
	env, err := c.transport.Execute(ctx, signed, c.timeout)
	metrics.PlatformCallDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	metrics.PlatformCallsTotal.WithLabelValues(string(p), outcome(err)).Inc()

	if err != nil {
		c.log.Debug("platform call failed", "platform", p, "endpoint", req.Endpoint, "error", err)
		return env, err
	}
	return env, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		if k := KindOf(err); k != 0 {
			return k.String()
		}
		return "error"
	}
}
