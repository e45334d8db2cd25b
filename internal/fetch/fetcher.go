// Package fetch drains paginated platform endpoints. It supports cursor
// pagination and time-windowed page-number pagination, deduplicates records by
// a caller-supplied key, throttles requests, and reports pages skipped after
// exhausting retries.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/marketplace-sync/internal/metrics"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

const (
	defaultMinDelay    = 500 * time.Millisecond
	defaultPageRetries = 3
)

// Fetcher issues page requests through a platform.Caller. A Fetcher is safe
// for concurrent use; the request spacing applies across all its fetches.
type Fetcher struct {
	caller     platform.Caller
	limiter    *rate.Limiter
	retries    uint64
	newBackOff func() backoff.BackOff
	log        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMinDelay sets the minimum spacing between successive page requests.
// Zero disables throttling.
func WithMinDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.limiter = newLimiter(d)
	}
}

// WithPageRetries sets how many times a retryable page failure is retried.
func WithPageRetries(n uint64) Option {
	return func(f *Fetcher) {
		f.retries = n
	}
}

// WithBackOff sets the retry delay policy. The factory is called per page.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(f *Fetcher) {
		f.newBackOff = fn
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

// New creates a Fetcher calling through c.
func New(c platform.Caller, opts ...Option) *Fetcher {
	f := &Fetcher{
		caller:  c,
		limiter: newLimiter(defaultMinDelay),
		retries: defaultPageRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// page performs one throttled request, retrying retryable failures.
func (f *Fetcher) page(ctx context.Context, req platform.Request) (platform.Envelope, error) {
	op := func() (platform.Envelope, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return platform.Envelope{}, backoff.Permanent(err)
		}
		metrics.FetchPagesTotal.WithLabelValues(req.Endpoint).Inc()
		env, err := f.caller.Call(ctx, req)
		if err != nil {
			if platform.Retryable(err) {
				return env, err
			}
			return env, backoff.Permanent(err)
		}
		return env, nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.retries), ctx)
	notify := func(err error, wait time.Duration) {
		f.log.Warn("retrying page",
			"endpoint", req.Endpoint,
			"wait", wait,
			"error", err,
		)
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

// dedup tracks keys seen during one fetch.
type dedup struct {
	endpoint string
	key      KeyFunc
	seen     map[string]struct{}
	rep      *Report
}

func newDedup(endpoint string, key KeyFunc, rep *Report) *dedup {
	if key == nil {
		key = recordKey
	}
	return &dedup{endpoint: endpoint, key: key, seen: make(map[string]struct{}), rep: rep}
}

// admit reports whether r is new and counts it.
func (d *dedup) admit(r Record) bool {
	k := d.key(r)
	if _, ok := d.seen[k]; ok {
		d.rep.Duplicates++
		metrics.FetchDuplicatesTotal.WithLabelValues(d.endpoint).Inc()
		return false
	}
	d.seen[k] = struct{}{}
	d.rep.Records++
	return true
}

func copyParams(base map[string]string, n int) map[string]string {
	out := make(map[string]string, len(base)+n)
	for k, v := range base {
		out[k] = v
	}
	return out
}
