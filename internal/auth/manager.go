// Package auth keeps a platform credential usable: it decides when a refresh
// is needed, runs the exchange exactly once for concurrent callers, and
// persists the result before anyone proceeds.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/metrics"
)

// Token lifecycle failures.
var (
	// ErrReauthRequired means no refresh is possible; an operator must grant
	// access again. Never retried.
	ErrReauthRequired = errors.New("reauthorization required")
	// ErrRefreshFailed means the refresh exchange failed; callers may retry
	// once per operation.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoAuthorizationCode is returned by Authorize when no code is known.
	ErrNoAuthorizationCode = errors.New("no authorization code")
)

// Refresher performs a platform's token exchanges.
type Refresher interface {
	Refresh(ctx context.Context, cred credential.Credential) (credential.Grant, error)
	Exchange(ctx context.Context, cred credential.Credential, code string) (credential.Grant, error)
	Lifetimes() credential.Lifetimes
}

// Manager owns the refresh lifecycle of one credential Handle.
type Manager struct {
	handle    *credential.Handle
	store     credential.Store
	refresher Refresher
	margin    time.Duration
	nowFunc   func() time.Time
	log       *slog.Logger

	mu     sync.Mutex
	flight singleflight.Group
	// unsaved is set when a refreshed credential could not be persisted.
	unsaved bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = f
	}
}

// WithRefreshMargin refreshes tokens that expire within d.
func WithRefreshMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.margin = d
	}
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a Manager for the credential held by h.
func NewManager(h *credential.Handle, s credential.Store, r Refresher, opts ...Option) *Manager {
	m := &Manager{
		handle:    h,
		store:     s,
		refresher: r,
		nowFunc:   time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	publishExpiry(h.Snapshot())
	return m
}

// Handle returns the managed credential handle.
func (m *Manager) Handle() *credential.Handle {
	return m.handle
}

// EnsureValid returns nil when the access token is usable, refreshing it
// first when needed. Concurrent callers share a single refresh. A credential
// whose refresh token is missing or expired yields ErrReauthRequired without
// any network call.
func (m *Manager) EnsureValid(ctx context.Context) error {
	ch := m.flight.DoChan("ensure", func() (any, error) {
		// The shared refresh must not die with whichever caller arrived first.
		return nil, m.ensure(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsaved {
		if err := m.persistLocked(ctx, m.handle.Snapshot()); err != nil {
			return err
		}
	}

	now := m.nowFunc()
	cred := m.handle.Snapshot()

	switch cred.State(now) {
	case credential.StateValid:
		if m.margin <= 0 || cred.State(now.Add(m.margin)) != credential.StateAccessExpired {
			return nil
		}
	case credential.StateNoToken:
		return fmt.Errorf("%s: %w: no token issued", cred.Platform, ErrReauthRequired)
	case credential.StateRefreshExpired:
		return fmt.Errorf("%s: %w: refresh token expired or missing", cred.Platform, ErrReauthRequired)
	case credential.StateAccessExpired:
	}

	return m.refreshLocked(ctx, cred, now)
}

// Refresh forces a refresh exchange regardless of the access token state.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	cred := m.handle.Snapshot()
	if st := cred.State(now); st == credential.StateNoToken || st == credential.StateRefreshExpired {
		return fmt.Errorf("%s: %w", cred.Platform, ErrReauthRequired)
	}
	return m.refreshLocked(ctx, cred, now)
}

func (m *Manager) refreshLocked(ctx context.Context, cred credential.Credential, now time.Time) error {
	p := string(cred.Platform)
	m.log.Info("refreshing access token", "platform", p)

	grant, err := m.refresher.Refresh(ctx, cred)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(p, "failure").Inc()
		m.log.Error("token refresh failed", "platform", p, "error", err)
		return fmt.Errorf("%s: %w: %w", p, ErrRefreshFailed, err)
	}

	updated := m.handle.Update(func(c *credential.Credential) {
		c.Apply(grant, now, m.refresher.Lifetimes())
	})
	metrics.TokenRefreshesTotal.WithLabelValues(p, "success").Inc()

	if err := m.persistLocked(ctx, updated); err != nil {
		return err
	}

	m.log.Info("access token refreshed", "platform", p, "access_expiry", updated.AccessExpiry)
	return nil
}

// Authorize exchanges an authorization code for the first token pair. An
// empty code falls back to the code stored on the credential.
func (m *Manager) Authorize(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred := m.handle.Snapshot()
	if code == "" {
		code = cred.Code
	}
	if code == "" {
		return fmt.Errorf("%s: %w", cred.Platform, ErrNoAuthorizationCode)
	}

	now := m.nowFunc()
	grant, err := m.refresher.Exchange(ctx, cred, code)
	if err != nil {
		return fmt.Errorf("exchanging %s authorization code: %w", cred.Platform, err)
	}

	updated := m.handle.Update(func(c *credential.Credential) {
		c.Apply(grant, now, m.refresher.Lifetimes())
	})
	return m.persistLocked(ctx, updated)
}

// SetCode stores an authorization code for a later Authorize.
func (m *Manager) SetCode(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := m.handle.Update(func(c *credential.Credential) {
		c.Code = code
	})
	return m.persistLocked(ctx, updated)
}

// Logout drops all tokens and deletes the persisted credential.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred := m.handle.Update(func(c *credential.Credential) {
		c.ClearTokens(m.nowFunc())
	})
	m.unsaved = false
	publishExpiry(cred)
	if err := m.store.Delete(ctx, cred.Platform); err != nil {
		return fmt.Errorf("logging out %s: %w", cred.Platform, err)
	}
	return nil
}

func (m *Manager) persistLocked(ctx context.Context, c credential.Credential) error {
	if err := m.store.Save(ctx, c); err != nil {
		m.unsaved = true
		m.log.Error("persisting credential failed", "platform", c.Platform, "error", err)
		return fmt.Errorf("persisting %s credential: %w", c.Platform, err)
	}
	m.unsaved = false
	publishExpiry(c)
	return nil
}

func publishExpiry(c credential.Credential) {
	unix := func(t *time.Time) float64 {
		if t == nil {
			return 0
		}
		return float64(t.Unix())
	}
	p := string(c.Platform)
	metrics.TokenAccessExpiryTimestamp.WithLabelValues(p).Set(unix(c.AccessExpiry))
	metrics.TokenRefreshExpiryTimestamp.WithLabelValues(p).Set(unix(c.RefreshExpiry))
}

// Status is a point-in-time view of the managed credential.
type Status struct {
	Platform      credential.Platform
	State         credential.State
	AccessExpiry  *time.Time
	RefreshExpiry *time.Time
	// AccessRemaining is zero once the access token has expired.
	AccessRemaining time.Duration
	PendingCode     bool
}

// Status reports the current token state without refreshing.
func (m *Manager) Status() Status {
	now := m.nowFunc()
	cred := m.handle.Snapshot()
	st := Status{
		Platform:      cred.Platform,
		State:         cred.State(now),
		AccessExpiry:  cred.AccessExpiry,
		RefreshExpiry: cred.RefreshExpiry,
		PendingCode:   cred.Code != "",
	}
	if cred.AccessExpiry != nil && cred.AccessExpiry.After(now) {
		st.AccessRemaining = cred.AccessExpiry.Sub(now)
	}
	return st
}

// EnsureValidRetry calls EnsureValid and retries once after ErrRefreshFailed.
// ErrReauthRequired and other failures return immediately.
func EnsureValidRetry(ctx context.Context, m *Manager) error {
	err := m.EnsureValid(ctx)
	if errors.Is(err, ErrRefreshFailed) {
		m.log.Warn("retrying token refresh once", "platform", m.handle.Platform(), "error", err)
		err = m.EnsureValid(ctx)
	}
	return err
}
