package sink

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// Policy configures pacing, retry and rotation.
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	// RotateAfter is the consecutive failure count at which a quota failure
	// rotates to the next credential.
	RotateAfter int
	// QuotaIndicators are matched case-insensitively against error text.
	QuotaIndicators []string
	// ChunkRows bounds the rows sent per update call.
	ChunkRows int
}

// DefaultPolicy returns the production pacing policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:       1500 * time.Millisecond,
		MaxDelay:        60 * time.Second,
		MaxAttempts:     5,
		RotateAfter:     2,
		QuotaIndicators: []string{"quota", "exceeded", "rate limit"},
		ChunkRows:       1000,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.RotateAfter <= 0 {
		p.RotateAfter = d.RotateAfter
	}
	if p.QuotaIndicators == nil {
		p.QuotaIndicators = d.QuotaIndicators
	}
	if p.ChunkRows <= 0 {
		p.ChunkRows = d.ChunkRows
	}
	return p
}

// Delay is the minimum spacing between calls after failures consecutive
// failures: min(base * 2^failures, max).
func (p Policy) Delay(failures int) time.Duration {
	d := p.BaseDelay
	for range failures {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// IsQuota reports whether err signals a usage limit.
func (p Policy) IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, ind := range p.QuotaIndicators {
		if ind != "" && strings.Contains(msg, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}

// Budget is a point-in-time view of the writer's rate state.
type Budget struct {
	CredentialIndex     int           `json:"credentialIndex" doc:"Index of the active sink credential"`
	Credential          string        `json:"credential" doc:"Name of the active sink credential"`
	Credentials         int           `json:"credentials" doc:"Number of configured sink credentials"`
	ConsecutiveFailures int           `json:"consecutiveFailures" doc:"Failures since the last success or rotation"`
	LastRequest         time.Time     `json:"lastRequest,omitzero" doc:"Time of the last sink call"`
	Delay               time.Duration `json:"delayNanos" doc:"Current minimum spacing between calls in nanoseconds"`
}

type budgetState struct {
	lastRequest         time.Time
	consecutiveFailures int
	credentialIndex     int
}
