package sink

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestSanitizeSheetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Wallet_01_2025_all", want: "Wallet_01_2025_all"},
		{in: "a:b/c?d*e[f]g", want: "abcdefg"},
		{in: "  padded  ", want: "padded"},
		{in: strings.Repeat("x", 40), want: strings.Repeat("x", 31)},
		{in: strings.Repeat("é", 35), want: strings.Repeat("é", 31)},
		{in: "[]", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeSheetName(tt.in))
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	want := []float64{1.5, 3, 6, 12, 24, 48, 60, 60, 60}
	prev := time.Duration(0)
	for f, w := range want {
		got := p.Delay(f)
		assert.InDelta(t, w, got.Seconds(), 1e-9, "failures=%d", f)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 60*time.Second, p.Delay(1000))
}

func TestPolicy_IsQuota(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "quota text", err: errors.New("Quota exceeded for quota metric 'Write requests'"), want: true},
		{name: "rate limit text", err: errors.New("Rate Limit hit"), want: true},
		{name: "429", err: fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), want: true},
		{name: "generic", err: errors.New("connection reset"), want: false},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.IsQuota(tt.err))
		})
	}

	custom := Policy{QuotaIndicators: []string{"RESOURCE_EXHAUSTED"}}.withDefaults()
	assert.True(t, custom.IsQuota(errors.New("rpc error: resource_exhausted")))
	assert.False(t, custom.IsQuota(errors.New("quota exceeded")))
}

func TestError_Is(t *testing.T) {
	t.Parallel()

	quota := &Error{Step: "clear", Quota: true, Err: errors.New("quota")}
	assert.ErrorIs(t, quota, ErrPermanent)
	assert.ErrorIs(t, quota, ErrQuotaExceeded)

	generic := &Error{Step: "clear", Err: errors.New("boom")}
	assert.ErrorIs(t, generic, ErrPermanent)
	assert.NotErrorIs(t, generic, ErrQuotaExceeded)
	assert.Contains(t, generic.Error(), "sink-write")
}
