package platform

import (
	"errors"
	"fmt"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrAuth        = errors.New("platform rejected credentials")
	ErrRateLimited = errors.New("platform rate limit")
	ErrTransient   = errors.New("transient platform failure")
	ErrPermanent   = errors.New("permanent platform failure")
	// ErrConfig marks identity fields missing before a request could be signed.
	ErrConfig = errors.New("platform configuration")
)

// Kind classifies a failed call.
type Kind int

// Failure kinds.
const (
	KindTransient Kind = iota + 1
	KindPermanent
	KindAuth
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a classified platform call failure.
type Error struct {
	Kind     Kind
	Platform credential.Platform
	Endpoint string
	Status   int
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Platform, e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrPermanent:
		return e.Kind == KindPermanent
	default:
		return false
	}
}

// Retryable reports whether a caller may retry err: transient failures and
// rate limits are, auth and permanent failures are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// KindOf returns the Kind of err, or 0 when err is not a platform error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
