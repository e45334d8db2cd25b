// Package sink writes row grids to spreadsheet worksheets through a shared
// rate budget. Calls are spaced by an exponential delay that grows with
// consecutive failures, and repeated quota failures rotate to the next
// configured credential.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentinel errors matched by *Error.
var (
	ErrQuotaExceeded = errors.New("sink quota exceeded")
	ErrPermanent     = errors.New("sink write failed")
)

// Error is a terminal sink failure. Every Error matches ErrPermanent; one
// whose last attempt failed on quota also matches ErrQuotaExceeded.
type Error struct {
	Target   Target
	Step     string
	Attempts int
	Quota    bool
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sink-write %s/%s: %s after %d attempts: %v",
		e.Target.SpreadsheetID, e.Target.Worksheet, e.Step, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPermanent:
		return true
	case ErrQuotaExceeded:
		return e.Quota
	default:
		return false
	}
}

// Target names a worksheet inside a spreadsheet.
type Target struct {
	SpreadsheetID string
	Worksheet     string
}

// Backend is one authenticated spreadsheet client.
type Backend interface {
	// Name identifies the credential behind the backend in logs.
	Name() string
	// EnsureWorksheet creates the worksheet, treating "already exists" as success.
	EnsureWorksheet(ctx context.Context, spreadsheetID, worksheet string) error
	Clear(ctx context.Context, spreadsheetID, worksheet string) error
	// Update writes rows starting at the 1-based row startRow, column A.
	Update(ctx context.Context, spreadsheetID, worksheet string, startRow int, rows [][]string) error
}

// Clock abstracts time for the rate budget.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const maxSheetNameRunes = 31

// SanitizeSheetName strips the characters worksheets reject (: / ? * [ ]),
// trims surrounding space and caps the result at 31 runes.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', '?', '*', '[', ']':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxSheetNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:maxSheetNameRunes]))
	}
	return name
}
