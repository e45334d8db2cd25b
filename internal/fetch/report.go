package fetch

import (
	"fmt"
	"time"
)

// StopReason says why a pagination loop ended.
type StopReason string

// Stop reasons.
const (
	StopExhausted StopReason = "exhausted"
	StopEmptyPage StopReason = "empty_page"
	StopMaxPages  StopReason = "max_pages"
	StopRepeated  StopReason = "repeated_cursor"
	StopError     StopReason = "error"
)

// Omission is a window (or the rest of one) skipped after a failed page.
type Omission struct {
	Window Window
	Page   int
	Err    error
}

// Report summarizes one fetch.
type Report struct {
	Pages      int
	Records    int
	Duplicates int
	Windows    []Window
	Omissions  []Omission
	Stop       StopReason
	// Missing lists days in range with zero records. Empty days exist, so
	// this is a diagnostic, not proof of loss.
	Missing []time.Time
	// Uncovered lists days that fell only inside omitted windows.
	Uncovered []time.Time
}

// Complete reports whether no page or window was skipped.
func (r *Report) Complete() bool {
	return len(r.Omissions) == 0 && r.Stop != StopError
}

// PageError is a terminal failure during pagination. Page is 1-based and
// counts requests issued across the whole fetch.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetch-page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Result is the collected output of a fetch. Records are deduplicated and in
// visit order; they are populated even when the fetch fails part way.
type Result struct {
	Records []Record
	Report  Report
}
