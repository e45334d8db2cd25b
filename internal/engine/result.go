package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
)

// Phases named by PhaseError. Fetch failures are reported as
// "fetch-page N".
const (
	PhaseToken  = "token"
	PhaseExport = "export"
	PhaseSink   = "sink-write"
)

// PhaseError is a terminal sync failure. Partial holds the deduplicated
// records collected before the failure.
type PhaseError struct {
	Phase    string
	Platform credential.Platform
	Err      error
	Partial  []fetch.Record
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Summary describes one sync run.
type Summary struct {
	Kind        string              `json:"kind"`
	Platform    credential.Platform `json:"platform"`
	Worksheet   string              `json:"worksheet"`
	Records     int                 `json:"records"`
	Written     bool                `json:"written"`
	ExportPath  string              `json:"export_path,omitempty"`
	Identifiers int                 `json:"identifiers"`
	// Skipped lists omitted windows as "fetch-window <start>..<end>: <cause>".
	Skipped  []string      `json:"skipped,omitempty"`
	Report   fetch.Report  `json:"-"`
	Duration time.Duration `json:"duration"`
}

// fetchPhase names the phase of a fetch failure. Token failures surfacing
// from inside a page call are reported as the token phase.
func fetchPhase(err error) string {
	if errors.Is(err, auth.ErrReauthRequired) || errors.Is(err, auth.ErrRefreshFailed) {
		return PhaseToken
	}
	var pe *fetch.PageError
	if errors.As(err, &pe) {
		return fmt.Sprintf("fetch-page %d", pe.Page)
	}
	return "fetch"
}

func skippedWindows(rep fetch.Report) []string {
	if len(rep.Omissions) == 0 {
		return nil
	}
	out := make([]string, 0, len(rep.Omissions))
	for _, o := range rep.Omissions {
		out = append(out, fmt.Sprintf("fetch-window %s..%s: %v",
			o.Window.Start.Format(time.DateOnly), o.Window.End.Format(time.DateOnly), o.Err))
	}
	return out
}
