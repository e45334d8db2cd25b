package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/api/handlers"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
	"github.com/donaldgifford/marketplace-sync/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printCredentialsTable(w io.Writer, creds []handlers.CredentialStatus) error {
	tw := newTabWriter(w)
	tw.writef("PLATFORM\tSTATE\tACCESS EXPIRES\tREFRESH EXPIRES\tREMAINING\tPENDING CODE\n")
	for i := range creds {
		c := &creds[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%v\n",
			c.Platform,
			c.State,
			formatTime(c.AccessExpiry),
			formatTime(c.RefreshExpiry),
			(time.Duration(c.AccessRemainingSeconds) * time.Second).String(),
			c.PendingCode,
		)
	}
	return tw.finish()
}

func printSummary(w io.Writer, s *engine.Summary) error {
	tw := newTabWriter(w)
	tw.writef("Kind:\t%s\n", s.Kind)
	tw.writef("Platform:\t%s\n", s.Platform)
	tw.writef("Worksheet:\t%s\n", s.Worksheet)
	tw.writef("Records:\t%d\n", s.Records)
	tw.writef("Written:\t%v\n", s.Written)
	if s.ExportPath != "" {
		tw.writef("Export:\t%s (%d identifiers)\n", s.ExportPath, s.Identifiers)
	}
	if len(s.Skipped) > 0 {
		tw.writef("Skipped:\t%s\n", strings.Join(s.Skipped, "; "))
	}
	tw.writef("Duration:\t%s\n", s.Duration.Round(time.Millisecond))
	return tw.finish()
}

func printOrdersResults(w io.Writer, results []engine.OrdersResult) error {
	tw := newTabWriter(w)
	tw.writef("PLATFORM\tWORKSHEET\tRECORDS\tWRITTEN\tERROR\n")
	for _, r := range results {
		sheet, records, written, errText := "-", 0, false, ""
		if r.Summary != nil {
			sheet, records, written = r.Summary.Worksheet, r.Summary.Records, r.Summary.Written
		}
		if r.Err != nil {
			errText = truncate(r.Err.Error(), 60)
		}
		tw.writef("%s\t%s\t%d\t%v\t%s\n", r.Platform, sheet, records, written, errText)
	}
	return tw.finish()
}

func printBudget(w io.Writer, b *sink.Budget) error {
	tw := newTabWriter(w)
	tw.writef("Credential:\t%s (%d of %d)\n", b.Credential, b.CredentialIndex+1, b.Credentials)
	tw.writef("Consecutive failures:\t%d\n", b.ConsecutiveFailures)
	tw.writef("Delay:\t%s\n", b.Delay)
	if !b.LastRequest.IsZero() {
		tw.writef("Last request:\t%s\n", b.LastRequest.Format(timeLayout))
	}
	return tw.finish()
}

func printJobRunsTable(w io.Writer, runs []store.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tERROR\n")
	for i := range runs {
		r := &runs[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format(timeLayout),
			formatTime(r.CompletedAt),
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
