package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/metrics"
)

// Writer serializes sink calls across its backends. A Writer is safe for
// concurrent use; concurrent writes share one budget.
type Writer struct {
	backends []Backend
	policy   Policy
	clock    Clock
	log      *slog.Logger

	mu    sync.Mutex
	state budgetState
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithPolicy sets the pacing policy. Zero fields take defaults.
func WithPolicy(p Policy) WriterOption {
	return func(w *Writer) {
		w.policy = p.withDefaults()
	}
}

// WithClock overrides the clock for testing.
func WithClock(c Clock) WriterOption {
	return func(w *Writer) {
		w.clock = c
	}
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.log = l
	}
}

// NewWriter creates a Writer rotating over backends in order.
func NewWriter(backends []Backend, opts ...WriterOption) (*Writer, error) {
	if len(backends) == 0 {
		return nil, errors.New("sink requires at least one backend")
	}
	w := &Writer{
		backends: backends,
		policy:   DefaultPolicy(),
		clock:    realClock{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Budget returns the current rate state.
func (w *Writer) Budget() Budget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Budget{
		CredentialIndex:     w.state.credentialIndex,
		Credential:          w.backends[w.state.credentialIndex].Name(),
		Credentials:         len(w.backends),
		ConsecutiveFailures: w.state.consecutiveFailures,
		LastRequest:         w.state.lastRequest,
		Delay:               w.policy.Delay(w.state.consecutiveFailures),
	}
}

// Write replaces the contents of target with rows. The worksheet is created
// if missing and cleared once; rows are then written in chunks at fixed
// offsets, so a retried chunk overwrites rather than duplicates.
func (w *Writer) Write(ctx context.Context, target Target, rows [][]string) error {
	target.Worksheet = SanitizeSheetName(target.Worksheet)
	if target.SpreadsheetID == "" || target.Worksheet == "" {
		return &Error{Target: target, Step: "resolve", Err: errors.New("spreadsheet id and worksheet name are required")}
	}

	err := w.call(ctx, target, "ensure", func(ctx context.Context, b Backend) error {
		return b.EnsureWorksheet(ctx, target.SpreadsheetID, target.Worksheet)
	})
	if err != nil {
		return err
	}

	err = w.call(ctx, target, "clear", func(ctx context.Context, b Backend) error {
		return b.Clear(ctx, target.SpreadsheetID, target.Worksheet)
	})
	if err != nil {
		return err
	}

	chunk := w.policy.ChunkRows
	for off := 0; off < len(rows); off += chunk {
		end := min(off+chunk, len(rows))
		part := rows[off:end]
		startRow := off + 1
		step := fmt.Sprintf("update rows %d-%d", startRow, off+len(part))
		err := w.call(ctx, target, step, func(ctx context.Context, b Backend) error {
			return b.Update(ctx, target.SpreadsheetID, target.Worksheet, startRow, part)
		})
		if err != nil {
			return err
		}
	}

	w.log.Info("sink write complete",
		"spreadsheet", target.SpreadsheetID,
		"worksheet", target.Worksheet,
		"rows", len(rows),
	)
	return nil
}

// Upload writes rows to the named worksheet and reports success.
func (w *Writer) Upload(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) bool {
	err := w.Write(ctx, Target{SpreadsheetID: spreadsheetID, Worksheet: worksheet}, rows)
	if err != nil {
		w.log.Error("sink upload failed", "worksheet", worksheet, "error", err)
		return false
	}
	return true
}

// call runs op with pacing, retry and rotation. Each attempt holds the budget
// lock for its wait and its single backend call.
func (w *Writer) call(ctx context.Context, target Target, step string, op func(context.Context, Backend) error) error {
	var lastErr error
	quota := false
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		err := w.attempt(ctx, op)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		quota = w.policy.IsQuota(err)

		w.log.Warn("sink call failed",
			"step", step,
			"worksheet", target.Worksheet,
			"attempt", attempt,
			"max_attempts", w.policy.MaxAttempts,
			"quota", quota,
			"error", err,
		)
	}
	return &Error{Target: target, Step: step, Attempts: w.policy.MaxAttempts, Quota: quota, Err: lastErr}
}

func (w *Writer) attempt(ctx context.Context, op func(context.Context, Backend) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	delay := w.policy.Delay(w.state.consecutiveFailures)
	metrics.SinkBackoffSeconds.Set(delay.Seconds())
	if !w.state.lastRequest.IsZero() {
		if wait := delay - w.clock.Now().Sub(w.state.lastRequest); wait > 0 {
			if err := w.clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	b := w.backends[w.state.credentialIndex]
	w.state.lastRequest = w.clock.Now()
	err := op(ctx, b)
	if err == nil {
		w.state.consecutiveFailures = 0
		metrics.SinkAttemptsTotal.WithLabelValues("success").Inc()
		return nil
	}

	w.state.consecutiveFailures++
	quota := w.policy.IsQuota(err)
	if quota {
		metrics.SinkAttemptsTotal.WithLabelValues("quota").Inc()
	} else {
		metrics.SinkAttemptsTotal.WithLabelValues("error").Inc()
	}

	if quota && len(w.backends) > 1 && w.state.consecutiveFailures >= w.policy.RotateAfter {
		w.rotateLocked()
	}
	return err
}

func (w *Writer) rotateLocked() {
	from := w.state.credentialIndex
	w.state.credentialIndex = (from + 1) % len(w.backends)
	w.state.consecutiveFailures = 0
	w.state.lastRequest = time.Time{}
	metrics.SinkRotationsTotal.Inc()
	w.log.Warn("rotating sink credential",
		"from", w.backends[from].Name(),
		"to", w.backends[w.state.credentialIndex].Name(),
		"credential_index", w.state.credentialIndex,
	)
}
