// Package engine runs the synchronization jobs: it validates a platform's
// token, pages through the platform API, exports the identifiers it found
// and writes the rows to the spreadsheet sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/export"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
	"github.com/donaldgifford/marketplace-sync/internal/metrics"
	"github.com/donaldgifford/marketplace-sync/internal/notify"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
)

// ErrNotConfigured is returned for a platform without an integration.
var ErrNotConfigured = errors.New("platform not configured")

// Sink persists a grid of rows into a worksheet.
type Sink interface {
	Write(ctx context.Context, target sink.Target, rows [][]string) error
}

// Integration is everything the engine needs to talk to one platform.
type Integration struct {
	Tokens  *auth.Manager
	Fetcher *fetch.Fetcher
}

// Platform returns the platform of the integration's credential.
func (i Integration) Platform() credential.Platform {
	return i.Tokens.Handle().Platform()
}

// Engine orchestrates sync jobs across platform integrations.
type Engine struct {
	integrations map[credential.Platform]Integration
	sink         Sink
	spreadsheet  string
	exportDir    string
	loc          *time.Location
	windowSpan   time.Duration
	pageSize     int
	notifier     notify.Notifier
	nowFunc      func() time.Time
	log          *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSink sets the sink and the spreadsheet rows are written to. Without a
// sink, sync jobs still fetch and export but skip the write.
func WithSink(s Sink, spreadsheetID string) EngineOption {
	return func(e *Engine) {
		e.sink = s
		e.spreadsheet = spreadsheetID
	}
}

// WithExportDir sets where identifier files are written. Empty disables
// exports.
func WithExportDir(dir string) EngineOption {
	return func(e *Engine) {
		e.exportDir = dir
	}
}

// WithLocation sets the zone used for month boundaries and row dates.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		e.loc = loc
	}
}

// WithWindowDays sets the widest date range requested per wallet query.
func WithWindowDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.windowSpan = time.Duration(days) * 24 * time.Hour
		}
	}
}

// WithPageSize sets the page size requested from platform list endpoints.
func WithPageSize(n int) EngineOption {
	return func(e *Engine) {
		e.pageSize = n
	}
}

// WithNotifier sets where failed and partial syncs are reported.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// NewEngine creates an Engine over the given integrations. A later
// integration for the same platform replaces an earlier one.
func NewEngine(integrations []Integration, opts ...EngineOption) *Engine {
	eng := &Engine{
		integrations: make(map[credential.Platform]Integration, len(integrations)),
		loc:          time.UTC,
		windowSpan:   fetch.DefaultSpan,
		pageSize:     100,
		nowFunc:      time.Now,
		log:          slog.Default(),
	}
	for _, in := range integrations {
		eng.integrations[in.Platform()] = in
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.notifier == nil {
		eng.notifier = notify.NewNoOpNotifier(eng.log)
	}
	return eng
}

// Platforms returns the configured platforms in a stable order.
func (e *Engine) Platforms() []credential.Platform {
	out := make([]credential.Platform, 0, len(e.integrations))
	for p := range e.integrations {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Tokens returns the token manager of p.
func (e *Engine) Tokens(p credential.Platform) (*auth.Manager, error) {
	in, ok := e.integrations[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotConfigured)
	}
	return in.Tokens, nil
}

// TokenStatus reports the token state of every platform without refreshing.
func (e *Engine) TokenStatus() []auth.Status {
	out := make([]auth.Status, 0, len(e.integrations))
	for _, p := range e.Platforms() {
		out = append(out, e.integrations[p].Tokens.Status())
	}
	return out
}

// RefreshToken forces a refresh of p's access token and reports the
// resulting state.
func (e *Engine) RefreshToken(ctx context.Context, p credential.Platform) (auth.Status, error) {
	m, err := e.Tokens(p)
	if err != nil {
		return auth.Status{}, err
	}
	if err := m.Refresh(ctx); err != nil {
		return m.Status(), &PhaseError{Phase: PhaseToken, Platform: p, Err: err}
	}
	return m.Status(), nil
}

// ValidateTokens ensures every platform's token is usable, refreshing where
// needed. Failures are logged and joined; one platform failing does not stop
// the others.
func (e *Engine) ValidateTokens(ctx context.Context) error {
	var errs []error
	for _, p := range e.Platforms() {
		m := e.integrations[p].Tokens
		if err := auth.EnsureValidRetry(ctx, m); err != nil {
			e.log.Error("token validation failed", "platform", p, "error", err)
			errs = append(errs, &PhaseError{Phase: PhaseToken, Platform: p, Err: err})
			e.notify(ctx, tokenEvent(p, err))
			continue
		}
		st := m.Status()
		e.log.Info("token valid",
			"platform", p,
			"access_remaining", st.AccessRemaining.Round(time.Minute),
		)
	}
	return errors.Join(errs...)
}

// job is one fetch-export-write pass.
type job struct {
	kind      string
	platform  credential.Platform
	target    sink.Target
	table     table
	exportTo  string
	idField   string
	fetch     func(ctx context.Context, f *fetch.Fetcher) (fetch.Result, error)
	sortField string
}

func (e *Engine) run(ctx context.Context, in Integration, j job) (*Summary, error) {
	start := time.Now()
	j.target.Worksheet = sink.SanitizeSheetName(j.target.Worksheet)
	sum := &Summary{Kind: j.kind, Platform: j.platform, Worksheet: j.target.Worksheet}

	err := e.execute(ctx, in, j, sum)
	sum.Duration = time.Since(start)
	metrics.SyncDuration.WithLabelValues(j.kind).Observe(sum.Duration.Seconds())

	result := "success"
	switch {
	case err != nil:
		result = "failure"
	case len(sum.Skipped) > 0:
		result = "partial"
	}
	metrics.SyncRunsTotal.WithLabelValues(j.kind, string(j.platform), result).Inc()

	if err != nil {
		e.log.Error("sync failed",
			"kind", j.kind,
			"platform", j.platform,
			"records", sum.Records,
			"error", err,
		)
		e.notify(ctx, syncEvent(sum, err))
		return sum, err
	}
	if len(sum.Skipped) > 0 {
		e.notify(ctx, syncEvent(sum, nil))
	}
	e.log.Info("sync complete",
		"kind", j.kind,
		"platform", j.platform,
		"records", sum.Records,
		"pages", sum.Report.Pages,
		"duplicates", sum.Report.Duplicates,
		"skipped_windows", len(sum.Skipped),
		"worksheet", sum.Worksheet,
		"duration", sum.Duration,
	)
	return sum, nil
}

func (e *Engine) execute(ctx context.Context, in Integration, j job, sum *Summary) error {
	if err := auth.EnsureValidRetry(ctx, in.Tokens); err != nil {
		return &PhaseError{Phase: PhaseToken, Platform: j.platform, Err: err}
	}

	res, err := j.fetch(ctx, in.Fetcher)
	sum.Report = res.Report
	sum.Records = len(res.Records)
	if err != nil {
		return &PhaseError{Phase: fetchPhase(err), Platform: j.platform, Err: err, Partial: res.Records}
	}
	sum.Skipped = skippedWindows(res.Report)

	records := res.Records
	if j.sortField != "" {
		records = sortByTime(records, j.sortField)
	}

	if e.exportDir != "" && j.exportTo != "" {
		path := filepath.Join(e.exportDir, j.exportTo)
		n, err := export.WriteIdentifiers(path, identifiers(records, j.idField))
		if err != nil {
			return &PhaseError{Phase: PhaseExport, Platform: j.platform, Err: err, Partial: records}
		}
		sum.ExportPath = path
		sum.Identifiers = n
	}

	if e.sink == nil || e.spreadsheet == "" {
		e.log.Info("sink not configured, skipping write", "kind", j.kind, "platform", j.platform)
		return nil
	}
	j.target.SpreadsheetID = e.spreadsheet
	if err := e.sink.Write(ctx, j.target, j.table.rows(records, e.loc)); err != nil {
		return &PhaseError{Phase: PhaseSink, Platform: j.platform, Err: err, Partial: records}
	}
	sum.Written = true
	metrics.SyncRecordsTotal.WithLabelValues(j.kind, string(j.platform)).Add(float64(len(records)))
	return nil
}

func (e *Engine) integration(p credential.Platform) (Integration, error) {
	in, ok := e.integrations[p]
	if !ok {
		return Integration{}, fmt.Errorf("%s: %w", p, ErrNotConfigured)
	}
	return in, nil
}

func identifiers(records []fetch.Record, field string) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if id := r.String(field); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortByTime(records []fetch.Record, field string) []fetch.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b fetch.Record) int {
		ta, _ := a.Unix(field)
		tb, _ := b.Unix(field)
		return ta.Compare(tb)
	})
	return out
}
