package fetch

import (
	"context"
	"iter"
	"strconv"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/metrics"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
)

const (
	// DefaultSpan is the widest range wallet endpoints accept per query.
	DefaultSpan     = 15 * 24 * time.Hour
	defaultUnit     = time.Second
	defaultPageSize = 100
	maxPageSize     = 100
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Partition splits [start, end] into consecutive inclusive windows of at most
// span. Each window ends span-unit after it starts, clipped to end, and the
// next starts one unit later, so windows neither overlap nor leave gaps at
// unit resolution.
func Partition(start, end time.Time, span, unit time.Duration) []Window {
	if unit <= 0 {
		unit = defaultUnit
	}
	if span <= unit || end.Before(start) {
		return nil
	}
	var out []Window
	for s := start; !s.After(end); {
		e := s.Add(span - unit)
		if e.After(end) {
			e = end
		}
		out = append(out, Window{Start: s, End: e})
		s = e.Add(unit)
	}
	return out
}

// WindowSpec describes a time-filtered, page-numbered endpoint.
type WindowSpec struct {
	Endpoint string
	Method   string
	Params   map[string]string
	Start    time.Time
	End      time.Time
	// Span defaults to DefaultSpan, Unit to one second.
	Span time.Duration
	Unit time.Duration

	FromParam  string
	ToParam    string
	FormatTime func(time.Time) string

	// PageParam starts at 1. PageSize is capped at 100.
	PageParam     string
	PageSizeParam string
	PageSize      int

	Extract Extractor
	Key     KeyFunc

	// TimeField names the unix-seconds field used for the coverage check.
	// Empty disables the check.
	TimeField string
	Location  *time.Location

	MaxPagesPerWindow int
}

func (s *WindowSpec) defaults() {
	if s.Span == 0 {
		s.Span = DefaultSpan
	}
	if s.Unit == 0 {
		s.Unit = defaultUnit
	}
	if s.FormatTime == nil {
		s.FormatTime = func(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }
	}
	if s.PageParam == "" {
		s.PageParam = "page_no"
	}
	if s.PageSizeParam == "" {
		s.PageSizeParam = "page_size"
	}
	if s.PageSize <= 0 {
		s.PageSize = defaultPageSize
	}
	if s.PageSize > maxPageSize {
		s.PageSize = maxPageSize
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
}

// StreamWindowed partitions the range and pages through each window until a
// page returns fewer than PageSize records. A page that fails with a
// transient, rate-limited or permanent platform error after retries skips
// the rest of its window and is recorded as an omission; any other failure
// (auth, configuration, cancellation) is yielded as a *PageError and ends the
// stream. rep is filled in as the stream is consumed.
func (f *Fetcher) StreamWindowed(ctx context.Context, spec WindowSpec) (iter.Seq2[Record, error], *Report) {
	spec.defaults()
	rep := &Report{}
	seq := func(yield func(Record, error) bool) {
		d := newDedup(spec.Endpoint, spec.Key, rep)
		var seen []time.Time
		issued := 0

		rep.Windows = Partition(spec.Start, spec.End, spec.Span, spec.Unit)
		for _, w := range rep.Windows {
			for page := 1; spec.MaxPagesPerWindow == 0 || page <= spec.MaxPagesPerWindow; page++ {
				params := copyParams(spec.Params, 4)
				params[spec.FromParam] = spec.FormatTime(w.Start)
				params[spec.ToParam] = spec.FormatTime(w.End)
				params[spec.PageParam] = strconv.Itoa(page)
				params[spec.PageSizeParam] = strconv.Itoa(spec.PageSize)

				issued++
				items, err := f.windowPage(ctx, spec, params)
				if err != nil {
					if !skippable(ctx, err) {
						rep.Stop = StopError
						yield(nil, &PageError{Page: issued, Err: err})
						return
					}
					rep.Omissions = append(rep.Omissions, Omission{Window: w, Page: page, Err: err})
					metrics.FetchOmissionsTotal.WithLabelValues(spec.Endpoint).Inc()
					f.log.Warn("skipping window after page failure",
						"endpoint", spec.Endpoint,
						"window_start", w.Start,
						"window_end", w.End,
						"page", page,
						"error", err,
					)
					break
				}
				rep.Pages++

				for _, r := range items {
					if !d.admit(r) {
						continue
					}
					if spec.TimeField != "" {
						if t, ok := r.Unix(spec.TimeField); ok {
							seen = append(seen, t)
						}
					}
					if !yield(r, nil) {
						return
					}
				}
				if len(items) < spec.PageSize {
					break
				}
			}
		}
		rep.Stop = StopExhausted

		if spec.TimeField != "" {
			rep.Missing = VerifyCoverage(seen, spec.Start, spec.End, spec.Location)
			rep.Uncovered = uncovered(rep.Missing, rep.Omissions)
			if len(rep.Missing) > 0 {
				f.log.Info("days without records",
					"endpoint", spec.Endpoint,
					"missing", len(rep.Missing),
					"uncovered", len(rep.Uncovered),
				)
			}
		}
	}
	return seq, rep
}

func (f *Fetcher) windowPage(ctx context.Context, spec WindowSpec, params map[string]string) ([]Record, error) {
	env, err := f.page(ctx, platformRequest(spec.Endpoint, spec.Method, params, nil))
	if err != nil {
		return nil, err
	}
	items, err := spec.Extract(env.Data)
	if err != nil {
		return nil, &platform.Error{Kind: platform.KindPermanent, Endpoint: spec.Endpoint, Message: "malformed page", Err: err}
	}
	return items, nil
}

// FetchWindowed collects StreamWindowed.
func (f *Fetcher) FetchWindowed(ctx context.Context, spec WindowSpec) (Result, error) {
	seq, rep := f.StreamWindowed(ctx, spec)
	return collect(seq, rep)
}

func skippable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch platform.KindOf(err) {
	case platform.KindTransient, platform.KindRateLimited, platform.KindPermanent:
		return true
	default:
		return false
	}
}

func platformRequest(endpoint, method string, params map[string]string, body any) platform.Request {
	return platform.Request{Endpoint: endpoint, Method: method, Params: params, Body: body}
}
