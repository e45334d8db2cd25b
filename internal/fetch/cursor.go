package fetch

import (
	"context"
	"iter"
)

// CursorSpec describes a cursor-paginated endpoint.
type CursorSpec struct {
	Endpoint string
	Method   string
	Params   map[string]string
	Body     any
	// CursorParam carries the continuation on each request after the first
	// (or on the first when StartCursor is set).
	CursorParam string
	StartCursor string
	Extract     Extractor
	Key         KeyFunc
	// MaxPages bounds the loop; zero means unbounded.
	MaxPages int
}

// StreamCursor yields the deduplicated records of every page in order. The
// loop ends on an empty page, when the envelope reports no more data, when the
// continuation is empty or already visited, or on the first failure, which is
// yielded as a *PageError. rep is filled in as the stream is consumed.
func (f *Fetcher) StreamCursor(ctx context.Context, spec CursorSpec) (iter.Seq2[Record, error], *Report) {
	rep := &Report{}
	seq := func(yield func(Record, error) bool) {
		d := newDedup(spec.Endpoint, spec.Key, rep)
		cursor := spec.StartCursor
		visited := map[string]struct{}{cursor: {}}

		for page := 1; ; page++ {
			if spec.MaxPages > 0 && page > spec.MaxPages {
				rep.Stop = StopMaxPages
				return
			}

			params := copyParams(spec.Params, 1)
			if cursor != "" && spec.CursorParam != "" {
				params[spec.CursorParam] = cursor
			}
			env, err := f.page(ctx, platformRequest(spec.Endpoint, spec.Method, params, spec.Body))
			if err != nil {
				rep.Stop = StopError
				yield(nil, &PageError{Page: page, Err: err})
				return
			}
			items, err := spec.Extract(env.Data)
			if err != nil {
				rep.Stop = StopError
				yield(nil, &PageError{Page: page, Err: err})
				return
			}
			rep.Pages++

			if len(items) == 0 {
				rep.Stop = StopEmptyPage
				return
			}
			for _, r := range items {
				if d.admit(r) && !yield(r, nil) {
					return
				}
			}

			if !env.HasMore || env.Continuation == "" {
				rep.Stop = StopExhausted
				return
			}
			if _, ok := visited[env.Continuation]; ok {
				f.log.Warn("continuation did not advance",
					"endpoint", spec.Endpoint,
					"cursor", env.Continuation,
				)
				rep.Stop = StopRepeated
				return
			}
			visited[env.Continuation] = struct{}{}
			cursor = env.Continuation
		}
	}
	return seq, rep
}

// FetchCursor collects StreamCursor. On failure the records gathered so far
// are returned alongside the error.
func (f *Fetcher) FetchCursor(ctx context.Context, spec CursorSpec) (Result, error) {
	seq, rep := f.StreamCursor(ctx, spec)
	return collect(seq, rep)
}

func collect(seq iter.Seq2[Record, error], rep *Report) (Result, error) {
	var res Result
	for r, err := range seq {
		if err != nil {
			res.Report = *rep
			return res, err
		}
		res.Records = append(res.Records, r)
	}
	res.Report = *rep
	return res, nil
}
