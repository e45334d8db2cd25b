package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/pkg/logger"
)

type callerFunc func(ctx context.Context, req platform.Request) (platform.Envelope, error)

type fakeCaller struct {
	mu   sync.Mutex
	fn   callerFunc
	reqs []platform.Request
}

func (c *fakeCaller) Call(ctx context.Context, req platform.Request) (platform.Envelope, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return c.fn(ctx, req)
}

func (c *fakeCaller) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func newTestFetcher(c platform.Caller) *Fetcher {
	return New(c,
		WithMinDelay(0),
		WithPageRetries(2),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		WithLogger(logger.Discard()),
	)
}

func itemsEnvelope(t *testing.T, key string, items []map[string]any, cont string, more bool) platform.Envelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{key: items})
	require.NoError(t, err)
	return platform.Envelope{Data: data, Continuation: cont, HasMore: more}
}

func orders(from, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"order_sn": fmt.Sprintf("SN%05d", from+i)}
	}
	return out
}

func transientErr() error {
	return &platform.Error{Kind: platform.KindTransient, Message: "busy"}
}

func TestFetchCursor_Pages(t *testing.T) {
	t.Parallel()

	sizes := []int{100, 100, 42}
	caller := &fakeCaller{}
	caller.fn = func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		page := 0
		if c := req.Params["cursor"]; c != "" {
			page, _ = strconv.Atoi(c)
		}
		more := page < len(sizes)-1
		return itemsEnvelope(t, "order_list", orders(page*100, sizes[page]), strconv.Itoa(page+1), more), nil
	}

	res, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
		Endpoint:    "/orders",
		CursorParam: "cursor",
		Extract:     ListAt("order_list"),
		Key:         FieldKey("order_sn"),
	})
	require.NoError(t, err)

	assert.Len(t, res.Records, 242)
	assert.Equal(t, 3, res.Report.Pages)
	assert.Equal(t, 242, res.Report.Records)
	assert.Equal(t, StopExhausted, res.Report.Stop)
	assert.True(t, res.Report.Complete())
	assert.Equal(t, "SN00000", res.Records[0].String("order_sn"))
	assert.Equal(t, "SN00241", res.Records[241].String("order_sn"))

	require.Len(t, caller.reqs, 3)
	assert.Empty(t, caller.reqs[0].Params["cursor"])
	assert.Equal(t, "2", caller.reqs[2].Params["cursor"])
}

func TestFetchCursor_StopConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pages     func(n int) ([]map[string]any, string, bool)
		wantPages int
		wantStop  StopReason
	}{
		{
			name: "empty page",
			pages: func(n int) ([]map[string]any, string, bool) {
				if n == 1 {
					return nil, "x", true
				}
				return orders(0, 5), "next", true
			},
			wantPages: 2,
			wantStop:  StopEmptyPage,
		},
		{
			name: "empty continuation",
			pages: func(int) ([]map[string]any, string, bool) {
				return orders(0, 5), "", true
			},
			wantPages: 1,
			wantStop:  StopExhausted,
		},
		{
			name: "repeated continuation",
			pages: func(n int) ([]map[string]any, string, bool) {
				return orders(n*5, 5), "same", true
			},
			wantPages: 2,
			wantStop:  StopRepeated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := 0
			caller := &fakeCaller{fn: func(context.Context, platform.Request) (platform.Envelope, error) {
				items, cont, more := tt.pages(n)
				n++
				return itemsEnvelope(t, "list", items, cont, more), nil
			}}

			res, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
				Endpoint:    "/x",
				CursorParam: "cursor",
				Extract:     ListAt("list"),
				Key:         FieldKey("order_sn"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, res.Report.Pages)
			assert.Equal(t, tt.wantStop, res.Report.Stop)
		})
	}
}

func TestFetchCursor_MaxPages(t *testing.T) {
	t.Parallel()

	n := 0
	caller := &fakeCaller{fn: func(context.Context, platform.Request) (platform.Envelope, error) {
		n++
		return itemsEnvelope(t, "list", orders(n*10, 10), strconv.Itoa(n), true), nil
	}}

	res, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
		Endpoint: "/x", CursorParam: "cursor", Extract: ListAt("list"), Key: FieldKey("order_sn"), MaxPages: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Report.Pages)
	assert.Equal(t, StopMaxPages, res.Report.Stop)
}

func TestFetchCursor_Deduplicates(t *testing.T) {
	t.Parallel()

	// Each page overlaps the previous one by five records.
	caller := &fakeCaller{}
	caller.fn = func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		page, _ := strconv.Atoi(req.Params["cursor"])
		return itemsEnvelope(t, "list", orders(page*15, 20), strconv.Itoa(page+1), page < 2), nil
	}

	res, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
		Endpoint: "/x", CursorParam: "cursor", StartCursor: "0", Extract: ListAt("list"), Key: FieldKey("order_sn"),
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Report.Duplicates)
	assert.Len(t, res.Records, 50)
	seen := make(map[string]bool)
	for _, r := range res.Records {
		k := r.String("order_sn")
		assert.False(t, seen[k], "duplicate %s", k)
		seen[k] = true
	}
}

func TestFetchCursor_FailureKeepsPartial(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{}
	caller.fn = func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		if req.Params["cursor"] == "1" {
			return platform.Envelope{}, transientErr()
		}
		return itemsEnvelope(t, "list", orders(0, 100), "1", true), nil
	}

	res, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
		Endpoint: "/x", CursorParam: "cursor", Extract: ListAt("list"), Key: FieldKey("order_sn"),
	})
	require.Error(t, err)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Page)
	assert.ErrorIs(t, err, platform.ErrTransient)
	assert.Len(t, res.Records, 100)
	assert.Equal(t, StopError, res.Report.Stop)
	assert.False(t, res.Report.Complete())
	// One initial attempt plus two retries on the failing page.
	assert.Equal(t, 4, caller.calls())
}

func TestFetcher_RetryPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{name: "transient recovers", err: transientErr(), failures: 2, wantCalls: 3},
		{name: "rate limited recovers", err: &platform.Error{Kind: platform.KindRateLimited}, failures: 1, wantCalls: 2},
		{name: "auth not retried", err: &platform.Error{Kind: platform.KindAuth}, failures: 5, wantErr: true, wantCalls: 1},
		{name: "permanent not retried", err: &platform.Error{Kind: platform.KindPermanent}, failures: 5, wantErr: true, wantCalls: 1},
		{name: "retries exhausted", err: transientErr(), failures: 5, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := 0
			caller := &fakeCaller{fn: func(context.Context, platform.Request) (platform.Envelope, error) {
				n++
				if n <= tt.failures {
					return platform.Envelope{}, tt.err
				}
				return itemsEnvelope(t, "list", orders(0, 1), "", false), nil
			}}

			_, err := newTestFetcher(caller).FetchCursor(context.Background(), CursorSpec{
				Endpoint: "/x", Extract: ListAt("list"),
			})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, caller.calls())
		})
	}
}

func TestStreamCursor_EarlyBreak(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{}
	caller.fn = func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		page, _ := strconv.Atoi(req.Params["cursor"])
		return itemsEnvelope(t, "list", orders(page*10, 10), strconv.Itoa(page+1), true), nil
	}

	seq, _ := newTestFetcher(caller).StreamCursor(context.Background(), CursorSpec{
		Endpoint: "/x", CursorParam: "cursor", Extract: ListAt("list"), Key: FieldKey("order_sn"),
	})
	got := 0
	for _, err := range seq {
		require.NoError(t, err)
		got++
		if got == 15 {
			break
		}
	}
	assert.Equal(t, 15, got)
	assert.Equal(t, 2, caller.calls())
}

func TestFetcher_MinDelay(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	caller := &fakeCaller{}
	caller.fn = func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		stamps = append(stamps, time.Now())
		page, _ := strconv.Atoi(req.Params["cursor"])
		return itemsEnvelope(t, "list", orders(page, 1), strconv.Itoa(page+1), page < 2), nil
	}

	f := New(caller, WithMinDelay(40*time.Millisecond), WithLogger(logger.Discard()))
	_, err := f.FetchCursor(context.Background(), CursorSpec{
		Endpoint: "/x", CursorParam: "cursor", Extract: ListAt("list"), Key: FieldKey("order_sn"),
	})
	require.NoError(t, err)
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 30*time.Millisecond)
	}
}

func TestFetcher_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	caller := &fakeCaller{fn: func(ctx context.Context, _ platform.Request) (platform.Envelope, error) {
		return platform.Envelope{}, ctx.Err()
	}}
	_, err := New(caller, WithLogger(logger.Discard())).FetchCursor(ctx, CursorSpec{Endpoint: "/x", Extract: ListAt("list")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
