package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
	"github.com/donaldgifford/marketplace-sync/pkg/logger"
)

var testNow = time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return logger.Discard()
}

type noRefresher struct{}

func (noRefresher) Refresh(context.Context, credential.Credential) (credential.Grant, error) {
	return credential.Grant{}, errors.New("refresh not expected")
}

func (noRefresher) Exchange(context.Context, credential.Credential, string) (credential.Grant, error) {
	return credential.Grant{}, errors.New("exchange not expected")
}

func (noRefresher) Lifetimes() credential.Lifetimes { return credential.Lifetimes{} }

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

func (c *fakeCaller) requests() []platform.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.Request(nil), c.reqs...)
}

type sinkWrite struct {
	target sink.Target
	rows   [][]string
}

type fakeSink struct {
	mu     sync.Mutex
	err    error
	writes []sinkWrite
}

func (s *fakeSink) Write(_ context.Context, target sink.Target, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, sinkWrite{target: target, rows: rows})
	return nil
}

func (s *fakeSink) byWorksheet(name string) (sinkWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.writes {
		if w.target.Worksheet == name {
			return w, true
		}
	}
	return sinkWrite{}, false
}

func validCredential(p credential.Platform) credential.Credential {
	access := testNow.Add(time.Hour)
	refresh := testNow.Add(30 * 24 * time.Hour)
	c := credential.New(p)
	c.AccessToken = "access"
	c.RefreshToken = "refresh"
	c.AccessExpiry = &access
	c.RefreshExpiry = &refresh
	return c
}

func expiredCredential(p credential.Platform) credential.Credential {
	past := testNow.Add(-time.Hour)
	c := validCredential(p)
	c.AccessExpiry = &past
	c.RefreshExpiry = &past
	return c
}

func newIntegration(t *testing.T, cred credential.Credential, fn callerFunc) (Integration, *fakeCaller) {
	t.Helper()
	m := auth.NewManager(
		credential.NewHandle(cred),
		credential.NewFileStore(t.TempDir()),
		noRefresher{},
		auth.WithNowFunc(func() time.Time { return testNow }),
		auth.WithLogger(quietLogger()),
	)
	caller := &fakeCaller{fn: fn}
	f := fetch.New(caller,
		fetch.WithMinDelay(0),
		fetch.WithPageRetries(1),
		fetch.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		fetch.WithLogger(quietLogger()),
	)
	return Integration{Tokens: m, Fetcher: f}, caller
}

func newTestEngine(t *testing.T, s Sink, integrations ...Integration) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	opts := []EngineOption{
		WithExportDir(dir),
		WithNowFunc(func() time.Time { return testNow }),
		WithLogger(quietLogger()),
	}
	if s != nil {
		opts = append(opts, WithSink(s, "sheet-1"))
	}
	return NewEngine(integrations, opts...), dir
}

func envelope(t *testing.T, key string, items []map[string]any, cont string) platform.Envelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{key: items})
	require.NoError(t, err)
	return platform.Envelope{Data: data, Continuation: cont, HasMore: cont != ""}
}

func orderItems(field string, from, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{field: fmt.Sprintf("ID%04d", from+i), "status": "COMPLETED"}
	}
	return out
}

// walletCaller answers windowed wallet queries from a fixed set of
// transactions, paging by page_no and page_size.
func walletCaller(t *testing.T, txs []map[string]any) callerFunc {
	t.Helper()
	return func(_ context.Context, req platform.Request) (platform.Envelope, error) {
		from, _ := strconv.ParseInt(req.Params["create_time_from"], 10, 64)
		to, _ := strconv.ParseInt(req.Params["create_time_to"], 10, 64)
		page, _ := strconv.Atoi(req.Params["page_no"])
		size, _ := strconv.Atoi(req.Params["page_size"])

		var match []map[string]any
		for _, tx := range txs {
			ct := tx["create_time"].(int64)
			if ct >= from && ct <= to {
				match = append(match, tx)
			}
		}
		lo := min((page-1)*size, len(match))
		hi := min(lo+size, len(match))
		return envelope(t, "transaction_list", match[lo:hi], ""), nil
	}
}

// novemberTransactions returns one transaction per day of November 2024,
// newest first, skipping the given days.
func novemberTransactions(skip ...int) []map[string]any {
	var out []map[string]any
	for d := 30; d >= 1; d-- {
		if containsInt(skip, d) {
			continue
		}
		ct := time.Date(2024, 11, d, 8, 30, 0, 0, time.UTC).Unix()
		out = append(out, map[string]any{
			"create_time":          ct,
			"order_sn":             fmt.Sprintf("SN%02d", d),
			"amount":               "125000.00",
			"description":          "Order income",
			"status":               "COMPLETED",
			"transaction_type":     "ESCROW_VERIFIED_ADD",
			"transaction_tab_type": TabOrderIncome,
		})
	}
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func TestSyncWallet(t *testing.T) {
	t.Parallel()

	in, caller := newIntegration(t, validCredential(credential.Shopee), walletCaller(t, novemberTransactions(16)))
	fs := &fakeSink{}
	eng, dir := newTestEngine(t, fs, in)

	sum, err := eng.SyncWallet(context.Background(), WalletRequest{Month: 11, Year: 2024, Tab: TabOrderIncome})
	require.NoError(t, err)

	reqs := caller.requests()
	require.Len(t, reqs, 2, "two 15-day windows, one short page each")
	for _, r := range reqs {
		assert.Equal(t, "MONEY_IN", r.Params["money_flow"])
		assert.Equal(t, TabOrderIncome, r.Params["transaction_tab_type"])
	}

	assert.Equal(t, 29, sum.Records)
	assert.True(t, sum.Written)
	assert.Empty(t, sum.Skipped)
	assert.Equal(t, []time.Time{time.Date(2024, 11, 16, 0, 0, 0, 0, time.UTC)}, sum.Report.Missing)

	w, ok := fs.byWorksheet(sum.Worksheet)
	require.True(t, ok)
	assert.Equal(t, "sheet-1", w.target.SpreadsheetID)
	assert.Equal(t, sink.SanitizeSheetName("Wallet_11_2024_"+TabOrderIncome), sum.Worksheet)
	require.Len(t, w.rows, 30)
	assert.Equal(t, []string{
		"Date", "Order SN", "Description", "Amount", "Status", "Transaction Type", "Tab Type", "Buyer Name",
	}, w.rows[0])
	assert.Equal(t, []string{
		"2024-11-01 08:30", "SN01", "Order income", "125000.00", "COMPLETED",
		"ESCROW_VERIFIED_ADD", TabOrderIncome, "Unknown",
	}, w.rows[1], "rows are sorted by create time")

	assert.Equal(t, filepath.Join(dir, "order_numbers_11_2024.txt"), sum.ExportPath)
	assert.Equal(t, 29, sum.Identifiers)
	data, err := os.ReadFile(sum.ExportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "SN01\nSN02\n"))
}

func TestSyncWallet_AllTabs(t *testing.T) {
	t.Parallel()

	in, caller := newIntegration(t, validCredential(credential.Shopee), walletCaller(t, nil))
	eng, _ := newTestEngine(t, &fakeSink{}, in)

	sum, err := eng.SyncWallet(context.Background(), WalletRequest{Month: 2, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, "Wallet_02_2024_all", sum.Worksheet)
	for _, r := range caller.requests() {
		_, ok := r.Params["transaction_tab_type"]
		assert.False(t, ok)
	}
}

func TestSyncWallet_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Lazada), walletCaller(t, nil))
	eng, _ := newTestEngine(t, nil, in)

	tests := []struct {
		name    string
		req     WalletRequest
		wantErr error
	}{
		{name: "month too large", req: WalletRequest{Month: 13, Year: 2024}},
		{name: "year missing", req: WalletRequest{Month: 1}},
		{name: "shopee not configured", req: WalletRequest{Month: 1, Year: 2024}, wantErr: ErrNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := eng.SyncWallet(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSyncWallet_SkippedWindowIsReported(t *testing.T) {
	t.Parallel()

	base := walletCaller(t, novemberTransactions())
	secondWindow := time.Date(2024, 11, 16, 0, 0, 0, 0, time.UTC).Unix()
	in, _ := newIntegration(t, validCredential(credential.Shopee),
		func(ctx context.Context, req platform.Request) (platform.Envelope, error) {
			if req.Params["create_time_from"] == strconv.FormatInt(secondWindow, 10) {
				return platform.Envelope{}, &platform.Error{Kind: platform.KindTransient, Message: "busy"}
			}
			return base(ctx, req)
		})
	fs := &fakeSink{}
	eng, _ := newTestEngine(t, fs, in)

	sum, err := eng.SyncWallet(context.Background(), WalletRequest{Month: 11, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, 15, sum.Records)
	require.Len(t, sum.Skipped, 1)
	assert.Contains(t, sum.Skipped[0], "fetch-window 2024-11-16..2024-11-30")
	assert.Len(t, sum.Report.Uncovered, 15)
	assert.True(t, sum.Written)
}

func TestSyncOrders_Platforms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		platform   credential.Platform
		status     string
		caller     func(t *testing.T) callerFunc
		check      func(t *testing.T, reqs []platform.Request)
		records    int
		header     []string
		worksheet  string
		exportFile string
	}{
		{
			name:     "shopee cursor",
			platform: credential.Shopee,
			status:   "COMPLETED",
			caller: func(t *testing.T) callerFunc {
				return func(_ context.Context, req platform.Request) (platform.Envelope, error) {
					if req.Params["cursor"] == "" {
						return envelope(t, "order_list", orderItems("order_sn", 0, 100), "c2"), nil
					}
					return envelope(t, "order_list", orderItems("order_sn", 100, 42), ""), nil
				}
			},
			check: func(t *testing.T, reqs []platform.Request) {
				require.Len(t, reqs, 2)
				first := reqs[0].Params
				assert.Equal(t, "create_time", first["time_range_field"])
				assert.Equal(t, strconv.FormatInt(testNow.AddDate(0, 0, -3).Unix(), 10), first["time_from"])
				assert.Equal(t, strconv.FormatInt(testNow.Unix(), 10), first["time_to"])
				assert.Equal(t, "COMPLETED", first["order_status"])
				assert.Equal(t, "c2", reqs[1].Params["cursor"])
			},
			records:    142,
			header:     []string{"Order SN", "Status"},
			worksheet:  "Shopee_COMPLETED_1120",
			exportFile: "shopee_orders_11_2024.txt",
		},
		{
			name:     "lazada offset",
			platform: credential.Lazada,
			status:   "ALL",
			caller: func(t *testing.T) callerFunc {
				return func(_ context.Context, req platform.Request) (platform.Envelope, error) {
					if req.Params["offset"] == "0" {
						return envelope(t, "orders", orderItems("order_id", 0, 100), "100"), nil
					}
					return envelope(t, "orders", orderItems("order_id", 100, 7), ""), nil
				}
			},
			check: func(t *testing.T, reqs []platform.Request) {
				require.Len(t, reqs, 2)
				assert.Equal(t, "100", reqs[0].Params["limit"])
				assert.Equal(t, "100", reqs[1].Params["offset"])
				assert.Equal(t, testNow.AddDate(0, 0, -3).Format(time.RFC3339), reqs[0].Params["created_after"])
				_, hasStatus := reqs[0].Params["status"]
				assert.False(t, hasStatus, "ALL sends no status filter")
			},
			records:    107,
			header:     []string{"Order ID", "Order Number", "Created At", "Status", "Price", "Items", "Payment Method"},
			worksheet:  "Lazada_ALL_1120",
			exportFile: "lazada_orders_11_2024.txt",
		},
		{
			name:     "tiktok page token",
			platform: credential.TikTok,
			status:   "COMPLETED",
			caller: func(t *testing.T) callerFunc {
				return func(_ context.Context, req platform.Request) (platform.Envelope, error) {
					if req.Params["page_token"] == "" {
						return envelope(t, "orders", orderItems("id", 0, 50), "tok-2"), nil
					}
					return envelope(t, "orders", orderItems("id", 50, 10), ""), nil
				}
			},
			check: func(t *testing.T, reqs []platform.Request) {
				require.Len(t, reqs, 2)
				body, ok := reqs[0].Body.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "COMPLETED", body["order_status"])
				assert.Equal(t, testNow.AddDate(0, 0, -3).Unix(), body["create_time_ge"])
				assert.Equal(t, testNow.Unix(), body["create_time_lt"])
				assert.Equal(t, "tok-2", reqs[1].Params["page_token"])
			},
			records:    60,
			header:     []string{"Order ID", "Status", "Create Time", "Total Amount", "Currency"},
			worksheet:  "TikTok_COMPLETED_1120",
			exportFile: "tiktok_orders_11_2024.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, caller := newIntegration(t, validCredential(tt.platform), tt.caller(t))
			fs := &fakeSink{}
			eng, dir := newTestEngine(t, fs, in)

			sum, err := eng.SyncOrders(context.Background(), OrdersRequest{
				Platform: tt.platform, Status: tt.status, Days: 3,
			})
			require.NoError(t, err)

			tt.check(t, caller.requests())
			assert.Equal(t, tt.records, sum.Records)
			assert.Equal(t, tt.worksheet, sum.Worksheet)
			assert.Equal(t, filepath.Join(dir, tt.exportFile), sum.ExportPath)
			assert.Equal(t, tt.records, sum.Identifiers)

			w, ok := fs.byWorksheet(tt.worksheet)
			require.True(t, ok)
			require.Len(t, w.rows, tt.records+1)
			assert.Equal(t, tt.header, w.rows[0])
			assert.Equal(t, "ID0000", w.rows[1][0])
		})
	}
}

func TestSyncOrders_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Shopee), nil)
	eng, _ := newTestEngine(t, nil, in)

	_, err := eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Shopee, Days: 16})
	require.Error(t, err)

	_, err = eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Lazada, Days: 1})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSync_TokenPhase(t *testing.T) {
	t.Parallel()

	in, caller := newIntegration(t, expiredCredential(credential.Shopee), nil)
	fs := &fakeSink{}
	eng, _ := newTestEngine(t, fs, in)

	_, err := eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Shopee, Days: 1})

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseToken, pe.Phase)
	assert.Equal(t, credential.Shopee, pe.Platform)
	require.ErrorIs(t, err, auth.ErrReauthRequired)
	assert.Empty(t, caller.requests(), "no platform call without a usable token")
	assert.Empty(t, fs.writes)
}

func TestSync_FetchPhaseKeepsPartialRecords(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Shopee),
		func(_ context.Context, req platform.Request) (platform.Envelope, error) {
			if req.Params["cursor"] == "" {
				return envelope(t, "order_list", orderItems("order_sn", 0, 100), "c2"), nil
			}
			return platform.Envelope{}, &platform.Error{Kind: platform.KindPermanent, Message: "bad request"}
		})
	fs := &fakeSink{}
	eng, dir := newTestEngine(t, fs, in)

	sum, err := eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Shopee, Days: 1})

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fetch-page 2", pe.Phase)
	assert.Len(t, pe.Partial, 100)
	assert.Equal(t, 100, sum.Records)
	assert.Empty(t, fs.writes)

	_, statErr := os.Stat(filepath.Join(dir, "shopee_orders_11_2024.txt"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestSync_SinkPhase(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Shopee),
		func(_ context.Context, _ platform.Request) (platform.Envelope, error) {
			return envelope(t, "order_list", orderItems("order_sn", 0, 5), ""), nil
		})
	fs := &fakeSink{err: &sink.Error{Step: "update", Attempts: 5, Quota: true, Err: errors.New("quota exceeded")}}
	eng, _ := newTestEngine(t, fs, in)

	sum, err := eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Shopee, Days: 1})

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseSink, pe.Phase)
	assert.Len(t, pe.Partial, 5)
	require.ErrorIs(t, err, sink.ErrQuotaExceeded)
	assert.False(t, sum.Written)
	assert.Equal(t, 5, sum.Identifiers, "identifiers are exported before the write")
}

func TestSync_WithoutSink(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Shopee),
		func(_ context.Context, _ platform.Request) (platform.Envelope, error) {
			return envelope(t, "order_list", orderItems("order_sn", 0, 3), ""), nil
		})
	eng, _ := newTestEngine(t, nil, in)

	sum, err := eng.SyncOrders(context.Background(), OrdersRequest{Platform: credential.Shopee, Days: 1})
	require.NoError(t, err)
	assert.False(t, sum.Written)
	assert.Equal(t, 3, sum.Identifiers)
}

func TestSyncAllOrders(t *testing.T) {
	t.Parallel()

	ok := func(field, key string) callerFunc {
		return func(_ context.Context, _ platform.Request) (platform.Envelope, error) {
			return envelope(t, key, orderItems(field, 0, 4), ""), nil
		}
	}
	shopeeIn, _ := newIntegration(t, validCredential(credential.Shopee), ok("order_sn", "order_list"))
	lazadaIn, _ := newIntegration(t, expiredCredential(credential.Lazada), nil)
	tiktokIn, _ := newIntegration(t, validCredential(credential.TikTok), ok("id", "orders"))
	fs := &fakeSink{}
	eng, _ := newTestEngine(t, fs, shopeeIn, lazadaIn, tiktokIn)

	results, err := eng.SyncAllOrders(context.Background(), "COMPLETED", 2)
	require.Error(t, err)
	require.ErrorIs(t, err, auth.ErrReauthRequired)

	require.Len(t, results, 3)
	byPlatform := make(map[credential.Platform]OrdersResult, len(results))
	for _, r := range results {
		byPlatform[r.Platform] = r
	}
	require.NoError(t, byPlatform[credential.Shopee].Err)
	require.NoError(t, byPlatform[credential.TikTok].Err)
	require.Error(t, byPlatform[credential.Lazada].Err)
	assert.Equal(t, 4, byPlatform[credential.Shopee].Summary.Records)
	assert.Len(t, fs.writes, 2)
}

func TestValidateTokens(t *testing.T) {
	t.Parallel()

	good, _ := newIntegration(t, validCredential(credential.Shopee), nil)
	bad, _ := newIntegration(t, expiredCredential(credential.TikTok), nil)
	eng, _ := newTestEngine(t, nil, good, bad)

	err := eng.ValidateTokens(context.Background())
	require.ErrorIs(t, err, auth.ErrReauthRequired)
	assert.Contains(t, err.Error(), "tiktok token")
	assert.NotContains(t, err.Error(), "shopee")

	status := eng.TokenStatus()
	require.Len(t, status, 2)
	assert.Equal(t, credential.Shopee, status[0].Platform)
	assert.Equal(t, credential.StateValid, status[0].State)
	assert.Equal(t, credential.StateRefreshExpired, status[1].State)
}

func TestEngine_Tokens(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, validCredential(credential.Lazada), nil)
	eng, _ := newTestEngine(t, nil, in)

	m, err := eng.Tokens(credential.Lazada)
	require.NoError(t, err)
	assert.Equal(t, credential.Lazada, m.Handle().Platform())

	_, err = eng.Tokens(credential.TikTok)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, []credential.Platform{credential.Lazada}, eng.Platforms())
}

func TestEngine_RefreshToken(t *testing.T) {
	t.Parallel()

	in, _ := newIntegration(t, expiredCredential(credential.Shopee), nil)
	eng, _ := newTestEngine(t, nil, in)

	st, err := eng.RefreshToken(context.Background(), credential.Shopee)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseToken, pe.Phase)
	require.ErrorIs(t, err, auth.ErrReauthRequired)
	assert.Equal(t, credential.StateRefreshExpired, st.State)

	_, err = eng.RefreshToken(context.Background(), credential.TikTok)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestOrdersResult_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]OrdersResult{
		{Platform: credential.Shopee, Summary: &Summary{Records: 2}},
		{Platform: credential.TikTok, Err: errors.New("boom")},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"platform":"shopee","summary":{`)
	assert.Contains(t, string(data), `{"platform":"tiktok","error":"boom"}`)
}

func TestFetchPhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "page error", err: &fetch.PageError{Page: 3, Err: errors.New("boom")}, want: "fetch-page 3"},
		{
			name: "token failure inside page",
			err:  &fetch.PageError{Page: 1, Err: fmt.Errorf("shopee: %w", auth.ErrReauthRequired)},
			want: PhaseToken,
		},
		{name: "other", err: errors.New("boom"), want: "fetch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, fetchPhase(tt.err))
		})
	}
}
