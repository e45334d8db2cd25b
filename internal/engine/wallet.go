package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/export"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
	"github.com/donaldgifford/marketplace-sync/internal/platform/shopee"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
)

// TabOrderIncome is the wallet tab of order settlements.
const TabOrderIncome = "wallet_order_income"

// WalletRequest selects one month of Shopee wallet transactions. An empty
// Tab requests every tab.
type WalletRequest struct {
	Month int
	Year  int
	Tab   string
}

func (r WalletRequest) validate() error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("month %d out of range 1-12", r.Month)
	}
	if r.Year < 2000 || r.Year > 9999 {
		return fmt.Errorf("year %d out of range", r.Year)
	}
	return nil
}

var walletTable = table{
	unixField("Date", "create_time"),
	field("Order SN", "order_sn"),
	field("Description", "description"),
	field("Amount", "amount"),
	field("Status", "status"),
	field("Transaction Type", "transaction_type"),
	field("Tab Type", "transaction_tab_type"),
	fieldOr("Buyer Name", "buyer_name", "Unknown"),
}

// SyncWallet fetches the MONEY_IN wallet transactions of a month in windows
// the API accepts, writes them to the Wallet_<MM>_<YYYY>_<tab> worksheet
// sorted by time, and exports their order numbers.
func (e *Engine) SyncWallet(ctx context.Context, req WalletRequest) (*Summary, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	in, err := e.integration(credential.Shopee)
	if err != nil {
		return nil, err
	}

	start := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, e.loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	params := map[string]string{"money_flow": "MONEY_IN"}
	tab := req.Tab
	if tab != "" {
		params["transaction_tab_type"] = tab
	} else {
		tab = "all"
	}

	spec := fetch.WindowSpec{
		Endpoint:  shopee.PathWalletTransactions,
		Method:    http.MethodGet,
		Params:    params,
		Start:     start,
		End:       end,
		Span:      e.windowSpan,
		FromParam: "create_time_from",
		ToParam:   "create_time_to",
		PageSize:  e.pageSize,
		Extract:   fetch.ListAt("transaction_list"),
		Key:       fetch.WalletKey,
		TimeField: "create_time",
		Location:  e.loc,
	}

	return e.run(ctx, in, job{
		kind:     "wallet",
		platform: credential.Shopee,
		target: sink.Target{
			Worksheet: fmt.Sprintf("Wallet_%02d_%d_%s", req.Month, req.Year, tab),
		},
		table:     walletTable,
		exportTo:  export.FileName("order_numbers", req.Month, req.Year),
		idField:   "order_sn",
		sortField: "create_time",
		fetch: func(ctx context.Context, f *fetch.Fetcher) (fetch.Result, error) {
			return f.FetchWindowed(ctx, spec)
		},
	})
}
