package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/export"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
	"github.com/donaldgifford/marketplace-sync/internal/platform/lazada"
	"github.com/donaldgifford/marketplace-sync/internal/platform/shopee"
	"github.com/donaldgifford/marketplace-sync/internal/platform/tiktok"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
)

// MaxOrderDays is the widest lookback the order list endpoints accept.
const MaxOrderDays = 15

// StatusAll requests orders in every status.
const StatusAll = "ALL"

// OrdersRequest selects the orders created in the last Days days.
type OrdersRequest struct {
	Platform credential.Platform
	Status   string
	Days     int
}

func (r OrdersRequest) validate() error {
	if r.Days < 1 || r.Days > MaxOrderDays {
		return fmt.Errorf("days %d out of range 1-%d", r.Days, MaxOrderDays)
	}
	return nil
}

func (r OrdersRequest) statusFilter() string {
	s := strings.TrimSpace(r.Status)
	if strings.EqualFold(s, StatusAll) {
		return ""
	}
	return s
}

// orderSource describes how one platform lists orders.
type orderSource struct {
	idField string
	table   table
	spec    func(req OrdersRequest, from, to time.Time, pageSize int, loc *time.Location) fetch.CursorSpec
}

var orderSources = map[credential.Platform]orderSource{
	credential.Shopee: {
		idField: "order_sn",
		table: table{
			field("Order SN", "order_sn"),
			field("Status", "order_status"),
		},
		spec: shopeeOrders,
	},
	credential.Lazada: {
		idField: "order_id",
		table: table{
			field("Order ID", "order_id"),
			field("Order Number", "order_number"),
			field("Created At", "created_at"),
			listField("Status", "statuses"),
			field("Price", "price"),
			field("Items", "items_count"),
			field("Payment Method", "payment_method"),
		},
		spec: lazadaOrders,
	},
	credential.TikTok: {
		idField: "id",
		table: table{
			field("Order ID", "id"),
			field("Status", "status"),
			unixField("Create Time", "create_time"),
			field("Total Amount", "payment", "total_amount"),
			field("Currency", "payment", "currency"),
		},
		spec: tiktokOrders,
	},
}

func shopeeOrders(req OrdersRequest, from, to time.Time, pageSize int, _ *time.Location) fetch.CursorSpec {
	params := map[string]string{
		"time_range_field":         "create_time",
		"time_from":                strconv.FormatInt(from.Unix(), 10),
		"time_to":                  strconv.FormatInt(to.Unix(), 10),
		"page_size":                strconv.Itoa(pageSize),
		"response_optional_fields": "order_status",
	}
	if s := req.statusFilter(); s != "" {
		params["order_status"] = s
	}
	return fetch.CursorSpec{
		Endpoint:    shopee.PathOrderList,
		Method:      http.MethodGet,
		Params:      params,
		CursorParam: "cursor",
		Extract:     fetch.ListAt("order_list"),
		Key:         fetch.FieldKey("order_sn"),
	}
}

func lazadaOrders(req OrdersRequest, from, to time.Time, pageSize int, loc *time.Location) fetch.CursorSpec {
	params := map[string]string{
		"created_after":  from.In(loc).Format(time.RFC3339),
		"created_before": to.In(loc).Format(time.RFC3339),
		"offset":         "0",
		"limit":          strconv.Itoa(pageSize),
	}
	if s := req.statusFilter(); s != "" {
		params["status"] = strings.ToLower(s)
	}
	return fetch.CursorSpec{
		Endpoint:    lazada.PathOrdersGet,
		Method:      http.MethodGet,
		Params:      params,
		CursorParam: "offset",
		Extract:     fetch.ListAt("orders"),
		Key:         fetch.FieldKey("order_id"),
	}
}

func tiktokOrders(req OrdersRequest, from, to time.Time, pageSize int, _ *time.Location) fetch.CursorSpec {
	body := map[string]any{
		"create_time_ge": from.Unix(),
		"create_time_lt": to.Unix(),
	}
	if s := req.statusFilter(); s != "" {
		body["order_status"] = s
	}
	return fetch.CursorSpec{
		Endpoint:    tiktok.PathOrderSearch,
		Method:      http.MethodPost,
		Params:      map[string]string{"page_size": strconv.Itoa(pageSize)},
		Body:        body,
		CursorParam: "page_token",
		Extract:     fetch.ListAt("orders"),
		Key:         fetch.FieldKey("id"),
	}
}

// SyncOrders lists the orders of one platform created in the requested
// lookback, exports their identifiers and writes them to a worksheet named
// after the platform, status and day.
func (e *Engine) SyncOrders(ctx context.Context, req OrdersRequest) (*Summary, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	in, err := e.integration(req.Platform)
	if err != nil {
		return nil, err
	}
	src, ok := orderSources[req.Platform]
	if !ok {
		return nil, fmt.Errorf("%s: %w", req.Platform, ErrNotConfigured)
	}

	now := e.nowFunc().In(e.loc)
	spec := src.spec(req, now.AddDate(0, 0, -req.Days), now, e.pageSize, e.loc)

	status := req.statusFilter()
	if status == "" {
		status = StatusAll
	}
	kind := string(req.Platform) + "_orders"

	return e.run(ctx, in, job{
		kind:     "orders",
		platform: req.Platform,
		target: sink.Target{
			Worksheet: fmt.Sprintf("%s_%s_%s", platformTitle(req.Platform), status, now.Format("0102")),
		},
		table:    src.table,
		exportTo: export.FileName(kind, int(now.Month()), now.Year()),
		idField:  src.idField,
		fetch: func(ctx context.Context, f *fetch.Fetcher) (fetch.Result, error) {
			return f.FetchCursor(ctx, spec)
		},
	})
}

// OrdersResult pairs a platform with the outcome of its order sync.
type OrdersResult struct {
	Platform credential.Platform
	Summary  *Summary
	Err      error
}

// MarshalJSON renders Err as its message.
func (r OrdersResult) MarshalJSON() ([]byte, error) {
	v := struct {
		Platform credential.Platform `json:"platform"`
		Summary  *Summary            `json:"summary,omitempty"`
		Error    string              `json:"error,omitempty"`
	}{Platform: r.Platform, Summary: r.Summary}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return json.Marshal(v)
}

// SyncAllOrders runs SyncOrders for every configured platform concurrently.
// Each platform is independent: a failure is reported in its result and
// joined into the returned error without canceling the others.
func (e *Engine) SyncAllOrders(ctx context.Context, status string, days int) ([]OrdersResult, error) {
	platforms := e.Platforms()
	results := make([]OrdersResult, len(platforms))

	var g errgroup.Group
	for i, p := range platforms {
		g.Go(func() error {
			sum, err := e.SyncOrders(ctx, OrdersRequest{Platform: p, Status: status, Days: days})
			results[i] = OrdersResult{Platform: p, Summary: sum, Err: err}
			return err
		})
	}
	err := g.Wait()
	if err == nil {
		return results, nil
	}

	errs := make([]error, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

func platformTitle(p credential.Platform) string {
	switch p {
	case credential.TikTok:
		return "TikTok"
	default:
		s := string(p)
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
