// Package main implements a mock Shopee partner API server for local
// development. It serves synthetic wallet transactions and orders so the
// sync jobs can run end to end without a real shop.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// envelope is the response shape shared by every partner API call.
type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Response  any    `json:"response,omitempty"`
}

type walletTransaction struct {
	TransactionID      int64  `json:"transaction_id"`
	CreateTime         int64  `json:"create_time"`
	OrderSN            string `json:"order_sn"`
	Description        string `json:"description"`
	Amount             string `json:"amount"`
	Status             string `json:"status"`
	TransactionType    string `json:"transaction_type"`
	TransactionTabType string `json:"transaction_tab_type"`
	BuyerName          string `json:"buyer_name,omitempty"`
}

type order struct {
	OrderSN     string `json:"order_sn"`
	OrderStatus string `json:"order_status"`
	CreateTime  int64  `json:"create_time"`
}

// ledger generates a fixed number of records per hour, derived only from
// the timestamp so every request sees the same data.
type ledger struct {
	perHour int
}

func (l ledger) between(from, to int64) []walletTransaction {
	if l.perHour <= 0 || to < from {
		return []walletTransaction{}
	}
	step := max(int64(3600/l.perHour), 1)
	first := from - from%step
	if first < from {
		first += step
	}
	out := []walletTransaction{}
	for ts := first; ts <= to; ts += step {
		out = append(out, l.transaction(ts))
	}
	return out
}

func (l ledger) transaction(ts int64) walletTransaction {
	tx := walletTransaction{
		TransactionID:      ts,
		CreateTime:         ts,
		OrderSN:            orderSN(ts),
		Description:        "Order income",
		Amount:             strconv.FormatFloat(float64(ts%50000)/100+10, 'f', 2, 64),
		Status:             "COMPLETED",
		TransactionType:    "ESCROW_VERIFIED_ADD",
		TransactionTabType: "wallet_order_income",
	}
	// Some buyers hide their name.
	if (ts/11)%3 != 0 {
		tx.BuyerName = "buyer" + strconv.FormatInt(ts%997, 10)
	}
	return tx
}

func (l ledger) orders(from, to int64, status string) []order {
	statuses := []string{"READY_TO_SHIP", "SHIPPED", "COMPLETED"}
	out := []order{}
	for _, tx := range l.between(from, to) {
		o := order{
			OrderSN:     tx.OrderSN,
			OrderStatus: statuses[(tx.CreateTime/7)%int64(len(statuses))],
			CreateTime:  tx.CreateTime,
		}
		if status != "" && o.OrderStatus != status {
			continue
		}
		out = append(out, o)
	}
	return out
}

func orderSN(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("060102") + strconv.FormatInt(ts%1_000_000, 36)
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	perHour := flag.Int("per-hour", 2, "synthetic transactions per hour")
	failEvery := flag.Int("fail-every", 0, "answer every Nth data request with error_server (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock Shopee server", "addr", addr, "per_hour", *perHour)

	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(logger, ledger{perHour: *perHour}, *failEvery),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, l ledger, failEvery int) http.Handler {
	faults := &faultInjector{every: int64(failEvery)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/auth/token/get", tokenHandler(logger))
	mux.HandleFunc("POST /api/v2/auth/access_token/get", tokenHandler(logger))
	mux.Handle("GET /api/v2/payment/get_wallet_transaction_list",
		faults.wrap(requireShopAuth(walletHandler(logger, l))))
	mux.Handle("GET /api/v2/order/get_order_list",
		faults.wrap(requireShopAuth(orderListHandler(logger, l))))
	return requestLogger(logger, mux)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

type faultInjector struct {
	every int64
	n     atomic.Int64
}

func (f *faultInjector) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.every > 0 && f.n.Add(1)%f.every == 0 {
			writeEnvelope(w, http.StatusInternalServerError, envelope{
				Error:   "error_server",
				Message: "injected failure",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireShopAuth rejects shop calls without a signature or access token.
// Signatures are not verified.
func requireShopAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("sign") == "":
			writeEnvelope(w, http.StatusForbidden, envelope{Error: "error_sign", Message: "missing sign"})
		case q.Get("access_token") == "":
			writeEnvelope(w, http.StatusForbidden, envelope{Error: "error_auth", Message: "missing access_token"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func tokenHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Error: "error_param", Message: "invalid body"})
			return
		}
		if body["code"] == nil && body["refresh_token"] == nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{
				Error:   "error_param",
				Message: "code or refresh_token is required",
			})
			return
		}

		stamp := strconv.FormatInt(time.Now().UnixNano(), 36)
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		json.NewEncoder(w).Encode(map[string]any{
			"error":         "",
			"message":       "",
			"request_id":    stamp,
			"access_token":  "mock-access-" + stamp,
			"refresh_token": "mock-refresh-" + stamp,
			"expire_in":     14400,
		})
		logger.Info("issued mock token", "path", r.URL.Path)
	}
}

func walletHandler(logger *slog.Logger, l ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, errFrom := strconv.ParseInt(q.Get("create_time_from"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("create_time_to"), 10, 64)
		pageNo := intParam(q.Get("page_no"), 1)
		pageSize := intParam(q.Get("page_size"), 40)
		if errFrom != nil || errTo != nil || pageSize < 1 || pageNo < 1 {
			writeEnvelope(w, http.StatusBadRequest, envelope{Error: "error_param", Message: "invalid time range or page"})
			return
		}
		if to-from > 15*24*3600 {
			writeEnvelope(w, http.StatusBadRequest, envelope{Error: "error_param", Message: "time range exceeds 15 days"})
			return
		}

		all := l.between(from, to)
		if tab := q.Get("transaction_tab_type"); tab != "" {
			filtered := all[:0]
			for _, tx := range all {
				if tx.TransactionTabType == tab {
					filtered = append(filtered, tx)
				}
			}
			all = filtered
		}
		page, more := paginate(all, (pageNo-1)*pageSize, pageSize)

		writeEnvelope(w, http.StatusOK, envelope{Response: map[string]any{
			"transaction_list": page,
			"more":             more,
		}})
		logger.Debug("served wallet page", "page_no", pageNo, "items", len(page))
	}
}

func orderListHandler(logger *slog.Logger, l ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, errFrom := strconv.ParseInt(q.Get("time_from"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("time_to"), 10, 64)
		offset := intParam(q.Get("cursor"), 0)
		pageSize := intParam(q.Get("page_size"), 20)
		if errFrom != nil || errTo != nil || pageSize < 1 || offset < 0 {
			writeEnvelope(w, http.StatusBadRequest, envelope{Error: "error_param", Message: "invalid time range or cursor"})
			return
		}

		page, more := paginate(l.orders(from, to, q.Get("order_status")), offset, pageSize)
		next := ""
		if more {
			next = strconv.Itoa(offset + len(page))
		}

		writeEnvelope(w, http.StatusOK, envelope{Response: map[string]any{
			"order_list":  page,
			"more":        more,
			"next_cursor": next,
		}})
		logger.Debug("served order page", "cursor", offset, "items", len(page))
	}
}

func paginate[T any](all []T, offset, size int) ([]T, bool) {
	if offset >= len(all) {
		return []T{}, false
	}
	end := min(offset+size, len(all))
	return all[offset:end], end < len(all)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	if env.RequestID == "" {
		env.RequestID = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(env)
}
