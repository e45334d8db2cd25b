package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
)

// Syncer runs on-demand syncs.
type Syncer interface {
	SyncOrders(ctx context.Context, req engine.OrdersRequest) (*engine.Summary, error)
	SyncWallet(ctx context.Context, req engine.WalletRequest) (*engine.Summary, error)
}

// SyncHandler triggers order and wallet syncs.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(s Syncer) *SyncHandler {
	return &SyncHandler{syncer: s}
}

// SyncOrdersInput selects the orders to sync.
type SyncOrdersInput struct {
	Platform string `path:"platform" enum:"shopee,lazada,tiktok"`
	Status   string `query:"status" default:"ALL" example:"COMPLETED" doc:"Platform order status, or ALL"`
	Days     int    `query:"days" default:"1" minimum:"1" maximum:"15" doc:"Lookback in days from now"`
}

// SyncWalletInput selects the wallet month to sync.
type SyncWalletInput struct {
	Month int    `query:"month" required:"true" minimum:"1" maximum:"12"`
	Year  int    `query:"year" required:"true" minimum:"2000" maximum:"9999"`
	Tab   string `query:"tab" example:"wallet_order_income" doc:"Transaction tab; empty for every tab"`
}

// SyncOutput is the summary of a completed sync.
type SyncOutput struct {
	Body *engine.Summary
}

// SyncOrders fetches and writes one platform's recent orders.
func (h *SyncHandler) SyncOrders(ctx context.Context, input *SyncOrdersInput) (*SyncOutput, error) {
	p, err := credential.ParsePlatform(input.Platform)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	sum, err := h.syncer.SyncOrders(ctx, engine.OrdersRequest{
		Platform: p,
		Status:   input.Status,
		Days:     input.Days,
	})
	if err != nil {
		return nil, syncError(err)
	}
	return &SyncOutput{Body: sum}, nil
}

// SyncWallet fetches and writes one month of Shopee wallet transactions.
func (h *SyncHandler) SyncWallet(ctx context.Context, input *SyncWalletInput) (*SyncOutput, error) {
	sum, err := h.syncer.SyncWallet(ctx, engine.WalletRequest{
		Month: input.Month,
		Year:  input.Year,
		Tab:   input.Tab,
	})
	if err != nil {
		return nil, syncError(err)
	}
	return &SyncOutput{Body: sum}, nil
}

// syncError maps engine failures to HTTP errors. Phase failures name the
// phase and platform in the message.
func syncError(err error) error {
	if errors.Is(err, engine.ErrNotConfigured) {
		return huma.Error404NotFound(err.Error())
	}
	var pe *engine.PhaseError
	if errors.As(err, &pe) {
		if pe.Phase == engine.PhaseToken {
			return huma.Error409Conflict("sync failed: " + err.Error())
		}
		return huma.Error502BadGateway("sync failed: " + err.Error())
	}
	return huma.Error400BadRequest(err.Error())
}

// RegisterSyncRoutes registers the sync endpoints with the Huma API.
func RegisterSyncRoutes(api huma.API, h *SyncHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-orders",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/orders/{platform}",
		Summary:     "Sync recent orders",
		Description: "Lists a platform's orders created in the lookback, exports their " +
			"identifiers and writes them to a worksheet.",
		Tags:   []string{"sync"},
		Errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusBadGateway},
	}, h.SyncOrders)

	huma.Register(api, huma.Operation{
		OperationID: "sync-wallet",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/wallet",
		Summary:     "Sync Shopee wallet transactions",
		Description: "Fetches one month of MONEY_IN wallet transactions in windows, exports " +
			"their order numbers and writes them to a worksheet.",
		Tags:   []string{"sync"},
		Errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusBadGateway},
	}, h.SyncWallet)
}
