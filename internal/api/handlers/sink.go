package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/marketplace-sync/internal/sink"
)

// BudgetProvider reports the spreadsheet sink's rate state.
type BudgetProvider interface {
	Budget() sink.Budget
}

// SinkHandler exposes the spreadsheet sink budget.
type SinkHandler struct {
	budget BudgetProvider
}

// NewSinkHandler creates a SinkHandler. b may be nil when no sink is
// configured.
func NewSinkHandler(b BudgetProvider) *SinkHandler {
	return &SinkHandler{budget: b}
}

// SinkBudgetOutput is the response body for the sink budget endpoint.
type SinkBudgetOutput struct {
	Body sink.Budget
}

// GetBudget returns the active sink credential and pacing state.
func (h *SinkHandler) GetBudget(_ context.Context, _ *struct{}) (*SinkBudgetOutput, error) {
	if h.budget == nil {
		return nil, huma.Error503ServiceUnavailable("no spreadsheet sink configured")
	}
	return &SinkBudgetOutput{Body: h.budget.Budget()}, nil
}

// RegisterSinkRoutes registers the sink endpoints with the Huma API.
func RegisterSinkRoutes(api huma.API, h *SinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-sink-budget",
		Method:      http.MethodGet,
		Path:        "/api/v1/sink/budget",
		Summary:     "Get spreadsheet sink budget",
		Description: "Returns the active sink credential, consecutive failures and current call spacing.",
		Tags:        []string{"sink"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, h.GetBudget)
}
