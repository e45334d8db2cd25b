package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
)

// TokenProvider reports and refreshes platform tokens.
type TokenProvider interface {
	TokenStatus() []auth.Status
	RefreshToken(ctx context.Context, p credential.Platform) (auth.Status, error)
}

// CredentialsHandler exposes token state without revealing tokens.
type CredentialsHandler struct {
	tokens TokenProvider
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(t TokenProvider) *CredentialsHandler {
	return &CredentialsHandler{tokens: t}
}

// CredentialStatus is the public view of one platform's token.
type CredentialStatus struct {
	Platform               string     `json:"platform"                 example:"shopee"`
	State                  string     `json:"state"                    example:"valid" enum:"no_token,valid,access_expired,refresh_expired"`
	AccessExpiry           *time.Time `json:"access_expiry,omitempty"`
	RefreshExpiry          *time.Time `json:"refresh_expiry,omitempty"`
	AccessRemainingSeconds int64      `json:"access_remaining_seconds" example:"13800"`
	PendingCode            bool       `json:"pending_code"             doc:"An authorization code is stored but not yet exchanged"`
}

// CredentialStatusOf converts a token status to its public view.
func CredentialStatusOf(st auth.Status) CredentialStatus {
	return CredentialStatus{
		Platform:               string(st.Platform),
		State:                  st.State.String(),
		AccessExpiry:           st.AccessExpiry,
		RefreshExpiry:          st.RefreshExpiry,
		AccessRemainingSeconds: int64(st.AccessRemaining / time.Second),
		PendingCode:            st.PendingCode,
	}
}

// ListCredentialsOutput is the response body for listing token state.
type ListCredentialsOutput struct {
	Body []CredentialStatus
}

// PlatformInput names a platform in the path.
type PlatformInput struct {
	Platform string `path:"platform" enum:"shopee,lazada,tiktok"`
}

// RefreshCredentialOutput is the token state after a forced refresh.
type RefreshCredentialOutput struct {
	Body CredentialStatus
}

// ListCredentials returns the token state of every configured platform.
func (h *CredentialsHandler) ListCredentials(_ context.Context, _ *struct{}) (*ListCredentialsOutput, error) {
	statuses := h.tokens.TokenStatus()
	out := make([]CredentialStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, CredentialStatusOf(st))
	}
	return &ListCredentialsOutput{Body: out}, nil
}

// RefreshCredential forces a refresh exchange for one platform.
func (h *CredentialsHandler) RefreshCredential(
	ctx context.Context,
	input *PlatformInput,
) (*RefreshCredentialOutput, error) {
	p, err := credential.ParsePlatform(input.Platform)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	st, err := h.tokens.RefreshToken(ctx, p)
	switch {
	case errors.Is(err, engine.ErrNotConfigured):
		return nil, huma.Error404NotFound(err.Error())
	case errors.Is(err, auth.ErrReauthRequired):
		return nil, huma.Error409Conflict("re-authorization required: " + err.Error())
	case err != nil:
		return nil, huma.Error502BadGateway("token refresh failed: " + err.Error())
	}
	return &RefreshCredentialOutput{Body: CredentialStatusOf(st)}, nil
}

// RegisterCredentialRoutes registers the credential endpoints with the Huma API.
func RegisterCredentialRoutes(api huma.API, h *CredentialsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-credentials",
		Method:      http.MethodGet,
		Path:        "/api/v1/credentials",
		Summary:     "List platform token state",
		Description: "Returns the lifecycle state and expiry of every configured platform token.",
		Tags:        []string{"credentials"},
	}, h.ListCredentials)

	huma.Register(api, huma.Operation{
		OperationID: "refresh-credential",
		Method:      http.MethodPost,
		Path:        "/api/v1/credentials/{platform}/refresh",
		Summary:     "Refresh a platform token",
		Description: "Forces a refresh token exchange and persists the new token pair.",
		Tags:        []string{"credentials"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusBadGateway},
	}, h.RefreshCredential)
}
