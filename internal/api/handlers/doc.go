// Package handlers implements the HTTP handlers of the marketplace-sync API:
// probes, credential status, sink budget, on-demand syncs and scheduler job
// history.
package handlers

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
