package dto

import appvalidation "github.com/ifcvalidation/bff/internal/application/validation"

// Reasons carried by redirect payloads
const (
	ReasonUnauthorized = "401 - Unauthorized"
	ReasonForbidden    = "403 - Forbidden"
)

// Frontend routes the legacy payloads point to
const (
	DashboardPath   = appvalidation.DashboardPath
	WaitingZonePath = appvalidation.WaitingZonePath
)

// RedirectResponse tells the frontend to navigate elsewhere. It is always
// sent with HTTP 200; the frontend reads the payload, not the status.
// @Description Redirect instruction for the single-page frontend
type RedirectResponse struct {
	Redirect string `json:"redirect" example:"/dashboard"`
	Reason   string `json:"reason" example:"403 - Forbidden"`
}

// NewLoginRedirect sends an unauthenticated user to the login page
func NewLoginRedirect(loginURL string) RedirectResponse {
	return RedirectResponse{Redirect: loginURL, Reason: ReasonUnauthorized}
}

// NewDashboardRedirect sends the user back to the dashboard
func NewDashboardRedirect() RedirectResponse {
	return RedirectResponse{Redirect: DashboardPath, Reason: ReasonForbidden}
}

// NewWaitingZoneRedirect sends an inactive account to the waiting zone
func NewWaitingZoneRedirect() RedirectResponse {
	return RedirectResponse{Redirect: WaitingZonePath, Reason: ReasonForbidden}
}

// UploadResponse is returned once all uploaded files are queued
// @Description Upload accepted
type UploadResponse struct {
	URL string `json:"url" example:"/dashboard"`
}

// BatchResponse acknowledges a delete or revalidate of a comma-separated id list
// @Description Batch operation accepted
type BatchResponse struct {
	Status string `json:"status" example:"success"`
	ID     string `json:"id" example:"12,13"`
}

// NewBatchResponse echoes the ids exactly as given in the path
func NewBatchResponse(ids string) BatchResponse {
	return BatchResponse{Status: "success", ID: ids}
}

// HealthResponse reports the readiness of the service dependencies
// @Description Health check result
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
	Version  string `json:"version,omitempty" example:"1.0.0"`
}
