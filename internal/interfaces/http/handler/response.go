package handler

import "github.com/ifcvalidation/bff/internal/interfaces/http/dto"

// ErrorResponse documents the JSON error envelope in the OpenAPI output.
// Legacy success payloads are bare objects and have no wrapper.
// @Description Error envelope returned by every JSON route
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
