package handler

import "github.com/crm/backend/internal/interfaces/http/dto"

// swaggo cannot express the dynamic Data field of dto.Response, so the
// handler annotations reference these typed shells instead. They are never
// instantiated.

// APIResponse is the success envelope with a concretely typed data field.
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope.
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
