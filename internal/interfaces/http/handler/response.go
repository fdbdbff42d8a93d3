package handler

import "github.com/schoolops/enrollment/internal/interfaces/http/dto"

// APIResponse is the typed form of dto.Response used in the API docs and by
// clients decoding the envelope. Data is omitted on errors.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents a failed call: code, message, offending field and request id
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
