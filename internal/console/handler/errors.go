package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// APIError: единый формат ошибок JSON API
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// toAPIError переводит доменные ошибки в HTTP статусы.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, domain.ErrDatasetNotLoaded):
		return NewAPIError(http.StatusServiceUnavailable, "DATASET_NOT_LOADED", "dataset is not loaded yet")
	case errors.Is(err, domain.ErrUnknownChart):
		return NewAPIError(http.StatusNotFound, "UNKNOWN_CHART", err.Error())
	case errors.Is(err, domain.ErrNoData):
		return NewAPIError(http.StatusNotFound, "NO_DATA", domain.EmptyWarning)
	case errors.Is(err, domain.ErrInvalidCredentials):
		// не уточняем, что именно неверно (логин или пароль) для защиты от перебора
		return NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	default:
		return NewAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	_ = render.Render(w, r, toAPIError(err))
}
