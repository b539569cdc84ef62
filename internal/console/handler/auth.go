package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

type TokenIssuer interface {
	GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error)
}

type AuthHandler struct {
	service TokenIssuer
}

func NewAuthHandler(s TokenIssuer) *AuthHandler {
	return &AuthHandler{service: s}
}

// Login POST /auth/token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "invalid request format"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apiErr := NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "username and password are required")
		apiErr.Details = validationDetails(err)
		renderError(w, r, apiErr)
		return
	}

	resp, err := h.service.GenerateToken(r.Context(), req.Username, req.Password)
	if err != nil {
		renderError(w, r, domain.ErrInvalidCredentials)
		return
	}

	render.JSON(w, r, resp)
}
