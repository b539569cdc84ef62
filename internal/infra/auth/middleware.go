package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// TokenValidator: проверка токена, реализуется Verifier
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext достает claims, положенные Middleware.
func ClaimsFromContext(ctx context.Context) (*domain.CustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*domain.CustomClaims)
	return claims, ok
}

// NewMiddleware пропускает запрос дальше только с валидным токеном,
// в котором есть scope (пустой scope: любой валидный токен).
func NewMiddleware(v TokenValidator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				deny(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				deny(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			if scope != "" && !claims.Scopes[scope] {
				logger.Warn("scope denied", zap.String("user_id", claims.UserID), zap.String("scope", scope))
				deny(w, r, http.StatusForbidden, "FORBIDDEN", "missing scope "+scope)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"status_code": status,
		"error_code":  code,
		"message":     msg,
	})
}
