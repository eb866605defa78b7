package middleware

import (
	"errors"
	"net/http"
	"strings"

	"wablast-backend/internal/config"
	"wablast-backend/internal/utils"
)

type Middleware struct {
	Config *config.Config
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{Config: cfg}
}

// AuthMiddleware requires a valid operator bearer token.
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.parseToken(r.Header.Get("Authorization")); err != nil {
			utils.ErrorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) parseToken(authHeader string) error {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return errors.New("invalid authorization format")
	}
	return utils.ValidateOperatorToken(parts[1], m.Config.JWTSecret)
}
