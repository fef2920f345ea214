package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the caller identified by a valid access token.
type Principal struct {
	UserID  int64
	IsStaff bool
}

type TokenValidator interface {
	ValidateAccessToken(token string) (Principal, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		principal, err := m.validator.ValidateAccessToken(strings.TrimSpace(header[7:]))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !principal.IsStaff {
			writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	return principal, ok
}
