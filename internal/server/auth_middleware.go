package server

import (
	"net/http"
	"strings"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
)

// TokenParser turns a raw access token into the actor it was issued to.
type TokenParser interface {
	ParseToken(raw string) (domain.Actor, error)
}

// AuthMiddleware validates the access token from the Authorization header or
// the auth cookie and stores the actor in the request context.
func AuthMiddleware(tokens TokenParser, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "Silakan login terlebih dahulu")
				return
			}
			actor, err := tokens.ParseToken(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Sesi tidak valid, silakan login kembali")
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// RequireRole ensures the actor has one of the allowed roles.
func RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[domain.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := authctx.Actor(r.Context())
			if actor.IsAnonymous() {
				writeAuthError(w, http.StatusUnauthorized, "Silakan login terlebih dahulu")
				return
			}
			if _, ok := allowed[actor.Role]; !ok && len(allowed) > 0 {
				writeAuthError(w, http.StatusForbidden, "Akses ditolak")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `","data":null}`))
}
