package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
)

type fakeTokens map[string]domain.Actor

func (f fakeTokens) ParseToken(raw string) (domain.Actor, error) {
	a, ok := f[raw]
	if !ok {
		return domain.Actor{}, errors.New("invalid token")
	}
	return a, nil
}

var tokens = fakeTokens{
	"admin-token": {ID: 1, Role: domain.RoleAdmin},
	"owner-token": {ID: 2, Role: domain.RoleUMKM},
}

// echoActor writes the id of the actor in context.
var echoActor = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	a := authctx.Actor(r.Context())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(string(a.Role)))
})

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	h := AuthMiddleware(tokens, "token")(echoActor)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer owner-token") }, http.StatusOK, "umkm"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "admin-token"}) }, http.StatusOK, "admin"},
		{"header wins over cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer owner-token")
			r.AddCookie(&http.Cookie{Name: "token", Value: "admin-token"})
		}, http.StatusOK, "umkm"},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") }, http.StatusUnauthorized, ""},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic owner-token") }, http.StatusUnauthorized, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("expected actor %q, got %q", tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	h := AuthMiddleware(tokens, "token")(RequireRole(domain.RoleAdmin)(echoActor))

	for token, status := range map[string]int{"admin-token": http.StatusOK, "owner-token": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != status {
			t.Fatalf("%s: expected %d, got %d", token, status, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(echoActor).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}
}
