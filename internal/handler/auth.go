package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

type AuthHandler struct {
	Service      service.AuthService
	Logger       *slog.Logger
	CookieName   string
	CookieSecure bool
}

func (h AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
}

func (h AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Put("/profile/password", h.changePassword)
}

func (h AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"nama"`
		Email    string  `json:"email"`
		Password string  `json:"password"`
		NIK      string  `json:"nik"`
		Phone    *string `json:"phone"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Service.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		NIK:      req.NIK,
		Phone:    req.Phone,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	h.writeAuthResponse(w, http.StatusCreated, "Registrasi berhasil", res)
}

func (h AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	h.writeAuthResponse(w, http.StatusOK, "Login berhasil", res)
}

func (h AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, "Logout berhasil", nil)
}

func (h AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Password saat ini dan password baru wajib diisi")
		return
	}
	actor := authctx.Actor(r.Context())
	if err := h.Service.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Password berhasil diubah", nil)
}

func (h AuthHandler) writeAuthResponse(w http.ResponseWriter, status int, message string, res *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    res.AccessToken,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, message, map[string]any{
		"token":     res.AccessToken,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      toUserDTO(res.User),
	})
}

func (h AuthHandler) cookieName() string {
	if h.CookieName == "" {
		return "token"
	}
	return h.CookieName
}
