package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

type ProfileHandler struct {
	Service      service.ProfileService
	Logger       *slog.Logger
	MaxPhotoSize int64
}

func (h ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.get)
	r.Put("/profile", h.update)
	r.Post("/profile/photo", h.uploadPhoto)
}

func (h ProfileHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Put("/users/{id}/active", h.setActive)
}

func (h ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetProfile(r.Context(), authctx.Actor(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toUserDTO(*u))
}

func (h ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string  `json:"nama"`
		Phone *string `json:"phone"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Service.UpdateProfile(r.Context(), authctx.Actor(r.Context()), req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Profil berhasil diperbarui", toUserDTO(*u))
}

func (h ProfileHandler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.MaxPhotoSize) {
		return
	}
	photo, closeFile := formUpload(r, "photo")
	defer closeFile()

	u, err := h.Service.UploadPhoto(r.Context(), authctx.Actor(r.Context()), photo)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Foto profil berhasil diperbarui", toUserDTO(*u))
}

func (h ProfileHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	var role *domain.UserRole
	if v := r.URL.Query().Get("role"); v != "" {
		ur := domain.UserRole(v)
		role = &ur
	}
	users, err := h.Service.ListUsers(r.Context(), authctx.Actor(r.Context()), role, queryLimit(r, 200, 1000))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", mapSlice(users, toUserDTO))
}

func (h ProfileHandler) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "isActive wajib diisi")
		return
	}
	if err := h.Service.SetUserActive(r.Context(), authctx.Actor(r.Context()), id, *req.IsActive); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Status akun berhasil diperbarui", map[string]any{"id": id, "isActive": *req.IsActive})
}
