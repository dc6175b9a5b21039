package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/server/authctx"
)

const msgNotificationNotFound = "Notifikasi tidak ditemukan"

// NotificationHandler serves the caller's inbox and push token registration.
// Every query is scoped to the authenticated user, so another user's
// notification reads as missing.
type NotificationHandler struct {
	Store  ports.NotificationStore
	Tokens ports.DeviceTokenStore
	Logger *slog.Logger
}

func (h NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Put("/notifications/read-all", h.markAllRead)
	r.Put("/notifications/{id}/read", h.markRead)
	r.Delete("/notifications/{id}", h.delete)
	r.Post("/notifications/token", h.registerToken)
}

func (h NotificationHandler) list(w http.ResponseWriter, r *http.Request) {
	actor := authctx.Actor(r.Context())
	items, err := h.Store.List(r.Context(), actor.ID, queryLimit(r, 50, 200))
	if err != nil {
		h.fail(w, r, "list notifications", err)
		return
	}
	unread, err := h.Store.CountUnread(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, "count unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{
		"items":  mapSlice(items, toNotificationDTO),
		"unread": unread,
	})
}

func (h NotificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.MarkRead(r.Context(), authctx.Actor(r.Context()).ID, id); err != nil {
		h.fail(w, r, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, "Notifikasi ditandai sudah dibaca", nil)
}

func (h NotificationHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.MarkAllRead(r.Context(), authctx.Actor(r.Context()).ID)
	if err != nil {
		h.fail(w, r, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, "Semua notifikasi ditandai sudah dibaca", map[string]int64{"updated": n})
}

func (h NotificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), authctx.Actor(r.Context()).ID, id); err != nil {
		h.fail(w, r, "delete notification", err)
		return
	}
	writeJSON(w, http.StatusOK, "Notifikasi berhasil dihapus", nil)
}

func (h NotificationHandler) registerToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token wajib diisi")
		return
	}
	if err := h.Tokens.Register(r.Context(), repository.RegisterTokenInput{
		UserID:   authctx.Actor(r.Context()).ID,
		Token:    req.Token,
		Platform: req.Platform,
	}); err != nil {
		h.fail(w, r, "register device token", err)
		return
	}
	writeJSON(w, http.StatusOK, "Token berhasil didaftarkan", nil)
}

func (h NotificationHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeServiceError(w, r, h.Logger, domain.NotFound(msgNotificationNotFound))
		return
	}
	writeServiceError(w, r, h.Logger, domain.Storage(op, err))
}
