package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

// PlotHandler serves the public map and the admin plot editor.
type PlotHandler struct {
	Service service.PlotService
	Logger  *slog.Logger
}

type plotRequest struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Status            string  `json:"status"`
	RestrictionReason *string `json:"restrictionReason"`
	Label             *string `json:"label"`
}

func (p plotRequest) input() service.PlotInput {
	return service.PlotInput{
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Status:            domain.PlotStatus(p.Status),
		RestrictionReason: p.RestrictionReason,
		Label:             p.Label,
	}
}

func (h PlotHandler) RegisterRoutes(r chi.Router) {
	r.Get("/plots", h.list)
	r.Get("/plots/{id}", h.get)
}

func (h PlotHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/plots", h.create)
	r.Put("/plots/{id}", h.update)
	r.Delete("/plots/{id}", h.delete)
}

func (h PlotHandler) list(w http.ResponseWriter, r *http.Request) {
	var status *domain.PlotStatus
	if s := queryStatus(r); s != nil {
		st := domain.PlotStatus(*s)
		status = &st
	}
	plots, err := h.Service.ListPlots(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", mapSlice(plots, toPlotDTO))
}

func (h PlotHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Service.GetPlot(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toPlotDTO(*p))
}

func (h PlotHandler) create(w http.ResponseWriter, r *http.Request) {
	var req plotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Service.CreatePlot(r.Context(), authctx.Actor(r.Context()), req.input())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Lokasi berhasil ditambahkan", toPlotDTO(*p))
}

func (h PlotHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req plotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Service.UpdatePlot(r.Context(), authctx.Actor(r.Context()), id, req.input())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Lokasi berhasil diperbarui", toPlotDTO(*p))
}

func (h PlotHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeletePlot(r.Context(), authctx.Actor(r.Context()), id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Lokasi berhasil dihapus", nil)
}
