package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
)

// ReportHandler takes public violation reports and serves the admin queue.
type ReportHandler struct {
	Service      service.ReportService
	Logger       *slog.Logger
	MaxPhotoSize int64
}

func (h ReportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/reports", h.submit)
}

func (h ReportHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/reports", h.list)
	r.Get("/reports/{id}", h.get)
	r.Put("/reports/{id}", h.advance)
	r.Delete("/reports/{id}", h.delete)
}

func (h ReportHandler) submit(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.MaxPhotoSize) {
		return
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(r.FormValue("latitude")), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(r.FormValue("longitude")), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "Koordinat tidak valid")
		return
	}
	photo, closeFile := formUpload(r, "photo")
	defer closeFile()

	rep, err := h.Service.SubmitReport(r.Context(), service.ReportInput{
		ReportType:  r.FormValue("report_type"),
		Description: r.FormValue("description"),
		Latitude:    lat,
		Longitude:   lng,
	}, photo)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Laporan berhasil dikirim", toReportDTO(*rep))
}

func (h ReportHandler) list(w http.ResponseWriter, r *http.Request) {
	var status *domain.ReportStatus
	if s := queryStatus(r); s != nil {
		st := domain.ReportStatus(*s)
		status = &st
	}
	reports, err := h.Service.ListReports(r.Context(), authctx.Actor(r.Context()), status, queryLimit(r, 200, 1000))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", mapSlice(reports, toReportDTO))
}

func (h ReportHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, err := h.Service.GetReport(r.Context(), authctx.Actor(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toReportDTO(*rep))
}

func (h ReportHandler) advance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rep, err := h.Service.AdvanceReport(r.Context(), authctx.Actor(r.Context()), id, domain.ReportStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Status laporan berhasil diperbarui", toReportDTO(*rep))
}

func (h ReportHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteReport(r.Context(), authctx.Actor(r.Context()), id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Laporan berhasil dihapus", nil)
}
