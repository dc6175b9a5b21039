package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/server/authctx"
	"lokasi-umkm-backend/internal/service"
	"lokasi-umkm-backend/internal/storage"
)

// SubmissionHandler exposes permit applications. Owners and admins share the
// routes; the service scopes what each may see and do.
type SubmissionHandler struct {
	Service     service.PermitService
	Logger      *slog.Logger
	MaxFileSize int64
}

type applicationRequest struct {
	PlotID       int64  `json:"plotId"`
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`
}

func (h SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/submissions", h.list)
	r.Post("/submissions", h.create)
	r.Get("/submissions/{id}", h.get)
	r.Patch("/submissions/{id}", h.update)
	r.Put("/submissions/{id}", h.decide)
	r.Delete("/submissions/{id}", h.delete)
	r.Post("/submissions/{id}/documents", h.attachDocument)
	r.Post("/submissions/{id}/certificate", h.issueCertificate)
	r.Post("/submissions/{id}/deletion-request", h.requestDeletion)
}

func (h SubmissionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/deletion-requests", h.listDeletionRequests)
	r.Put("/deletion-requests/{id}", h.decideDeletion)
}

func (h SubmissionHandler) list(w http.ResponseWriter, r *http.Request) {
	var status *domain.PermitStatus
	if s := queryStatus(r); s != nil {
		st := domain.PermitStatus(*s)
		status = &st
	}
	apps, err := h.Service.ListApplications(r.Context(), authctx.Actor(r.Context()), status)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", mapSlice(apps, toApplicationDTO))
}

func (h SubmissionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.GetApplication(r.Context(), authctx.Actor(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	out := toApplicationDTO(detail.PermitApplication)
	out.Documents = mapSlice(detail.Documents, toDocumentDTO)
	writeJSON(w, http.StatusOK, "", out)
}

func (h SubmissionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.Service.SubmitApplication(r.Context(), authctx.Actor(r.Context()), service.ApplicationInput{
		PlotID:       req.PlotID,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Pengajuan berhasil dikirim", toApplicationDTO(*app))
}

func (h SubmissionHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req applicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.Service.UpdateApplication(r.Context(), authctx.Actor(r.Context()), id, service.ApplicationInput{
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Pengajuan berhasil diperbarui", toApplicationDTO(*app))
}

func (h SubmissionHandler) decide(w http.ResponseWriter, r *http.Request) {
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
	app, err := h.Service.DecideApplication(r.Context(), authctx.Actor(r.Context()), id, domain.PermitStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Status pengajuan berhasil diperbarui", toApplicationDTO(*app))
}

func (h SubmissionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteApplication(r.Context(), authctx.Actor(r.Context()), id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Pengajuan berhasil dihapus", nil)
}

func (h SubmissionHandler) attachDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "Dokumen berhasil diunggah", h.Service.AttachDocument)
}

func (h SubmissionHandler) issueCertificate(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "Sertifikat berhasil diterbitkan", h.Service.IssueCertificate)
}

func (h SubmissionHandler) upload(w http.ResponseWriter, r *http.Request, message string,
	store func(context.Context, domain.Actor, int64, *storage.Upload) (*domain.Document, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.MaxFileSize) {
		return
	}
	up, closeFile := formUpload(r, "file")
	defer closeFile()

	doc, err := store(r.Context(), authctx.Actor(r.Context()), id, up)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, message, toDocumentDTO(*doc))
}

func (h SubmissionHandler) requestDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	dr, err := h.Service.RequestDeletion(r.Context(), authctx.Actor(r.Context()), id, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Permohonan penghapusan berhasil dikirim", toDeletionRequestDTO(*dr))
}

func (h SubmissionHandler) listDeletionRequests(w http.ResponseWriter, r *http.Request) {
	var status *domain.DeletionRequestStatus
	if s := queryStatus(r); s != nil {
		st := domain.DeletionRequestStatus(*s)
		status = &st
	}
	reqs, err := h.Service.ListDeletionRequests(r.Context(), authctx.Actor(r.Context()), status)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", mapSlice(reqs, toDeletionRequestDTO))
}

func (h SubmissionHandler) decideDeletion(w http.ResponseWriter, r *http.Request) {
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
	var approve bool
	switch domain.DeletionRequestStatus(req.Status) {
	case domain.DeletionApproved:
		approve = true
	case domain.DeletionRejected:
	default:
		writeError(w, http.StatusBadRequest, "Status permohonan tidak valid")
		return
	}
	dr, err := h.Service.DecideDeletion(r.Context(), authctx.Actor(r.Context()), id, approve)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Permohonan penghapusan berhasil diproses", toDeletionRequestDTO(*dr))
}
