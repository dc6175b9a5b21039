package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/metrics"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/storage"
)

const (
	msgApplicationNotFound = "Pengajuan tidak ditemukan"
	msgDeletionNotFound    = "Permohonan penghapusan tidak ditemukan"
)

// PermitService runs the permit application lifecycle. Every write that
// touches both an application and its plot happens in one transaction with the
// plot row locked, so a plot is occupied exactly while it has an accepted
// application.
type PermitService struct {
	Tx             ports.TxRunner
	Plots          ports.PlotStore
	Permits        ports.PermitStore
	Documents      ports.DocumentStore
	Deletions      ports.DeletionRequestStore
	Files          ports.FileStore
	Notifier       *Notifier
	Logger         *slog.Logger
	PermitValidity time.Duration
	MaxFileSize    int64
	Clock          func() time.Time
}

type ApplicationInput struct {
	PlotID       int64
	BusinessName string
	BusinessType string
}

// ApplicationDetail is an application with its uploaded documents.
type ApplicationDetail struct {
	domain.PermitApplication
	Documents []domain.Document
}

// SubmitApplication files a business owner's claim on an available plot. The
// plot is locked while its availability and competing claims are checked.
func (s PermitService) SubmitApplication(ctx context.Context, actor domain.Actor, in ApplicationInput) (*domain.PermitApplication, error) {
	if !actor.IsUMKM() {
		return nil, domain.Forbidden("Hanya pelaku UMKM yang dapat mengajukan lokasi")
	}
	name, err := required(in.BusinessName, "Nama usaha wajib diisi")
	if err != nil {
		return nil, err
	}
	kind, err := required(in.BusinessType, "Jenis usaha wajib diisi")
	if err != nil {
		return nil, err
	}

	now := clockOrNow(s.Clock)
	var app *domain.PermitApplication
	err = s.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensurePlotClaimable(ctx, in.PlotID, 0); err != nil {
			return err
		}
		created, err := s.Permits.Create(ctx, repository.CreatePermitParams{
			UserID:       actor.ID,
			PlotID:       in.PlotID,
			BusinessName: name,
			BusinessType: kind,
			AppliedAt:    now,
		})
		if err != nil {
			return storeErr("create application", err, "")
		}
		app = created
		return nil
	})
	if err != nil {
		return nil, storeErr("submit application", err, "")
	}

	metrics.PermitSubmissions.Inc()
	s.logger().Info("application submitted", "application_id", app.ID, "plot_id", app.PlotID, "user_id", actor.ID)
	s.Notifier.NotifyAdmins(ctx, Message{
		Type:        domain.NotificationNewSubmission,
		Title:       "Pengajuan lokasi baru",
		Message:     fmt.Sprintf("%s mengajukan lokasi untuk usaha %s", displayName(actor), app.BusinessName),
		Link:        link(fmt.Sprintf("/submissions/%d", app.ID)),
		ReferenceID: &app.ID,
	})
	return app, nil
}

// ensurePlotClaimable locks the plot and fails unless it is available and no
// other application (other than excludeID) holds or awaits it.
func (s PermitService) ensurePlotClaimable(ctx context.Context, plotID, excludeID int64) error {
	plot, err := s.Plots.GetForUpdate(ctx, plotID)
	if err != nil {
		return storeErr("load plot", err, msgPlotNotFound)
	}
	if plot.Status != domain.PlotAvailable {
		return domain.PreconditionFailed("Lokasi tidak tersedia untuk diajukan")
	}
	n, err := s.Permits.CountForPlot(ctx, plotID, excludeID,
		domain.PermitSubmitted, domain.PermitAccepted, domain.PermitDeletionRequested)
	if err != nil {
		return storeErr("count applications", err, "")
	}
	if n > 0 {
		return domain.Conflict("Lokasi sudah diajukan oleh pelaku usaha lain")
	}
	return nil
}

// DecideApplication accepts or rejects an application and moves its plot to
// the matching status in the same transaction. Acceptance fails with Conflict
// when another application already holds the plot.
func (s PermitService) DecideApplication(ctx context.Context, actor domain.Actor, id int64, decision domain.PermitStatus) (*domain.PermitApplication, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat memutuskan pengajuan")
	}
	plotStatus, err := domain.PlotStatusAfterDecision(decision)
	if err != nil {
		return nil, err
	}

	now := clockOrNow(s.Clock)
	var app *domain.PermitApplication
	err = s.Tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.Permits.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr("load application", err, msgApplicationNotFound)
		}
		if a.Status == domain.PermitDeletionRequested {
			return domain.PreconditionFailed("Pengajuan sedang dalam proses penghapusan")
		}
		plot, err := s.Plots.GetForUpdate(ctx, a.PlotID)
		if err != nil {
			return storeErr("load plot", err, msgPlotNotFound)
		}

		params := repository.SetPermitStatusParams{Status: decision, DecidedAt: &now}
		if decision == domain.PermitAccepted {
			if plot.Status == domain.PlotRestricted {
				return domain.PreconditionFailed("Lokasi sedang dibatasi")
			}
			n, err := s.Permits.CountForPlot(ctx, plot.ID, a.ID, domain.PermitAccepted, domain.PermitDeletionRequested)
			if err != nil {
				return storeErr("count applications", err, "")
			}
			if n > 0 {
				return domain.Conflict("Lokasi sudah ditempati pengajuan lain")
			}
			expires := now.Add(s.PermitValidity)
			params.DateExpired = &expires
		}

		if err := s.Permits.SetStatus(ctx, a.ID, params); err != nil {
			return storeErr("update application status", err, msgApplicationNotFound)
		}
		if err := s.Plots.SetStatus(ctx, plot.ID, plotStatus); err != nil {
			return storeErr("update plot status", err, msgPlotNotFound)
		}

		a.Status = decision
		a.DecidedAt = &now
		a.DateExpired = params.DateExpired
		plot.Status = plotStatus
		if plotStatus != domain.PlotRestricted {
			plot.RestrictionReason = nil
		}
		a.Plot = plot
		app = a
		return nil
	})
	if err != nil {
		return nil, storeErr("decide application", err, "")
	}

	metrics.PermitDecisions.WithLabelValues(string(decision)).Inc()
	s.logger().Info("application decided", "application_id", app.ID, "status", decision, "plot_id", app.PlotID, "admin_id", actor.ID)

	msg := Message{
		Type:        domain.NotificationSubmissionApproved,
		Title:       "Pengajuan disetujui",
		Message:     fmt.Sprintf("Pengajuan lokasi untuk usaha %s telah disetujui", app.BusinessName),
		Link:        link(fmt.Sprintf("/submissions/%d", app.ID)),
		ReferenceID: &app.ID,
	}
	if decision == domain.PermitRejected {
		msg.Type = domain.NotificationSubmissionRejected
		msg.Title = "Pengajuan ditolak"
		msg.Message = fmt.Sprintf("Pengajuan lokasi untuk usaha %s ditolak", app.BusinessName)
	}
	s.Notifier.Notify(ctx, app.UserID, msg)
	return app, nil
}

// ListApplications returns every application for an admin and the caller's
// own applications for a business owner.
func (s PermitService) ListApplications(ctx context.Context, actor domain.Actor, status *domain.PermitStatus) ([]domain.PermitApplication, error) {
	if status != nil && !status.Valid() {
		return nil, domain.InvalidStatus("Status pengajuan tidak valid")
	}
	f := repository.PermitFilter{Status: status}
	switch {
	case actor.IsAdmin():
	case actor.IsUMKM():
		f.UserID = &actor.ID
	default:
		return nil, domain.Unauthorized("Silakan login terlebih dahulu")
	}
	apps, err := s.Permits.List(ctx, f)
	if err != nil {
		return nil, storeErr("list applications", err, "")
	}
	return apps, nil
}

// GetApplication returns an application with its documents. Owners only see
// their own applications.
func (s PermitService) GetApplication(ctx context.Context, actor domain.Actor, id int64) (*ApplicationDetail, error) {
	app, err := s.Permits.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get application", err, msgApplicationNotFound)
	}
	if !actor.IsAdmin() && app.UserID != actor.ID {
		return nil, domain.NotFound(msgApplicationNotFound)
	}
	docs, err := s.Documents.ListByApplication(ctx, id)
	if err != nil {
		return nil, storeErr("list documents", err, "")
	}
	return &ApplicationDetail{PermitApplication: *app, Documents: docs}, nil
}

// UpdateApplication lets an owner edit a pending or rejected application.
// Editing a rejected application resubmits it, which requires the plot to be
// claimable again.
func (s PermitService) UpdateApplication(ctx context.Context, actor domain.Actor, id int64, in ApplicationInput) (*domain.PermitApplication, error) {
	name, err := required(in.BusinessName, "Nama usaha wajib diisi")
	if err != nil {
		return nil, err
	}
	kind, err := required(in.BusinessType, "Jenis usaha wajib diisi")
	if err != nil {
		return nil, err
	}

	var app *domain.PermitApplication
	resubmitted := false
	err = s.Tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.ownedForUpdate(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := domain.CheckOwnerEditable(a.Status); err != nil {
			return err
		}
		if a.Status == domain.PermitRejected {
			if err := s.ensurePlotClaimable(ctx, a.PlotID, a.ID); err != nil {
				return err
			}
			resubmitted = true
		}
		if err := s.Permits.UpdateDetails(ctx, a.ID, name, kind, domain.PermitSubmitted); err != nil {
			return storeErr("update application", err, msgApplicationNotFound)
		}
		a.BusinessName = name
		a.BusinessType = kind
		a.Status = domain.PermitSubmitted
		app = a
		return nil
	})
	if err != nil {
		return nil, storeErr("update application", err, "")
	}

	if resubmitted {
		s.Notifier.NotifyAdmins(ctx, Message{
			Type:        domain.NotificationNewSubmission,
			Title:       "Pengajuan diajukan ulang",
			Message:     fmt.Sprintf("%s mengajukan ulang lokasi untuk usaha %s", displayName(actor), app.BusinessName),
			Link:        link(fmt.Sprintf("/submissions/%d", app.ID)),
			ReferenceID: &app.ID,
		})
	}
	return app, nil
}

// DeleteApplication removes an owner's pending or rejected application and its
// files. Accepted applications go through RequestDeletion instead.
func (s PermitService) DeleteApplication(ctx context.Context, actor domain.Actor, id int64) error {
	var docs []domain.Document
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.ownedForUpdate(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := domain.CheckOwnerEditable(a.Status); err != nil {
			return err
		}
		docs, err = s.Documents.ListByApplication(ctx, a.ID)
		if err != nil {
			return storeErr("list documents", err, "")
		}
		if err := s.Permits.Delete(ctx, a.ID); err != nil {
			return storeErr("delete application", err, msgApplicationNotFound)
		}
		return nil
	})
	if err != nil {
		return storeErr("delete application", err, "")
	}
	s.removeFiles(docs)
	return nil
}

// RequestDeletion asks an admin to remove an accepted application. The plot is
// released while the request is pending; no other application can claim it
// until the request is decided.
func (s PermitService) RequestDeletion(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.DeletionRequest, error) {
	reason, err := required(reason, "Alasan penghapusan wajib diisi")
	if err != nil {
		return nil, err
	}

	var (
		req *domain.DeletionRequest
		app *domain.PermitApplication
	)
	err = s.Tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.ownedForUpdate(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := domain.CheckDeletionRequestable(a.Status); err != nil {
			return err
		}
		if _, err := s.Plots.GetForUpdate(ctx, a.PlotID); err != nil {
			return storeErr("load plot", err, msgPlotNotFound)
		}
		if err := s.Permits.SetStatus(ctx, a.ID, repository.SetPermitStatusParams{
			Status:      domain.PermitDeletionRequested,
			DecidedAt:   a.DecidedAt,
			DateExpired: a.DateExpired,
		}); err != nil {
			return storeErr("update application status", err, msgApplicationNotFound)
		}
		if err := s.Plots.SetStatus(ctx, a.PlotID, domain.PlotAvailable); err != nil {
			return storeErr("release plot", err, msgPlotNotFound)
		}
		req, err = s.Deletions.Create(ctx, repository.CreateDeletionRequestParams{
			ApplicationID:  a.ID,
			UserID:         actor.ID,
			Reason:         reason,
			PreviousStatus: a.Status,
		})
		if err != nil {
			return storeErr("create deletion request", err, "")
		}
		a.Status = domain.PermitDeletionRequested
		app = a
		return nil
	})
	if err != nil {
		return nil, storeErr("request deletion", err, "")
	}

	s.logger().Info("deletion requested", "application_id", app.ID, "request_id", req.ID, "user_id", actor.ID)
	s.Notifier.NotifyAdmins(ctx, Message{
		Type:        domain.NotificationDeletionRequested,
		Title:       "Permohonan penghapusan lokasi",
		Message:     fmt.Sprintf("%s meminta penghapusan lokasi usaha %s", displayName(actor), app.BusinessName),
		Link:        link("/deletion-requests"),
		ReferenceID: &req.ID,
	})
	return req, nil
}

// DecideDeletion approves or rejects a pending deletion request. Approval
// removes the application; rejection restores it and re-occupies the plot, which
// fails with Conflict if the plot has been taken in the meantime.
func (s PermitService) DecideDeletion(ctx context.Context, actor domain.Actor, requestID int64, approve bool) (*domain.DeletionRequest, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat memutuskan permohonan penghapusan")
	}

	now := clockOrNow(s.Clock)
	var (
		req  *domain.DeletionRequest
		app  *domain.PermitApplication
		docs []domain.Document
	)
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.Deletions.GetForUpdate(ctx, requestID)
		if err != nil {
			return storeErr("load deletion request", err, msgDeletionNotFound)
		}
		if r.Status != domain.DeletionPending {
			return domain.PreconditionFailed("Permohonan penghapusan sudah diputuskan")
		}
		if r.ApplicationID == 0 {
			// the application went away with its plot; only the request is left to close
			status := domain.DeletionRejected
			if approve {
				status = domain.DeletionApproved
			}
			if err := s.Deletions.Decide(ctx, r.ID, status, actor.ID, now); err != nil {
				return storeErr("decide deletion request", err, msgDeletionNotFound)
			}
			r.Status, r.DecidedBy, r.DecidedAt = status, &actor.ID, &now
			req = r
			return nil
		}
		a, err := s.Permits.GetForUpdate(ctx, r.ApplicationID)
		if err != nil {
			return storeErr("load application", err, msgApplicationNotFound)
		}

		status := domain.DeletionRejected
		if approve {
			status = domain.DeletionApproved
			docs, err = s.Documents.ListByApplication(ctx, a.ID)
			if err != nil {
				return storeErr("list documents", err, "")
			}
			if err := s.Deletions.Decide(ctx, r.ID, status, actor.ID, now); err != nil {
				return storeErr("decide deletion request", err, msgDeletionNotFound)
			}
			if err := s.Permits.Delete(ctx, a.ID); err != nil {
				return storeErr("delete application", err, msgApplicationNotFound)
			}
		} else {
			if err := s.restoreApplication(ctx, a, r.PreviousStatus); err != nil {
				return err
			}
			if err := s.Deletions.Decide(ctx, r.ID, status, actor.ID, now); err != nil {
				return storeErr("decide deletion request", err, msgDeletionNotFound)
			}
		}

		r.Status = status
		r.DecidedBy = &actor.ID
		r.DecidedAt = &now
		req = r
		app = a
		return nil
	})
	if err != nil {
		return nil, storeErr("decide deletion", err, "")
	}

	s.removeFiles(docs)
	s.logger().Info("deletion request decided", "request_id", req.ID, "status", req.Status, "admin_id", actor.ID)
	if app == nil {
		return req, nil
	}

	msg := Message{
		Type:        domain.NotificationDeletionApproved,
		Title:       "Permohonan penghapusan disetujui",
		Message:     fmt.Sprintf("Lokasi usaha %s telah dihapus sesuai permohonan Anda", app.BusinessName),
		Link:        link("/submissions"),
		ReferenceID: &req.ID,
	}
	if !approve {
		msg.Type = domain.NotificationDeletionRejected
		msg.Title = "Permohonan penghapusan ditolak"
		msg.Message = fmt.Sprintf("Permohonan penghapusan lokasi usaha %s ditolak", app.BusinessName)
		msg.Link = link(fmt.Sprintf("/submissions/%d", app.ID))
	}
	s.Notifier.Notify(ctx, app.UserID, msg)
	return req, nil
}

// restoreApplication puts a back into prev and re-occupies its plot.
func (s PermitService) restoreApplication(ctx context.Context, a *domain.PermitApplication, prev domain.PermitStatus) error {
	if prev == "" {
		prev = domain.PermitAccepted
	}
	plot, err := s.Plots.GetForUpdate(ctx, a.PlotID)
	if err != nil {
		return storeErr("load plot", err, msgPlotNotFound)
	}
	if prev == domain.PermitAccepted {
		if plot.Status != domain.PlotAvailable {
			return domain.Conflict("Lokasi sudah tidak tersedia untuk dipulihkan")
		}
		n, err := s.Permits.CountForPlot(ctx, plot.ID, a.ID, domain.PermitAccepted)
		if err != nil {
			return storeErr("count applications", err, "")
		}
		if n > 0 {
			return domain.Conflict("Lokasi sudah ditempati pengajuan lain")
		}
		if err := s.Plots.SetStatus(ctx, plot.ID, domain.PlotOccupied); err != nil {
			return storeErr("occupy plot", err, msgPlotNotFound)
		}
	}
	if err := s.Permits.SetStatus(ctx, a.ID, repository.SetPermitStatusParams{
		Status:      prev,
		DecidedAt:   a.DecidedAt,
		DateExpired: a.DateExpired,
	}); err != nil {
		return storeErr("restore application", err, msgApplicationNotFound)
	}
	a.Status = prev
	return nil
}

func (s PermitService) ListDeletionRequests(ctx context.Context, actor domain.Actor, status *domain.DeletionRequestStatus) ([]domain.DeletionRequest, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat melihat permohonan penghapusan")
	}
	reqs, err := s.Deletions.List(ctx, status)
	if err != nil {
		return nil, storeErr("list deletion requests", err, "")
	}
	return reqs, nil
}

// AttachDocument stores a supporting document uploaded by the application's
// owner.
func (s PermitService) AttachDocument(ctx context.Context, actor domain.Actor, id int64, up *storage.Upload) (*domain.Document, error) {
	app, err := s.Permits.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get application", err, msgApplicationNotFound)
	}
	if app.UserID != actor.ID {
		return nil, domain.NotFound(msgApplicationNotFound)
	}
	if app.Status == domain.PermitDeletionRequested {
		return nil, domain.PreconditionFailed("Pengajuan sedang dalam proses penghapusan")
	}
	return s.storeDocument(ctx, actor, app, domain.DocumentSupporting, up)
}

// IssueCertificate attaches the permit certificate to an accepted application
// and tells the owner.
func (s PermitService) IssueCertificate(ctx context.Context, actor domain.Actor, id int64, up *storage.Upload) (*domain.Document, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat menerbitkan sertifikat")
	}
	app, err := s.Permits.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get application", err, msgApplicationNotFound)
	}
	if app.Status != domain.PermitAccepted {
		return nil, domain.PreconditionFailed("Sertifikat hanya untuk pengajuan yang sudah disetujui")
	}
	doc, err := s.storeDocument(ctx, actor, app, domain.DocumentCertificate, up)
	if err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, app.UserID, Message{
		Type:        domain.NotificationCertificateIssued,
		Title:       "Sertifikat terbit",
		Message:     fmt.Sprintf("Sertifikat izin lokasi untuk usaha %s sudah dapat diunduh", app.BusinessName),
		Link:        link(fmt.Sprintf("/submissions/%d", app.ID)),
		ReferenceID: &app.ID,
	})
	return doc, nil
}

func (s PermitService) storeDocument(ctx context.Context, actor domain.Actor, app *domain.PermitApplication, kind domain.DocumentKind, up *storage.Upload) (*domain.Document, error) {
	checked, err := checkUpload(up, s.MaxFileSize, acceptDocument, "dokumen", "Dokumen wajib diunggah")
	if err != nil {
		return nil, err
	}
	category := "documents"
	if kind == domain.DocumentCertificate {
		category = "certificates"
	}
	ref, err := s.Files.Save(category, checked)
	if err != nil {
		return nil, domain.Storage("save document", err)
	}
	doc, err := s.Documents.Create(ctx, repository.CreateDocumentParams{
		ApplicationID: app.ID,
		Kind:          kind,
		FileURL:       ref,
		OriginalName:  strings.TrimSpace(checked.Filename),
		UploadedBy:    actor.ID,
	})
	if err != nil {
		s.removeFile(ref)
		return nil, storeErr("create document", err, "")
	}
	return doc, nil
}

// ownedForUpdate locks application id and checks that actor owns it. Other
// users' applications are reported as missing.
func (s PermitService) ownedForUpdate(ctx context.Context, actor domain.Actor, id int64) (*domain.PermitApplication, error) {
	if !actor.IsUMKM() {
		return nil, domain.Forbidden("Hanya pemilik pengajuan yang dapat melakukan aksi ini")
	}
	a, err := s.Permits.GetForUpdate(ctx, id)
	if err != nil {
		return nil, storeErr("load application", err, msgApplicationNotFound)
	}
	if a.UserID != actor.ID {
		return nil, domain.NotFound(msgApplicationNotFound)
	}
	return a, nil
}

func (s PermitService) removeFiles(docs []domain.Document) {
	for _, d := range docs {
		s.removeFile(d.FileURL)
	}
}

func (s PermitService) removeFile(ref string) {
	if s.Files == nil || ref == "" {
		return
	}
	if err := s.Files.Delete(ref); err != nil {
		s.logger().Warn("delete stored file", "ref", ref, "err", err)
	}
}

func (s PermitService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func displayName(a domain.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
