package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/metrics"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/storage"
)

const (
	msgReportNotFound = "Laporan tidak ditemukan"
	reminderBatch     = 100
)

// ReportService handles public complaints about plot usage.
type ReportService struct {
	Tx           ports.TxRunner
	Reports      ports.ReportStore
	Files        ports.FileStore
	Notifier     *Notifier
	Logger       *slog.Logger
	MaxPhotoSize int64
	Clock        func() time.Time
}

type ReportInput struct {
	ReportType  string
	Description string
	Latitude    float64
	Longitude   float64
}

// SubmitReport stores an anonymous report with its photo evidence. The photo is
// saved first and removed again if the record cannot be written.
func (s ReportService) SubmitReport(ctx context.Context, in ReportInput, photo *storage.Upload) (*domain.Report, error) {
	reportType, err := required(in.ReportType, "Jenis laporan wajib diisi")
	if err != nil {
		return nil, err
	}
	desc, err := required(in.Description, "Deskripsi laporan wajib diisi")
	if err != nil {
		return nil, err
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}
	checked, err := checkUpload(photo, s.MaxPhotoSize, acceptImage, "foto", "Foto bukti wajib diunggah")
	if err != nil {
		return nil, err
	}

	ref, err := s.Files.Save("reports", checked)
	if err != nil {
		return nil, domain.Storage("save report photo", err)
	}
	rep, err := s.Reports.Create(ctx, repository.CreateReportParams{
		ReportType:  reportType,
		Description: desc,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		PhotoURL:    ref,
		ReportedAt:  clockOrNow(s.Clock),
	})
	if err != nil {
		s.removePhoto(ref)
		return nil, storeErr("create report", err, "")
	}

	metrics.ReportTransitions.WithLabelValues(string(rep.Status)).Inc()
	s.logger().Info("report submitted", "report_id", rep.ID, "type", rep.ReportType)
	s.Notifier.NotifyAdmins(ctx, Message{
		Type:        domain.NotificationNewReport,
		Title:       "Laporan baru",
		Message:     fmt.Sprintf("Laporan %s baru diterima", rep.ReportType),
		Link:        link(fmt.Sprintf("/reports/%d", rep.ID)),
		ReferenceID: &rep.ID,
	})
	return rep, nil
}

func (s ReportService) ListReports(ctx context.Context, actor domain.Actor, status *domain.ReportStatus, limit int) ([]domain.Report, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat melihat laporan")
	}
	if status != nil && !status.Valid() {
		return nil, domain.InvalidStatus("Status laporan tidak valid")
	}
	reps, err := s.Reports.List(ctx, status, limit)
	if err != nil {
		return nil, storeErr("list reports", err, "")
	}
	return reps, nil
}

func (s ReportService) GetReport(ctx context.Context, actor domain.Actor, id int64) (*domain.Report, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat melihat laporan")
	}
	rep, err := s.Reports.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get report", err, msgReportNotFound)
	}
	return rep, nil
}

// AdvanceReport moves a report forward through review. The acting admin
// becomes the handler when the report leaves unreviewed.
func (s ReportService) AdvanceReport(ctx context.Context, actor domain.Actor, id int64, next domain.ReportStatus) (*domain.Report, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Hanya admin yang dapat memproses laporan")
	}

	var rep *domain.Report
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.Reports.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr("load report", err, msgReportNotFound)
		}
		handler, err := domain.AdvanceReport(r.Status, next, r.AdminHandlerID, actor.ID)
		if err != nil {
			return err
		}
		if err := s.Reports.SetStatus(ctx, r.ID, next, handler); err != nil {
			return storeErr("update report status", err, msgReportNotFound)
		}
		r.Status = next
		r.AdminHandlerID = handler
		rep = r
		return nil
	})
	if err != nil {
		return nil, storeErr("advance report", err, "")
	}

	metrics.ReportTransitions.WithLabelValues(string(next)).Inc()
	s.logger().Info("report advanced", "report_id", rep.ID, "status", rep.Status, "admin_id", actor.ID)
	return rep, nil
}

// DeleteReport removes a resolved report. The photo is deleted afterwards on a
// best-effort basis.
func (s ReportService) DeleteReport(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin() {
		return domain.Forbidden("Hanya admin yang dapat menghapus laporan")
	}

	var photo string
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.Reports.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr("load report", err, msgReportNotFound)
		}
		if err := domain.CheckReportDeletable(r.Status); err != nil {
			return err
		}
		if err := s.Reports.Delete(ctx, r.ID); err != nil {
			return storeErr("delete report", err, msgReportNotFound)
		}
		photo = r.PhotoURL
		return nil
	})
	if err != nil {
		return storeErr("delete report", err, "")
	}

	s.removePhoto(photo)
	s.logger().Info("report deleted", "report_id", id, "admin_id", actor.ID)
	return nil
}

// RemindUnhandled alerts admins about reports still unreviewed after olderThan.
// Each report is reminded once.
func (s ReportService) RemindUnhandled(ctx context.Context, olderThan time.Duration) (int, error) {
	now := clockOrNow(s.Clock)
	reps, err := s.Reports.ListUnreminded(ctx, now.Add(-olderThan), reminderBatch)
	if err != nil {
		return 0, storeErr("list unhandled reports", err, "")
	}
	sent := 0
	for _, r := range reps {
		if err := s.Reports.MarkReminded(ctx, r.ID, now); err != nil {
			s.logger().Error("mark report reminded", "report_id", r.ID, "err", err)
			continue
		}
		id := r.ID
		s.Notifier.NotifyAdmins(ctx, Message{
			Type:        domain.NotificationUnhandledReport,
			Title:       "Laporan belum ditangani",
			Message:     fmt.Sprintf("Laporan %s sejak %s belum ditinjau", r.ReportType, r.DateReported.Format("02-01-2006 15:04")),
			Link:        link(fmt.Sprintf("/reports/%d", id)),
			ReferenceID: &id,
		})
		sent++
	}
	return sent, nil
}

// RunReminders calls RemindUnhandled every interval until ctx is done.
func (s ReportService) RunReminders(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.RemindUnhandled(ctx, olderThan)
			if err != nil {
				s.logger().Error("remind unhandled reports", "err", err)
				continue
			}
			if n > 0 {
				s.logger().Info("unhandled report reminders sent", "count", n)
			}
		}
	}
}

func (s ReportService) removePhoto(ref string) {
	if ref == "" {
		return
	}
	if err := s.Files.Delete(ref); err != nil {
		s.logger().Warn("delete report photo", "ref", ref, "err", err)
	}
}

func (s ReportService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
