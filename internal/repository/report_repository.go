package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

type ReportRepository struct {
	DB *db.Postgres
}

type CreateReportParams struct {
	ReportType  string
	Description string
	Latitude    float64
	Longitude   float64
	PhotoURL    string
	ReportedAt  time.Time
}

const reportColumns = `id, report_type, description, latitude, longitude, photo_url, status, admin_handler_id, date_reported, reminded_at`

func (r ReportRepository) Create(ctx context.Context, p CreateReportParams) (*domain.Report, error) {
	reported := p.ReportedAt
	if reported.IsZero() {
		reported = time.Now()
	}
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO reports (report_type, description, latitude, longitude, photo_url, status, date_reported)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+reportColumns,
		p.ReportType, p.Description, p.Latitude, p.Longitude, p.PhotoURL, string(domain.ReportUnreviewed), reported)
	return scanReport(row)
}

func (r ReportRepository) Get(ctx context.Context, id int64) (*domain.Report, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
	return notFound(scanReport(row))
}

func (r ReportRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Report, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1 FOR UPDATE`, id)
	return notFound(scanReport(row))
}

func (r ReportRepository) List(ctx context.Context, status *domain.ReportStatus, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY date_reported DESC, id DESC
		LIMIT $2
	`, (*string)(status), limit)
	if err != nil {
		return nil, err
	}
	return collectReports(rows)
}

// ListUnreminded returns unreviewed reports filed before cutoff that have not
// triggered a reminder yet.
func (r ReportRepository) ListUnreminded(ctx context.Context, cutoff time.Time, limit int) ([]domain.Report, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE status = 'unreviewed' AND reminded_at IS NULL AND date_reported < $1
		ORDER BY date_reported ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectReports(rows)
}

func (r ReportRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	return execOne(ctx, r.DB, `UPDATE reports SET reminded_at=$2 WHERE id=$1`, id, at)
}

func (r ReportRepository) SetStatus(ctx context.Context, id int64, status domain.ReportStatus, handler *int64) error {
	return execOne(ctx, r.DB, `UPDATE reports SET status=$2, admin_handler_id=$3 WHERE id=$1`, id, string(status), handler)
}

func (r ReportRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.DB, `DELETE FROM reports WHERE id=$1`, id)
}

func collectReports(rows pgx.Rows) ([]domain.Report, error) {
	defer rows.Close()
	var items []domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rep)
	}
	return items, rows.Err()
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var (
		rep    domain.Report
		status string
	)
	if err := row.Scan(&rep.ID, &rep.ReportType, &rep.Description, &rep.Latitude, &rep.Longitude, &rep.PhotoURL,
		&status, &rep.AdminHandlerID, &rep.DateReported, &rep.RemindedAt); err != nil {
		return nil, err
	}
	rep.Status = domain.ReportStatus(status)
	return &rep, nil
}
