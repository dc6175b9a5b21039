package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

// PermitRepository stores permit applications in umkm_locations.
type PermitRepository struct {
	DB *db.Postgres
}

type CreatePermitParams struct {
	UserID       int64
	PlotID       int64
	BusinessName string
	BusinessType string
	AppliedAt    time.Time
}

type PermitFilter struct {
	UserID *int64
	PlotID *int64
	Status *domain.PermitStatus
	Limit  int
}

const permitColumns = `ul.id, ul.user_id, ul.master_location_id, ul.business_name, ul.business_type, ul.permit_status,
	ul.date_applied, ul.date_expired, ul.decided_at, ul.created_at, ul.updated_at`

const permitDetailQuery = `
	SELECT ` + permitColumns + `, u.nama,
		ml.id, ml.latitude, ml.longitude, ml.status, ml.restriction_reason, ml.label, ml.created_at, ml.updated_at
	FROM umkm_locations ul
	JOIN users u ON u.id = ul.user_id
	JOIN master_locations ml ON ml.id = ul.master_location_id`

func (r PermitRepository) Create(ctx context.Context, p CreatePermitParams) (*domain.PermitApplication, error) {
	applied := p.AppliedAt
	if applied.IsZero() {
		applied = time.Now()
	}
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO umkm_locations AS ul (user_id, master_location_id, business_name, business_type, permit_status, date_applied, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now(), now())
		RETURNING `+permitColumns,
		p.UserID, p.PlotID, p.BusinessName, p.BusinessType, string(domain.PermitSubmitted), applied)
	return scanPermit(row)
}

func (r PermitRepository) Get(ctx context.Context, id int64) (*domain.PermitApplication, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, permitDetailQuery+` WHERE ul.id=$1`, id)
	return notFound(scanPermitDetail(row))
}

// GetForUpdate locks the application row until the surrounding transaction ends.
func (r PermitRepository) GetForUpdate(ctx context.Context, id int64) (*domain.PermitApplication, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+permitColumns+` FROM umkm_locations ul WHERE ul.id=$1 FOR UPDATE`, id)
	return notFound(scanPermit(row))
}

func (r PermitRepository) List(ctx context.Context, f PermitFilter) ([]domain.PermitApplication, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.Conn(ctx).Query(ctx, permitDetailQuery+`
		WHERE ($1::bigint IS NULL OR ul.user_id = $1)
		  AND ($2::bigint IS NULL OR ul.master_location_id = $2)
		  AND ($3::text IS NULL OR ul.permit_status = $3)
		ORDER BY ul.date_applied DESC, ul.id DESC
		LIMIT $4
	`, f.UserID, f.PlotID, (*string)(f.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.PermitApplication
	for rows.Next() {
		p, err := scanPermitDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// CountForPlot counts applications on plotID in any of statuses, ignoring
// excludeID.
func (r PermitRepository) CountForPlot(ctx context.Context, plotID, excludeID int64, statuses ...domain.PermitStatus) (int, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	var n int
	err := r.DB.Conn(ctx).QueryRow(ctx, `
		SELECT count(*)
		FROM umkm_locations
		WHERE master_location_id=$1 AND id<>$2 AND permit_status = ANY($3)
	`, plotID, excludeID, values).Scan(&n)
	return n, err
}

func (r PermitRepository) UpdateDetails(ctx context.Context, id int64, name, businessType string, status domain.PermitStatus) error {
	return execOne(ctx, r.DB, `
		UPDATE umkm_locations SET business_name=$2, business_type=$3, permit_status=$4, updated_at=now()
		WHERE id=$1
	`, id, name, businessType, string(status))
}

type SetPermitStatusParams struct {
	Status      domain.PermitStatus
	DecidedAt   *time.Time
	DateExpired *time.Time
}

func (r PermitRepository) SetStatus(ctx context.Context, id int64, p SetPermitStatusParams) error {
	return execOne(ctx, r.DB, `
		UPDATE umkm_locations
		SET permit_status=$2,
			decided_at=COALESCE($3, decided_at),
			date_expired=$4,
			updated_at=now()
		WHERE id=$1
	`, id, string(p.Status), p.DecidedAt, p.DateExpired)
}

func (r PermitRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.DB, `DELETE FROM umkm_locations WHERE id=$1`, id)
}

func scanPermit(row pgx.Row) (*domain.PermitApplication, error) {
	var (
		p      domain.PermitApplication
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PlotID, &p.BusinessName, &p.BusinessType, &status,
		&p.DateApplied, &p.DateExpired, &p.DecidedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PermitStatus(status)
	return &p, nil
}

func scanPermitDetail(row pgx.Row) (*domain.PermitApplication, error) {
	var (
		p          domain.PermitApplication
		plot       domain.Plot
		status     string
		plotStatus string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PlotID, &p.BusinessName, &p.BusinessType, &status,
		&p.DateApplied, &p.DateExpired, &p.DecidedAt, &p.CreatedAt, &p.UpdatedAt, &p.OwnerName,
		&plot.ID, &plot.Latitude, &plot.Longitude, &plotStatus, &plot.RestrictionReason, &plot.Label, &plot.CreatedAt, &plot.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PermitStatus(status)
	plot.Status = domain.PlotStatus(plotStatus)
	p.Plot = &plot
	return &p, nil
}
