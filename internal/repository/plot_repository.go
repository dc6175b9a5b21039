package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

// PlotRepository stores map locations in master_locations.
type PlotRepository struct {
	DB *db.Postgres
}

type CreatePlotParams struct {
	Latitude          float64
	Longitude         float64
	Status            domain.PlotStatus
	RestrictionReason *string
	Label             *string
}

const plotColumns = `id, latitude, longitude, status, restriction_reason, label, created_at, updated_at`

func (r PlotRepository) Create(ctx context.Context, p CreatePlotParams) (*domain.Plot, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO master_locations (latitude, longitude, status, restriction_reason, label, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5, now(), now())
		RETURNING `+plotColumns,
		p.Latitude, p.Longitude, string(p.Status), p.RestrictionReason, p.Label)
	return scanPlot(row)
}

func (r PlotRepository) Get(ctx context.Context, id int64) (*domain.Plot, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+plotColumns+` FROM master_locations WHERE id=$1`, id)
	return notFound(scanPlot(row))
}

// GetForUpdate locks the plot row until the surrounding transaction ends.
func (r PlotRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Plot, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+plotColumns+` FROM master_locations WHERE id=$1 FOR UPDATE`, id)
	return notFound(scanPlot(row))
}

func (r PlotRepository) List(ctx context.Context, status *domain.PlotStatus) ([]domain.Plot, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+plotColumns+`
		FROM master_locations
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY id ASC
	`, (*string)(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func (r PlotRepository) Update(ctx context.Context, p domain.Plot) (*domain.Plot, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		UPDATE master_locations
		SET latitude=$2, longitude=$3, status=$4, restriction_reason=$5, label=$6, updated_at=now()
		WHERE id=$1
		RETURNING `+plotColumns,
		p.ID, p.Latitude, p.Longitude, string(p.Status), p.RestrictionReason, p.Label)
	return notFound(scanPlot(row))
}

func (r PlotRepository) SetStatus(ctx context.Context, id int64, status domain.PlotStatus) error {
	return execOne(ctx, r.DB, `
		UPDATE master_locations
		SET status=$2,
			restriction_reason=CASE WHEN $2 = 'restricted' THEN restriction_reason ELSE NULL END,
			updated_at=now()
		WHERE id=$1
	`, id, string(status))
}

func (r PlotRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.DB, `DELETE FROM master_locations WHERE id=$1`, id)
}

func scanPlot(row pgx.Row) (*domain.Plot, error) {
	var (
		p      domain.Plot
		status string
	)
	if err := row.Scan(&p.ID, &p.Latitude, &p.Longitude, &status, &p.RestrictionReason, &p.Label, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PlotStatus(status)
	return &p, nil
}
