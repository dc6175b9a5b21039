package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

type DeletionRequestRepository struct {
	DB *db.Postgres
}

type CreateDeletionRequestParams struct {
	ApplicationID  int64
	UserID         int64
	Reason         string
	PreviousStatus domain.PermitStatus
}

const deletionColumns = `id, umkm_location_id, user_id, reason, previous_status, status, decided_by, created_at, decided_at`

func (r DeletionRequestRepository) Create(ctx context.Context, p CreateDeletionRequestParams) (*domain.DeletionRequest, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO deletion_requests (umkm_location_id, user_id, reason, previous_status, status, created_at)
		VALUES ($1,$2,$3,$4,$5, now())
		RETURNING `+deletionColumns,
		p.ApplicationID, p.UserID, p.Reason, string(p.PreviousStatus), string(domain.DeletionPending))
	return scanDeletionRequest(row)
}

func (r DeletionRequestRepository) GetForUpdate(ctx context.Context, id int64) (*domain.DeletionRequest, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+deletionColumns+` FROM deletion_requests WHERE id=$1 FOR UPDATE`, id)
	return notFound(scanDeletionRequest(row))
}

func (r DeletionRequestRepository) List(ctx context.Context, status *domain.DeletionRequestStatus) ([]domain.DeletionRequest, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+deletionColumns+`
		FROM deletion_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT 500
	`, (*string)(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DeletionRequest
	for rows.Next() {
		d, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

func (r DeletionRequestRepository) Decide(ctx context.Context, id int64, status domain.DeletionRequestStatus, adminID int64, at time.Time) error {
	return execOne(ctx, r.DB, `
		UPDATE deletion_requests SET status=$2, decided_by=$3, decided_at=$4
		WHERE id=$1 AND status='pending'
	`, id, string(status), adminID, at)
}

// CloseForPlot approves the pending requests of every application on plotID,
// which is about to be removed along with them.
func (r DeletionRequestRepository) CloseForPlot(ctx context.Context, plotID, adminID int64, at time.Time) (int64, error) {
	tag, err := r.DB.Conn(ctx).Exec(ctx, `
		UPDATE deletion_requests dr SET status='approved', decided_by=$2, decided_at=$3
		FROM umkm_locations ul
		WHERE dr.umkm_location_id = ul.id AND ul.master_location_id=$1 AND dr.status='pending'
	`, plotID, adminID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDeletionRequest(row pgx.Row) (*domain.DeletionRequest, error) {
	var (
		d              domain.DeletionRequest
		applicationID  pgtype.Int8
		previousStatus string
		status         string
	)
	if err := row.Scan(&d.ID, &applicationID, &d.UserID, &d.Reason, &previousStatus, &status, &d.DecidedBy, &d.CreatedAt, &d.DecidedAt); err != nil {
		return nil, err
	}
	if applicationID.Valid {
		d.ApplicationID = applicationID.Int64
	}
	d.PreviousStatus = domain.PermitStatus(previousStatus)
	d.Status = domain.DeletionRequestStatus(status)
	return &d, nil
}
