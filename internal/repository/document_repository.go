package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

// DocumentRepository stores files attached to applications (submissions table).
type DocumentRepository struct {
	DB *db.Postgres
}

type CreateDocumentParams struct {
	ApplicationID int64
	Kind          domain.DocumentKind
	FileURL       string
	OriginalName  string
	UploadedBy    int64
}

func (r DocumentRepository) Create(ctx context.Context, p CreateDocumentParams) (*domain.Document, error) {
	var (
		d    domain.Document
		kind string
	)
	err := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO submissions (umkm_location_id, kind, file_url, original_name, uploaded_by, created_at)
		VALUES ($1,$2,$3,$4,$5, now())
		RETURNING id, umkm_location_id, kind, file_url, original_name, uploaded_by, created_at
	`, p.ApplicationID, string(p.Kind), p.FileURL, p.OriginalName, p.UploadedBy).Scan(
		&d.ID, &d.ApplicationID, &kind, &d.FileURL, &d.OriginalName, &d.UploadedBy, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Kind = domain.DocumentKind(kind)
	return &d, nil
}

func (r DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]domain.Document, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT id, umkm_location_id, kind, file_url, original_name, uploaded_by, created_at
		FROM submissions
		WHERE umkm_location_id=$1
		ORDER BY created_at ASC, id ASC
	`, applicationID)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

// ListByPlot returns the files of every application that targets plotID.
func (r DocumentRepository) ListByPlot(ctx context.Context, plotID int64) ([]domain.Document, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT s.id, s.umkm_location_id, s.kind, s.file_url, s.original_name, s.uploaded_by, s.created_at
		FROM submissions s
		JOIN umkm_locations ul ON ul.id = s.umkm_location_id
		WHERE ul.master_location_id=$1
		ORDER BY s.id ASC
	`, plotID)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]domain.Document, error) {
	defer rows.Close()

	var items []domain.Document
	for rows.Next() {
		var (
			d    domain.Document
			kind string
		)
		if err := rows.Scan(&d.ID, &d.ApplicationID, &kind, &d.FileURL, &d.OriginalName, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Kind = domain.DocumentKind(kind)
		items = append(items, d)
	}
	return items, rows.Err()
}
