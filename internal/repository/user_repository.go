package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

type UserRepository struct {
	DB *db.Postgres
}

type CreateUserParams struct {
	Name         string
	Email        string
	NIK          string
	Phone        *string
	Role         domain.UserRole
	PasswordHash string
}

const userColumns = `id, email, password_hash, role, is_active, nama, nik, phone, photo_url, created_at, updated_at`

func (r UserRepository) Create(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role, is_active, nama, nik, phone, created_at, updated_at)
		VALUES ($1,$2,$3,true,$4,$5,$6, now(), now())
		RETURNING ` + userColumns
	row := r.DB.Conn(ctx).QueryRow(ctx, query, p.Email, p.PasswordHash, string(p.Role), p.Name, p.NIK, p.Phone)
	return scanUser(row)
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
	return notFound(scanUser(row))
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return notFound(scanUser(row))
}

func (r UserRepository) List(ctx context.Context, role *domain.UserRole, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, (*string)(role), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

// ActiveAdminIDs lists the administrators that should receive operational
// notifications.
func (r UserRepository) ActiveAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `SELECT id FROM users WHERE role='admin' AND is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r UserRepository) UpdateProfile(ctx context.Context, id int64, name string, phone *string) (*domain.User, error) {
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		UPDATE users SET nama=$2, phone=$3, updated_at=now()
		WHERE id=$1
		RETURNING `+userColumns, id, name, phone)
	return notFound(scanUser(row))
}

func (r UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return execOne(ctx, r.DB, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, hash)
}

func (r UserRepository) UpdatePhoto(ctx context.Context, id int64, url string) error {
	return execOne(ctx, r.DB, `UPDATE users SET photo_url=$2, updated_at=now() WHERE id=$1`, id, url)
}

func (r UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return execOne(ctx, r.DB, `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.Name,
		&u.NIK,
		&u.Phone,
		&u.PhotoURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return &u, nil
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsDuplicate detects unique constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}

// DuplicateConstraint returns the unique constraint an insert violated.
func DuplicateConstraint(err error) string {
	if !db.IsUniqueViolation(err) {
		return ""
	}
	return db.ConstraintName(err)
}

func notFound[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func execOne(ctx context.Context, pg *db.Postgres, sql string, args ...any) error {
	tag, err := pg.Conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
