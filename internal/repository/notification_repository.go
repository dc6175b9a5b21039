package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"lokasi-umkm-backend/internal/db"
	"lokasi-umkm-backend/internal/domain"
)

type NotificationRepository struct {
	DB *db.Postgres
}

type CreateNotificationInput struct {
	UserID      int64
	Type        domain.NotificationType
	Title       string
	Message     string
	Link        *string
	ReferenceID *int64
	Created     time.Time
}

const notificationColumns = `id, user_id, type, title, message, link, is_read, reference_id, created_at`

func (r NotificationRepository) Create(ctx context.Context, in CreateNotificationInput) (*domain.Notification, error) {
	createdAt := in.Created
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, link, is_read, reference_id, created_at)
		VALUES ($1,$2,$3,$4,$5,false,$6,$7)
		RETURNING `+notificationColumns,
		in.UserID, string(in.Type), in.Title, in.Message, in.Link, in.ReferenceID, createdAt)
	return scanNotification(row)
}

func (r NotificationRepository) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

func (r NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.DB.Conn(ctx).QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id=$1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

// MarkRead flags a notification owned by userID as read.
func (r NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.DB, `UPDATE notifications SET is_read=true WHERE id=$1 AND user_id=$2`, id, userID)
}

func (r NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.DB.Conn(ctx).Exec(ctx, `UPDATE notifications SET is_read=true WHERE user_id=$1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r NotificationRepository) Delete(ctx context.Context, userID, id int64) error {
	return execOne(ctx, r.DB, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n   domain.Notification
		typ string
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.ReferenceID, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	return &n, nil
}
