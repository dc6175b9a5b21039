package repository

import (
	"context"

	"lokasi-umkm-backend/internal/db"
)

// FCMRepository keeps the device tokens used for push delivery.
type FCMRepository struct {
	DB *db.Postgres
}

type RegisterTokenInput struct {
	UserID   int64
	Token    string
	Platform string
}

func (r FCMRepository) Register(ctx context.Context, in RegisterTokenInput) error {
	_, err := r.DB.Conn(ctx).Exec(ctx, `
		INSERT INTO fcm_tokens (user_id, token, platform, created_at)
		VALUES ($1,$2,$3, now())
		ON CONFLICT (token) DO UPDATE SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform
	`, in.UserID, in.Token, in.Platform)
	return err
}

func (r FCMRepository) TokensForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `SELECT token FROM fcm_tokens WHERE user_id=$1 ORDER BY created_at DESC LIMIT 20`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Remove drops tokens FCM reported as unregistered.
func (r FCMRepository) Remove(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.DB.Conn(ctx).Exec(ctx, `DELETE FROM fcm_tokens WHERE token = ANY($1)`, tokens)
	return err
}
