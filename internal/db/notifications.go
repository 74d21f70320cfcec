package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

func CreateNotification(ctx context.Context, database *sql.DB, n models.Notification) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, notification_type, title, message, link_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, n.RecipientID, string(n.Type), n.Title, n.Message, n.LinkURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// ListNotifications — уведомления получателя, новые сверху.
func ListNotifications(ctx context.Context, database *sql.DB, recipientID int64, limit int) ([]models.Notification, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, recipient_id, notification_type, title, message, link_url, is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.LinkURL, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func UnreadNotificationCount(ctx context.Context, database *sql.DB, recipientID int64) (int, error) {
	return count(ctx, database, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read
	`, recipientID)
}

// MarkNotificationRead отмечает уведомление прочитанным. Чужое уведомление — ErrNotFound,
// повторная отметка не меняет read_at.
func MarkNotificationRead(ctx context.Context, database *sql.DB, id, recipientID int64) error {
	ok, err := exists(ctx, database, `
		SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND recipient_id = $2)
	`, id, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err = database.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE
	`, id, recipientID)
	return err
}

func MarkAllNotificationsRead(ctx context.Context, database *sql.DB, recipientID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND is_read = FALSE
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
