package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/logging"
	"github.com/Spok95/school-portal/internal/metrics"
	"github.com/Spok95/school-portal/internal/models"
)

const notificationPage = 50

// notify writes an inbox row per recipient and mirrors it to Telegram when linked.
// Delivery is best effort: failures are logged, never returned.
func (a *App) notify(ctx context.Context, recipients []int64, n models.Notification) {
	for _, uid := range recipients {
		n.RecipientID = uid
		id, err := db.CreateNotification(ctx, a.db, n)
		if err != nil {
			logging.FromContext(ctx, a.log).Warn("notification insert failed", zap.Int64("recipient", uid), zap.String("type", string(n.Type)), zap.Error(err))
			continue
		}
		n.ID = id
		metrics.NotificationsSent.WithLabelValues(string(n.Type)).Inc()
		a.mirrorAsync(ctx, n)
	}
}

func (a *App) mirrorAsync(ctx context.Context, n models.Notification) {
	if a.mirror == nil {
		return
	}
	u, err := db.GetUserByID(ctx, a.db, n.RecipientID)
	if err != nil || u.TelegramChatID == nil {
		return
	}
	chatID := *u.TelegramChatID
	go func() {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.mirror.Mirror(c, chatID, n); err != nil {
			logging.FromContext(ctx, a.log).Warn("telegram mirror failed", zap.Int64("notification_id", n.ID), zap.Error(err))
		}
	}()
}

func (a *App) ListNotifications(ctx context.Context, id access.Identity) ([]models.Notification, error) {
	return db.ListNotifications(ctx, a.db, id.User(), notificationPage)
}

func (a *App) UnreadNotifications(ctx context.Context, id access.Identity) (int, error) {
	return db.UnreadNotificationCount(ctx, a.db, id.User())
}

// MarkNotificationRead is idempotent; another user's notification is not found.
func (a *App) MarkNotificationRead(ctx context.Context, id access.Identity, notificationID int64) error {
	return db.MarkNotificationRead(ctx, a.db, notificationID, id.User())
}

func (a *App) MarkAllNotificationsRead(ctx context.Context, id access.Identity) (int64, error) {
	return db.MarkAllNotificationsRead(ctx, a.db, id.User())
}

// LinkTelegram stores (or clears with nil) the caller's Telegram chat id for mirroring.
func (a *App) LinkTelegram(ctx context.Context, id access.Identity, chatID *int64) error {
	return db.SetTelegramChatID(ctx, a.db, id.User(), chatID)
}

// Broadcast notifies every active user of a role and returns how many were addressed.
func (a *App) Broadcast(ctx context.Context, role models.Role, n models.Notification) (int, error) {
	ids, err := db.ListUserIDsByRole(ctx, a.db, role)
	if err != nil {
		return 0, err
	}
	a.notify(ctx, ids, n)
	return len(ids), nil
}
