package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
)

var ErrBackupDisabled = errors.New("backup service is not configured")

// TriggerBackup asks the sidecar for a fresh dump and returns its path.
func (a *App) TriggerBackup(ctx context.Context, id access.Identity) (string, error) {
	adm, err := access.RequireAdmin(id)
	if err != nil {
		return "", err
	}
	if a.backup == nil {
		return "", ErrBackupDisabled
	}
	path, err := a.backup.Trigger(ctx)
	if err != nil {
		return "", err
	}
	a.log.Info("backup created", zap.Int64("admin_user_id", adm.UserID), zap.String("path", path))
	return path, nil
}

// RestoreBackup restores the latest dump over the live database.
func (a *App) RestoreBackup(ctx context.Context, id access.Identity) (string, error) {
	adm, err := access.RequireAdmin(id)
	if err != nil {
		return "", err
	}
	if a.backup == nil {
		return "", ErrBackupDisabled
	}
	path, err := a.backup.RestoreLatest(ctx)
	if err != nil {
		return "", err
	}
	a.log.Warn("database restored", zap.Int64("admin_user_id", adm.UserID), zap.String("path", path))
	a.bot.Invalidate(ctx)
	return path, nil
}
