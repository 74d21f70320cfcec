package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const botMessageColumns = `id, category, keywords, response_text, priority, usage_count, is_active, created_at, updated_at`

func scanBotMessage(row interface{ Scan(...any) error }) (*models.BotMessage, error) {
	var m models.BotMessage
	if err := row.Scan(&m.ID, &m.Category, &m.Keywords, &m.ResponseText, &m.Priority, &m.UsageCount, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListActiveBotMessages — активные ответы в порядке проверки: priority desc, затем id.
func ListActiveBotMessages(ctx context.Context, database *sql.DB) ([]models.BotMessage, error) {
	return listBotMessages(ctx, database, `
		SELECT `+botMessageColumns+` FROM bot_messages WHERE is_active ORDER BY priority DESC, id ASC
	`)
}

func ListBotMessages(ctx context.Context, database *sql.DB) ([]models.BotMessage, error) {
	return listBotMessages(ctx, database, `
		SELECT `+botMessageColumns+` FROM bot_messages ORDER BY category, priority DESC, id
	`)
}

func listBotMessages(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.BotMessage, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.BotMessage
	for rows.Next() {
		m, err := scanBotMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func GetBotMessage(ctx context.Context, database *sql.DB, id int64) (*models.BotMessage, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanBotMessage(database.QueryRowContext(ctx, `SELECT `+botMessageColumns+` FROM bot_messages WHERE id = $1`, id))
}

func CreateBotMessage(ctx context.Context, database *sql.DB, m models.BotMessage) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO bot_messages (category, keywords, response_text, priority, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, m.Category, m.Keywords, m.ResponseText, m.Priority, m.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bot message: %w", err)
	}
	return id, nil
}

func UpdateBotMessage(ctx context.Context, database *sql.DB, m models.BotMessage) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE bot_messages
		SET category = $1, keywords = $2, response_text = $3, priority = $4, is_active = $5, updated_at = now()
		WHERE id = $6
	`, m.Category, m.Keywords, m.ResponseText, m.Priority, m.IsActive, m.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func DeleteBotMessage(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM bot_messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func IncrementBotMessageUsage(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err := database.ExecContext(ctx, `UPDATE bot_messages SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

func CountActiveBotMessages(ctx context.Context, database *sql.DB) (int, error) {
	return count(ctx, database, `SELECT COUNT(*) FROM bot_messages WHERE is_active`)
}
