package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/school-portal/internal/models"
)

// DefaultBotMessages — стартовый набор ответов чат-бота.
var DefaultBotMessages = []models.BotMessage{
	{Category: "greeting", Keywords: "hello,hi,good morning,good afternoon", ResponseText: "Hello! How can I help you today?", Priority: 1},
	{Category: "grades", Keywords: "grade,grades,report card", ResponseText: "You can see your child's grades on the dashboard under Grades.", Priority: 5},
	{Category: "attendance", Keywords: "attendance,absent,late", ResponseText: "Attendance records are listed on your child's page for the last 30 days.", Priority: 5},
	{Category: "schedule", Keywords: "schedule,event,calendar", ResponseText: "Upcoming school events are listed under Events.", Priority: 3},
	{Category: "contact", Keywords: "contact,phone,email,teacher", ResponseText: "You can message your child's teacher from the Chat page.", Priority: 2},
}

// SeedBotMessages заполняет bot_messages, только если таблица пустая.
func SeedBotMessages(ctx context.Context, database *sql.DB) (int, error) {
	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bot_messages: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range DefaultBotMessages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bot_messages (category, keywords, response_text, priority, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
		`, m.Category, m.Keywords, m.ResponseText, m.Priority); err != nil {
			return 0, fmt.Errorf("insert bot_message %q: %w", m.Category, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(DefaultBotMessages), nil
}
