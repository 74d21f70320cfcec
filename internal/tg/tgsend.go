// Package tg mirrors in-app notifications to linked Telegram chats.
package tg

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/observability"
)

// Mirror delivers a copy of a notification outside the inbox.
type Mirror interface {
	Mirror(ctx context.Context, chatID int64, n models.Notification) error
}

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "429") || strings.Contains(s, "502") || strings.Contains(s, "503") || strings.Contains(s, "timeout") {
		return true
	}
	return false
}

// Sender is the subset of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api   Sender
	limit *ChatLimiter
}

// NewBot logs in with token.
func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return NewBotWithSender(api), nil
}

func NewBotWithSender(s Sender) *Bot {
	return &Bot{api: s, limit: NewChatLimiter()}
}

func (b *Bot) Mirror(ctx context.Context, chatID int64, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := b.limit.lock(chatID)
	defer unlock()

	msg := tgbotapi.NewMessage(chatID, Format(n))
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return err
}

// Format renders a notification as plain text.
func Format(n models.Notification) string {
	var sb strings.Builder
	sb.WriteString(icon(n.Type))
	sb.WriteString(" ")
	sb.WriteString(n.Title)
	if n.Message != "" {
		sb.WriteString("\n")
		sb.WriteString(n.Message)
	}
	return sb.String()
}

func icon(t models.NotificationType) string {
	switch t {
	case models.GradePosted:
		return "📘"
	case models.AttendanceAlert:
		return "⚠️"
	case models.NewAnnouncement:
		return "📢"
	case models.NewEvent:
		return "📅"
	case models.NewMessage:
		return "💬"
	case models.PaymentReminder:
		return "💳"
	}
	return "🔔"
}

// ChatLimiter сериализует отправку в один чат.
type ChatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *ChatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[chatID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[chatID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}
