package app

import (
	"context"
	"strings"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/chatbot"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
)

// Ask answers a chatbot query; any authenticated role may ask.
func (a *App) Ask(ctx context.Context, _ access.Identity, query string) (chatbot.Reply, error) {
	return a.bot.Respond(ctx, query)
}

type BotMessageInput struct {
	Category     string `json:"category" validate:"required,max=50"`
	Keywords     string `json:"keywords" validate:"required,max=500"`
	ResponseText string `json:"response_text" validate:"required"`
	Priority     int    `json:"priority" validate:"gte=0,lte=1000"`
	IsActive     *bool  `json:"is_active"`
}

func (in BotMessageInput) apply(m *models.BotMessage) {
	m.Category = strings.TrimSpace(in.Category)
	m.Keywords = strings.Join(chatbot.Keywords(in.Keywords), ",")
	m.ResponseText = strings.TrimSpace(in.ResponseText)
	m.Priority = in.Priority
	m.IsActive = in.IsActive == nil || *in.IsActive
}

func (a *App) checkBotMessage(in BotMessageInput) error {
	if err := a.check(in); err != nil {
		return err
	}
	if len(chatbot.Keywords(in.Keywords)) == 0 {
		return apperr.Invalid("keywords", "At least one keyword is required")
	}
	return nil
}

func (a *App) ListBotMessages(ctx context.Context, id access.Identity) ([]models.BotMessage, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	return db.ListBotMessages(ctx, a.db)
}

func (a *App) CreateBotMessage(ctx context.Context, id access.Identity, in BotMessageInput) (*models.BotMessage, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	if err := a.checkBotMessage(in); err != nil {
		return nil, err
	}
	var m models.BotMessage
	in.apply(&m)
	var err error
	if m.ID, err = db.CreateBotMessage(ctx, a.db, m); err != nil {
		return nil, err
	}
	a.bot.Invalidate(ctx)
	return &m, nil
}

func (a *App) UpdateBotMessage(ctx context.Context, id access.Identity, messageID int64, in BotMessageInput) (*models.BotMessage, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	if err := a.checkBotMessage(in); err != nil {
		return nil, err
	}
	m, err := db.GetBotMessage(ctx, a.db, messageID)
	if err != nil {
		return nil, err
	}
	in.apply(m)
	if err := db.UpdateBotMessage(ctx, a.db, *m); err != nil {
		return nil, err
	}
	a.bot.Invalidate(ctx)
	return m, nil
}

func (a *App) DeleteBotMessage(ctx context.Context, id access.Identity, messageID int64) error {
	if _, err := access.RequireAdmin(id); err != nil {
		return err
	}
	if err := db.DeleteBotMessage(ctx, a.db, messageID); err != nil {
		return err
	}
	a.bot.Invalidate(ctx)
	return nil
}
