package tg

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-portal/internal/models"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestMirror(t *testing.T) {
	s := &fakeSender{}
	b := NewBotWithSender(s)

	err := b.Mirror(context.Background(), 555, models.Notification{Type: models.NewMessage, Title: "New message", Message: "hi"})
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(555), s.sent[0].ChatID)
	assert.Equal(t, "💬 New message\nhi", s.sent[0].Text)
}

func TestMirror_PropagatesError(t *testing.T) {
	s := &fakeSender{err: errors.New("Bad Request: chat not found")}
	err := NewBotWithSender(s).Mirror(context.Background(), 1, models.Notification{Title: "x"})
	assert.Error(t, err)
}

func TestIsSystemErr(t *testing.T) {
	assert.True(t, isSystemErr(errors.New("Too Many Requests: 429")))
	assert.False(t, isSystemErr(errors.New("Bad Request: chat not found")))
	assert.False(t, isSystemErr(nil))
}
