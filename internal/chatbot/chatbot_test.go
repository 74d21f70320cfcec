package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/cache"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

type fakeStore struct {
	msgs    []models.BotMessage
	loads   int
	bumped  []int64
	bumpErr error
	loadErr error
}

func (f *fakeStore) ActiveMessages(context.Context) ([]models.BotMessage, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]models.BotMessage, len(f.msgs))
	copy(out, f.msgs)
	return out, nil
}

func (f *fakeStore) IncrementUsage(_ context.Context, id int64) error {
	f.bumped = append(f.bumped, id)
	return f.bumpErr
}

func seeded() *fakeStore {
	return &fakeStore{msgs: []models.BotMessage{
		{ID: 1, Keywords: "hello", ResponseText: "Hi there", Priority: 1, IsActive: true},
		{ID: 2, Keywords: "grade, grades ,", ResponseText: "Grades info", Priority: 5, IsActive: true},
	}}
}

func TestRespond_PriorityWins(t *testing.T) {
	st := seeded()
	svc := New(st, nil, nil)

	r, err := svc.Respond(context.Background(), "  Hello, what is my GRADE?  ")
	require.NoError(t, err)
	assert.Equal(t, "Grades info", r.Text)
	assert.True(t, r.Matched)
	assert.Equal(t, []int64{2}, st.bumped)
}

func TestRespond_Fallback(t *testing.T) {
	st := seeded()
	r, err := New(st, nil, nil).Respond(context.Background(), "weather tomorrow")
	require.NoError(t, err)
	assert.Equal(t, Fallback, r.Text)
	assert.False(t, r.Matched)
	assert.Empty(t, st.bumped)
}

func TestRespond_EmptyQuery(t *testing.T) {
	_, err := New(seeded(), nil, nil).Respond(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "query: Query cannot be empty", err.Error())
}

func TestRespond_UsageFailureIsNotReturned(t *testing.T) {
	st := seeded()
	st.bumpErr = errors.New("db down")
	r, err := New(st, nil, nil).Respond(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", r.Text)
}

func TestRespond_UsageFailureLogsRequestID(t *testing.T) {
	st := seeded()
	st.bumpErr = errors.New("db down")
	core, logs := observer.New(zap.WarnLevel)
	ctx := ctxutil.WithRequestID(context.Background(), "req-42")

	_, err := New(st, nil, zap.New(core)).Respond(ctx, "hello")
	require.NoError(t, err)

	entries := logs.FilterMessage("bot usage increment failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
}

func TestRespond_LoadFailure(t *testing.T) {
	st := seeded()
	st.loadErr = errors.New("db down")
	_, err := New(st, nil, nil).Respond(context.Background(), "hello")
	assert.Error(t, err)
}

func TestRespond_TieBrokenByID(t *testing.T) {
	st := &fakeStore{msgs: []models.BotMessage{
		{ID: 9, Keywords: "late", ResponseText: "nine", Priority: 3},
		{ID: 4, Keywords: "late", ResponseText: "four", Priority: 3},
	}}
	r, err := New(st, nil, nil).Respond(context.Background(), "late again")
	require.NoError(t, err)
	assert.Equal(t, "four", r.Text)
}

func TestRespond_UsesCache(t *testing.T) {
	st := seeded()
	svc := New(st, cache.NewMemory(), nil)
	ctx := context.Background()

	_, err := svc.Respond(ctx, "hello")
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, st.loads)

	svc.Invalidate(ctx)
	_, err = svc.Respond(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, st.loads)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"report card", "grade"}, Keywords(" Report Card ,, GRADE ,"))
	assert.Empty(t, Keywords(""))
}

func TestMatch_EmptyKeywordsNeverMatch(t *testing.T) {
	_, ok := Match([]models.BotMessage{{ID: 1, Keywords: " , ,"}}, "anything")
	assert.False(t, ok)
}
