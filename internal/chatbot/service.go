package chatbot

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/cache"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/logging"
	"github.com/Spok95/school-portal/internal/metrics"
	"github.com/Spok95/school-portal/internal/models"
)

const (
	activeKey = "chatbot:active"
	activeTTL = 5 * time.Minute
)

// Store is the persistence the responder needs.
type Store interface {
	ActiveMessages(ctx context.Context) ([]models.BotMessage, error)
	IncrementUsage(ctx context.Context, id int64) error
}

// SQLStore reads bot_messages through the db package.
type SQLStore struct{ DB *sql.DB }

func (s SQLStore) ActiveMessages(ctx context.Context) ([]models.BotMessage, error) {
	return db.ListActiveBotMessages(ctx, s.DB)
}

func (s SQLStore) IncrementUsage(ctx context.Context, id int64) error {
	return db.IncrementBotMessageUsage(ctx, s.DB, id)
}

type Reply struct {
	Text      string `json:"response"`
	MessageID int64  `json:"message_id,omitempty"`
	Matched   bool   `json:"matched"`
}

type Service struct {
	store Store
	cache cache.Cache
	log   *zap.Logger
}

// New builds a responder. c and log may be nil.
func New(store Store, c cache.Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: c, log: log}
}

// Respond answers query. An empty query is a validation error; a store failure
// while loading replies is returned, a failure to bump usage_count is only logged.
func (s *Service) Respond(ctx context.Context, query string) (Reply, error) {
	q := Normalize(query)
	if q == "" {
		return Reply{}, apperr.Invalid("query", "Query cannot be empty")
	}

	msgs, err := s.active(ctx)
	if err != nil {
		return Reply{}, err
	}

	m, ok := Match(msgs, q)
	if !ok {
		metrics.ChatbotQueries.WithLabelValues("fallback").Inc()
		return Reply{Text: Fallback}, nil
	}
	metrics.ChatbotQueries.WithLabelValues("match").Inc()

	if err := s.store.IncrementUsage(ctx, m.ID); err != nil {
		logging.FromContext(ctx, s.log).Warn("bot usage increment failed", zap.Int64("bot_message_id", m.ID), zap.Error(err))
	}
	return Reply{Text: m.ResponseText, MessageID: m.ID, Matched: true}, nil
}

// Invalidate drops the cached active set after admin edits.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeKey); err != nil {
		s.log.Warn("chatbot cache invalidate", zap.Error(err))
	}
}

func (s *Service) active(ctx context.Context) ([]models.BotMessage, error) {
	if s.cache != nil {
		var cached []models.BotMessage
		err := s.cache.Get(ctx, activeKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("chatbot cache get", zap.Error(err))
		}
	}

	msgs, err := s.store.ActiveMessages(ctx)
	if err != nil {
		return nil, err
	}
	// порядок проверки не должен зависеть от источника
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Priority != msgs[j].Priority {
			return msgs[i].Priority > msgs[j].Priority
		}
		return msgs[i].ID < msgs[j].ID
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeKey, msgs, activeTTL); err != nil {
			s.log.Warn("chatbot cache set", zap.Error(err))
		}
	}
	return msgs, nil
}
