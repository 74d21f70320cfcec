// Package app implements the portal's operations. Every operation takes the
// caller's Identity explicitly and returns apperr sentinels for the HTTP layer.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/chatbot"
	"github.com/Spok95/school-portal/internal/logging"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
	"github.com/Spok95/school-portal/internal/storage"
	"github.com/Spok95/school-portal/internal/tg"
)

type Deps struct {
	DB       *sql.DB
	Log      *zap.Logger
	Tokens   *auth.Issuer
	Chatbot  *chatbot.Service
	Storage  storage.Store
	Mirror   tg.Mirror // nil — без зеркалирования
	Backup   Backup    // nil — бэкапы недоступны
	Location *time.Location
}

// Backup is the database dump sidecar.
type Backup interface {
	Trigger(ctx context.Context) (string, error)
	RestoreLatest(ctx context.Context) (string, error)
}

type App struct {
	db       *sql.DB
	log      *zap.Logger
	gate     *access.Gate
	tokens   *auth.Issuer
	bot      *chatbot.Service
	store    storage.Store
	mirror   tg.Mirror
	backup   Backup
	loc      *time.Location
	validate *validator.Validate
	now      func() time.Time
}

func New(d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Storage == nil {
		d.Storage = storage.Nop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Chatbot == nil {
		d.Chatbot = chatbot.New(chatbot.SQLStore{DB: d.DB}, nil, d.Log.Named("chatbot"))
	}
	return &App{
		db:       d.DB,
		log:      d.Log,
		gate:     access.NewGate(access.SQLScope{DB: d.DB}),
		tokens:   d.Tokens,
		bot:      d.Chatbot,
		store:    d.Storage,
		mirror:   d.Mirror,
		backup:   d.Backup,
		loc:      d.Location,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Gate exposes the access gate for the HTTP layer.
func (a *App) Gate() *access.Gate { return a.gate }

func (a *App) today() time.Time {
	y, m, d := a.now().In(a.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// currentQuarter is the school quarter of today in the school's time zone.
func (a *App) currentQuarter() models.Quarter {
	return models.Quarter(stats.Quarter(a.now().In(a.loc)))
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs struct validation and maps the first failure to a ValidationError.
func (a *App) check(in any) error {
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	return apperr.Invalid(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}

// attachmentURL resolves a stored ref; failures are logged and yield "".
func (a *App) attachmentURL(ctx context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := a.store.URL(ctx, ref)
	if err != nil {
		a.log.Warn("attachment url", zap.String("ref", ref), zap.Error(err))
		return ""
	}
	return u
}

// dropObjects removes stored objects a row no longer references; failures are logged.
func (a *App) dropObjects(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			continue
		}
		if err := a.store.Delete(ctx, ref); err != nil {
			logging.FromContext(ctx, a.log).Warn("attachment delete", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// replaced returns old if the row now points elsewhere.
func replaced(old, cur string) string {
	if old != cur {
		return old
	}
	return ""
}
