package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Spok95/school-portal/internal/ctxutil"
)

type Log struct {
	Base   *zap.Logger
	Sugar  *zap.SugaredLogger
	Level  zap.AtomicLevel
	Closer func()
}

// Init собирает zap-логгер: prod — JSON, иначе консольный dev-формат.
func Init(level, env string) (*Log, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if strings.ToLower(env) == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return wrap(base, lvl), nil
}

// Nop — логгер для тестов и утилит.
func Nop() *Log {
	return wrap(zap.NewNop(), zap.NewAtomicLevelAt(zap.InfoLevel))
}

func wrap(base *zap.Logger, lvl zap.AtomicLevel) *Log {
	return &Log{
		Base:   base,
		Sugar:  base.Sugar(),
		Level:  lvl,
		Closer: func() { _ = base.Sync() },
	}
}

// Named returns a child logger for one component.
func (l *Log) Named(component string) *zap.Logger {
	return l.Base.Named(component)
}

// FromContext adds the request id carried by ctx, if any.
func FromContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if id, ok := ctxutil.RequestID(ctx); ok {
		return log.With(zap.String("request_id", id))
	}
	return log
}
