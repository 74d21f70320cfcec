package observability

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/school-portal/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureRequestErr отправляет ошибку с тегами запроса (метод, маршрут, id запроса из ctx).
func CaptureRequestErr(ctx context.Context, err error, method, route string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("http.method", method)
		scope.SetTag("http.route", route)
		if id, ok := ctxutil.RequestID(ctx); ok {
			scope.SetTag("request_id", id)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value.
func CapturePanic(v any) {
	switch x := v.(type) {
	case error:
		sentry.CaptureException(x)
	case string:
		sentry.CaptureException(errors.New(x))
	default:
		sentry.CurrentHub().Recover(v)
	}
}
