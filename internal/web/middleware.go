package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/metrics"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/observability"
)

const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
	ctxLogger    = "logger"

	headerRequestID = "X-Request-ID"
	bearerPrefix    = "Bearer "
)

// Resolver turns token claims into an Identity.
type Resolver func(ctx context.Context, userID int64, role models.Role) (access.Identity, error)

// RequestID keeps an incoming X-Request-ID or assigns a fresh uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), id))
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// Logger logs one line per request with a level chosen by status.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With(
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(ctxLogger, reqLog)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		switch {
		case status >= 500:
			reqLog.Error("http request", fields...)
		case status >= 400:
			reqLog.Warn("http request", fields...)
		default:
			reqLog.Info("http request", fields...)
		}
	}
}

// Metrics records request count and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Recovery turns a panic into a 500 and reports it to Sentry.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if v := recover(); v != nil {
				log.Error("panic recovered",
					zap.String("request_id", c.GetString(ctxRequestID)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", v),
					zap.Stack("stacktrace"),
				)
				observability.CapturePanic(v)
				metrics.HandlerErrors.Inc()
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// Auth validates the bearer token and stores the caller's Identity.
func Auth(tokens *auth.Issuer, resolve Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, bearerPrefix) || strings.TrimSpace(h[len(bearerPrefix):]) == "" {
			abortUnauthenticated(c, "missing bearer token")
			return
		}
		claims, err := tokens.Validate(strings.TrimSpace(h[len(bearerPrefix):]))
		if err != nil {
			abortUnauthenticated(c, err.Error())
			return
		}
		id, err := resolve(c.Request.Context(), claims.UserID, claims.Role)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxIdentity, id)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// identity is set by Auth on every /api route except login.
func identity(c *gin.Context) access.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		panic(fmt.Sprintf("identity missing on %s", c.FullPath()))
	}
	return v.(access.Identity)
}

func reqLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ctxLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
