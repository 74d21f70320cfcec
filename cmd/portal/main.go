package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/app"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/backupclient"
	"github.com/Spok95/school-portal/internal/cache"
	"github.com/Spok95/school-portal/internal/chatbot"
	"github.com/Spok95/school-portal/internal/config"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/jobs"
	"github.com/Spok95/school-portal/internal/logging"
	"github.com/Spok95/school-portal/internal/observability"
	"github.com/Spok95/school-portal/internal/storage"
	"github.com/Spok95/school-portal/internal/tg"
	"github.com/Spok95/school-portal/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if n, err := db.SeedBotMessages(ctx, database); err != nil {
		logger.Warn("seed bot messages", zap.Error(err))
	} else if n > 0 {
		logger.Info("bot messages seeded", zap.Int("count", n))
	}

	// кэш ответов чат-бота: Redis, если задан, иначе в памяти процесса
	var botCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			botCache = rc
		}
	}

	var store storage.Store = storage.Nop{}
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3(ctx, cfg.Storage, logger.Named("storage"))
		if err != nil {
			logger.Fatal("s3 storage", zap.Error(err))
		}
		store = s3
	}

	var mirror tg.Mirror
	if cfg.BotToken != "" {
		bot, err := tg.NewBot(cfg.BotToken)
		if err != nil {
			logger.Warn("telegram mirror disabled", zap.Error(err))
		} else {
			mirror = bot
		}
	}

	var backup app.Backup
	if cfg.BackupURL != "" {
		backup = backupclient.New(cfg.BackupURL)
	}

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	portal := app.New(app.Deps{
		DB:       database,
		Log:      logger.Named("app"),
		Tokens:   tokens,
		Chatbot:  chatbot.New(chatbot.SQLStore{DB: database}, botCache, logger.Named("chatbot")),
		Storage:  store,
		Mirror:   mirror,
		Backup:   backup,
		Location: cfg.Location,
	})

	runner := jobs.New(ctx, logger.Named("jobs"))
	runner.Every(30*time.Second, "db_ping", func(ctx context.Context) error {
		return db.Ping(ctx, database)
	})
	runner.Daily(7, cfg.Location, "school_year_notice", jobs.NewSchoolYearNotifier(portal, cfg.Location).Run)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: web.NewRouter(web.Deps{
			App:    portal,
			DB:     database,
			Tokens: tokens,
			Log:    logger.Named("http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	runner.Wait()
}
