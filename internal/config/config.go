package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	Location    *time.Location
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string
	Release     string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Storage StorageConfig

	BotToken string // пустой — зеркалирование уведомлений в Telegram выключено

	BackupURL string
}

type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// Enabled reports whether S3 credentials were provided.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tz := getenv("TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	ttl, err := parseDuration("JWT_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	presign, err := parseDuration("S3_PRESIGN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:   dbURL,
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		Location:      loc,
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Env:           getenv("ENV", "dev"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Release:       getenv("RELEASE", "dev"),
		JWTSecret:     secret,
		JWTIssuer:     getenv("JWT_ISSUER", "school-portal"),
		JWTTTL:        ttl,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		Storage: StorageConfig{
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			Region:       getenv("S3_REGION", "us-east-1"),
			Bucket:       os.Getenv("S3_BUCKET"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			UsePathStyle: parseBool(os.Getenv("S3_PATH_STYLE")),
			PresignTTL:   presign,
		},
		BotToken:  os.Getenv("BOT_TOKEN"),
		BackupURL: os.Getenv("BACKUPCTL_URL"),
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func parseInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
