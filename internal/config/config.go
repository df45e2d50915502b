package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort       string
	PostgresDSN    string
	MigrationsDir  string
	JWTSecret      string
	RedisAddr      string
	MailerBaseURL  string
	MailerAPIKey   string
	MailerFrom     string
	MailerTimeout  time.Duration
	ReminderCron   string
	ReminderMinAge time.Duration
	AccessTokenTTL time.Duration
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxIdle  time.Duration
	DBConnMaxLife  time.Duration
	RequestTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		PostgresDSN:    getEnv("DATABASE_URL", ""),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		MailerBaseURL:  getEnv("MAILER_BASE_URL", ""),
		MailerAPIKey:   getEnv("MAILER_API_KEY", ""),
		MailerFrom:     getEnv("MAILER_FROM", "no-reply@studieo.app"),
		MailerTimeout:  getDuration("MAILER_TIMEOUT", 5*time.Second),
		ReminderCron:   getEnv("REMINDER_CRON", "0 9 * * *"),
		ReminderMinAge: getDuration("REMINDER_MIN_AGE", 48*time.Hour),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:  getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:  getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
	}

	if cfg.PostgresDSN == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.MailerBaseURL == "" {
		log.Fatal("MAILER_BASE_URL is required")
	}
	if cfg.MailerAPIKey == "" {
		log.Fatal("MAILER_API_KEY is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
