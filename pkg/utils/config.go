package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Email     EmailConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Booking   BookingConfig
	Worker    WorkerConfig
	Retry     RetryConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	BaseURL         string
	FrontendURL     string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type SessionConfig struct {
	ExpiryHours int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type BookingConfig struct {
	// Event types that require a tasting session before the event is confirmed.
	TastingEventTypes  []string
	TastingLeadDays    int
	DefaultTastingTime string
}

type WorkerConfig struct {
	ReconcileInterval time.Duration
}

type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

// BootstrapConfig describes the admin account created on first start.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "catering-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("REQUEST_TIMEOUT", "15s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("RABBITMQ_EXCHANGE", "catering.events")
	viper.SetDefault("TASTING_EVENT_TYPES", "wedding,debut")
	viper.SetDefault("TASTING_LEAD_DAYS", 14)
	viper.SetDefault("TASTING_DEFAULT_TIME", "10:00 AM")
	viper.SetDefault("RECONCILE_INTERVAL", "5m")
	viper.SetDefault("RETRY_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "100ms")
	viper.SetDefault("ADMIN_NAME", "Administrator")

	// .env is optional, the environment always wins
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			BaseURL:         strings.TrimRight(viper.GetString("BASE_URL"), "/"),
			FrontendURL:     strings.TrimRight(viper.GetString("FRONTEND_URL"), "/"),
			CORSOrigins:     splitCSV(viper.GetString("CORS_ORIGINS")),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
			RequestTimeout:  viper.GetDuration("REQUEST_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Redis: RedisConfig{
			Addr:           viper.GetString("REDIS_ADDR"),
			Password:       viper.GetString("REDIS_PASSWORD"),
			DB:             viper.GetInt("REDIS_DB"),
			IdempotencyTTL: viper.GetDuration("IDEMPOTENCY_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("RABBITMQ_EXCHANGE"),
		},
		Booking: BookingConfig{
			TastingEventTypes:  splitCSV(viper.GetString("TASTING_EVENT_TYPES")),
			TastingLeadDays:    viper.GetInt("TASTING_LEAD_DAYS"),
			DefaultTastingTime: viper.GetString("TASTING_DEFAULT_TIME"),
		},
		Worker: WorkerConfig{
			ReconcileInterval: viper.GetDuration("RECONCILE_INTERVAL"),
		},
		Retry: RetryConfig{
			Attempts:  viper.GetInt("RETRY_ATTEMPTS"),
			BaseDelay: viper.GetDuration("RETRY_BASE_DELAY"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    viper.GetString("ADMIN_EMAIL"),
			AdminPassword: viper.GetString("ADMIN_PASSWORD"),
			AdminName:     viper.GetString("ADMIN_NAME"),
		},
	}

	return config, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
