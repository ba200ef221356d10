// Package config loads service configuration from the environment,
// with a .env file picked up in development.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root service configuration
type Config struct {
	Environment string
	LogLevel    string

	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	GoldPrice  GoldPriceConfig
	Email      EmailConfig
	Settlement SettlementConfig
	KYC        KYCConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	Issuer        string
	ExpiryMinutes int
}

type GoldPriceConfig struct {
	BaseURL string
	APIKey  string
}

type EmailConfig struct {
	Enabled   bool
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	ReplyTo   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
}

type SettlementConfig struct {
	Enabled bool
	// Cron expression for the settlement sweep.
	Schedule string
	// Minutes a deposit must age before it is confirmed.
	DepositHoldMinutes int
	BatchSize          int
}

type KYCConfig struct {
	DocumentDir string
}

type TracingConfig struct {
	Enabled      bool
	CollectorURL string
}

// Load reads configuration from environment variables. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)

	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 30)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ISSUER", "aurum-service")
	v.SetDefault("JWT_EXPIRY_MINUTES", 60)

	v.SetDefault("GOLD_PRICE_BASE_URL", "https://www.goldapi.io")

	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("EMAIL_PROVIDER", "mailpit")
	v.SetDefault("EMAIL_FROM_EMAIL", "no-reply@aurum.local")
	v.SetDefault("EMAIL_FROM_NAME", "Aurum")
	v.SetDefault("EMAIL_SMTP_PORT", 1025)

	v.SetDefault("SETTLEMENT_ENABLED", true)
	v.SetDefault("SETTLEMENT_SCHEDULE", "*/5 * * * *")
	v.SetDefault("SETTLEMENT_DEPOSIT_HOLD_MINUTES", 15)
	v.SetDefault("SETTLEMENT_BATCH_SIZE", 100)

	v.SetDefault("KYC_DOCUMENT_DIR", "/var/lib/aurum/kyc-documents")

	v.SetDefault("TRACING_ENABLED", true)
	v.SetDefault("OTEL_COLLECTOR_URL", "localhost:4317")

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:         v.GetInt("SERVER_PORT"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			Issuer:        v.GetString("JWT_ISSUER"),
			ExpiryMinutes: v.GetInt("JWT_EXPIRY_MINUTES"),
		},
		GoldPrice: GoldPriceConfig{
			BaseURL: v.GetString("GOLD_PRICE_BASE_URL"),
			APIKey:  v.GetString("GOLD_PRICE_API_KEY"),
		},
		Email: EmailConfig{
			Enabled:      v.GetBool("EMAIL_ENABLED"),
			Provider:     v.GetString("EMAIL_PROVIDER"),
			APIKey:       v.GetString("EMAIL_API_KEY"),
			FromEmail:    v.GetString("EMAIL_FROM_EMAIL"),
			FromName:     v.GetString("EMAIL_FROM_NAME"),
			ReplyTo:      v.GetString("EMAIL_REPLY_TO"),
			SMTPHost:     v.GetString("EMAIL_SMTP_HOST"),
			SMTPPort:     v.GetInt("EMAIL_SMTP_PORT"),
			SMTPUsername: v.GetString("EMAIL_SMTP_USERNAME"),
			SMTPPassword: v.GetString("EMAIL_SMTP_PASSWORD"),
			SMTPUseTLS:   v.GetBool("EMAIL_SMTP_USE_TLS"),
		},
		Settlement: SettlementConfig{
			Enabled:            v.GetBool("SETTLEMENT_ENABLED"),
			Schedule:           v.GetString("SETTLEMENT_SCHEDULE"),
			DepositHoldMinutes: v.GetInt("SETTLEMENT_DEPOSIT_HOLD_MINUTES"),
			BatchSize:          v.GetInt("SETTLEMENT_BATCH_SIZE"),
		},
		KYC: KYCConfig{
			DocumentDir: v.GetString("KYC_DOCUMENT_DIR"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			CollectorURL: v.GetString("OTEL_COLLECTOR_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Environment == "production" && c.GoldPrice.APIKey == "" {
		return fmt.Errorf("GOLD_PRICE_API_KEY is required in production")
	}
	return nil
}
