package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Taifex   TaifexConfig
	Telegram TelegramConfig
}

type AppConfig struct {
	Env            string `envconfig:"APP_ENV" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone       string `envconfig:"TIMEZONE" default:"Asia/Taipei"`
	HTTPPort       int    `envconfig:"HTTP_PORT" default:"8080"`
	DebugEndpoints bool   `envconfig:"DEBUG_ENDPOINTS" default:"false"`
}

// Location resolves the exchange's reporting timezone.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type PostgresConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"password"`
	Name     string `envconfig:"DB_NAME" default:"taifex"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Taipei"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.TimeZone,
	)
}

type TaifexConfig struct {
	FuturesURL  string        `envconfig:"FUTURES_URL" default:"https://www.taifex.com.tw/cht/3/futContractsDate"`
	PCRatioURL  string        `envconfig:"PCRATIO_URL" default:"https://www.taifex.com.tw/cht/3/pcRatio"`
	UserAgent   string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (taifexbot/1.0)"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
}

type TelegramConfig struct {
	BotToken      string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret string  `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	AdminIDs      []int64 `envconfig:"TELEGRAM_ADMIN_IDS"`
}

// Load reads configuration from environment variables, after loading a
// .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}
