package config

import (
	"fmt"
	"time"

	"storyarchive/pkg/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string `env:"BOT_TOKEN,required,notEmpty"`
	ArchiveChatID int64  `env:"ARCHIVE_CHAT_ID,required"`
	PublicGroupID int64  `env:"PUBLIC_GROUP_ID"`

	Port            int           `env:"PORT" envDefault:"10000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"30s"`

	DatabaseURL       string `env:"DATABASE_URL"`
	OperatorJWTSecret string `env:"OPERATOR_JWT_SECRET"`
	MessagesFile      string `env:"MESSAGES_FILE"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DispatchTimeout <= 0 {
		return nil, fmt.Errorf("parse config: DISPATCH_TIMEOUT must be positive, got %s", cfg.DispatchTimeout)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
