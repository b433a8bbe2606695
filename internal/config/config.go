// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the process settings read from the environment.
type Config struct {
	Port         int    `envconfig:"PORT" default:"3000"`
	HostPassword string `envconfig:"HOST_PASSWORD"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	DisconnectGrace      time.Duration `envconfig:"DISCONNECT_GRACE" default:"60s"`
	RoundTransitionDelay time.Duration `envconfig:"ROUND_TRANSITION_DELAY" default:"3s"`
	DefaultCardsToDeal   int           `envconfig:"DEFAULT_CARDS_TO_DEAL" default:"7"`

	// TokenExpireTime is a duration, or "never".
	TokenExpireTime     string  `envconfig:"TOKEN_EXPIRE_TIME" default:"72h"`
	WSMessagesPerSecond float64 `envconfig:"WS_MESSAGES_PER_SECOND" default:"20"`

	// RedisAddr enables the action log when set.
	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	RedisDB            int           `envconfig:"REDIS_DB" default:"0"`
	HistorianQueueName string        `envconfig:"HISTORIAN_QUEUE_NAME" default:"uno_actions"`
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	HistorianBatchSize int           `envconfig:"HISTORIAN_BATCH_SIZE" default:"20"`
	HistorianFlush     time.Duration `envconfig:"HISTORIAN_FLUSH" default:"500ms"`
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.DefaultCardsToDeal < 1 || c.DefaultCardsToDeal > 13 {
		return fmt.Errorf("DEFAULT_CARDS_TO_DEAL must be between 1 and 13, got %d", c.DefaultCardsToDeal)
	}
	if c.DisconnectGrace <= 0 {
		return fmt.Errorf("DISCONNECT_GRACE must be positive")
	}
	if c.RoundTransitionDelay < 0 {
		return fmt.Errorf("ROUND_TRANSITION_DELAY must not be negative")
	}
	if c.WSMessagesPerSecond <= 0 {
		return fmt.Errorf("WS_MESSAGES_PER_SECOND must be positive")
	}
	if c.HistorianBatchSize < 1 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be at least 1")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TokenTTL parses TokenExpireTime. Zero means tokens never expire.
func (c *Config) TokenTTL() (time.Duration, error) {
	s := strings.TrimSpace(c.TokenExpireTime)
	if strings.EqualFold(s, "never") || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME must be a positive duration or \"never\", got %q", c.TokenExpireTime)
	}
	return d, nil
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
