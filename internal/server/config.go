// Package server provides configuration helpers that define runtime defaults,
// validation, and environment loading for the GoChat rooms service.
package server

import (
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/gochat-rooms/internal/logging"
)

const (
	defaultPort            = ":8080"
	defaultOrigin          = "http://localhost:8080"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port string `env:"SERVER_PORT,default=:8080" validate:"required"`
	// Origins is the raw comma separated ALLOWED_ORIGINS value; LoadConfig
	// splits it into AllowedOrigins.
	Origins         string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	AllowedOrigins  []string      `validate:"dive,required"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=console" validate:"oneof=console json"`
	LogFile         string        `env:"LOG_FILE"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED,default=true"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Port:            defaultPort,
		Origins:         defaultOrigin,
		AllowedOrigins:  []string{defaultOrigin},
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       logging.FormatConsole,
		MetricsEnabled:  true,
	}
}

// LoadConfig reads the configuration from the process environment. Unset
// variables take their defaults; set but invalid values are an error.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	cfg.AllowedOrigins = parseOrigins(cfg.Origins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the log level.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// LoggingConfig returns the logger settings carried by c.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File:   c.LogFile,
	}
}

// sanitizeConfig replaces zero or negative values with defaults so that a
// hand-built Config is always usable.
func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
