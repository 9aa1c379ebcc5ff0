// Package config loads the service configuration from environment variables.
//
// The configuration is read ONCE at startup into a Config value and passed to
// the components that need it. Nothing else in the program reads the
// environment, so tests can build a Config by hand.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Object store backends.
const (
	ObjectStoreS3    = "s3"
	ObjectStoreLocal = "local"
)

// Response modes.
const (
	// ResponseStrict maps failures to 4xx/5xx status codes.
	ResponseStrict = "strict"
	// ResponseCompat answers every request with 200 and puts the outcome in "message".
	ResponseCompat = "compat"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/signals.db"`

	Bucket         string `env:"SIGNAL_BUCKET" envDefault:"user-signal-data"`
	ObjectStore    string `env:"OBJECT_STORE" envDefault:"s3"`
	LocalObjectDir string `env:"LOCAL_OBJECT_DIR" envDefault:"data/objects"`

	AWSAccessKeyID     string `env:"AWS_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET"`
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-2"`
	S3Endpoint         string `env:"S3_ENDPOINT"`

	// JWTSecret enables bearer-token authentication when non-empty.
	JWTSecret string `env:"JWT_SECRET"`
	JWTAlgo   string `env:"JWT_ALGO" envDefault:"HS256"`
	// JWTExpSeconds is the lifetime of tokens minted by the "token" command.
	JWTExpSeconds float64 `env:"JWT_EXP" envDefault:"900"`
	JWTIssuer     string  `env:"JWT_ISSUER"`

	ResponseMode  string `env:"RESPONSE_MODE" envDefault:"strict"`
	SignalIDScope string `env:"SIGNAL_ID_SCOPE" envDefault:"global"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom is Load with an explicit environment, for tests.
func LoadFrom(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no component could work with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.Bucket == "" {
		return fmt.Errorf("config: SIGNAL_BUCKET must not be empty")
	}
	switch c.ObjectStore {
	case ObjectStoreS3, ObjectStoreLocal:
	default:
		return fmt.Errorf("config: OBJECT_STORE must be %q or %q, got %q", ObjectStoreS3, ObjectStoreLocal, c.ObjectStore)
	}
	switch c.ResponseMode {
	case ResponseStrict, ResponseCompat:
	default:
		return fmt.Errorf("config: RESPONSE_MODE must be %q or %q, got %q", ResponseStrict, ResponseCompat, c.ResponseMode)
	}
	switch c.SignalIDScope {
	case "global", "user":
	default:
		return fmt.Errorf("config: SIGNAL_ID_SCOPE must be \"global\" or \"user\", got %q", c.SignalIDScope)
	}
	switch strings.ToUpper(c.JWTAlgo) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: JWT_ALGO %q is not supported", c.JWTAlgo)
	}
	if c.JWTExpSeconds <= 0 {
		return fmt.Errorf("config: JWT_EXP must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// AuthEnabled reports whether requests must carry a valid token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// TokenTTL is JWT_EXP as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpSeconds * float64(time.Second))
}

// SlogLevel converts LOG_LEVEL into a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
