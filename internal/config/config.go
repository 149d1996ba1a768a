package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

// Early-exit signals from Load; main exits 0 on either.
var (
	ErrHelp    = errors.New("help requested")
	ErrVersion = errors.New("version requested")
)

// Config holds all runtime configuration.
// Values come from defaults, then the environment (and an optional .env
// file), then command-line flags; later sources win.
type Config struct {
	// Danmaku server
	WSServer      string  `envconfig:"WS_SERVER" validate:"required,url"`
	SendRateLimit float64 `envconfig:"SEND_RATE_LIMIT" default:"0" validate:"gte=0"`

	// Notification filter
	AppName string `envconfig:"APP_NAME" default:"QQ" validate:"required"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`

	// Optional HTTP surface for /health and /metrics; empty disables it.
	MetricsAddr     string        `envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load builds a Config from the environment and args (without the program name).
func Load(args []string) (*Config, error) {
	// A missing .env file is normal; existing variables are never overridden.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) parseFlags(args []string) error {
	fs := pflag.NewFlagSet("danmaku-bridge", pflag.ContinueOnError)
	fs.StringVar(&c.WSServer, "ws-server", c.WSServer, "danmaku WebSocket server URL [$WS_SERVER]")
	fs.StringVar(&c.AppName, "app-name", c.AppName, "application whose notifications are forwarded [$APP_NAME]")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error [$LOG_LEVEL]")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or console [$LOG_FORMAT]")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve /health and /metrics on this address [$METRICS_ADDR]")
	fs.Float64Var(&c.SendRateLimit, "send-rate-limit", c.SendRateLimit, "max packets per second, 0 for unlimited [$SEND_RATE_LIMIT]")
	version := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ErrHelp
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	if *version {
		return ErrVersion
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}
