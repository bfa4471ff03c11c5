package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/govalues/decimal"
)

type Config struct {
	Database *Database
	HTTP     *HTTP
	Gateway  *Gateway
	Webhook  *Webhook
	Business *Business
	Dispatch *Dispatch
	Auth     *Auth
	App      *App
}

const AppModeProduction = "PROD"
const AppModeDevelop = "DEV"

type App struct {
	LogLevel string `env:"LOG_LEVEL"`
	Mode     string `env:"APP_MODE"`
}

type Database struct {
	DSN      string `env:"DATABASE_URI"`
	MaxConns int32  `env:"DATABASE_MAX_CONNS"`
}

type HTTP struct {
	HostString string `env:"RUN_ADDRESS"`
	// PublicURL is where the gateway reaches our webhooks.
	PublicURL string `env:"PUBLIC_URL"`
}

type Gateway struct {
	BaseURL         string        `env:"GATEWAY_BASE_URL"`
	SecretKey       string        `env:"GATEWAY_SECRET_KEY"`
	Currency        string        `env:"GATEWAY_CURRENCY"`
	ReturnURL       string        `env:"GATEWAY_RETURN_URL"`
	Timeout         time.Duration `env:"GATEWAY_TIMEOUT"`
	RatePerSecond   float64       `env:"GATEWAY_RATE"`
	Burst           int           `env:"GATEWAY_BURST"`
	BreakerFailures uint32        `env:"GATEWAY_BREAKER_FAILURES"`
	BreakerOpenFor  time.Duration `env:"GATEWAY_BREAKER_OPEN_FOR"`
	CheckoutTTL     time.Duration `env:"GATEWAY_CHECKOUT_TTL"`
}

type Webhook struct {
	Secret     string `env:"WEBHOOK_SECRET"`
	Permissive bool   `env:"WEBHOOK_PERMISSIVE"`
}

type Business struct {
	VATRate     decimal.Decimal `env:"VAT_RATE"`
	OrderPrefix string          `env:"ORDER_PREFIX"`
}

type Dispatch struct {
	Workers      int           `env:"DISPATCH_WORKERS"`
	PollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL"`
	Lease        time.Duration `env:"DISPATCH_LEASE"`
	MaxAttempts  int           `env:"DISPATCH_MAX_ATTEMPTS"`
	NotifyURL    string        `env:"NOTIFY_URL"`
	InvoiceURL   string        `env:"INVOICE_URL"`
}

type Auth struct {
	SymmetricKey string        `env:"AUTH_SYMMETRIC_KEY"`
	TokenTTL     time.Duration `env:"AUTH_TOKEN_TTL"`
}

func defaults() *Config {
	return &Config{
		Database: &Database{},
		HTTP: &HTTP{
			HostString: "localhost:8080",
			PublicURL:  "http://localhost:8080",
		},
		Gateway: &Gateway{
			BaseURL:         "https://api.chapa.co/v1",
			Currency:        "ETB",
			Timeout:         10 * time.Second,
			RatePerSecond:   10,
			Burst:           5,
			BreakerFailures: 5,
			BreakerOpenFor:  30 * time.Second,
			CheckoutTTL:     30 * time.Minute,
		},
		Webhook: &Webhook{},
		Business: &Business{
			VATRate:     decimal.MustNew(15, 2),
			OrderPrefix: "ST",
		},
		Dispatch: &Dispatch{
			Workers:      4,
			PollInterval: 5 * time.Second,
			Lease:        time.Minute,
			MaxAttempts:  8,
		},
		Auth: &Auth{
			TokenTTL: 24 * time.Hour,
		},
		App: &App{
			LogLevel: "info",
			Mode:     AppModeDevelop,
		},
	}
}

// NewConfig reads command line flags, then environment variables, which win.
func NewConfig() (*Config, error) {
	cfg := defaults()

	flag.StringVar(&cfg.Database.DSN, "d", cfg.Database.DSN, "Database string")
	flag.StringVar(&cfg.HTTP.HostString, "a", cfg.HTTP.HostString, "HTTP server endpoint")
	flag.StringVar(&cfg.HTTP.PublicURL, "u", cfg.HTTP.PublicURL, "Public base URL for gateway callbacks")
	flag.StringVar(&cfg.Gateway.BaseURL, "g", cfg.Gateway.BaseURL, "Payment gateway base URL")
	flag.StringVar(&cfg.App.LogLevel, "l", cfg.App.LogLevel, "Log level")
	flag.StringVar(&cfg.App.Mode, "m", cfg.App.Mode, "PROD / DEV")
	flag.IntVar(&cfg.Dispatch.Workers, "w", cfg.Dispatch.Workers, "Dispatcher workers")
	flag.BoolVar(&cfg.Webhook.Permissive, "permissive-webhooks", cfg.Webhook.Permissive,
		"Accept unsigned webhooks when no secret is set (DEV only)")
	flag.Func("vat", "VAT rate, e.g. 0.15", func(s string) error {
		rate, err := decimal.Parse(s)
		if err != nil {
			return err
		}
		cfg.Business.VATRate = rate
		return nil
	})
	flag.Parse()

	if err := cfg.parseEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewEnvConfig reads environment variables only. Tools that own the command
// line use it.
func NewEnvConfig() (*Config, error) {
	cfg := defaults()
	if err := cfg.parseEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseEnv() error {
	sections := []struct {
		name string
		v    any
	}{
		{"database", c.Database},
		{"http", c.HTTP},
		{"gateway", c.Gateway},
		{"webhook", c.Webhook},
		{"business", c.Business},
		{"dispatch", c.Dispatch},
		{"auth", c.Auth},
		{"app", c.App},
	}
	for _, s := range sections {
		if err := env.Parse(s.v); err != nil {
			return fmt.Errorf("error parsing env %s config: %w", s.name, err)
		}
	}
	return nil
}

var (
	ErrNoWebhookSecret   = errors.New("webhook secret is empty and permissive mode is off")
	ErrPermissiveInProd  = errors.New("permissive webhook mode is not allowed in PROD")
	ErrMemoryStoreInProd = errors.New("database dsn is required in PROD")
)

func (c *Config) Validate() error {
	switch c.App.Mode {
	case AppModeProduction, AppModeDevelop:
	default:
		return fmt.Errorf("unknown app mode %q", c.App.Mode)
	}
	prod := c.App.Mode == AppModeProduction

	if c.Webhook.Secret == "" && !c.Webhook.Permissive {
		return ErrNoWebhookSecret
	}
	if c.Webhook.Permissive && prod {
		return ErrPermissiveInProd
	}
	if c.Database.DSN == "" && prod {
		return ErrMemoryStoreInProd
	}
	if c.Business.VATRate.IsNeg() {
		return fmt.Errorf("negative vat rate %s", c.Business.VATRate)
	}
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatcher needs at least one worker, got %d", c.Dispatch.Workers)
	}
	return nil
}

// CallbackURL is the webhook endpoint announced to the gateway.
func (h *HTTP) CallbackURL() string {
	return h.PublicURL + "/webhooks/gateway/payment"
}
