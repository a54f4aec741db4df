package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Poller       PollerConfig       `mapstructure:"poller"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Notification NotificationConfig `mapstructure:"notification"`
	Alert        AlertConfig        `mapstructure:"alert"`
	Invoice      InvoiceConfig      `mapstructure:"invoice"`
	Ticket       TicketConfig       `mapstructure:"ticket"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | memory
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`
	SlowThreshold   time.Duration `mapstructure:"slowThreshold"`
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json | console
	Output     string `mapstructure:"output"`
	CallerInfo bool   `mapstructure:"callerInfo"`
}

// WebhookConfig holds the shared secret of every enabled provider
type WebhookConfig struct {
	Secrets     map[string]string `mapstructure:"secrets"`
	MaxBodySize int64             `mapstructure:"maxBodySize"`
}

// GatewayConfig points at the payment gateway order API
type GatewayConfig struct {
	BaseURL   string        `mapstructure:"baseUrl"`
	KeyID     string        `mapstructure:"keyId"`
	KeySecret string        `mapstructure:"keySecret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DispatcherConfig tunes the side effect worker
type DispatcherConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	BatchSize      int           `mapstructure:"batchSize"`
	Workers        int           `mapstructure:"workers"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	InitialBackoff time.Duration `mapstructure:"initialBackoff"`
	MaxBackoff     time.Duration `mapstructure:"maxBackoff"`
	LeaseTimeout   time.Duration `mapstructure:"leaseTimeout"`
	EffectTimeout  time.Duration `mapstructure:"effectTimeout"`
}

// PollerConfig tunes the polling reconciler
type PollerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	GraceWindow    time.Duration `mapstructure:"graceWindow"`
	InitialBackoff time.Duration `mapstructure:"initialBackoff"`
	MaxBackoff     time.Duration `mapstructure:"maxBackoff"`
	MaxStaleness   time.Duration `mapstructure:"maxStaleness"`
	BatchSize      int           `mapstructure:"batchSize"`
	ReplayWindow   time.Duration `mapstructure:"replayWindow"`
}

// SchedulerConfig selects where scheduler leases live
type SchedulerConfig struct {
	LeaseBackend string        `mapstructure:"leaseBackend"` // database | redis
	LeaseTTL     time.Duration `mapstructure:"leaseTtl"`
}

// RedisConfig contains the Redis connection used for leases
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig points at the notification service
type NotificationConfig struct {
	URL       string            `mapstructure:"url"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Templates map[string]string `mapstructure:"templates"`
}

// AlertConfig points at an incoming-webhook style alert sink
type AlertConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InvoiceConfig holds the issuing organization
type InvoiceConfig struct {
	OrganizationName string `mapstructure:"organizationName"`
	TaxID            string `mapstructure:"taxId"`
	NumberPrefix     string `mapstructure:"numberPrefix"`
}

// TicketConfig holds where ticket images are served from
type TicketConfig struct {
	ImageBaseURL string `mapstructure:"imageBaseUrl"`
}

// Validate checks the settings the engine cannot run without
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Scheduler.LeaseBackend {
	case "database":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis lease backend")
		}
	default:
		return fmt.Errorf("unsupported lease backend: %s", c.Scheduler.LeaseBackend)
	}
	if len(c.Webhook.Secrets) == 0 {
		return errors.New("at least one webhook provider secret is required")
	}
	for provider, secret := range c.Webhook.Secrets {
		if secret == "" {
			return fmt.Errorf("empty webhook secret for provider %q", provider)
		}
	}
	if c.Dispatcher.MaxAttempts <= 0 {
		return fmt.Errorf("dispatcher maxAttempts must be positive, got: %d", c.Dispatcher.MaxAttempts)
	}
	if c.Dispatcher.Workers <= 0 {
		return fmt.Errorf("dispatcher workers must be positive, got: %d", c.Dispatcher.Workers)
	}
	if c.Poller.GraceWindow <= 0 {
		return errors.New("poller grace window must be positive")
	}
	if c.Poller.MaxStaleness <= c.Poller.GraceWindow {
		return errors.New("poller max staleness must exceed the grace window")
	}
	if c.Invoice.OrganizationName == "" {
		return errors.New("invoice organization name is required")
	}
	return nil
}
