// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	BasePath  string `env:"BASE_PATH" envDefault:""`
	GinMode   string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile   string `env:"LOG_FILE"`
	SentryDSN string `env:"SENTRY_DSN"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Dispatch  DispatchConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"marketing_console"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RabbitMQConfig holds the broker settings. An empty host disables the
// queue adapters and the delivery report consumer.
type RabbitMQConfig struct {
	Host                string `env:"RABBITMQ_HOST"`
	Port                string `env:"RABBITMQ_PORT" envDefault:"5672"`
	User                string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password            string `env:"RABBITMQ_PASS" envDefault:"guest"`
	VHost               string `env:"RABBITMQ_VHOST" envDefault:"/"`
	SMSQueue            string `env:"RABBITMQ_SMS_QUEUE" envDefault:"sms_outbound"`
	EmailQueue          string `env:"RABBITMQ_EMAIL_QUEUE" envDefault:"email_outbound"`
	DeliveryReportQueue string `env:"RABBITMQ_DELIVERY_REPORT_QUEUE" envDefault:"delivery_reports"`
}

// Enabled reports whether a broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, vhost)
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	JWTSecret  string `env:"JWT_SECRET"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

// SchedulerConfig tunes the campaign poller.
type SchedulerConfig struct {
	Enabled      bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	PollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"1m"`
	PageSize     int           `env:"SCHEDULER_PAGE_SIZE" envDefault:"500"`
}

// DispatchConfig tunes sending and pricing.
type DispatchConfig struct {
	Workers           int           `env:"DISPATCH_WORKERS" envDefault:"8"`
	SendTimeout       time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"10s"`
	SMSCostPerSegment float64       `env:"SMS_COST_PER_SEGMENT" envDefault:"0.02"`
	EmailCost         float64       `env:"EMAIL_COST" envDefault:"0.001"`
	DefaultTimezone   string        `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`
}

// TelemetryConfig configures OpenTelemetry tracing. An empty endpoint
// disables export.
type TelemetryConfig struct {
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"marketing-console-backend"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Dispatch.Workers <= 0 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", cfg.Dispatch.Workers)
	}
	if cfg.Scheduler.PollInterval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(cfg.Dispatch.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.Dispatch.DefaultTimezone, err)
	}
	return &cfg, nil
}
