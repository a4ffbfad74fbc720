package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/leonardoxyz/femisse-stock-ledger/pkg/config"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/tracing"
)

// Config holds the stock ledger service configuration, loaded from
// environment variables.
type Config struct {
	ServiceName    string `env:"SERVICE_NAME" envDefault:"stock-ledger"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Sweeper  SweeperConfig  `envPrefix:"SWEEPER_"`
	Tracing  TracingConfig  `envPrefix:"OTEL_"`

	OrderServiceURL string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:8082"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `env:"PORT" envDefault:"8085"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB" envDefault:"femisse_stock"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`

	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"5m"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// KafkaConfig holds Kafka producer configuration.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Enabled bool     `env:"ENABLED" envDefault:"true"`
}

// SweeperConfig holds the expiry sweeper configuration.
type SweeperConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Interval     time.Duration `env:"INTERVAL" envDefault:"5m"`
	Window       time.Duration `env:"WINDOW" envDefault:"30m"`
	CancelReason string        `env:"CANCEL_REASON" envDefault:"payment window expired"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled    bool    `env:"ENABLED" envDefault:"false"`
	Endpoint   string  `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate float64 `env:"SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive, got %s", c.Sweeper.Interval)
	}
	if c.Sweeper.Window <= 0 {
		return fmt.Errorf("sweeper window must be positive, got %s", c.Sweeper.Window)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be in [0,1], got %f", c.Tracing.SampleRate)
	}
	return nil
}

// PostgresPoolConfig converts to the database package's pool configuration.
func (c *Config) PostgresPoolConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.Postgres.Host,
		Port:            c.Postgres.Port,
		User:            c.Postgres.User,
		Password:        c.Postgres.Password,
		DBName:          c.Postgres.DBName,
		SSLMode:         c.Postgres.SSLMode,
		MaxConns:        c.Postgres.MaxConns,
		MinConns:        c.Postgres.MinConns,
		MaxConnLifetime: c.Postgres.MaxConnLifetime,
		MaxConnIdleTime: c.Postgres.MaxConnIdleTime,
	}
}

// RedisClientConfig converts to the database package's Redis configuration.
func (c *Config) RedisClientConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// TracerConfig converts to the tracing package's configuration.
func (c *Config) TracerConfig() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.Tracing.Endpoint,
		SampleRate:     c.Tracing.SampleRate,
		Enabled:        c.Tracing.Enabled,
	}
}
