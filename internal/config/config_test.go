package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stock-ledger", cfg.ServiceName)
	assert.Equal(t, 8085, cfg.HTTP.Port)
	assert.Equal(t, "femisse_stock", cfg.Postgres.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.Window)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SWEEPER_WINDOW", "45m")
	t.Setenv("SWEEPER_CANCEL_REASON", "expired by ops")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Minute, cfg.Sweeper.Window)
	assert.Equal(t, "expired by ops", cfg.Sweeper.CancelReason)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port out of range", key: "HTTP_PORT", value: "70000"},
		{name: "negative sweep interval", key: "SWEEPER_INTERVAL", value: "-1m"},
		{name: "zero sweep window", key: "SWEEPER_WINDOW", value: "0s"},
		{name: "sample rate above one", key: "OTEL_SAMPLE_RATE", value: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresPoolConfig(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.PostgresPoolConfig()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Contains(t, pg.DSN(), "db.internal:5432/femisse_stock")
}
