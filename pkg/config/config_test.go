package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Reorder.LeadTimeDays)
	assert.Equal(t, 7, cfg.Reorder.SafetyStockDays)
	assert.Equal(t, 30, cfg.Reorder.VelocityWindow)
	assert.Equal(t, "0.6", cfg.Reorder.FallbackCostRatio.String())
	assert.Equal(t, time.Hour, cfg.Reorder.DebounceWindow)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REORDER_LEAD_TIME_DAYS", "3")
	t.Setenv("REORDER_FALLBACK_COST_RATIO", "0.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Reorder.LeadTimeDays)
	assert.Equal(t, "0.5", cfg.Reorder.FallbackCostRatio.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_InvalidRatio(t *testing.T) {
	t.Setenv("REORDER_FALLBACK_COST_RATIO", "abc")
	_, err := Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapesPassword(t *testing.T) {
	c := DBConfig{User: "pos", Password: "p@ss:w/rd", Host: "db", Port: 5432, DBName: "pos", SSLMode: "disable"}
	assert.Equal(t, "postgres://pos:p%40ss%3Aw%2Frd@db:5432/pos?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
