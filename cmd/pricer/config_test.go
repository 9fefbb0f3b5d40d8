package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PRICER_MYSQL_DSN", "PRICER_REDIS_ADDR", "PRICER_NATS_URL", "PRICER_KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.10, cfg.RiskFreeRate)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, "pricer", cfg.KafkaGroup)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.Serving())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PRICER_NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("PRICER_KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PRICER_KAFKA_GROUP", "pricer-b")
	t.Setenv("PRICER_RISK_FREE_RATE", "0.035")
	t.Setenv("PRICER_NODE_ID", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "pricer-b", cfg.KafkaGroup)
	assert.Equal(t, 0.035, cfg.RiskFreeRate)
	assert.Equal(t, int64(7), cfg.NodeID)
	assert.True(t, cfg.Serving())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PRICER_RISK_FREE_RATE", "ten percent")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "PRICER_RISK_FREE_RATE")

	t.Setenv("PRICER_RISK_FREE_RATE", "0.1")
	t.Setenv("PRICER_NODE_ID", "x")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "PRICER_NODE_ID")
}

func TestRunReference(t *testing.T) {
	require.NoError(t, runReference())
}
