package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// 运行配置 (环境变量)
// =============================================================================

type Config struct {
	MySQLDSN     string   // PRICER_MYSQL_DSN
	RedisAddr    string   // PRICER_REDIS_ADDR
	NatsURL      string   // PRICER_NATS_URL
	KafkaBrokers []string // PRICER_KAFKA_BROKERS, 逗号分隔
	KafkaGroup   string   // PRICER_KAFKA_GROUP
	RiskFreeRate float64  // PRICER_RISK_FREE_RATE
	NodeID       int64    // PRICER_NODE_ID
}

func DefaultConfig() Config {
	return Config{
		KafkaGroup:   "pricer",
		RiskFreeRate: 0.10,
		NodeID:       1,
	}
}

// LoadConfig 未设置的变量保留默认值
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("PRICER_MYSQL_DSN"); ok {
		cfg.MySQLDSN = v
	}
	if v, ok := os.LookupEnv("PRICER_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := os.LookupEnv("PRICER_NATS_URL"); ok {
		cfg.NatsURL = v
	}
	if v, ok := os.LookupEnv("PRICER_KAFKA_BROKERS"); ok {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if v, ok := os.LookupEnv("PRICER_KAFKA_GROUP"); ok && v != "" {
		cfg.KafkaGroup = v
	}
	if v, ok := os.LookupEnv("PRICER_RISK_FREE_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("PRICER_RISK_FREE_RATE: %w", err)
		}
		cfg.RiskFreeRate = rate
	}
	if v, ok := os.LookupEnv("PRICER_NODE_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("PRICER_NODE_ID: %w", err)
		}
		cfg.NodeID = id
	}
	return cfg, nil
}

// Serving 配置了任一请求入口时常驻
func (c Config) Serving() bool {
	return c.NatsURL != "" || len(c.KafkaBrokers) > 0
}
