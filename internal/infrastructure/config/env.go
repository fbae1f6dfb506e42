package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides DEXARB_* 环境变量覆盖文件配置（地址、密钥）
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.App.LogLevel, "DEXARB_LOG_LEVEL")

	setFloat(&cfg.Arbitrage.MinProfitThresholdPct, "DEXARB_MIN_PROFIT_THRESHOLD_PCT")
	setFloat(&cfg.Arbitrage.SlippageTolerancePct, "DEXARB_SLIPPAGE_TOLERANCE_PCT")
	setInt(&cfg.Arbitrage.MaxOpportunities, "DEXARB_MAX_OPPORTUNITIES")
	setFloat(&cfg.Arbitrage.ReferenceAmount, "DEXARB_REFERENCE_AMOUNT")

	setStr(&cfg.Events.WsURL, "DEXARB_EVENTS_WS_URL")

	setBool(&cfg.Redis.Enabled, "DEXARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEXARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXARB_REDIS_DB")

	setStr(&cfg.SQLite.Path, "DEXARB_SQLITE_PATH")

	setBool(&cfg.Postgres.Enabled, "DEXARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DEXARB_POSTGRES_DSN")

	if v := strings.TrimSpace(os.Getenv("DEXARB_KAFKA_BROKERS")); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Kafka.Brokers = brokers
	}
	setStr(&cfg.Kafka.Topic, "DEXARB_KAFKA_TOPIC")

	setStr(&cfg.Metrics.Addr, "DEXARB_METRICS_ADDR")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
