package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ScanIntervalMs     int    `toml:"scan_interval_ms"`
		RefreshIntervalSec int    `toml:"refresh_interval_sec"`
		StatsEverySec      int    `toml:"stats_every_sec"`
		TopN               int    `toml:"top_n"`
		LogLevel           string `toml:"log_level"`
	} `toml:"app"`

	Arbitrage ScanConfig `toml:"arbitrage"`

	Scanner struct {
		Workers       int  `toml:"workers"`
		TaskTimeoutMs int  `toml:"task_timeout_ms"`
		ReverseLegs   bool `toml:"reverse_legs"`
	} `toml:"scanner"`

	Validator struct {
		MaxProfitPct      float64 `toml:"max_profit_pct"`
		MaxRoundTripRatio float64 `toml:"max_round_trip_ratio"`
		SeenTTLSec        int     `toml:"seen_ttl_sec"`  // 0 = 进程生命周期
		SeenCapacity      int     `toml:"seen_capacity"` // 0 = 不淘汰
		Shared            bool    `toml:"shared"`        // 使用 redis 跨进程去重
	} `toml:"validator"`

	// Tokens symbol -> mint
	Tokens map[string]string `toml:"tokens"`

	Venues []VenueConfig `toml:"venue"`

	Events struct {
		Enabled    bool          `toml:"enabled"`
		WsURL      string        `toml:"ws_url"`
		DebounceMs int           `toml:"debounce_ms"`
		Watch      []WatchConfig `toml:"watch"`
	} `toml:"events"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
		Stream     string `toml:"stream"`
		Channel    string `toml:"channel"`
	} `toml:"redis"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Kafka struct {
		Enabled bool     `toml:"enabled"`
		Brokers []string `toml:"brokers"`
		Topic   string   `toml:"topic"`
	} `toml:"kafka"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

// ScanConfig 扫描与校验阈值（百分比均为 0.5 = 0.5%）
type ScanConfig struct {
	MinProfitThresholdPct float64 `toml:"min_profit_threshold_pct"`
	SlippageTolerancePct  float64 `toml:"slippage_tolerance_pct"`
	MaxOpportunities      int     `toml:"max_opportunities"`
	ReferenceAmount       float64 `toml:"reference_amount"`
}

// VenueConfig 单个交易所
type VenueConfig struct {
	Name           string       `toml:"name"`
	Source         string       `toml:"source"` // static | raydium | jupiter | orca
	Enabled        bool         `toml:"enabled"`
	Endpoint       string       `toml:"endpoint"`
	TimeoutMs      int          `toml:"timeout_ms"`
	RatePerSec     float64      `toml:"rate_per_sec"` // 刷新频率上限
	FeeRate        *float64     `toml:"fee_rate"` // 未设置时使用数据源默认费率
	DefaultReserve float64      `toml:"default_reserve"` // 路由表类数据源的合成储备
	Pools          []PoolConfig `toml:"pools"`           // 首次刷新前的兜底池
}

// PoolConfig 池配置；代币可写符号（按 [tokens] 解析）或 mint
type PoolConfig struct {
	ID       string  `toml:"id"`
	TokenA   string  `toml:"token_a"`
	TokenB   string  `toml:"token_b"`
	ReserveA float64 `toml:"reserve_a"`
	ReserveB float64 `toml:"reserve_b"`
	FeeRate  *float64 `toml:"fee_rate"` // 未设置时继承交易所费率
}

// Fee 配置费率；未设置时返回 def
func (v VenueConfig) Fee(def float64) float64 {
	if v.FeeRate == nil {
		return def
	}
	return *v.FeeRate
}

// Fee 配置费率；未设置时返回 def
func (p PoolConfig) Fee(def float64) float64 {
	if p.FeeRate == nil {
		return def
	}
	return *p.FeeRate
}

func validFee(f *float64) bool {
	return f == nil || (*f >= 0 && *f < 1)
}

// WatchConfig 订阅的池账户
type WatchConfig struct {
	Venue   string `toml:"venue"`
	PoolID  string `toml:"pool_id"`
	Account string `toml:"account"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.ScanIntervalMs <= 0 {
		cfg.App.ScanIntervalMs = 1000
	}
	if cfg.App.RefreshIntervalSec <= 0 {
		cfg.App.RefreshIntervalSec = 30
	}
	if cfg.App.StatsEverySec <= 0 {
		cfg.App.StatsEverySec = 60
	}
	if cfg.App.TopN <= 0 {
		cfg.App.TopN = 5
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Arbitrage.MinProfitThresholdPct <= 0 {
		cfg.Arbitrage.MinProfitThresholdPct = 0.5
	}
	if cfg.Arbitrage.SlippageTolerancePct <= 0 {
		cfg.Arbitrage.SlippageTolerancePct = 1.0
	}
	if cfg.Arbitrage.MaxOpportunities <= 0 {
		cfg.Arbitrage.MaxOpportunities = 10
	}
	if cfg.Arbitrage.ReferenceAmount <= 0 {
		cfg.Arbitrage.ReferenceAmount = 1.0
	}

	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 16
	}
	if cfg.Scanner.TaskTimeoutMs <= 0 {
		cfg.Scanner.TaskTimeoutMs = 2000
	}

	if cfg.Validator.MaxProfitPct <= 0 {
		cfg.Validator.MaxProfitPct = 5.0
	}
	if cfg.Validator.MaxRoundTripRatio <= 0 {
		cfg.Validator.MaxRoundTripRatio = 1.1
	}

	if cfg.Events.DebounceMs <= 0 {
		cfg.Events.DebounceMs = 250
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "dexarb"
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 3600
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = cfg.Redis.Prefix + ":opportunities"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = cfg.Redis.Prefix + ":opportunities:live"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/dexarb.db"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "dexarb.opportunities"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}

	for i := range cfg.Venues {
		v := &cfg.Venues[i]
		v.Name = strings.ToLower(strings.TrimSpace(v.Name))
		v.Source = strings.ToLower(strings.TrimSpace(v.Source))
		if v.Source == "" {
			v.Source = "static"
		}
		if v.TimeoutMs <= 0 {
			v.TimeoutMs = 5000
		}
		if v.RatePerSec <= 0 {
			v.RatePerSec = 1
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Arbitrage.SlippageTolerancePct > 100 {
		return errors.New("arbitrage.slippage_tolerance_pct must be <= 100")
	}
	if cfg.Validator.MaxProfitPct < cfg.Arbitrage.MinProfitThresholdPct {
		return errors.New("validator.max_profit_pct below arbitrage.min_profit_threshold_pct")
	}

	names := map[string]struct{}{}
	for _, v := range cfg.Venues {
		if v.Name == "" {
			return errors.New("venue.name empty")
		}
		if _, ok := names[v.Name]; ok {
			return fmt.Errorf("venue %q defined twice", v.Name)
		}
		names[v.Name] = struct{}{}
		if v.Enabled && v.Source != "static" && strings.TrimSpace(v.Endpoint) == "" {
			return fmt.Errorf("venue %q: endpoint empty but source is %s", v.Name, v.Source)
		}
		if !validFee(v.FeeRate) {
			return fmt.Errorf("venue %q: fee_rate out of range [0,1)", v.Name)
		}
		for i, pc := range v.Pools {
			if !validFee(pc.FeeRate) {
				return fmt.Errorf("venue %q: pools[%d].fee_rate out of range [0,1)", v.Name, i)
			}
		}
	}
	if len(cfg.EnabledVenues()) == 0 {
		return errors.New("no venue enabled")
	}

	if cfg.Events.Enabled {
		if strings.TrimSpace(cfg.Events.WsURL) == "" {
			return errors.New("events.ws_url empty but enabled")
		}
		for _, w := range cfg.Events.Watch {
			if _, ok := names[strings.ToLower(w.Venue)]; !ok {
				return fmt.Errorf("events.watch: unknown venue %q", w.Venue)
			}
		}
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Validator.Shared && !cfg.Redis.Enabled {
		return errors.New("validator.shared requires redis")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers empty but enabled")
	}
	return nil
}

// EnabledVenues 按配置顺序返回启用的交易所（即扫描注册顺序）
func (c *Config) EnabledVenues() []VenueConfig {
	out := make([]VenueConfig, 0, len(c.Venues))
	for _, v := range c.Venues {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.App.ScanIntervalMs) * time.Millisecond
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.App.RefreshIntervalSec) * time.Second
}

func (c *Config) StatsEvery() time.Duration {
	return time.Duration(c.App.StatsEverySec) * time.Second
}

func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Scanner.TaskTimeoutMs) * time.Millisecond
}

func (c *Config) SeenTTL() time.Duration {
	return time.Duration(c.Validator.SeenTTLSec) * time.Second
}

func (v VenueConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutMs) * time.Millisecond
}
