package monitor

import (
	"context"
	"time"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// Arbitrage 监控循环驱动的扫描服务
type Arbitrage interface {
	Scan(ctx context.Context) ([]model.Opportunity, error)
	RefreshAll(ctx context.Context) int
	RefreshVenue(ctx context.Context, name string) error
	Stats() model.StatsSnapshot
}

// PoolEventFeed 池事件源
type PoolEventFeed = port.PoolEventFeed

type ServiceDeps struct {
	Arb   Arbitrage
	Feeds []PoolEventFeed
	Sink  port.Sink
	Repo  port.Repository

	ScanInterval    time.Duration
	RefreshInterval time.Duration
	StatsEvery      time.Duration
	Debounce        time.Duration

	TopN         int
	MinProfitPct float64
}
