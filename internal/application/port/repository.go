package port

import (
	"context"
	"time"

	"dexarb/internal/domain/model"
)

// Repository 机会与扫描统计的持久化
type Repository interface {
	// Opportunity operations
	SaveOpportunities(ctx context.Context, opps []model.Opportunity) error
	ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error)

	// Stats operations
	InsertScanStats(ctx context.Context, ts int64, snap model.StatsSnapshot) error

	// Connection management
	Close() error
}

// OpportunityPublisher 将通过校验的机会推送给下游（消息队列等）
type OpportunityPublisher interface {
	Publish(ctx context.Context, opps []model.Opportunity) error
	Close() error
}

// MetricsRecorder 扫描与刷新指标
type MetricsRecorder interface {
	ObserveScan(d time.Duration, found int, rejected map[string]int)
	ObserveRefresh(venue string, pools int, err error)
	ObserveStats(snap model.StatsSnapshot)
}
