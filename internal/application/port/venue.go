package port

import (
	"context"

	"dexarb/internal/domain/model"
)

// VenueAdapter 单个流动性来源（交易所）的统一接口
// 扫描器只通过该接口访问池与报价
type VenueAdapter interface {
	Name() string

	// RefreshPools 重新拉取池数据；失败时保留旧池，返回错误由调用方记录
	RefreshPools(ctx context.Context) error

	// GetPrice 模拟兑换；找不到可用池时返回 false
	GetPrice(ctx context.Context, in, out model.TokenID, amount float64) (model.Quote, bool)

	HasPool(a, b model.TokenID) bool

	// Pools 当前池的只读快照
	Pools() []model.Pool

	// ExecuteSwap 执行层挂钩，扫描流程不会调用
	ExecuteSwap(ctx context.Context, in, out model.TokenID, amount float64) (string, error)
}

// PoolSource 池数据获取（只负责取数，不负责报价）
type PoolSource interface {
	Name() string
	FetchPools(ctx context.Context) ([]model.Pool, error)
}
