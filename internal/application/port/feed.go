package port

import (
	"context"

	"dexarb/internal/domain/model"
)

// PoolEventFeed 池变更事件源（账户订阅 / mempool）
// 事件只作为重新扫描的触发信号，不携带储备数据
type PoolEventFeed interface {
	Name() string
	Subscribe(ctx context.Context) (<-chan model.PoolTouched, error)
}
