package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TokenID 代币标识（mint 地址或符号）
type TokenID string

// Pool 两币种恒定乘积流动性池
// 由创建它的 VenueAdapter 独占，只能被该 adapter 的刷新逻辑替换
type Pool struct {
	ID       string  `json:"id"`
	TokenA   TokenID `json:"token_a"`
	TokenB   TokenID `json:"token_b"`
	ReserveA float64 `json:"reserve_a"`
	ReserveB float64 `json:"reserve_b"`
	FeeRate  float64 `json:"fee_rate"` // [0,1)
}

// Empty 任一储备 <= 0 的池不可报价
func (p Pool) Empty() bool {
	return p.ReserveA <= 0 || p.ReserveB <= 0
}

// Has 判断池是否包含这两个代币（任意方向）
func (p Pool) Has(a, b TokenID) bool {
	return (p.TokenA == a && p.TokenB == b) || (p.TokenA == b && p.TokenB == a)
}

// Contains 判断代币是否属于该池
func (p Pool) Contains(t TokenID) bool {
	return p.TokenA == t || p.TokenB == t
}

// Validate 检查池数据完整性：储备非负、手续费在 [0,1)、两币种不同
func (p Pool) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pool id empty")
	}
	if p.TokenA == "" || p.TokenB == "" || p.TokenA == p.TokenB {
		return fmt.Errorf("pool %s: invalid token pair %q/%q", p.ID, p.TokenA, p.TokenB)
	}
	if !finite(p.ReserveA) || !finite(p.ReserveB) || p.ReserveA < 0 || p.ReserveB < 0 {
		return fmt.Errorf("pool %s: negative or non-finite reserves (%v, %v)", p.ID, p.ReserveA, p.ReserveB)
	}
	if !finite(p.FeeRate) || p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("pool %s: fee rate %v out of range [0,1)", p.ID, p.FeeRate)
	}
	return nil
}

// PoolTouched 外部事件源（mempool / account 订阅）通知某个池发生了变化
type PoolTouched struct {
	Venue      string    `json:"venue"`
	PoolID     string    `json:"pool_id"`
	Slot       uint64    `json:"slot"`
	ReceivedAt time.Time `json:"received_at"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
