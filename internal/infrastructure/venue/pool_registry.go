package venue

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dexarb/internal/domain/model"
)

// PoolRegistry 单个交易所的池集合
// 刷新时整体替换，扫描期间只读
type PoolRegistry struct {
	mu        sync.RWMutex
	venue     string
	pools     []model.Pool // 按 ID 排序
	updatedAt time.Time
}

func NewPoolRegistry(venue string) *PoolRegistry {
	return &PoolRegistry{venue: venue}
}

// Replace 校验后整体替换；没有任何有效池时保留旧数据并返回 ErrNoPools
func (r *PoolRegistry) Replace(pools []model.Pool) (int, error) {
	valid := make([]model.Pool, 0, len(pools))
	seen := make(map[string]struct{}, len(pools))
	for _, p := range pools {
		if err := p.Validate(); err != nil {
			log.Debug().Str("venue", r.venue).Err(err).Msg("skip invalid pool")
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return 0, ErrNoPools
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })

	r.mu.Lock()
	r.pools = valid
	r.updatedAt = time.Now()
	r.mu.Unlock()
	return len(valid), nil
}

// Matching 包含 a、b 两个代币的非空池
func (r *PoolRegistry) Matching(a, b model.TokenID) []model.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Pool
	for _, p := range r.pools {
		if p.Has(a, b) && !p.Empty() {
			out = append(out, p)
		}
	}
	return out
}

// Has 是否存在包含 a、b 的池，不论储备是否为空
func (r *PoolRegistry) Has(a, b model.TokenID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pools {
		if p.Has(a, b) {
			return true
		}
	}
	return false
}

// Snapshot 当前池副本
func (r *PoolRegistry) Snapshot() []model.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Pool(nil), r.pools...)
}

func (r *PoolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

func (r *PoolRegistry) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}
