package venue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/config"
)

// Factory 根据交易所配置创建数据源
type Factory func(cfg config.VenueConfig, tokens *model.TokenBook) (port.PoolSource, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register 注册一种数据源（由各数据源包的 init() 调用）
func Register(source string, factory Factory) {
	if factory == nil {
		log.Warn().Str("source", source).Msg("invalid pool source factory")
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[source]; exists {
		log.Warn().Str("source", source).Msg("pool source factory already registered, overwriting")
	}
	registry[source] = factory
}

// Get 获取已注册的数据源工厂
func Get(source string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[source]
	return f, ok
}

// Sources 已注册的数据源类型（排序）
func Sources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewSource 按 cfg.Source 创建数据源
func NewSource(cfg config.VenueConfig, tokens *model.TokenBook) (port.PoolSource, error) {
	f, ok := Get(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("venue %s: %w %q", cfg.Name, ErrUnknownSource, cfg.Source)
	}
	return f(cfg, tokens)
}

// PoolsFromConfig 将配置池转换为领域池；代币符号按 tokens 解析
// fee_rate 未设置时使用 defaultFee
func PoolsFromConfig(venueName string, pools []config.PoolConfig, defaultFee float64, tokens *model.TokenBook) []model.Pool {
	out := make([]model.Pool, 0, len(pools))
	for i, pc := range pools {
		fee := pc.Fee(defaultFee)
		a, b := tokens.Resolve(pc.TokenA), tokens.Resolve(pc.TokenB)
		id := pc.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d-%s-%s", venueName, i, a, b)
		}
		out = append(out, model.Pool{
			ID:       id,
			TokenA:   a,
			TokenB:   b,
			ReserveA: pc.ReserveA,
			ReserveB: pc.ReserveB,
			FeeRate:  fee,
		})
	}
	return out
}
