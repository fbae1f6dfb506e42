package venue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	dsvc "dexarb/internal/domain/service"
)

// Options 交易所适配器参数
type Options struct {
	Timeout    time.Duration // 单次拉取超时
	RatePerSec float64       // 刷新频率上限，<=0 不限制
	Fallback   []model.Pool  // 首次刷新前可用的兜底池
}

// Adapter 通用交易所适配器：PoolSource 负责取数，报价统一走恒定乘积公式
type Adapter struct {
	name    string
	source  port.PoolSource
	pools   *PoolRegistry
	timeout time.Duration
	limiter *rate.Limiter
	sf      singleflight.Group
	now     func() time.Time
}

func NewAdapter(name string, source port.PoolSource, opts Options) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	a := &Adapter{
		name:    name,
		source:  source,
		pools:   NewPoolRegistry(name),
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
	if len(opts.Fallback) > 0 {
		if n, err := a.pools.Replace(opts.Fallback); err != nil {
			log.Warn().Str("venue", name).Err(err).Msg("fallback pools rejected")
		} else {
			log.Debug().Str("venue", name).Int("pools", n).Msg("fallback pools loaded")
		}
	}
	return a
}

func (a *Adapter) Name() string { return a.name }

// RefreshPools 拉取并整体替换池；并发调用合并为一次
// 超出频率限制时跳过本次刷新
func (a *Adapter) RefreshPools(ctx context.Context) error {
	_, err, _ := a.sf.Do("refresh", func() (any, error) {
		if !a.limiter.Allow() {
			log.Debug().Str("venue", a.name).Msg("refresh rate limited, skipped")
			return nil, nil
		}

		cctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		pools, err := a.source.FetchPools(cctx)
		if err != nil {
			return nil, fmt.Errorf("%s: fetch pools from %s: %w", a.name, a.source.Name(), err)
		}
		n, err := a.pools.Replace(pools)
		if err != nil {
			return nil, fmt.Errorf("%s: %w (%d fetched)", a.name, err, len(pools))
		}
		log.Debug().Str("venue", a.name).Int("pools", n).Int("fetched", len(pools)).Msg("pools replaced")
		return nil, nil
	})
	return err
}

// GetPrice 在所有匹配池中取输出最大的报价
func (a *Adapter) GetPrice(_ context.Context, in, out model.TokenID, amount float64) (model.Quote, bool) {
	var (
		best  model.Quote
		found bool
	)
	for _, p := range a.pools.Matching(in, out) {
		q, ok := dsvc.Quote(p, in, amount)
		if !ok || q.OutputToken != out {
			continue
		}
		if !found || q.OutputAmount > best.OutputAmount {
			best, found = q, true
		}
	}
	return best, found
}

// HasPool 只看池是否存在；空池无法报价，由 GetPrice 过滤
func (a *Adapter) HasPool(x, y model.TokenID) bool {
	return a.pools.Has(x, y)
}

func (a *Adapter) Pools() []model.Pool {
	return a.pools.Snapshot()
}

// UpdatedAt 最近一次成功加载池的时间
func (a *Adapter) UpdatedAt() time.Time {
	return a.pools.UpdatedAt()
}

// ExecuteSwap 模拟执行，返回模拟签名；真实上链由执行层负责
func (a *Adapter) ExecuteSwap(ctx context.Context, in, out model.TokenID, amount float64) (string, error) {
	q, ok := a.GetPrice(ctx, in, out, amount)
	if !ok {
		return "", fmt.Errorf("%s %s->%s: %w", a.name, in, out, ErrNoRoute)
	}
	sig := fmt.Sprintf("Simulated%sSwap_%d", title(a.name), a.now().Unix())
	log.Info().
		Str("venue", a.name).
		Str("in", string(in)).
		Str("out", string(out)).
		Float64("amount", amount).
		Float64("expected_out", q.OutputAmount).
		Str("signature", sig).
		Msg("simulated swap")
	return sig, nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var _ port.VenueAdapter = (*Adapter)(nil)
