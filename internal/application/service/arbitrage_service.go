package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	dsvc "dexarb/internal/domain/service"
)

// ErrUnknownVenue RefreshVenue 收到未注册的交易所名称
var ErrUnknownVenue = errors.New("unknown venue")

// ArbitrageDeps 扫描周期依赖；Repo / Publisher / Metrics 可为空
type ArbitrageDeps struct {
	Venues    []port.VenueAdapter
	Scanner   *ArbitrageScanner
	Validator *dsvc.OpportunityValidator
	Stats     *dsvc.StatsAggregator
	Repo      port.Repository
	Publisher port.OpportunityPublisher
	Metrics   port.MetricsRecorder
}

// ArbitrageService 一轮扫描 = 扫描 -> 校验 -> 统计 -> 持久化/推送
// 扫描周期互斥，不会重叠
type ArbitrageService struct {
	mu   sync.Mutex
	deps ArbitrageDeps
}

func NewArbitrageService(deps ArbitrageDeps) *ArbitrageService {
	if deps.Stats == nil {
		deps.Stats = dsvc.NewStatsAggregator()
	}
	if deps.Validator == nil {
		deps.Validator = dsvc.NewOpportunityValidator(dsvc.ValidatorConfig{}, nil)
	}
	return &ArbitrageService{deps: deps}
}

// Venues 已注册的交易所（注册顺序）
func (as *ArbitrageService) Venues() []port.VenueAdapter {
	return as.deps.Venues
}

// Scan 执行一轮完整扫描，返回按净利润率降序的有效机会
// 持久化与推送失败只记录日志，不影响本轮结果
func (as *ArbitrageService) Scan(ctx context.Context) ([]model.Opportunity, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	raw := as.deps.Scanner.Scan(ctx)
	res := as.deps.Validator.Validate(ctx, raw.Opportunities)

	as.deps.Stats.RecordScan(raw.Duration.Seconds())
	for range res.Accepted {
		as.deps.Stats.RecordOpportunityFound()
	}

	if as.deps.Metrics != nil {
		rejected := make(map[string]int, len(res.Rejected))
		for reason, n := range res.Rejected {
			rejected[string(reason)] = n
		}
		as.deps.Metrics.ObserveScan(raw.Duration, len(res.Accepted), rejected)
		as.deps.Metrics.ObserveStats(as.deps.Stats.Snapshot())
	}

	log.Debug().
		Int("tasks", raw.Tasks).
		Int("failed", raw.Failed).
		Int("candidates", len(raw.Opportunities)).
		Int("accepted", len(res.Accepted)).
		Dur("took", raw.Duration).
		Msg("scan cycle done")

	if len(res.Accepted) == 0 {
		return res.Accepted, nil
	}

	if as.deps.Repo != nil {
		if err := as.deps.Repo.SaveOpportunities(ctx, res.Accepted); err != nil {
			log.Error().Err(err).Int("count", len(res.Accepted)).Msg("save opportunities failed")
		}
	}
	if as.deps.Publisher != nil {
		if err := as.deps.Publisher.Publish(ctx, res.Accepted); err != nil {
			log.Error().Err(err).Int("count", len(res.Accepted)).Msg("publish opportunities failed")
		}
	}

	for i, o := range res.Accepted {
		if i >= 5 {
			break
		}
		log.Info().
			Int("rank", i+1).
			Str("route", o.VenueA+"->"+o.VenueB).
			Str("token_a", string(o.TokenA)).
			Str("token_b", string(o.TokenB)).
			Float64("profit_pct", o.ProfitPct).
			Msg("arbitrage opportunity")
	}

	return res.Accepted, nil
}

// Stats 当前统计快照
func (as *ArbitrageService) Stats() model.StatsSnapshot {
	return as.deps.Stats.Snapshot()
}

// RecordTrade 执行层回报交易结果
func (as *ArbitrageService) RecordTrade(profit, gasCost float64, success bool) {
	as.deps.Stats.RecordTrade(profit, gasCost, success)
}

// RefreshAll 并发刷新所有交易所，返回失败数量
// 单个交易所失败只记录告警，保留其旧池
func (as *ArbitrageService) RefreshAll(ctx context.Context) int {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	for _, v := range as.deps.Venues {
		g.Go(func() error {
			if err := as.refresh(ctx, v); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// RefreshVenue 刷新单个交易所（池变更事件触发）
func (as *ArbitrageService) RefreshVenue(ctx context.Context, name string) error {
	for _, v := range as.deps.Venues {
		if v.Name() == name {
			return as.refresh(ctx, v)
		}
	}
	return ErrUnknownVenue
}

func (as *ArbitrageService) refresh(ctx context.Context, v port.VenueAdapter) error {
	start := time.Now()
	err := v.RefreshPools(ctx)
	if as.deps.Metrics != nil {
		as.deps.Metrics.ObserveRefresh(v.Name(), len(v.Pools()), err)
	}
	if err != nil {
		log.Warn().Err(err).Str("venue", v.Name()).Msg("refresh pools failed, keeping previous pools")
		return err
	}
	log.Debug().Str("venue", v.Name()).Int("pools", len(v.Pools())).Dur("took", time.Since(start)).Msg("pools refreshed")
	return nil
}
