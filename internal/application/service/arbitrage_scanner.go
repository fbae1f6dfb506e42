package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// 扫描默认参数
const (
	DefaultScanWorkers      = 16
	DefaultTaskTimeout      = 2 * time.Second
	DefaultMaxOpportunities = 10
)

// ScannerConfig 扫描器配置
type ScannerConfig struct {
	Workers          int
	TaskTimeout      time.Duration
	MaxOpportunities int
	ReverseLegs      bool // 同时调度 V2 先、V1 后的方向
}

// TokenPair 有序代币对
type TokenPair struct {
	A, B model.TokenID
}

// ScanResult 一轮扫描的原始结果（未校验）
type ScanResult struct {
	Opportunities []model.Opportunity
	Tasks         int
	Failed        int
	Duration      time.Duration
}

// ArbitrageScanner 跨交易所往返套利扫描器
type ArbitrageScanner struct {
	venues []port.VenueAdapter
	calc   *ArbitrageCalculator
	cfg    ScannerConfig
}

func NewArbitrageScanner(venues []port.VenueAdapter, calc *ArbitrageCalculator, cfg ScannerConfig) *ArbitrageScanner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultScanWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.MaxOpportunities <= 0 {
		cfg.MaxOpportunities = DefaultMaxOpportunities
	}
	return &ArbitrageScanner{venues: venues, calc: calc, cfg: cfg}
}

// ValidPairs 所有交易所非空池的代币对（两个方向），排序后返回
func ValidPairs(venues []port.VenueAdapter) []TokenPair {
	set := make(map[TokenPair]struct{})
	for _, v := range venues {
		for _, p := range v.Pools() {
			if p.Empty() {
				continue
			}
			set[TokenPair{p.TokenA, p.TokenB}] = struct{}{}
			set[TokenPair{p.TokenB, p.TokenA}] = struct{}{}
		}
	}

	pairs := make([]TokenPair, 0, len(set))
	for p := range set {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

type scanTask struct {
	first, second port.VenueAdapter
	pair          TokenPair
}

func (s *ArbitrageScanner) tasks() []scanTask {
	pairs := ValidPairs(s.venues)
	var out []scanTask
	for i := 0; i < len(s.venues); i++ {
		for j := i + 1; j < len(s.venues); j++ {
			v1, v2 := s.venues[i], s.venues[j]
			for _, p := range pairs {
				out = append(out, scanTask{first: v1, second: v2, pair: p})
				if s.cfg.ReverseLegs {
					out = append(out, scanTask{first: v2, second: v1, pair: p})
				}
			}
		}
	}
	return out
}

// Scan 执行一轮扫描
// 单个任务失败、超时或 panic 只丢弃该任务，不影响其它任务
func (s *ArbitrageScanner) Scan(ctx context.Context) ScanResult {
	start := time.Now()
	tasks := s.tasks()

	var (
		mu     sync.Mutex
		found  []model.Opportunity
		failed int
	)

	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var g errgroup.Group

	for _, t := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx 已取消：不再调度新任务，已调度的照常收集
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			opp, ok, err := s.runTask(ctx, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Debug().
					Err(err).
					Str("venue_a", t.first.Name()).
					Str("venue_b", t.second.Name()).
					Str("token_a", string(t.pair.A)).
					Str("token_b", string(t.pair.B)).
					Msg("scan task dropped")
				return nil
			}
			if ok {
				found = append(found, opp)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ProfitPct > found[j].ProfitPct
	})
	if len(found) > s.cfg.MaxOpportunities {
		found = found[:s.cfg.MaxOpportunities]
	}

	return ScanResult{
		Opportunities: found,
		Tasks:         len(tasks),
		Failed:        failed,
		Duration:      time.Since(start),
	}
}

type taskOutcome struct {
	opp model.Opportunity
	ok  bool
	err error
}

func (s *ArbitrageScanner) runTask(ctx context.Context, t scanTask) (model.Opportunity, bool, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	done := make(chan taskOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		opp, ok, err := s.calc.Evaluate(tctx, t.first, t.second, t.pair.A, t.pair.B)
		done <- taskOutcome{opp: opp, ok: ok, err: err}
	}()

	select {
	case out := <-done:
		return out.opp, out.ok, out.err
	case <-tctx.Done():
		return model.Opportunity{}, false, fmt.Errorf("task: %w", tctx.Err())
	}
}
