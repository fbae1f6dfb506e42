package service

import (
	"sync"

	"dexarb/internal/domain/model"
)

// StatsAggregator 累计扫描、机会与交易统计
type StatsAggregator struct {
	mu sync.RWMutex

	scans         int64
	opportunities int64
	trades        int64
	totalProfit   float64
	totalGas      float64
	bestProfit    float64
	lastScan      float64
}

func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{}
}

// RecordScan 记录一次扫描耗时（秒）
func (s *StatsAggregator) RecordScan(durationSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	s.lastScan = durationSeconds
}

// RecordOpportunityFound 记录发现一个有效机会
func (s *StatsAggregator) RecordOpportunityFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities++
}

// RecordTrade 记录外部执行层回报的交易结果
// gas 总是计入；利润与成交数只在成功时计入
func (s *StatsAggregator) RecordTrade(profit, gasCost float64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalGas += gasCost
	if !success {
		return
	}
	s.trades++
	s.totalProfit += profit
	if s.trades == 1 || profit > s.bestProfit {
		s.bestProfit = profit
	}
}

// Snapshot 只读快照
func (s *StatsAggregator) Snapshot() model.StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	denom := s.opportunities
	if denom < 1 {
		denom = 1
	}
	return model.StatsSnapshot{
		Scans:              s.scans,
		TotalOpportunities: s.opportunities,
		TotalTrades:        s.trades,
		TotalProfit:        s.totalProfit,
		TotalGas:           s.totalGas,
		BestProfit:         s.bestProfit,
		AvgProfit:          s.totalProfit / float64(denom),
		LastScanTime:       s.lastScan,
	}
}
