package model

import (
	"fmt"
	"time"
)

// Quote 单次模拟交易结果，每次请求重新计算，不缓存
type Quote struct {
	InputToken     TokenID `json:"input_token"`
	OutputToken    TokenID `json:"output_token"`
	InputAmount    float64 `json:"input_amount"`
	OutputAmount   float64 `json:"output_amount"`
	PriceImpactPct float64 `json:"price_impact_pct"`
	Fee            float64 `json:"fee"`
}

// Opportunity 跨交易所往返套利候选
// VenueA 上 TokenA -> TokenB，再到 VenueB 上 TokenB -> TokenA
type Opportunity struct {
	ID                 string    `json:"id"`
	VenueA             string    `json:"venue_a"`
	VenueB             string    `json:"venue_b"`
	TokenA             TokenID   `json:"token_a"`
	TokenB             TokenID   `json:"token_b"`
	InputAmount        float64   `json:"input_amount"`
	IntermediateAmount float64   `json:"intermediate_amount"`
	OutputAmount       float64   `json:"output_amount"`
	GrossProfitPct     float64   `json:"gross_profit_pct"`
	ProfitPct          float64   `json:"profit_pct"` // 扣除手续费后的净利润率
	Leg1               Quote     `json:"leg1"`
	Leg2               Quote     `json:"leg2"`
	DiscoveredAt       time.Time `json:"discovered_at"`
}

// Key 去重标识：交易所对 + 代币对 + 两位小数的利润率
func (o Opportunity) Key() OpportunityKey {
	return OpportunityKey(fmt.Sprintf("%s-%s-%s-%s-%.2f", o.VenueA, o.VenueB, o.TokenA, o.TokenB, o.ProfitPct))
}

// RoundTripRatio 往返输出 / 输入
func (o Opportunity) RoundTripRatio() float64 {
	if o.InputAmount <= 0 {
		return 0
	}
	return o.OutputAmount / o.InputAmount
}

// OpportunityKey 机会去重键
type OpportunityKey string

// StatsSnapshot 统计快照（只读视图）
type StatsSnapshot struct {
	Scans              int64   `json:"scans"`
	TotalOpportunities int64   `json:"total_opportunities"`
	TotalTrades        int64   `json:"total_trades"`
	TotalProfit        float64 `json:"total_profit"`
	TotalGas           float64 `json:"total_gas"`
	BestProfit         float64 `json:"best_profit"`
	AvgProfit          float64 `json:"avg_profit"`
	LastScanTime       float64 `json:"last_scan_time"` // 秒
}
