package service

import (
	"math"

	"dexarb/internal/domain/model"
)

// DefaultProfitSlippage 利润估算使用的固定滑点（0.5%）
const DefaultProfitSlippage = 0.005

// Quote 恒定乘积报价，手续费从输入侧扣除
// 所有交易所共用同一公式；曲线差异属于各 adapter 的数据层
func Quote(pool model.Pool, input model.TokenID, amount float64) (model.Quote, bool) {
	if !pool.Contains(input) || pool.Empty() {
		return model.Quote{}, false
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return model.Quote{}, false
	}

	inReserve, outReserve := pool.ReserveA, pool.ReserveB
	output := pool.TokenB
	if input != pool.TokenA {
		inReserve, outReserve = pool.ReserveB, pool.ReserveA
		output = pool.TokenA
	}

	net := amount * (1 - pool.FeeRate)
	out := (outReserve * net) / (inReserve + net)

	return model.Quote{
		InputToken:     input,
		OutputToken:    output,
		InputAmount:    amount,
		OutputAmount:   out,
		PriceImpactPct: amount / inReserve * 100,
		Fee:            pool.FeeRate * amount,
	}, true
}

// ProfitPct 往返利润率（百分比）
// 第一腿输出按滑点折减，第二腿输出按滑点加成，再扣除两腿手续费
func ProfitPct(leg1Out, leg2Out, fees, slippage float64) (gross, net float64) {
	adj1 := leg1Out * (1 - slippage)
	adj2 := leg2Out * (1 + slippage)
	if adj1 <= 0 {
		return 0, 0
	}
	gross = (adj2/adj1 - 1) * 100
	net = gross - fees*100
	return gross, net
}

// ProfitBand 利润率分级：+1 达到阈值，-1 亏损，0 介于两者之间
func ProfitBand(profitPct, threshold float64) int {
	if profitPct >= threshold {
		return +1
	}
	if profitPct < 0 {
		return -1
	}
	return 0
}
