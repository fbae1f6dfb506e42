package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	dsvc "dexarb/internal/domain/service"
)

// ArbitrageCalculator 评估单个（交易所对, 代币对）的往返套利
type ArbitrageCalculator struct {
	referenceAmount float64 // 第一腿输入数量
	minProfitPct    float64 // 候选门槛（净利润率）
	slippage        float64 // 利润估算滑点
	now             func() time.Time
}

func NewArbitrageCalculator(referenceAmount, minProfitPct float64) *ArbitrageCalculator {
	return &ArbitrageCalculator{
		referenceAmount: referenceAmount,
		minProfitPct:    minProfitPct,
		slippage:        dsvc.DefaultProfitSlippage,
		now:             time.Now,
	}
}

// Evaluate 在 first 上 a -> b，再到 second 上 b -> a
// 任一腿无报价返回 false；报价币种与请求不符返回错误
func (c *ArbitrageCalculator) Evaluate(ctx context.Context, first, second port.VenueAdapter, a, b model.TokenID) (model.Opportunity, bool, error) {
	q1, ok := first.GetPrice(ctx, a, b, c.referenceAmount)
	if !ok {
		return model.Opportunity{}, false, nil
	}
	if q1.InputToken != a || q1.OutputToken != b {
		return model.Opportunity{}, false, fmt.Errorf("%s quoted %s->%s for %s->%s", first.Name(), q1.InputToken, q1.OutputToken, a, b)
	}

	q2, ok := second.GetPrice(ctx, b, a, q1.OutputAmount)
	if !ok {
		return model.Opportunity{}, false, nil
	}
	if q2.InputToken != b || q2.OutputToken != a {
		return model.Opportunity{}, false, fmt.Errorf("%s quoted %s->%s for %s->%s", second.Name(), q2.InputToken, q2.OutputToken, b, a)
	}

	gross, net := dsvc.ProfitPct(q1.OutputAmount, q2.OutputAmount, q1.Fee+q2.Fee, c.slippage)
	if net <= c.minProfitPct {
		return model.Opportunity{}, false, nil
	}

	return model.Opportunity{
		ID:                 uuid.NewString(),
		VenueA:             first.Name(),
		VenueB:             second.Name(),
		TokenA:             a,
		TokenB:             b,
		InputAmount:        c.referenceAmount,
		IntermediateAmount: q1.OutputAmount,
		OutputAmount:       q2.OutputAmount,
		GrossProfitPct:     gross,
		ProfitPct:          net,
		Leg1:               q1,
		Leg2:               q2,
		DiscoveredAt:       c.now(),
	}, true, nil
}
