package service

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"dexarb/internal/domain/model"
)

// RejectReason 机会被拒绝的原因
type RejectReason string

const (
	RejectBelowMin     RejectReason = "below_min_profit"
	RejectAboveCeiling RejectReason = "above_profit_ceiling"
	RejectUnrealistic  RejectReason = "unrealistic_output"
	RejectPriceImpact  RejectReason = "price_impact"
	RejectInvalid      RejectReason = "invalid_data"
	RejectDuplicate    RejectReason = "duplicate"
)

// 默认校验参数
const (
	DefaultMaxProfitPct      = 5.0
	DefaultMaxRoundTripRatio = 1.1
)

// ValidatorConfig 校验阈值
type ValidatorConfig struct {
	MinProfitPct         float64
	MaxProfitPct         float64 // 超过视为数据错误
	MaxRoundTripRatio    float64 // 往返输出/输入上限
	SlippageTolerancePct float64 // 单腿价格冲击上限（百分比）
}

// ValidationResult 校验结果
type ValidationResult struct {
	Accepted []model.Opportunity
	Rejected map[RejectReason]int
}

// OpportunityValidator 机会校验器 - 过滤不现实的机会并去重
type OpportunityValidator struct {
	cfg  ValidatorConfig
	seen SeenSet
}

// NewOpportunityValidator 创建校验器；零值阈值使用默认值
func NewOpportunityValidator(cfg ValidatorConfig, seen SeenSet) *OpportunityValidator {
	if cfg.MaxProfitPct <= 0 {
		cfg.MaxProfitPct = DefaultMaxProfitPct
	}
	if cfg.MaxRoundTripRatio <= 0 {
		cfg.MaxRoundTripRatio = DefaultMaxRoundTripRatio
	}
	if seen == nil {
		seen, _ = NewMemorySeenSet(0, 0)
	}
	return &OpportunityValidator{cfg: cfg, seen: seen}
}

// Validate 按输入顺序返回通过校验的机会（上游已排序）
func (v *OpportunityValidator) Validate(ctx context.Context, opps []model.Opportunity) ValidationResult {
	res := ValidationResult{
		Accepted: make([]model.Opportunity, 0, len(opps)),
		Rejected: make(map[RejectReason]int),
	}

	for _, o := range opps {
		if reason, ok := v.Check(o); !ok {
			res.Rejected[reason]++
			continue
		}

		fresh, err := v.seen.MarkIfAbsent(ctx, o.Key())
		if err != nil {
			// 去重存储不可用时放行
			log.Debug().Err(err).Str("key", string(o.Key())).Msg("seen-set unavailable, accepting")
			fresh = true
		}
		if !fresh {
			res.Rejected[RejectDuplicate]++
			continue
		}
		res.Accepted = append(res.Accepted, o)
	}
	return res
}

// Check 不涉及去重的合理性检查
func (v *OpportunityValidator) Check(o model.Opportunity) (RejectReason, bool) {
	if !finite(o.ProfitPct) || !finite(o.OutputAmount) || o.InputAmount <= 0 ||
		o.Leg1.OutputAmount <= 0 || o.Leg2.OutputAmount <= 0 {
		return RejectInvalid, false
	}

	if o.ProfitPct < v.cfg.MinProfitPct {
		return RejectBelowMin, false
	}

	if o.ProfitPct > v.cfg.MaxProfitPct {
		log.Debug().
			Str("venue_a", o.VenueA).
			Str("venue_b", o.VenueB).
			Float64("profit_pct", o.ProfitPct).
			Msg("unrealistic profit")
		return RejectAboveCeiling, false
	}

	if ratio := o.RoundTripRatio(); ratio > v.cfg.MaxRoundTripRatio {
		log.Debug().
			Str("venue_a", o.VenueA).
			Str("venue_b", o.VenueB).
			Float64("ratio", ratio).
			Msg("unrealistic output amount")
		return RejectUnrealistic, false
	}

	if o.Leg1.PriceImpactPct > v.cfg.SlippageTolerancePct || o.Leg2.PriceImpactPct > v.cfg.SlippageTolerancePct {
		return RejectPriceImpact, false
	}

	return "", true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
