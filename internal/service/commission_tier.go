package service

import (
	"sort"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"

	"github.com/shopspring/decimal"
)

// RuleKind 提成规则形态，实现只有 FixedRule 与 TieredRule
type RuleKind interface {
	// RateFor 按档位基数取比例，matched=false 表示未命中任何档位
	RateFor(base decimal.Decimal) (rate decimal.Decimal, matched bool)
	// FallbackRate 未命中或缺少锁定比例时的兜底比例
	FallbackRate() decimal.Decimal
	isRuleKind()
}

// FixedRule 固定比例
type FixedRule struct {
	Rate decimal.Decimal
}

// RateFor 固定比例与基数无关
func (r FixedRule) RateFor(decimal.Decimal) (decimal.Decimal, bool) { return r.Rate, true }

// FallbackRate 固定比例
func (r FixedRule) FallbackRate() decimal.Decimal { return r.Rate }

func (FixedRule) isRuleKind() {}

// Tier 阶梯区间 [From, To)，To 无效表示无上限
type Tier struct {
	From decimal.Decimal
	To   decimal.NullDecimal
	Rate decimal.Decimal
}

// Contains 基数是否落在区间内
func (t Tier) Contains(base decimal.Decimal) bool {
	if base.LessThan(t.From) {
		return false
	}
	return !t.To.Valid || base.LessThan(t.To.Decimal)
}

// TieredRule 阶梯比例，Tiers 按排序字段有序
type TieredRule struct {
	Tiers []Tier
}

// RateFor 取第一个包含基数的档位
func (r TieredRule) RateFor(base decimal.Decimal) (decimal.Decimal, bool) {
	for _, tier := range r.Tiers {
		if tier.Contains(base) {
			return tier.Rate, true
		}
	}
	return r.FallbackRate(), false
}

// FallbackRate 起点最低档位的比例，无档位为 0
func (r TieredRule) FallbackRate() decimal.Decimal {
	if len(r.Tiers) == 0 {
		return decimal.Zero
	}
	lowest := r.Tiers[0]
	for _, tier := range r.Tiers[1:] {
		if tier.From.LessThan(lowest.From) {
			lowest = tier
		}
	}
	return lowest.Rate
}

func (TieredRule) isRuleKind() {}

// ruleKindOf 将规则行转换为规则形态
func ruleKindOf(rule *models.CommissionRule) RuleKind {
	if rule == nil {
		return FixedRule{Rate: decimal.Zero}
	}
	if rule.RuleType != constants.CommissionRuleTier {
		return FixedRule{Rate: rule.FixedRate}
	}
	rows := make([]models.CommissionTier, len(rule.Tiers))
	copy(rows, rule.Tiers)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SortOrder != rows[j].SortOrder {
			return rows[i].SortOrder < rows[j].SortOrder
		}
		return rows[i].FromAmount.Decimal.LessThan(rows[j].FromAmount.Decimal)
	})
	tiers := make([]Tier, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, Tier{From: row.FromAmount.Decimal, To: row.ToAmount, Rate: row.Rate})
	}
	return TieredRule{Tiers: tiers}
}
