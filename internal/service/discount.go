package service

import (
	"strings"

	"github.com/lingxi-works/fincore/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	oneHundred = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
)

// Discount 合同折扣，实现只有 NoDiscount、AmountDiscount 与 RateDiscount
type Discount interface {
	// Apply 计算折后净额，结果不为负
	Apply(gross decimal.Decimal) decimal.Decimal
	// Type 折扣类型存储值
	Type() string
	// Value 折扣值存储值
	Value() decimal.NullDecimal
}

// NoDiscount 无折扣
type NoDiscount struct{}

// Apply 原价即净额
func (NoDiscount) Apply(gross decimal.Decimal) decimal.Decimal { return gross }

// Type 折扣类型
func (NoDiscount) Type() string { return constants.DiscountTypeNone }

// Value 折扣值
func (NoDiscount) Value() decimal.NullDecimal { return decimal.NullDecimal{} }

// AmountDiscount 直减金额
type AmountDiscount struct {
	Amount decimal.Decimal
}

// Apply 原价减去折扣金额，最低为 0
func (d AmountDiscount) Apply(gross decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, gross.Sub(d.Amount))
}

// Type 折扣类型
func (AmountDiscount) Type() string { return constants.DiscountTypeAmount }

// Value 折扣值
func (d AmountDiscount) Value() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Amount, Valid: true}
}

// RateDiscount 按比例折扣，Rate 已归一化到 (0,1]
type RateDiscount struct {
	Rate decimal.Decimal
}

// Apply 原价乘以折扣比例
func (d RateDiscount) Apply(gross decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, gross.Mul(d.Rate))
}

// Type 折扣类型
func (RateDiscount) Type() string { return constants.DiscountTypeRate }

// Value 折扣值
func (d RateDiscount) Value() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Rate, Valid: true}
}

// parseDiscount 校验折扣类型与值；比例在 (1,100] 时按百分数处理
func parseDiscount(discountType string, value decimal.Decimal) (Discount, error) {
	switch strings.ToLower(strings.TrimSpace(discountType)) {
	case constants.DiscountTypeNone, "none":
		return NoDiscount{}, nil
	case constants.DiscountTypeAmount:
		if !value.IsPositive() {
			return nil, newValidationError("discount_value", "discount value must be greater than 0")
		}
		return AmountDiscount{Amount: value.Round(2)}, nil
	case constants.DiscountTypeRate:
		if !value.IsPositive() {
			return nil, newValidationError("discount_value", "discount value must be greater than 0")
		}
		rate := value
		if rate.GreaterThan(one) && rate.LessThanOrEqual(oneHundred) {
			rate = rate.Div(oneHundred)
		}
		if !rate.IsPositive() || rate.GreaterThan(one) {
			return nil, newValidationError("discount_value", "discount rate must be within (0,1] or (0,100]")
		}
		return RateDiscount{Rate: rate}, nil
	default:
		return nil, newValidationError("discount_type", "discount type must be amount or rate")
	}
}

// netAmount 计算合同净额：折扣不计入时净额等于原价
func netAmount(gross decimal.Decimal, discount Discount, inCalc bool) decimal.Decimal {
	if !inCalc {
		return gross.Round(2)
	}
	return discount.Apply(gross).Round(2)
}
