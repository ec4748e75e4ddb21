package service

import (
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"

	"github.com/shopspring/decimal"
)

// FinanceOptions 财务核心运行参数
type FinanceOptions struct {
	DefaultReceiptCurrency string
	AmountTolerance        decimal.Decimal
	SalarySyncOnReceipt    bool
	// Now 可替换的时钟，测试中固定“今天”
	Now func() time.Time
}

func (o FinanceOptions) normalized() FinanceOptions {
	o.DefaultReceiptCurrency = strings.ToUpper(strings.TrimSpace(o.DefaultReceiptCurrency))
	if o.DefaultReceiptCurrency == "" {
		o.DefaultReceiptCurrency = constants.CurrencyTWD
	}
	if o.AmountTolerance.IsNegative() || o.AmountTolerance.IsZero() {
		o.AmountTolerance = decimal.NewFromFloat(0.01)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o FinanceOptions) today() time.Time {
	return truncateDay(o.Now().UTC())
}
