package cache

import (
	"context"
	"time"
)

const currencyTableKey = "finance:currency_table"

// CurrencyRateSnapshot 币种汇率快照，汇率为空时用空串表示
type CurrencyRateSnapshot struct {
	Code         string `json:"code"`
	FixedRate    string `json:"fixed_rate"`
	FloatingRate string `json:"floating_rate"`
	IsBase       bool   `json:"is_base"`
}

// GetCurrencyTable 读取汇率表缓存
func GetCurrencyTable(ctx context.Context) ([]CurrencyRateSnapshot, bool, error) {
	var items []CurrencyRateSnapshot
	hit, err := GetJSON(ctx, currencyTableKey, &items)
	if err != nil || !hit {
		return nil, hit, err
	}
	return items, true, nil
}

// SetCurrencyTable 写入汇率表缓存
func SetCurrencyTable(ctx context.Context, items []CurrencyRateSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return SetJSON(ctx, currencyTableKey, items, ttl)
}

// DelCurrencyTable 汇率变更后清理缓存
func DelCurrencyTable(ctx context.Context) error {
	return Del(ctx, currencyTableKey)
}
