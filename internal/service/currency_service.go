package service

import (
	"context"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/cache"
	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateKind 汇率类型
type RateKind string

const (
	RateFixed    RateKind = constants.RateTypeFixed
	RateFloating RateKind = constants.RateTypeFloating
)

// CurrencyRate 单个币种的汇率（1 单位本位币 = Rate 单位该币种）
type CurrencyRate struct {
	Fixed    decimal.NullDecimal
	Floating decimal.NullDecimal
}

// RateTable 汇率表，按币种代码索引
type RateTable map[string]CurrencyRate

// Rate 取指定类型汇率，缺失时回退到另一类型，仍缺失返回 1
func (t RateTable) Rate(code string, kind RateKind) decimal.Decimal {
	rate, ok := t[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return decimal.NewFromInt(1)
	}
	primary, secondary := rate.Fixed, rate.Floating
	if kind == RateFloating {
		primary, secondary = rate.Floating, rate.Fixed
	}
	if primary.Valid && primary.Decimal.IsPositive() {
		return primary.Decimal
	}
	if secondary.Valid && secondary.Decimal.IsPositive() {
		return secondary.Decimal
	}
	return decimal.NewFromInt(1)
}

// Convert 币种换算：先折算为本位币（除以源汇率）再乘目标汇率，不做舍入
func Convert(amount decimal.Decimal, from, to string, kind RateKind, table RateTable) decimal.Decimal {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to || amount.IsZero() {
		return amount
	}
	return amount.Div(table.Rate(from, kind)).Mul(table.Rate(to, kind))
}

// CurrencyService 币种汇率服务
type CurrencyService struct {
	repo         repository.CurrencyRepository
	homeCurrency string
	cacheTTL     time.Duration
}

// NewCurrencyService 创建币种汇率服务
func NewCurrencyService(repo repository.CurrencyRepository, homeCurrency string, cacheTTL time.Duration) *CurrencyService {
	homeCurrency = strings.ToUpper(strings.TrimSpace(homeCurrency))
	if homeCurrency == "" {
		homeCurrency = constants.CurrencyCNY
	}
	return &CurrencyService{repo: repo, homeCurrency: homeCurrency, cacheTTL: cacheTTL}
}

// HomeCurrency 本位币
func (s *CurrencyService) HomeCurrency() string {
	return s.homeCurrency
}

// Table 加载汇率表，优先读取缓存
func (s *CurrencyService) Table(ctx context.Context) (RateTable, error) {
	if snapshots, hit, err := cache.GetCurrencyTable(ctx); err != nil {
		logger.Warnw("currency_table_cache_get_failed", "error", err)
	} else if hit {
		return tableFromSnapshots(snapshots), nil
	}

	items, err := s.repo.ListActive()
	if err != nil {
		return nil, err
	}
	table := make(RateTable, len(items))
	snapshots := make([]cache.CurrencyRateSnapshot, 0, len(items))
	for _, item := range items {
		table[item.Code] = CurrencyRate{Fixed: item.FixedRate, Floating: item.FloatingRate}
		snapshots = append(snapshots, cache.CurrencyRateSnapshot{
			Code:         item.Code,
			FixedRate:    nullDecimalString(item.FixedRate),
			FloatingRate: nullDecimalString(item.FloatingRate),
			IsBase:       item.IsBase,
		})
	}
	if err := cache.SetCurrencyTable(ctx, snapshots, s.cacheTTL); err != nil {
		logger.Warnw("currency_table_cache_set_failed", "error", err)
	}
	return table, nil
}

// TableTx 在事务内直接读取汇率表（不走缓存）
func (s *CurrencyService) TableTx(tx *gorm.DB) (RateTable, error) {
	items, err := s.repo.WithTx(tx).ListActive()
	if err != nil {
		return nil, err
	}
	table := make(RateTable, len(items))
	for _, item := range items {
		table[item.Code] = CurrencyRate{Fixed: item.FixedRate, Floating: item.FloatingRate}
	}
	return table, nil
}

// List 启用币种列表
func (s *CurrencyService) List() ([]models.Currency, error) {
	return s.repo.ListActive()
}

// UpdateRateInput 汇率调整输入
type UpdateRateInput struct {
	Code     string
	RateType RateKind
	Rate     decimal.Decimal
	ActorID  uint
}

// UpdateRate 调整汇率并记录历史
func (s *CurrencyService) UpdateRate(ctx context.Context, input UpdateRateInput) (*models.Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if input.RateType != RateFixed && input.RateType != RateFloating {
		return nil, newValidationError("rate_type", "rate_type must be fixed or floating")
	}
	if !input.Rate.IsPositive() {
		return nil, newValidationError("rate", "rate must be greater than 0")
	}
	rate := input.Rate.Round(6)

	var updated *models.Currency
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		currency, err := repo.GetByCode(code)
		if err != nil {
			return err
		}
		if currency == nil {
			return &NotFoundError{Entity: "currency", ID: code}
		}
		if currency.IsBase && !rate.Equal(decimal.NewFromInt(1)) {
			return newValidationError("rate", "base currency rate is fixed at 1")
		}
		value := decimal.NullDecimal{Decimal: rate, Valid: true}
		if input.RateType == RateFixed {
			currency.FixedRate = value
		} else {
			currency.FloatingRate = value
		}
		if err := repo.Save(currency); err != nil {
			return err
		}
		if err := repo.CreateHistory(&models.ExchangeRateHistory{
			CurrencyCode: code,
			RateType:     string(input.RateType),
			Rate:         rate,
			CreatedBy:    input.ActorID,
		}); err != nil {
			return err
		}
		updated = currency
		return nil
	})
	if err != nil {
		return nil, wrapTxError("update exchange rate", err)
	}
	if err := cache.DelCurrencyTable(ctx); err != nil {
		logger.Warnw("currency_table_cache_del_failed", "error", err)
	}
	logger.Infow("exchange_rate_updated", "code", code, "rate_type", input.RateType, "rate", rate.String(), "actor_id", input.ActorID)
	return updated, nil
}

// ListHistory 汇率历史
func (s *CurrencyService) ListHistory(filter repository.ExchangeRateHistoryFilter) ([]models.ExchangeRateHistory, int64, error) {
	return s.repo.ListHistory(filter)
}

func tableFromSnapshots(items []cache.CurrencyRateSnapshot) RateTable {
	table := make(RateTable, len(items))
	for _, item := range items {
		table[item.Code] = CurrencyRate{
			Fixed:    parseNullDecimal(item.FixedRate),
			Floating: parseNullDecimal(item.FloatingRate),
		}
	}
	return table
}

func nullDecimalString(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func parseNullDecimal(raw string) decimal.NullDecimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// normalizeCurrency 规范化币种代码，空值取默认值，非法值报错
func normalizeCurrency(field, raw, fallback string, allowed []string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		code = fallback
	}
	for _, item := range allowed {
		if item == code {
			return code, nil
		}
	}
	return "", newValidationError(field, "unsupported currency %q", raw)
}
