package repository

import (
	"errors"
	"strings"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
)

// CurrencyRepository 币种汇率数据访问接口
type CurrencyRepository interface {
	ListActive() ([]models.Currency, error)
	GetByCode(code string) (*models.Currency, error)
	Save(currency *models.Currency) error
	CreateHistory(history *models.ExchangeRateHistory) error
	ListHistory(filter ExchangeRateHistoryFilter) ([]models.ExchangeRateHistory, int64, error)
	WithTx(tx *gorm.DB) *GormCurrencyRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormCurrencyRepository GORM 币种仓储实现
type GormCurrencyRepository struct {
	db *gorm.DB
}

// NewCurrencyRepository 创建币种仓储
func NewCurrencyRepository(db *gorm.DB) *GormCurrencyRepository {
	return &GormCurrencyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCurrencyRepository) WithTx(tx *gorm.DB) *GormCurrencyRepository {
	if tx == nil {
		return r
	}
	return &GormCurrencyRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCurrencyRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// ListActive 获取启用币种
func (r *GormCurrencyRepository) ListActive() ([]models.Currency, error) {
	var items []models.Currency
	if err := r.db.Where("status = ?", "active").Order("sort_order asc, code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByCode 按代码获取币种
func (r *GormCurrencyRepository) GetByCode(code string) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var item models.Currency
	if err := r.db.Where("code = ?", code).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Save 保存币种
func (r *GormCurrencyRepository) Save(currency *models.Currency) error {
	return r.db.Save(currency).Error
}

// CreateHistory 写入汇率变更历史
func (r *GormCurrencyRepository) CreateHistory(history *models.ExchangeRateHistory) error {
	return r.db.Create(history).Error
}

// ListHistory 分页查询汇率历史
func (r *GormCurrencyRepository) ListHistory(filter ExchangeRateHistoryFilter) ([]models.ExchangeRateHistory, int64, error) {
	query := r.db.Model(&models.ExchangeRateHistory{})
	if code := strings.ToUpper(strings.TrimSpace(filter.CurrencyCode)); code != "" {
		query = query.Where("currency_code = ?", code)
	}
	if filter.RateType != "" {
		query = query.Where("rate_type = ?", filter.RateType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.ExchangeRateHistory
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
