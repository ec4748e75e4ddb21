package repository

import (
	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrepayRepository 预收款流水数据访问接口
type PrepayRepository interface {
	Create(entry *models.PrepayLedgerEntry) error
	Balance(customerID uint) (decimal.Decimal, error)
	LockEntries(customerID uint) ([]models.PrepayLedgerEntry, error)
	List(filter PrepayLedgerListFilter) ([]models.PrepayLedgerEntry, int64, error)
	WithTx(tx *gorm.DB) *GormPrepayRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormPrepayRepository GORM 预收款仓储实现
type GormPrepayRepository struct {
	db *gorm.DB
}

// NewPrepayRepository 创建预收款仓储
func NewPrepayRepository(db *gorm.DB) *GormPrepayRepository {
	return &GormPrepayRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPrepayRepository) WithTx(tx *gorm.DB) *GormPrepayRepository {
	if tx == nil {
		return r
	}
	return &GormPrepayRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPrepayRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 追加一条流水
func (r *GormPrepayRepository) Create(entry *models.PrepayLedgerEntry) error {
	return r.db.Create(entry).Error
}

// Balance 汇总客户预收余额 SUM(in) - SUM(out)
func (r *GormPrepayRepository) Balance(customerID uint) (decimal.Decimal, error) {
	if customerID == 0 {
		return decimal.Zero, nil
	}
	var sum decimal.NullDecimal
	row := r.db.Model(&models.PrepayLedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", constants.PrepayDirectionIn).
		Where("customer_id = ?", customerID).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

// LockEntries 锁定客户全部流水行并返回，用于在同一事务内重新推导余额
func (r *GormPrepayRepository) LockEntries(customerID uint) ([]models.PrepayLedgerEntry, error) {
	var entries []models.PrepayLedgerEntry
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		Order("id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List 分页查询流水
func (r *GormPrepayRepository) List(filter PrepayLedgerListFilter) ([]models.PrepayLedgerEntry, int64, error) {
	query := r.db.Model(&models.PrepayLedgerEntry{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.PrepayLedgerEntry
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
