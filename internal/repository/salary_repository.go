package repository

import (
	"errors"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SalaryRepository 月度薪资数据访问接口
type SalaryRepository interface {
	GetByUserMonth(userID uint, month string) (*models.SalaryMonthly, error)
	GetByUserMonthForUpdate(userID uint, month string) (*models.SalaryMonthly, error)
	Save(row *models.SalaryMonthly) error
	List(filter SalaryListFilter) ([]models.SalaryMonthly, int64, error)
	WithTx(tx *gorm.DB) *GormSalaryRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormSalaryRepository GORM 月度薪资仓储实现
type GormSalaryRepository struct {
	db *gorm.DB
}

// NewSalaryRepository 创建月度薪资仓储
func NewSalaryRepository(db *gorm.DB) *GormSalaryRepository {
	return &GormSalaryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSalaryRepository) WithTx(tx *gorm.DB) *GormSalaryRepository {
	if tx == nil {
		return r
	}
	return &GormSalaryRepository{db: tx}
}

// Transaction 执行事务
func (r *GormSalaryRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByUserMonth 查询员工月度薪资
func (r *GormSalaryRepository) GetByUserMonth(userID uint, month string) (*models.SalaryMonthly, error) {
	return r.first(r.db, userID, month)
}

// GetByUserMonthForUpdate 加锁查询员工月度薪资
func (r *GormSalaryRepository) GetByUserMonthForUpdate(userID uint, month string) (*models.SalaryMonthly, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID, month)
}

func (r *GormSalaryRepository) first(query *gorm.DB, userID uint, month string) (*models.SalaryMonthly, error) {
	var row models.SalaryMonthly
	if err := query.Where("user_id = ? AND month = ?", userID, month).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Save 新增或整行更新
func (r *GormSalaryRepository) Save(row *models.SalaryMonthly) error {
	return r.db.Omit(clause.Associations).Save(row).Error
}

// List 分页查询月度薪资
func (r *GormSalaryRepository) List(filter SalaryListFilter) ([]models.SalaryMonthly, int64, error) {
	query := r.db.Model(&models.SalaryMonthly{})
	if filter.Month != "" {
		query = query.Where("month = ?", filter.Month)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SalaryMonthly
	if err := applyPagination(query, filter.Page, filter.PageSize).Preload("User").Order("month desc, user_id asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
