package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContractRepository 合同数据访问接口
type ContractRepository interface {
	Create(contract *models.Contract) error
	UpdateFields(id uint, updates map[string]interface{}) error
	GetByID(id uint) (*models.Contract, error)
	GetByIDForUpdate(id uint) (*models.Contract, error)
	GetDetail(id uint) (*models.Contract, error)
	CountByCustomer(customerID uint) (int64, error)
	ContractNoExists(contractNo string) (bool, error)
	ListSignedBySales(salesUserID uint, from, to time.Time) ([]models.Contract, error)
	List(filter ContractListFilter) ([]models.Contract, int64, error)
	WithTx(tx *gorm.DB) *GormContractRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormContractRepository GORM 合同仓储实现
type GormContractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建合同仓储
func NewContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// WithTx 绑定事务
func (r *GormContractRepository) WithTx(tx *gorm.DB) *GormContractRepository {
	if tx == nil {
		return r
	}
	return &GormContractRepository{db: tx}
}

// Transaction 执行事务
func (r *GormContractRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建合同
func (r *GormContractRepository) Create(contract *models.Contract) error {
	return r.db.Omit(clause.Associations).Create(contract).Error
}

// UpdateFields 按字段更新合同（锁定比例不在可更新范围）
func (r *GormContractRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	delete(updates, "locked_commission_rate")
	delete(updates, "is_first_contract")
	return r.db.Model(&models.Contract{}).Where("id = ?", id).Updates(updates).Error
}

// GetByID 按ID获取合同
func (r *GormContractRepository) GetByID(id uint) (*models.Contract, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 加锁获取合同
func (r *GormContractRepository) GetByIDForUpdate(id uint) (*models.Contract, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// GetDetail 获取合同及分期
func (r *GormContractRepository) GetDetail(id uint) (*models.Contract, error) {
	query := r.db.Preload("Customer").Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq asc")
	})
	return r.first(query, id)
}

func (r *GormContractRepository) first(query *gorm.DB, id uint) (*models.Contract, error) {
	if id == 0 {
		return nil, nil
	}
	var contract models.Contract
	if err := query.First(&contract, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// CountByCustomer 统计客户名下合同数量
func (r *GormContractRepository) CountByCustomer(customerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Contract{}).Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ContractNoExists 合同编号是否已被占用
func (r *GormContractRepository) ContractNoExists(contractNo string) (bool, error) {
	contractNo = strings.TrimSpace(contractNo)
	if contractNo == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Contract{}).Where("contract_no = ?", contractNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListSignedBySales 查询销售在 [from, to) 内签约的全部合同
func (r *GormContractRepository) ListSignedBySales(salesUserID uint, from, to time.Time) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.Where("sales_user_id = ? AND sign_date >= ? AND sign_date < ?", salesUserID, from, to).
		Order("id asc").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// List 分页查询合同
func (r *GormContractRepository) List(filter ContractListFilter) ([]models.Contract, int64, error) {
	query := r.db.Model(&models.Contract{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.SalesUserID != 0 {
		query = query.Where("sales_user_id = ?", filter.SalesUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(r.db, "title", "contract_no")
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	if filter.SignedFrom != nil {
		query = query.Where("sign_date >= ?", *filter.SignedFrom)
	}
	if filter.SignedTo != nil {
		query = query.Where("sign_date < ?", *filter.SignedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var contracts []models.Contract
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id desc").Find(&contracts).Error; err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}
