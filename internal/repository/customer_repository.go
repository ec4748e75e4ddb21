package repository

import (
	"errors"
	"strings"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByIDForUpdate(id uint) (*models.Customer, error)
	Create(customer *models.Customer) error
	List(keyword string, page, pageSize int) ([]models.Customer, int64, error)
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 客户仓储实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓储
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID 按ID获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByIDForUpdate 加锁获取客户，用作客户级财务写操作的互斥点
func (r *GormCustomerRepository) GetByIDForUpdate(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// List 分页查询客户
func (r *GormCustomerRepository) List(keyword string, page, pageSize int) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(r.db, "name", "phone")
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var customers []models.Customer
	if err := applyPagination(query, page, pageSize).Order("id desc").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
