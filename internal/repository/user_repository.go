package repository

import (
	"errors"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
)

// UserRepository 员工数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	ListActive() ([]models.User, error)
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 员工仓储实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建员工仓储
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 按ID获取员工
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建员工
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// ListActive 获取在职员工
func (r *GormUserRepository) ListActive() ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("status = ?", constants.StaffStatusActive).Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
