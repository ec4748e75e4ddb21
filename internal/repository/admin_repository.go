package repository

import (
	"errors"
	"time"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 后台操作员数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
	Update(admin *models.Admin) error
	TouchLastLogin(id uint, at time.Time) error
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建操作员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 按登录名查询，不存在返回 nil
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.first(r.db.Where("username = ?", username))
}

// GetByID 按 ID 查询，不存在返回 nil
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return r.first(r.db.Where("id = ?", id))
}

func (r *GormAdminRepository) first(query *gorm.DB) (*models.Admin, error) {
	var admin models.Admin
	if err := query.First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// List 操作员列表，不含密码字段
func (r *GormAdminRepository) List() ([]models.Admin, error) {
	admins := make([]models.Admin, 0)
	err := r.db.
		Select("id", "username", "user_id", "is_super", "token_version", "last_login_at", "created_at").
		Order("id ASC").
		Find(&admins).Error
	if err != nil {
		return nil, err
	}
	return admins, nil
}

// Update 保存操作员
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// TouchLastLogin 记录最后登录时间
func (r *GormAdminRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
