package repository

import (
	"errors"
	"strings"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRuleRepository 提成规则数据访问接口
type CommissionRuleRepository interface {
	Create(rule *models.CommissionRule) error
	Update(rule *models.CommissionRule) error
	GetByID(id uint) (*models.CommissionRule, error)
	ListActive() ([]models.CommissionRule, error)
	List() ([]models.CommissionRule, error)
	SetActive(id uint, active bool) error
	CreateAdjustment(adjust *models.CommissionAdjustment) error
	ListAdjustments(userID uint, month string) ([]models.CommissionAdjustment, error)
	WithTx(tx *gorm.DB) *GormCommissionRuleRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormCommissionRuleRepository GORM 提成规则仓储实现
type GormCommissionRuleRepository struct {
	db *gorm.DB
}

// NewCommissionRuleRepository 创建提成规则仓储
func NewCommissionRuleRepository(db *gorm.DB) *GormCommissionRuleRepository {
	return &GormCommissionRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRuleRepository) WithTx(tx *gorm.DB) *GormCommissionRuleRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRuleRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRuleRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func preloadRule(db *gorm.DB) *gorm.DB {
	return db.Preload("Tiers", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc, id asc")
	}).Preload("Scopes")
}

// Create 创建规则及阶梯、范围
func (r *GormCommissionRuleRepository) Create(rule *models.CommissionRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则主体，并整体替换阶梯与范围
func (r *GormCommissionRuleRepository) Update(rule *models.CommissionRule) error {
	if rule == nil || rule.ID == 0 {
		return nil
	}
	if err := r.db.Omit(clause.Associations).Save(rule).Error; err != nil {
		return err
	}
	if err := r.db.Where("rule_id = ?", rule.ID).Delete(&models.CommissionTier{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("rule_id = ?", rule.ID).Delete(&models.CommissionRuleScope{}).Error; err != nil {
		return err
	}
	for i := range rule.Tiers {
		rule.Tiers[i].ID = 0
		rule.Tiers[i].RuleID = rule.ID
	}
	for i := range rule.Scopes {
		rule.Scopes[i].ID = 0
		rule.Scopes[i].RuleID = rule.ID
	}
	if len(rule.Tiers) > 0 {
		if err := r.db.Create(&rule.Tiers).Error; err != nil {
			return err
		}
	}
	if len(rule.Scopes) > 0 {
		if err := r.db.Create(&rule.Scopes).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 获取规则（含阶梯、范围）
func (r *GormCommissionRuleRepository) GetByID(id uint) (*models.CommissionRule, error) {
	if id == 0 {
		return nil, nil
	}
	var rule models.CommissionRule
	if err := preloadRule(r.db).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListActive 获取全部启用规则
func (r *GormCommissionRuleRepository) ListActive() ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := preloadRule(r.db).Where("is_active = ?", true).Order("id asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// List 获取全部规则
func (r *GormCommissionRuleRepository) List() ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := preloadRule(r.db).Order("id desc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// SetActive 设置启用状态
func (r *GormCommissionRuleRepository) SetActive(id uint, active bool) error {
	return r.db.Model(&models.CommissionRule{}).Where("id = ?", id).Update("is_active", active).Error
}

// CreateAdjustment 写入提成调整
func (r *GormCommissionRuleRepository) CreateAdjustment(adjust *models.CommissionAdjustment) error {
	return r.db.Create(adjust).Error
}

// ListAdjustments 查询员工某月提成调整
func (r *GormCommissionRuleRepository) ListAdjustments(userID uint, month string) ([]models.CommissionAdjustment, error) {
	var items []models.CommissionAdjustment
	if err := r.db.Where("user_id = ? AND month = ?", userID, strings.TrimSpace(month)).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
