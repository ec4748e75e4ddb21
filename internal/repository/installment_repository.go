package repository

import (
	"errors"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallmentRepository 分期数据访问接口
type InstallmentRepository interface {
	CreateBatch(items []models.Installment) error
	GetByID(id uint) (*models.Installment, error)
	GetByIDForUpdate(id uint) (*models.Installment, error)
	UpdatePayment(id uint, amountPaid models.Money, status string) error
	UpdateStatus(id uint, status string) error
	ListByContract(contractID uint) ([]models.Installment, error)
	ListOpenDueBefore(day time.Time, limit int) ([]models.Installment, error)
	List(filter InstallmentListFilter) ([]models.Installment, int64, error)
	WithTx(tx *gorm.DB) *GormInstallmentRepository
}

// GormInstallmentRepository GORM 分期仓储实现
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository 创建分期仓储
func NewInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInstallmentRepository) WithTx(tx *gorm.DB) *GormInstallmentRepository {
	if tx == nil {
		return r
	}
	return &GormInstallmentRepository{db: tx}
}

// CreateBatch 批量创建分期
func (r *GormInstallmentRepository) CreateBatch(items []models.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Omit(clause.Associations).Create(&items).Error
}

// GetByID 按ID获取分期
func (r *GormInstallmentRepository) GetByID(id uint) (*models.Installment, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 加锁获取分期，收款读改写期间持有
func (r *GormInstallmentRepository) GetByIDForUpdate(id uint) (*models.Installment, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormInstallmentRepository) first(query *gorm.DB, id uint) (*models.Installment, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.Installment
	if err := query.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// UpdatePayment 写入已收金额与状态
func (r *GormInstallmentRepository) UpdatePayment(id uint, amountPaid models.Money, status string) error {
	return r.db.Model(&models.Installment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"amount_paid": amountPaid,
		"status":      status,
		"updated_at":  time.Now(),
	}).Error
}

// UpdateStatus 仅更新状态
func (r *GormInstallmentRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Installment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

// ListByContract 查询合同下全部分期
func (r *GormInstallmentRepository) ListByContract(contractID uint) ([]models.Installment, error) {
	var items []models.Installment
	if err := r.db.Where("contract_id = ?", contractID).Order("seq asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListOpenDueBefore 查询到期日早于 day 且未结清、尚未标记逾期的分期
func (r *GormInstallmentRepository) ListOpenDueBefore(day time.Time, limit int) ([]models.Installment, error) {
	query := r.db.Where("due_date < ? AND status IN ?", day, []string{
		constants.InstallmentStatusPending,
		constants.InstallmentStatusPartial,
	}).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []models.Installment
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List 分页查询分期
func (r *GormInstallmentRepository) List(filter InstallmentListFilter) ([]models.Installment, int64, error) {
	query := r.db.Model(&models.Installment{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ContractID != 0 {
		query = query.Where("contract_id = ?", filter.ContractID)
	}
	if filter.Status != "" {
		query = whereInstallmentStatus(query, filter.Status, filter.AsOf)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date < ?", *filter.DueTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Installment
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("due_date asc, id asc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// whereInstallmentStatus 按状态过滤；asOf 非空时以 (应收, 已收, 到期日, asOf) 推导状态
func whereInstallmentStatus(query *gorm.DB, status string, asOf *time.Time) *gorm.DB {
	if asOf == nil {
		return query.Where("status = ?", status)
	}
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	switch status {
	case constants.InstallmentStatusPaid:
		return query.Where("amount_paid >= amount_due")
	case constants.InstallmentStatusOverdue:
		return query.Where("amount_paid < amount_due AND due_date < ?", dayStart)
	case constants.InstallmentStatusPartial:
		return query.Where("amount_paid > 0 AND amount_paid < amount_due AND due_date >= ?", dayStart)
	case constants.InstallmentStatusPending:
		return query.Where("amount_paid <= 0 AND amount_paid < amount_due AND due_date >= ?", dayStart)
	default:
		return query.Where("status = ?", status)
	}
}
