package repository

import (
	"errors"

	"github.com/lingxi-works/fincore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptRepository 收款记录数据访问接口（只追加）
type ReceiptRepository interface {
	Create(receipt *models.Receipt) error
	GetByID(id uint) (*models.Receipt, error)
	List(filter ReceiptListFilter) ([]models.Receipt, int64, error)
	ListForCommission(filter CommissionReceiptFilter) ([]models.Receipt, error)
	CreateFile(file *models.ReceiptFile) error
	GetFile(receiptID uint, fileID string) (*models.ReceiptFile, error)
	ListFiles(receiptID uint) ([]models.ReceiptFile, error)
	CreateCollectionLog(log *models.CollectionLog) error
	WithTx(tx *gorm.DB) *GormReceiptRepository
}

// GormReceiptRepository GORM 收款仓储实现
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository 创建收款仓储
func NewReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReceiptRepository) WithTx(tx *gorm.DB) *GormReceiptRepository {
	if tx == nil {
		return r
	}
	return &GormReceiptRepository{db: tx}
}

// Create 写入收款记录
func (r *GormReceiptRepository) Create(receipt *models.Receipt) error {
	return r.db.Omit(clause.Associations).Create(receipt).Error
}

// GetByID 按ID获取收款记录（含附件）
func (r *GormReceiptRepository) GetByID(id uint) (*models.Receipt, error) {
	if id == 0 {
		return nil, nil
	}
	var receipt models.Receipt
	if err := r.db.Preload("Files").First(&receipt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

// List 分页查询收款记录
func (r *GormReceiptRepository) List(filter ReceiptListFilter) ([]models.Receipt, int64, error) {
	query := r.db.Model(&models.Receipt{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ContractID != 0 {
		query = query.Where("contract_id = ?", filter.ContractID)
	}
	if filter.InstallmentID != 0 {
		query = query.Where("installment_id = ?", filter.InstallmentID)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	if filter.ReceivedFrom != nil {
		query = query.Where("received_date >= ?", *filter.ReceivedFrom)
	}
	if filter.ReceivedTo != nil {
		query = query.Where("received_date < ?", *filter.ReceivedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var receipts []models.Receipt
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id desc").Find(&receipts).Error; err != nil {
		return nil, 0, err
	}
	return receipts, total, nil
}

// ListForCommission 查询销售合同在区间内的收款，附带合同信息
func (r *GormReceiptRepository) ListForCommission(filter CommissionReceiptFilter) ([]models.Receipt, error) {
	query := r.db.Model(&models.Receipt{}).
		Select("finance_receipts.*").
		Joins("JOIN finance_contracts ON finance_contracts.id = finance_receipts.contract_id").
		Preload("Contract").
		Where("finance_contracts.sales_user_id = ?", filter.SalesUserID).
		Where("finance_receipts.received_date >= ? AND finance_receipts.received_date < ?", filter.ReceivedFrom, filter.ReceivedTo)
	if filter.FirstOnly {
		query = query.Where("finance_contracts.is_first_contract = ?", true)
	}
	var receipts []models.Receipt
	if err := query.Order("finance_receipts.received_date asc, finance_receipts.id asc").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// CreateFile 记录收款凭证附件
func (r *GormReceiptRepository) CreateFile(file *models.ReceiptFile) error {
	return r.db.Create(file).Error
}

// GetFile 查询已关联的附件
func (r *GormReceiptRepository) GetFile(receiptID uint, fileID string) (*models.ReceiptFile, error) {
	var file models.ReceiptFile
	if err := r.db.Where("receipt_id = ? AND file_id = ?", receiptID, fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// ListFiles 查询收款附件
func (r *GormReceiptRepository) ListFiles(receiptID uint) ([]models.ReceiptFile, error) {
	var files []models.ReceiptFile
	if err := r.db.Where("receipt_id = ?", receiptID).Order("id asc").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// CreateCollectionLog 写入催收跟进记录
func (r *GormReceiptRepository) CreateCollectionLog(log *models.CollectionLog) error {
	return r.db.Create(log).Error
}
