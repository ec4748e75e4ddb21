package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt 收款记录表（只追加）
type Receipt struct {
	ID                   uint            `gorm:"primarykey" json:"id"`                                         // 主键
	ReceiptNo            string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"receipt_no"`      // 收款单号
	CustomerID           uint            `gorm:"not null;index" json:"customer_id"`                            // 客户ID
	ContractID           uint            `gorm:"not null;index" json:"contract_id"`                            // 合同ID
	InstallmentID        *uint           `gorm:"index" json:"installment_id"`                                  // 分期ID
	SourceType           string          `gorm:"type:varchar(20);not null;index" json:"source_type"`           // 来源类型
	ReceivedDate         time.Time       `gorm:"not null;index" json:"received_date"`                          // 到账日期
	AmountReceived       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"amount_received"` // 实收现金
	AmountApplied        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"amount_applied"`  // 冲抵分期金额
	AmountOverflow       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"amount_overflow"` // 溢出转预收
	PrepayUsed           Money           `gorm:"type:decimal(20,2);not null;default:0" json:"prepay_used"`     // 使用预收金额
	Method               string          `gorm:"type:varchar(20);not null;default:''" json:"method"`           // 收款方式
	Currency             string          `gorm:"type:varchar(8);not null" json:"currency"`                     // 币种
	AmountHome           Money           `gorm:"type:decimal(20,2);not null;default:0" json:"amount_home"`     // 本位币金额
	ExchangeRateFixed    decimal.Decimal `gorm:"type:decimal(16,6);not null;default:0" json:"exchange_rate_fixed"`    // 固定汇率快照
	ExchangeRateFloating decimal.Decimal `gorm:"type:decimal(16,6);not null;default:0" json:"exchange_rate_floating"` // 浮动汇率快照
	SalesUserID          uint            `gorm:"not null;default:0;index" json:"sales_user_id"`                // 销售快照
	CollectorUserID      *uint           `gorm:"index" json:"collector_user_id"`                               // 收款人
	Note                 string          `gorm:"type:text" json:"note"`                                        // 备注
	CreatedBy            uint            `gorm:"not null;default:0" json:"created_by"`                         // 操作人
	CreatedAt            time.Time       `gorm:"index" json:"created_at"`                                      // 创建时间

	Contract *Contract    `gorm:"foreignKey:ContractID" json:"contract,omitempty"` // 所属合同
	Files    []ReceiptFile `gorm:"foreignKey:ReceiptID" json:"files,omitempty"`   // 凭证附件
}

// TableName 指定表名
func (Receipt) TableName() string {
	return "finance_receipts"
}

// ReceiptFile 收款凭证附件关联
type ReceiptFile struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                               // 主键
	ReceiptID uint      `gorm:"not null;uniqueIndex:idx_receipt_file_unique" json:"receipt_id"`     // 收款ID
	FileID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_receipt_file_unique" json:"file_id"` // 附件ID（对象存储）
	CreatedBy uint      `gorm:"not null;default:0" json:"created_by"`                               // 上传人
	CreatedAt time.Time `json:"created_at"`                                                         // 创建时间
}

// TableName 指定表名
func (ReceiptFile) TableName() string {
	return "finance_receipt_files"
}
