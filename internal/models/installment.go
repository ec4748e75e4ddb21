package models

import "time"

// Installment 合同分期表
type Installment struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                    // 主键
	ContractID      uint      `gorm:"not null;index;uniqueIndex:idx_installment_contract_seq" json:"contract_id"` // 合同ID
	CustomerID      uint      `gorm:"not null;index" json:"customer_id"`                                       // 客户ID（冗余）
	Seq             int       `gorm:"not null;uniqueIndex:idx_installment_contract_seq" json:"seq"`            // 期数
	DueDate         time.Time `gorm:"not null;index" json:"due_date"`                                          // 应收日期
	AmountDue       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount_due"`                 // 应收金额
	AmountPaid      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`                // 已收金额
	Status          string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`         // 分期状态
	CollectorUserID *uint     `gorm:"index" json:"collector_user_id"`                                          // 收款负责人
	Method          string    `gorm:"type:varchar(20);not null;default:''" json:"method"`                      // 收款方式
	Currency        string    `gorm:"type:varchar(8);not null" json:"currency"`                                // 币种
	CreatedAt       time.Time `json:"created_at"`                                                              // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                                              // 更新时间

	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"` // 所属合同
}

// TableName 指定表名
func (Installment) TableName() string {
	return "finance_installments"
}
