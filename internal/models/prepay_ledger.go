package models

import "time"

// PrepayLedgerEntry 客户预收款流水（只追加，余额由流水汇总得出）
type PrepayLedgerEntry struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                       // 主键
	CustomerID    uint      `gorm:"not null;index" json:"customer_id"`                          // 客户ID
	Direction     string    `gorm:"type:varchar(8);not null" json:"direction"`                  // 方向 in/out
	Amount        Money     `gorm:"type:decimal(20,2);not null" json:"amount"`                  // 金额（恒为正）
	SourceType    string    `gorm:"type:varchar(32);not null;index" json:"source_type"`         // 来源类型
	SourceID      uint      `gorm:"not null;default:0;index" json:"source_id"`                  // 来源ID
	Currency      string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`        // 币种
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额（审计快照）
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额（审计快照）
	Note          string    `gorm:"type:varchar(255)" json:"note"`                              // 备注
	CreatedBy     uint      `gorm:"not null;default:0" json:"created_by"`                       // 操作人
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                    // 创建时间
}

// TableName 指定表名
func (PrepayLedgerEntry) TableName() string {
	return "finance_prepay_ledger"
}
