package models

import (
	"time"

	"gorm.io/datatypes"
)

// CollectionLog 催收/收款跟进记录
type CollectionLog struct {
	ID            uint           `gorm:"primarykey" json:"id"`                         // 主键
	CustomerID    uint           `gorm:"not null;index" json:"customer_id"`            // 客户ID
	ContractID    uint           `gorm:"not null;index" json:"contract_id"`            // 合同ID
	InstallmentID *uint          `gorm:"index" json:"installment_id"`                  // 分期ID
	Result        string         `gorm:"type:varchar(32);not null" json:"result"`      // 跟进结果
	Note          string         `gorm:"type:varchar(255)" json:"note"`                // 备注
	Meta          datatypes.JSON `gorm:"type:json" json:"meta"`                        // 附加信息
	CreatedBy     uint           `gorm:"not null;default:0" json:"created_by"`         // 操作人
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
}

// TableName 指定表名
func (CollectionLog) TableName() string {
	return "finance_collection_logs"
}
