package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户表
type Customer struct {
	ID          uint           `gorm:"primarykey" json:"id"`                   // 主键
	Name        string         `gorm:"type:varchar(120);not null" json:"name"` // 客户名称
	OwnerUserID *uint          `gorm:"index" json:"owner_user_id"`             // 归属销售
	Phone       string         `gorm:"type:varchar(40)" json:"phone"`          // 联系电话
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                             // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
