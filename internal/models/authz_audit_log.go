package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuthzAuditLog 操作员角色变更审计
type AuthzAuditLog struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                        // 主键
	OperatorAdminID uint           `gorm:"not null;index" json:"operator_admin_id"`                     // 操作人
	TargetAdminID   uint           `gorm:"not null;index" json:"target_admin_id"`                       // 被调整的操作员
	Action          string         `gorm:"type:varchar(64);not null;index" json:"action"`               // 动作
	RequestID       string         `gorm:"type:varchar(64);not null;default:''" json:"request_id"`      // 请求ID
	Detail          datatypes.JSON `gorm:"type:json" json:"detail"`                                     // 变更前后角色
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
