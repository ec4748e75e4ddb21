package models

import (
	"time"

	"gorm.io/datatypes"
)

// SalaryMonthly 月度薪资汇总（按员工+月份唯一）
type SalaryMonthly struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                                  // 主键
	UserID           uint           `gorm:"not null;uniqueIndex:idx_salary_user_month" json:"user_id"`             // 员工ID
	Month            string         `gorm:"type:varchar(7);not null;uniqueIndex:idx_salary_user_month" json:"month"` // 月份 YYYY-MM
	Currency         string         `gorm:"type:varchar(8);not null;default:'CNY'" json:"currency"`                // 币种
	BaseSalary       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_salary"`              // 底薪
	Attendance       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"attendance"`               // 全勤奖
	Commission       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission"`               // 提成（计算结果缓存）
	Incentive        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"incentive"`                // 激励
	Adjustment       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"adjustment"`               // 调整
	Deduction        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"deduction"`                // 扣款
	Total            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total"`                    // 合计
	CommissionDetail datatypes.JSON `gorm:"type:json" json:"commission_detail"`                                    // 提成计算快照
	SyncedAt         *time.Time     `json:"synced_at"`                                                             // 最近同步时间
	UpdatedBy        uint           `gorm:"not null;default:0" json:"updated_by"`                                  // 最近操作人
	CreatedAt        time.Time      `json:"created_at"`                                                            // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                                            // 更新时间

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 员工
}

// TableName 指定表名
func (SalaryMonthly) TableName() string {
	return "salary_monthly"
}
