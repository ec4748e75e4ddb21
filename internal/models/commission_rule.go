package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRule 提成规则
type CommissionRule struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                     // 主键
	Name          string          `gorm:"type:varchar(80);not null" json:"name"`                    // 规则名称
	RuleType      string          `gorm:"type:varchar(16);not null" json:"rule_type"`               // 规则类型 fixed/tier
	FixedRate     decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0" json:"fixed_rate"`  // 固定比例
	Currency      string          `gorm:"type:varchar(8);not null;default:'CNY'" json:"currency"`   // 门槛币种
	IncludePrepay bool            `gorm:"not null;default:false" json:"include_prepay"`             // 预收冲抵是否计入
	IsActive      bool            `gorm:"not null;default:false;index" json:"is_active"`            // 是否启用
	CreatedBy     uint            `gorm:"not null;default:0" json:"created_by"`                     // 创建人
	CreatedAt     time.Time       `json:"created_at"`                                               // 创建时间
	UpdatedAt     time.Time       `json:"updated_at"`                                               // 更新时间

	Tiers  []CommissionTier      `gorm:"foreignKey:RuleID" json:"tiers"`  // 阶梯
	Scopes []CommissionRuleScope `gorm:"foreignKey:RuleID" json:"scopes"` // 适用范围
}

// TableName 指定表名
func (CommissionRule) TableName() string {
	return "commission_rules"
}

// CommissionTier 提成阶梯，区间 [From, To)，To 为空表示无上限
type CommissionTier struct {
	ID         uint                `gorm:"primarykey" json:"id"`                                      // 主键
	RuleID     uint                `gorm:"not null;index" json:"rule_id"`                             // 规则ID
	FromAmount Money               `gorm:"type:decimal(20,2);not null;default:0" json:"from_amount"` // 起始金额
	ToAmount   decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"to_amount"`                       // 截止金额（不含）
	Rate       decimal.Decimal     `gorm:"type:decimal(10,6);not null" json:"rate"`                   // 提成比例
	SortOrder  int                 `gorm:"not null;default:0" json:"sort_order"`                      // 排序
}

// TableName 指定表名
func (CommissionTier) TableName() string {
	return "commission_rule_tiers"
}

// CommissionRuleScope 规则适用范围（部门或员工）
type CommissionRuleScope struct {
	ID           uint  `gorm:"primarykey" json:"id"`              // 主键
	RuleID       uint  `gorm:"not null;index" json:"rule_id"`     // 规则ID
	UserID       *uint `gorm:"index" json:"user_id,omitempty"`       // 员工ID
	DepartmentID *uint `gorm:"index" json:"department_id,omitempty"` // 部门ID
}

// TableName 指定表名
func (CommissionRuleScope) TableName() string {
	return "commission_rule_scopes"
}

// CommissionAdjustment 提成手工调整
type CommissionAdjustment struct {
	ID        uint      `gorm:"primarykey" json:"id"`                               // 主键
	UserID    uint      `gorm:"not null;index:idx_commission_adjust_user_month" json:"user_id"` // 员工ID
	Month     string    `gorm:"type:varchar(7);not null;index:idx_commission_adjust_user_month" json:"month"` // 月份 YYYY-MM
	Amount    Money     `gorm:"type:decimal(20,2);not null" json:"amount"`          // 调整金额（可为负）
	Currency  string    `gorm:"type:varchar(8);not null;default:'CNY'" json:"currency"` // 币种
	Reason    string    `gorm:"type:varchar(255)" json:"reason"`                    // 原因
	CreatedBy uint      `gorm:"not null;default:0" json:"created_by"`               // 操作人
	CreatedAt time.Time `json:"created_at"`                                         // 创建时间
}

// TableName 指定表名
func (CommissionAdjustment) TableName() string {
	return "commission_adjustments"
}
