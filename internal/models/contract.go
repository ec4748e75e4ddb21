package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract 合同表
type Contract struct {
	ID                   uint                `gorm:"primarykey" json:"id"`                                                 // 主键
	ContractNo           *string             `gorm:"type:varchar(40);uniqueIndex" json:"contract_no"`                      // 合同编号
	CustomerID           uint                `gorm:"not null;index" json:"customer_id"`                                    // 客户ID
	SalesUserID          uint                `gorm:"not null;index:idx_contract_sales_sign" json:"sales_user_id"`          // 签约销售
	Title                string              `gorm:"type:varchar(160);not null" json:"title"`                              // 合同标题
	SignDate             time.Time           `gorm:"not null;index:idx_contract_sales_sign" json:"sign_date"`              // 签约日期
	GrossAmount          Money               `gorm:"type:decimal(20,2);not null;default:0" json:"gross_amount"`            // 合同原价
	DiscountType         string              `gorm:"type:varchar(16);not null;default:''" json:"discount_type"`            // 折扣类型 amount/rate
	DiscountValue        decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"discount_value"`                             // 折扣值
	DiscountInCalc       bool                `gorm:"not null;default:false" json:"discount_in_calc"`                       // 折扣是否计入净额
	NetAmount            Money               `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`              // 合同净额
	Currency             string              `gorm:"type:varchar(8);not null" json:"currency"`                             // 币种
	IsFirstContract      bool                `gorm:"not null;default:false;index" json:"is_first_contract"`                // 是否客户首单
	LockedCommissionRate decimal.NullDecimal `gorm:"type:decimal(10,6)" json:"locked_commission_rate"`                     // 首单锁定提成比例
	Status               string              `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`       // 合同状态
	Note                 string              `gorm:"type:text" json:"note"`                                                // 备注
	CreatedBy            uint                `gorm:"not null;default:0" json:"created_by"`                                 // 创建人
	CreatedAt            time.Time           `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt            time.Time           `json:"updated_at"`                                                           // 更新时间

	Customer     *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`     // 客户
	Installments []Installment `gorm:"foreignKey:ContractID" json:"installments,omitempty"` // 分期计划
}

// TableName 指定表名
func (Contract) TableName() string {
	return "finance_contracts"
}
