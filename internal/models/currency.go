package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency 币种汇率表，汇率为 1 单位本位币可兑换的该币种数量
type Currency struct {
	Code         string              `gorm:"primarykey;type:varchar(8)" json:"code"`           // 币种代码
	Name         string              `gorm:"type:varchar(40);not null" json:"name"`            // 名称
	Symbol       string              `gorm:"type:varchar(8);not null;default:''" json:"symbol"` // 符号
	FixedRate    decimal.NullDecimal `gorm:"type:decimal(16,6)" json:"fixed_rate"`             // 固定汇率
	FloatingRate decimal.NullDecimal `gorm:"type:decimal(16,6)" json:"floating_rate"`          // 浮动汇率
	IsBase       bool                `gorm:"not null;default:false" json:"is_base"`            // 是否本位币
	Status       string              `gorm:"type:varchar(16);not null;default:'active'" json:"status"` // 状态
	SortOrder    int                 `gorm:"not null;default:0" json:"sort_order"`             // 排序
	UpdatedAt    time.Time           `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (Currency) TableName() string {
	return "currencies"
}

// ExchangeRateHistory 汇率变更历史
type ExchangeRateHistory struct {
	ID           uint            `gorm:"primarykey" json:"id"`                            // 主键
	CurrencyCode string          `gorm:"type:varchar(8);not null;index" json:"currency_code"` // 币种代码
	RateType     string          `gorm:"type:varchar(16);not null" json:"rate_type"`      // 汇率类型 fixed/floating
	Rate         decimal.Decimal `gorm:"type:decimal(16,6);not null" json:"rate"`         // 新汇率
	CreatedBy    uint            `gorm:"not null;default:0" json:"created_by"`            // 操作人
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                         // 变更时间
}

// TableName 指定表名
func (ExchangeRateHistory) TableName() string {
	return "exchange_rate_history"
}
