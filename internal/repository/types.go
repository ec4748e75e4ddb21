package repository

import "time"

// ContractListFilter 查询合同列表的过滤条件
type ContractListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	SalesUserID uint
	Status      string
	Keyword     string
	SignedFrom  *time.Time
	SignedTo    *time.Time
}

// InstallmentListFilter 查询分期列表的过滤条件
type InstallmentListFilter struct {
	Page       int
	PageSize   int
	CustomerID uint
	ContractID uint
	Status     string
	DueFrom    *time.Time
	DueTo      *time.Time
	// AsOf 非空时按该日推导状态过滤，而非读取 status 列
	AsOf *time.Time
}

// ReceiptListFilter 查询收款记录的过滤条件
type ReceiptListFilter struct {
	Page          int
	PageSize      int
	CustomerID    uint
	ContractID    uint
	InstallmentID uint
	SourceType    string
	ReceivedFrom  *time.Time
	ReceivedTo    *time.Time
}

// PrepayLedgerListFilter 查询预收款流水的过滤条件
type PrepayLedgerListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	Direction   string
	SourceType  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionReceiptFilter 提成计算取数条件，区间为 [ReceivedFrom, ReceivedTo)
type CommissionReceiptFilter struct {
	SalesUserID  uint
	ReceivedFrom time.Time
	ReceivedTo   time.Time
	FirstOnly    bool
}

// SalaryListFilter 查询月度薪资的过滤条件
type SalaryListFilter struct {
	Page     int
	PageSize int
	Month    string
	UserID   uint
}

// ExchangeRateHistoryFilter 查询汇率历史的过滤条件
type ExchangeRateHistoryFilter struct {
	Page         int
	PageSize     int
	CurrencyCode string
	RateType     string
}

// AuthzAuditLogListFilter 查询角色变更审计的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
