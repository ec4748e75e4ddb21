package constants

// 合同状态常量
const (
	ContractStatusActive = "active"
	ContractStatusClosed = "closed"
	ContractStatusVoid   = "void"
)

// 合同折扣类型常量
const (
	DiscountTypeNone   = ""
	DiscountTypeAmount = "amount"
	DiscountTypeRate   = "rate"
)

// 分期状态常量
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPartial = "partial"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// 收款来源类型常量
const (
	ReceiptSourceCash        = "cash_receipt"
	ReceiptSourcePrepayApply = "prepay_apply"
)

// 收款方式常量
const (
	ReceiptMethodTransfer = "transfer"
	ReceiptMethodCash     = "cash"
	ReceiptMethodCard     = "card"
	ReceiptMethodPrepay   = "prepay"
)

// 预收款流水方向常量
const (
	PrepayDirectionIn  = "in"
	PrepayDirectionOut = "out"
)

// 预收款流水来源常量
const (
	PrepaySourceReceiptOverflow    = "receipt_overflow"
	PrepaySourceApplyToInstallment = "apply_to_installment"
	PrepaySourceManualAdjust       = "manual_adjust"
)

// 提成规则类型常量
const (
	CommissionRuleFixed = "fixed"
	CommissionRuleTier  = "tier"
)

// 汇率类型常量
const (
	RateTypeFixed    = "fixed"
	RateTypeFloating = "floating"
)

// 催收记录结果常量
const (
	CollectionResultReceived = "received"
	CollectionResultPrepay   = "prepay_applied"
)

// 币种常量
const (
	CurrencyCNY = "CNY"
	CurrencyTWD = "TWD"
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
	CurrencySGD = "SGD"
	CurrencyHKD = "HKD"
	CurrencyEUR = "EUR"
	CurrencyJPY = "JPY"
)

// ReceiptCurrencies 收款允许的币种
var ReceiptCurrencies = []string{CurrencyCNY, CurrencyTWD, CurrencyUSD, CurrencyGBP, CurrencySGD, CurrencyHKD}

// RuleCurrencies 提成规则门槛允许的币种
var RuleCurrencies = []string{CurrencyCNY, CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyJPY, CurrencyHKD, CurrencyTWD}

// 员工状态常量
const (
	StaffStatusActive   = "active"
	StaffStatusInactive = "inactive"
)

// 异步任务类型常量
const (
	TaskSalarySync     = "finance:salary:sync"
	TaskOverdueRefresh = "finance:installment:overdue_refresh"
)

// 日期格式常量
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)
