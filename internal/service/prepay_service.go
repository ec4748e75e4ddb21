package service

import (
	"context"
	"strings"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PrepayService 客户预收款服务
type PrepayService struct {
	prepayRepo   repository.PrepayRepository
	customerRepo repository.CustomerRepository
	receiptSvc   *ReceiptService
	options      FinanceOptions
}

// NewPrepayService 创建预收款服务
func NewPrepayService(
	prepayRepo repository.PrepayRepository,
	customerRepo repository.CustomerRepository,
	receiptSvc *ReceiptService,
	options FinanceOptions,
) *PrepayService {
	return &PrepayService{
		prepayRepo:   prepayRepo,
		customerRepo: customerRepo,
		receiptSvc:   receiptSvc,
		options:      options.normalized(),
	}
}

// ApplyPrepayInput 预收款抵扣分期输入
type ApplyPrepayInput struct {
	CustomerID    uint
	InstallmentID uint
	Amount        models.Money
	AppliedDate   string // 为空取当天
	Note          string
	ActorID       uint
}

// PrepayApplyResult 预收款抵扣结果
type PrepayApplyResult struct {
	ReceiptID      uint         `json:"receipt_id"`
	ReceiptNo      string       `json:"receipt_no"`
	AmountApplied  models.Money `json:"amount_applied"`
	NewPaid        models.Money `json:"new_paid"`
	NewStatus      string       `json:"new_status"`
	ContractStatus string       `json:"contract_status"`
	BalanceAfter   models.Money `json:"balance_after"`
}

// ApplyPrepayToInstallment 使用客户预收余额冲抵分期，超出未收部分的请求按未收金额截断
func (s *PrepayService) ApplyPrepayToInstallment(ctx context.Context, input ApplyPrepayInput) (*PrepayApplyResult, error) {
	if input.CustomerID == 0 {
		return nil, newValidationError("customer_id", "customer is required")
	}
	if input.InstallmentID == 0 {
		return nil, newValidationError("installment_id", "installment is required")
	}
	amount := input.Amount.Decimal.Round(2)
	if !amount.IsPositive() {
		return nil, newValidationError("amount", "amount must be greater than 0")
	}
	appliedDate := s.options.today()
	if strings.TrimSpace(input.AppliedDate) != "" {
		parsed, err := parseDate("applied_date", input.AppliedDate)
		if err != nil {
			return nil, err
		}
		appliedDate = parsed
	}

	summary, err := s.receiptSvc.settle(ctx, settlement{
		installmentID: input.InstallmentID,
		customerID:    input.CustomerID,
		receivedDate:  appliedDate,
		cash:          decimal.Zero,
		prepay:        amount,
		method:        constants.ReceiptMethodPrepay,
		note:          strings.TrimSpace(input.Note),
		actorID:       input.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &PrepayApplyResult{
		ReceiptID:      summary.ReceiptID,
		ReceiptNo:      summary.ReceiptNo,
		AmountApplied:  summary.PrepayApplied,
		NewPaid:        summary.NewPaid,
		NewStatus:      summary.NewStatus,
		ContractStatus: summary.ContractStatus,
		BalanceAfter:   summary.PrepayBalance,
	}, nil
}

// ManualAdjustInput 预收款手工调整输入
type ManualAdjustInput struct {
	CustomerID uint
	Direction  string
	Amount     models.Money
	Currency   string
	Note       string
	ActorID    uint
}

// ManualAdjust 手工增减预收余额，扣减不得超过当前余额
func (s *PrepayService) ManualAdjust(ctx context.Context, input ManualAdjustInput) (*models.PrepayLedgerEntry, error) {
	direction := strings.ToLower(strings.TrimSpace(input.Direction))
	if direction != constants.PrepayDirectionIn && direction != constants.PrepayDirectionOut {
		return nil, newValidationError("direction", "direction must be in or out")
	}
	amount := input.Amount.Decimal.Round(2)
	if !amount.IsPositive() {
		return nil, newValidationError("amount", "amount must be greater than 0")
	}
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return nil, newValidationError("note", "note is required for manual adjustments")
	}
	currency, err := normalizeCurrency("currency", input.Currency, s.options.DefaultReceiptCurrency, constants.ReceiptCurrencies)
	if err != nil {
		return nil, err
	}

	var entry *models.PrepayLedgerEntry
	err = s.prepayRepo.Transaction(func(tx *gorm.DB) error {
		balance, err := lockPrepayBalance(tx, s.customerRepo, s.prepayRepo, input.CustomerID)
		if err != nil {
			return err
		}
		after := balance.Add(amount)
		if direction == constants.PrepayDirectionOut {
			if balance.LessThan(amount) {
				return &InsufficientPrepayBalanceError{CustomerID: input.CustomerID, Balance: balance, Requested: amount}
			}
			after = balance.Sub(amount)
		}
		entry = &models.PrepayLedgerEntry{
			CustomerID:    input.CustomerID,
			Direction:     direction,
			Amount:        models.NewMoneyFromDecimal(amount),
			SourceType:    constants.PrepaySourceManualAdjust,
			Currency:      currency,
			BalanceBefore: models.NewMoneyFromDecimal(balance),
			BalanceAfter:  models.NewMoneyFromDecimal(after),
			Note:          note,
			CreatedBy:     input.ActorID,
		}
		return s.prepayRepo.WithTx(tx).Create(entry)
	})
	if err != nil {
		return nil, wrapTxError("adjust prepay", err)
	}
	logger.Infow("prepay_manual_adjusted",
		"customer_id", input.CustomerID,
		"direction", direction,
		"amount", entry.Amount.String(),
		"balance_after", entry.BalanceAfter.String(),
		"actor_id", input.ActorID,
	)
	return entry, nil
}

// Balance 查询客户预收余额（由流水汇总得出）
func (s *PrepayService) Balance(customerID uint) (models.Money, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return models.Money{}, err
	}
	if customer == nil {
		return models.Money{}, &NotFoundError{Entity: "customer", ID: customerID}
	}
	balance, err := s.prepayRepo.Balance(customerID)
	if err != nil {
		return models.Money{}, err
	}
	return models.NewMoneyFromDecimal(balance), nil
}

// ListLedger 查询预收款流水
func (s *PrepayService) ListLedger(filter repository.PrepayLedgerListFilter) ([]models.PrepayLedgerEntry, int64, error) {
	return s.prepayRepo.List(filter)
}

// lockPrepayBalance 锁定客户行与其全部流水行后重新汇总余额，调用方须在同一事务内完成扣减写入
func lockPrepayBalance(tx *gorm.DB, customerRepo repository.CustomerRepository, prepayRepo repository.PrepayRepository, customerID uint) (decimal.Decimal, error) {
	customer, err := customerRepo.WithTx(tx).GetByIDForUpdate(customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if customer == nil {
		return decimal.Zero, &NotFoundError{Entity: "customer", ID: customerID}
	}
	entries, err := prepayRepo.WithTx(tx).LockEntries(customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return foldLedger(entries), nil
}

// foldLedger 流水折叠求余额 SUM(in) - SUM(out)
func foldLedger(entries []models.PrepayLedgerEntry) decimal.Decimal {
	balance := decimal.Zero
	for _, entry := range entries {
		switch entry.Direction {
		case constants.PrepayDirectionIn:
			balance = balance.Add(entry.Amount.Decimal)
		case constants.PrepayDirectionOut:
			balance = balance.Sub(entry.Amount.Decimal)
		}
	}
	return balance.Round(2)
}
