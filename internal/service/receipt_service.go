package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/queue"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReceiptService 收款登记服务
type ReceiptService struct {
	receiptRepo     repository.ReceiptRepository
	installmentRepo repository.InstallmentRepository
	contractRepo    repository.ContractRepository
	customerRepo    repository.CustomerRepository
	prepayRepo      repository.PrepayRepository
	currencySvc     *CurrencyService
	queueClient     *queue.Client
	options         FinanceOptions
}

// NewReceiptService 创建收款登记服务
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	installmentRepo repository.InstallmentRepository,
	contractRepo repository.ContractRepository,
	customerRepo repository.CustomerRepository,
	prepayRepo repository.PrepayRepository,
	currencySvc *CurrencyService,
	queueClient *queue.Client,
	options FinanceOptions,
) *ReceiptService {
	return &ReceiptService{
		receiptRepo:     receiptRepo,
		installmentRepo: installmentRepo,
		contractRepo:    contractRepo,
		customerRepo:    customerRepo,
		prepayRepo:      prepayRepo,
		currencySvc:     currencySvc,
		queueClient:     queueClient,
		options:         options.normalized(),
	}
}

// RegisterReceiptInput 收款登记输入
type RegisterReceiptInput struct {
	InstallmentID   uint
	CustomerID      uint // 非 0 时校验分期归属
	ReceivedDate    string
	AmountReceived  models.Money
	PrepayAmount    models.Money
	Method          string
	Currency        string
	CollectorUserID *uint
	Note            string
	ActorID         uint
}

// ReceiptSummary 收款登记结果
type ReceiptSummary struct {
	ReceiptID      uint         `json:"receipt_id"`
	ReceiptNo      string       `json:"receipt_no"`
	CashApplied    models.Money `json:"cash_applied"`
	PrepayApplied  models.Money `json:"prepay_applied"`
	AmountApplied  models.Money `json:"amount_applied"`
	Overflow       models.Money `json:"overflow"`
	NewPaid        models.Money `json:"new_paid"`
	NewStatus      string       `json:"new_status"`
	ContractStatus string       `json:"contract_status"`
	PrepayBalance  models.Money `json:"prepay_balance"`
}

type settlement struct {
	installmentID   uint
	customerID      uint
	receivedDate    time.Time
	cash            decimal.Decimal
	prepay          decimal.Decimal
	method          string
	currency        string
	collectorUserID *uint
	note            string
	actorID         uint
}

// RegisterReceipt 登记一笔收款（现金，可叠加预收款抵扣）
func (s *ReceiptService) RegisterReceipt(ctx context.Context, input RegisterReceiptInput) (*ReceiptSummary, error) {
	if input.InstallmentID == 0 {
		return nil, newValidationError("installment_id", "installment is required")
	}
	receivedDate, err := parseDate("received_date", input.ReceivedDate)
	if err != nil {
		return nil, err
	}
	cash := input.AmountReceived.Decimal.Round(2)
	prepay := input.PrepayAmount.Decimal.Round(2)
	if cash.IsNegative() {
		return nil, newValidationError("amount_received", "amount received must not be negative")
	}
	if prepay.IsNegative() {
		return nil, newValidationError("prepay_amount", "prepay amount must not be negative")
	}
	if !cash.IsPositive() && !prepay.IsPositive() {
		return nil, newValidationError("amount_received", "amount received or prepay amount must be greater than 0")
	}
	currency := ""
	if strings.TrimSpace(input.Currency) != "" {
		if currency, err = normalizeCurrency("currency", input.Currency, "", constants.ReceiptCurrencies); err != nil {
			return nil, err
		}
	}
	return s.settle(ctx, settlement{
		installmentID:   input.InstallmentID,
		customerID:      input.CustomerID,
		receivedDate:    receivedDate,
		cash:            cash,
		prepay:          prepay,
		method:          strings.TrimSpace(input.Method),
		currency:        currency,
		collectorUserID: input.CollectorUserID,
		note:            strings.TrimSpace(input.Note),
		actorID:         input.ActorID,
	})
}

// settle 在单个事务内完成分期冲抵、溢出转预收、预收抵扣、收款记录与合同状态回写
func (s *ReceiptService) settle(ctx context.Context, req settlement) (*ReceiptSummary, error) {
	summary := &ReceiptSummary{}
	var contract *models.Contract
	err := s.contractRepo.Transaction(func(tx *gorm.DB) error {
		installmentRepo := s.installmentRepo.WithTx(tx)
		contractRepo := s.contractRepo.WithTx(tx)
		prepayRepo := s.prepayRepo.WithTx(tx)

		inst, err := installmentRepo.GetByIDForUpdate(req.installmentID)
		if err != nil {
			return err
		}
		if inst == nil {
			return &NotFoundError{Entity: "installment", ID: req.installmentID}
		}
		if req.customerID != 0 && inst.CustomerID != req.customerID {
			return &OwnershipMismatchError{
				Entity:        "installment",
				EntityID:      inst.ID,
				ExpectedOwner: req.customerID,
				ActualOwner:   inst.CustomerID,
			}
		}
		contract, err = contractRepo.GetByIDForUpdate(inst.ContractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return &NotFoundError{Entity: "contract", ID: inst.ContractID}
		}
		if contract.CustomerID != inst.CustomerID {
			return &OwnershipMismatchError{
				Entity:        "installment",
				EntityID:      inst.ID,
				ExpectedOwner: contract.CustomerID,
				ActualOwner:   inst.CustomerID,
			}
		}

		unpaid := unpaidOf(inst.AmountDue.Decimal, inst.AmountPaid.Decimal)
		cashApplied := decimal.Min(req.cash, unpaid)
		overflow := req.cash.Sub(cashApplied)
		remaining := unpaid.Sub(cashApplied)

		balance := decimal.Zero
		ledgerLocked := false
		if req.prepay.IsPositive() || overflow.IsPositive() {
			balance, err = lockPrepayBalance(tx, s.customerRepo, s.prepayRepo, inst.CustomerID)
			if err != nil {
				return err
			}
			ledgerLocked = true
		}
		prepayApplied := decimal.Zero
		if req.prepay.IsPositive() {
			if balance.LessThan(req.prepay) {
				return &InsufficientPrepayBalanceError{
					CustomerID: inst.CustomerID,
					Balance:    balance,
					Requested:  req.prepay,
				}
			}
			prepayApplied = decimal.Min(req.prepay, remaining)
		}
		applied := cashApplied.Add(prepayApplied)
		if applied.IsZero() && overflow.IsZero() {
			return newValidationError("installment_id", "installment %d is already settled", inst.ID)
		}

		newPaid := inst.AmountPaid.Decimal.Add(applied)
		newStatus := DeriveInstallmentStatus(inst.AmountDue.Decimal, newPaid, inst.DueDate, s.options.today())
		if err := installmentRepo.UpdatePayment(inst.ID, models.NewMoneyFromDecimal(newPaid), newStatus); err != nil {
			return err
		}

		currency := req.currency
		if currency == "" {
			currency = firstNonEmpty(inst.Currency, contract.Currency, s.options.DefaultReceiptCurrency)
		}
		method := firstNonEmpty(req.method, inst.Method)
		sourceType := constants.ReceiptSourceCash
		if req.cash.IsZero() {
			sourceType = constants.ReceiptSourcePrepayApply
			method = constants.ReceiptMethodPrepay
		}
		collector := req.collectorUserID
		if collector == nil {
			collector = inst.CollectorUserID
		}
		table, err := s.currencySvc.TableTx(tx)
		if err != nil {
			return err
		}
		installmentID := inst.ID
		receipt := &models.Receipt{
			ReceiptNo:            generateReceiptNo(),
			CustomerID:           inst.CustomerID,
			ContractID:           contract.ID,
			InstallmentID:        &installmentID,
			SourceType:           sourceType,
			ReceivedDate:         req.receivedDate,
			AmountReceived:       models.NewMoneyFromDecimal(req.cash),
			AmountApplied:        models.NewMoneyFromDecimal(applied),
			AmountOverflow:       models.NewMoneyFromDecimal(overflow),
			PrepayUsed:           models.NewMoneyFromDecimal(prepayApplied),
			Method:               method,
			Currency:             currency,
			AmountHome:           models.NewMoneyFromDecimal(Convert(req.cash, currency, s.currencySvc.HomeCurrency(), RateFixed, table)),
			ExchangeRateFixed:    table.Rate(currency, RateFixed),
			ExchangeRateFloating: table.Rate(currency, RateFloating),
			SalesUserID:          contract.SalesUserID,
			CollectorUserID:      collector,
			Note:                 req.note,
			CreatedBy:            req.actorID,
		}
		if err := s.receiptRepo.WithTx(tx).Create(receipt); err != nil {
			return err
		}

		if overflow.IsPositive() {
			after := balance.Add(overflow)
			if err := prepayRepo.Create(&models.PrepayLedgerEntry{
				CustomerID:    inst.CustomerID,
				Direction:     constants.PrepayDirectionIn,
				Amount:        models.NewMoneyFromDecimal(overflow),
				SourceType:    constants.PrepaySourceReceiptOverflow,
				SourceID:      receipt.ID,
				Currency:      currency,
				BalanceBefore: models.NewMoneyFromDecimal(balance),
				BalanceAfter:  models.NewMoneyFromDecimal(after),
				Note:          "receipt " + receipt.ReceiptNo,
				CreatedBy:     req.actorID,
			}); err != nil {
				return err
			}
			balance = after
		}
		if prepayApplied.IsPositive() {
			after := balance.Sub(prepayApplied)
			if err := prepayRepo.Create(&models.PrepayLedgerEntry{
				CustomerID:    inst.CustomerID,
				Direction:     constants.PrepayDirectionOut,
				Amount:        models.NewMoneyFromDecimal(prepayApplied),
				SourceType:    constants.PrepaySourceApplyToInstallment,
				SourceID:      inst.ID,
				Currency:      currency,
				BalanceBefore: models.NewMoneyFromDecimal(balance),
				BalanceAfter:  models.NewMoneyFromDecimal(after),
				Note:          "receipt " + receipt.ReceiptNo,
				CreatedBy:     req.actorID,
			}); err != nil {
				return err
			}
			balance = after
		}
		if !ledgerLocked {
			if balance, err = prepayRepo.Balance(inst.CustomerID); err != nil {
				return err
			}
		}

		contractStatus, err := s.reevaluateContract(tx, contract)
		if err != nil {
			return err
		}

		result := constants.CollectionResultReceived
		if sourceType == constants.ReceiptSourcePrepayApply {
			result = constants.CollectionResultPrepay
		}
		meta, err := json.Marshal(map[string]interface{}{
			"receipt_no":     receipt.ReceiptNo,
			"amount_applied": receipt.AmountApplied.String(),
			"overflow":       receipt.AmountOverflow.String(),
			"prepay_used":    receipt.PrepayUsed.String(),
			"currency":       currency,
		})
		if err != nil {
			return err
		}
		if err := s.receiptRepo.WithTx(tx).CreateCollectionLog(&models.CollectionLog{
			CustomerID:    inst.CustomerID,
			ContractID:    contract.ID,
			InstallmentID: &installmentID,
			Result:        result,
			Note:          req.note,
			Meta:          datatypes.JSON(meta),
			CreatedBy:     req.actorID,
		}); err != nil {
			return err
		}

		summary.ReceiptID = receipt.ID
		summary.ReceiptNo = receipt.ReceiptNo
		summary.CashApplied = models.NewMoneyFromDecimal(cashApplied)
		summary.PrepayApplied = models.NewMoneyFromDecimal(prepayApplied)
		summary.AmountApplied = receipt.AmountApplied
		summary.Overflow = receipt.AmountOverflow
		summary.NewPaid = models.NewMoneyFromDecimal(newPaid)
		summary.NewStatus = newStatus
		summary.ContractStatus = contractStatus
		summary.PrepayBalance = models.NewMoneyFromDecimal(balance)
		return nil
	})
	if err != nil {
		return nil, wrapTxError("register receipt", err)
	}

	logger.Infow("receipt_registered",
		"receipt_id", summary.ReceiptID,
		"receipt_no", summary.ReceiptNo,
		"installment_id", req.installmentID,
		"contract_id", contract.ID,
		"amount_applied", summary.AmountApplied.String(),
		"overflow", summary.Overflow.String(),
		"prepay_applied", summary.PrepayApplied.String(),
		"new_status", summary.NewStatus,
		"contract_status", summary.ContractStatus,
		"actor_id", req.actorID,
	)
	s.enqueueSalarySync(contract, req.receivedDate, req.actorID)
	return summary, nil
}

// reevaluateContract 全部分期结清则合同关闭，否则保持进行中；作废合同不变
func (s *ReceiptService) reevaluateContract(tx *gorm.DB, contract *models.Contract) (string, error) {
	if contract.Status == constants.ContractStatusVoid {
		return contract.Status, nil
	}
	installments, err := s.installmentRepo.WithTx(tx).ListByContract(contract.ID)
	if err != nil {
		return "", err
	}
	status := constants.ContractStatusClosed
	for _, item := range installments {
		if unpaidOf(item.AmountDue.Decimal, item.AmountPaid.Decimal).IsPositive() {
			status = constants.ContractStatusActive
			break
		}
	}
	if status != contract.Status {
		if err := s.contractRepo.WithTx(tx).UpdateFields(contract.ID, map[string]interface{}{"status": status}); err != nil {
			return "", err
		}
		contract.Status = status
	}
	return status, nil
}

func (s *ReceiptService) enqueueSalarySync(contract *models.Contract, receivedDate time.Time, actorID uint) {
	if !s.options.SalarySyncOnReceipt || contract == nil || !contract.IsFirstContract || !s.queueClient.Enabled() {
		return
	}
	payload := queue.SalarySyncPayload{
		UserID:  contract.SalesUserID,
		Month:   receivedDate.Format(constants.MonthLayout),
		ActorID: actorID,
	}
	if err := s.queueClient.EnqueueSalarySync(payload); err != nil {
		logger.Warnw("salary_sync_enqueue_failed",
			"user_id", payload.UserID,
			"month", payload.Month,
			"error", err,
		)
	}
}

// AttachReceiptFile 关联收款凭证附件，重复关联直接返回已有记录
func (s *ReceiptService) AttachReceiptFile(ctx context.Context, receiptID uint, fileID string, actorID uint) (*models.ReceiptFile, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, newValidationError("file_id", "file id is required")
	}
	if len(fileID) > 64 {
		return nil, newValidationError("file_id", "file id must not exceed 64 characters")
	}
	receipt, err := s.receiptRepo.GetByID(receiptID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, &NotFoundError{Entity: "receipt", ID: receiptID}
	}
	existing, err := s.receiptRepo.GetFile(receipt.ID, fileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	file := &models.ReceiptFile{ReceiptID: receipt.ID, FileID: fileID, CreatedBy: actorID}
	if err := s.receiptRepo.CreateFile(file); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return s.receiptRepo.GetFile(receipt.ID, fileID)
		}
		return nil, err
	}
	logger.Infow("receipt_file_attached", "receipt_id", receipt.ID, "file_id", fileID, "actor_id", actorID)
	return file, nil
}

// GetReceipt 收款详情
func (s *ReceiptService) GetReceipt(receiptID uint) (*models.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(receiptID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, &NotFoundError{Entity: "receipt", ID: receiptID}
	}
	return receipt, nil
}

// ListReceipts 收款列表
func (s *ReceiptService) ListReceipts(filter repository.ReceiptListFilter) ([]models.Receipt, int64, error) {
	return s.receiptRepo.List(filter)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
