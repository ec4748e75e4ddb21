package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractService 合同服务
type ContractService struct {
	contractRepo    repository.ContractRepository
	installmentRepo repository.InstallmentRepository
	customerRepo    repository.CustomerRepository
	userRepo        repository.UserRepository
	commissionSvc   *CommissionService
	options         FinanceOptions
}

// NewContractService 创建合同服务
func NewContractService(
	contractRepo repository.ContractRepository,
	installmentRepo repository.InstallmentRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	commissionSvc *CommissionService,
	options FinanceOptions,
) *ContractService {
	return &ContractService{
		contractRepo:    contractRepo,
		installmentRepo: installmentRepo,
		customerRepo:    customerRepo,
		userRepo:        userRepo,
		commissionSvc:   commissionSvc,
		options:         options.normalized(),
	}
}

// InstallmentInput 分期计划行
type InstallmentInput struct {
	DueDate         string
	Amount          models.Money
	CollectorUserID *uint
	Method          string
	Currency        string
}

// RegisterContractInput 合同登记输入
type RegisterContractInput struct {
	CustomerID     uint
	SalesUserID    uint
	ContractNo     string
	Title          string
	SignDate       string
	GrossAmount    models.Money
	DiscountType   string
	DiscountValue  decimal.Decimal
	DiscountInCalc bool
	Currency       string
	Note           string
	Installments   []InstallmentInput
	ActorID        uint
}

// RegisterContractResult 合同登记结果
type RegisterContractResult struct {
	ContractID           uint                `json:"contract_id"`
	ContractNo           string              `json:"contract_no"`
	NetAmount            models.Money        `json:"net_amount"`
	IsFirstContract      bool                `json:"is_first_contract"`
	LockedCommissionRate decimal.NullDecimal `json:"locked_commission_rate"`
	InstallmentIDs       []uint              `json:"installment_ids"`
}

type contractDraft struct {
	signDate     time.Time
	gross        decimal.Decimal
	discount     Discount
	net          decimal.Decimal
	currency     string
	installments []models.Installment
}

// RegisterContract 登记合同及分期计划，首单在同一事务内锁定提成比例
func (s *ContractService) RegisterContract(ctx context.Context, input RegisterContractInput) (*RegisterContractResult, error) {
	draft, err := s.validateContract(input)
	if err != nil {
		return nil, err
	}

	result := &RegisterContractResult{}
	err = s.contractRepo.Transaction(func(tx *gorm.DB) error {
		contractRepo := s.contractRepo.WithTx(tx)

		customer, err := s.customerRepo.WithTx(tx).GetByIDForUpdate(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &NotFoundError{Entity: "customer", ID: input.CustomerID}
		}
		salesUser, err := s.userRepo.WithTx(tx).GetByID(input.SalesUserID)
		if err != nil {
			return err
		}
		if salesUser == nil {
			return &NotFoundError{Entity: "user", ID: input.SalesUserID}
		}

		contractNo := strings.TrimSpace(input.ContractNo)
		if contractNo != "" {
			exists, err := contractRepo.ContractNoExists(contractNo)
			if err != nil {
				return err
			}
			if exists {
				return newValidationError("contract_no", "contract number %s already exists", contractNo)
			}
		}

		count, err := contractRepo.CountByCustomer(customer.ID)
		if err != nil {
			return err
		}
		isFirst := count == 0
		title := strings.TrimSpace(input.Title)
		if title == "" {
			title = fmt.Sprintf("%s 合同 %d", customer.Name, count+1)
		}

		var lockedRate decimal.NullDecimal
		if isFirst && s.commissionSvc != nil {
			lockedRate, _, err = s.commissionSvc.LockRate(tx, LockRateInput{
				SalesUser: salesUser,
				SignDate:  draft.signDate,
				NetAmount: draft.net,
				Currency:  draft.currency,
			})
			if err != nil {
				return err
			}
		}

		contract := &models.Contract{
			CustomerID:           customer.ID,
			SalesUserID:          salesUser.ID,
			Title:                title,
			SignDate:             draft.signDate,
			GrossAmount:          models.NewMoneyFromDecimal(draft.gross),
			DiscountType:         draft.discount.Type(),
			DiscountValue:        draft.discount.Value(),
			DiscountInCalc:       input.DiscountInCalc,
			NetAmount:            models.NewMoneyFromDecimal(draft.net),
			Currency:             draft.currency,
			IsFirstContract:      isFirst,
			LockedCommissionRate: lockedRate,
			Status:               constants.ContractStatusActive,
			Note:                 strings.TrimSpace(input.Note),
			CreatedBy:            input.ActorID,
		}
		if contractNo != "" {
			contract.ContractNo = &contractNo
		}
		if err := contractRepo.Create(contract); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return newValidationError("contract_no", "contract number %s already exists", contractNo)
			}
			return err
		}
		if contractNo == "" {
			contractNo = fmt.Sprintf("CON-%d-%06d", s.options.Now().UTC().Year(), contract.ID)
			if err := contractRepo.UpdateFields(contract.ID, map[string]interface{}{"contract_no": contractNo}); err != nil {
				return err
			}
		}

		installments := draft.installments
		for i := range installments {
			installments[i].ContractID = contract.ID
			installments[i].CustomerID = customer.ID
		}
		if err := s.installmentRepo.WithTx(tx).CreateBatch(installments); err != nil {
			return err
		}

		result.ContractID = contract.ID
		result.ContractNo = contractNo
		result.NetAmount = contract.NetAmount
		result.IsFirstContract = isFirst
		result.LockedCommissionRate = lockedRate
		result.InstallmentIDs = make([]uint, 0, len(installments))
		for _, item := range installments {
			result.InstallmentIDs = append(result.InstallmentIDs, item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("register contract", err)
	}

	logger.Infow("contract_registered",
		"contract_id", result.ContractID,
		"contract_no", result.ContractNo,
		"customer_id", input.CustomerID,
		"sales_user_id", input.SalesUserID,
		"net_amount", result.NetAmount.String(),
		"is_first_contract", result.IsFirstContract,
		"installments", len(result.InstallmentIDs),
		"actor_id", input.ActorID,
	)
	return result, nil
}

// validateContract 事务外完成全部纯输入校验
func (s *ContractService) validateContract(input RegisterContractInput) (*contractDraft, error) {
	if input.CustomerID == 0 {
		return nil, newValidationError("customer_id", "customer is required")
	}
	gross := input.GrossAmount.Decimal.Round(2)
	if !gross.IsPositive() {
		return nil, newValidationError("gross_amount", "gross amount must be greater than 0")
	}
	if input.SalesUserID == 0 {
		return nil, newValidationError("sales_user_id", "sales user is required")
	}
	signDate, err := parseDate("sign_date", input.SignDate)
	if err != nil {
		return nil, err
	}
	discount, err := parseDiscount(input.DiscountType, input.DiscountValue)
	if err != nil {
		return nil, err
	}
	net := netAmount(gross, discount, input.DiscountInCalc)
	if !net.IsPositive() {
		return nil, newValidationError("discount_value", "net amount must be greater than 0")
	}
	currency, err := normalizeCurrency("currency", input.Currency, s.options.DefaultReceiptCurrency, constants.ReceiptCurrencies)
	if err != nil {
		return nil, err
	}
	if len(input.Installments) == 0 {
		return nil, newValidationError("installments", "at least one installment is required")
	}

	sum := decimal.Zero
	installments := make([]models.Installment, 0, len(input.Installments))
	for i, row := range input.Installments {
		field := fmt.Sprintf("installments[%d]", i)
		dueDate, err := parseDate(field+".due_date", row.DueDate)
		if err != nil {
			return nil, err
		}
		amount := row.Amount.Decimal.Round(2)
		if !amount.IsPositive() {
			return nil, newValidationError(field+".amount", "installment amount must be greater than 0")
		}
		rowCurrency, err := normalizeCurrency(field+".currency", row.Currency, currency, constants.ReceiptCurrencies)
		if err != nil {
			return nil, err
		}
		sum = sum.Add(amount)
		installments = append(installments, models.Installment{
			Seq:             i + 1,
			DueDate:         dueDate,
			AmountDue:       models.NewMoneyFromDecimal(amount),
			AmountPaid:      models.NewMoneyFromDecimal(decimal.Zero),
			Status:          constants.InstallmentStatusPending,
			CollectorUserID: row.CollectorUserID,
			Method:          strings.TrimSpace(row.Method),
			Currency:        rowCurrency,
		})
	}
	if sum.Sub(net).Abs().GreaterThan(s.options.AmountTolerance) {
		return nil, &ScheduleMismatchError{NetAmount: net, ScheduledSum: sum}
	}

	return &contractDraft{
		signDate:     signDate,
		gross:        gross,
		discount:     discount,
		net:          net,
		currency:     currency,
		installments: installments,
	}, nil
}

// VoidContract 作废合同；已有收款的合同不可作废
func (s *ContractService) VoidContract(ctx context.Context, contractID, actorID uint, reason string) (*models.Contract, error) {
	var voided *models.Contract
	err := s.contractRepo.Transaction(func(tx *gorm.DB) error {
		contractRepo := s.contractRepo.WithTx(tx)
		contract, err := contractRepo.GetByIDForUpdate(contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return &NotFoundError{Entity: "contract", ID: contractID}
		}
		if contract.Status == constants.ContractStatusVoid {
			voided = contract
			return nil
		}
		installments, err := s.installmentRepo.WithTx(tx).ListByContract(contract.ID)
		if err != nil {
			return err
		}
		for _, item := range installments {
			if item.AmountPaid.Decimal.IsPositive() {
				return ErrContractHasPayments
			}
		}
		note := strings.TrimSpace(contract.Note)
		if reason = strings.TrimSpace(reason); reason != "" {
			note = strings.TrimSpace(note + "\n[void] " + reason)
		}
		if err := contractRepo.UpdateFields(contract.ID, map[string]interface{}{
			"status": constants.ContractStatusVoid,
			"note":   note,
		}); err != nil {
			return err
		}
		contract.Status = constants.ContractStatusVoid
		contract.Note = note
		voided = contract
		return nil
	})
	if err != nil {
		return nil, wrapTxError("void contract", err)
	}
	logger.Infow("contract_voided", "contract_id", contractID, "actor_id", actorID)
	return voided, nil
}

// GetContract 合同详情（含客户与分期）
func (s *ContractService) GetContract(contractID uint) (*models.Contract, error) {
	contract, err := s.contractRepo.GetDetail(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, &NotFoundError{Entity: "contract", ID: contractID}
	}
	s.refreshStatuses(contract.Installments)
	return contract, nil
}

// ListContracts 合同列表
func (s *ContractService) ListContracts(filter repository.ContractListFilter) ([]models.Contract, int64, error) {
	return s.contractRepo.List(filter)
}

// ListInstallments 分期列表，状态按当天推导
func (s *ContractService) ListInstallments(filter repository.InstallmentListFilter) ([]models.Installment, int64, error) {
	today := truncateDay(s.options.today())
	filter.AsOf = &today
	items, total, err := s.installmentRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	s.refreshStatuses(items)
	return items, total, nil
}

// refreshStatuses 以当天重新推导状态，status 列仅作缓存
func (s *ContractService) refreshStatuses(items []models.Installment) {
	today := s.options.today()
	for i := range items {
		items[i].Status = DeriveInstallmentStatus(items[i].AmountDue.Decimal, items[i].AmountPaid.Decimal, items[i].DueDate, today)
	}
}

// RefreshOverdue 将已过期未结清的分期标记为 overdue，返回处理条数
func (s *ContractService) RefreshOverdue(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	today := s.options.today()
	updated := 0
	for {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		items, err := s.installmentRepo.ListOpenDueBefore(today, batchSize)
		if err != nil {
			return updated, err
		}
		if len(items) == 0 {
			break
		}
		changed := 0
		for _, item := range items {
			status := DeriveInstallmentStatus(item.AmountDue.Decimal, item.AmountPaid.Decimal, item.DueDate, today)
			if status == item.Status {
				continue
			}
			if err := s.installmentRepo.UpdateStatus(item.ID, status); err != nil {
				return updated, err
			}
			changed++
		}
		updated += changed
		if changed == 0 || len(items) < batchSize {
			break
		}
	}
	if updated > 0 {
		logger.Infow("installment_overdue_refreshed", "updated", updated, "today", today.Format(constants.DateLayout))
	}
	return updated, nil
}
