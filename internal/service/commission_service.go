package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 提成比例来源
const (
	RateSourceCurrentTier = "current_tier"
	RateSourceLocked      = "locked"
	RateSourceFallback    = "fallback"
)

// CommissionService 提成计算服务（锁定比例 + 月度计算）
type CommissionService struct {
	ruleRepo     repository.CommissionRuleRepository
	contractRepo repository.ContractRepository
	receiptRepo  repository.ReceiptRepository
	userRepo     repository.UserRepository
	currencySvc  *CurrencyService
}

// NewCommissionService 创建提成计算服务
func NewCommissionService(
	ruleRepo repository.CommissionRuleRepository,
	contractRepo repository.ContractRepository,
	receiptRepo repository.ReceiptRepository,
	userRepo repository.UserRepository,
	currencySvc *CurrencyService,
) *CommissionService {
	return &CommissionService{
		ruleRepo:     ruleRepo,
		contractRepo: contractRepo,
		receiptRepo:  receiptRepo,
		userRepo:     userRepo,
		currencySvc:  currencySvc,
	}
}

// LockRateInput 首单锁定比例输入
type LockRateInput struct {
	SalesUser *models.User
	SignDate  time.Time
	NetAmount decimal.Decimal
	Currency  string
}

// LockRate 在调用方事务内计算首单锁定比例；无启用规则时返回无效值。
// 档位基数 = 该销售签约当月已有合同净额 + 本合同净额，统一按固定汇率折算到规则币种。
func (s *CommissionService) LockRate(tx *gorm.DB, input LockRateInput) (decimal.NullDecimal, *models.CommissionRule, error) {
	if input.SalesUser == nil {
		return decimal.NullDecimal{}, nil, nil
	}
	rule, err := activeRuleForUser(s.ruleRepo.WithTx(tx), input.SalesUser)
	if err != nil || rule == nil {
		return decimal.NullDecimal{}, nil, err
	}

	kind := ruleKindOf(rule)
	if fixed, ok := kind.(FixedRule); ok {
		return decimal.NullDecimal{Decimal: fixed.Rate, Valid: true}, rule, nil
	}

	table, err := s.currencySvc.TableTx(tx)
	if err != nil {
		return decimal.NullDecimal{}, nil, err
	}
	from, to := monthOf(input.SignDate)
	existing, err := s.contractRepo.WithTx(tx).ListSignedBySales(input.SalesUser.ID, from, to)
	if err != nil {
		return decimal.NullDecimal{}, nil, err
	}
	base, _ := sumContractsInCurrency(existing, rule.Currency, RateFixed, table)
	base = base.Add(Convert(input.NetAmount, input.Currency, rule.Currency, RateFixed, table))

	rate, matched := kind.RateFor(base)
	if !matched {
		logger.Warnw("commission_lock_tier_fallback",
			"sales_user_id", input.SalesUser.ID,
			"rule_id", rule.ID,
			"tier_base", base.StringFixed(2),
			"rate", rate.String(),
		)
	}
	return decimal.NullDecimal{Decimal: rate, Valid: true}, rule, nil
}

// CommissionQuery 提成计算参数
type CommissionQuery struct {
	UserID          uint
	Month           string
	RuleID          *uint
	RateType        RateKind
	DisplayCurrency string
}

// TierContract 档位基数明细
type TierContract struct {
	ContractID   uint         `json:"contract_id"`
	Title        string       `json:"title"`
	SignDate     time.Time    `json:"sign_date"`
	NetAmount    models.Money `json:"net_amount"`
	Currency     string       `json:"currency"`
	AmountInRule models.Money `json:"amount_in_rule"`
}

// CommissionLine 单笔收款提成明细
type CommissionLine struct {
	ReceiptID    uint            `json:"receipt_id"`
	ContractID   uint            `json:"contract_id"`
	Title        string          `json:"title"`
	SignDate     time.Time       `json:"sign_date"`
	ReceivedDate time.Time       `json:"received_date"`
	Amount       models.Money    `json:"amount"`
	Currency     string          `json:"currency"`
	AmountInRule models.Money    `json:"amount_in_rule"`
	Rate         decimal.Decimal `json:"rate"`
	RateSource   string          `json:"rate_source"`
	Commission   models.Money    `json:"commission"`
}

// CommissionResult 月度提成计算结果，金额均为规则币种
type CommissionResult struct {
	UserID             uint             `json:"user_id"`
	Month              string           `json:"month"`
	RuleID             *uint            `json:"rule_id"`
	RuleType           string           `json:"rule_type"`
	RuleCurrency       string           `json:"rule_currency"`
	RateType           string           `json:"rate_type"`
	TierBase           models.Money     `json:"tier_base"`
	TierRate           decimal.Decimal  `json:"tier_rate"`
	TierMatched        bool             `json:"tier_matched"`
	NewOrderCommission models.Money     `json:"new_order_commission"`
	BackBookCommission models.Money     `json:"back_book_commission"`
	Total              models.Money     `json:"total"`
	AdjustmentTotal    models.Money     `json:"adjustment_total"`
	Payable            models.Money     `json:"payable"`
	DisplayCurrency    string           `json:"display_currency"`
	PayableDisplay     models.Money     `json:"payable_display"`
	TierContracts      []TierContract   `json:"tier_contracts"`
	NewOrders          []CommissionLine `json:"new_orders"`
	BackBook           []CommissionLine `json:"back_book"`
}

// CalculateCommission 计算员工某月提成（固定汇率、规则币种展示）
func (s *CommissionService) CalculateCommission(ctx context.Context, userID uint, month string, ruleID *uint) (*CommissionResult, error) {
	return s.Calculate(ctx, CommissionQuery{UserID: userID, Month: month, RuleID: ruleID})
}

// Calculate 计算员工某月提成，纯读操作
func (s *CommissionService) Calculate(ctx context.Context, query CommissionQuery) (*CommissionResult, error) {
	monthStart, monthEnd, err := monthRange(query.Month)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(query.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Entity: "user", ID: query.UserID}
	}
	rateKind := query.RateType
	if rateKind != RateFloating {
		rateKind = RateFixed
	}

	rule, err := s.resolveRule(user, query.RuleID)
	if errors.Is(err, ErrMultipleActiveRules) {
		// 读路径不因规则冲突失败，按无规则计算
		logger.Warnw("commission_rule_ambiguous",
			"user_id", user.ID,
			"month", query.Month,
		)
		rule, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	table, err := s.currencySvc.Table(ctx)
	if err != nil {
		return nil, err
	}

	result := &CommissionResult{
		UserID:       user.ID,
		Month:        monthStart.Format(constants.MonthLayout),
		RuleType:     constants.CommissionRuleFixed,
		RuleCurrency: s.currencySvc.HomeCurrency(),
		RateType:     string(rateKind),
		TierRate:     decimal.Zero,
	}
	kind := ruleKindOf(rule)
	if rule != nil {
		id := rule.ID
		result.RuleID = &id
		result.RuleType = rule.RuleType
		if code := strings.TrimSpace(rule.Currency); code != "" {
			result.RuleCurrency = code
		}
	}
	result.DisplayCurrency = strings.ToUpper(strings.TrimSpace(query.DisplayCurrency))
	if result.DisplayCurrency == "" {
		result.DisplayCurrency = result.RuleCurrency
	}

	contracts, err := s.contractRepo.ListSignedBySales(user.ID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	base, tierContracts := sumContractsInCurrency(contracts, result.RuleCurrency, rateKind, table)
	result.TierBase = models.NewMoneyFromDecimal(base)
	result.TierContracts = tierContracts
	if rule != nil {
		result.TierRate, result.TierMatched = kind.RateFor(base)
	}

	receipts, err := s.receiptRepo.ListForCommission(repository.CommissionReceiptFilter{
		SalesUserID:  user.ID,
		ReceivedFrom: monthStart,
		ReceivedTo:   monthEnd,
		FirstOnly:    true,
	})
	if err != nil {
		return nil, err
	}

	newOrder := decimal.Zero
	backBook := decimal.Zero
	result.NewOrders = make([]CommissionLine, 0)
	result.BackBook = make([]CommissionLine, 0)
	for _, receipt := range receipts {
		contract := receipt.Contract
		if contract == nil || !contract.IsFirstContract {
			continue
		}
		amount := commissionableAmount(receipt, rule != nil && rule.IncludePrepay)
		if amount.IsZero() {
			continue
		}
		inRule := Convert(amount, receipt.Currency, result.RuleCurrency, rateKind, table)
		line := CommissionLine{
			ReceiptID:    receipt.ID,
			ContractID:   contract.ID,
			Title:        contract.Title,
			SignDate:     contract.SignDate,
			ReceivedDate: receipt.ReceivedDate,
			Amount:       models.NewMoneyFromDecimal(amount),
			Currency:     receipt.Currency,
			AmountInRule: models.NewMoneyFromDecimal(inRule),
		}

		signedThisMonth := !contract.SignDate.Before(monthStart) && contract.SignDate.Before(monthEnd)
		if signedThisMonth {
			line.Rate = result.TierRate
			line.RateSource = RateSourceCurrentTier
			commission := inRule.Mul(line.Rate)
			line.Commission = models.NewMoneyFromDecimal(commission)
			newOrder = newOrder.Add(commission)
			result.NewOrders = append(result.NewOrders, line)
			continue
		}

		if contract.LockedCommissionRate.Valid {
			line.Rate = contract.LockedCommissionRate.Decimal
			line.RateSource = RateSourceLocked
		} else {
			line.Rate = kind.FallbackRate()
			line.RateSource = RateSourceFallback
			logger.Warnw("commission_locked_rate_missing",
				"contract_id", contract.ID,
				"user_id", user.ID,
				"month", result.Month,
				"fallback_rate", line.Rate.String(),
			)
		}
		commission := inRule.Mul(line.Rate)
		line.Commission = models.NewMoneyFromDecimal(commission)
		backBook = backBook.Add(commission)
		result.BackBook = append(result.BackBook, line)
	}

	result.NewOrderCommission = models.NewMoneyFromDecimal(newOrder)
	result.BackBookCommission = models.NewMoneyFromDecimal(backBook)
	result.Total = models.NewMoneyFromDecimal(newOrder.Add(backBook))

	adjustments, err := s.ruleRepo.ListAdjustments(user.ID, result.Month)
	if err != nil {
		return nil, err
	}
	adjustTotal := decimal.Zero
	for _, adjust := range adjustments {
		adjustTotal = adjustTotal.Add(Convert(adjust.Amount.Decimal, adjust.Currency, result.RuleCurrency, rateKind, table))
	}
	result.AdjustmentTotal = models.NewMoneyFromDecimal(adjustTotal)
	payable := result.Total.Decimal.Add(result.AdjustmentTotal.Decimal)
	result.Payable = models.NewMoneyFromDecimal(payable)
	result.PayableDisplay = models.NewMoneyFromDecimal(Convert(payable, result.RuleCurrency, result.DisplayCurrency, rateKind, table))
	return result, nil
}

// AddAdjustmentInput 提成调整输入
type AddAdjustmentInput struct {
	UserID   uint
	Month    string
	Amount   decimal.Decimal
	Currency string
	Reason   string
	ActorID  uint
}

// AddAdjustment 新增提成手工调整（可为负）
func (s *CommissionService) AddAdjustment(input AddAdjustmentInput) (*models.CommissionAdjustment, error) {
	start, _, err := monthRange(input.Month)
	if err != nil {
		return nil, err
	}
	if input.Amount.IsZero() {
		return nil, newValidationError("amount", "adjustment amount must not be zero")
	}
	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Entity: "user", ID: input.UserID}
	}
	currency, err := normalizeCurrency("currency", input.Currency, s.currencySvc.HomeCurrency(), constants.RuleCurrencies)
	if err != nil {
		return nil, err
	}
	adjust := &models.CommissionAdjustment{
		UserID:    user.ID,
		Month:     start.Format(constants.MonthLayout),
		Amount:    models.NewMoneyFromDecimal(input.Amount),
		Currency:  currency,
		Reason:    strings.TrimSpace(input.Reason),
		CreatedBy: input.ActorID,
	}
	if err := s.ruleRepo.CreateAdjustment(adjust); err != nil {
		return nil, err
	}
	return adjust, nil
}

func (s *CommissionService) resolveRule(user *models.User, ruleID *uint) (*models.CommissionRule, error) {
	if ruleID != nil && *ruleID != 0 {
		rule, err := s.ruleRepo.GetByID(*ruleID)
		if err != nil {
			return nil, err
		}
		if rule == nil {
			return nil, &NotFoundError{Entity: "commission rule", ID: *ruleID}
		}
		return rule, nil
	}
	return activeRuleForUser(s.ruleRepo, user)
}

// activeRuleForUser 按 员工范围 -> 部门范围 -> 无范围 的顺序选取唯一启用规则
func activeRuleForUser(repo repository.CommissionRuleRepository, user *models.User) (*models.CommissionRule, error) {
	rules, err := repo.ListActive()
	if err != nil {
		return nil, err
	}
	var byUser, byDept, unscoped []*models.CommissionRule
	for i := range rules {
		rule := &rules[i]
		if len(rule.Scopes) == 0 {
			unscoped = append(unscoped, rule)
			continue
		}
		switch {
		case scopesMatchUser(rule.Scopes, user):
			byUser = append(byUser, rule)
		case scopesMatchDepartment(rule.Scopes, user):
			byDept = append(byDept, rule)
		}
	}
	for _, level := range [][]*models.CommissionRule{byUser, byDept, unscoped} {
		switch len(level) {
		case 0:
			continue
		case 1:
			return level[0], nil
		default:
			return nil, ErrMultipleActiveRules
		}
	}
	return nil, nil
}

func scopesMatchUser(scopes []models.CommissionRuleScope, user *models.User) bool {
	if user == nil {
		return false
	}
	for _, scope := range scopes {
		if scope.UserID != nil && *scope.UserID == user.ID {
			return true
		}
	}
	return false
}

func scopesMatchDepartment(scopes []models.CommissionRuleScope, user *models.User) bool {
	if user == nil || user.DepartmentID == nil {
		return false
	}
	for _, scope := range scopes {
		if scope.DepartmentID != nil && *scope.DepartmentID == *user.DepartmentID {
			return true
		}
	}
	return false
}

// commissionableAmount 计提金额：默认按实收现金；计入预收时按冲抵到分期的金额（现金冲抵 + 预收冲抵），
// 溢出转入预收的部分在被冲抵时才计入
func commissionableAmount(receipt models.Receipt, includePrepay bool) decimal.Decimal {
	if includePrepay {
		return receipt.AmountApplied.Decimal
	}
	return receipt.AmountReceived.Decimal
}

// sumContractsInCurrency 合同净额折算汇总（未舍入）及明细
func sumContractsInCurrency(contracts []models.Contract, currency string, kind RateKind, table RateTable) (decimal.Decimal, []TierContract) {
	total := decimal.Zero
	details := make([]TierContract, 0, len(contracts))
	for _, contract := range contracts {
		converted := Convert(contract.NetAmount.Decimal, contract.Currency, currency, kind, table)
		total = total.Add(converted)
		details = append(details, TierContract{
			ContractID:   contract.ID,
			Title:        contract.Title,
			SignDate:     contract.SignDate,
			NetAmount:    contract.NetAmount,
			Currency:     contract.Currency,
			AmountInRule: models.NewMoneyFromDecimal(converted),
		})
	}
	return total, details
}
