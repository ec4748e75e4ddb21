package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type financeFixture struct {
	db            *gorm.DB
	now           time.Time
	currencySvc   *CurrencyService
	commissionSvc *CommissionService
	ruleSvc       *CommissionRuleService
	contractSvc   *ContractService
	receiptSvc    *ReceiptService
	prepaySvc     *PrepayService
	salarySvc     *SalaryService
}

func newFinanceFixture(t *testing.T) *financeFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:finance_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	models.DB = db

	f := &financeFixture{db: db, now: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)}
	options := FinanceOptions{
		DefaultReceiptCurrency: constants.CurrencyCNY,
		AmountTolerance:        decimal.NewFromFloat(0.01),
		Now:                    func() time.Time { return f.now },
	}

	contractRepo := repository.NewContractRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	userRepo := repository.NewUserRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	prepayRepo := repository.NewPrepayRepository(db)
	ruleRepo := repository.NewCommissionRuleRepository(db)
	salaryRepo := repository.NewSalaryRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)

	f.currencySvc = NewCurrencyService(currencyRepo, constants.CurrencyCNY, time.Minute)
	f.commissionSvc = NewCommissionService(ruleRepo, contractRepo, receiptRepo, userRepo, f.currencySvc)
	f.ruleSvc = NewCommissionRuleService(ruleRepo, userRepo)
	f.contractSvc = NewContractService(contractRepo, installmentRepo, customerRepo, userRepo, f.commissionSvc, options)
	f.receiptSvc = NewReceiptService(receiptRepo, installmentRepo, contractRepo, customerRepo, prepayRepo, f.currencySvc, nil, options)
	f.prepaySvc = NewPrepayService(prepayRepo, customerRepo, f.receiptSvc, options)
	f.salarySvc = NewSalaryService(salaryRepo, userRepo, f.commissionSvc, f.currencySvc)

	f.seedCurrencies(t)
	return f
}

func (f *financeFixture) seedCurrencies(t *testing.T) {
	t.Helper()
	rate := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}
	items := []models.Currency{
		{Code: constants.CurrencyCNY, Name: "人民币", FixedRate: rate("1"), FloatingRate: rate("1"), IsBase: true, Status: "active", SortOrder: 1},
		{Code: constants.CurrencyTWD, Name: "新台币", FixedRate: rate("4.5"), FloatingRate: rate("4.4"), Status: "active", SortOrder: 2},
		{Code: constants.CurrencyUSD, Name: "美元", FixedRate: rate("0.14"), Status: "active", SortOrder: 3},
	}
	require.NoError(t, f.db.Create(&items).Error)
}

func (f *financeFixture) createUser(t *testing.T, name string, departmentID *uint) *models.User {
	t.Helper()
	user := &models.User{Name: name, DepartmentID: departmentID, Status: constants.StaffStatusActive}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *financeFixture) createCustomer(t *testing.T, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name}
	require.NoError(t, f.db.Create(customer).Error)
	return customer
}

// createTierRule 默认三档：[0,100000) 3%，[100000,300000) 5%，[300000,+∞) 8%
func (f *financeFixture) createTierRule(t *testing.T) *models.CommissionRule {
	t.Helper()
	rule, err := f.ruleSvc.SaveRule(context.Background(), SaveRuleInput{
		Name:     "销售阶梯提成",
		RuleType: constants.CommissionRuleTier,
		Currency: constants.CurrencyCNY,
		Tiers: []TierInput{
			{From: money("0"), To: nullDec("100000"), Rate: dec("0.03")},
			{From: money("100000"), To: nullDec("300000"), Rate: dec("0.05")},
			{From: money("300000"), Rate: dec("0.08")},
		},
	})
	require.NoError(t, err)
	_, err = f.ruleSvc.SetRuleActive(context.Background(), rule.ID, true, 0)
	require.NoError(t, err)
	return rule
}

func (f *financeFixture) registerContract(t *testing.T, customerID, salesUserID uint, signDate, amount string, schedule ...InstallmentInput) *RegisterContractResult {
	t.Helper()
	if len(schedule) == 0 {
		schedule = []InstallmentInput{{DueDate: "2026-12-31", Amount: money(amount)}}
	}
	result, err := f.contractSvc.RegisterContract(context.Background(), RegisterContractInput{
		CustomerID:   customerID,
		SalesUserID:  salesUserID,
		SignDate:     signDate,
		GrossAmount:  money(amount),
		Currency:     constants.CurrencyCNY,
		Installments: schedule,
		ActorID:      1,
	})
	require.NoError(t, err)
	return result
}

func (f *financeFixture) receive(t *testing.T, installmentID uint, date, cash, prepay string) *ReceiptSummary {
	t.Helper()
	summary, err := f.receiptSvc.RegisterReceipt(context.Background(), RegisterReceiptInput{
		InstallmentID:  installmentID,
		ReceivedDate:   date,
		AmountReceived: money(cash),
		PrepayAmount:   money(prepay),
		Method:         constants.ReceiptMethodTransfer,
		ActorID:        1,
	})
	require.NoError(t, err)
	return summary
}

func (f *financeFixture) depositPrepay(t *testing.T, customerID uint, amount string) {
	t.Helper()
	_, err := f.prepaySvc.ManualAdjust(context.Background(), ManualAdjustInput{
		CustomerID: customerID,
		Direction:  constants.PrepayDirectionIn,
		Amount:     money(amount),
		Note:       "opening balance",
		ActorID:    1,
	})
	require.NoError(t, err)
}

func (f *financeFixture) installment(t *testing.T, id uint) models.Installment {
	t.Helper()
	var item models.Installment
	require.NoError(t, f.db.First(&item, id).Error)
	return item
}

func (f *financeFixture) contract(t *testing.T, id uint) models.Contract {
	t.Helper()
	var item models.Contract
	require.NoError(t, f.db.First(&item, id).Error)
	return item
}

func (f *financeFixture) balance(t *testing.T, customerID uint) decimal.Decimal {
	t.Helper()
	balance, err := f.prepaySvc.Balance(customerID)
	require.NoError(t, err)
	return balance.Decimal
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
}

func money(v string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(v))
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

// retryOnConflict 并发用例中对锁冲突重试，其余结果原样返回
func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 1; attempt <= 100; attempt++ {
		if err = fn(); !IsRetryable(err) {
			return err
		}
		time.Sleep(time.Duration(1+rand.Intn(attempt*5)) * time.Millisecond)
	}
	return err
}
