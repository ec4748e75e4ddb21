package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/provider"
	"github.com/lingxi-works/fincore/internal/queue"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupConsumer(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	options := service.FinanceOptions{
		DefaultReceiptCurrency: constants.CurrencyCNY,
		AmountTolerance:        decimal.NewFromFloat(0.01),
		Now:                    func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) },
	}
	c := &provider.Container{
		AdminRepo:          repository.NewAdminRepository(db),
		UserRepo:           repository.NewUserRepository(db),
		CustomerRepo:       repository.NewCustomerRepository(db),
		ContractRepo:       repository.NewContractRepository(db),
		InstallmentRepo:    repository.NewInstallmentRepository(db),
		ReceiptRepo:        repository.NewReceiptRepository(db),
		PrepayRepo:         repository.NewPrepayRepository(db),
		CommissionRuleRepo: repository.NewCommissionRuleRepository(db),
		SalaryRepo:         repository.NewSalaryRepository(db),
		CurrencyRepo:       repository.NewCurrencyRepository(db),
	}
	c.CurrencyService = service.NewCurrencyService(c.CurrencyRepo, constants.CurrencyCNY, time.Minute)
	c.CommissionService = service.NewCommissionService(c.CommissionRuleRepo, c.ContractRepo, c.ReceiptRepo, c.UserRepo, c.CurrencyService)
	c.ContractService = service.NewContractService(c.ContractRepo, c.InstallmentRepo, c.CustomerRepo, c.UserRepo, c.CommissionService, options)
	c.SalaryService = service.NewSalaryService(c.SalaryRepo, c.UserRepo, c.CommissionService, c.CurrencyService)
	return NewConsumer(c), db
}

func TestHandleOverdueRefreshMarksPastDueInstallments(t *testing.T) {
	consumer, db := setupConsumer(t)
	user := &models.User{Name: "Alice", Status: constants.StaffStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	customer := &models.Customer{Name: "Acme"}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	contract := &models.Contract{
		CustomerID:  customer.ID,
		SalesUserID: user.ID,
		Title:       "Acme 合同 1",
		SignDate:    time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		GrossAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		NetAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		Currency:    constants.CurrencyCNY,
		Status:      constants.ContractStatusActive,
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("create contract failed: %v", err)
	}
	due := func(month time.Month, day int) time.Time { return time.Date(2026, month, day, 0, 0, 0, 0, time.UTC) }
	items := []models.Installment{
		{ContractID: contract.ID, CustomerID: customer.ID, Seq: 1, DueDate: due(2, 1), AmountDue: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Status: constants.InstallmentStatusPending, Currency: constants.CurrencyCNY},
		{ContractID: contract.ID, CustomerID: customer.ID, Seq: 2, DueDate: due(3, 1), AmountDue: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), AmountPaid: models.NewMoneyFromDecimal(decimal.NewFromInt(40)), Status: constants.InstallmentStatusPartial, Currency: constants.CurrencyCNY},
		{ContractID: contract.ID, CustomerID: customer.ID, Seq: 3, DueDate: due(4, 1), AmountDue: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Status: constants.InstallmentStatusPending, Currency: constants.CurrencyCNY},
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("create installments failed: %v", err)
	}

	task, err := queue.NewOverdueRefreshTask(queue.OverdueRefreshPayload{BatchSize: 10})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOverdueRefresh(context.Background(), task); err != nil {
		t.Fatalf("handle overdue refresh failed: %v", err)
	}

	want := []string{constants.InstallmentStatusOverdue, constants.InstallmentStatusOverdue, constants.InstallmentStatusPending}
	for i, item := range items {
		var stored models.Installment
		if err := db.First(&stored, item.ID).Error; err != nil {
			t.Fatalf("load installment failed: %v", err)
		}
		if stored.Status != want[i] {
			t.Fatalf("installment seq %d status want %s got %s", item.Seq, want[i], stored.Status)
		}
	}
}

func TestHandleOverdueRefreshRejectsBrokenPayload(t *testing.T) {
	consumer, _ := setupConsumer(t)
	err := consumer.handleOverdueRefresh(context.Background(), asynq.NewTask(queue.TaskOverdueRefresh, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry, got %v", err)
	}
}

func TestHandleSalarySync(t *testing.T) {
	consumer, db := setupConsumer(t)
	user := &models.User{Name: "Alice", Status: constants.StaffStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	task, err := queue.NewSalarySyncTask(queue.SalarySyncPayload{UserID: user.ID, Month: "2026-02", ActorID: 1})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleSalarySync(context.Background(), task); err != nil {
		t.Fatalf("handle salary sync failed: %v", err)
	}
	var rows int64
	if err := db.Model(&models.SalaryMonthly{}).Where("user_id = ? AND month = ?", user.ID, "2026-02").Count(&rows).Error; err != nil {
		t.Fatalf("count salary rows failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 salary row, got %d", rows)
	}

	// 未知员工不重试
	missing, _ := queue.NewSalarySyncTask(queue.SalarySyncPayload{UserID: 9999, Month: "2026-02"})
	if err := consumer.handleSalarySync(context.Background(), missing); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry for unknown user, got %v", err)
	}

	empty, _ := queue.NewSalarySyncTask(queue.SalarySyncPayload{})
	if err := consumer.handleSalarySync(context.Background(), empty); err != nil {
		t.Fatalf("expected empty payload to be skipped, got %v", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	conflict := &service.ConcurrencyConflictError{Op: "receipt", Err: errors.New("40001")}
	if errors.Is(retryPolicy(conflict), asynq.SkipRetry) {
		t.Fatalf("concurrency conflict should be retried")
	}
	if errors.Is(retryPolicy(errors.New("db down")), asynq.SkipRetry) {
		t.Fatalf("unclassified error should be retried")
	}
	if !errors.Is(retryPolicy(&service.NotFoundError{Entity: "user", ID: 1}), asynq.SkipRetry) {
		t.Fatalf("not found should skip retry")
	}
	if !errors.Is(retryPolicy(&service.ValidationError{Field: "month", Message: "bad"}), asynq.SkipRetry) {
		t.Fatalf("validation error should skip retry")
	}
}
