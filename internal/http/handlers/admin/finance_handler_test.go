package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/provider"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type financeHandlerEnv struct {
	db       *gorm.DB
	engine   *gin.Engine
	user     *models.User
	customer *models.Customer
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupFinanceHandler(t *testing.T) *financeHandlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:finance_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	models.DB = db

	rate := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}
	require.NoError(t, db.Create(&[]models.Currency{
		{Code: constants.CurrencyCNY, Name: "人民币", FixedRate: rate("1"), FloatingRate: rate("1"), IsBase: true, Status: "active", SortOrder: 1},
		{Code: constants.CurrencyTWD, Name: "新台币", FixedRate: rate("4.5"), FloatingRate: rate("4.4"), Status: "active", SortOrder: 2},
	}).Error)

	user := &models.User{Name: "Alice", Status: constants.StaffStatusActive}
	require.NoError(t, db.Create(user).Error)
	customer := &models.Customer{Name: "远航贸易"}
	require.NoError(t, db.Create(customer).Error)

	options := service.FinanceOptions{
		DefaultReceiptCurrency: constants.CurrencyCNY,
		AmountTolerance:        decimal.NewFromFloat(0.01),
		Now:                    func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
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
	c.CommissionRuleService = service.NewCommissionRuleService(c.CommissionRuleRepo, c.UserRepo)
	c.CommissionService = service.NewCommissionService(c.CommissionRuleRepo, c.ContractRepo, c.ReceiptRepo, c.UserRepo, c.CurrencyService)
	c.ContractService = service.NewContractService(c.ContractRepo, c.InstallmentRepo, c.CustomerRepo, c.UserRepo, c.CommissionService, options)
	c.ReceiptService = service.NewReceiptService(c.ReceiptRepo, c.InstallmentRepo, c.ContractRepo, c.CustomerRepo, c.PrepayRepo, c.CurrencyService, nil, options)
	c.PrepayService = service.NewPrepayService(c.PrepayRepo, c.CustomerRepo, c.ReceiptService, options)
	c.SalaryService = service.NewSalaryService(c.SalaryRepo, c.UserRepo, c.CommissionService, c.CurrencyService)

	h := New(c)
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		ctx.Set("admin_id", uint(1))
		ctx.Next()
	})
	finance := r.Group("/api/v1/admin/finance")
	finance.GET("/currencies", h.GetCurrencies)
	finance.PUT("/currencies/:code", h.UpdateCurrencyRate)
	finance.GET("/exchange-rate-history", h.GetExchangeRateHistory)
	finance.GET("/customers", h.GetCustomers)
	finance.GET("/customers/:id/prepay", h.GetCustomerPrepay)
	finance.POST("/prepay/apply", h.ApplyPrepay)
	finance.POST("/prepay/adjust", h.AdjustPrepay)
	finance.GET("/contracts", h.GetContracts)
	finance.POST("/contracts", h.CreateContract)
	finance.GET("/contracts/:id", h.GetContract)
	finance.POST("/contracts/:id/void", h.VoidContract)
	finance.GET("/installments", h.GetInstallments)
	finance.POST("/receipts", h.CreateReceipt)
	finance.GET("/receipts", h.GetReceipts)
	finance.POST("/commission-rules", h.CreateCommissionRule)
	finance.POST("/commission-rules/:id/activate", h.ActivateCommissionRule)
	finance.GET("/commissions", h.GetCommission)
	finance.POST("/commission-adjustments", h.CreateCommissionAdjustment)
	finance.PUT("/salaries/:user_id/:month", h.UpdateSalary)
	finance.GET("/salaries", h.GetSalaries)

	return &financeHandlerEnv{db: db, engine: r, user: user, customer: customer}
}

func (e *financeHandlerEnv) do(t *testing.T, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (e *financeHandlerEnv) createContract(t *testing.T, amounts ...string) service.RegisterContractResult {
	t.Helper()
	dueDates := []string{"2026-03-31", "2026-06-30", "2026-09-30"}
	installments := make([]gin.H, 0, len(amounts))
	total := decimal.Zero
	for i, amount := range amounts {
		installments = append(installments, gin.H{"due_date": dueDates[i], "amount": amount})
		total = total.Add(decimal.RequireFromString(amount))
	}
	resp := e.do(t, http.MethodPost, "/api/v1/admin/finance/contracts", gin.H{
		"customer_id":   e.customer.ID,
		"sales_user_id": e.user.ID,
		"sign_date":     "2026-03-01",
		"gross_amount":  total.StringFixed(2),
		"currency":      "CNY",
		"installments":  installments,
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var result service.RegisterContractResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	return result
}

func TestCreateContractReceiptAndPrepayFlow(t *testing.T) {
	env := setupFinanceHandler(t)
	contract := env.createContract(t, "6000", "4000")
	require.Len(t, contract.InstallmentIDs, 2)
	require.True(t, contract.IsFirstContract)
	require.Equal(t, "10000.00", contract.NetAmount.String())

	resp := env.do(t, http.MethodPost, "/api/v1/admin/finance/receipts", gin.H{
		"installment_id":  contract.InstallmentIDs[0],
		"received_date":   "2026-03-05",
		"amount_received": "7000",
		"method":          constants.ReceiptMethodTransfer,
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var summary service.ReceiptSummary
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	require.Equal(t, "1000.00", summary.Overflow.String())
	require.Equal(t, constants.InstallmentStatusPaid, summary.NewStatus)
	require.NotEmpty(t, summary.ReceiptNo)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/finance/customers/%d/prepay", env.customer.ID), nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var prepay struct {
		Balance models.Money      `json:"balance"`
		Ledger  []json.RawMessage `json:"ledger"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &prepay))
	require.Equal(t, "1000.00", prepay.Balance.String())
	require.Len(t, prepay.Ledger, 1)

	resp = env.do(t, http.MethodPost, "/api/v1/admin/finance/prepay/apply", gin.H{
		"customer_id":    env.customer.ID,
		"installment_id": contract.InstallmentIDs[1],
		"amount":         "1000",
		"applied_date":   "2026-03-08",
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var applied service.PrepayApplyResult
	require.NoError(t, json.Unmarshal(resp.Data, &applied))
	require.Equal(t, "1000.00", applied.NewPaid.String())
	require.Equal(t, constants.InstallmentStatusPartial, applied.NewStatus)
	require.True(t, applied.BalanceAfter.IsZero())

	resp = env.do(t, http.MethodPost, "/api/v1/admin/finance/prepay/apply", gin.H{
		"customer_id":    env.customer.ID,
		"installment_id": contract.InstallmentIDs[1],
		"amount":         "1",
	})
	require.Equal(t, 400, resp.StatusCode)
	requireErrorType(t, resp, "insufficient_prepay_balance")
}

func requireErrorType(t *testing.T, resp envelope, want string) {
	t.Helper()
	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, want, data["error"])
}

func TestCreateContractScheduleMismatch(t *testing.T) {
	env := setupFinanceHandler(t)
	resp := env.do(t, http.MethodPost, "/api/v1/admin/finance/contracts", gin.H{
		"customer_id":   env.customer.ID,
		"sales_user_id": env.user.ID,
		"sign_date":     "2026-03-01",
		"gross_amount":  "10000",
		"installments": []gin.H{
			{"due_date": "2026-03-31", "amount": "5000"},
		},
	})
	require.Equal(t, 400, resp.StatusCode)
	requireErrorType(t, resp, "schedule_mismatch")

	var count int64
	require.NoError(t, env.db.Model(&models.Contract{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateContractRejectsMalformedBody(t *testing.T) {
	env := setupFinanceHandler(t)
	resp := env.do(t, http.MethodPost, "/api/v1/admin/finance/contracts", gin.H{"customer_id": env.customer.ID})
	require.Equal(t, 400, resp.StatusCode)
}

func TestGetContractNotFound(t *testing.T) {
	env := setupFinanceHandler(t)
	resp := env.do(t, http.MethodGet, "/api/v1/admin/finance/contracts/999", nil)
	require.Equal(t, 404, resp.StatusCode)
	requireErrorType(t, resp, "not_found")

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/contracts/abc", nil)
	require.Equal(t, 400, resp.StatusCode)
}

func TestVoidContractAndList(t *testing.T) {
	env := setupFinanceHandler(t)
	contract := env.createContract(t, "3000")

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/finance/contracts/%d/void", contract.ContractID), gin.H{"reason": "客户取消"})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/contracts?status="+constants.ContractStatusVoid, nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var items []models.Contract
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, contract.ContractID, items[0].ID)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/contracts?signed_from=2026/03/01", nil)
	require.Equal(t, 400, resp.StatusCode)
}

func TestUpdateCurrencyRateWritesHistory(t *testing.T) {
	env := setupFinanceHandler(t)

	resp := env.do(t, http.MethodPut, "/api/v1/admin/finance/currencies/TWD", gin.H{"rate_type": "fixed", "rate": "4.6"})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = env.do(t, http.MethodPut, "/api/v1/admin/finance/currencies/TWD", gin.H{"rate_type": "spot", "rate": "4.6"})
	require.Equal(t, 400, resp.StatusCode)
	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, "rate_type", data["field"])
	require.Equal(t, "validation_error", data["error"])

	resp = env.do(t, http.MethodPut, "/api/v1/admin/finance/currencies/XXX", gin.H{"rate_type": "fixed", "rate": "2"})
	require.Equal(t, 404, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/exchange-rate-history?currency=twd", nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var history []models.ExchangeRateHistory
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, "4.6", history[0].Rate.String())
}

func TestCommissionEndpoints(t *testing.T) {
	env := setupFinanceHandler(t)

	resp := env.do(t, http.MethodPost, "/api/v1/admin/finance/commission-rules", gin.H{
		"name":      "阶梯提成",
		"rule_type": constants.CommissionRuleTier,
		"currency":  "CNY",
		"tiers": []gin.H{
			{"from": "0", "to": "100000", "rate": "0.03"},
			{"from": "100000", "to": nil, "rate": "0.05"},
		},
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var rule models.CommissionRule
	require.NoError(t, json.Unmarshal(resp.Data, &rule))
	require.False(t, rule.IsActive)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/finance/commission-rules/%d/activate", rule.ID), nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	contract := env.createContract(t, "20000")
	resp = env.do(t, http.MethodPost, "/api/v1/admin/finance/receipts", gin.H{
		"installment_id":  contract.InstallmentIDs[0],
		"received_date":   "2026-03-06",
		"amount_received": "20000",
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = env.do(t, http.MethodPost, "/api/v1/admin/finance/commission-adjustments", gin.H{
		"user_id": env.user.ID,
		"month":   "2026-03",
		"amount":  "-100",
		"reason":  "退款扣回",
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/finance/commissions?user_id=%d&month=2026-03", env.user.ID), nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var result service.CommissionResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Equal(t, "600.00", result.NewOrderCommission.String())
	require.Equal(t, "600.00", result.Total.String())
	require.Equal(t, "500.00", result.Payable.String())

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/commissions?month=2026-03", nil)
	require.Equal(t, 400, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/commissions?user_id=999&month=2026-03", nil)
	require.Equal(t, 404, resp.StatusCode)
}

func TestUpdateSalaryRecomputesTotal(t *testing.T) {
	env := setupFinanceHandler(t)

	resp := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/finance/salaries/%d/2026-03", env.user.ID), gin.H{
		"base_salary": "8000",
		"attendance":  "300",
		"deduction":   "50",
	})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var row models.SalaryMonthly
	require.NoError(t, json.Unmarshal(resp.Data, &row))
	require.Equal(t, "8250.00", row.Total.String())

	resp = env.do(t, http.MethodGet, "/api/v1/admin/finance/salaries?month=2026-03", nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var rows []models.SalaryMonthly
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 1)
}
