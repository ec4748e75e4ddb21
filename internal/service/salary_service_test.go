package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestSyncSalaryMonthlyUsesPayableCommission(t *testing.T) {
	s := newCommissionScenario(t)
	ctx := context.Background()

	row, err := s.f.salarySvc.SyncSalaryMonthly(ctx, s.sales.ID, "2026-02", 7)
	require.NoError(t, err)
	require.Equal(t, "2026-02", row.Month)
	require.Equal(t, "CNY", row.Currency)
	requireDecimal(t, "8300", row.Commission.Decimal)
	requireDecimal(t, "8300", row.Total.Decimal)
	require.NotNil(t, row.SyncedAt)
	require.EqualValues(t, 7, row.UpdatedBy)

	var detail CommissionResult
	require.NoError(t, json.Unmarshal(row.CommissionDetail, &detail))
	requireDecimal(t, "8300", detail.Payable.Decimal)
	require.Len(t, detail.NewOrders, 1)

	fields, err := s.f.salarySvc.SaveSalaryFields(ctx, SalaryFieldsInput{
		UserID:     s.sales.ID,
		Month:      "2026-02",
		BaseSalary: moneyPtr("5000"),
		Attendance: moneyPtr("200"),
		Deduction:  moneyPtr("100"),
		ActorID:    7,
	})
	require.NoError(t, err)
	require.Equal(t, row.ID, fields.ID)
	requireDecimal(t, "13400", fields.Total.Decimal)

	_, err = s.f.commissionSvc.AddAdjustment(AddAdjustmentInput{UserID: s.sales.ID, Month: "2026-02", Amount: dec("100")})
	require.NoError(t, err)
	resynced, err := s.f.salarySvc.SyncSalaryMonthly(ctx, s.sales.ID, "2026-02", 7)
	require.NoError(t, err)
	requireDecimal(t, "8400", resynced.Commission.Decimal)
	requireDecimal(t, "5000", resynced.BaseSalary.Decimal)
	requireDecimal(t, "13500", resynced.Total.Decimal)

	var rows int64
	require.NoError(t, s.f.db.Model(&models.SalaryMonthly{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	stored, err := s.f.salarySvc.GetSalary(s.sales.ID, "2026-02")
	require.NoError(t, err)
	requireDecimal(t, "13500", stored.Total.Decimal)

	items, total, err := s.f.salarySvc.ListSalaries(repository.SalaryListFilter{Month: "2026-02", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
}

func TestSaveSalaryFieldsValidation(t *testing.T) {
	f := newFinanceFixture(t)
	sales := f.createUser(t, "Alice", nil)
	ctx := context.Background()

	_, err := f.salarySvc.SaveSalaryFields(ctx, SalaryFieldsInput{UserID: sales.ID, Month: "2026-02", BaseSalary: moneyPtr("-1")})
	require.Equal(t, KindInvalid, KindOf(err))
	_, err = f.salarySvc.SaveSalaryFields(ctx, SalaryFieldsInput{UserID: sales.ID, Month: "Feb", BaseSalary: moneyPtr("1")})
	require.Equal(t, KindInvalid, KindOf(err))
	_, err = f.salarySvc.SyncSalaryMonthly(ctx, 9999, "2026-02", 0)
	require.Equal(t, KindNotFound, KindOf(err))
	_, err = f.salarySvc.GetSalary(sales.ID, "2026-02")
	require.Equal(t, KindNotFound, KindOf(err))

	// 调整允许为负
	row, err := f.salarySvc.SaveSalaryFields(ctx, SalaryFieldsInput{UserID: sales.ID, Month: "2026-02", BaseSalary: moneyPtr("1000"), Adjustment: moneyPtr("-50")})
	require.NoError(t, err)
	requireDecimal(t, "950", row.Total.Decimal)
}

func TestSalaryTotal(t *testing.T) {
	row := &models.SalaryMonthly{
		BaseSalary: money("5000"),
		Attendance: money("300"),
		Commission: money("1234.56"),
		Incentive:  money("100"),
		Adjustment: money("-34.56"),
		Deduction:  money("600"),
	}
	requireDecimal(t, "6000", SalaryTotal(row))
}

func moneyPtr(v string) *models.Money {
	m := money(v)
	return &m
}
