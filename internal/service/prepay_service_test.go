package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestApplyPrepayToInstallment(t *testing.T) {
	f := newFinanceFixture(t)
	sales := f.createUser(t, "Alice", nil)
	customer := f.createCustomer(t, "Acme")
	contract := f.registerContract(t, customer.ID, sales.ID, "2026-01-10", "100")
	f.depositPrepay(t, customer.ID, "120")

	result, err := f.prepaySvc.ApplyPrepayToInstallment(context.Background(), ApplyPrepayInput{
		CustomerID:    customer.ID,
		InstallmentID: contract.InstallmentIDs[0],
		Amount:        money("120"),
		ActorID:       1,
	})
	require.NoError(t, err)
	requireDecimal(t, "100", result.AmountApplied.Decimal)
	requireDecimal(t, "20", result.BalanceAfter.Decimal)
	require.Equal(t, constants.InstallmentStatusPaid, result.NewStatus)
	require.Equal(t, constants.ContractStatusClosed, result.ContractStatus)

	var receipt models.Receipt
	require.NoError(t, f.db.First(&receipt, result.ReceiptID).Error)
	require.Equal(t, constants.ReceiptSourcePrepayApply, receipt.SourceType)
	require.Equal(t, constants.ReceiptMethodPrepay, receipt.Method)
	requireDecimal(t, "0", receipt.AmountReceived.Decimal)
	requireDecimal(t, "100", receipt.PrepayUsed.Decimal)
	// 默认日期取当天
	require.Equal(t, "2026-02-20", receipt.ReceivedDate.Format(constants.DateLayout))
}

func TestApplyPrepayRejectsForeignInstallment(t *testing.T) {
	f := newFinanceFixture(t)
	sales := f.createUser(t, "Alice", nil)
	owner := f.createCustomer(t, "Acme")
	other := f.createCustomer(t, "Globex")
	contract := f.registerContract(t, owner.ID, sales.ID, "2026-01-10", "100")
	f.depositPrepay(t, other.ID, "100")

	_, err := f.prepaySvc.ApplyPrepayToInstallment(context.Background(), ApplyPrepayInput{
		CustomerID:    other.ID,
		InstallmentID: contract.InstallmentIDs[0],
		Amount:        money("50"),
	})
	var mismatch *OwnershipMismatchError
	require.True(t, errors.As(err, &mismatch), "err=%v", err)
	requireDecimal(t, "100", f.balance(t, other.ID))
	requireDecimal(t, "0", f.installment(t, contract.InstallmentIDs[0]).AmountPaid.Decimal)
}

func TestApplyPrepayRejectsInsufficientBalance(t *testing.T) {
	f := newFinanceFixture(t)
	sales := f.createUser(t, "Alice", nil)
	customer := f.createCustomer(t, "Acme")
	contract := f.registerContract(t, customer.ID, sales.ID, "2026-01-10", "100")
	f.depositPrepay(t, customer.ID, "30")

	_, err := f.prepaySvc.ApplyPrepayToInstallment(context.Background(), ApplyPrepayInput{
		CustomerID:    customer.ID,
		InstallmentID: contract.InstallmentIDs[0],
		Amount:        money("50"),
	})
	var insufficient *InsufficientPrepayBalanceError
	require.True(t, errors.As(err, &insufficient), "err=%v", err)
	requireDecimal(t, "30", f.balance(t, customer.ID))
}

func TestManualAdjustKeepsBalanceNonNegative(t *testing.T) {
	f := newFinanceFixture(t)
	customer := f.createCustomer(t, "Acme")
	ctx := context.Background()

	f.depositPrepay(t, customer.ID, "50")
	_, err := f.prepaySvc.ManualAdjust(ctx, ManualAdjustInput{
		CustomerID: customer.ID,
		Direction:  constants.PrepayDirectionOut,
		Amount:     money("50.01"),
		Note:       "refund",
	})
	var insufficient *InsufficientPrepayBalanceError
	require.True(t, errors.As(err, &insufficient), "err=%v", err)

	entry, err := f.prepaySvc.ManualAdjust(ctx, ManualAdjustInput{
		CustomerID: customer.ID,
		Direction:  "OUT",
		Amount:     money("50"),
		Note:       "refund",
	})
	require.NoError(t, err)
	requireDecimal(t, "50", entry.BalanceBefore.Decimal)
	requireDecimal(t, "0", entry.BalanceAfter.Decimal)
	requireDecimal(t, "0", f.balance(t, customer.ID))

	items, total, err := f.prepaySvc.ListLedger(repository.PrepayLedgerListFilter{CustomerID: customer.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
}

func TestManualAdjustValidation(t *testing.T) {
	f := newFinanceFixture(t)
	customer := f.createCustomer(t, "Acme")
	ctx := context.Background()

	cases := []ManualAdjustInput{
		{CustomerID: customer.ID, Direction: "sideways", Amount: money("1"), Note: "x"},
		{CustomerID: customer.ID, Direction: constants.PrepayDirectionIn, Amount: money("0"), Note: "x"},
		{CustomerID: customer.ID, Direction: constants.PrepayDirectionIn, Amount: money("1"), Note: "  "},
	}
	for _, input := range cases {
		_, err := f.prepaySvc.ManualAdjust(ctx, input)
		require.Equal(t, KindInvalid, KindOf(err), "input=%+v err=%v", input, err)
	}

	_, err := f.prepaySvc.ManualAdjust(ctx, ManualAdjustInput{CustomerID: 9999, Direction: constants.PrepayDirectionIn, Amount: money("1"), Note: "x"})
	require.Equal(t, KindNotFound, KindOf(err))
	_, err = f.prepaySvc.Balance(9999)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestFoldLedger(t *testing.T) {
	entries := []models.PrepayLedgerEntry{
		{Direction: constants.PrepayDirectionIn, Amount: money("100")},
		{Direction: constants.PrepayDirectionOut, Amount: money("30.5")},
		{Direction: constants.PrepayDirectionIn, Amount: money("0.25")},
	}
	requireDecimal(t, "69.75", foldLedger(entries))
	requireDecimal(t, "0", foldLedger(nil))
}

func TestApplyPrepayConcurrentDrawsNeverOverdraw(t *testing.T) {
	f := newFinanceFixture(t)
	sales := f.createUser(t, "Alice", nil)
	customer := f.createCustomer(t, "Acme")
	contract := f.registerContract(t, customer.ID, sales.ID, "2026-01-10", "200",
		InstallmentInput{DueDate: "2026-06-30", Amount: money("100")},
		InstallmentInput{DueDate: "2026-07-31", Amount: money("100")},
	)
	f.depositPrepay(t, customer.ID, "80")

	var wg sync.WaitGroup
	errs := make([]error, len(contract.InstallmentIDs))
	for i, installmentID := range contract.InstallmentIDs {
		wg.Add(1)
		go func(i int, installmentID uint) {
			defer wg.Done()
			errs[i] = retryOnConflict(func() error {
				_, err := f.prepaySvc.ApplyPrepayToInstallment(context.Background(), ApplyPrepayInput{
					CustomerID:    customer.ID,
					InstallmentID: installmentID,
					Amount:        money("50"),
					ActorID:       1,
				})
				return err
			})
		}(i, installmentID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *InsufficientPrepayBalanceError
		require.True(t, errors.As(err, &insufficient), "unexpected error: %v", err)
		requireDecimal(t, "30", insufficient.Balance)
	}
	require.Equal(t, 1, succeeded)

	balance := f.balance(t, customer.ID)
	require.False(t, balance.IsNegative())
	requireDecimal(t, "30", balance)

	paid := f.installment(t, contract.InstallmentIDs[0]).AmountPaid.Decimal.
		Add(f.installment(t, contract.InstallmentIDs[1]).AmountPaid.Decimal)
	requireDecimal(t, "50", paid)

	var outEntries int64
	require.NoError(t, f.db.Model(&models.PrepayLedgerEntry{}).
		Where("customer_id = ? AND direction = ?", customer.ID, constants.PrepayDirectionOut).
		Count(&outEntries).Error)
	require.EqualValues(t, 1, outEntries)
}
