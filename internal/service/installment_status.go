package service

import (
	"time"

	"github.com/lingxi-works/fincore/internal/constants"

	"github.com/shopspring/decimal"
)

// DeriveInstallmentStatus 由应收、已收、到期日与当天推导分期状态
func DeriveInstallmentStatus(amountDue, amountPaid decimal.Decimal, dueDate, today time.Time) string {
	if amountPaid.GreaterThanOrEqual(amountDue) {
		return constants.InstallmentStatusPaid
	}
	if truncateDay(dueDate).Before(truncateDay(today)) {
		return constants.InstallmentStatusOverdue
	}
	if amountPaid.IsPositive() {
		return constants.InstallmentStatusPartial
	}
	return constants.InstallmentStatusPending
}

// unpaidOf 未收金额，最低为 0
func unpaidOf(amountDue, amountPaid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, amountDue.Sub(amountPaid)).Round(2)
}
