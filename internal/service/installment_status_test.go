package service

import (
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"

	"github.com/shopspring/decimal"
)

func TestDeriveInstallmentStatus(t *testing.T) {
	today := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	past := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	d := decimal.RequireFromString

	cases := []struct {
		name string
		due  string
		paid string
		date time.Time
		want string
	}{
		{name: "fresh", due: "100", paid: "0", date: future, want: constants.InstallmentStatusPending},
		{name: "partial", due: "100", paid: "40", date: future, want: constants.InstallmentStatusPartial},
		{name: "paid", due: "100", paid: "100", date: future, want: constants.InstallmentStatusPaid},
		{name: "paid after due date", due: "100", paid: "100", date: past, want: constants.InstallmentStatusPaid},
		{name: "overdue unpaid", due: "100", paid: "0", date: past, want: constants.InstallmentStatusOverdue},
		{name: "overdue partial", due: "100", paid: "99.99", date: past, want: constants.InstallmentStatusOverdue},
		{name: "due today is not overdue", due: "100", paid: "0", date: today, want: constants.InstallmentStatusPending},
	}
	for _, tc := range cases {
		got := DeriveInstallmentStatus(d(tc.due), d(tc.paid), tc.date, today)
		if got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}
