package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorCarriesErrorType(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		code  int
		typ   string
		field string
	}{
		{
			name:  "validation",
			err:   &service.ValidationError{Field: "amount", Message: "amount must be greater than 0"},
			code:  response.CodeBadRequest,
			typ:   ErrorTypeValidation,
			field: "amount",
		},
		{
			name: "schedule mismatch",
			err:  &service.ScheduleMismatchError{NetAmount: decimal.RequireFromString("100"), ScheduledSum: decimal.RequireFromString("90")},
			code: response.CodeBadRequest,
			typ:  ErrorTypeScheduleMismatch,
		},
		{
			name: "insufficient prepay",
			err:  &service.InsufficientPrepayBalanceError{CustomerID: 1, Balance: decimal.Zero, Requested: decimal.RequireFromString("5")},
			code: response.CodeBadRequest,
			typ:  ErrorTypeInsufficientPrepay,
		},
		{
			name: "ownership mismatch",
			err:  &service.OwnershipMismatchError{Entity: "installment", EntityID: 3, ExpectedOwner: 1, ActualOwner: 2},
			code: response.CodeBadRequest,
			typ:  ErrorTypeOwnershipMismatch,
		},
		{
			name: "contract has payments",
			err:  fmt.Errorf("void contract: %w", service.ErrContractHasPayments),
			code: response.CodeBadRequest,
			typ:  ErrorTypeContractHasPayments,
		},
		{
			name: "not found",
			err:  &service.NotFoundError{Entity: "contract", ID: 9},
			code: response.CodeNotFound,
			typ:  ErrorTypeNotFound,
		},
		{
			name: "concurrency conflict",
			err:  &service.ConcurrencyConflictError{Op: "register receipt", Err: errors.New("database is locked")},
			code: response.CodeConflict,
			typ:  ErrorTypeConcurrencyConflict,
		},
		{
			name: "multiple active rules",
			err:  fmt.Errorf("register contract: %w", service.ErrMultipleActiveRules),
			code: response.CodeConflict,
			typ:  ErrorTypeMultipleActiveRules,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			code: response.CodeInternal,
			typ:  ErrorTypeInternal,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := MapServiceError(tc.err)
			require.Equal(t, tc.code, appErr.Code)
			payload := appErr.Payload()
			require.Equal(t, tc.typ, payload["error"])
			if tc.field != "" {
				require.Equal(t, tc.field, payload["field"])
			} else {
				require.NotContains(t, payload, "field")
			}
		})
	}
}

func TestMapServiceErrorNil(t *testing.T) {
	require.Nil(t, MapServiceError(nil))
}
