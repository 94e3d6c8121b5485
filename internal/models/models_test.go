package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFindTier(t *testing.T) {
	tiers := []LoanAmountTier{
		{FromScore: 0, ToScore: 40, LoanAmount: decimal.NewFromInt(5000)},
		{FromScore: 41, ToScore: 100, LoanAmount: decimal.NewFromInt(20000)},
	}

	tier, ok := FindTier(tiers, 40)
	assert.True(t, ok)
	assert.Equal(t, "5000", tier.LoanAmount.String())

	tier, ok = FindTier(tiers, 41)
	assert.True(t, ok)
	assert.Equal(t, "20000", tier.LoanAmount.String())

	_, ok = FindTier(tiers, 101)
	assert.False(t, ok)
}

func TestHasEligibilityFilter(t *testing.T) {
	tests := []struct {
		name         string
		provisioning bool
		filter       string
		expected     bool
	}{
		{"disabled", false, `{"region":"north"}`, false},
		{"empty", true, ``, false},
		{"null", true, `null`, false},
		{"empty object", true, ` {} `, false},
		{"set", true, `{"region":"north"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &LoanProduct{DataProvisioningEnabled: tt.provisioning, EligibilityFilter: json.RawMessage(tt.filter)}
			assert.Equal(t, tt.expected, p.HasEligibilityFilter())
		})
	}
}

func TestOutstandingPrincipal(t *testing.T) {
	loan := &Loan{LoanAmount: decimal.NewFromInt(1000)}
	assert.Equal(t, "1000", loan.OutstandingPrincipal().String())

	repaid := decimal.NewFromInt(250)
	loan.RepaidAmount = &repaid
	assert.Equal(t, "750", loan.OutstandingPrincipal().String())
}

func TestDisbursementPlan_Totals(t *testing.T) {
	plan := &DisbursementPlan{Entries: []LedgerEntry{
		{Type: EntryTypeDebit, Amount: decimal.NewFromInt(1000)},
		{Type: EntryTypeDebit, Amount: decimal.NewFromInt(50)},
		{Type: EntryTypeCredit, Amount: decimal.NewFromInt(50)},
		{Type: EntryTypeCredit, Amount: decimal.NewFromInt(1000)},
	}}

	debits, credits := plan.Totals()
	assert.True(t, debits.Equal(credits))
	assert.Equal(t, "1050", debits.String())
}

func TestEligibilityResult_HasCapacity(t *testing.T) {
	assert.True(t, EligibilityResult{IsEligible: true, MaxLoanAmount: decimal.NewFromInt(1)}.HasCapacity())
	assert.False(t, EligibilityResult{IsEligible: true, MaxLoanAmount: decimal.Zero}.HasCapacity())
	assert.False(t, Reject(CodeBorrowerNotFound, "x", 0).HasCapacity())
}

func TestErrors(t *testing.T) {
	var err error = &InsufficientFundsError{Available: decimal.NewFromInt(1000), Requested: decimal.NewFromInt(1500)}
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, "insufficient provider funds. Available: 1000, Requested: 1500", err.Error())

	err = &MissingAccountError{Category: LedgerCategoryServiceFee, Type: LedgerAccountTypeIncome}
	assert.True(t, errors.Is(err, ErrLedgerAccountMissing))
	assert.Equal(t, "ServiceFee Income ledger account not found", err.Error())

	assert.True(t, BorrowerStatusNPL.IsRestricted())
	assert.False(t, BorrowerStatusActive.IsRestricted())
}

func TestBorrowerStatus_Valid(t *testing.T) {
	assert.True(t, BorrowerStatusActive.Valid())
	assert.True(t, BorrowerStatusNPL.Valid())
	assert.False(t, BorrowerStatus("Suspended").Valid())
	assert.False(t, BorrowerStatus("").Valid())
}
