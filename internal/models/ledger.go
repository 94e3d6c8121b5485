// Package models defines the data structures for the financing engine.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerCategory is the kind of money tracked by a ledger account.
type LedgerCategory string

const (
	LedgerCategoryPrincipal  LedgerCategory = "Principal"
	LedgerCategoryServiceFee LedgerCategory = "ServiceFee"
)

// LedgerAccountType is the accounting role of a ledger account.
type LedgerAccountType string

const (
	LedgerAccountTypeReceivable LedgerAccountType = "Receivable"
	LedgerAccountTypeIncome     LedgerAccountType = "Income"
)

// EntryType is the side of a ledger posting.
type EntryType string

const (
	EntryTypeDebit  EntryType = "Debit"
	EntryTypeCredit EntryType = "Credit"
)

// LoanProvider is the financing entity whose funds pool backs its products.
type LoanProvider struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance" db:"initial_balance"`
	LedgerAccounts []LedgerAccount `json:"ledger_accounts,omitempty"`
}

// FindAccount returns the provider's ledger account for a category and type.
func (p *LoanProvider) FindAccount(category LedgerCategory, accountType LedgerAccountType) (LedgerAccount, bool) {
	for _, acc := range p.LedgerAccounts {
		if acc.Category == category && acc.Type == accountType {
			return acc, true
		}
	}
	return LedgerAccount{}, false
}

// LedgerAccount is a running balance bucket of a provider.
type LedgerAccount struct {
	ID         string            `json:"id" db:"id"`
	ProviderID string            `json:"provider_id" db:"provider_id"`
	Name       string            `json:"name" db:"name"`
	Category   LedgerCategory    `json:"category" db:"category"`
	Type       LedgerAccountType `json:"type" db:"type"`
	Balance    decimal.Decimal   `json:"balance" db:"balance"`
}

// String returns a label such as "Principal/Receivable".
func (a LedgerAccount) String() string {
	return fmt.Sprintf("%s/%s", a.Category, a.Type)
}

// JournalEntry groups the balanced postings of one financing event.
type JournalEntry struct {
	ID          string    `json:"id" db:"id"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	LoanID      string    `json:"loan_id" db:"loan_id"`
	Date        time.Time `json:"date" db:"date"`
	Description string    `json:"description" db:"description"`
}

// LedgerEntry is a single debit or credit posting.
// Exactly one of LedgerAccountID and FundsPoolProviderID is set: postings
// without an account move the provider's disbursable funds pool.
type LedgerEntry struct {
	ID                  string          `json:"id" db:"id"`
	JournalEntryID      string          `json:"journal_entry_id" db:"journal_entry_id"`
	LedgerAccountID     string          `json:"ledger_account_id,omitempty" db:"ledger_account_id"`
	FundsPoolProviderID string          `json:"funds_pool_provider_id,omitempty" db:"funds_pool_provider_id"`
	Type                EntryType       `json:"type" db:"type"`
	Amount              decimal.Decimal `json:"amount" db:"amount"`
}

// IsFundsPool reports whether the entry posts against the provider funds pool.
func (e LedgerEntry) IsFundsPool() bool {
	return e.LedgerAccountID == "" && e.FundsPoolProviderID != ""
}

// AccountDelta is a staged balance increment for a ledger account.
type AccountDelta struct {
	LedgerAccountID string          `json:"ledger_account_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// DisbursementPlan is the unit of work for one disbursement: every row to
// insert and every balance to move, applied together or not at all.
type DisbursementPlan struct {
	Application   LoanApplication `json:"application"`
	Loan          Loan            `json:"loan"`
	Journal       JournalEntry    `json:"journal"`
	Entries       []LedgerEntry   `json:"entries"`
	AccountDeltas []AccountDelta  `json:"account_deltas"`
	ProviderID    string          `json:"provider_id"`
	ProviderDebit decimal.Decimal `json:"provider_debit"`
}

// Totals returns the summed debit and credit amounts of the plan's postings.
func (p *DisbursementPlan) Totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range p.Entries {
		switch e.Type {
		case EntryTypeDebit:
			debits = debits.Add(e.Amount)
		case EntryTypeCredit:
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}
