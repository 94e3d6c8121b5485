package disbursement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bnpl-financing-engine/internal/models"
)

// memState is a copyable snapshot of everything a disbursement touches.
type memState struct {
	products     map[string]models.LoanProduct
	providers    map[string]models.LoanProvider
	accounts     map[string]models.LedgerAccount
	applications []models.LoanApplication
	loans        []models.Loan
	journals     []models.JournalEntry
	entries      []models.LedgerEntry
}

func (s *memState) clone() *memState {
	c := &memState{
		products:     make(map[string]models.LoanProduct, len(s.products)),
		providers:    make(map[string]models.LoanProvider, len(s.providers)),
		accounts:     make(map[string]models.LedgerAccount, len(s.accounts)),
		applications: append([]models.LoanApplication(nil), s.applications...),
		loans:        append([]models.Loan(nil), s.loans...),
		journals:     append([]models.JournalEntry(nil), s.journals...),
		entries:      append([]models.LedgerEntry(nil), s.entries...),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.providers {
		c.providers[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// memStore commits a transaction by swapping in its working copy, so an
// aborted transaction leaves no trace.
type memStore struct {
	mu    sync.Mutex
	state *memState

	serializationFailures int
	failApplyAfterLoan    bool
	txCount               int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		products:  map[string]models.LoanProduct{},
		providers: map[string]models.LoanProvider{},
		accounts:  map[string]models.LedgerAccount{},
	}}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCount++
	if m.serializationFailures > 0 {
		m.serializationFailures--
		return fmt.Errorf("commit: %w", models.ErrSerializationFailure)
	}

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: work, store: m}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memTx struct {
	state *memState
	store *memStore
}

func (t *memTx) LoadProductForDisbursement(ctx context.Context, productID string) (*models.LoanProduct, *models.LoanProvider, error) {
	product, ok := t.state.products[productID]
	if !ok {
		return nil, nil, nil
	}
	provider, ok := t.state.providers[product.ProviderID]
	if !ok {
		return &product, nil, nil
	}
	provider.LedgerAccounts = nil
	for _, acc := range t.state.accounts {
		if acc.ProviderID == provider.ID {
			provider.LedgerAccounts = append(provider.LedgerAccounts, acc)
		}
	}
	return &product, &provider, nil
}

func (t *memTx) CountUnpaidLoans(ctx context.Context, borrowerID, productID string) (int, error) {
	n := 0
	for _, l := range t.state.loans {
		if l.BorrowerID == borrowerID && l.ProductID == productID && l.RepaymentStatus == models.RepaymentStatusUnpaid {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ApplyPlan(ctx context.Context, plan *models.DisbursementPlan) error {
	t.state.applications = append(t.state.applications, plan.Application)
	t.state.loans = append(t.state.loans, plan.Loan)
	if t.store.failApplyAfterLoan {
		return errors.New("connection lost")
	}
	t.state.journals = append(t.state.journals, plan.Journal)
	t.state.entries = append(t.state.entries, plan.Entries...)

	for _, d := range plan.AccountDeltas {
		acc, ok := t.state.accounts[d.LedgerAccountID]
		if !ok {
			return fmt.Errorf("ledger account %s: %w", d.LedgerAccountID, models.ErrLedgerAccountMissing)
		}
		acc.Balance = acc.Balance.Add(d.Amount)
		t.state.accounts[d.LedgerAccountID] = acc
	}

	provider := t.state.providers[plan.ProviderID]
	if provider.InitialBalance.LessThan(plan.ProviderDebit) {
		return &models.InsufficientFundsError{Available: provider.InitialBalance, Requested: plan.ProviderDebit}
	}
	provider.InitialBalance = provider.InitialBalance.Sub(plan.ProviderDebit)
	t.state.providers[plan.ProviderID] = provider
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// seed installs provider p1 with the given balance and accounts, and product
// A with a 2% service fee.
func (m *memStore) seed(balance int64, accounts ...models.LedgerAccount) {
	m.state.providers["p1"] = models.LoanProvider{ID: "p1", Name: "Provider", InitialBalance: decimal.NewFromInt(balance)}
	m.state.products["A"] = models.LoanProduct{
		ID:              "A",
		ProviderID:      "p1",
		Name:            "Electronics",
		DurationDays:    30,
		ServiceFeeType:  models.ServiceFeeTypePercentage,
		ServiceFeeValue: decimal.NewFromInt(2),
	}
	for _, acc := range accounts {
		acc.ProviderID = "p1"
		m.state.accounts[acc.ID] = acc
	}
}

func allAccounts() []models.LedgerAccount {
	return []models.LedgerAccount{
		{ID: "pr", Category: models.LedgerCategoryPrincipal, Type: models.LedgerAccountTypeReceivable, Balance: decimal.Zero},
		{ID: "fr", Category: models.LedgerCategoryServiceFee, Type: models.LedgerAccountTypeReceivable, Balance: decimal.Zero},
		{ID: "fi", Category: models.LedgerCategoryServiceFee, Type: models.LedgerAccountTypeIncome, Balance: decimal.Zero},
	}
}
