package disbursement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bnpl-financing-engine/internal/models"
)

// PlanInput is everything BuildPlan needs, loaded inside the transaction.
type PlanInput struct {
	Request    Request
	Product    *models.LoanProduct
	Provider   *models.LoanProvider
	ServiceFee decimal.Decimal
	Now        time.Time
	NewID      func() string
}

// BuildPlan stages every row and balance movement of a disbursement without
// touching the store. It fails before anything is staged when the provider
// cannot cover the principal or a required ledger account is missing.
//
// The journal posts the principal as a debit to Principal/Receivable balanced
// by a credit to the provider's funds pool, and a non-zero service fee as a
// debit to ServiceFee/Receivable balanced by a credit to ServiceFee/Income.
func BuildPlan(in PlanInput) (*models.DisbursementPlan, error) {
	req := in.Request
	provider := in.Provider

	if provider.InitialBalance.LessThan(req.LoanAmount) {
		return nil, &models.InsufficientFundsError{Available: provider.InitialBalance, Requested: req.LoanAmount}
	}

	principalReceivable, ok := provider.FindAccount(models.LedgerCategoryPrincipal, models.LedgerAccountTypeReceivable)
	if !ok {
		return nil, &models.MissingAccountError{Category: models.LedgerCategoryPrincipal, Type: models.LedgerAccountTypeReceivable}
	}

	fee := in.ServiceFee
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	var feeReceivable, feeIncome models.LedgerAccount
	if fee.IsPositive() {
		if feeReceivable, ok = provider.FindAccount(models.LedgerCategoryServiceFee, models.LedgerAccountTypeReceivable); !ok {
			return nil, &models.MissingAccountError{Category: models.LedgerCategoryServiceFee, Type: models.LedgerAccountTypeReceivable}
		}
		if feeIncome, ok = provider.FindAccount(models.LedgerCategoryServiceFee, models.LedgerAccountTypeIncome); !ok {
			return nil, &models.MissingAccountError{Category: models.LedgerCategoryServiceFee, Type: models.LedgerAccountTypeIncome}
		}
	}

	application := models.LoanApplication{
		ID:         in.NewID(),
		BorrowerID: req.BorrowerID,
		ProductID:  in.Product.ID,
		LoanAmount: req.LoanAmount,
		Status:     models.ApplicationStatusDisbursed,
		CreatedAt:  in.Now,
	}

	repaid := decimal.Zero
	loan := models.Loan{
		ID:                in.NewID(),
		BorrowerID:        req.BorrowerID,
		ProductID:         in.Product.ID,
		LoanApplicationID: application.ID,
		LoanAmount:        req.LoanAmount,
		DisbursedDate:     req.DisbursedDate,
		DueDate:           req.DueDate,
		ServiceFee:        fee,
		PenaltyAmount:     decimal.Zero,
		RepaymentStatus:   models.RepaymentStatusUnpaid,
		RepaidAmount:      &repaid,
		CreatedAt:         in.Now,
	}

	journal := models.JournalEntry{
		ID:          in.NewID(),
		ProviderID:  provider.ID,
		LoanID:      loan.ID,
		Date:        req.DisbursedDate,
		Description: fmt.Sprintf("Financing for Order %s to customer %s", application.ID, req.BorrowerID),
	}

	plan := &models.DisbursementPlan{
		Application:   application,
		Loan:          loan,
		Journal:       journal,
		ProviderID:    provider.ID,
		ProviderDebit: req.LoanAmount,
	}

	plan.Entries = append(plan.Entries,
		models.LedgerEntry{ID: in.NewID(), JournalEntryID: journal.ID, LedgerAccountID: principalReceivable.ID, Type: models.EntryTypeDebit, Amount: req.LoanAmount},
		models.LedgerEntry{ID: in.NewID(), JournalEntryID: journal.ID, FundsPoolProviderID: provider.ID, Type: models.EntryTypeCredit, Amount: req.LoanAmount},
	)
	plan.AccountDeltas = append(plan.AccountDeltas, models.AccountDelta{LedgerAccountID: principalReceivable.ID, Amount: req.LoanAmount})

	if fee.IsPositive() {
		plan.Entries = append(plan.Entries,
			models.LedgerEntry{ID: in.NewID(), JournalEntryID: journal.ID, LedgerAccountID: feeReceivable.ID, Type: models.EntryTypeDebit, Amount: fee},
			models.LedgerEntry{ID: in.NewID(), JournalEntryID: journal.ID, LedgerAccountID: feeIncome.ID, Type: models.EntryTypeCredit, Amount: fee},
		)
		plan.AccountDeltas = append(plan.AccountDeltas,
			models.AccountDelta{LedgerAccountID: feeReceivable.ID, Amount: fee},
			models.AccountDelta{LedgerAccountID: feeIncome.ID, Amount: fee},
		)
	}

	return plan, nil
}
