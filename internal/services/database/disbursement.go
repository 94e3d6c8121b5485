package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/disbursement"
	"bnpl-financing-engine/internal/utils"
)

// DisbursementRepository runs disbursements as serializable transactions.
type DisbursementRepository struct {
	db *DB
}

// NewDisbursementRepository creates a new disbursement repository.
func NewDisbursementRepository(db *DB) *DisbursementRepository {
	return &DisbursementRepository{db: db}
}

// RunInTx runs fn in a serializable transaction. Serialization failures and
// deadlocks are reported wrapping models.ErrSerializationFailure.
func (r *DisbursementRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx disbursement.TxStore) error) error {
	err := r.db.WithSerializableTransaction(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &disbursementTx{tx: tx})
	})
	if err != nil && isRetryable(err) {
		utils.GetLogger().Warn("Disbursement transaction conflicted", zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrSerializationFailure, err)
	}
	return err
}

type disbursementTx struct {
	tx pgx.Tx
}

// LoadProductForDisbursement reads the product and locks its provider row.
func (t *disbursementTx) LoadProductForDisbursement(ctx context.Context, productID string) (*models.LoanProduct, *models.LoanProvider, error) {
	query := `SELECT ` + productColumns + ` FROM loan_products p WHERE p.id = $1`

	product, err := scanProduct(t.tx.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load product: %w", err)
	}

	var provider models.LoanProvider
	var balance pgtype.Numeric
	err = t.tx.QueryRow(ctx,
		`SELECT id, name, initial_balance FROM loan_providers WHERE id = $1 FOR UPDATE`,
		product.ProviderID,
	).Scan(&provider.ID, &provider.Name, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to lock provider: %w", err)
	}
	provider.InitialBalance = pgNumericToDecimal(balance)

	accounts, err := loadLedgerAccounts(ctx, t.tx, provider.ID)
	if err != nil {
		return nil, nil, err
	}
	provider.LedgerAccounts = accounts

	return product, &provider, nil
}

// CountUnpaidLoans counts the borrower's unpaid plans for the product.
func (t *disbursementTx) CountUnpaidLoans(ctx context.Context, borrowerID, productID string) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE borrower_id = $1 AND product_id = $2 AND repayment_status = 'Unpaid'`,
		borrowerID, productID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unpaid loans: %w", err)
	}
	return count, nil
}

// ApplyPlan writes the staged rows and balance movements of a plan.
func (t *disbursementTx) ApplyPlan(ctx context.Context, plan *models.DisbursementPlan) error {
	if err := t.debitProvider(ctx, plan); err != nil {
		return err
	}

	app := plan.Application
	appAmount, err := decimalToPgNumeric(app.LoanAmount)
	if err != nil {
		return fmt.Errorf("failed to convert application amount: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO loan_applications (id, borrower_id, product_id, loan_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		app.ID, app.BorrowerID, app.ProductID, appAmount, string(app.Status), app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan application: %w", err)
	}

	if err := t.insertLoan(ctx, &plan.Loan); err != nil {
		return err
	}

	j := plan.Journal
	_, err = t.tx.Exec(ctx, `
		INSERT INTO journal_entries (id, provider_id, loan_id, date, description)
		VALUES ($1, $2, $3, $4, $5)`,
		j.ID, j.ProviderID, j.LoanID, j.Date, j.Description)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	for _, e := range plan.Entries {
		amount, err := decimalToPgNumeric(e.Amount)
		if err != nil {
			return fmt.Errorf("failed to convert ledger amount: %w", err)
		}
		_, err = t.tx.Exec(ctx, `
			INSERT INTO ledger_entries (id, journal_entry_id, ledger_account_id, funds_pool_provider_id, type, amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.JournalEntryID, nullableString(e.LedgerAccountID), nullableString(e.FundsPoolProviderID), string(e.Type), amount)
		if err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
	}

	for _, d := range plan.AccountDeltas {
		amount, err := decimalToPgNumeric(d.Amount)
		if err != nil {
			return fmt.Errorf("failed to convert account delta: %w", err)
		}
		tag, err := t.tx.Exec(ctx,
			`UPDATE ledger_accounts SET balance = balance + $2 WHERE id = $1`,
			d.LedgerAccountID, amount)
		if err != nil {
			return fmt.Errorf("failed to update ledger account: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("ledger account %s: %w", d.LedgerAccountID, models.ErrLedgerAccountMissing)
		}
	}

	return nil
}

// debitProvider decrements the funds pool only when it covers the amount.
func (t *disbursementTx) debitProvider(ctx context.Context, plan *models.DisbursementPlan) error {
	amount, err := decimalToPgNumeric(plan.ProviderDebit)
	if err != nil {
		return fmt.Errorf("failed to convert provider debit: %w", err)
	}

	var remaining pgtype.Numeric
	err = t.tx.QueryRow(ctx, `
		UPDATE loan_providers SET initial_balance = initial_balance - $2
		WHERE id = $1 AND initial_balance >= $2
		RETURNING initial_balance`,
		plan.ProviderID, amount,
	).Scan(&remaining)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to debit provider: %w", err)
	}

	var available pgtype.Numeric
	if err := t.tx.QueryRow(ctx, `SELECT initial_balance FROM loan_providers WHERE id = $1`, plan.ProviderID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrProviderNotFound
		}
		return fmt.Errorf("failed to read provider balance: %w", err)
	}
	return &models.InsufficientFundsError{
		Available: pgNumericToDecimal(available),
		Requested: plan.ProviderDebit,
	}
}

func (t *disbursementTx) insertLoan(ctx context.Context, l *models.Loan) error {
	amount, err := decimalToPgNumeric(l.LoanAmount)
	if err != nil {
		return fmt.Errorf("failed to convert loan amount: %w", err)
	}
	fee, err := decimalToPgNumeric(l.ServiceFee)
	if err != nil {
		return fmt.Errorf("failed to convert service fee: %w", err)
	}
	penalty, err := decimalToPgNumeric(l.PenaltyAmount)
	if err != nil {
		return fmt.Errorf("failed to convert penalty: %w", err)
	}
	var repaid pgtype.Numeric
	if l.RepaidAmount != nil {
		if repaid, err = decimalToPgNumeric(*l.RepaidAmount); err != nil {
			return fmt.Errorf("failed to convert repaid amount: %w", err)
		}
	}
	var behavior *string
	if l.RepaymentBehavior != nil {
		s := string(*l.RepaymentBehavior)
		behavior = &s
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO loans (
			id, borrower_id, product_id, loan_application_id, loan_amount,
			disbursed_date, due_date, service_fee, penalty_amount,
			repayment_status, repaid_amount, repayment_behavior, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.BorrowerID, l.ProductID, l.LoanApplicationID, amount,
		l.DisbursedDate, l.DueDate, fee, penalty,
		string(l.RepaymentStatus), repaid, behavior, l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrActivePlanExists
		}
		if violatedCheck(err) == "loans_due_after_disbursed" {
			return models.ErrInvalidDates
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}
