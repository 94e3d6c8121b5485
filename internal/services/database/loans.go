package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"bnpl-financing-engine/internal/models"
)

// LoanRepository handles installment plans, repayments and statements.
type LoanRepository struct {
	db *DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *DB) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `
	l.id, l.borrower_id, l.product_id, l.loan_application_id, l.loan_amount,
	l.disbursed_date, l.due_date, l.service_fee, l.penalty_amount,
	l.repayment_status, l.repaid_amount, l.repayment_behavior, l.created_at`

type loanRow struct {
	loan                         models.Loan
	amount, fee, penalty, repaid pgtype.Numeric
	status                       string
	behavior                     *string
}

func (r *loanRow) dest() []any {
	l := &r.loan
	return []any{
		&l.ID, &l.BorrowerID, &l.ProductID, &l.LoanApplicationID, &r.amount,
		&l.DisbursedDate, &l.DueDate, &r.fee, &r.penalty,
		&r.status, &r.repaid, &r.behavior, &l.CreatedAt,
	}
}

func (r *loanRow) finish() models.Loan {
	l := r.loan
	l.LoanAmount = pgNumericToDecimal(r.amount)
	l.ServiceFee = pgNumericToDecimal(r.fee)
	l.PenaltyAmount = pgNumericToDecimal(r.penalty)
	l.RepaidAmount = pgNumericToDecimalPtr(r.repaid)
	l.RepaymentStatus = models.RepaymentStatus(r.status)
	if r.behavior != nil {
		b := models.RepaymentBehavior(*r.behavior)
		l.RepaymentBehavior = &b
	}
	return l
}

// GetUnpaidLoansWithProducts returns the borrower's unpaid plans across all
// providers, each joined with its product.
func (r *LoanRepository) GetUnpaidLoansWithProducts(ctx context.Context, borrowerID string) ([]models.LoanWithProduct, error) {
	query := `SELECT ` + loanColumns + `, ` + productColumns + `
		FROM loans l
		JOIN loan_products p ON p.id = l.product_id
		WHERE l.borrower_id = $1 AND l.repayment_status = 'Unpaid'
		ORDER BY l.disbursed_date ASC`

	rows, err := r.db.QueryContext(ctx, query, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpaid loans: %w", err)
	}
	defer rows.Close()

	var loans []models.LoanWithProduct
	for rows.Next() {
		var lr loanRow
		// Loan columns come first, so scan them as the product's extras.
		product, err := scanProductAfter(rows, lr.dest())
		if err != nil {
			return nil, fmt.Errorf("failed to scan unpaid loan: %w", err)
		}
		loans = append(loans, models.LoanWithProduct{Loan: lr.finish(), Product: *product})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unpaid loans: %w", err)
	}

	return loans, nil
}

// prefixScanner places leading destinations ahead of the product columns.
type prefixScanner struct {
	row    rowScanner
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.row.Scan(append(append([]any{}, s.prefix...), dest...)...)
}

func scanProductAfter(row rowScanner, prefix []any) (*models.LoanProduct, error) {
	return scanProduct(prefixScanner{row: row, prefix: prefix})
}

// GetRepaymentBehaviors returns the repayment behavior of every loan the
// borrower has taken, across all providers. Unsettled loans yield nil.
func (r *LoanRepository) GetRepaymentBehaviors(ctx context.Context, borrowerID string) ([]*models.RepaymentBehavior, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT repayment_behavior FROM loans WHERE borrower_id = $1`, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repayment history: %w", err)
	}
	defer rows.Close()

	var behaviors []*models.RepaymentBehavior
	for rows.Next() {
		var raw *string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan repayment behavior: %w", err)
		}
		if raw == nil {
			behaviors = append(behaviors, nil)
			continue
		}
		b := models.RepaymentBehavior(*raw)
		behaviors = append(behaviors, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repayment history: %w", err)
	}

	return behaviors, nil
}

// GetLoan retrieves a loan by ID. Returns nil when not found.
func (r *LoanRepository) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.id = $1`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var lr loanRow
	if err := rows.Scan(lr.dest()...); err != nil {
		return nil, fmt.Errorf("failed to scan loan: %w", err)
	}
	loan := lr.finish()
	return &loan, nil
}

// GetBorrowerStatement lists financed purchases (positive) and repayments
// (negative) of a borrower, newest first.
func (r *LoanRepository) GetBorrowerStatement(ctx context.Context, borrowerID string) ([]models.StatementLine, error) {
	query := `
		SELECT date, description, amount FROM (
			SELECT l.disbursed_date AS date,
				'Financed purchase with ' || p.name AS description,
				l.loan_amount AS amount
			FROM loans l
			JOIN loan_products p ON p.id = l.product_id
			WHERE l.borrower_id = $1
			UNION ALL
			SELECT pay.date, 'Repayment', -pay.amount
			FROM payments pay
			JOIN loans l ON l.id = pay.loan_id
			WHERE l.borrower_id = $1
		) t
		ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement: %w", err)
	}
	defer rows.Close()

	var lines []models.StatementLine
	for rows.Next() {
		var line models.StatementLine
		var amount pgtype.Numeric
		if err := rows.Scan(&line.Date, &line.Description, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		line.Amount = pgNumericToDecimal(amount)
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statement: %w", err)
	}

	return lines, nil
}

// CreatePayment records a repayment against a loan.
func (r *LoanRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	amount, err := decimalToPgNumeric(p.Amount)
	if err != nil {
		return fmt.Errorf("failed to convert payment amount: %w", err)
	}

	query := `INSERT INTO payments (id, loan_id, amount, date) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.LoanID, amount, p.Date); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// CreateApplication records a financing application outside a disbursement.
func (r *LoanRepository) CreateApplication(ctx context.Context, app *models.LoanApplication) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	amount, err := decimalToPgNumeric(app.LoanAmount)
	if err != nil {
		return fmt.Errorf("failed to convert application amount: %w", err)
	}

	query := `
		INSERT INTO loan_applications (id, borrower_id, product_id, loan_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, app.ID, app.BorrowerID, app.ProductID, amount, string(app.Status), app.CreatedAt); err != nil {
		return fmt.Errorf("failed to create loan application: %w", err)
	}
	return nil
}
