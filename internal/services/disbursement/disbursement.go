// Package disbursement opens installment plans: it creates the application,
// the loan and its balanced journal, and moves provider and ledger balances,
// all inside one transaction.
package disbursement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/metrics"
	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/fees"
	"bnpl-financing-engine/internal/utils"
)

// TxStore is the transactional view used while disbursing.
type TxStore interface {
	// LoadProductForDisbursement returns the product and its provider with
	// ledger accounts, locking the provider row until the transaction ends.
	// Either result is nil when the row does not exist.
	LoadProductForDisbursement(ctx context.Context, productID string) (*models.LoanProduct, *models.LoanProvider, error)
	// CountUnpaidLoans counts the borrower's unpaid plans for the product.
	CountUnpaidLoans(ctx context.Context, borrowerID, productID string) (int, error)
	// ApplyPlan writes every staged row and balance movement. The provider
	// decrement must fail with an *models.InsufficientFundsError instead of
	// taking the pool below zero.
	ApplyPlan(ctx context.Context, plan *models.DisbursementPlan) error
}

// Store runs fn in a single transaction, committing only when fn returns nil.
// Serialization conflicts are reported wrapping models.ErrSerializationFailure.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// Request asks for a new plan.
type Request struct {
	BorrowerID    string
	ProductID     string
	LoanAmount    decimal.Decimal
	DisbursedDate time.Time
	// DueDate defaults to DisbursedDate plus the product's duration when zero.
	DueDate time.Time
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if r.BorrowerID == "" || r.ProductID == "" {
		return errors.New("borrower and product are required")
	}
	if !r.LoanAmount.IsPositive() || !IsMoney(r.LoanAmount) {
		return models.ErrInvalidAmount
	}
	if !r.DueDate.IsZero() && !r.DisbursedDate.IsZero() && r.DueDate.Before(r.DisbursedDate) {
		return models.ErrInvalidDates
	}
	return nil
}

// IsMoney reports whether d has at most two decimal places.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// Transactor performs disbursements.
type Transactor struct {
	store      Store
	fees       fees.Calculator
	metrics    *metrics.Metrics
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	newID      func() string
}

// NewTransactor creates a new transactor. m may be nil.
func NewTransactor(store Store, calc fees.Calculator, m *metrics.Metrics, maxRetries int) *Transactor {
	if calc == nil {
		calc = fees.ProductTermsCalculator{}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Transactor{
		store:      store,
		fees:       calc,
		metrics:    m,
		maxRetries: maxRetries,
		backoff:    20 * time.Millisecond,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Disburse opens the plan atomically and returns the created loan.
//
// Funds sufficiency and the one-unpaid-plan-per-product rule are re-checked
// inside the transaction. On failure nothing is persisted: the error is
// ErrProductNotFound, an *InsufficientFundsError, a *MissingAccountError,
// ErrActivePlanExists, ErrConcurrentDisbursement after exhausted retries, or
// a wrapped store error.
func (t *Transactor) Disburse(ctx context.Context, req Request) (*models.Loan, error) {
	if req.DisbursedDate.IsZero() {
		req.DisbursedDate = t.now()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		plan *models.DisbursementPlan
		err  error
	)

	for attempt := 0; ; attempt++ {
		plan, err = t.attempt(ctx, req)
		if err == nil || !errors.Is(err, models.ErrSerializationFailure) {
			break
		}
		if attempt >= t.maxRetries {
			err = fmt.Errorf("%w: %v", models.ErrConcurrentDisbursement, err)
			break
		}

		t.metrics.DisbursementRetried()
		utils.GetLogger().Warn("Retrying disbursement after serialization failure",
			zap.String("borrower_id", req.BorrowerID),
			zap.String("product_id", req.ProductID),
			zap.Int("attempt", attempt+1),
		)

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(t.backoff * time.Duration(attempt+1)):
			continue
		}
		break
	}

	t.metrics.ObserveDisbursement(outcome(err), time.Since(start))

	if err != nil {
		utils.GetLogger().Error("Disbursement failed",
			zap.String("borrower_id", req.BorrowerID),
			zap.String("product_id", req.ProductID),
			zap.String("loan_amount", req.LoanAmount.String()),
			zap.Error(err),
		)
		return nil, err
	}

	utils.GetLogger().Info("Disbursement completed",
		zap.String("loan_id", plan.Loan.ID),
		zap.String("application_id", plan.Application.ID),
		zap.String("borrower_id", req.BorrowerID),
		zap.String("product_id", req.ProductID),
		zap.String("loan_amount", req.LoanAmount.String()),
		zap.String("service_fee", plan.Loan.ServiceFee.String()),
	)

	loan := plan.Loan
	return &loan, nil
}

func (t *Transactor) attempt(ctx context.Context, req Request) (*models.DisbursementPlan, error) {
	var staged *models.DisbursementPlan

	err := t.store.RunInTx(ctx, func(ctx context.Context, tx TxStore) error {
		product, provider, err := tx.LoadProductForDisbursement(ctx, req.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
		if product == nil {
			return models.ErrProductNotFound
		}
		if provider == nil {
			return models.ErrProviderNotFound
		}

		unpaid, err := tx.CountUnpaidLoans(ctx, req.BorrowerID, product.ID)
		if err != nil {
			return fmt.Errorf("failed to count unpaid loans: %w", err)
		}
		if unpaid > 0 {
			return models.ErrActivePlanExists
		}

		resolved := req
		if resolved.DueDate.IsZero() {
			resolved.DueDate = resolved.DisbursedDate.AddDate(0, 0, product.DurationDays)
		}

		fee := t.fees.ServiceFee(fees.PlanTerms{
			Principal:     resolved.LoanAmount,
			DisbursedDate: resolved.DisbursedDate,
			DueDate:       resolved.DueDate,
		}, product, resolved.DisbursedDate)

		plan, err := BuildPlan(PlanInput{
			Request:    resolved,
			Product:    product,
			Provider:   provider,
			ServiceFee: fee,
			Now:        t.now(),
			NewID:      t.newID,
		})
		if err != nil {
			return err
		}

		if err := tx.ApplyPlan(ctx, plan); err != nil {
			return err
		}
		staged = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staged, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, models.ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	case errors.Is(err, models.ErrLedgerAccountMissing):
		return metrics.OutcomeMisconfigured
	case errors.Is(err, models.ErrConcurrentDisbursement), errors.Is(err, models.ErrActivePlanExists):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
