// Package financing runs a purchase through eligibility, locking and
// disbursement, and records the audit trail of each attempt.
package financing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/audit"
	"bnpl-financing-engine/internal/services/disbursement"
	"bnpl-financing-engine/internal/services/lock"
	"bnpl-financing-engine/internal/services/ses"
	"bnpl-financing-engine/internal/utils"
)

const (
	actorSystem = "system"
	entityOrder = "ORDER"

	notifyTimeout = 15 * time.Second
)

// ProductStore looks up products.
type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error)
}

// StatementStore lists a borrower's financed purchases and repayments.
type StatementStore interface {
	GetBorrowerStatement(ctx context.Context, borrowerID string) ([]models.StatementLine, error)
}

// EligibilityChecker decides whether a borrower may draw on a product.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, borrowerID, providerID, productID string) models.EligibilityResult
}

// Disburser opens installment plans.
type Disburser interface {
	Disburse(ctx context.Context, req disbursement.Request) (*models.Loan, error)
}

// ApplicationStore records financing applications that are approved ahead of
// disbursement.
type ApplicationStore interface {
	GetBorrower(ctx context.Context, borrowerID string) (*models.Borrower, error)
	CreateApplication(ctx context.Context, app *models.LoanApplication) error
}

// RecordStore reads back opened plans and their audit trail.
type RecordStore interface {
	GetLoan(ctx context.Context, loanID string) (*models.Loan, error)
	ListAuditLogs(ctx context.Context, entityID string) ([]models.AuditLog, error)
}

// Notifier announces newly opened plans.
type Notifier interface {
	NotifyDisbursement(ctx context.Context, n ses.DisbursementNotification) error
}

// ApplyRequest is a financing request for a purchase.
type ApplyRequest struct {
	BorrowerID    string
	ProductID     string
	LoanAmount    decimal.Decimal
	DisbursedDate time.Time
	DueDate       time.Time
}

// Service orchestrates financing.
type Service struct {
	products    ProductStore
	statements  StatementStore
	apps        ApplicationStore
	records     RecordStore
	eligibility EligibilityChecker
	disburser   Disburser
	locker      lock.Locker
	audit       audit.Sink
	notifier    Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serializes financing requests per borrower.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithAudit sets the audit sink.
func WithAudit(sink audit.Sink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithNotifier sets the disbursement notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithStatements enables borrower statements.
func WithStatements(st StatementStore) Option {
	return func(s *Service) { s.statements = st }
}

// WithApplications enables pre-approved applications.
func WithApplications(st ApplicationStore) Option {
	return func(s *Service) { s.apps = st }
}

// WithRecords enables plan and audit trail lookups.
func WithRecords(st RecordStore) Option {
	return func(s *Service) { s.records = st }
}

// NewService creates a new financing service.
func NewService(products ProductStore, checker EligibilityChecker, disburser Disburser, opts ...Option) *Service {
	s := &Service{
		products:    products,
		eligibility: checker,
		disburser:   disburser,
		locker:      lock.Noop{},
		audit:       audit.Discard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply finances a purchase and returns the opened plan.
//
// The borrower's lock is held from the eligibility check through the
// disbursement, so concurrent requests for different products cannot both
// net against the same outstanding balance. Errors are
// models.ErrProductNotFound, models.ErrLockNotObtained, *models.DeniedError,
// *models.LimitExceededError, or whatever the disburser returned. Every
// outcome is audited.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*models.Loan, error) {
	logger := utils.GetLogger().With(
		zap.String("borrower_id", req.BorrowerID),
		zap.String("product_id", req.ProductID),
	)

	loan, err := s.apply(ctx, req)
	if err != nil {
		logger.Warn("Financing failed", zap.Error(err))
		s.record(ctx, audit.NewEvent(actorSystem, models.AuditFinancingFailed, entityOrder, "", map[string]any{
			"customerId": req.BorrowerID,
			"productId":  req.ProductID,
			"amount":     req.LoanAmount.String(),
			"error":      err.Error(),
		}))
		return nil, err
	}

	logger.Info("Financing succeeded",
		zap.String("loan_id", loan.ID),
		zap.String("amount", loan.LoanAmount.String()),
	)
	s.record(ctx, audit.NewEvent(actorSystem, models.AuditFinancingSuccess, entityOrder, loan.LoanApplicationID, map[string]any{
		"installmentPlanId": loan.ID,
		"customerId":        loan.BorrowerID,
		"productId":         loan.ProductID,
		"amount":            loan.LoanAmount.String(),
		"serviceFee":        loan.ServiceFee.String(),
	}))
	return loan, nil
}

func (s *Service) apply(ctx context.Context, req ApplyRequest) (*models.Loan, error) {
	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.ErrProductNotFound
	}

	s.record(ctx, audit.NewEvent(actorSystem, models.AuditFinancingInitiated, entityOrder, "", map[string]any{
		"customerId": req.BorrowerID,
		"productId":  req.ProductID,
		"amount":     req.LoanAmount.String(),
	}))

	release, err := s.locker.Acquire(ctx, lock.DisbursementKey(req.BorrowerID))
	if err != nil {
		return nil, err
	}
	defer release()

	result := s.eligibility.CheckEligibility(ctx, req.BorrowerID, product.ProviderID, product.ID)
	if !result.IsEligible {
		return nil, &models.DeniedError{Code: result.Code, Reason: result.Reason}
	}
	if req.LoanAmount.GreaterThan(result.MaxLoanAmount) {
		return nil, &models.LimitExceededError{Requested: req.LoanAmount, Max: result.MaxLoanAmount}
	}

	loan, err := s.disburser.Disburse(ctx, disbursement.Request{
		BorrowerID:    req.BorrowerID,
		ProductID:     product.ID,
		LoanAmount:    req.LoanAmount,
		DisbursedDate: req.DisbursedDate,
		DueDate:       req.DueDate,
	})
	if err != nil {
		return nil, err
	}

	s.notify(loan, product)
	return loan, nil
}

// CheckEligibility evaluates a borrower against a product. An empty
// providerID is resolved from the product.
func (s *Service) CheckEligibility(ctx context.Context, borrowerID, providerID, productID string) (models.EligibilityResult, error) {
	if providerID == "" {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return models.EligibilityResult{}, err
		}
		if product == nil {
			return models.EligibilityResult{}, models.ErrProductNotFound
		}
		providerID = product.ProviderID
	}

	result := s.eligibility.CheckEligibility(ctx, borrowerID, providerID, productID)
	s.record(ctx, audit.NewEvent(actorSystem, models.AuditEligibilityChecked, "BORROWER", borrowerID, map[string]any{
		"productId":     productID,
		"providerId":    providerID,
		"code":          result.Code,
		"score":         result.Score,
		"maxLoanAmount": result.MaxLoanAmount.String(),
	}))
	return result, nil
}

// Statement returns the borrower's transactions, newest first.
func (s *Service) Statement(ctx context.Context, borrowerID string) ([]models.StatementLine, error) {
	if s.statements == nil {
		return nil, errors.New("statements are not configured")
	}
	return s.statements.GetBorrowerStatement(ctx, borrowerID)
}

// CreateApplication records an APPROVED application for an order without
// disbursing it.
func (s *Service) CreateApplication(ctx context.Context, borrowerID, productID string, amount decimal.Decimal) (*models.LoanApplication, error) {
	if s.apps == nil {
		return nil, errors.New("applications are not configured")
	}
	if !amount.IsPositive() || !disbursement.IsMoney(amount) {
		return nil, models.ErrInvalidAmount
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.ErrProductNotFound
	}

	borrower, err := s.apps.GetBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if borrower == nil {
		return nil, models.ErrBorrowerNotFound
	}

	app := &models.LoanApplication{
		BorrowerID: borrowerID,
		ProductID:  product.ID,
		LoanAmount: amount,
		Status:     models.ApplicationStatusApproved,
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("Application approved",
		zap.String("application_id", app.ID),
		zap.String("borrower_id", borrowerID),
		zap.String("product_id", product.ID),
		zap.String("amount", amount.String()),
	)
	return app, nil
}

// Loan returns an installment plan by ID.
func (s *Service) Loan(ctx context.Context, loanID string) (*models.Loan, error) {
	if s.records == nil {
		return nil, errors.New("records are not configured")
	}
	loan, err := s.records.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, models.ErrLoanNotFound
	}
	return loan, nil
}

// AuditTrail lists the audit events recorded against an entity, such as the
// order ID of a financed purchase.
func (s *Service) AuditTrail(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	if s.records == nil {
		return nil, errors.New("records are not configured")
	}
	return s.records.ListAuditLogs(ctx, entityID)
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.audit.Record(ctx, event); err != nil {
		utils.GetLogger().Error("Failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.Error(err),
		)
	}
}

// notify sends the disbursement email without holding up the caller.
func (s *Service) notify(loan *models.Loan, product *models.LoanProduct) {
	if s.notifier == nil {
		return
	}
	n := ses.DisbursementNotification{
		LoanID:        loan.ID,
		BorrowerID:    loan.BorrowerID,
		ProductName:   product.Name,
		LoanAmount:    loan.LoanAmount,
		ServiceFee:    loan.ServiceFee,
		DisbursedDate: loan.DisbursedDate,
		DueDate:       loan.DueDate,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyDisbursement(ctx, n); err != nil {
			utils.GetLogger().Error("Failed to send disbursement notification",
				zap.String("loan_id", n.LoanID),
				zap.Error(err),
			)
		}
	}()
}
