package financing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/audit"
	"bnpl-financing-engine/internal/services/disbursement"
	"bnpl-financing-engine/internal/services/ses"
)

type fakeProducts map[string]*models.LoanProduct

func (f fakeProducts) GetProduct(_ context.Context, id string) (*models.LoanProduct, error) {
	return f[id], nil
}

type fakeChecker struct {
	result     models.EligibilityResult
	providerID string
}

func (f *fakeChecker) CheckEligibility(_ context.Context, _, providerID, _ string) models.EligibilityResult {
	f.providerID = providerID
	return f.result
}

type fakeDisburser struct {
	err   error
	calls []disbursement.Request
}

func (f *fakeDisburser) Disburse(_ context.Context, req disbursement.Request) (*models.Loan, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Loan{
		ID:                "loan-1",
		LoanApplicationID: "app-1",
		BorrowerID:        req.BorrowerID,
		ProductID:         req.ProductID,
		LoanAmount:        req.LoanAmount,
		ServiceFee:        decimal.NewFromInt(5),
	}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingSink) Record(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeLocker struct {
	err      error
	keys     []string
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return func() { f.released++ }, nil
}

type fakeNotifier struct {
	sent chan ses.DisbursementNotification
}

func (f *fakeNotifier) NotifyDisbursement(_ context.Context, n ses.DisbursementNotification) error {
	f.sent <- n
	return nil
}

type fixture struct {
	svc       *Service
	checker   *fakeChecker
	disburser *fakeDisburser
	sink      *recordingSink
	locker    *fakeLocker
	notifier  *fakeNotifier
}

func newFixture(result models.EligibilityResult) *fixture {
	f := &fixture{
		checker:   &fakeChecker{result: result},
		disburser: &fakeDisburser{},
		sink:      &recordingSink{},
		locker:    &fakeLocker{},
		notifier:  &fakeNotifier{sent: make(chan ses.DisbursementNotification, 1)},
	}
	products := fakeProducts{"A": {ID: "A", ProviderID: "P", Name: "Pay in 30"}}
	f.svc = NewService(products, f.checker, f.disburser,
		WithAudit(f.sink),
		WithLocker(f.locker),
		WithNotifier(f.notifier),
	)
	return f
}

func eligible(max int64) models.EligibilityResult {
	return models.EligibilityResult{IsEligible: true, MaxLoanAmount: decimal.NewFromInt(max), Code: models.CodeEligible}
}

func request(amount int64) ApplyRequest {
	return ApplyRequest{BorrowerID: "b1", ProductID: "A", LoanAmount: decimal.NewFromInt(amount)}
}

func TestApply_Success(t *testing.T) {
	f := newFixture(eligible(500))

	loan, err := f.svc.Apply(context.Background(), request(200))
	require.NoError(t, err)
	assert.Equal(t, "loan-1", loan.ID)
	assert.Equal(t, "P", f.checker.providerID)
	assert.Equal(t, []string{"disbursement:b1"}, f.locker.keys)
	assert.Equal(t, 1, f.locker.released)
	assert.Equal(t, []models.AuditAction{models.AuditFinancingInitiated, models.AuditFinancingSuccess}, f.sink.actions())
	assert.Equal(t, "app-1", f.sink.events[1].EntityID)

	select {
	case n := <-f.notifier.sent:
		assert.Equal(t, "loan-1", n.LoanID)
		assert.Equal(t, "Pay in 30", n.ProductName)
	case <-time.After(time.Second):
		t.Fatal("notification not sent")
	}
}

func TestApply_ProductNotFound(t *testing.T) {
	f := newFixture(eligible(500))

	_, err := f.svc.Apply(context.Background(), ApplyRequest{BorrowerID: "b1", ProductID: "missing", LoanAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrProductNotFound)
	assert.Equal(t, []models.AuditAction{models.AuditFinancingFailed}, f.sink.actions())
	assert.Empty(t, f.disburser.calls)
}

func TestApply_Denied(t *testing.T) {
	f := newFixture(models.Reject(models.CodeBorrowerRestricted, "restricted", 0))

	_, err := f.svc.Apply(context.Background(), request(100))
	var denied *models.DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, models.CodeBorrowerRestricted, denied.Code)
	assert.Equal(t, "financing denied: restricted", err.Error())
	assert.Equal(t, 1, f.locker.released)
	assert.Empty(t, f.disburser.calls)
	assert.Equal(t, []models.AuditAction{models.AuditFinancingInitiated, models.AuditFinancingFailed}, f.sink.actions())
}

func TestApply_LimitExceeded(t *testing.T) {
	f := newFixture(eligible(500))

	_, err := f.svc.Apply(context.Background(), request(600))
	var limit *models.LimitExceededError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, "purchase amount of 600 exceeds the maximum allowed spending limit of 500", err.Error())
	assert.Empty(t, f.disburser.calls)
}

func TestApply_EligibleButNoCapacity(t *testing.T) {
	f := newFixture(models.EligibilityResult{IsEligible: true, MaxLoanAmount: decimal.Zero, Code: models.CodeLimitReached})

	_, err := f.svc.Apply(context.Background(), request(1))
	var limit *models.LimitExceededError
	assert.True(t, errors.As(err, &limit))
}

func TestApply_LockHeld(t *testing.T) {
	f := newFixture(eligible(500))
	f.locker.err = models.ErrLockNotObtained

	_, err := f.svc.Apply(context.Background(), request(100))
	assert.ErrorIs(t, err, models.ErrLockNotObtained)
	assert.Empty(t, f.checker.providerID, "eligibility must not be evaluated without the lock")
	assert.Empty(t, f.disburser.calls)
	assert.Equal(t, []models.AuditAction{models.AuditFinancingInitiated, models.AuditFinancingFailed}, f.sink.actions())
}

func TestApply_LockIsBorrowerWide(t *testing.T) {
	f := newFixture(eligible(500))
	products := fakeProducts{
		"A": {ID: "A", ProviderID: "P", Name: "Exclusive"},
		"B": {ID: "B", ProviderID: "P", Name: "Groceries", AllowConcurrentLoans: true},
	}
	svc := NewService(products, f.checker, f.disburser, WithLocker(f.locker))

	_, err := svc.Apply(context.Background(), request(100))
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), ApplyRequest{BorrowerID: "b1", ProductID: "B", LoanAmount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	assert.Equal(t, []string{"disbursement:b1", "disbursement:b1"}, f.locker.keys)
}

func TestApply_DisbursementFailure(t *testing.T) {
	f := newFixture(eligible(500))
	f.disburser.err = &models.InsufficientFundsError{Available: decimal.NewFromInt(10), Requested: decimal.NewFromInt(100)}

	_, err := f.svc.Apply(context.Background(), request(100))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, 1, f.locker.released)
	assert.Equal(t, []models.AuditAction{models.AuditFinancingInitiated, models.AuditFinancingFailed}, f.sink.actions())
	assert.Contains(t, string(f.sink.events[1].Details), "insufficient provider funds")

	select {
	case <-f.notifier.sent:
		t.Fatal("notification sent for failed disbursement")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCheckEligibility_ResolvesProvider(t *testing.T) {
	f := newFixture(eligible(500))

	result, err := f.svc.CheckEligibility(context.Background(), "b1", "", "A")
	require.NoError(t, err)
	assert.Equal(t, models.CodeEligible, result.Code)
	assert.Equal(t, "P", f.checker.providerID)
	assert.Equal(t, []models.AuditAction{models.AuditEligibilityChecked}, f.sink.actions())

	_, err = f.svc.CheckEligibility(context.Background(), "b1", "", "missing")
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

type fakeStatements []models.StatementLine

func (f fakeStatements) GetBorrowerStatement(context.Context, string) ([]models.StatementLine, error) {
	return f, nil
}

func TestStatement(t *testing.T) {
	f := newFixture(eligible(500))
	_, err := f.svc.Statement(context.Background(), "b1")
	assert.Error(t, err)

	lines := fakeStatements{{Description: "Repayment", Amount: decimal.NewFromInt(-5)}}
	svc := NewService(fakeProducts{}, f.checker, f.disburser, WithStatements(lines))
	got, err := svc.Statement(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type fakeApplications struct {
	borrowers map[string]*models.Borrower
	created   []models.LoanApplication
}

func (f *fakeApplications) GetBorrower(_ context.Context, id string) (*models.Borrower, error) {
	return f.borrowers[id], nil
}

func (f *fakeApplications) CreateApplication(_ context.Context, app *models.LoanApplication) error {
	app.ID = "app-9"
	f.created = append(f.created, *app)
	return nil
}

func TestCreateApplication(t *testing.T) {
	f := newFixture(eligible(500))
	apps := &fakeApplications{borrowers: map[string]*models.Borrower{"b1": {ID: "b1"}}}
	svc := NewService(fakeProducts{"A": {ID: "A", ProviderID: "P"}}, f.checker, f.disburser, WithApplications(apps))
	ctx := context.Background()

	app, err := svc.CreateApplication(ctx, "b1", "A", decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, "app-9", app.ID)
	assert.Equal(t, models.ApplicationStatusApproved, app.Status)
	require.Len(t, apps.created, 1)
	assert.Empty(t, f.disburser.calls)

	_, err = svc.CreateApplication(ctx, "b1", "missing", decimal.NewFromInt(250))
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	_, err = svc.CreateApplication(ctx, "nobody", "A", decimal.NewFromInt(250))
	assert.ErrorIs(t, err, models.ErrBorrowerNotFound)

	_, err = svc.CreateApplication(ctx, "b1", "A", decimal.RequireFromString("1.999"))
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = f.svc.CreateApplication(ctx, "b1", "A", decimal.NewFromInt(1))
	assert.Error(t, err)
}

type fakeRecords struct {
	loans map[string]*models.Loan
	logs  map[string][]models.AuditLog
}

func (f fakeRecords) GetLoan(_ context.Context, id string) (*models.Loan, error) {
	return f.loans[id], nil
}

func (f fakeRecords) ListAuditLogs(_ context.Context, entityID string) ([]models.AuditLog, error) {
	return f.logs[entityID], nil
}

func TestLoanAndAuditTrail(t *testing.T) {
	f := newFixture(eligible(500))
	records := fakeRecords{
		loans: map[string]*models.Loan{"loan-1": {ID: "loan-1", LoanApplicationID: "app-1"}},
		logs:  map[string][]models.AuditLog{"app-1": {{ID: "a1", Action: models.AuditFinancingSuccess}}},
	}
	svc := NewService(fakeProducts{}, f.checker, f.disburser, WithRecords(records))
	ctx := context.Background()

	loan, err := svc.Loan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", loan.LoanApplicationID)

	_, err = svc.Loan(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrLoanNotFound)

	logs, err := svc.AuditTrail(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditFinancingSuccess, logs[0].Action)
}
