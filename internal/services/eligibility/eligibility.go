// Package eligibility decides whether a borrower may open a new installment
// plan and how much they may spend on it.
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/metrics"
	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
	"bnpl-financing-engine/internal/services/scoring"
	"bnpl-financing-engine/internal/utils"
)

// Customer-facing reasons.
const (
	ReasonBorrowerNotFound     = "Customer profile not found."
	ReasonBorrowerRestricted   = "Your account is currently restricted due to a non-performing plan. Please contact support."
	ReasonProductNotFound      = "Payment plan product not found."
	ReasonFilterMismatch       = "This payment plan is not available for your profile."
	ReasonScoringNotConfigured = "This provider has not configured their credit scoring rules."
	ReasonScoreBelowMinimum    = "Your credit score does not meet the minimum requirement for a plan with this provider."
	ReasonEligible             = "Congratulations! You are eligible for financing."
	ReasonUnexpectedError      = "An unexpected server error occurred."
)

// Store is the read model the engine decides against.
type Store interface {
	GetBorrower(ctx context.Context, borrowerID string) (*models.Borrower, error)
	GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error)
	GetUnpaidLoansWithProducts(ctx context.Context, borrowerID string) ([]models.LoanWithProduct, error)
	GetAmountTiers(ctx context.Context, productID string) ([]models.LoanAmountTier, error)
}

// ProfileBuilder produces the aggregated borrower profile.
type ProfileBuilder interface {
	Aggregate(ctx context.Context, borrowerID, providerID string) (*profile.Profile, error)
}

// Scorer scores an already aggregated profile against a provider's scorecard.
type Scorer interface {
	ScoreProfile(ctx context.Context, providerID string, p *profile.Profile) (*scoring.Result, error)
}

// Engine runs eligibility checks.
type Engine struct {
	store    Store
	profiles ProfileBuilder
	scorer   Scorer
	metrics  *metrics.Metrics
}

// NewEngine creates a new eligibility engine. m may be nil.
func NewEngine(store Store, profiles ProfileBuilder, scorer Scorer, m *metrics.Metrics) *Engine {
	return &Engine{store: store, profiles: profiles, scorer: scorer, metrics: m}
}

// CheckEligibility evaluates whether the borrower may finance a purchase with
// the product. It is read-only and never returns an error: business
// rejections carry their own code and reason, and unexpected faults are
// logged and reported as a generic rejection.
func (e *Engine) CheckEligibility(ctx context.Context, borrowerID, providerID, productID string) (result models.EligibilityResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			utils.GetLogger().Error("Eligibility check panicked",
				zap.String("borrower_id", borrowerID),
				zap.String("product_id", productID),
				zap.Any("panic", r),
			)
			result = models.Reject(models.CodeUnexpectedError, ReasonUnexpectedError, 0)
		}
		e.metrics.ObserveEligibility(string(result.Code), time.Since(start))
	}()

	res, err := e.evaluate(ctx, borrowerID, providerID, productID)
	if err != nil {
		utils.GetLogger().Error("Eligibility check failed",
			zap.String("borrower_id", borrowerID),
			zap.String("provider_id", providerID),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return models.Reject(models.CodeUnexpectedError, ReasonUnexpectedError, 0)
	}

	utils.GetLogger().Info("Eligibility checked",
		zap.String("borrower_id", borrowerID),
		zap.String("product_id", productID),
		zap.String("code", string(res.Code)),
		zap.Int("score", res.Score),
		zap.String("max_loan_amount", res.MaxLoanAmount.String()),
	)
	return res
}

func (e *Engine) evaluate(ctx context.Context, borrowerID, providerID, productID string) (models.EligibilityResult, error) {
	borrower, err := e.store.GetBorrower(ctx, borrowerID)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to get borrower: %w", err)
	}
	if borrower == nil {
		return models.Reject(models.CodeBorrowerNotFound, ReasonBorrowerNotFound, 0), nil
	}
	if borrower.Status.IsRestricted() {
		return models.Reject(models.CodeBorrowerRestricted, ReasonBorrowerRestricted, 0), nil
	}

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return models.Reject(models.CodeProductNotFound, ReasonProductNotFound, 0), nil
	}

	activePlans, err := e.store.GetUnpaidLoansWithProducts(ctx, borrowerID)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to get active plans: %w", err)
	}

	if rejection, blocked := checkActivePlans(product, activePlans); blocked {
		return rejection, nil
	}

	p, err := e.profiles.Aggregate(ctx, borrowerID, providerID)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to aggregate profile: %w", err)
	}

	if product.HasEligibilityFilter() {
		filter, err := ParseFilter(product.EligibilityFilter)
		if err != nil {
			return models.EligibilityResult{}, fmt.Errorf("failed to parse eligibility filter of product %s: %w", product.ID, err)
		}
		if !filter.Matches(p) {
			return models.Reject(models.CodeFilterMismatch, ReasonFilterMismatch, 0), nil
		}
	}

	scored, err := e.scorer.ScoreProfile(ctx, providerID, p)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to score borrower: %w", err)
	}
	if !scored.Configured {
		return models.Reject(models.CodeScoringNotConfigured, ReasonScoringNotConfigured, 0), nil
	}
	score := scored.Score

	tiers, err := e.store.GetAmountTiers(ctx, productID)
	if err != nil {
		return models.EligibilityResult{}, fmt.Errorf("failed to get loan amount tiers: %w", err)
	}
	tier, ok := models.FindTier(tiers, score)
	if !ok || !tier.LoanAmount.IsPositive() {
		return models.Reject(models.CodeScoreBelowMinimum, ReasonScoreBelowMinimum, score), nil
	}

	outstanding := OutstandingPrincipal(activePlans)
	available := decimal.Max(decimal.Zero, tier.LoanAmount.Sub(outstanding))

	if !available.IsPositive() && len(activePlans) > 0 {
		return models.EligibilityResult{
			IsEligible:    true,
			Reason:        limitReachedReason(outstanding),
			Score:         score,
			MaxLoanAmount: decimal.Zero,
			Code:          models.CodeLimitReached,
		}, nil
	}

	return models.EligibilityResult{
		IsEligible:    true,
		Reason:        ReasonEligible,
		Score:         score,
		MaxLoanAmount: available,
		Code:          models.CodeEligible,
	}, nil
}

// checkActivePlans applies the duplicate-plan and exclusivity rules.
func checkActivePlans(product *models.LoanProduct, activePlans []models.LoanWithProduct) (models.EligibilityResult, bool) {
	for _, plan := range activePlans {
		if plan.ProductID == product.ID {
			reason := fmt.Sprintf("You already have an active installment plan for the %q product.", product.Name)
			return models.Reject(models.CodeDuplicateActivePlan, reason, 0), true
		}
	}

	if !product.AllowConcurrentLoans && len(activePlans) > 0 {
		names := make([]string, 0, len(activePlans))
		for _, plan := range activePlans {
			names = append(names, fmt.Sprintf("%q", plan.Product.Name))
		}
		reason := fmt.Sprintf("This is an exclusive plan. You must complete your active plans (%s) before starting a new one.", strings.Join(names, ", "))
		return models.Reject(models.CodeExclusivePlanBlocked, reason, 0), true
	}

	return models.EligibilityResult{}, false
}

// OutstandingPrincipal sums the unpaid principal of the given plans.
func OutstandingPrincipal(plans []models.LoanWithProduct) decimal.Decimal {
	total := decimal.Zero
	for i := range plans {
		total = total.Add(plans[i].OutstandingPrincipal())
	}
	return total
}

func limitReachedReason(outstanding decimal.Decimal) string {
	return fmt.Sprintf("You have reached your spending limit with this provider. Your current outstanding balance is %s. Please repay your active plans to be eligible for more.", outstanding.String())
}

// Filter is a product's eligibility filter. A profile passes only when it
// satisfies every clause.
type Filter []Clause

// Clause restricts one profile field to a set of allowed values. Keys that
// normalize to the same field stay separate clauses.
type Clause struct {
	Field   profile.FieldName
	Allowed []string
}

// ParseFilter decodes a product's eligibility filter. Each value is a
// comma-separated list of allowed values; arrays and scalars are accepted too.
func ParseFilter(raw json.RawMessage) (Filter, error) {
	var decoded map[string]any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		// Filters saved as a JSON-encoded string are unwrapped once.
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, err
		}
		dec = json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(decoded))
	for key := range decoded {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	filter := make(Filter, 0, len(keys))
	for _, key := range keys {
		var allowed []string
		for _, item := range strings.Split(filterText(decoded[key]), ",") {
			allowed = append(allowed, strings.ToLower(strings.TrimSpace(item)))
		}
		filter = append(filter, Clause{Field: profile.NormalizeFieldName(key), Allowed: allowed})
	}
	return filter, nil
}

func filterText(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, profile.ValueOf(item).String())
		}
		return strings.Join(parts, ",")
	default:
		return profile.ValueOf(v).String()
	}
}

// Matches reports whether every filter field holds one of its allowed
// values. A missing or null field compares as the empty string.
func (f Filter) Matches(p *profile.Profile) bool {
	for _, clause := range f {
		v, _ := p.Lookup(clause.Field)
		actual := strings.ToLower(strings.TrimSpace(v.String()))
		if !contains(clause.Allowed, actual) {
			return false
		}
	}
	return true
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
