// Package models defines the data structures for the financing engine.
package models

import "github.com/shopspring/decimal"

// EligibilityCode identifies the outcome of an eligibility check.
type EligibilityCode string

const (
	CodeEligible             EligibilityCode = "ELIGIBLE"
	CodeLimitReached         EligibilityCode = "LIMIT_REACHED"
	CodeBorrowerNotFound     EligibilityCode = "BORROWER_NOT_FOUND"
	CodeBorrowerRestricted   EligibilityCode = "BORROWER_RESTRICTED"
	CodeProductNotFound      EligibilityCode = "PRODUCT_NOT_FOUND"
	CodeDuplicateActivePlan  EligibilityCode = "DUPLICATE_ACTIVE_PLAN"
	CodeExclusivePlanBlocked EligibilityCode = "EXCLUSIVE_PLAN_BLOCKED"
	CodeFilterMismatch       EligibilityCode = "FILTER_MISMATCH"
	CodeScoringNotConfigured EligibilityCode = "SCORING_NOT_CONFIGURED"
	CodeScoreBelowMinimum    EligibilityCode = "SCORE_BELOW_MINIMUM"
	CodeUnexpectedError      EligibilityCode = "UNEXPECTED_ERROR"
)

// EligibilityResult is the decision returned by an eligibility check.
//
// IsEligible with a zero MaxLoanAmount (Code LimitReached) means the borrower
// qualifies in principle but has no remaining capacity; callers must not treat
// it as a rejection.
type EligibilityResult struct {
	IsEligible    bool            `json:"is_eligible"`
	Reason        string          `json:"reason"`
	Score         int             `json:"score"`
	MaxLoanAmount decimal.Decimal `json:"max_loan_amount"`
	Code          EligibilityCode `json:"code"`
}

// HasCapacity reports whether the borrower can draw any amount right now.
func (r EligibilityResult) HasCapacity() bool {
	return r.IsEligible && r.MaxLoanAmount.GreaterThan(decimal.Zero)
}

// Reject builds a rejected result with the given code and reason.
func Reject(code EligibilityCode, reason string, score int) EligibilityResult {
	return EligibilityResult{
		IsEligible:    false,
		Reason:        reason,
		Score:         score,
		MaxLoanAmount: decimal.Zero,
		Code:          code,
	}
}
