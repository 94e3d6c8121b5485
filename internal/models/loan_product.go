// Package models defines the data structures for the financing engine.
package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceFeeType describes how a product's service fee is charged.
type ServiceFeeType string

const (
	ServiceFeeTypeFixed      ServiceFeeType = "fixed"
	ServiceFeeTypePercentage ServiceFeeType = "percentage"
)

// LoanProduct represents a configured financing offer of a provider.
type LoanProduct struct {
	ID                      string          `json:"id" db:"id"`
	ProviderID              string          `json:"provider_id" db:"provider_id"`
	Name                    string          `json:"name" db:"name"`
	AllowConcurrentLoans    bool            `json:"allow_concurrent_loans" db:"allow_concurrent_loans"`
	DataProvisioningEnabled bool            `json:"data_provisioning_enabled" db:"data_provisioning_enabled"`
	EligibilityFilter       json.RawMessage `json:"eligibility_filter,omitempty" db:"eligibility_filter"`
	DurationDays            int             `json:"duration_days" db:"duration_days"`
	ServiceFeeType          ServiceFeeType  `json:"service_fee_type" db:"service_fee_type"`
	ServiceFeeValue         decimal.Decimal `json:"service_fee_value" db:"service_fee_value"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at" db:"updated_at"`
}

// HasEligibilityFilter reports whether the product restricts borrowers by provisioned attributes.
func (p *LoanProduct) HasEligibilityFilter() bool {
	if !p.DataProvisioningEnabled || len(p.EligibilityFilter) == 0 {
		return false
	}
	trimmed := strings.TrimSpace(string(p.EligibilityFilter))
	return trimmed != "null" && trimmed != "{}" && trimmed != `""`
}

// LoanAmountTier maps an inclusive score range to the ceiling grantable for a product.
type LoanAmountTier struct {
	ID         string          `json:"id" db:"id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	FromScore  int             `json:"from_score" db:"from_score"`
	ToScore    int             `json:"to_score" db:"to_score"`
	LoanAmount decimal.Decimal `json:"loan_amount" db:"loan_amount"`
}

// Contains reports whether score falls inside the tier's inclusive range.
func (t LoanAmountTier) Contains(score int) bool {
	return score >= t.FromScore && score <= t.ToScore
}

// FindTier returns the first tier whose range contains score.
func FindTier(tiers []LoanAmountTier, score int) (LoanAmountTier, bool) {
	for _, t := range tiers {
		if t.Contains(score) {
			return t, true
		}
	}
	return LoanAmountTier{}, false
}
