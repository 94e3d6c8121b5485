// Package fees computes installment plan service fees.
package fees

import (
	"time"

	"github.com/shopspring/decimal"

	"bnpl-financing-engine/internal/models"
)

// PlanTerms describes the plan being priced.
type PlanTerms struct {
	Principal     decimal.Decimal
	DisbursedDate time.Time
	DueDate       time.Time
}

// Calculator prices a plan. Implementations must be pure.
type Calculator interface {
	ServiceFee(plan PlanTerms, product *models.LoanProduct, asOf time.Time) decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ProductTermsCalculator charges the product's configured service fee: a
// fixed amount, or a percentage of principal rounded to cents.
type ProductTermsCalculator struct{}

// ServiceFee implements Calculator. Negative results are clamped to zero.
func (ProductTermsCalculator) ServiceFee(plan PlanTerms, product *models.LoanProduct, asOf time.Time) decimal.Decimal {
	if product == nil || !product.ServiceFeeValue.IsPositive() {
		return decimal.Zero
	}

	var fee decimal.Decimal
	switch product.ServiceFeeType {
	case models.ServiceFeeTypeFixed:
		fee = product.ServiceFeeValue
	case models.ServiceFeeTypePercentage:
		fee = plan.Principal.Mul(product.ServiceFeeValue).Div(hundred)
	default:
		return decimal.Zero
	}

	fee = fee.Round(2)
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}

// CalculatorFunc adapts a function to Calculator.
type CalculatorFunc func(plan PlanTerms, product *models.LoanProduct, asOf time.Time) decimal.Decimal

// ServiceFee implements Calculator.
func (f CalculatorFunc) ServiceFee(plan PlanTerms, product *models.LoanProduct, asOf time.Time) decimal.Decimal {
	return f(plan, product, asOf)
}
