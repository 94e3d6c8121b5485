package fees

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bnpl-financing-engine/internal/models"
)

func TestProductTermsCalculator(t *testing.T) {
	plan := PlanTerms{Principal: decimal.RequireFromString("1234.56"), DisbursedDate: time.Now(), DueDate: time.Now().AddDate(0, 0, 30)}

	tests := []struct {
		name     string
		product  *models.LoanProduct
		expected string
	}{
		{"nil product", nil, "0"},
		{"no fee", &models.LoanProduct{ServiceFeeType: models.ServiceFeeTypeFixed}, "0"},
		{"fixed", &models.LoanProduct{ServiceFeeType: models.ServiceFeeTypeFixed, ServiceFeeValue: decimal.NewFromInt(25)}, "25"},
		{"percentage rounds to cents", &models.LoanProduct{ServiceFeeType: models.ServiceFeeTypePercentage, ServiceFeeValue: decimal.NewFromFloat(2.5)}, "30.86"},
		{"unknown type", &models.LoanProduct{ServiceFeeType: "tiered", ServiceFeeValue: decimal.NewFromInt(5)}, "0"},
		{"negative value", &models.LoanProduct{ServiceFeeType: models.ServiceFeeTypeFixed, ServiceFeeValue: decimal.NewFromInt(-5)}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := ProductTermsCalculator{}.ServiceFee(plan, tt.product, time.Now())
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(fee), fee.String())
		})
	}
}

func TestCalculatorFunc(t *testing.T) {
	var c Calculator = CalculatorFunc(func(plan PlanTerms, product *models.LoanProduct, asOf time.Time) decimal.Decimal {
		return plan.Principal.Div(decimal.NewFromInt(10))
	})

	fee := c.ServiceFee(PlanTerms{Principal: decimal.NewFromInt(500)}, nil, time.Now())
	assert.Equal(t, "50", fee.String())
}
