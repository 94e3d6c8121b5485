// Package profile holds the flat borrower profile built from provisioned data:
// canonical field names and the dynamically typed values stored under them.
package profile

import (
	"strings"
	"unicode"
)

// FieldName is a canonical profile key. Two raw keys that differ only in
// case or separators ("Monthly Income", "monthly_income", "monthlyIncome")
// share the same FieldName.
type FieldName string

// NormalizeFieldName reduces a raw key to its canonical form by dropping every
// rune that is not a letter or digit and case-folding the rest.
func NormalizeFieldName(raw string) FieldName {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return FieldName(b.String())
}

func (f FieldName) String() string {
	return string(f)
}

// Well-known fields present in every profile.
var (
	FieldID              = NormalizeFieldName("id")
	FieldTotalLoansCount = NormalizeFieldName("totalLoansCount")
	FieldLoansOnTime     = NormalizeFieldName("loansOnTime")
	FieldLoansLate       = NormalizeFieldName("loansLate")
	FieldLoansEarly      = NormalizeFieldName("loansEarly")
)
