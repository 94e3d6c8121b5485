// Package models defines the data structures for the financing engine.
package models

// ScoringRule awards Score points when the borrower's Field satisfies Condition against Value.
type ScoringRule struct {
	ID          string  `json:"id" db:"id"`
	ParameterID string  `json:"parameter_id" db:"parameter_id"`
	Field       string  `json:"field" db:"field"`
	Condition   string  `json:"condition" db:"condition"`
	Value       string  `json:"value" db:"value"`
	Score       float64 `json:"score" db:"score"`
}

// ScoringParameter is one weighted category of a provider's scorecard.
// Weight caps the contribution of the parameter regardless of its rule scores.
type ScoringParameter struct {
	ID         string        `json:"id" db:"id"`
	ProviderID string        `json:"provider_id" db:"provider_id"`
	Name       string        `json:"name" db:"name"`
	Weight     float64       `json:"weight" db:"weight"`
	Rules      []ScoringRule `json:"rules"`
}
