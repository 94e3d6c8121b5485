// Package scoring computes a borrower's credit score from a provider's
// weighted scorecard.
package scoring

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
	"bnpl-financing-engine/internal/services/rules"
	"bnpl-financing-engine/internal/utils"
)

// ParameterSource loads a provider's scorecard.
type ParameterSource interface {
	GetScoringParameters(ctx context.Context, providerID string) ([]models.ScoringParameter, error)
}

// ProfileBuilder produces the aggregated borrower profile.
type ProfileBuilder interface {
	Aggregate(ctx context.Context, borrowerID, providerID string) (*profile.Profile, error)
}

// Engine scores borrowers.
type Engine struct {
	params   ParameterSource
	profiles ProfileBuilder
}

// NewEngine creates a new scoring engine.
func NewEngine(params ParameterSource, profiles ProfileBuilder) *Engine {
	return &Engine{params: params, profiles: profiles}
}

// Result is a computed score with its per-parameter breakdown.
type Result struct {
	Score         int
	Configured    bool
	Contributions []Contribution
}

// Contribution is the capped share of one parameter.
type Contribution struct {
	ParameterID string
	Name        string
	MaxMatched  float64
	Weight      float64
	Value       float64
}

// Score builds the borrower's profile and scores it. A provider without
// parameters scores 0 with Configured set to false.
func (e *Engine) Score(ctx context.Context, borrowerID, providerID string) (*Result, error) {
	params, err := e.params.GetScoringParameters(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring parameters: %w", err)
	}
	if len(params) == 0 {
		return &Result{}, nil
	}

	p, err := e.profiles.Aggregate(ctx, borrowerID, providerID)
	if err != nil {
		return nil, err
	}

	return e.compute(params, p, providerID), nil
}

// ScoreProfile scores an already aggregated profile against the provider's
// scorecard.
func (e *Engine) ScoreProfile(ctx context.Context, providerID string, p *profile.Profile) (*Result, error) {
	params, err := e.params.GetScoringParameters(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring parameters: %w", err)
	}
	if len(params) == 0 {
		return &Result{}, nil
	}
	return e.compute(params, p, providerID), nil
}

func (e *Engine) compute(params []models.ScoringParameter, p *profile.Profile, providerID string) *Result {
	result := Compute(params, p)

	id, _ := p.Lookup(profile.FieldID)
	utils.GetLogger().Debug("Computed credit score",
		zap.String("borrower_id", id.String()),
		zap.String("provider_id", providerID),
		zap.Int("score", result.Score),
		zap.Int("parameters", len(params)),
	)
	return result
}

// Compute scores a profile against a scorecard.
//
// Within a parameter, rules are not additive: the highest score among
// matched rules counts, capped at the parameter's weight. Parameter
// contributions are summed and rounded to the nearest integer.
func Compute(params []models.ScoringParameter, p *profile.Profile) *Result {
	result := &Result{Configured: len(params) > 0}

	var total float64
	for _, param := range params {
		maxMatched := 0.0
		for _, rule := range param.Rules {
			if rules.Match(p, rule.Field, rule.Condition, rule.Value) && rule.Score > maxMatched {
				maxMatched = rule.Score
			}
		}

		value := math.Min(maxMatched, param.Weight)
		total += value

		result.Contributions = append(result.Contributions, Contribution{
			ParameterID: param.ID,
			Name:        param.Name,
			MaxMatched:  maxMatched,
			Weight:      param.Weight,
			Value:       value,
		})
	}

	result.Score = int(math.Round(total))
	if result.Score < 0 {
		result.Score = 0
	}
	return result
}
