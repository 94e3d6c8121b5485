package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bnpl-financing-engine/internal/models"
)

// ScoringRepository handles scorecard configuration.
type ScoringRepository struct {
	db *DB
}

// NewScoringRepository creates a new scoring repository.
func NewScoringRepository(db *DB) *ScoringRepository {
	return &ScoringRepository{db: db}
}

// GetScoringParameters returns the provider's parameters with their rules.
func (r *ScoringRepository) GetScoringParameters(ctx context.Context, providerID string) ([]models.ScoringParameter, error) {
	query := `
		SELECT p.id, p.provider_id, p.name, p.weight,
			r.id, r.field, r.condition, r.value, r.score
		FROM scoring_parameters p
		LEFT JOIN scoring_rules r ON r.parameter_id = p.id
		WHERE p.provider_id = $1
		ORDER BY p.id, r.id`

	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring parameters: %w", err)
	}
	defer rows.Close()

	var params []models.ScoringParameter
	index := make(map[string]int)
	for rows.Next() {
		var p models.ScoringParameter
		var ruleID, field, condition, value *string
		var score *float64
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.Name, &p.Weight, &ruleID, &field, &condition, &value, &score); err != nil {
			return nil, fmt.Errorf("failed to scan scoring parameter: %w", err)
		}

		i, ok := index[p.ID]
		if !ok {
			i = len(params)
			index[p.ID] = i
			params = append(params, p)
		}
		if ruleID == nil {
			continue
		}
		params[i].Rules = append(params[i].Rules, models.ScoringRule{
			ID:          *ruleID,
			ParameterID: p.ID,
			Field:       deref(field),
			Condition:   deref(condition),
			Value:       deref(value),
			Score:       derefFloat(score),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scoring parameters: %w", err)
	}

	return params, nil
}

// CreateScoringParameter inserts a parameter and its rules in one transaction.
func (r *ScoringRepository) CreateScoringParameter(ctx context.Context, param *models.ScoringParameter) error {
	if param.ID == "" {
		param.ID = uuid.New().String()
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO scoring_parameters (id, provider_id, name, weight) VALUES ($1, $2, $3, $4)`,
			param.ID, param.ProviderID, param.Name, param.Weight)
		if err != nil {
			return fmt.Errorf("failed to create scoring parameter: %w", err)
		}

		for i := range param.Rules {
			rule := &param.Rules[i]
			if rule.ID == "" {
				rule.ID = uuid.New().String()
			}
			rule.ParameterID = param.ID
			_, err := tx.Exec(ctx,
				`INSERT INTO scoring_rules (id, parameter_id, field, condition, value, score) VALUES ($1, $2, $3, $4, $5, $6)`,
				rule.ID, rule.ParameterID, rule.Field, rule.Condition, rule.Value, rule.Score)
			if err != nil {
				return fmt.Errorf("failed to create scoring rule: %w", err)
			}
		}
		return nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
