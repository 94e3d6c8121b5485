package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
)

type fakeParams struct {
	params []models.ScoringParameter
	err    error
}

func (f *fakeParams) GetScoringParameters(ctx context.Context, providerID string) ([]models.ScoringParameter, error) {
	return f.params, f.err
}

type fakeProfiles struct {
	profile *profile.Profile
	calls   int
}

func (f *fakeProfiles) Aggregate(ctx context.Context, borrowerID, providerID string) (*profile.Profile, error) {
	f.calls++
	return f.profile, nil
}

func profileWith(fields map[string]profile.Value) *profile.Profile {
	p := profile.New()
	for k, v := range fields {
		p.Set(profile.NormalizeFieldName(k), v)
	}
	return p
}

func TestScore_WeightCapsContribution(t *testing.T) {
	params := &fakeParams{params: []models.ScoringParameter{{
		ID:     "income",
		Weight: 50,
		Rules: []models.ScoringRule{
			{Field: "income", Condition: "greaterThan", Value: "1000", Score: 70},
		},
	}}}
	profiles := &fakeProfiles{profile: profileWith(map[string]profile.Value{"income": profile.IntValue(1500)})}

	result, err := NewEngine(params, profiles).Score(context.Background(), "b1", "p1")
	require.NoError(t, err)

	assert.True(t, result.Configured)
	assert.Equal(t, 50, result.Score)
	require.Len(t, result.Contributions, 1)
	assert.Equal(t, 70.0, result.Contributions[0].MaxMatched)
	assert.Equal(t, 50.0, result.Contributions[0].Value)
}

func TestScore_NotConfigured(t *testing.T) {
	profiles := &fakeProfiles{}

	result, err := NewEngine(&fakeParams{}, profiles).Score(context.Background(), "b1", "p1")
	require.NoError(t, err)

	assert.False(t, result.Configured)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0, profiles.calls)
}

func TestScore_ParamsError(t *testing.T) {
	_, err := NewEngine(&fakeParams{err: errors.New("boom")}, &fakeProfiles{}).Score(context.Background(), "b1", "p1")
	assert.Error(t, err)
}

func TestScoreProfile_UsesGivenProfile(t *testing.T) {
	params := &fakeParams{params: []models.ScoringParameter{{
		ID:     "income",
		Weight: 30,
		Rules: []models.ScoringRule{
			{Field: "income", Condition: "greaterThan", Value: "100", Score: 25},
		},
	}}}
	profiles := &fakeProfiles{}
	p := profileWith(map[string]profile.Value{"income": profile.IntValue(500)})

	result, err := NewEngine(params, profiles).ScoreProfile(context.Background(), "p1", p)
	require.NoError(t, err)

	assert.True(t, result.Configured)
	assert.Equal(t, 25, result.Score)
	assert.Equal(t, 0, profiles.calls)

	unconfigured, err := NewEngine(&fakeParams{}, profiles).ScoreProfile(context.Background(), "p1", p)
	require.NoError(t, err)
	assert.False(t, unconfigured.Configured)
}

func TestCompute(t *testing.T) {
	p := profileWith(map[string]profile.Value{
		"monthly_income":    profile.IntValue(1500),
		"employment_status": profile.StringValue("Employed"),
		"loansLate":         profile.IntValue(0),
	})

	tests := []struct {
		name     string
		params   []models.ScoringParameter
		expected int
	}{
		{
			name: "max matched rule wins within a parameter",
			params: []models.ScoringParameter{{
				Weight: 100,
				Rules: []models.ScoringRule{
					{Field: "Monthly Income", Condition: ">", Value: "500", Score: 10},
					{Field: "monthlyIncome", Condition: ">", Value: "1000", Score: 30},
					{Field: "monthlyIncome", Condition: ">", Value: "5000", Score: 90},
				},
			}},
			expected: 30,
		},
		{
			name: "zero matched rules contribute zero",
			params: []models.ScoringParameter{{
				Weight: 40,
				Rules: []models.ScoringRule{
					{Field: "employmentStatus", Condition: "equals", Value: "retired", Score: 40},
				},
			}},
			expected: 0,
		},
		{
			name: "parameters sum",
			params: []models.ScoringParameter{
				{Weight: 20, Rules: []models.ScoringRule{{Field: "employment_status", Condition: "equals", Value: "employed", Score: 20}}},
				{Weight: 15, Rules: []models.ScoringRule{{Field: "loans_late", Condition: "equals", Value: "0", Score: 15}}},
			},
			expected: 35,
		},
		{
			name: "fractional total rounds to nearest",
			params: []models.ScoringParameter{
				{Weight: 10.25, Rules: []models.ScoringRule{{Field: "monthlyIncome", Condition: ">", Value: "0", Score: 12}}},
				{Weight: 10.3, Rules: []models.ScoringRule{{Field: "monthlyIncome", Condition: ">", Value: "0", Score: 12}}},
			},
			expected: 21,
		},
		{
			name: "missing field never matches",
			params: []models.ScoringParameter{
				{Weight: 10, Rules: []models.ScoringRule{{Field: "credit_history", Condition: "notEquals", Value: "bad", Score: 10}}},
			},
			expected: 0,
		},
		{
			name: "parameter without rules",
			params: []models.ScoringParameter{
				{Weight: 10},
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compute(tt.params, p).Score)
		})
	}
}

func TestCompute_ContributionNeverExceedsWeight(t *testing.T) {
	p := profileWith(map[string]profile.Value{"income": profile.IntValue(10)})

	for _, weight := range []float64{0, 1, 5, 9.5, 50} {
		params := []models.ScoringParameter{{
			Weight: weight,
			Rules:  []models.ScoringRule{{Field: "income", Condition: "isNotEmpty", Score: 10}},
		}}
		result := Compute(params, p)
		assert.LessOrEqual(t, result.Contributions[0].Value, weight)
	}
}
