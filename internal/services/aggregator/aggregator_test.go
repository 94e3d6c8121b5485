package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
)

type fakeSource struct {
	entries   []models.ProvisionedDataEntry
	behaviors []*models.RepaymentBehavior
	err       error
}

func (f *fakeSource) GetProvisionedData(ctx context.Context, borrowerID, providerID string) ([]models.ProvisionedDataEntry, error) {
	return f.entries, f.err
}

func (f *fakeSource) GetRepaymentBehaviors(ctx context.Context, borrowerID string) ([]*models.RepaymentBehavior, error) {
	return f.behaviors, nil
}

func entry(id string, at time.Time, data string) models.ProvisionedDataEntry {
	return models.ProvisionedDataEntry{ID: id, BorrowerID: "b1", CreatedAt: at, Data: json.RawMessage(data)}
}

func behavior(b models.RepaymentBehavior) *models.RepaymentBehavior {
	return &b
}

func TestAggregate_NewestEntryWins(t *testing.T) {
	now := time.Now()
	src := &fakeSource{entries: []models.ProvisionedDataEntry{
		entry("old", now.Add(-time.Hour), `{"Monthly Income": 900, "city": "Addis"}`),
		entry("new", now, `{"monthly_income": 1500}`),
	}}

	p, err := NewAggregator(src).Aggregate(context.Background(), "b1", "p1")
	require.NoError(t, err)

	income, ok := p.Get("monthlyIncome")
	require.True(t, ok)
	assert.Equal(t, "1500", income.String())

	city, ok := p.Get("City")
	require.True(t, ok)
	assert.Equal(t, "Addis", city.String())

	id, _ := p.Get("id")
	assert.Equal(t, "b1", id.String())
}

func TestAggregate_SkipsMalformedEntries(t *testing.T) {
	now := time.Now()
	src := &fakeSource{entries: []models.ProvisionedDataEntry{
		entry("bad", now, `{not json`),
		entry("array", now.Add(-time.Minute), `[1,2,3]`),
		entry("empty", now.Add(-2*time.Minute), ``),
		entry("good", now.Add(-time.Hour), `{"income": 1200}`),
	}}

	p, err := NewAggregator(src).Aggregate(context.Background(), "b1", "p1")
	require.NoError(t, err)

	income, ok := p.Get("income")
	require.True(t, ok)
	assert.Equal(t, "1200", income.String())
}

func TestAggregate_UnwrapsStringEncodedPayload(t *testing.T) {
	src := &fakeSource{entries: []models.ProvisionedDataEntry{
		entry("e1", time.Now(), `"{\"employment_status\":\"Employed\"}"`),
	}}

	p, err := NewAggregator(src).Aggregate(context.Background(), "b1", "p1")
	require.NoError(t, err)

	v, ok := p.Get("employmentStatus")
	require.True(t, ok)
	assert.Equal(t, "Employed", v.String())
}

func TestAggregate_DerivedCountersOverrideProvisioned(t *testing.T) {
	src := &fakeSource{
		entries: []models.ProvisionedDataEntry{
			entry("e1", time.Now(), `{"loansLate": 99, "total_loans_count": 42}`),
		},
		behaviors: []*models.RepaymentBehavior{
			behavior(models.RepaymentBehaviorOnTime),
			behavior(models.RepaymentBehaviorOnTime),
			behavior(models.RepaymentBehaviorLate),
			nil,
		},
	}

	p, err := NewAggregator(src).Aggregate(context.Background(), "b1", "p1")
	require.NoError(t, err)

	expect := map[profile.FieldName]string{
		profile.FieldTotalLoansCount: "4",
		profile.FieldLoansOnTime:     "2",
		profile.FieldLoansLate:       "1",
		profile.FieldLoansEarly:      "0",
	}
	for name, want := range expect {
		v, ok := p.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v.String(), name)
	}
}

func TestAggregate_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}

	_, err := NewAggregator(src).Aggregate(context.Background(), "b1", "p1")
	assert.Error(t, err)
}

func TestMerge_NoEntries(t *testing.T) {
	p := Merge("b1", nil, nil)

	assert.Equal(t, 5, p.Len())
	v, _ := p.Lookup(profile.FieldTotalLoansCount)
	assert.Equal(t, "0", v.String())
}
