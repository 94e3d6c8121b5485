// Package aggregator merges a borrower's provisioned-data snapshots into a
// single flat profile used by scoring and eligibility filtering.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
	"bnpl-financing-engine/internal/utils"
)

// Source provides the raw inputs of an aggregation.
type Source interface {
	// GetProvisionedData returns the borrower's entries ingested through the
	// provider's data configs, newest first.
	GetProvisionedData(ctx context.Context, borrowerID, providerID string) ([]models.ProvisionedDataEntry, error)
	// GetRepaymentBehaviors returns the repayment behavior of every loan the
	// borrower has ever taken, across all providers. Nil means not yet settled.
	GetRepaymentBehaviors(ctx context.Context, borrowerID string) ([]*models.RepaymentBehavior, error)
}

// Aggregator builds borrower profiles.
type Aggregator struct {
	source Source
}

// NewAggregator creates a new aggregator.
func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

var errNotAnObject = errors.New("payload is not a JSON object")

// Aggregate builds the profile of a borrower scoped to a provider.
//
// Entries are merged newest first and the first write of a field wins, so the
// latest snapshot takes precedence. A malformed entry is logged and skipped.
// Repayment counters are derived from the full loan history and always
// replace provisioned values of the same name.
func (a *Aggregator) Aggregate(ctx context.Context, borrowerID, providerID string) (*profile.Profile, error) {
	entries, err := a.source.GetProvisionedData(ctx, borrowerID, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provisioned data: %w", err)
	}

	behaviors, err := a.source.GetRepaymentBehaviors(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load repayment history: %w", err)
	}

	return Merge(borrowerID, entries, behaviors), nil
}

// Merge is the pure part of Aggregate.
func Merge(borrowerID string, entries []models.ProvisionedDataEntry, behaviors []*models.RepaymentBehavior) *profile.Profile {
	p := profile.New()
	p.Set(profile.FieldID, profile.StringValue(borrowerID))

	ordered := make([]models.ProvisionedDataEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	for _, entry := range ordered {
		fields, err := DecodeEntry(entry.Data)
		if err != nil {
			utils.GetLogger().Warn("Skipping malformed provisioned data entry",
				zap.String("entry_id", entry.ID),
				zap.String("borrower_id", borrowerID),
				zap.Error(err),
			)
			continue
		}
		mergeFields(p, fields)
	}

	applyRepaymentCounters(p, behaviors)
	return p
}

// DecodeEntry parses an entry payload into its raw fields. Payloads stored as
// a JSON string that itself holds an object are unwrapped once.
func DecodeEntry(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errNotAnObject
	}

	decoded, err := decode(raw)
	if err != nil {
		return nil, err
	}

	if s, ok := decoded.(string); ok {
		decoded, err = decode([]byte(s))
		if err != nil {
			return nil, err
		}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	return obj, nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// mergeFields applies one entry. Keys are visited in sorted order so that two
// keys of the same entry normalizing to one field resolve deterministically.
func mergeFields(p *profile.Profile, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := profile.NormalizeFieldName(k)
		if name == "" {
			continue
		}
		p.SetIfAbsent(name, profile.ValueOf(fields[k]))
	}
}

func applyRepaymentCounters(p *profile.Profile, behaviors []*models.RepaymentBehavior) {
	var onTime, late, early int
	for _, b := range behaviors {
		if b == nil {
			continue
		}
		switch *b {
		case models.RepaymentBehaviorOnTime:
			onTime++
		case models.RepaymentBehaviorLate:
			late++
		case models.RepaymentBehaviorEarly:
			early++
		}
	}

	p.Set(profile.FieldTotalLoansCount, profile.IntValue(len(behaviors)))
	p.Set(profile.FieldLoansOnTime, profile.IntValue(onTime))
	p.Set(profile.FieldLoansLate, profile.IntValue(late))
	p.Set(profile.FieldLoansEarly, profile.IntValue(early))
}
