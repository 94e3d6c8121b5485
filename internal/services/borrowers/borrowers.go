// Package borrowers serves the customer directory: listing borrowers, finding
// one by phone number across provisioned data, and changing their standing.
package borrowers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/aggregator"
	"bnpl-financing-engine/internal/services/profile"
	"bnpl-financing-engine/internal/utils"
)

// Store is the borrower data the directory reads and writes.
type Store interface {
	ListBorrowersWithLatestData(ctx context.Context) ([]models.BorrowerSnapshot, error)
	FindProvisionedDataContaining(ctx context.Context, fragment string) ([]models.ProvisionedDataEntry, error)
	GetAllProvisionedData(ctx context.Context, borrowerID string) ([]models.ProvisionedDataEntry, error)
	GetRepaymentBehaviors(ctx context.Context, borrowerID string) ([]*models.RepaymentBehavior, error)
	UpdateBorrowerStatus(ctx context.Context, borrowerID string, status models.BorrowerStatus) error
}

// Directory looks borrowers up.
type Directory struct {
	store Store
}

// NewDirectory creates a new directory.
func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

// List returns every borrower with a display name taken from the full name
// of their newest provisioned entry.
func (d *Directory) List(ctx context.Context) ([]models.BorrowerSummary, error) {
	snapshots, err := d.store.ListBorrowersWithLatestData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrowers: %w", err)
	}

	out := make([]models.BorrowerSummary, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, models.BorrowerSummary{
			ID:     s.ID,
			Name:   DisplayName(s.ID, s.LatestData),
			Status: s.Status,
		})
	}
	return out, nil
}

// DisplayName returns the fullName of a payload, or a placeholder built from
// the borrower ID.
func DisplayName(borrowerID string, payload []byte) string {
	fallback := "Borrower " + borrowerID
	if len(payload) == 0 {
		return fallback
	}

	fields, err := aggregator.DecodeEntry(payload)
	if err != nil {
		return fallback
	}
	for _, key := range sortedKeys(fields) {
		k := strings.ToLower(key)
		if k != "fullname" && k != "full name" {
			continue
		}
		if name := profile.ValueOf(fields[key]).String(); name != "" {
			return name
		}
	}
	return fallback
}

// FindByPhone returns the merged profile of the borrower whose provisioned
// data holds the phone number, or nil when nobody matches. The newest
// matching entry decides the borrower.
func (d *Directory) FindByPhone(ctx context.Context, phone string) (*profile.Profile, error) {
	target := NormalizePhone(phone)
	if target == "" {
		return nil, nil
	}

	candidates, err := d.store.FindProvisionedDataContaining(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to search provisioned data: %w", err)
	}

	for _, entry := range candidates {
		fields, err := aggregator.DecodeEntry(entry.Data)
		if err != nil {
			utils.GetLogger().Warn("Skipping malformed provisioned data entry",
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
			continue
		}
		if phoneOf(fields) != target {
			continue
		}
		return d.profileOf(ctx, entry.BorrowerID)
	}
	return nil, nil
}

func (d *Directory) profileOf(ctx context.Context, borrowerID string) (*profile.Profile, error) {
	entries, err := d.store.GetAllProvisionedData(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provisioned data: %w", err)
	}
	behaviors, err := d.store.GetRepaymentBehaviors(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load repayment history: %w", err)
	}
	return aggregator.Merge(borrowerID, entries, behaviors), nil
}

// phoneOf returns the normalized value of the first field whose name mentions
// a phone, in sorted key order.
func phoneOf(fields map[string]any) string {
	for _, key := range sortedKeys(fields) {
		if !strings.Contains(string(profile.NormalizeFieldName(key)), "phone") {
			continue
		}
		v := profile.ValueOf(fields[key])
		if v.IsNull() {
			continue
		}
		return NormalizePhone(v.String())
	}
	return ""
}

// NormalizePhone strips the national trunk prefix "0" from ten-digit numbers
// and the "+251" country code from thirteen-character numbers.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(p, "0") && len(p) == 10:
		return p[1:]
	case strings.HasPrefix(p, "+251") && len(p) == 13:
		return p[4:]
	default:
		return p
	}
}

// UpdateStatus changes a borrower's standing.
func (d *Directory) UpdateStatus(ctx context.Context, borrowerID string, status models.BorrowerStatus) error {
	if !status.Valid() {
		return models.ErrInvalidBorrowerStatus
	}
	if err := d.store.UpdateBorrowerStatus(ctx, borrowerID, status); err != nil {
		return err
	}

	utils.GetLogger().Info("Borrower status updated",
		zap.String("borrower_id", borrowerID),
		zap.String("status", string(status)),
	)
	return nil
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
