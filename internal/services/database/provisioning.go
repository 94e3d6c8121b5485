package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bnpl-financing-engine/internal/models"
)

// ProvisioningRepository handles provisioned borrower data.
type ProvisioningRepository struct {
	db *DB
}

// NewProvisioningRepository creates a new provisioning repository.
func NewProvisioningRepository(db *DB) *ProvisioningRepository {
	return &ProvisioningRepository{db: db}
}

// GetProvisionedData returns the borrower's entries uploaded through any of
// the provider's data configs, newest first.
func (r *ProvisioningRepository) GetProvisionedData(ctx context.Context, borrowerID, providerID string) ([]models.ProvisionedDataEntry, error) {
	query := `
		SELECT pd.id, pd.borrower_id, pd.config_id, c.provider_id, pd.data, pd.created_at
		FROM provisioned_data pd
		JOIN data_provisioning_configs c ON c.id = pd.config_id
		WHERE pd.borrower_id = $1 AND c.provider_id = $2
		ORDER BY pd.created_at DESC`

	return r.queryEntries(ctx, query, borrowerID, providerID)
}

// GetAllProvisionedData returns every entry of the borrower across all
// providers, newest first.
func (r *ProvisioningRepository) GetAllProvisionedData(ctx context.Context, borrowerID string) ([]models.ProvisionedDataEntry, error) {
	query := `
		SELECT pd.id, pd.borrower_id, pd.config_id, c.provider_id, pd.data, pd.created_at
		FROM provisioned_data pd
		JOIN data_provisioning_configs c ON c.id = pd.config_id
		WHERE pd.borrower_id = $1
		ORDER BY pd.created_at DESC`

	return r.queryEntries(ctx, query, borrowerID)
}

// FindProvisionedDataContaining returns the entries, of any borrower, whose
// raw payload contains fragment, newest first.
func (r *ProvisioningRepository) FindProvisionedDataContaining(ctx context.Context, fragment string) ([]models.ProvisionedDataEntry, error) {
	query := `
		SELECT pd.id, pd.borrower_id, pd.config_id, c.provider_id, pd.data, pd.created_at
		FROM provisioned_data pd
		JOIN data_provisioning_configs c ON c.id = pd.config_id
		WHERE strpos(pd.data, $1) > 0
		ORDER BY pd.created_at DESC`

	return r.queryEntries(ctx, query, fragment)
}

func (r *ProvisioningRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.ProvisionedDataEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query provisioned data: %w", err)
	}
	defer rows.Close()

	var entries []models.ProvisionedDataEntry
	for rows.Next() {
		var e models.ProvisionedDataEntry
		var data string
		if err := rows.Scan(&e.ID, &e.BorrowerID, &e.ConfigID, &e.ProviderID, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provisioned data: %w", err)
		}
		e.Data = []byte(data)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provisioned data: %w", err)
	}

	return entries, nil
}

// CreateDataConfig registers a provisioning source for a provider.
func (r *ProvisioningRepository) CreateDataConfig(ctx context.Context, providerID, name string) (string, error) {
	id := uuid.New().String()
	query := `INSERT INTO data_provisioning_configs (id, provider_id, name, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, id, providerID, name, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to create data config: %w", err)
	}
	return id, nil
}

// AddProvisionedData stores a raw payload for a borrower. The payload is kept
// verbatim and validated only when profiles are built.
func (r *ProvisioningRepository) AddProvisionedData(ctx context.Context, borrowerID, configID string, data []byte) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO provisioned_data (id, borrower_id, config_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, id, borrowerID, configID, string(data), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to add provisioned data: %w", err)
	}
	return id, nil
}
