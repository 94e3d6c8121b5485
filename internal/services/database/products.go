package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"bnpl-financing-engine/internal/models"
)

// ProductRepository handles installment plan product database operations.
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	p.id, p.provider_id, p.name, p.allow_concurrent_loans, p.data_provisioning_enabled,
	p.eligibility_filter, p.duration_days, p.service_fee_type, p.service_fee_value,
	p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads productColumns followed by any extra destinations.
func scanProduct(row rowScanner, extra ...any) (*models.LoanProduct, error) {
	var p models.LoanProduct
	var filter *string
	var feeType string
	var feeValue pgtype.Numeric

	dest := []any{
		&p.ID, &p.ProviderID, &p.Name, &p.AllowConcurrentLoans, &p.DataProvisioningEnabled,
		&filter, &p.DurationDays, &feeType, &feeValue,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if filter != nil && strings.TrimSpace(*filter) != "" {
		p.EligibilityFilter = []byte(*filter)
	}
	p.ServiceFeeType = models.ServiceFeeType(feeType)
	p.ServiceFeeValue = pgNumericToDecimal(feeValue)

	return &p, nil
}

// GetProduct retrieves a product by ID. Returns nil when not found.
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error) {
	query := `SELECT ` + productColumns + ` FROM loan_products p WHERE p.id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// GetAmountTiers returns the product's tiers ordered by their lower bound.
func (r *ProductRepository) GetAmountTiers(ctx context.Context, productID string) ([]models.LoanAmountTier, error) {
	query := `
		SELECT id, product_id, from_score, to_score, loan_amount
		FROM loan_amount_tiers
		WHERE product_id = $1
		ORDER BY from_score ASC`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query amount tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.LoanAmountTier
	for rows.Next() {
		var t models.LoanAmountTier
		var amount pgtype.Numeric
		if err := rows.Scan(&t.ID, &t.ProductID, &t.FromScore, &t.ToScore, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan amount tier: %w", err)
		}
		t.LoanAmount = pgNumericToDecimal(amount)
		tiers = append(tiers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating amount tiers: %w", err)
	}

	return tiers, nil
}

// CreateProduct inserts a new product and fills in its ID and timestamps.
func (r *ProductRepository) CreateProduct(ctx context.Context, p *models.LoanProduct) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.ServiceFeeType == "" {
		p.ServiceFeeType = models.ServiceFeeTypeFixed
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	feeValue, err := decimalToPgNumeric(p.ServiceFeeValue)
	if err != nil {
		return fmt.Errorf("failed to convert service fee: %w", err)
	}

	var filter *string
	if len(p.EligibilityFilter) > 0 {
		s := string(p.EligibilityFilter)
		filter = &s
	}

	query := `
		INSERT INTO loan_products (
			id, provider_id, name, allow_concurrent_loans, data_provisioning_enabled,
			eligibility_filter, duration_days, service_fee_type, service_fee_value,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.ProviderID,
		p.Name,
		p.AllowConcurrentLoans,
		p.DataProvisioningEnabled,
		filter,
		p.DurationDays,
		string(p.ServiceFeeType),
		feeValue,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CreateAmountTier inserts a score range for a product.
func (r *ProductRepository) CreateAmountTier(ctx context.Context, t *models.LoanAmountTier) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	amount, err := decimalToPgNumeric(t.LoanAmount)
	if err != nil {
		return fmt.Errorf("failed to convert tier amount: %w", err)
	}

	query := `
		INSERT INTO loan_amount_tiers (id, product_id, from_score, to_score, loan_amount)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, t.ID, t.ProductID, t.FromScore, t.ToScore, amount); err != nil {
		return fmt.Errorf("failed to create amount tier: %w", err)
	}
	return nil
}
