package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bnpl-financing-engine/internal/models"
)

// BorrowerRepository handles borrower database operations.
type BorrowerRepository struct {
	db *DB
}

// NewBorrowerRepository creates a new borrower repository.
func NewBorrowerRepository(db *DB) *BorrowerRepository {
	return &BorrowerRepository{db: db}
}

// GetBorrower retrieves a borrower by ID. Returns nil when not found.
func (r *BorrowerRepository) GetBorrower(ctx context.Context, borrowerID string) (*models.Borrower, error) {
	query := `SELECT id, status, created_at, updated_at FROM borrowers WHERE id = $1`

	var b models.Borrower
	var status string
	err := r.db.QueryRowContext(ctx, query, borrowerID).Scan(&b.ID, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get borrower: %w", err)
	}
	b.Status = models.BorrowerStatus(status)

	return &b, nil
}

// CreateBorrower inserts a borrower, leaving an existing row untouched.
func (r *BorrowerRepository) CreateBorrower(ctx context.Context, borrowerID string, status models.BorrowerStatus) error {
	if status == "" {
		status = models.BorrowerStatusActive
	}
	query := `
		INSERT INTO borrowers (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, borrowerID, string(status), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create borrower: %w", err)
	}
	return nil
}

// UpdateBorrowerStatus changes the standing of a borrower.
func (r *BorrowerRepository) UpdateBorrowerStatus(ctx context.Context, borrowerID string, status models.BorrowerStatus) error {
	query := `UPDATE borrowers SET status = $2, updated_at = $3 WHERE id = $1`

	affected, err := r.db.ExecContext(ctx, query, borrowerID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update borrower status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("borrower %s: %w", borrowerID, models.ErrBorrowerNotFound)
	}
	return nil
}

// ListBorrowersWithLatestData returns every borrower ordered by ID, each with
// the payload of their newest provisioned data entry.
func (r *BorrowerRepository) ListBorrowersWithLatestData(ctx context.Context) ([]models.BorrowerSnapshot, error) {
	query := `
		SELECT b.id, b.status, b.created_at, b.updated_at, latest.data
		FROM borrowers b
		LEFT JOIN LATERAL (
			SELECT pd.data FROM provisioned_data pd
			WHERE pd.borrower_id = b.id
			ORDER BY pd.created_at DESC
			LIMIT 1
		) latest ON TRUE
		ORDER BY b.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowers: %w", err)
	}
	defer rows.Close()

	var borrowers []models.BorrowerSnapshot
	for rows.Next() {
		var b models.BorrowerSnapshot
		var status string
		var data *string
		if err := rows.Scan(&b.ID, &status, &b.CreatedAt, &b.UpdatedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan borrower: %w", err)
		}
		b.Status = models.BorrowerStatus(status)
		if data != nil {
			b.LatestData = []byte(*data)
		}
		borrowers = append(borrowers, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrowers: %w", err)
	}

	return borrowers, nil
}
