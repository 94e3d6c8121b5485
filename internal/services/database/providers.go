package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"bnpl-financing-engine/internal/models"
)

// ProviderRepository handles loan providers and their ledger accounts.
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// querier is satisfied by both the pool wrapper and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetProvider returns the provider with its ledger accounts. Returns nil when not found.
func (r *ProviderRepository) GetProvider(ctx context.Context, providerID string) (*models.LoanProvider, error) {
	var p models.LoanProvider
	var balance pgtype.Numeric
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, initial_balance FROM loan_providers WHERE id = $1`, providerID,
	).Scan(&p.ID, &p.Name, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	p.InitialBalance = pgNumericToDecimal(balance)

	accounts, err := loadLedgerAccounts(ctx, r.db.pool, providerID)
	if err != nil {
		return nil, err
	}
	p.LedgerAccounts = accounts

	return &p, nil
}

func loadLedgerAccounts(ctx context.Context, q querier, providerID string) ([]models.LedgerAccount, error) {
	rows, err := q.Query(ctx, `
		SELECT id, provider_id, name, category, type, balance
		FROM ledger_accounts
		WHERE provider_id = $1
		ORDER BY category, type`, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.LedgerAccount
	for rows.Next() {
		var a models.LedgerAccount
		var category, accountType string
		var balance pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.Name, &category, &accountType, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan ledger account: %w", err)
		}
		a.Category = models.LedgerCategory(category)
		a.Type = models.LedgerAccountType(accountType)
		a.Balance = pgNumericToDecimal(balance)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger accounts: %w", err)
	}

	return accounts, nil
}

// CreateProvider inserts a provider with its opening funds pool.
func (r *ProviderRepository) CreateProvider(ctx context.Context, p *models.LoanProvider) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	balance, err := decimalToPgNumeric(p.InitialBalance)
	if err != nil {
		return fmt.Errorf("failed to convert initial balance: %w", err)
	}

	query := `INSERT INTO loan_providers (id, name, initial_balance, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, balance, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// CreateLedgerAccount inserts a ledger account. A provider holds at most one
// account per category and type.
func (r *ProviderRepository) CreateLedgerAccount(ctx context.Context, a *models.LedgerAccount) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Name == "" {
		a.Name = a.String()
	}
	balance, err := decimalToPgNumeric(a.Balance)
	if err != nil {
		return fmt.Errorf("failed to convert account balance: %w", err)
	}

	query := `
		INSERT INTO ledger_accounts (id, provider_id, name, category, type, balance)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.ExecContext(ctx, query, a.ID, a.ProviderID, a.Name, string(a.Category), string(a.Type), balance)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("provider %s already has a %s account", a.ProviderID, a.String())
		}
		return fmt.Errorf("failed to create ledger account: %w", err)
	}
	return nil
}
