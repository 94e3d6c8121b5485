package database

// Store groups every repository over one connection pool. It satisfies the
// store interfaces of the aggregator, scoring, eligibility and financing services.
type Store struct {
	*BorrowerRepository
	*ProvisioningRepository
	*ScoringRepository
	*ProductRepository
	*ProviderRepository
	*LoanRepository
	*AuditRepository

	Disbursements *DisbursementRepository
	db            *DB
}

// NewStore creates every repository on db.
func NewStore(db *DB) *Store {
	return &Store{
		BorrowerRepository:     NewBorrowerRepository(db),
		ProvisioningRepository: NewProvisioningRepository(db),
		ScoringRepository:      NewScoringRepository(db),
		ProductRepository:      NewProductRepository(db),
		ProviderRepository:     NewProviderRepository(db),
		LoanRepository:         NewLoanRepository(db),
		AuditRepository:        NewAuditRepository(db),
		Disbursements:          NewDisbursementRepository(db),
		db:                     db,
	}
}

// DB returns the underlying connection pool wrapper.
func (s *Store) DB() *DB {
	return s.db
}
