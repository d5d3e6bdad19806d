package returns

import (
	"context"

	"github.com/retailcore/backend/internal/domain/inventory"
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/returns"
)

// TransactionScope provides transactional access to the repositories the
// return pipeline mutates. When a function is executed within a transaction
// scope, all repository operations are part of the same database transaction
// and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all return-pipeline
// repositories within a transaction. All repositories returned share the
// same underlying database transaction.
//
// The return aggregate, the inventory balance rows, the movement log, and
// the ledger must move together: a return is only processed once every
// repository here has accepted its part of the change.
type TransactionalRepositories interface {
	// ReturnRepo returns the return repository scoped to the current transaction
	ReturnRepo() returns.ReturnRepository
	// LedgerRepo returns the ledger repository scoped to the current transaction
	LedgerRepo() ledger.LedgerRepository
	// BalanceRepo returns the inventory balance repository scoped to the current transaction
	BalanceRepo() inventory.BalanceRepository
	// MovementRepo returns the stock movement repository scoped to the current transaction
	MovementRepo() inventory.MovementRepository
	// PartyBalances returns the counterparty balance service scoped to the current transaction
	PartyBalances() returns.PartyBalanceService
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	returnRepo   returns.ReturnRepository
	ledgerRepo   ledger.LedgerRepository
	balanceRepo  inventory.BalanceRepository
	movementRepo inventory.MovementRepository
	parties      returns.PartyBalanceService
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	returnRepo returns.ReturnRepository,
	ledgerRepo ledger.LedgerRepository,
	balanceRepo inventory.BalanceRepository,
	movementRepo inventory.MovementRepository,
	parties returns.PartyBalanceService,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		returnRepo:   returnRepo,
		ledgerRepo:   ledgerRepo,
		balanceRepo:  balanceRepo,
		movementRepo: movementRepo,
		parties:      parties,
	}
}

// Execute runs the function without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ReturnRepo returns the return repository
func (s *NoOpTransactionScope) ReturnRepo() returns.ReturnRepository {
	return s.returnRepo
}

// LedgerRepo returns the ledger repository
func (s *NoOpTransactionScope) LedgerRepo() ledger.LedgerRepository {
	return s.ledgerRepo
}

// BalanceRepo returns the inventory balance repository
func (s *NoOpTransactionScope) BalanceRepo() inventory.BalanceRepository {
	return s.balanceRepo
}

// MovementRepo returns the stock movement repository
func (s *NoOpTransactionScope) MovementRepo() inventory.MovementRepository {
	return s.movementRepo
}

// PartyBalances returns the counterparty balance service
func (s *NoOpTransactionScope) PartyBalances() returns.PartyBalanceService {
	return s.parties
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
