package persistence

import (
	"context"

	"gorm.io/gorm"

	appreturns "github.com/retailcore/backend/internal/application/returns"
	"github.com/retailcore/backend/internal/domain/inventory"
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/returns"
)

// GormTransactionScope implements TransactionScope on top of the retrying
// TxRunner. Every Execute call gets one transaction; all repositories handed
// to fn share its handle.
type GormTransactionScope struct {
	runner *TxRunner
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(runner *TxRunner) *GormTransactionScope {
	return &GormTransactionScope{runner: runner}
}

// Execute runs the given function within a retried database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreturns.TransactionalRepositories) error) error {
	return s.runner.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ReturnRepo returns the return repository scoped to the current transaction
func (r *gormTransactionalRepositories) ReturnRepo() returns.ReturnRepository {
	return NewGormReturnRepository(r.tx)
}

// LedgerRepo returns the ledger repository scoped to the current transaction
func (r *gormTransactionalRepositories) LedgerRepo() ledger.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

// BalanceRepo returns the inventory balance repository scoped to the current transaction
func (r *gormTransactionalRepositories) BalanceRepo() inventory.BalanceRepository {
	return NewGormBalanceRepository(r.tx)
}

// MovementRepo returns the stock movement repository scoped to the current transaction
func (r *gormTransactionalRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// PartyBalances returns the counterparty balance service scoped to the current transaction
func (r *gormTransactionalRepositories) PartyBalances() returns.PartyBalanceService {
	return NewGormPartyBalanceService(r.tx)
}

var (
	_ appreturns.TransactionScope          = (*GormTransactionScope)(nil)
	_ appreturns.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
