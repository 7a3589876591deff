package persistence

import (
	"context"

	appfinance "github.com/erp/settlement/internal/application/finance"
	apprevenue "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/revenue"
	"gorm.io/gorm"
)

// LedgerTransactionScope implements the finance TransactionScope using GORM transactions.
// Documents, party accounts and payments written inside one Execute commit together.
type LedgerTransactionScope struct {
	db *gorm.DB
}

// NewLedgerTransactionScope creates a new LedgerTransactionScope.
func NewLedgerTransactionScope(db *gorm.DB) *LedgerTransactionScope {
	return &LedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *LedgerTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepositories{tx: tx})
	})
}

// ledgerRepositories binds the finance repositories to one transaction.
type ledgerRepositories struct {
	tx *gorm.DB
}

// PartyRepo returns the party account repository scoped to the current transaction.
func (r *ledgerRepositories) PartyRepo() finance.PartyAccountRepository {
	return NewGormPartyAccountRepository(r.tx)
}

// DocumentRepo returns the billing document repository scoped to the current transaction.
func (r *ledgerRepositories) DocumentRepo() finance.BillingDocumentRepository {
	return NewGormBillingDocumentRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *ledgerRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// RevenueTransactionScope implements the revenue TransactionScope using GORM transactions.
type RevenueTransactionScope struct {
	db *gorm.DB
}

// NewRevenueTransactionScope creates a new RevenueTransactionScope.
func NewRevenueTransactionScope(db *gorm.DB) *RevenueTransactionScope {
	return &RevenueTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *RevenueTransactionScope) Execute(ctx context.Context, fn func(repos apprevenue.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&revenueRepositories{tx: tx})
	})
}

// revenueRepositories binds the revenue repositories to one transaction.
type revenueRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the order revenue repository scoped to the current transaction.
func (r *revenueRepositories) OrderRepo() revenue.OrderRevenueRepository {
	return NewGormOrderRevenueRepository(r.tx)
}

// PayoutRepo returns the payout repository scoped to the current transaction.
func (r *revenueRepositories) PayoutRepo() revenue.PayoutRepository {
	return NewGormPayoutRepository(r.tx)
}

// CollectionRepo returns the payment collection repository scoped to the current transaction.
func (r *revenueRepositories) CollectionRepo() revenue.PaymentCollectionRepository {
	return NewGormPaymentCollectionRepository(r.tx)
}

var (
	_ appfinance.TransactionScope          = (*LedgerTransactionScope)(nil)
	_ appfinance.TransactionalRepositories = (*ledgerRepositories)(nil)
	_ apprevenue.TransactionScope          = (*RevenueTransactionScope)(nil)
	_ apprevenue.TransactionalRepositories = (*revenueRepositories)(nil)

	_ finance.PartyAccountRepository      = (*GormPartyAccountRepository)(nil)
	_ finance.BillingDocumentRepository   = (*GormBillingDocumentRepository)(nil)
	_ finance.PaymentRepository           = (*GormPaymentRepository)(nil)
	_ revenue.OrderRevenueRepository      = (*GormOrderRevenueRepository)(nil)
	_ revenue.PayoutRepository            = (*GormPayoutRepository)(nil)
	_ revenue.PaymentCollectionRepository = (*GormPaymentCollectionRepository)(nil)
)
