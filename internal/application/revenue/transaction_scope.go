package revenue

import (
	"context"

	"github.com/erp/settlement/internal/domain/revenue"
)

// TransactionScope provides transactional access to revenue repositories.
// All repository operations inside fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the revenue repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// OrderRepo returns the order revenue repository scoped to the current transaction
	OrderRepo() revenue.OrderRevenueRepository
	// PayoutRepo returns the payout repository scoped to the current transaction
	PayoutRepo() revenue.PayoutRepository
	// CollectionRepo returns the payment collection repository scoped to the current transaction
	CollectionRepo() revenue.PaymentCollectionRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	orderRepo      revenue.OrderRevenueRepository
	payoutRepo     revenue.PayoutRepository
	collectionRepo revenue.PaymentCollectionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo revenue.OrderRevenueRepository,
	payoutRepo revenue.PayoutRepository,
	collectionRepo revenue.PaymentCollectionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:      orderRepo,
		payoutRepo:     payoutRepo,
		collectionRepo: collectionRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order revenue repository.
func (s *NoOpTransactionScope) OrderRepo() revenue.OrderRevenueRepository {
	return s.orderRepo
}

// PayoutRepo returns the payout repository.
func (s *NoOpTransactionScope) PayoutRepo() revenue.PayoutRepository {
	return s.payoutRepo
}

// CollectionRepo returns the payment collection repository.
func (s *NoOpTransactionScope) CollectionRepo() revenue.PaymentCollectionRepository {
	return s.collectionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
