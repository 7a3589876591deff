package finance

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations inside fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// A document mutation and the party balance mutation it implies are always
// written through the same TransactionalRepositories, so a reader never
// sees one without the other.
type TransactionalRepositories interface {
	// PartyRepo returns the party account repository scoped to the current transaction
	PartyRepo() finance.PartyAccountRepository
	// DocumentRepo returns the billing document repository scoped to the current transaction
	DocumentRepo() finance.BillingDocumentRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() finance.PaymentRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	partyRepo    finance.PartyAccountRepository
	documentRepo finance.BillingDocumentRepository
	paymentRepo  finance.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	partyRepo finance.PartyAccountRepository,
	documentRepo finance.BillingDocumentRepository,
	paymentRepo finance.PaymentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		partyRepo:    partyRepo,
		documentRepo: documentRepo,
		paymentRepo:  paymentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PartyRepo returns the party account repository.
func (s *NoOpTransactionScope) PartyRepo() finance.PartyAccountRepository {
	return s.partyRepo
}

// DocumentRepo returns the billing document repository.
func (s *NoOpTransactionScope) DocumentRepo() finance.BillingDocumentRepository {
	return s.documentRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() finance.PaymentRepository {
	return s.paymentRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
