package finance

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentFilter defines filtering options for billing document queries
type DocumentFilter struct {
	shared.Filter
	Kind      *DocumentKind    // Filter by invoice or bill
	PartyID   string           // Filter by counterparty
	Statuses  []DocumentStatus // Filter by persisted status
	OverdueAt *time.Time       // Only documents overdue at this instant
	CurrentAt *time.Time       // Only documents not overdue at this instant
	DueFrom   *time.Time       // Filter by due date range start
	DueTo     *time.Time       // Filter by due date range end
}

// PartyAccountRepository defines persistence for party accounts
type PartyAccountRepository interface {
	// FindByParty finds the account of a party
	FindByParty(ctx context.Context, tenantID uuid.UUID, partyType PartyType, partyID string) (*PartyAccount, error)

	// FindByPartyForUpdate finds the account and locks its row until the transaction ends
	FindByPartyForUpdate(ctx context.Context, tenantID uuid.UUID, partyType PartyType, partyID string) (*PartyAccount, error)

	// FindAllForTenant lists accounts, optionally restricted to one party type
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, partyType *PartyType) ([]PartyAccount, error)

	// CreateIfAbsent inserts the account unless the party already has one
	CreateIfAbsent(ctx context.Context, account *PartyAccount) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *PartyAccount) error
}

// BillingDocumentRepository defines persistence for invoices and bills
type BillingDocumentRepository interface {
	// FindByIDForTenant finds a document by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BillingDocument, error)

	// FindByIDsForUpdate loads and row-locks the given documents
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]BillingDocument, error)

	// FindAllForTenant lists documents with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter DocumentFilter) ([]BillingDocument, error)

	// CountForTenant counts documents matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter DocumentFilter) (int64, error)

	// FindOpen finds sent and partial documents of a kind, optionally for one party
	FindOpen(ctx context.Context, tenantID uuid.UUID, kind DocumentKind, partyID string) ([]BillingDocument, error)

	// SumOwedByParty sums total - amount_paid over the party's non-cancelled documents
	SumOwedByParty(ctx context.Context, tenantID uuid.UUID, partyType PartyType, partyID string) (decimal.Decimal, error)

	// Create inserts a new document
	Create(ctx context.Context, doc *BillingDocument) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, doc *BillingDocument) error
}

// PaymentRepository defines persistence for immutable payments
type PaymentRepository interface {
	// FindByIDForTenant finds a payment by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByIdempotencyKey finds the payment recorded under a client key
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*Payment, error)

	// FindByParty lists payments of a party, newest first
	FindByParty(ctx context.Context, tenantID uuid.UUID, partyType PartyType, partyID string) ([]Payment, error)

	// ClaimIdempotencyKey blocks other writers holding the same client key
	// until the surrounding transaction ends
	ClaimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) error

	// Create inserts a payment; a reused idempotency key yields ALREADY_EXISTS
	Create(ctx context.Context, payment *Payment) error
}
