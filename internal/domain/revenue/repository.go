package revenue

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRevenueFilter defines filtering options for order revenue queries
type OrderRevenueFilter struct {
	shared.Filter
	PartnerID   string          // Filter by partner
	Statuses    []RevenueStatus // Filter by status
	CreatedFrom *time.Time      // Filter by creation time range start
	CreatedTo   *time.Time      // Filter by creation time range end
	PayoutID    *uuid.UUID      // Orders consumed by a payout
}

// PayoutFilter defines filtering options for payout queries
type PayoutFilter struct {
	shared.Filter
	PartnerID   string         // Filter by partner
	Statuses    []PayoutStatus // Filter by status
	PeriodStart *time.Time     // Exact period start
	PeriodEnd   *time.Time     // Exact period end
	Overlapping *Period        // Period shares at least one instant with this window
}

// CollectionFilter defines filtering options for collection queries
type CollectionFilter struct {
	shared.Filter
	Method   *CollectionMethod // Filter by collection method
	Statuses []CollectionStatus
}

// OrderRevenueRepository defines persistence for order revenue records
type OrderRevenueRepository interface {
	// FindByOrderID finds the revenue record of an order
	FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderRevenue, error)

	// FindByOrderIDsForUpdate loads and row-locks the given orders
	FindByOrderIDsForUpdate(ctx context.Context, tenantID uuid.UUID, orderIDs []string) ([]OrderRevenue, error)

	// FindAllForTenant lists records with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter OrderRevenueFilter) ([]OrderRevenue, error)

	// CountForTenant counts records matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter OrderRevenueFilter) (int64, error)

	// FindPayablePartners lists partners with received or settled revenue created in the period
	FindPayablePartners(ctx context.Context, tenantID uuid.UUID, period Period) ([]string, error)

	// FindPayable lists a partner's received or settled revenue created in the period
	FindPayable(ctx context.Context, tenantID uuid.UUID, partnerID string, period Period) ([]OrderRevenue, error)

	// FindPayableForUpdate is FindPayable with the rows locked until the transaction ends
	FindPayableForUpdate(ctx context.Context, tenantID uuid.UUID, partnerID string, period Period) ([]OrderRevenue, error)

	// MarkPaidOut moves the given payable orders to paid_out in one guarded
	// update and returns the number of rows changed
	MarkPaidOut(ctx context.Context, tenantID uuid.UUID, orderIDs []string, payoutID uuid.UUID, at time.Time) (int64, error)

	// ReleaseFromPayout moves a failed payout's orders back to settled
	ReleaseFromPayout(ctx context.Context, tenantID, payoutID uuid.UUID, at time.Time) (int64, error)

	// Create inserts a record; a duplicate order yields ALREADY_EXISTS
	Create(ctx context.Context, record *OrderRevenue) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, record *OrderRevenue) error
}

// PayoutRepository defines persistence for partner payouts
type PayoutRepository interface {
	// FindByIDForTenant finds a payout by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payout, error)

	// FindByIDForUpdate finds a payout and locks its row
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Payout, error)

	// FindAllForTenant lists payouts with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PayoutFilter) ([]Payout, error)

	// CountForTenant counts payouts matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter PayoutFilter) (int64, error)

	// Create inserts a payout; another non-failed payout for the same
	// partner and period yields CONCURRENCY_CONFLICT
	Create(ctx context.Context, payout *Payout) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payout *Payout) error
}

// PaymentCollectionRepository defines persistence for external collections
type PaymentCollectionRepository interface {
	// FindByIDForTenant finds a collection by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentCollection, error)

	// FindByIDForUpdate finds a collection and locks its row
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PaymentCollection, error)

	// FindAllForTenant lists collections with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CollectionFilter) ([]PaymentCollection, error)

	// CountForTenant counts collections matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter CollectionFilter) (int64, error)

	// Create inserts a collection
	Create(ctx context.Context, collection *PaymentCollection) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, collection *PaymentCollection) error
}
