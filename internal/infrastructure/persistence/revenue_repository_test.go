package persistence

import (
	"context"
	"testing"

	apprevenue "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestOrder(t *testing.T, tenantID uuid.UUID, orderID, partnerID string, day int, status revenue.RevenueStatus) *revenue.OrderRevenue {
	t.Helper()
	record, err := revenue.NewOrderRevenue(revenue.NewOrderRevenueParams{
		TenantID:          tenantID,
		OrderID:           orderID,
		PartnerID:         partnerID,
		PartnerTier:       revenue.PartnerTierGold,
		CommissionType:    revenue.CommissionTypeDelivery,
		OrderAmount:       decimal.NewFromInt(100),
		PartnerCommission: decimal.NewFromInt(80),
		TotalFees:         decimal.NewFromInt(5),
		PaymentMethod:     "card",
		At:                at(day),
	})
	require.NoError(t, err)
	if status == revenue.RevenueStatusReceived || status == revenue.RevenueStatusSettled {
		require.NoError(t, record.MarkReceived(at(day)))
	}
	if status == revenue.RevenueStatusSettled {
		require.NoError(t, record.Settle(at(day)))
	}
	return record
}

func createOrders(t *testing.T, repo *GormOrderRevenueRepository, records ...*revenue.OrderRevenue) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, repo.Create(context.Background(), r))
	}
}

func newTestPayout(t *testing.T, tenantID uuid.UUID, number, partnerID string, period revenue.Period, records []revenue.OrderRevenue) *revenue.Payout {
	t.Helper()
	payout, err := revenue.NewPayout(revenue.NewPayoutParams{
		TenantID:      tenantID,
		PayoutNumber:  number,
		PartnerID:     partnerID,
		Period:        period,
		Records:       records,
		ScheduledDate: period.End.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	payout.CreatedAt = at(3)
	payout.UpdatedAt = at(3)
	return payout
}

func TestGormOrderRevenueRepository(t *testing.T) {
	ctx := context.Background()
	week := revenue.WeekOf(at(0))

	t.Run("duplicate order is ALREADY_EXISTS", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo, newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusPending))

		err := repo.Create(ctx, newTestOrder(t, tenantID, "ORD-1", "P-2", 0, revenue.RevenueStatusPending))
		require.Error(t, err)
		assert.Equal(t, shared.CodeAlreadyExists, shared.ErrorCode(err))

		require.NoError(t, repo.Create(ctx, newTestOrder(t, uuid.New(), "ORD-1", "P-1", 0, revenue.RevenueStatusPending)))
	})

	t.Run("stored split stays balanced", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo, newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusPending))

		found, err := repo.FindByOrderID(ctx, tenantID, "ORD-1")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(15).Equal(found.ClutchRevenue))
		assert.True(t, found.IsBalanced())

		_, err = repo.FindByOrderID(ctx, tenantID, "ORD-404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("payable queries keep to the period and payable statuses", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo,
			newTestOrder(t, tenantID, "ORD-1", "P-2", 0, revenue.RevenueStatusSettled),
			newTestOrder(t, tenantID, "ORD-2", "P-1", 1, revenue.RevenueStatusReceived),
			newTestOrder(t, tenantID, "ORD-3", "P-1", 0, revenue.RevenueStatusSettled),
			newTestOrder(t, tenantID, "ORD-4", "P-1", 1, revenue.RevenueStatusPending),
			newTestOrder(t, tenantID, "ORD-5", "P-1", 3, revenue.RevenueStatusSettled),
			newTestOrder(t, tenantID, "ORD-6", "P-3", -7, revenue.RevenueStatusSettled),
		)

		partners, err := repo.FindPayablePartners(ctx, tenantID, week)
		require.NoError(t, err)
		assert.Equal(t, []string{"P-1", "P-2"}, partners)

		payable, err := repo.FindPayable(ctx, tenantID, "P-1", week)
		require.NoError(t, err)
		require.Len(t, payable, 2)
		assert.Equal(t, "ORD-3", payable[0].OrderID)
		assert.Equal(t, "ORD-2", payable[1].OrderID)

		locked, err := repo.FindPayableForUpdate(ctx, tenantID, "P-1", week)
		require.NoError(t, err)
		assert.Len(t, locked, 2)
	})

	t.Run("MarkPaidOut only moves payable orders", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo,
			newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusSettled),
			newTestOrder(t, tenantID, "ORD-2", "P-1", 0, revenue.RevenueStatusReceived),
			newTestOrder(t, tenantID, "ORD-3", "P-1", 0, revenue.RevenueStatusPending),
		)
		payoutID := uuid.New()

		changed, err := repo.MarkPaidOut(ctx, tenantID, []string{"ORD-1", "ORD-2", "ORD-3"}, payoutID, at(3))
		require.NoError(t, err)
		assert.Equal(t, int64(2), changed)

		again, err := repo.MarkPaidOut(ctx, tenantID, []string{"ORD-1", "ORD-2"}, uuid.New(), at(4))
		require.NoError(t, err)
		assert.Zero(t, again)

		paid, err := repo.FindAllForTenant(ctx, tenantID, revenue.OrderRevenueFilter{PayoutID: &payoutID})
		require.NoError(t, err)
		require.Len(t, paid, 2)
		for _, r := range paid {
			assert.Equal(t, revenue.RevenueStatusPaidOut, r.Status)
			require.NotNil(t, r.PayoutID)
			assert.Equal(t, payoutID, *r.PayoutID)
		}

		none, err := repo.MarkPaidOut(ctx, tenantID, nil, payoutID, at(3))
		require.NoError(t, err)
		assert.Zero(t, none)
	})

	t.Run("ReleaseFromPayout returns orders to settled", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo,
			newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusReceived),
			newTestOrder(t, tenantID, "ORD-2", "P-1", 0, revenue.RevenueStatusSettled),
		)
		payoutID := uuid.New()
		_, err := repo.MarkPaidOut(ctx, tenantID, []string{"ORD-1", "ORD-2"}, payoutID, at(3))
		require.NoError(t, err)

		released, err := repo.ReleaseFromPayout(ctx, tenantID, payoutID, at(5))
		require.NoError(t, err)
		assert.Equal(t, int64(2), released)

		payable, err := repo.FindPayable(ctx, tenantID, "P-1", week)
		require.NoError(t, err)
		require.Len(t, payable, 2)
		for _, r := range payable {
			assert.Equal(t, revenue.RevenueStatusSettled, r.Status)
			assert.Nil(t, r.PayoutID)
		}
	})

	t.Run("SaveWithLock rejects stale versions", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormOrderRevenueRepository(db)
		tenantID := uuid.New()
		createOrders(t, repo, newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusPending))

		first, err := repo.FindByOrderID(ctx, tenantID, "ORD-1")
		require.NoError(t, err)
		second, err := repo.FindByOrderID(ctx, tenantID, "ORD-1")
		require.NoError(t, err)

		require.NoError(t, first.MarkReceived(at(1)))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.MarkReceived(at(2)))
		err = repo.SaveWithLock(ctx, second)
		assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))
	})
}

func TestGormPayoutRepository(t *testing.T) {
	ctx := context.Background()
	week := revenue.WeekOf(at(0))

	setup := func(t *testing.T) (*gorm.DB, uuid.UUID, []revenue.OrderRevenue) {
		db := setupLedgerTestDB(t)
		tenantID := uuid.New()
		records := []revenue.OrderRevenue{
			*newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusSettled),
			*newTestOrder(t, tenantID, "ORD-2", "P-1", 1, revenue.RevenueStatusSettled),
		}
		return db, tenantID, records
	}

	t.Run("second live payout for the same period is a CONCURRENCY_CONFLICT", func(t *testing.T) {
		db, tenantID, records := setup(t)
		repo := NewGormPayoutRepository(db)

		first := newTestPayout(t, tenantID, "PO-1", "P-1", week, records)
		require.NoError(t, repo.Create(ctx, first))

		err := repo.Create(ctx, newTestPayout(t, tenantID, "PO-2", "P-1", week, records))
		require.Error(t, err)
		assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))

		require.NoError(t, repo.Create(ctx, newTestPayout(t, tenantID, "PO-3", "P-1", revenue.WeekOf(at(7)), records)))
	})

	t.Run("a failed payout frees the period", func(t *testing.T) {
		db, tenantID, records := setup(t)
		repo := NewGormPayoutRepository(db)

		first := newTestPayout(t, tenantID, "PO-1", "P-1", week, records)
		require.NoError(t, repo.Create(ctx, first))

		require.NoError(t, first.MarkFailed("bank rejected transfer", at(4)))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, repo.Create(ctx, newTestPayout(t, tenantID, "PO-2", "P-1", week, records)))

		failed, err := repo.FindByIDForUpdate(ctx, tenantID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, revenue.PayoutStatusFailed, failed.Status)
		assert.Equal(t, "bank rejected transfer", failed.FailureReason)
		assert.Equal(t, []string{"ORD-1", "ORD-2"}, []string(failed.OrderIDs))
		assert.True(t, decimal.NewFromInt(160).Equal(failed.TotalNetPayout))
	})

	t.Run("filters by partner status and exact period", func(t *testing.T) {
		db, tenantID, records := setup(t)
		repo := NewGormPayoutRepository(db)

		pending := newTestPayout(t, tenantID, "PO-1", "P-1", week, records)
		require.NoError(t, repo.Create(ctx, pending))
		completed := newTestPayout(t, tenantID, "PO-2", "P-1", revenue.WeekOf(at(7)), records)
		require.NoError(t, completed.MarkCompleted(at(12)))
		require.NoError(t, repo.Create(ctx, completed))

		start, end := week.Start, week.End
		list, err := repo.FindAllForTenant(ctx, tenantID, revenue.PayoutFilter{
			PartnerID:   "P-1",
			PeriodStart: &start,
			PeriodEnd:   &end,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "PO-1", list[0].PayoutNumber)

		count, err := repo.CountForTenant(ctx, tenantID, revenue.PayoutFilter{
			Statuses: []revenue.PayoutStatus{revenue.PayoutStatusCompleted},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = repo.FindByIDForTenant(ctx, uuid.New(), pending.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("overlapping period matches partial weeks", func(t *testing.T) {
		db, tenantID, records := setup(t)
		repo := NewGormPayoutRepository(db)

		midweek := revenue.Period{Start: week.Start.AddDate(0, 0, 2), End: week.Start.AddDate(0, 0, 4)}
		require.NoError(t, repo.Create(ctx, newTestPayout(t, tenantID, "PO-1", "P-1", midweek, records)))
		require.NoError(t, repo.Create(ctx, newTestPayout(t, tenantID, "PO-2", "P-2", revenue.WeekOf(at(7)), records)))

		list, err := repo.FindAllForTenant(ctx, tenantID, revenue.PayoutFilter{Overlapping: &week})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "PO-1", list[0].PayoutNumber)
	})
}

func TestGormPaymentCollectionRepository(t *testing.T) {
	ctx := context.Background()

	newCollection := func(t *testing.T, tenantID uuid.UUID, number string, method revenue.CollectionMethod) *revenue.PaymentCollection {
		t.Helper()
		c, err := revenue.NewPaymentCollection(revenue.NewCollectionParams{
			TenantID:         tenantID,
			CollectionNumber: number,
			OrderIDs:         []string{"ORD-1", "ORD-2"},
			Method:           method,
			CollectorID:      "courier-7",
			TotalAmount:      decimal.RequireFromString("30.00"),
			CollectionDate:   at(1),
		})
		require.NoError(t, err)
		c.CreatedAt = at(1)
		c.UpdatedAt = at(1)
		return c
	}

	t.Run("lifecycle round-trips with version checks", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormPaymentCollectionRepository(db)
		tenantID := uuid.New()
		c := newCollection(t, tenantID, "COL-1", revenue.CollectionMethodDeliveryPartner)
		require.NoError(t, repo.Create(ctx, c))

		loaded, err := repo.FindByIDForUpdate(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ORD-1", "ORD-2"}, []string(loaded.OrderIDs))
		require.NoError(t, loaded.MarkCollected(at(2)))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		err = repo.SaveWithLock(ctx, loaded)
		assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))

		found, err := repo.FindByIDForTenant(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, revenue.CollectionStatusCollected, found.Status)
	})

	t.Run("filters by method and status", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		repo := NewGormPaymentCollectionRepository(db)
		tenantID := uuid.New()
		require.NoError(t, repo.Create(ctx, newCollection(t, tenantID, "COL-1", revenue.CollectionMethodCash)))
		require.NoError(t, repo.Create(ctx, newCollection(t, tenantID, "COL-2", revenue.CollectionMethodGateway)))
		require.NoError(t, repo.Create(ctx, newCollection(t, uuid.New(), "COL-3", revenue.CollectionMethodCash)))

		cash := revenue.CollectionMethodCash
		list, err := repo.FindAllForTenant(ctx, tenantID, revenue.CollectionFilter{Method: &cash})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "COL-1", list[0].CollectionNumber)

		count, err := repo.CountForTenant(ctx, tenantID, revenue.CollectionFilter{
			Statuses: []revenue.CollectionStatus{revenue.CollectionStatusPending},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestRevenueTransactionScope(t *testing.T) {
	db := setupLedgerTestDB(t)
	scope := NewRevenueTransactionScope(db)
	tenantID := uuid.New()
	repo := NewGormOrderRevenueRepository(db)
	createOrders(t, repo, newTestOrder(t, tenantID, "ORD-1", "P-1", 0, revenue.RevenueStatusSettled))

	err := scope.Execute(context.Background(), func(repos apprevenue.TransactionalRepositories) error {
		if _, err := repos.OrderRepo().MarkPaidOut(context.Background(), tenantID, []string{"ORD-1"}, uuid.New(), at(3)); err != nil {
			return err
		}
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "payout lost the race")
	})
	require.Error(t, err)

	found, err := repo.FindByOrderID(context.Background(), tenantID, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, revenue.RevenueStatusSettled, found.Status)
}
