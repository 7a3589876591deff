package persistence

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRevenueRepository implements OrderRevenueRepository using GORM
type GormOrderRevenueRepository struct {
	db *gorm.DB
}

// NewGormOrderRevenueRepository creates a new GormOrderRevenueRepository
func NewGormOrderRevenueRepository(db *gorm.DB) *GormOrderRevenueRepository {
	return &GormOrderRevenueRepository{db: db}
}

// FindByOrderID finds the revenue record of an order
func (r *GormOrderRevenueRepository) FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*revenue.OrderRevenue, error) {
	var model models.OrderRevenueModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByOrderIDsForUpdate loads the given orders ordered by order id and locks their rows
func (r *GormOrderRevenueRepository) FindByOrderIDsForUpdate(ctx context.Context, tenantID uuid.UUID, orderIDs []string) ([]revenue.OrderRevenue, error) {
	if len(orderIDs) == 0 {
		return []revenue.OrderRevenue{}, nil
	}
	var modelList []models.OrderRevenueModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND order_id IN ?", tenantID, orderIDs).
		Order("order_id ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(modelList), nil
}

// FindAllForTenant lists records with filtering and pagination
func (r *GormOrderRevenueRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.OrderRevenueFilter) ([]revenue.OrderRevenue, error) {
	var modelList []models.OrderRevenueModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(modelList), nil
}

// CountForTenant counts records matching the filter
func (r *GormOrderRevenueRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.OrderRevenueFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.OrderRevenueModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindPayablePartners lists partners with received or settled revenue created in the period
func (r *GormOrderRevenueRepository) FindPayablePartners(ctx context.Context, tenantID uuid.UUID, period revenue.Period) ([]string, error) {
	var partners []string
	err := r.payableQuery(r.db.WithContext(ctx), tenantID, period).
		Model(&models.OrderRevenueModel{}).
		Distinct("partner_id").
		Order("partner_id ASC").
		Pluck("partner_id", &partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

// FindPayable lists a partner's received or settled revenue created in the period
func (r *GormOrderRevenueRepository) FindPayable(ctx context.Context, tenantID uuid.UUID, partnerID string, period revenue.Period) ([]revenue.OrderRevenue, error) {
	return r.findPayable(r.db.WithContext(ctx), tenantID, partnerID, period)
}

// FindPayableForUpdate is FindPayable with the rows locked until the transaction ends
func (r *GormOrderRevenueRepository) FindPayableForUpdate(ctx context.Context, tenantID uuid.UUID, partnerID string, period revenue.Period) ([]revenue.OrderRevenue, error) {
	return r.findPayable(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, partnerID, period)
}

func (r *GormOrderRevenueRepository) findPayable(query *gorm.DB, tenantID uuid.UUID, partnerID string, period revenue.Period) ([]revenue.OrderRevenue, error) {
	var modelList []models.OrderRevenueModel
	if err := r.payableQuery(query, tenantID, period).
		Where("partner_id = ?", partnerID).
		Order("created_at ASC, order_id ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(modelList), nil
}

func (r *GormOrderRevenueRepository) payableQuery(query *gorm.DB, tenantID uuid.UUID, period revenue.Period) *gorm.DB {
	return query.
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", revenue.PayableStatuses()).
		Where("created_at >= ? AND created_at <= ?", period.Start, period.End)
}

// MarkPaidOut moves the given payable orders to paid_out in one guarded update
func (r *GormOrderRevenueRepository) MarkPaidOut(ctx context.Context, tenantID uuid.UUID, orderIDs []string, payoutID uuid.UUID, at time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderRevenueModel{}).
		Where("tenant_id = ? AND order_id IN ?", tenantID, orderIDs).
		Where("status IN ?", revenue.PayableStatuses()).
		Updates(map[string]any{
			"status":     revenue.RevenueStatusPaidOut,
			"payout_id":  payoutID,
			"updated_at": at,
			"version":    gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// ReleaseFromPayout moves a failed payout's orders back to settled
func (r *GormOrderRevenueRepository) ReleaseFromPayout(ctx context.Context, tenantID, payoutID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderRevenueModel{}).
		Where("tenant_id = ? AND payout_id = ? AND status = ?", tenantID, payoutID, revenue.RevenueStatusPaidOut).
		Updates(map[string]any{
			"status":     revenue.RevenueStatusSettled,
			"payout_id":  nil,
			"updated_at": at,
			"version":    gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Create inserts a record; a duplicate order yields ALREADY_EXISTS
func (r *GormOrderRevenueRepository) Create(ctx context.Context, record *revenue.OrderRevenue) error {
	model := models.OrderRevenueModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "revenue for order "+record.OrderID+" already recorded")
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormOrderRevenueRepository) SaveWithLock(ctx context.Context, record *revenue.OrderRevenue) error {
	model := models.OrderRevenueModelFromDomain(record)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lockConflict("order revenue")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormOrderRevenueRepository) applyFilter(query *gorm.DB, filter revenue.OrderRevenueFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return orderRevenueSort.apply(query, filter.Filter)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormOrderRevenueRepository) applyFilterWithoutPagination(query *gorm.DB, filter revenue.OrderRevenueFilter) *gorm.DB {
	if filter.PartnerID != "" {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.PayoutID != nil {
		query = query.Where("payout_id = ?", *filter.PayoutID)
	}
	return query
}

func ordersToDomain(modelList []models.OrderRevenueModel) []revenue.OrderRevenue {
	records := make([]revenue.OrderRevenue, len(modelList))
	for i, model := range modelList {
		records[i] = *model.ToDomain()
	}
	return records
}
