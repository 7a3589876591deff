package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPayoutRepository implements PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByIDForTenant finds a payout by ID for a specific tenant
func (r *GormPayoutRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*revenue.Payout, error) {
	return r.findByID(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a payout and locks its row
func (r *GormPayoutRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*revenue.Payout, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormPayoutRepository) findByID(query *gorm.DB, tenantID, id uuid.UUID) (*revenue.Payout, error) {
	var model models.PayoutModel
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists payouts with filtering and pagination
func (r *GormPayoutRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.PayoutFilter) ([]revenue.Payout, error) {
	var modelList []models.PayoutModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	payouts := make([]revenue.Payout, len(modelList))
	for i, model := range modelList {
		payouts[i] = *model.ToDomain()
	}
	return payouts, nil
}

// CountForTenant counts payouts matching the filter
func (r *GormPayoutRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.PayoutFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PayoutModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a payout. The partial unique index on partner and period
// turns a concurrent duplicate into CONCURRENCY_CONFLICT.
func (r *GormPayoutRepository) Create(ctx context.Context, payout *revenue.Payout) error {
	model := models.PayoutModelFromDomain(payout)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeConcurrencyConflict,
				"a payout for partner "+payout.PartnerID+" and this period already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormPayoutRepository) SaveWithLock(ctx context.Context, payout *revenue.Payout) error {
	model := models.PayoutModelFromDomain(payout)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", payout.ID, payout.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lockConflict("payout")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormPayoutRepository) applyFilter(query *gorm.DB, filter revenue.PayoutFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return payoutSort.apply(query, filter.Filter)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPayoutRepository) applyFilterWithoutPagination(query *gorm.DB, filter revenue.PayoutFilter) *gorm.DB {
	if filter.PartnerID != "" {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.PeriodStart != nil {
		query = query.Where("period_start = ?", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		query = query.Where("period_end = ?", *filter.PeriodEnd)
	}
	if filter.Overlapping != nil {
		query = query.Where("period_start <= ? AND period_end >= ?", filter.Overlapping.End, filter.Overlapping.Start)
	}
	return query
}
