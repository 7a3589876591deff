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

// GormPaymentCollectionRepository implements PaymentCollectionRepository using GORM
type GormPaymentCollectionRepository struct {
	db *gorm.DB
}

// NewGormPaymentCollectionRepository creates a new GormPaymentCollectionRepository
func NewGormPaymentCollectionRepository(db *gorm.DB) *GormPaymentCollectionRepository {
	return &GormPaymentCollectionRepository{db: db}
}

// FindByIDForTenant finds a collection by ID for a specific tenant
func (r *GormPaymentCollectionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	return r.findByID(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a collection and locks its row
func (r *GormPaymentCollectionRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormPaymentCollectionRepository) findByID(query *gorm.DB, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	var model models.PaymentCollectionModel
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists collections with filtering and pagination
func (r *GormPaymentCollectionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.CollectionFilter) ([]revenue.PaymentCollection, error) {
	var modelList []models.PaymentCollectionModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	collections := make([]revenue.PaymentCollection, len(modelList))
	for i, model := range modelList {
		collections[i] = *model.ToDomain()
	}
	return collections, nil
}

// CountForTenant counts collections matching the filter
func (r *GormPaymentCollectionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter revenue.CollectionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentCollectionModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a collection
func (r *GormPaymentCollectionRepository) Create(ctx context.Context, collection *revenue.PaymentCollection) error {
	model := models.PaymentCollectionModelFromDomain(collection)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormPaymentCollectionRepository) SaveWithLock(ctx context.Context, collection *revenue.PaymentCollection) error {
	model := models.PaymentCollectionModelFromDomain(collection)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", collection.ID, collection.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lockConflict("payment collection")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormPaymentCollectionRepository) applyFilter(query *gorm.DB, filter revenue.CollectionFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return paymentCollectionSort.apply(query, filter.Filter)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentCollectionRepository) applyFilterWithoutPagination(query *gorm.DB, filter revenue.CollectionFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("collection_number LIKE ?", "%"+filter.Search+"%")
	}
	if filter.Method != nil {
		query = query.Where("collection_method = ?", *filter.Method)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	return query
}
