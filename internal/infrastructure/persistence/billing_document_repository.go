package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillingDocumentRepository implements BillingDocumentRepository using GORM
type GormBillingDocumentRepository struct {
	db *gorm.DB
}

// NewGormBillingDocumentRepository creates a new GormBillingDocumentRepository
func NewGormBillingDocumentRepository(db *gorm.DB) *GormBillingDocumentRepository {
	return &GormBillingDocumentRepository{db: db}
}

// FindByIDForTenant finds a document by ID for a specific tenant
func (r *GormBillingDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BillingDocument, error) {
	var model models.BillingDocumentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate loads the given documents in id order and locks their rows.
// Missing ids are simply absent from the result.
func (r *GormBillingDocumentRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]finance.BillingDocument, error) {
	if len(ids) == 0 {
		return []finance.BillingDocument{}, nil
	}
	var modelList []models.BillingDocumentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return documentsToDomain(modelList), nil
}

// FindAllForTenant lists documents with filtering and pagination
func (r *GormBillingDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.DocumentFilter) ([]finance.BillingDocument, error) {
	var modelList []models.BillingDocumentModel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}
	return documentsToDomain(modelList), nil
}

// CountForTenant counts documents matching the filter
func (r *GormBillingDocumentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.DocumentFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.BillingDocumentModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOpen finds sent and partial documents of a kind, oldest due first
func (r *GormBillingDocumentRepository) FindOpen(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, partyID string) ([]finance.BillingDocument, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Where("status IN ?", []finance.DocumentStatus{finance.DocumentStatusSent, finance.DocumentStatusPartial})
	if partyID != "" {
		query = query.Where("party_id = ?", partyID)
	}

	var modelList []models.BillingDocumentModel
	if err := query.Order("due_date ASC, id ASC").Find(&modelList).Error; err != nil {
		return nil, err
	}
	return documentsToDomain(modelList), nil
}

// SumOwedByParty sums total - amount_paid over the party's non-cancelled documents
func (r *GormBillingDocumentRepository) SumOwedByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.BillingDocumentModel{}).
		Select("COALESCE(SUM(total - amount_paid), 0) as total").
		Where("tenant_id = ? AND party_type = ? AND party_id = ?", tenantID, partyType, partyID).
		Where("status <> ?", finance.DocumentStatusCancelled).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Create inserts a new document
func (r *GormBillingDocumentRepository) Create(ctx context.Context, doc *finance.BillingDocument) error {
	model := models.BillingDocumentModelFromDomain(doc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "document number "+doc.DocumentNumber+" already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormBillingDocumentRepository) SaveWithLock(ctx context.Context, doc *finance.BillingDocument) error {
	model := models.BillingDocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", doc.ID, doc.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lockConflict("document")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormBillingDocumentRepository) applyFilter(query *gorm.DB, filter finance.DocumentFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return billingDocumentSort.apply(query, filter.Filter)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormBillingDocumentRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.DocumentFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("LOWER(document_number) LIKE LOWER(?) OR LOWER(party_name) LIKE LOWER(?)", searchPattern, searchPattern)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.PartyID != "" {
		query = query.Where("party_id = ?", filter.PartyID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.OverdueAt != nil {
		query = query.Where("due_date < ? AND total - amount_paid > 0", *filter.OverdueAt)
	}
	if filter.CurrentAt != nil {
		query = query.Where("(due_date >= ? OR total - amount_paid <= 0)", *filter.CurrentAt)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	return query
}

func documentsToDomain(modelList []models.BillingDocumentModel) []finance.BillingDocument {
	docs := make([]finance.BillingDocument, len(modelList))
	for i, model := range modelList {
		docs[i] = *model.ToDomain()
	}
	return docs
}
