package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// Payments are insert-only.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID for a specific tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds the payment recorded under a client key
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByParty lists payments of a party, newest first
func (r *GormPaymentRepository) FindByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) ([]finance.Payment, error) {
	var modelList []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND party_type = ? AND party_id = ?", tenantID, partyType, partyID).
		Order("payment_date DESC, created_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	payments := make([]finance.Payment, len(modelList))
	for i, model := range modelList {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// ClaimIdempotencyKey takes a transaction-scoped advisory lock on the key.
// SQLite serializes writers on its own, so the claim is a no-op there.
func (r *GormPaymentRepository) ClaimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", tenantID.String()+"/"+key).Error
}

// Create inserts a payment; a reused idempotency key yields ALREADY_EXISTS
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}
