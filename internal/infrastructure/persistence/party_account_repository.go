package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPartyAccountRepository implements PartyAccountRepository using GORM
type GormPartyAccountRepository struct {
	db *gorm.DB
}

// NewGormPartyAccountRepository creates a new GormPartyAccountRepository
func NewGormPartyAccountRepository(db *gorm.DB) *GormPartyAccountRepository {
	return &GormPartyAccountRepository{db: db}
}

// FindByParty finds the account of a party
func (r *GormPartyAccountRepository) FindByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*finance.PartyAccount, error) {
	return r.findByParty(r.db.WithContext(ctx), tenantID, partyType, partyID)
}

// FindByPartyForUpdate finds the account and holds a row lock until the transaction ends
func (r *GormPartyAccountRepository) FindByPartyForUpdate(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*finance.PartyAccount, error) {
	return r.findByParty(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, partyType, partyID)
}

func (r *GormPartyAccountRepository) findByParty(query *gorm.DB, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*finance.PartyAccount, error) {
	var model models.PartyAccountModel
	if err := query.
		Where("tenant_id = ? AND party_type = ? AND party_id = ?", tenantID, partyType, partyID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists accounts ordered by party, optionally for one party type
func (r *GormPartyAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, partyType *finance.PartyType) ([]finance.PartyAccount, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if partyType != nil {
		query = query.Where("party_type = ?", *partyType)
	}

	var modelList []models.PartyAccountModel
	if err := query.Order("party_type ASC, party_id ASC").Find(&modelList).Error; err != nil {
		return nil, err
	}

	accounts := make([]finance.PartyAccount, len(modelList))
	for i, model := range modelList {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// CreateIfAbsent inserts the account; an existing row for the party is left untouched
func (r *GormPartyAccountRepository) CreateIfAbsent(ctx context.Context, account *finance.PartyAccount) error {
	model := models.PartyAccountModelFromDomain(account)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormPartyAccountRepository) SaveWithLock(ctx context.Context, account *finance.PartyAccount) error {
	model := models.PartyAccountModelFromDomain(account)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lockConflict("party account")
	}
	return nil
}
