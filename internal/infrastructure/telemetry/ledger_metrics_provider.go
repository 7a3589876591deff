package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBalanceMetricsProvider implements BalanceMetricsProvider using GORM.
// It queries the party_accounts table directly for aggregated balances.
type GormBalanceMetricsProvider struct {
	db *gorm.DB
}

// NewGormBalanceMetricsProvider creates a new GormBalanceMetricsProvider.
func NewGormBalanceMetricsProvider(db *gorm.DB) *GormBalanceMetricsProvider {
	return &GormBalanceMetricsProvider{db: db}
}

// GetOutstandingByPartyType returns the summed balances per party type for a tenant.
func (p *GormBalanceMetricsProvider) GetOutstandingByPartyType(ctx context.Context, tenantID uuid.UUID) (map[string]decimal.Decimal, error) {
	type result struct {
		PartyType string          `gorm:"column:party_type"`
		Balance   decimal.Decimal `gorm:"column:balance"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("party_accounts").
		Select("party_type, COALESCE(SUM(balance), 0) as balance").
		Where("tenant_id = ?", tenantID).
		Group("party_type").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]decimal.Decimal, len(results))
	for _, r := range results {
		m[r.PartyType] = r.Balance
	}

	return m, nil
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns every tenant that holds a party account.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("party_accounts").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error

	return ids, err
}
