package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantAggregateModel holds the columns every ledger table shares: id,
// timestamps, the optimistic-lock version and the owning tenant.
type TenantAggregateModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Version   int        `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// FromDomainTenantAggregateRoot copies the shared columns from an aggregate
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.Version = t.Version
	m.CreatedBy = t.CreatedBy
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// PopulateTenantAggregateRoot copies the shared columns into an aggregate.
// Pending domain events are never stored, so a loaded aggregate has none.
func (m *TenantAggregateModel) PopulateTenantAggregateRoot(t *shared.TenantAggregateRoot) {
	t.ID = m.ID
	t.TenantID = m.TenantID
	t.Version = m.Version
	t.CreatedBy = m.CreatedBy
	t.CreatedAt = m.CreatedAt
	t.UpdatedAt = m.UpdatedAt
	t.ClearDomainEvents()
}
