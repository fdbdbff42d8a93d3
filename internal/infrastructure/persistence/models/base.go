package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// BaseModel holds the identity and audit columns shared by enrollment tables.
// GORM refreshes UpdatedAt on every write.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entity returns the domain identity carried by the row
func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// SetEntity copies a domain identity onto the row
func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic lock column. Writes match on the version
// read with the row and bump it.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// Aggregate returns the domain root for the row, with no pending events
func (m *AggregateModel) Aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version}
}

// SetAggregate copies a domain root onto the row
func (m *AggregateModel) SetAggregate(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}
