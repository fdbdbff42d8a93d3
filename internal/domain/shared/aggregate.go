package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps of an entity
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a base entity with a fresh ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a mutation at the given instant
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at
}

// BaseAggregateRoot is an entity with an optimistic lock counter and the
// events raised since it was loaded.
//
// Version is the value read from storage. Repositories bump it after a
// write that matched it.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot creates an aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// VersionMatches reports whether a caller supplied version is current.
// Zero means the caller did not supply one.
func (a *BaseAggregateRoot) VersionMatches(expected int) bool {
	return expected == 0 || expected == a.Version
}

// IncrementVersion is called by repositories after a successful write
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// Record queues an event for publication once the aggregate is saved
func (a *BaseAggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// Events returns the queued events without clearing them
func (a *BaseAggregateRoot) Events() []DomainEvent {
	return a.pending
}

// PullEvents returns the queued events and clears the queue
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

// EventMark returns a position that RewindEvents can return to
func (a *BaseAggregateRoot) EventMark() int {
	return len(a.pending)
}

// RewindEvents drops events recorded after mark, used when a save fails
// after the aggregate has already been mutated
func (a *BaseAggregateRoot) RewindEvents(mark int) {
	if mark >= 0 && mark < len(a.pending) {
		a.pending = a.pending[:mark]
	}
}

// ClearEvents drops every queued event
func (a *BaseAggregateRoot) ClearEvents() {
	a.pending = nil
}
