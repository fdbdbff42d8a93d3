package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(eventType string) DomainEvent {
	e := NewBaseDomainEvent(eventType, "Application", uuid.New(), "reviewer-1")
	return &e
}

func TestNewBaseAggregateRoot(t *testing.T) {
	a := NewBaseAggregateRoot()
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.Empty(t, a.Events())

	at := a.CreatedAt.Add(time.Minute)
	a.Touch(at)
	assert.Equal(t, at, a.UpdatedAt)
}

func TestBaseAggregateRoot_VersionMatches(t *testing.T) {
	a := NewBaseAggregateRoot()
	a.IncrementVersion()

	assert.True(t, a.VersionMatches(0), "zero skips the check")
	assert.True(t, a.VersionMatches(2))
	assert.False(t, a.VersionMatches(1))
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	a := NewBaseAggregateRoot()
	a.Record(newEvent("ApplicationApproved"))

	mark := a.EventMark()
	a.Record(newEvent("StudentProvisioned"))
	require.Len(t, a.Events(), 2)

	a.RewindEvents(mark)
	require.Len(t, a.Events(), 1)
	assert.Equal(t, "ApplicationApproved", a.Events()[0].EventType())

	a.RewindEvents(5)
	assert.Len(t, a.Events(), 1)

	pulled := a.PullEvents()
	assert.Len(t, pulled, 1)
	assert.Empty(t, a.Events())

	a.Record(newEvent("ApplicationRejected"))
	a.ClearEvents()
	assert.Empty(t, a.Events())
}
