package enrollment

import (
	"context"
	"testing"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedTransition struct {
	eventType  string
	overridden bool
}

type fakeRecorder struct {
	transitions   []recordedTransition
	resubmissions map[string]int
}

func (r *fakeRecorder) RecordTransition(_ context.Context, eventType string, overridden bool) {
	r.transitions = append(r.transitions, recordedTransition{eventType, overridden})
}

func (r *fakeRecorder) RecordResubmission(_ context.Context, documentType string, count int) {
	if r.resubmissions == nil {
		r.resubmissions = map[string]int{}
	}
	r.resubmissions[documentType] = count
}

func TestAuditLogHandler_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	ctx := context.Background()

	app := newTestApplication(enrollment.StatusUnderReview)
	require.NoError(t, app.Reject("reviewer-7", "Incomplete requirements"))
	for _, e := range app.Events() {
		require.NoError(t, h.Handle(ctx, e))
	}

	entries := logs.FilterMessage("enrollment event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, enrollment.EventTypeApplicationRejected, fields["event_type"])
	assert.Equal(t, "Incomplete requirements", fields["reason"])
	assert.Equal(t, "UNDER_REVIEW", fields["previous_status"])
	assert.Equal(t, "reviewer-7", fields["actor"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}

func TestAuditLogHandler_OverrideIsAudited(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))

	app := newTestApplication(enrollment.StatusUnderReview)
	override, err := enrollment.NewOverride("registrar", "originals sighted")
	require.NoError(t, err)
	require.NoError(t, app.MarkVerified("reviewer-1", []string{"GOOD_MORAL"}, override))
	for _, e := range app.Events() {
		require.NoError(t, h.Handle(context.Background(), e))
	}

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, true, fields["overridden"])
	assert.Equal(t, "originals sighted", fields["justification"])
	assert.Equal(t, []interface{}{"GOOD_MORAL"}, fields["outstanding"])
}

func TestMetricsHandler_Handle(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewMetricsHandler(rec)
	ctx := context.Background()

	app := newTestApplication(enrollment.StatusVerified)
	override, err := enrollment.NewOverride("principal", "scholarship")
	require.NoError(t, err)
	require.NoError(t, app.Approve("reviewer-1", "", override))

	doc := newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusRejected)
	next, err := doc.Supersede("uploads/report-v2.pdf")
	require.NoError(t, err)

	events := append(app.Events(),
		enrollment.NewDocumentSupersededEvent(enrollment.EventTypeDocumentResubmitted, doc, next, ""))
	for _, e := range events {
		require.NoError(t, h.Handle(ctx, e))
	}

	require.Len(t, rec.transitions, 2)
	assert.Equal(t, recordedTransition{enrollment.EventTypeApplicationApproved, true}, rec.transitions[0])
	assert.Equal(t, enrollment.EventTypeDocumentResubmitted, rec.transitions[1].eventType)
	assert.Equal(t, 1, rec.resubmissions["REPORT_CARD"])
	assert.ElementsMatch(t, AllEventTypes, h.EventTypes())
}
