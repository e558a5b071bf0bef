package coverrequest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newOpenRequest(t *testing.T) *Request {
	t.Helper()
	r, err := NewRequest(CreateParams{BookID: 1, AuthorID: 10, Title: "Space Opera Cover", Priority: "HIGH"}, now)
	require.NoError(t, err)
	return r
}

func ptr[T any](v T) *T { return &v }

func TestNewRequest_Defaults(t *testing.T) {
	r := newOpenRequest(t)

	assert.Equal(t, StatusOpen, r.Status)
	assert.Equal(t, shared.PriorityHigh, r.Priority)
	assert.Equal(t, DefaultRevisionLimit, r.RevisionLimit)
	assert.Equal(t, 0, r.CurrentRevisions)
	assert.Equal(t, int64(DefaultMinFileSize), r.MinFileSize)
	assert.Equal(t, int64(DefaultMaxFileSize), r.MaxFileSize)
	assert.Nil(t, r.AssignedDesignerID)
}

func TestNewRequest_Validation(t *testing.T) {
	past := now.Add(-time.Hour)

	tests := []struct {
		name  string
		p     CreateParams
		field string
	}{
		{"short title", CreateParams{Title: "ab"}, "title"},
		{"past deadline", CreateParams{Title: "Cover", DeadlineDate: &past}, "deadline_date"},
		{"deadline now", CreateParams{Title: "Cover", DeadlineDate: &now}, "deadline_date"},
		{"negative budget", CreateParams{Title: "Cover", Budget: -1}, "budget"},
		{"bad priority", CreateParams{Title: "Cover", Priority: "ASAP"}, "priority"},
		{"revision limit", CreateParams{Title: "Cover", RevisionLimit: ptr(11)}, "revision_limit"},
		{"inverted sizes", CreateParams{Title: "Cover", MinFileSize: 5 << 20, MaxFileSize: 2 << 20}, "file_size"},
		{"format", CreateParams{Title: "Cover", PreferredFormats: []string{"png", "gif"}}, "preferred_formats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.p, now)
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			assert.Equal(t, apperrors.ErrCodeInvalidParams, appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestRequest_Lifecycle(t *testing.T) {
	r := newOpenRequest(t)

	// a designer is required before ASSIGNED
	assert.False(t, r.CanTransitionTo(StatusAssigned))

	require.NoError(t, r.AssignDesigner(42, now))
	assert.Equal(t, StatusAssigned, r.Status)
	assert.Equal(t, uint(42), r.DesignerID())
	require.NotNil(t, r.AssignedAt)

	// re-assignment stays ASSIGNED
	require.NoError(t, r.AssignDesigner(43, now))
	assert.Equal(t, uint(43), r.DesignerID())

	require.NoError(t, r.TransitionTo(StatusInProgress, now))
	assert.ErrorIs(t, r.AssignDesigner(44, now), ErrInvalidStatusTransition)

	require.NoError(t, r.TransitionTo(StatusSubmitted, now))
	assert.ErrorIs(t, r.MarkCompleted(now), ErrInvalidStatusTransition)

	require.NoError(t, r.TransitionTo(StatusApproved, now))
	require.NoError(t, r.MarkCompleted(now))
	assert.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)

	assert.ErrorIs(t, r.Cancel(now), ErrInvalidStatusTransition)
}

func TestRequest_CancelFromOpen(t *testing.T) {
	r := newOpenRequest(t)
	require.NoError(t, r.Cancel(now))
	assert.True(t, r.Status.IsTerminal())
}

func TestRequest_CancelReleasesDesigner(t *testing.T) {
	r := newOpenRequest(t)
	require.NoError(t, r.AssignDesigner(42, now))
	require.NoError(t, r.TransitionTo(StatusInProgress, now))

	require.NoError(t, r.Cancel(now))
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Nil(t, r.AssignedDesignerID)
	assert.False(t, r.IsAssignedDesigner(42))
}

func TestRequest_RevisionLimit(t *testing.T) {
	r := newOpenRequest(t)
	require.NoError(t, r.AssignDesigner(42, now))
	require.NoError(t, r.TransitionTo(StatusInProgress, now))
	require.NoError(t, r.TransitionTo(StatusSubmitted, now))

	r.RevisionLimit = 3
	r.CurrentRevisions = 3

	err := r.RequestRevision(now)
	assert.ErrorIs(t, err, ErrRevisionLimitReached)
	assert.Equal(t, 3, r.CurrentRevisions)
	assert.Equal(t, StatusSubmitted, r.Status)

	r.CurrentRevisions = 2
	require.NoError(t, r.RequestRevision(now))
	assert.Equal(t, StatusInProgress, r.Status)
}

func TestAllowedFields(t *testing.T) {
	r := newOpenRequest(t)
	require.NoError(t, r.AssignDesigner(42, now))

	fields, err := AllowedFields(r, identity.Actor{ID: 1, Role: identity.RolePublisher})
	require.NoError(t, err)
	assert.True(t, fields[FieldStatus])
	assert.True(t, fields[FieldPriority])

	fields, err = AllowedFields(r, identity.Actor{ID: 10, Role: identity.RoleAuthor})
	require.NoError(t, err)
	assert.True(t, fields[FieldBudget])
	assert.False(t, fields[FieldStatus])
	assert.False(t, fields[FieldDesignerNotes])

	fields, err = AllowedFields(r, identity.Actor{ID: 42, Role: identity.RoleDesigner})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{FieldDesignerNotes: true, FieldStatus: true}, fields)

	_, err = AllowedFields(r, identity.Actor{ID: 99, Role: identity.RoleEditor})
	assert.ErrorIs(t, err, ErrNotAllowedToUpdate)
}

func TestApply_DesignerFieldsDropped(t *testing.T) {
	r := newOpenRequest(t)
	require.NoError(t, r.AssignDesigner(42, now))

	fields, err := AllowedFields(r, identity.Actor{ID: 42, Role: identity.RoleDesigner})
	require.NoError(t, err)

	patch := Patch{Title: ptr("Hijacked title"), Budget: ptr(int64(1))}.Filter(fields)
	assert.True(t, patch.IsEmpty())
	assert.ErrorIs(t, r.Apply(patch, now), apperrors.ErrNoValidFields)

	patch = Patch{Status: ptr("in_progress"), DesignerNotes: ptr("first sketch tonight")}.Filter(fields)
	require.NoError(t, r.Apply(patch, now))
	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, "first sketch tonight", r.DesignerNotes)
	assert.Equal(t, "Space Opera Cover", r.Title)
}

func TestApply_StatusMustFollowStateMachine(t *testing.T) {
	r := newOpenRequest(t)

	err := r.Apply(Patch{Status: ptr("COMPLETED")}, now)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	err = r.Apply(Patch{Status: ptr("ASSIGNED")}, now)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "no designer assigned yet")

	err = r.Apply(Patch{Status: ptr("DONE")}, now)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, apperrors.GetAppError(err).Code)
}

func TestApply_ManagerFields(t *testing.T) {
	r := newOpenRequest(t)
	deadline := now.Add(72 * time.Hour)

	err := r.Apply(Patch{
		Title:        ptr("  Space Opera Cover v2 "),
		Priority:     ptr("urgent"),
		DeadlineDate: &deadline,
		Budget:       ptr(int64(50000)),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "Space Opera Cover v2", r.Title)
	assert.Equal(t, shared.PriorityUrgent, r.Priority)
	assert.Equal(t, deadline, *r.DeadlineDate)
	assert.Equal(t, int64(50000), r.Budget)
}
