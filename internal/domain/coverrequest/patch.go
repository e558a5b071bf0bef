package coverrequest

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// Patch is a partial update; nil fields are absent.
type Patch struct {
	Title         *string
	Description   *string
	Priority      *string
	Status        *string
	DeadlineDate  *time.Time
	Budget        *int64
	AuthorNotes   *string
	DesignerNotes *string
}

// Field names, as they appear on the wire.
const (
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldPriority      = "priority"
	FieldStatus        = "status"
	FieldDeadlineDate  = "deadline_date"
	FieldBudget        = "budget"
	FieldAuthorNotes   = "author_notes"
	FieldDesignerNotes = "designer_notes"
)

var (
	managerFields  = fieldSet(FieldTitle, FieldDescription, FieldPriority, FieldStatus, FieldDeadlineDate, FieldBudget, FieldAuthorNotes, FieldDesignerNotes)
	authorFields   = fieldSet(FieldTitle, FieldDescription, FieldAuthorNotes, FieldDeadlineDate, FieldBudget)
	designerFields = fieldSet(FieldDesignerNotes, FieldStatus)
)

func fieldSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// AllowedFields picks the update allow-list for actor on r:
// ADMIN/PUBLISHER, then the author, then the assigned designer.
func AllowedFields(r *Request, actor identity.Actor) (map[string]bool, error) {
	switch {
	case actor.HasRole(identity.RoleAdmin, identity.RolePublisher):
		return managerFields, nil
	case r.IsAuthor(actor.ID):
		return authorFields, nil
	case r.IsAssignedDesigner(actor.ID):
		return designerFields, nil
	}
	return nil, ErrNotAllowedToUpdate
}

// Filter drops every field not in allowed.
func (p Patch) Filter(allowed map[string]bool) Patch {
	var out Patch
	if allowed[FieldTitle] {
		out.Title = p.Title
	}
	if allowed[FieldDescription] {
		out.Description = p.Description
	}
	if allowed[FieldPriority] {
		out.Priority = p.Priority
	}
	if allowed[FieldStatus] {
		out.Status = p.Status
	}
	if allowed[FieldDeadlineDate] {
		out.DeadlineDate = p.DeadlineDate
	}
	if allowed[FieldBudget] {
		out.Budget = p.Budget
	}
	if allowed[FieldAuthorNotes] {
		out.AuthorNotes = p.AuthorNotes
	}
	if allowed[FieldDesignerNotes] {
		out.DesignerNotes = p.DesignerNotes
	}
	return out
}

// IsEmpty reports a patch without any field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil &&
		p.DeadlineDate == nil && p.Budget == nil && p.AuthorNotes == nil && p.DesignerNotes == nil
}

// Apply validates and writes the patch onto r. A status change must follow
// the state machine.
func (r *Request) Apply(p Patch, now time.Time) error {
	if p.IsEmpty() {
		return apperrors.ErrNoValidFields
	}

	fields := map[string]string{}
	if p.Title != nil {
		if n := utf8.RuneCountInString(strings.TrimSpace(*p.Title)); n < 3 || n > 200 {
			fields[FieldTitle] = "must be 3 to 200 characters"
		}
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > 3000 {
		fields[FieldDescription] = "must be at most 3000 characters"
	}
	var priority shared.Priority
	if p.Priority != nil {
		var ok bool
		if priority, ok = shared.ParsePriority(*p.Priority); !ok {
			fields[FieldPriority] = "must be one of LOW, MEDIUM, HIGH, URGENT"
		}
	}
	if p.DeadlineDate != nil && !p.DeadlineDate.After(now) {
		fields[FieldDeadlineDate] = "must be in the future"
	}
	if p.Budget != nil && *p.Budget < 0 {
		fields[FieldBudget] = "must not be negative"
	}
	var status Status
	if p.Status != nil {
		status = Status(strings.ToUpper(strings.TrimSpace(*p.Status)))
		if !status.Valid() {
			fields[FieldStatus] = "unknown status"
		}
	}
	if len(fields) > 0 {
		return ErrInvalidRequest.WithFields(fields)
	}

	if p.Status != nil && status != r.Status {
		if err := r.TransitionTo(status, now); err != nil {
			return err
		}
	}
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Priority != nil {
		r.Priority = priority
	}
	if p.DeadlineDate != nil {
		r.DeadlineDate = p.DeadlineDate
	}
	if p.Budget != nil {
		r.Budget = *p.Budget
	}
	if p.AuthorNotes != nil {
		r.AuthorNotes = *p.AuthorNotes
	}
	if p.DesignerNotes != nil {
		r.DesignerNotes = *p.DesignerNotes
	}
	r.UpdatedAt = now
	return nil
}
