package coverrequest

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Status of a cover design request.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSubmitted  Status = "SUBMITTED"
	StatusApproved   Status = "APPROVED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports COMPLETED and CANCELLED.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequiresDesigner lists the states in which a designer must be assigned.
func (s Status) RequiresDesigner() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusSubmitted, StatusApproved, StatusCompleted:
		return true
	}
	return false
}

// AcceptsSubmissions reports whether designs may still be uploaded against the request.
func (s Status) AcceptsSubmissions() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusSubmitted
}

// transitions is the request state machine. ASSIGNED -> ASSIGNED is a
// designer re-assignment; SUBMITTED -> IN_PROGRESS is a revision round.
var transitions = map[Status][]Status{
	StatusOpen:       {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusAssigned, StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusSubmitted, StatusCancelled},
	StatusSubmitted:  {StatusApproved, StatusInProgress, StatusCancelled},
	StatusApproved:   {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Preferred upload formats an author may ask for.
var validFormats = map[string]bool{"JPEG": true, "PNG": true, "WEBP": true, "TIFF": true}

const (
	DefaultRevisionLimit = 3
	MaxRevisionLimit     = 10
	DefaultMinFileSize   = 1 << 10
	DefaultMaxFileSize   = 10 << 20
	MaxFileSizeCeiling   = 50 << 20
)

// Request is an author's solicitation for a new cover (aggregate root).
// Budget is in cents.
type Request struct {
	ID                  uint
	BookID              uint
	AuthorID            uint
	AssignedDesignerID  *uint
	Title               string
	Description         string
	Budget              int64
	DeadlineDate        *time.Time
	Priority            shared.Priority
	Status              Status
	RevisionLimit       int
	CurrentRevisions    int
	PreferredFormats    []string
	PreferredDimensions string
	MinFileSize         int64
	MaxFileSize         int64
	ConceptBrief        string
	AuthorNotes         string
	DesignerNotes       string
	AssignedAt          *time.Time
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CreateParams carries the author-supplied fields of a new request.
type CreateParams struct {
	BookID              uint
	AuthorID            uint
	Title               string
	Description         string
	Budget              int64
	DeadlineDate        *time.Time
	Priority            string
	RevisionLimit       *int
	PreferredFormats    []string
	PreferredDimensions string
	MinFileSize         int64
	MaxFileSize         int64
	ConceptBrief        string
	AuthorNotes         string
}

// NewRequest validates p and builds an OPEN request.
func NewRequest(p CreateParams, now time.Time) (*Request, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(p.Title)
	if n := utf8.RuneCountInString(title); n < 3 || n > 200 {
		fields["title"] = "must be 3 to 200 characters"
	}
	if utf8.RuneCountInString(p.Description) > 3000 {
		fields["description"] = "must be at most 3000 characters"
	}
	if p.Budget < 0 {
		fields["budget"] = "must not be negative"
	}
	if p.DeadlineDate != nil && !p.DeadlineDate.After(now) {
		fields["deadline_date"] = "must be in the future"
	}
	priority, ok := shared.ParsePriority(p.Priority)
	if !ok {
		fields["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
	}

	limit := DefaultRevisionLimit
	if p.RevisionLimit != nil {
		limit = *p.RevisionLimit
	}
	if limit < 0 || limit > MaxRevisionLimit {
		fields["revision_limit"] = "must be between 0 and 10"
	}

	minSize, maxSize := p.MinFileSize, p.MaxFileSize
	if minSize == 0 {
		minSize = DefaultMinFileSize
	}
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	if minSize < DefaultMinFileSize || maxSize > MaxFileSizeCeiling || minSize >= maxSize {
		fields["file_size"] = "min must be at least 1KB and below max, max at most 50MB"
	}

	formats := make([]string, 0, len(p.PreferredFormats))
	for _, f := range p.PreferredFormats {
		f = strings.ToUpper(strings.TrimSpace(f))
		if !validFormats[f] {
			fields["preferred_formats"] = "allowed formats are JPEG, PNG, WEBP, TIFF"
			break
		}
		formats = append(formats, f)
	}

	if len(fields) > 0 {
		return nil, ErrInvalidRequest.WithFields(fields)
	}

	return &Request{
		BookID:              p.BookID,
		AuthorID:            p.AuthorID,
		Title:               title,
		Description:         p.Description,
		Budget:              p.Budget,
		DeadlineDate:        p.DeadlineDate,
		Priority:            priority,
		Status:              StatusOpen,
		RevisionLimit:       limit,
		PreferredFormats:    formats,
		PreferredDimensions: p.PreferredDimensions,
		MinFileSize:         minSize,
		MaxFileSize:         maxSize,
		ConceptBrief:        p.ConceptBrief,
		AuthorNotes:         p.AuthorNotes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// CanTransitionTo checks the state machine and the designer invariant.
func (r *Request) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[r.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return !target.RequiresDesigner() || r.AssignedDesignerID != nil
		}
	}
	return false
}

// TransitionTo moves to target or fails with ErrInvalidStatusTransition.
func (r *Request) TransitionTo(target Status, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	r.Status = target
	r.UpdatedAt = now
	switch target {
	case StatusCompleted:
		r.CompletedAt = &now
	case StatusCancelled:
		// a cancelled request has no designer
		r.AssignedDesignerID = nil
	}
	return nil
}

// AssignDesigner (re)assigns the designer; only from OPEN or ASSIGNED.
func (r *Request) AssignDesigner(designerID uint, now time.Time) error {
	if designerID == 0 {
		return ErrDesignerRequired
	}
	if r.Status != StatusOpen && r.Status != StatusAssigned {
		return ErrInvalidStatusTransition
	}
	r.AssignedDesignerID = &designerID
	r.AssignedAt = &now
	return r.TransitionTo(StatusAssigned, now)
}

// CanIncrementRevision reports whether another revision round fits the limit.
func (r *Request) CanIncrementRevision() bool {
	return r.CurrentRevisions < r.RevisionLimit
}

// RequestRevision sends a submitted request back to the designer.
// The persisted counter is incremented by the repository under a limit guard.
func (r *Request) RequestRevision(now time.Time) error {
	if !r.CanIncrementRevision() {
		return ErrRevisionLimitReached
	}
	return r.TransitionTo(StatusInProgress, now)
}

// MarkCompleted closes an approved request.
func (r *Request) MarkCompleted(now time.Time) error {
	return r.TransitionTo(StatusCompleted, now)
}

// Cancel is allowed from every non-terminal state.
func (r *Request) Cancel(now time.Time) error {
	return r.TransitionTo(StatusCancelled, now)
}

func (r *Request) IsAuthor(userID uint) bool {
	return r.AuthorID == userID
}

func (r *Request) IsAssignedDesigner(userID uint) bool {
	return r.AssignedDesignerID != nil && *r.AssignedDesignerID == userID
}

// DesignerID returns the assigned designer or 0.
func (r *Request) DesignerID() uint {
	if r.AssignedDesignerID == nil {
		return 0
	}
	return *r.AssignedDesignerID
}
