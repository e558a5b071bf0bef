package isbnrequest

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Status of an ISBN request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusAcquired   Status = "ACQUIRED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusAcquired, StatusCompleted, StatusCancelled},
	StatusAcquired:   {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Format of the edition the ISBN is requested for.
type Format string

const (
	FormatHardcover Format = "HARDCOVER"
	FormatPaperback Format = "PAPERBACK"
	FormatEbook     Format = "EBOOK"
	FormatAudiobook Format = "AUDIOBOOK"
)

func (f Format) Valid() bool {
	switch f {
	case FormatHardcover, FormatPaperback, FormatEbook, FormatAudiobook:
		return true
	}
	return false
}

// Request asks a publisher or admin to obtain an ISBN for a book (aggregate root).
type Request struct {
	ID                   uint
	BookID               uint
	AuthorID             uint
	PublisherID          *uint
	Title                string
	AuthorName           string
	PublisherName        string
	Format               Format
	Priority             shared.Priority
	Status               Status
	Description          string
	PageCount            int
	Language             string
	Genre                string
	CountryOfPublication string
	PublicationDate      *time.Time
	ExpectedDeliveryDate *time.Time
	RequestNotes         string
	PublisherNotes       string
	IsbnCertificateID    *uint
	AssignedAt           *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateParams carries the author-supplied fields.
type CreateParams struct {
	BookID               uint
	AuthorID             uint
	Title                string
	AuthorName           string
	PublisherName        string
	Format               string
	Priority             string
	Description          string
	PageCount            int
	Language             string
	Genre                string
	CountryOfPublication string
	PublicationDate      *time.Time
	ExpectedDeliveryDate *time.Time
	RequestNotes         string
}

// NewRequest validates p and builds a PENDING request.
func NewRequest(p CreateParams, now time.Time) (*Request, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(p.Title)
	if title == "" || utf8.RuneCountInString(title) > 500 {
		fields["title"] = "is required and at most 500 characters"
	}
	authorName := strings.TrimSpace(p.AuthorName)
	if authorName == "" || utf8.RuneCountInString(authorName) > 255 {
		fields["author_name"] = "is required and at most 255 characters"
	}
	format := Format(strings.ToUpper(strings.TrimSpace(p.Format)))
	if !format.Valid() {
		fields["format"] = "must be one of HARDCOVER, PAPERBACK, EBOOK, AUDIOBOOK"
	}
	priority, ok := shared.ParsePriority(p.Priority)
	if !ok {
		fields["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
	}
	if p.PageCount < 0 {
		fields["page_count"] = "must not be negative"
	}
	if p.ExpectedDeliveryDate != nil && !p.ExpectedDeliveryDate.After(now) {
		fields["expected_delivery_date"] = "must be in the future"
	}
	if len(fields) > 0 {
		return nil, ErrInvalidRequest.WithFields(fields)
	}

	return &Request{
		BookID:               p.BookID,
		AuthorID:             p.AuthorID,
		Title:                title,
		AuthorName:           authorName,
		PublisherName:        strings.TrimSpace(p.PublisherName),
		Format:               format,
		Priority:             priority,
		Status:               StatusPending,
		Description:          p.Description,
		PageCount:            p.PageCount,
		Language:             p.Language,
		Genre:                p.Genre,
		CountryOfPublication: strings.ToUpper(strings.TrimSpace(p.CountryOfPublication)),
		PublicationDate:      p.PublicationDate,
		ExpectedDeliveryDate: p.ExpectedDeliveryDate,
		RequestNotes:         p.RequestNotes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (r *Request) CanTransitionTo(target Status) bool {
	for _, s := range transitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (r *Request) TransitionTo(target Status, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	r.Status = target
	r.UpdatedAt = now
	return nil
}

// CanBeAssigned is true only while PENDING.
func (r *Request) CanBeAssigned() bool {
	return r.Status == StatusPending
}

// CanBeCompleted is true in IN_PROGRESS and ACQUIRED.
func (r *Request) CanBeCompleted() bool {
	return r.Status == StatusInProgress || r.Status == StatusAcquired
}

// AssignPublisher moves PENDING to ASSIGNED.
func (r *Request) AssignPublisher(publisherID uint, notes string, now time.Time) error {
	if publisherID == 0 {
		return ErrPublisherRequired
	}
	if !r.CanBeAssigned() {
		return ErrInvalidStatusTransition
	}
	if err := r.TransitionTo(StatusAssigned, now); err != nil {
		return err
	}
	r.PublisherID = &publisherID
	r.AssignedAt = &now
	if notes != "" {
		r.PublisherNotes = notes
	}
	return nil
}

func (r *Request) StartProgress(now time.Time) error {
	return r.TransitionTo(StatusInProgress, now)
}

func (r *Request) MarkAcquired(now time.Time) error {
	return r.TransitionTo(StatusAcquired, now)
}

// Complete links the fulfilling certificate.
func (r *Request) Complete(certificateID uint, now time.Time) error {
	if certificateID == 0 {
		return ErrCertificateRequired
	}
	if !r.CanBeCompleted() {
		return ErrInvalidStatusTransition
	}
	if err := r.TransitionTo(StatusCompleted, now); err != nil {
		return err
	}
	r.IsbnCertificateID = &certificateID
	r.CompletedAt = &now
	return nil
}

func (r *Request) Cancel(now time.Time) error {
	return r.TransitionTo(StatusCancelled, now)
}

func (r *Request) IsAuthor(userID uint) bool {
	return r.AuthorID == userID
}

// PublisherIDOrZero returns the assigned publisher or 0.
func (r *Request) PublisherIDOrZero() uint {
	if r.PublisherID == nil {
		return 0
	}
	return *r.PublisherID
}
