package dto

import (
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
)

// CreateIsbnRequestRequest is the body of POST /books/:bookId/isbn-requests.
type CreateIsbnRequestRequest struct {
	Title                string `json:"title" binding:"required,max=500" example:"The Long Night"`
	AuthorName           string `json:"author_name" binding:"required,max=255" example:"A. Writer"`
	PublisherName        string `json:"publisher_name" binding:"max=255"`
	Format               string `json:"format" binding:"required" example:"PAPERBACK"`
	Priority             string `json:"priority" example:"MEDIUM"`
	Description          string `json:"description"`
	PageCount            int    `json:"page_count" binding:"min=0" example:"320"`
	Language             string `json:"language" binding:"max=50" example:"en"`
	Genre                string `json:"genre" binding:"max=100" example:"thriller"`
	CountryOfPublication string `json:"country_of_publication" binding:"max=3" example:"US"`
	PublicationDate      string `json:"publication_date" example:"2026-11-01"`
	ExpectedDeliveryDate string `json:"expected_delivery_date" example:"2026-10-20"`
	RequestNotes         string `json:"request_notes"`
}

// ToParams parses the dates into domain create parameters.
func (r CreateIsbnRequestRequest) ToParams() (isbnrequest.CreateParams, error) {
	p := isbnrequest.CreateParams{
		Title:                r.Title,
		AuthorName:           r.AuthorName,
		PublisherName:        r.PublisherName,
		Format:               r.Format,
		Priority:             r.Priority,
		Description:          r.Description,
		PageCount:            r.PageCount,
		Language:             r.Language,
		Genre:                r.Genre,
		CountryOfPublication: r.CountryOfPublication,
		RequestNotes:         r.RequestNotes,
	}
	dates, err := ParseDates(map[string]string{
		"publication_date":       r.PublicationDate,
		"expected_delivery_date": r.ExpectedDeliveryDate,
	})
	if err != nil {
		return p, err
	}
	p.PublicationDate = dates["publication_date"]
	p.ExpectedDeliveryDate = dates["expected_delivery_date"]
	return p, nil
}

type AssignPublisherRequest struct {
	PublisherID uint   `json:"publisher_id" binding:"required,gt=0" example:"2"`
	Notes       string `json:"notes"`
}

type CompleteIsbnRequestRequest struct {
	CertificateID uint `json:"isbn_certificate_id" binding:"required,gt=0" example:"4"`
}

// IsbnRequestView is the public view.
type IsbnRequestView struct {
	ID                   uint    `json:"id" example:"9"`
	BookID               uint    `json:"book_id" example:"12"`
	Title                string  `json:"title"`
	AuthorName           string  `json:"author_name"`
	PublisherName        string  `json:"publisher_name,omitempty"`
	Format               string  `json:"format" example:"PAPERBACK"`
	PublicationDate      *string `json:"publication_date,omitempty"`
	CountryOfPublication string  `json:"country_of_publication,omitempty"`
	Language             string  `json:"language,omitempty"`
	Genre                string  `json:"genre,omitempty"`
	Priority             string  `json:"priority" example:"MEDIUM"`
	Status               string  `json:"status" example:"PENDING"`
	ExpectedDeliveryDate *string `json:"expected_delivery_date,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// IsbnRequestDetailView adds the parties, notes and fulfilment data.
type IsbnRequestDetailView struct {
	IsbnRequestView
	AuthorID          uint    `json:"author_id"`
	PublisherID       *uint   `json:"publisher_id,omitempty"`
	Description       string  `json:"description,omitempty"`
	PageCount         int     `json:"page_count,omitempty"`
	RequestNotes      string  `json:"request_notes,omitempty"`
	PublisherNotes    string  `json:"publisher_notes,omitempty"`
	IsbnCertificateID *uint   `json:"isbn_certificate_id,omitempty"`
	AssignedAt        *string `json:"assigned_at,omitempty"`
	CompletedAt       *string `json:"completed_at,omitempty"`
	UpdatedAt         string  `json:"updated_at"`
}

func NewIsbnRequestView(r *isbnrequest.Request) *IsbnRequestView {
	return &IsbnRequestView{
		ID:                   r.ID,
		BookID:               r.BookID,
		Title:                r.Title,
		AuthorName:           r.AuthorName,
		PublisherName:        r.PublisherName,
		Format:               string(r.Format),
		PublicationDate:      formatTimePtr(r.PublicationDate),
		CountryOfPublication: r.CountryOfPublication,
		Language:             r.Language,
		Genre:                r.Genre,
		Priority:             string(r.Priority),
		Status:               string(r.Status),
		ExpectedDeliveryDate: formatTimePtr(r.ExpectedDeliveryDate),
		CreatedAt:            formatTime(r.CreatedAt),
	}
}

func NewIsbnRequestDetailView(r *isbnrequest.Request) *IsbnRequestDetailView {
	return &IsbnRequestDetailView{
		IsbnRequestView:   *NewIsbnRequestView(r),
		AuthorID:          r.AuthorID,
		PublisherID:       r.PublisherID,
		Description:       r.Description,
		PageCount:         r.PageCount,
		RequestNotes:      r.RequestNotes,
		PublisherNotes:    r.PublisherNotes,
		IsbnCertificateID: r.IsbnCertificateID,
		AssignedAt:        formatTimePtr(r.AssignedAt),
		CompletedAt:       formatTimePtr(r.CompletedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
	}
}

func IsbnRequestFor(r *isbnrequest.Request, detailed bool) interface{} {
	if detailed {
		return NewIsbnRequestDetailView(r)
	}
	return NewIsbnRequestView(r)
}
