package dto

import (
	"encoding/json"
	"strings"

	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// UploadCertificateForm holds the form fields sent next to the `certificate` file.
// Metadata is an optional JSON object of string values.
type UploadCertificateForm struct {
	ISBN13             string `form:"isbn13" binding:"required" example:"978-0-306-40615-7"`
	ISBN10             string `form:"isbn10" example:"0-306-40615-2"`
	Title              string `form:"title" binding:"required,max=500" example:"The Long Night"`
	AuthorName         string `form:"author_name" binding:"required,max=255" example:"A. Writer"`
	PublisherName      string `form:"publisher_name" binding:"max=255"`
	IssuingAuthority   string `form:"issuing_authority" binding:"required,max=255" example:"National ISBN Agency"`
	IssuingCountry     string `form:"issuing_country" example:"US"`
	RegistrationNumber string `form:"registration_number" binding:"max=100"`
	IssueDate          string `form:"issue_date" binding:"required" example:"2026-01-15"`
	ExpiryDate         string `form:"expiry_date" example:"2031-01-15"`
	Notes              string `form:"notes"`
	Metadata           string `form:"metadata" example:"{\"edition\":\"first\"}"`
}

// ToInfo parses dates and metadata into the domain description.
func (f UploadCertificateForm) ToInfo() (isbncert.Info, error) {
	info := isbncert.Info{
		ISBN13:             f.ISBN13,
		ISBN10:             f.ISBN10,
		Title:              f.Title,
		AuthorName:         f.AuthorName,
		PublisherName:      f.PublisherName,
		IssuingAuthority:   f.IssuingAuthority,
		IssuingCountry:     f.IssuingCountry,
		RegistrationNumber: f.RegistrationNumber,
		Notes:              f.Notes,
	}
	dates, err := ParseDates(map[string]string{"issue_date": f.IssueDate, "expiry_date": f.ExpiryDate})
	if err != nil {
		return info, err
	}
	info.IssueDate = dates["issue_date"]
	info.ExpiryDate = dates["expiry_date"]

	if raw := strings.TrimSpace(f.Metadata); raw != "" {
		if err := json.Unmarshal([]byte(raw), &info.Metadata); err != nil {
			return info, apperrors.ErrInvalidParams.WithFields(map[string]string{"metadata": "must be a JSON object of strings"})
		}
	}
	return info, nil
}

type VerifyCertificateRequest struct {
	Method string `json:"verification_method" binding:"max=50" example:"registry_lookup"`
}

type BulkVerifyRequest struct {
	IDs    []uint `json:"certificate_ids" binding:"required,min=1,dive,gt=0" example:"1,2,3"`
	Method string `json:"verification_method" binding:"max=50" example:"registry_lookup"`
}

// ResubmitCertificateForm is the form of a resubmission; the `certificate`
// file part is optional.
type ResubmitCertificateForm struct {
	Notes string `form:"notes" json:"notes"`
}

type SetActiveRequest struct {
	Reason string `json:"reason" example:"Superseded by a corrected certificate"`
}

// SearchCertificatesQuery binds GET /isbn-certificates/search and /mine.
type SearchCertificatesQuery struct {
	StatusPageQuery
	ISBN         string `form:"isbn" example:"978030640"`
	UploadedFrom string `form:"uploaded_from" example:"2026-01-01"`
	UploadedTo   string `form:"uploaded_to" example:"2026-06-30"`
}

// CertificateView is the public view.
type CertificateView struct {
	ID             uint    `json:"id" example:"4"`
	BookID         uint    `json:"book_id" example:"12"`
	ISBN13         string  `json:"isbn13" example:"9780306406157"`
	ISBN10         string  `json:"isbn10,omitempty" example:"0306406152"`
	Title          string  `json:"title"`
	AuthorName     string  `json:"author_name"`
	PublisherName  string  `json:"publisher_name,omitempty"`
	IssuingCountry string  `json:"issuing_country,omitempty"`
	IssueDate      string  `json:"issue_date"`
	ExpiryDate     *string `json:"expiry_date,omitempty"`
	Status         string  `json:"status" example:"PENDING"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
}

// CertificateDetailView adds the file, registry and review data.
type CertificateDetailView struct {
	CertificateView
	UploadedBy         uint              `json:"uploaded_by"`
	IssuingAuthority   string            `json:"issuing_authority"`
	RegistrationNumber string            `json:"registration_number,omitempty"`
	FileName           string            `json:"file_name"`
	FileSize           int64             `json:"file_size"`
	MimeType           string            `json:"mime_type"`
	Checksum           string            `json:"checksum"`
	VerifiedBy         *uint             `json:"verified_by,omitempty"`
	VerifiedAt         *string           `json:"verified_at,omitempty"`
	VerificationMethod string            `json:"verification_method,omitempty"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	UpdatedAt          string            `json:"updated_at"`
}

func NewCertificateView(c *isbncert.Certificate) *CertificateView {
	return &CertificateView{
		ID:             c.ID,
		BookID:         c.BookID,
		ISBN13:         c.ISBN13,
		ISBN10:         c.ISBN10,
		Title:          c.Title,
		AuthorName:     c.AuthorName,
		PublisherName:  c.PublisherName,
		IssuingCountry: c.IssuingCountry,
		IssueDate:      formatTime(c.IssueDate),
		ExpiryDate:     formatTimePtr(c.ExpiryDate),
		Status:         string(c.Status),
		IsActive:       c.IsActive,
		CreatedAt:      formatTime(c.CreatedAt),
	}
}

func NewCertificateDetailView(c *isbncert.Certificate) *CertificateDetailView {
	return &CertificateDetailView{
		CertificateView:    *NewCertificateView(c),
		UploadedBy:         c.UploadedBy,
		IssuingAuthority:   c.IssuingAuthority,
		RegistrationNumber: c.RegistrationNumber,
		FileName:           c.FileName,
		FileSize:           c.FileSize,
		MimeType:           c.MimeType,
		Checksum:           c.Checksum,
		VerifiedBy:         c.VerifiedBy,
		VerifiedAt:         formatTimePtr(c.VerifiedAt),
		VerificationMethod: c.VerificationMethod,
		RejectionReason:    c.RejectionReason,
		Notes:              c.Notes,
		Metadata:           c.Metadata,
		UpdatedAt:          formatTime(c.UpdatedAt),
	}
}

func CertificateFor(c *isbncert.Certificate, detailed bool) interface{} {
	if detailed {
		return NewCertificateDetailView(c)
	}
	return NewCertificateView(c)
}

// AuditLogView is one history entry.
type AuditLogView struct {
	ID             uint                   `json:"id"`
	CertificateID  uint                   `json:"certificate_id"`
	Action         string                 `json:"action" example:"VERIFIED"`
	PerformedBy    uint                   `json:"performed_by"`
	PreviousValues map[string]interface{} `json:"previous_values,omitempty"`
	NewValues      map[string]interface{} `json:"new_values,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	CreatedAt      string                 `json:"created_at"`
}

func NewAuditLogView(l *isbncert.AuditLog) AuditLogView {
	return AuditLogView{
		ID:             l.ID,
		CertificateID:  l.CertificateID,
		Action:         string(l.Action),
		PerformedBy:    l.PerformedBy,
		PreviousValues: l.PreviousValues,
		NewValues:      l.NewValues,
		Reason:         l.Reason,
		IPAddress:      l.IPAddress,
		UserAgent:      l.UserAgent,
		CreatedAt:      formatTime(l.CreatedAt),
	}
}
