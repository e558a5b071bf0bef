package isbncert

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/xiebiao/pubflow/internal/domain/isbn"
)

// Status of an ISBN certificate.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions is the certificate state machine. Expiry is applied by
// FoldExpiry from any state and is not listed here.
var transitions = map[Status][]Status{
	StatusPending:  {StatusVerified, StatusRejected},
	StatusVerified: {StatusApproved, StatusRejected},
	StatusApproved: {},
	StatusRejected: {StatusPending},
	StatusExpired:  {},
}

// Default file bounds; the service reads the effective ones from configuration.
const (
	DefaultMinFileSize = 1 << 10
	DefaultMaxFileSize = 10 << 20
)

var allowedMIME = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
}

// Certificate is a proof of ISBN ownership for a book (aggregate root).
// ISBN13 and ISBN10 are stored normalized.
type Certificate struct {
	ID                 uint
	BookID             uint
	UploadedBy         uint
	ISBN13             string
	ISBN10             string
	Title              string
	AuthorName         string
	PublisherName      string
	IssuingAuthority   string
	IssuingCountry     string
	RegistrationNumber string
	IssueDate          time.Time
	ExpiryDate         *time.Time
	FileName           string
	FileKey            string
	FileURL            string
	FileSize           int64
	MimeType           string
	Checksum           string
	Status             Status
	VerifiedBy         *uint
	VerifiedAt         *time.Time
	VerificationMethod string
	RejectionReason    string
	Notes              string
	Metadata           map[string]string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Info is the uploader-supplied description of a certificate.
type Info struct {
	ISBN13             string
	ISBN10             string
	Title              string
	AuthorName         string
	PublisherName      string
	IssuingAuthority   string
	IssuingCountry     string
	RegistrationNumber string
	IssueDate          *time.Time
	ExpiryDate         *time.Time
	Notes              string
	Metadata           map[string]string
}

// ValidateFile checks MIME type and the size window [minSize, maxSize].
func ValidateFile(mimeType string, size, minSize, maxSize int64) error {
	if minSize <= 0 {
		minSize = DefaultMinFileSize
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if !allowedMIME[strings.ToLower(mimeType)] {
		return ErrInvalidFileType
	}
	if size < minSize || size > maxSize {
		return ErrFileSize
	}
	return nil
}

// NewCertificate validates info and builds a PENDING, active certificate.
// An invalid ISBN-13 is reported as ErrInvalidISBN13 before anything else.
func NewCertificate(bookID, uploadedBy uint, info Info, now time.Time) (*Certificate, error) {
	isbn13, ok := isbn.Normalize13(info.ISBN13)
	if !ok {
		return nil, ErrInvalidISBN13
	}

	var isbn10 string
	if strings.TrimSpace(info.ISBN10) != "" {
		if isbn10, ok = isbn.Normalize10(info.ISBN10); !ok {
			return nil, ErrInvalidISBN10
		}
	}

	fields := map[string]string{}
	requireText(fields, "title", info.Title, 500)
	requireText(fields, "author_name", info.AuthorName, 255)
	requireText(fields, "issuing_authority", info.IssuingAuthority, 255)
	if utf8.RuneCountInString(info.PublisherName) > 255 {
		fields["publisher_name"] = "must be at most 255 characters"
	}
	country := strings.ToUpper(strings.TrimSpace(info.IssuingCountry))
	if country != "" && !isCountryCode(country) {
		fields["issuing_country"] = "must be a 2 or 3 letter country code"
	}
	if len(fields) > 0 {
		return nil, ErrInvalidCertificate.WithFields(fields)
	}

	if info.IssueDate == nil {
		return nil, ErrInvalidCertificate.WithFields(map[string]string{"issue_date": "is required"})
	}
	if info.IssueDate.After(now) {
		return nil, ErrIssueDateInFuture
	}
	if info.ExpiryDate != nil && !info.ExpiryDate.After(*info.IssueDate) {
		return nil, ErrExpiryBeforeIssue
	}

	return &Certificate{
		BookID:             bookID,
		UploadedBy:         uploadedBy,
		ISBN13:             isbn13,
		ISBN10:             isbn10,
		Title:              strings.TrimSpace(info.Title),
		AuthorName:         strings.TrimSpace(info.AuthorName),
		PublisherName:      strings.TrimSpace(info.PublisherName),
		IssuingAuthority:   strings.TrimSpace(info.IssuingAuthority),
		IssuingCountry:     country,
		RegistrationNumber: strings.TrimSpace(info.RegistrationNumber),
		IssueDate:          *info.IssueDate,
		ExpiryDate:         info.ExpiryDate,
		Notes:              info.Notes,
		Metadata:           info.Metadata,
		Status:             StatusPending,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func requireText(fields map[string]string, name, value string, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		fields[name] = "is required"
	case n > max:
		fields[name] = "is too long"
	}
}

func isCountryCode(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// IsEffectivelyExpired is the lazy expiry predicate: stored EXPIRED, or an
// expiry date that now has passed.
func IsEffectivelyExpired(c *Certificate, now time.Time) bool {
	return c.Status == StatusExpired || (c.ExpiryDate != nil && now.After(*c.ExpiryDate))
}

// EffectiveStatus is the status a reader should see at now.
func (c *Certificate) EffectiveStatus(now time.Time) Status {
	if IsEffectivelyExpired(c, now) {
		return StatusExpired
	}
	return c.Status
}

// FoldExpiry writes the derived expiry into the stored status and reports
// whether it changed. Write paths call it before acting on the record.
func (c *Certificate) FoldExpiry(now time.Time) bool {
	if c.Status == StatusExpired || !IsEffectivelyExpired(c, now) {
		return false
	}
	c.Status = StatusExpired
	c.UpdatedAt = now
	return true
}

func (c *Certificate) CanTransitionTo(target Status) bool {
	for _, s := range transitions[c.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (c *Certificate) TransitionTo(target Status, now time.Time) error {
	if c.Status == StatusExpired {
		return ErrCertificateExpired
	}
	if !c.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	c.Status = target
	c.UpdatedAt = now
	return nil
}

// Verify moves PENDING to VERIFIED.
func (c *Certificate) Verify(by uint, method string, now time.Time) error {
	if err := c.TransitionTo(StatusVerified, now); err != nil {
		return err
	}
	c.VerifiedBy = &by
	c.VerifiedAt = &now
	c.VerificationMethod = strings.TrimSpace(method)
	if c.VerificationMethod == "" {
		c.VerificationMethod = "MANUAL"
	}
	c.RejectionReason = ""
	return nil
}

// Approve moves VERIFIED to APPROVED.
func (c *Certificate) Approve(by uint, now time.Time) error {
	if err := c.TransitionTo(StatusApproved, now); err != nil {
		return err
	}
	c.VerifiedBy = &by
	return nil
}

// Reject is allowed from PENDING and VERIFIED with a non-empty reason.
func (c *Certificate) Reject(by uint, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if err := c.TransitionTo(StatusRejected, now); err != nil {
		return err
	}
	c.VerifiedBy = &by
	c.VerifiedAt = &now
	c.RejectionReason = reason
	return nil
}

// Resubmit returns a REJECTED certificate to PENDING.
func (c *Certificate) Resubmit(notes string, now time.Time) error {
	if err := c.TransitionTo(StatusPending, now); err != nil {
		return err
	}
	c.RejectionReason = ""
	c.VerifiedBy = nil
	c.VerifiedAt = nil
	c.VerificationMethod = ""
	if strings.TrimSpace(notes) != "" {
		c.Notes = notes
	}
	return nil
}

func (c *Certificate) Deactivate(now time.Time) error {
	if !c.IsActive {
		return ErrAlreadyInactive
	}
	c.IsActive = false
	c.UpdatedAt = now
	return nil
}

func (c *Certificate) Reactivate(now time.Time) error {
	if c.IsActive {
		return ErrAlreadyActive
	}
	c.IsActive = true
	c.UpdatedAt = now
	return nil
}

// IsUsable reports whether the certificate can back an issued ISBN at now:
// active and verified or approved, not lapsed.
func (c *Certificate) IsUsable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	s := c.EffectiveStatus(now)
	return s == StatusVerified || s == StatusApproved
}

// IsRemovable reports whether delete removes the row; otherwise it only deactivates.
func (c *Certificate) IsRemovable() bool {
	return c.Status == StatusPending || c.Status == StatusRejected
}

func (c *Certificate) IsUploader(userID uint) bool {
	return c.UploadedBy == userID
}

// Snapshot is the audited view of the mutable fields.
func (c *Certificate) Snapshot() map[string]interface{} {
	s := map[string]interface{}{
		"status":    string(c.Status),
		"is_active": c.IsActive,
	}
	if c.RejectionReason != "" {
		s["rejection_reason"] = c.RejectionReason
	}
	if c.VerifiedBy != nil {
		s["verified_by"] = *c.VerifiedBy
	}
	if c.VerificationMethod != "" {
		s["verification_method"] = c.VerificationMethod
	}
	if c.FileKey != "" {
		s["file_key"] = c.FileKey
	}
	return s
}
