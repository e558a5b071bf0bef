package coverdesign

import (
	"fmt"
	"strings"
	"time"
)

// Status of a cover design.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusActive    Status = "ACTIVE"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions is the design state machine. A rejected design can be
// reconsidered; an ACTIVE design only leaves ACTIVE when another design of
// the same book is activated.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusApproved, StatusRejected},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusApproved},
	StatusApproved:  {StatusActive, StatusRejected},
	StatusActive:    {StatusActive, StatusApproved},
}

// Upload limits.
const (
	MaxFileSize = 10 << 20
	MinWidth    = 300
	MinHeight   = 400
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/tiff": true,
}

// Design is one uploaded cover image version of a book (aggregate root).
// Width and Height are 0 when unknown.
type Design struct {
	ID                uint
	BookID            uint
	UploadedBy        uint
	DesignerID        uint
	RequestID         *uint
	Title             string
	Description       string
	DesignConcept     string
	ColorScheme       string
	Style             string
	TargetAudience    string
	DesignNotes       string
	DesignerName      string
	DesignerEmail     string
	DesignerPortfolio string
	FileName          string
	FileKey           string
	FileURL           string
	ThumbnailURL      string
	FileSize          int64
	MimeType          string
	Width             int
	Height            int
	Version           int
	Status            Status
	IsActive          bool
	ApprovedBy        *uint
	ApprovedAt        *time.Time
	RejectionReason   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Dimensions renders "WxH", or "" when unknown.
func (d *Design) Dimensions() string {
	if d.Width == 0 || d.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ValidateFile checks MIME type, size and, when known, the minimum dimensions.
func ValidateFile(mimeType string, size int64, maxSize int64, width, height int) error {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	if !allowedMIME[strings.ToLower(mimeType)] {
		return ErrInvalidFileType
	}
	if size <= 0 || size > maxSize {
		return ErrFileTooLarge
	}
	if width != 0 || height != 0 {
		if width < MinWidth || height < MinHeight {
			return ErrDimensionsTooSmall
		}
	}
	return nil
}

// NewDesign builds a SUBMITTED design; the caller assigns the version.
func NewDesign(bookID, uploadedBy, designerID uint, version int, now time.Time) *Design {
	if designerID == 0 {
		designerID = uploadedBy
	}
	return &Design{
		BookID:     bookID,
		UploadedBy: uploadedBy,
		DesignerID: designerID,
		Version:    version,
		Status:     StatusSubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (d *Design) CanTransitionTo(target Status) bool {
	for _, s := range transitions[d.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (d *Design) TransitionTo(target Status, now time.Time) error {
	if !d.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	d.Status = target
	d.UpdatedAt = now
	return nil
}

// Approve fails on APPROVED and ACTIVE designs.
func (d *Design) Approve(by uint, now time.Time) error {
	if d.Status == StatusApproved || d.Status == StatusActive {
		return ErrAlreadyApproved
	}
	if err := d.TransitionTo(StatusApproved, now); err != nil {
		return err
	}
	d.ApprovedBy = &by
	d.ApprovedAt = &now
	d.RejectionReason = ""
	return nil
}

// Reject needs a non-empty reason and never applies to the ACTIVE cover.
func (d *Design) Reject(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	switch d.Status {
	case StatusActive:
		return ErrRejectActive
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if err := d.TransitionTo(StatusRejected, now); err != nil {
		return err
	}
	d.RejectionReason = reason
	d.IsActive = false
	return nil
}

// Activate makes d the displayed cover; requires APPROVED or ACTIVE.
func (d *Design) Activate(now time.Time) error {
	if d.Status != StatusApproved && d.Status != StatusActive {
		return ErrNotApproved
	}
	if err := d.TransitionTo(StatusActive, now); err != nil {
		return err
	}
	d.IsActive = true
	d.ApprovedAt = &now
	return nil
}

// Demote clears the active flag of a cover replaced by another one.
func (d *Design) Demote(now time.Time) {
	if d.Status == StatusActive {
		d.Status = StatusApproved
	}
	d.IsActive = false
	d.UpdatedAt = now
}

// CanBeDeleted is false for the active cover.
func (d *Design) CanBeDeleted() bool {
	return d.Status != StatusActive && !d.IsActive
}

func (d *Design) IsUploader(userID uint) bool {
	return d.UploadedBy == userID
}
