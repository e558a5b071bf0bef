package database

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models live here; domain entities carry no tags and repositories
// convert between the two.
//
// "One active row" rules are enforced by nullable shadow columns with plain
// unique indexes: active_book_id holds book_id only while a cover is active,
// active_isbn13 holds isbn13 only while a certificate is active. NULLs never
// collide, so the rule is portable across PostgreSQL, MySQL and SQLite.

// CoverDesignRequestModel maps cover_design_requests. Budget is in cents.
type CoverDesignRequestModel struct {
	ID                  uint           `gorm:"primaryKey"`
	BookID              uint           `gorm:"index;not null"`
	AuthorID            uint           `gorm:"index;not null"`
	AssignedDesignerID  *uint          `gorm:"index"`
	Title               string         `gorm:"size:200;not null"`
	Description         string         `gorm:"type:text"`
	Budget              int64          `gorm:"not null;default:0"`
	DeadlineDate        *time.Time     `gorm:"index"`
	Priority            string         `gorm:"size:16;index;not null"`
	Status              string         `gorm:"size:20;index;not null"`
	RevisionLimit       int            `gorm:"not null"`
	CurrentRevisions    int            `gorm:"not null;default:0"`
	PreferredFormats    datatypes.JSON `gorm:""`
	PreferredDimensions string         `gorm:"size:50"`
	MinFileSize         int64          `gorm:"not null"`
	MaxFileSize         int64          `gorm:"not null"`
	ConceptBrief        string         `gorm:"type:text"`
	AuthorNotes         string         `gorm:"type:text"`
	DesignerNotes       string         `gorm:"type:text"`
	AssignedAt          *time.Time
	CompletedAt         *time.Time
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
}

func (CoverDesignRequestModel) TableName() string {
	return "cover_design_requests"
}

// CoverDesignModel maps cover_designs. (book_id, version) is unique.
type CoverDesignModel struct {
	ID                uint   `gorm:"primaryKey"`
	BookID            uint   `gorm:"uniqueIndex:idx_cover_book_version,priority:1;not null"`
	Version           int    `gorm:"uniqueIndex:idx_cover_book_version,priority:2;not null"`
	ActiveBookID      *uint  `gorm:"uniqueIndex:idx_cover_active_book"`
	UploadedBy        uint   `gorm:"index;not null"`
	DesignerID        uint   `gorm:"index;not null"`
	RequestID         *uint  `gorm:"index"`
	Title             string `gorm:"size:200"`
	Description       string `gorm:"type:text"`
	DesignConcept     string `gorm:"type:text"`
	ColorScheme       string `gorm:"size:200"`
	Style             string `gorm:"size:100"`
	TargetAudience    string `gorm:"size:200"`
	DesignNotes       string `gorm:"type:text"`
	DesignerName      string `gorm:"size:200"`
	DesignerEmail     string `gorm:"size:255"`
	DesignerPortfolio string `gorm:"size:500"`
	FileName          string `gorm:"size:255;not null"`
	FileKey           string `gorm:"size:500;not null"`
	FileURL           string `gorm:"size:1000;not null"`
	ThumbnailURL      string `gorm:"size:1000"`
	FileSize          int64  `gorm:"not null"`
	MimeType          string `gorm:"size:100;not null"`
	Width             int
	Height            int
	Status            string `gorm:"size:20;index;not null"`
	IsActive          bool   `gorm:"index;not null;default:false"`
	ApprovedBy        *uint
	ApprovedAt        *time.Time
	RejectionReason   string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (CoverDesignModel) TableName() string {
	return "cover_designs"
}

// CoverDesignSequenceModel is the per-book version counter.
type CoverDesignSequenceModel struct {
	BookID      uint `gorm:"primaryKey;autoIncrement:false"`
	LastVersion int  `gorm:"not null"`
	UpdatedAt   time.Time
}

func (CoverDesignSequenceModel) TableName() string {
	return "cover_design_sequences"
}

// IsbnCertificateModel maps isbn_certificates.
type IsbnCertificateModel struct {
	ID                 uint    `gorm:"primaryKey"`
	BookID             uint    `gorm:"index;not null"`
	UploadedBy         uint    `gorm:"index;not null"`
	ISBN13             string  `gorm:"column:isbn13;size:13;index;not null"`
	ISBN10             string  `gorm:"column:isbn10;size:10;index"`
	ActiveISBN13       *string `gorm:"column:active_isbn13;size:13;uniqueIndex:idx_cert_active_isbn13"`
	Title              string  `gorm:"size:500;not null"`
	AuthorName         string  `gorm:"size:255;not null"`
	PublisherName      string  `gorm:"size:255"`
	IssuingAuthority   string  `gorm:"size:255;not null"`
	IssuingCountry     string  `gorm:"size:3"`
	RegistrationNumber string  `gorm:"size:100"`
	IssueDate          time.Time
	ExpiryDate         *time.Time `gorm:"index"`
	FileName           string     `gorm:"size:255;not null"`
	FileKey            string     `gorm:"size:500;not null"`
	FileURL            string     `gorm:"size:1000;not null"`
	FileSize           int64      `gorm:"not null"`
	MimeType           string     `gorm:"size:100;not null"`
	Checksum           string     `gorm:"size:64;not null"`
	Status             string     `gorm:"size:20;index;not null"`
	VerifiedBy         *uint
	VerifiedAt         *time.Time
	VerificationMethod string         `gorm:"size:50"`
	RejectionReason    string         `gorm:"type:text"`
	Notes              string         `gorm:"type:text"`
	Metadata           datatypes.JSON `gorm:""`
	IsActive           bool           `gorm:"index;not null"`
	CreatedAt          time.Time      `gorm:"index"`
	UpdatedAt          time.Time
}

func (IsbnCertificateModel) TableName() string {
	return "isbn_certificates"
}

// IsbnCertificateAuditLogModel maps isbn_certificate_audit_logs; rows are never updated.
type IsbnCertificateAuditLogModel struct {
	ID             uint           `gorm:"primaryKey"`
	CertificateID  uint           `gorm:"index;not null"`
	Action         string         `gorm:"size:20;not null"`
	PerformedBy    uint           `gorm:"index;not null"`
	PreviousValues datatypes.JSON `gorm:""`
	NewValues      datatypes.JSON `gorm:""`
	Reason         string         `gorm:"type:text"`
	IPAddress      string         `gorm:"size:45"`
	UserAgent      string         `gorm:"size:500"`
	CreatedAt      time.Time      `gorm:"index"`
}

func (IsbnCertificateAuditLogModel) TableName() string {
	return "isbn_certificate_audit_logs"
}

// IsbnRequestModel maps isbn_requests.
type IsbnRequestModel struct {
	ID                   uint   `gorm:"primaryKey"`
	BookID               uint   `gorm:"index;not null"`
	AuthorID             uint   `gorm:"index;not null"`
	PublisherID          *uint  `gorm:"index"`
	Title                string `gorm:"size:500;not null"`
	AuthorName           string `gorm:"size:255;not null"`
	PublisherName        string `gorm:"size:255"`
	Format               string `gorm:"size:20;not null"`
	Priority             string `gorm:"size:16;index;not null"`
	Status               string `gorm:"size:20;index;not null"`
	Description          string `gorm:"type:text"`
	PageCount            int
	Language             string `gorm:"size:50"`
	Genre                string `gorm:"size:100"`
	CountryOfPublication string `gorm:"size:3"`
	PublicationDate      *time.Time
	ExpectedDeliveryDate *time.Time
	RequestNotes         string `gorm:"type:text"`
	PublisherNotes       string `gorm:"type:text"`
	IsbnCertificateID    *uint  `gorm:"index"`
	AssignedAt           *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}

func (IsbnRequestModel) TableName() string {
	return "isbn_requests"
}
