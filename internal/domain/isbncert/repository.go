package isbncert

import (
	"context"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Repository persists certificates.
type Repository interface {
	// Create fails with ErrISBNDuplicate when another active certificate
	// holds the ISBN-13; the store enforces this with a unique index.
	Create(ctx context.Context, c *Certificate) error

	FindByID(ctx context.Context, id uint) (*Certificate, error)

	// LockByID reads the row with SELECT ... FOR UPDATE.
	LockByID(ctx context.Context, id uint) (*Certificate, error)

	// Update saves every mutable column; reactivating a duplicate ISBN fails with ErrISBNDuplicate.
	Update(ctx context.Context, c *Certificate) error

	Delete(ctx context.Context, id uint) error

	// FindActiveByISBN returns an active certificate holding isbn13, or isbn10
	// when it is not empty. Excludes excludeID.
	FindActiveByISBN(ctx context.Context, isbn13, isbn10 string, excludeID uint) (*Certificate, error)

	ListByBook(ctx context.Context, bookID uint, page shared.Page) ([]*Certificate, int64, error)

	ListByUploader(ctx context.Context, uploaderID uint, filter SearchFilter) ([]*Certificate, int64, error)

	// ListPending returns PENDING certificates, oldest first.
	ListPending(ctx context.Context, page shared.Page) ([]*Certificate, int64, error)

	Search(ctx context.Context, filter SearchFilter) ([]*Certificate, int64, error)

	// CountByStatus counts every row by its status at asOf: rows whose expiry
	// date has passed count as EXPIRED. A zero asOf counts stored statuses.
	CountByStatus(ctx context.Context, asOf time.Time) (map[Status]int64, error)

	CountActive(ctx context.Context) (int64, error)
}

// AuditRepository appends and reads certificate history.
type AuditRepository interface {
	Append(ctx context.Context, log *AuditLog) error

	// ListByCertificate returns the newest entries first.
	ListByCertificate(ctx context.Context, certificateID uint, page shared.Page) ([]*AuditLog, int64, error)
}

// SearchFilter narrows search and "mine" queries; zero values mean any.
type SearchFilter struct {
	ISBN         string // digits, matched as a substring of isbn13 or isbn10
	Status       Status
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	// AsOf, when set, matches Status against the effective status at that
	// instant instead of the stored one.
	AsOf time.Time
	Page shared.Page
}

// Statistics summarizes certificates by effective status.
type Statistics struct {
	Total              int64   `json:"total"`
	Pending            int64   `json:"pending"`
	Verified           int64   `json:"verified"`
	Approved           int64   `json:"approved"`
	Rejected           int64   `json:"rejected"`
	Expired            int64   `json:"expired"`
	Active             int64   `json:"active"`
	VerifiedPercentage float64 `json:"verified_percentage"`
}

// NewStatistics derives totals and the verified share (VERIFIED + APPROVED).
func NewStatistics(counts map[Status]int64, active int64) *Statistics {
	s := &Statistics{
		Pending:  counts[StatusPending],
		Verified: counts[StatusVerified],
		Approved: counts[StatusApproved],
		Rejected: counts[StatusRejected],
		Expired:  counts[StatusExpired],
		Active:   active,
	}
	for _, n := range counts {
		s.Total += n
	}
	if s.Total > 0 {
		pct := float64(s.Verified+s.Approved) * 100 / float64(s.Total)
		s.VerifiedPercentage = float64(int64(pct*100+0.5)) / 100
	}
	return s
}
