package coverdesign

import (
	"context"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Repository persists cover designs.
type Repository interface {
	// NextVersion reserves the next version number of bookID. Numbers are
	// never handed out twice; a failed upload leaves a gap.
	NextVersion(ctx context.Context, bookID uint) (int, error)

	// Create fails with ErrVersionConflict on a duplicate (book, version).
	Create(ctx context.Context, d *Design) error

	FindByID(ctx context.Context, id uint) (*Design, error)

	Update(ctx context.Context, d *Design) error

	Delete(ctx context.Context, id uint) error

	// LockByBook reads every design of bookID with SELECT ... FOR UPDATE.
	// Concurrent activations for the same book serialize on these locks.
	LockByBook(ctx context.Context, bookID uint) ([]*Design, error)

	// ListByBook orders by version descending.
	ListByBook(ctx context.Context, bookID uint, filter ListFilter) ([]*Design, int64, error)

	FindActiveByBook(ctx context.Context, bookID uint) (*Design, error)

	// VersionHistory orders by version ascending.
	VersionHistory(ctx context.Context, bookID uint) ([]*Design, error)

	ListByUploader(ctx context.Context, uploaderID uint, filter ListFilter) ([]*Design, int64, error)
}

// ListFilter narrows list queries; a zero Status means any.
type ListFilter struct {
	Status Status
	Page   shared.Page
}
