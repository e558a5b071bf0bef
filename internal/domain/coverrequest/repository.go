package coverrequest

import (
	"context"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Repository persists cover design requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error

	FindByID(ctx context.Context, id uint) (*Request, error)

	// LockByID reads the row with SELECT ... FOR UPDATE; call inside a transaction.
	LockByID(ctx context.Context, id uint) (*Request, error)

	// Update saves every mutable column.
	Update(ctx context.Context, r *Request) error

	Delete(ctx context.Context, id uint) error

	// IncrementRevision adds one to current_revisions only while it is below
	// revision_limit. Returns ErrRevisionLimitReached otherwise.
	IncrementRevision(ctx context.Context, id uint) error

	ListByAuthor(ctx context.Context, authorID uint, filter ListFilter) ([]*Request, int64, error)

	// ListByDesigner orders by deadline ascending, then priority descending.
	ListByDesigner(ctx context.Context, designerID uint, filter ListFilter) ([]*Request, int64, error)

	// ListOpen returns OPEN requests, most urgent first.
	ListOpen(ctx context.Context, filter ListFilter) ([]*Request, int64, error)
}

// ListFilter narrows list queries; zero values mean "any".
type ListFilter struct {
	Status    Status
	Priority  shared.Priority
	MinBudget int64
	Page      shared.Page
}
