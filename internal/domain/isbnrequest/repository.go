package isbnrequest

import (
	"context"

	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// Repository persists ISBN requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error

	FindByID(ctx context.Context, id uint) (*Request, error)

	// LockByID reads the row with SELECT ... FOR UPDATE.
	LockByID(ctx context.Context, id uint) (*Request, error)

	Update(ctx context.Context, r *Request) error

	ListByAuthor(ctx context.Context, authorID uint, status Status, page shared.Page) ([]*Request, int64, error)

	// ListPending orders by priority descending, then oldest first.
	ListPending(ctx context.Context, page shared.Page) ([]*Request, int64, error)
}
