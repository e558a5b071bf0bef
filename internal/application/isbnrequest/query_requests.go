package isbnrequest

import (
	"context"
	"strings"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

type QueryRequestsUseCase struct {
	repo isbnrequest.Repository
}

func NewQueryRequestsUseCase(repo isbnrequest.Repository) *QueryRequestsUseCase {
	return &QueryRequestsUseCase{repo: repo}
}

// CanViewDetail is true for managers, the author and the assigned publisher.
func CanViewDetail(actor identity.Actor, r *isbnrequest.Request) bool {
	return policy.Allows(policy.IsbnRequestView, string(r.Status), actor, r.AuthorID, r.PublisherIDOrZero())
}

type ListRequestsResponse struct {
	List  []*isbnrequest.Request
	Total int64
	Page  shared.Page
}

func (uc *QueryRequestsUseCase) Get(ctx context.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	return uc.repo.FindByID(ctx, id)
}

// Mine lists the actor's requests, optionally by status.
func (uc *QueryRequestsUseCase) Mine(ctx context.Context, actor identity.Actor, status string, page shared.Page) (*ListRequestsResponse, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	var st isbnrequest.Status
	if s := strings.TrimSpace(status); s != "" {
		st = isbnrequest.Status(strings.ToUpper(s))
		if !st.Valid() {
			return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"status": "unknown status"})
		}
	}
	page = page.Normalize(shared.DefaultPageSize)
	list, total, err := uc.repo.ListByAuthor(ctx, actor.ID, st, page)
	if err != nil {
		return nil, err
	}
	return &ListRequestsResponse{List: list, Total: total, Page: page}, nil
}

// Pending is the publisher work queue, most urgent first.
func (uc *QueryRequestsUseCase) Pending(ctx context.Context, actor identity.Actor, page shared.Page) (*ListRequestsResponse, error) {
	if err := policy.Authorize(policy.IsbnRequestListPending, policy.AnyState, actor); err != nil {
		return nil, err
	}
	page = page.Normalize(shared.DefaultPageSize)
	list, total, err := uc.repo.ListPending(ctx, page)
	if err != nil {
		return nil, err
	}
	return &ListRequestsResponse{List: list, Total: total, Page: page}, nil
}
