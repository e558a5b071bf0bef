package coverrequest

import (
	"context"
	"strings"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// GetRequestUseCase reads one request and decides which view the caller gets.
type GetRequestUseCase struct {
	repo coverrequest.Repository
}

func NewGetRequestUseCase(repo coverrequest.Repository) *GetRequestUseCase {
	return &GetRequestUseCase{repo: repo}
}

type GetRequestResponse struct {
	Request  *coverrequest.Request
	Detailed bool
}

func (uc *GetRequestUseCase) Execute(ctx context.Context, actor identity.Actor, id uint) (*GetRequestResponse, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	r, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GetRequestResponse{
		Request:  r,
		Detailed: CanViewDetail(actor, r),
	}, nil
}

// CanViewDetail is true for ADMIN/PUBLISHER, the author and the assigned designer.
func CanViewDetail(actor identity.Actor, r *coverrequest.Request) bool {
	return policy.Allows(policy.CoverRequestView, string(r.Status), actor, r.AuthorID, r.DesignerID())
}

// Scope selects which requests a list returns.
type Scope string

const (
	ScopeMine     Scope = "mine"     // authored by the actor
	ScopeAssigned Scope = "assigned" // assigned to the actor as designer
	ScopeOpen     Scope = "open"     // waiting for a designer
)

// ListRequestsUseCase lists requests for one of the scopes.
type ListRequestsUseCase struct {
	repo coverrequest.Repository
}

func NewListRequestsUseCase(repo coverrequest.Repository) *ListRequestsUseCase {
	return &ListRequestsUseCase{repo: repo}
}

type ListRequestsRequest struct {
	Actor     identity.Actor
	Scope     Scope
	Status    string
	Priority  string
	MinBudget int64
	Page      shared.Page
}

type ListRequestsResponse struct {
	List  []*coverrequest.Request
	Total int64
	Page  shared.Page
}

func (uc *ListRequestsUseCase) Execute(ctx context.Context, req ListRequestsRequest) (*ListRequestsResponse, error) {
	if req.Actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}

	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	var (
		list  []*coverrequest.Request
		total int64
	)
	switch req.Scope {
	case ScopeMine:
		list, total, err = uc.repo.ListByAuthor(ctx, req.Actor.ID, filter)
	case ScopeAssigned:
		list, total, err = uc.repo.ListByDesigner(ctx, req.Actor.ID, filter)
	case ScopeOpen:
		if err := policy.Authorize(policy.CoverRequestListOpen, policy.AnyState, req.Actor); err != nil {
			return nil, err
		}
		list, total, err = uc.repo.ListOpen(ctx, filter)
	default:
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"scope": "unknown list scope"})
	}
	if err != nil {
		return nil, err
	}

	return &ListRequestsResponse{List: list, Total: total, Page: filter.Page}, nil
}

func buildFilter(req ListRequestsRequest) (coverrequest.ListFilter, error) {
	filter := coverrequest.ListFilter{
		MinBudget: req.MinBudget,
		Page:      req.Page.Normalize(shared.DefaultPageSize),
	}
	fields := map[string]string{}
	if s := strings.TrimSpace(req.Status); s != "" {
		filter.Status = coverrequest.Status(strings.ToUpper(s))
		if !filter.Status.Valid() {
			fields["status"] = "unknown status"
		}
	}
	if strings.TrimSpace(req.Priority) != "" {
		p, ok := shared.ParsePriority(req.Priority)
		if !ok {
			fields["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
		}
		filter.Priority = p
	}
	if req.MinBudget < 0 {
		fields["min_budget"] = "must not be negative"
	}
	if len(fields) > 0 {
		return filter, apperrors.ErrInvalidParams.WithFields(fields)
	}
	return filter, nil
}
