package coverdesign

import (
	"context"
	"strings"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// QueryDesignsUseCase serves the read side. Results carry the entities;
// the caller picks the view with CanViewDetail.
type QueryDesignsUseCase struct {
	repo coverdesign.Repository
}

func NewQueryDesignsUseCase(repo coverdesign.Repository) *QueryDesignsUseCase {
	return &QueryDesignsUseCase{repo: repo}
}

// CanViewDetail is true for reviewers, the uploader and the designer.
func CanViewDetail(actor identity.Actor, d *coverdesign.Design) bool {
	return policy.Allows(policy.CoverDesignView, string(d.Status), actor, d.UploadedBy, d.DesignerID)
}

type ListDesignsRequest struct {
	Actor  identity.Actor
	Status string
	Page   shared.Page
}

type ListDesignsResponse struct {
	List  []*coverdesign.Design
	Total int64
	Page  shared.Page
}

func (uc *QueryDesignsUseCase) Get(ctx context.Context, actor identity.Actor, id uint) (*coverdesign.Design, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	return uc.repo.FindByID(ctx, id)
}

// ListByBook orders by version, newest first.
func (uc *QueryDesignsUseCase) ListByBook(ctx context.Context, bookID uint, req ListDesignsRequest) (*ListDesignsResponse, error) {
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}
	list, total, err := uc.repo.ListByBook(ctx, bookID, filter)
	if err != nil {
		return nil, err
	}
	return &ListDesignsResponse{List: list, Total: total, Page: filter.Page}, nil
}

// Mine lists the designs the actor uploaded.
func (uc *QueryDesignsUseCase) Mine(ctx context.Context, req ListDesignsRequest) (*ListDesignsResponse, error) {
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}
	list, total, err := uc.repo.ListByUploader(ctx, req.Actor.ID, filter)
	if err != nil {
		return nil, err
	}
	return &ListDesignsResponse{List: list, Total: total, Page: filter.Page}, nil
}

// Active returns the displayed cover of the book.
func (uc *QueryDesignsUseCase) Active(ctx context.Context, actor identity.Actor, bookID uint) (*coverdesign.Design, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	return uc.repo.FindActiveByBook(ctx, bookID)
}

// History returns every version of the book, oldest first.
func (uc *QueryDesignsUseCase) History(ctx context.Context, actor identity.Actor, bookID uint) ([]*coverdesign.Design, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	return uc.repo.VersionHistory(ctx, bookID)
}

func listFilter(req ListDesignsRequest) (coverdesign.ListFilter, error) {
	filter := coverdesign.ListFilter{Page: req.Page.Normalize(shared.DefaultPageSize)}
	if req.Actor.IsZero() {
		return filter, apperrors.ErrUnauthorized
	}
	if s := strings.TrimSpace(req.Status); s != "" {
		filter.Status = coverdesign.Status(strings.ToUpper(s))
		if !filter.Status.Valid() {
			return filter, apperrors.ErrInvalidParams.WithFields(map[string]string{"status": "unknown status"})
		}
	}
	return filter, nil
}
