package coverrequest

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
)

// AssignDesignerUseCase (re)assigns the designer of an OPEN or ASSIGNED request.
type AssignDesignerUseCase struct {
	repo      coverrequest.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewAssignDesignerUseCase(repo coverrequest.Repository, tx shared.Transactor, publisher events.Publisher) *AssignDesignerUseCase {
	return &AssignDesignerUseCase{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

type AssignDesignerRequest struct {
	Actor      identity.Actor
	RequestID  uint
	DesignerID uint
}

func (uc *AssignDesignerUseCase) Execute(ctx context.Context, req AssignDesignerRequest) (*coverrequest.Request, error) {
	if req.DesignerID == 0 {
		return nil, coverrequest.ErrDesignerRequired
	}

	now := uc.now()
	var r *coverrequest.Request
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if r, err = uc.repo.LockByID(ctx, req.RequestID); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverRequestAssign, string(r.Status), req.Actor); err != nil {
			return err
		}
		if err := r.AssignDesigner(req.DesignerID, now); err != nil {
			return err
		}
		return uc.repo.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "designer assigned to cover design request",
		"request_id", r.ID,
		"designer_id", req.DesignerID,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, events.CoverRequestAssigned, "assign", r, req.Actor, now)
	return r, nil
}
