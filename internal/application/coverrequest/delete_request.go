package coverrequest

import (
	"context"
	"log/slog"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
)

// DeleteRequestUseCase removes a request that no designer has been assigned to.
type DeleteRequestUseCase struct {
	repo      coverrequest.Repository
	tx        shared.Transactor
	publisher events.Publisher
}

func NewDeleteRequestUseCase(repo coverrequest.Repository, tx shared.Transactor, publisher events.Publisher) *DeleteRequestUseCase {
	return &DeleteRequestUseCase{repo: repo, tx: tx, publisher: publisher}
}

func (uc *DeleteRequestUseCase) Execute(ctx context.Context, actor identity.Actor, id uint) error {
	var r *coverrequest.Request
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if r, err = uc.repo.LockByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverRequestDelete, string(r.Status), actor, r.AuthorID); err != nil {
			return err
		}
		if r.Status != coverrequest.StatusOpen {
			return coverrequest.ErrDeleteAfterAssignment
		}
		return uc.repo.Delete(ctx, r.ID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "cover design request deleted", "request_id", id, "actor_id", actor.ID)
	announce(ctx, uc.publisher, events.CoverRequestDeleted, "delete", r, actor, utcNow())
	return nil
}
