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
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// UpdateRequestUseCase applies a partial update. Which fields survive depends
// on who is calling; the rest are dropped without error.
type UpdateRequestUseCase struct {
	repo      coverrequest.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewUpdateRequestUseCase(repo coverrequest.Repository, tx shared.Transactor, publisher events.Publisher) *UpdateRequestUseCase {
	return &UpdateRequestUseCase{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

type UpdateRequestRequest struct {
	Actor     identity.Actor
	RequestID uint
	Patch     coverrequest.Patch
}

func (uc *UpdateRequestUseCase) Execute(ctx context.Context, req UpdateRequestRequest) (*coverrequest.Request, error) {
	if req.Actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}

	now := uc.now()
	var r *coverrequest.Request
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if r, err = uc.repo.LockByID(ctx, req.RequestID); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverRequestUpdate, string(r.Status), req.Actor, r.AuthorID, r.DesignerID()); err != nil {
			return err
		}

		allowed, err := coverrequest.AllowedFields(r, req.Actor)
		if err != nil {
			return err
		}
		patch := req.Patch.Filter(allowed)
		if patch.IsEmpty() {
			return apperrors.ErrNoValidFields
		}

		previous := r.Status
		if err := r.Apply(patch, now); err != nil {
			return err
		}
		if err := uc.repo.Update(ctx, r); err != nil {
			return err
		}

		// sending a submission back through a status edit still costs a revision
		if previous == coverrequest.StatusSubmitted && r.Status == coverrequest.StatusInProgress {
			if err := uc.repo.IncrementRevision(ctx, r.ID); err != nil {
				return err
			}
			r.CurrentRevisions++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cover design request updated",
		"request_id", r.ID,
		"status", r.Status,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, events.CoverRequestUpdated, "update", r, req.Actor, now)
	return r, nil
}
