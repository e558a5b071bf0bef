package coverdesign

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
)

// ReviewDesignUseCase approves or rejects a design.
type ReviewDesignUseCase struct {
	repo      coverdesign.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewReviewDesignUseCase(repo coverdesign.Repository, tx shared.Transactor, publisher events.Publisher) *ReviewDesignUseCase {
	return &ReviewDesignUseCase{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

// ReviewDesignRequest approves when Approve is set and rejects with Reason otherwise.
type ReviewDesignRequest struct {
	Actor    identity.Actor
	DesignID uint
	Approve  bool
	Reason   string
}

func (uc *ReviewDesignUseCase) Execute(ctx context.Context, req ReviewDesignRequest) (*coverdesign.Design, error) {
	now := uc.now()
	var d *coverdesign.Design
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if d, _, err = lockDesign(ctx, uc.repo, req.DesignID); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverDesignReview, string(d.Status), req.Actor); err != nil {
			return err
		}
		if req.Approve {
			err = d.Approve(req.Actor.ID, now)
		} else {
			err = d.Reject(req.Reason, now)
		}
		if err != nil {
			return err
		}
		return uc.repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	action, eventType := "approve", events.CoverDesignApproved
	if !req.Approve {
		action, eventType = "reject", events.CoverDesignRejected
	}
	slog.InfoContext(ctx, "cover design reviewed",
		"design_id", d.ID,
		"book_id", d.BookID,
		"status", d.Status,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, eventType, action, d, req.Actor, now)
	return d, nil
}
