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

// ActivateDesignUseCase makes a design the displayed cover of its book.
//
// Every design of the book is locked first, so two activations for the same
// book run one after the other. The previous active cover is demoted before
// the target is promoted; the unique index on active_book_id rejects any
// interleaving that would leave two active rows.
type ActivateDesignUseCase struct {
	repo      coverdesign.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewActivateDesignUseCase(repo coverdesign.Repository, tx shared.Transactor, publisher events.Publisher) *ActivateDesignUseCase {
	return &ActivateDesignUseCase{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

type ActivateDesignRequest struct {
	Actor    identity.Actor
	BookID   uint
	DesignID uint
}

type ActivateDesignResponse struct {
	Design *coverdesign.Design
	// Demoted lists the designs that lost the active flag.
	Demoted []uint
}

func (uc *ActivateDesignUseCase) Execute(ctx context.Context, req ActivateDesignRequest) (*ActivateDesignResponse, error) {
	now := uc.now()
	res := &ActivateDesignResponse{}
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		d, designs, err := lockDesign(ctx, uc.repo, req.DesignID)
		if err != nil {
			return err
		}
		if d.BookID != req.BookID {
			return coverdesign.ErrWrongBook
		}
		if err := policy.Authorize(policy.CoverDesignActivate, string(d.Status), req.Actor); err != nil {
			return err
		}
		if err := d.Activate(now); err != nil {
			return err
		}

		for _, other := range designs {
			if other.ID == d.ID || (!other.IsActive && other.Status != coverdesign.StatusActive) {
				continue
			}
			other.Demote(now)
			if err := uc.repo.Update(ctx, other); err != nil {
				return err
			}
			res.Demoted = append(res.Demoted, other.ID)
		}
		res.Design = d
		return uc.repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cover design activated",
		"design_id", res.Design.ID,
		"book_id", res.Design.BookID,
		"version", res.Design.Version,
		"demoted", res.Demoted,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, events.CoverDesignActivated, "activate", res.Design, req.Actor, now)
	return res, nil
}
