package isbnrequest

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
)

// FulfillRequestUseCase moves a request through assignment, progress,
// completion and cancellation. Each call locks the request row.
type FulfillRequestUseCase struct {
	repo      isbnrequest.Repository
	certs     isbncert.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewFulfillRequestUseCase(repo isbnrequest.Repository, certs isbncert.Repository, tx shared.Transactor, publisher events.Publisher) *FulfillRequestUseCase {
	return &FulfillRequestUseCase{
		repo:      repo,
		certs:     certs,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

// step is one guarded change; owner picks the id that counts as owner.
type step struct {
	op        policy.Operation
	action    string
	eventType string
	owner     func(r *isbnrequest.Request) uint
	apply     func(ctx context.Context, r *isbnrequest.Request, now time.Time) error
}

func assignedPublisher(r *isbnrequest.Request) uint { return r.PublisherIDOrZero() }

func requestAuthor(r *isbnrequest.Request) uint { return r.AuthorID }

func (uc *FulfillRequestUseCase) run(ctx context.Context, actor identity.Actor, id uint, s step) (*isbnrequest.Request, error) {
	now := uc.now()
	var r *isbnrequest.Request
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if r, err = uc.repo.LockByID(ctx, id); err != nil {
			return err
		}
		var owner uint
		if s.owner != nil {
			owner = s.owner(r)
		}
		if err := policy.Authorize(s.op, string(r.Status), actor, owner); err != nil {
			return err
		}
		if err := s.apply(ctx, r, now); err != nil {
			return err
		}
		return uc.repo.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "isbn request transitioned",
		"request_id", r.ID,
		"action", s.action,
		"status", r.Status,
		"actor_id", actor.ID,
	)
	announce(ctx, uc.publisher, s.eventType, s.action, r, actor, now)
	return r, nil
}

// Assign hands a PENDING request to a publisher.
func (uc *FulfillRequestUseCase) Assign(ctx context.Context, actor identity.Actor, id, publisherID uint, notes string) (*isbnrequest.Request, error) {
	if publisherID == 0 {
		return nil, isbnrequest.ErrPublisherRequired
	}
	return uc.run(ctx, actor, id, step{
		op:        policy.IsbnRequestAssign,
		action:    "assign",
		eventType: events.IsbnRequestAssigned,
		apply: func(_ context.Context, r *isbnrequest.Request, now time.Time) error {
			return r.AssignPublisher(publisherID, notes, now)
		},
	})
}

func (uc *FulfillRequestUseCase) Start(ctx context.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
	return uc.run(ctx, actor, id, step{
		op:        policy.IsbnRequestProgress,
		action:    "start",
		eventType: events.IsbnRequestStarted,
		owner:     assignedPublisher,
		apply: func(_ context.Context, r *isbnrequest.Request, now time.Time) error {
			return r.StartProgress(now)
		},
	})
}

func (uc *FulfillRequestUseCase) MarkAcquired(ctx context.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
	return uc.run(ctx, actor, id, step{
		op:        policy.IsbnRequestProgress,
		action:    "acquire",
		eventType: events.IsbnRequestAcquired,
		owner:     assignedPublisher,
		apply: func(_ context.Context, r *isbnrequest.Request, now time.Time) error {
			return r.MarkAcquired(now)
		},
	})
}

// Complete links an active, verified or approved certificate of the same book.
func (uc *FulfillRequestUseCase) Complete(ctx context.Context, actor identity.Actor, id, certificateID uint) (*isbnrequest.Request, error) {
	if certificateID == 0 {
		return nil, isbnrequest.ErrCertificateRequired
	}
	return uc.run(ctx, actor, id, step{
		op:        policy.IsbnRequestComplete,
		action:    "complete",
		eventType: events.IsbnRequestCompleted,
		apply: func(ctx context.Context, r *isbnrequest.Request, now time.Time) error {
			c, err := uc.certs.FindByID(ctx, certificateID)
			if err != nil {
				return err
			}
			if c.BookID != r.BookID {
				return isbnrequest.ErrCertificateMismatch
			}
			if !c.IsUsable(now) {
				return isbnrequest.ErrCertificateNotUsable
			}
			return r.Complete(certificateID, now)
		},
	})
}

func (uc *FulfillRequestUseCase) Cancel(ctx context.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
	return uc.run(ctx, actor, id, step{
		op:        policy.IsbnRequestCancel,
		action:    "cancel",
		eventType: events.IsbnRequestCancelled,
		owner:     requestAuthor,
		apply: func(_ context.Context, r *isbnrequest.Request, now time.Time) error {
			return r.Cancel(now)
		},
	})
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
