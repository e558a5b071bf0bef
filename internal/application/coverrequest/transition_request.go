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

// Action is a named move through the request state machine.
type Action string

const (
	ActionStart           Action = "start"
	ActionSubmit          Action = "submit"
	ActionRequestRevision Action = "revision"
	ActionApprove         Action = "approve"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

type actionSpec struct {
	op        policy.Operation
	eventType string
	apply     func(r *coverrequest.Request, now time.Time) error
}

// Start and submit belong to the assigned designer; the author or a
// manager drives the rest.
var actions = map[Action]actionSpec{
	ActionStart: {policy.CoverRequestWork, events.CoverRequestStarted, func(r *coverrequest.Request, now time.Time) error {
		return r.TransitionTo(coverrequest.StatusInProgress, now)
	}},
	ActionSubmit: {policy.CoverRequestWork, events.CoverRequestSubmitted, func(r *coverrequest.Request, now time.Time) error {
		return r.TransitionTo(coverrequest.StatusSubmitted, now)
	}},
	ActionRequestRevision: {policy.CoverRequestReview, events.CoverRequestRevisionRequested, func(r *coverrequest.Request, now time.Time) error {
		if r.Status != coverrequest.StatusSubmitted {
			return coverrequest.ErrInvalidStatusTransition
		}
		return r.RequestRevision(now)
	}},
	ActionApprove: {policy.CoverRequestReview, events.CoverRequestApproved, func(r *coverrequest.Request, now time.Time) error {
		return r.TransitionTo(coverrequest.StatusApproved, now)
	}},
	ActionComplete: {policy.CoverRequestReview, events.CoverRequestCompleted, func(r *coverrequest.Request, now time.Time) error {
		return r.MarkCompleted(now)
	}},
	ActionCancel: {policy.CoverRequestReview, events.CoverRequestCancelled, func(r *coverrequest.Request, now time.Time) error {
		return r.Cancel(now)
	}},
}

// TransitionRequestUseCase runs one Action on a request.
type TransitionRequestUseCase struct {
	repo      coverrequest.Repository
	tx        shared.Transactor
	publisher events.Publisher
	now       func() time.Time
}

func NewTransitionRequestUseCase(repo coverrequest.Repository, tx shared.Transactor, publisher events.Publisher) *TransitionRequestUseCase {
	return &TransitionRequestUseCase{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		now:       utcNow,
	}
}

type TransitionRequestRequest struct {
	Actor     identity.Actor
	RequestID uint
	Action    Action
}

func (uc *TransitionRequestUseCase) Execute(ctx context.Context, req TransitionRequestRequest) (*coverrequest.Request, error) {
	tr, ok := actions[req.Action]
	if !ok {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"action": "unknown action"})
	}

	now := uc.now()
	var r *coverrequest.Request
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if r, err = uc.repo.LockByID(ctx, req.RequestID); err != nil {
			return err
		}

		owner := r.AuthorID
		if tr.op == policy.CoverRequestWork {
			owner = r.DesignerID()
		}
		if err := policy.Authorize(tr.op, string(r.Status), req.Actor, owner); err != nil {
			return err
		}

		if err := tr.apply(r, now); err != nil {
			return err
		}
		if err := uc.repo.Update(ctx, r); err != nil {
			return err
		}
		if req.Action == ActionRequestRevision {
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

	slog.InfoContext(ctx, "cover design request transitioned",
		"request_id", r.ID,
		"action", req.Action,
		"status", r.Status,
		"revisions", r.CurrentRevisions,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, tr.eventType, string(req.Action), r, req.Actor, now)
	return r, nil
}
