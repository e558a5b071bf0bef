// Package isbnrequest holds the ISBN request use cases: an author asks for
// an ISBN and an assigned publisher works the request until a certificate
// fulfils it.
package isbnrequest

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

const entityName = "isbn_request"

func utcNow() time.Time {
	return time.Now().UTC()
}

type CreateRequestUseCase struct {
	repo      isbnrequest.Repository
	publisher events.Publisher
	now       func() time.Time
}

func NewCreateRequestUseCase(repo isbnrequest.Repository, publisher events.Publisher) *CreateRequestUseCase {
	return &CreateRequestUseCase{repo: repo, publisher: publisher, now: utcNow}
}

// CreateRequestRequest wraps the author-supplied fields; BookID and
// AuthorID in Params are overwritten from the route and the actor.
type CreateRequestRequest struct {
	Actor  identity.Actor
	BookID uint
	Params isbnrequest.CreateParams
}

func (uc *CreateRequestUseCase) Execute(ctx context.Context, req CreateRequestRequest) (*isbnrequest.Request, error) {
	if err := policy.Authorize(policy.IsbnRequestCreate, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	if req.BookID == 0 {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"book_id": "is required"})
	}

	now := uc.now()
	p := req.Params
	p.BookID = req.BookID
	p.AuthorID = req.Actor.ID
	r, err := isbnrequest.NewRequest(p, now)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "isbn request created",
		"request_id", r.ID,
		"book_id", r.BookID,
		"format", r.Format,
		"author_id", r.AuthorID,
	)
	announce(ctx, uc.publisher, events.IsbnRequestCreated, "create", r, req.Actor, now)
	return r, nil
}

func announce(ctx context.Context, publisher events.Publisher, eventType, action string, r *isbnrequest.Request, actor identity.Actor, at time.Time) {
	metrics.RecordTransition(entityName, action)
	ev := events.Event{
		Type:       eventType,
		EntityID:   r.ID,
		BookID:     r.BookID,
		ActorID:    actor.ID,
		Status:     string(r.Status),
		OccurredAt: at,
	}
	if r.IsbnCertificateID != nil {
		ev.Attributes = map[string]string{"isbn_certificate_id": uintString(*r.IsbnCertificateID)}
	}
	publisher.Publish(ctx, ev)
}
