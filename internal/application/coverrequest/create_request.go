package coverrequest

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// CreateRequestUseCase opens a cover design request for a book.
type CreateRequestUseCase struct {
	repo      coverrequest.Repository
	publisher events.Publisher
	now       func() time.Time
}

func NewCreateRequestUseCase(repo coverrequest.Repository, publisher events.Publisher) *CreateRequestUseCase {
	return &CreateRequestUseCase{
		repo:      repo,
		publisher: publisher,
		now:       utcNow,
	}
}

// CreateRequestRequest carries the author-supplied fields; AuthorID is taken from Actor.
type CreateRequestRequest struct {
	Actor               identity.Actor
	BookID              uint
	Title               string
	Description         string
	Budget              int64
	DeadlineDate        *time.Time
	Priority            string
	RevisionLimit       *int
	PreferredFormats    []string
	PreferredDimensions string
	MinFileSize         int64
	MaxFileSize         int64
	ConceptBrief        string
	AuthorNotes         string
}

func (uc *CreateRequestUseCase) Execute(ctx context.Context, req CreateRequestRequest) (*coverrequest.Request, error) {
	if err := policy.Authorize(policy.CoverRequestCreate, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	if req.BookID == 0 {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"book_id": "is required"})
	}

	now := uc.now()
	r, err := coverrequest.NewRequest(coverrequest.CreateParams{
		BookID:              req.BookID,
		AuthorID:            req.Actor.ID,
		Title:               req.Title,
		Description:         req.Description,
		Budget:              req.Budget,
		DeadlineDate:        req.DeadlineDate,
		Priority:            req.Priority,
		RevisionLimit:       req.RevisionLimit,
		PreferredFormats:    req.PreferredFormats,
		PreferredDimensions: req.PreferredDimensions,
		MinFileSize:         req.MinFileSize,
		MaxFileSize:         req.MaxFileSize,
		ConceptBrief:        req.ConceptBrief,
		AuthorNotes:         req.AuthorNotes,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cover design request created",
		"request_id", r.ID,
		"book_id", r.BookID,
		"author_id", r.AuthorID,
		"priority", r.Priority,
	)
	announce(ctx, uc.publisher, events.CoverRequestCreated, "create", r, req.Actor, now)
	return r, nil
}
