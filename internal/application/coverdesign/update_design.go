package coverdesign

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

// UpdateDesignUseCase edits the descriptive fields of a design. The active
// cover is frozen for everyone but ADMIN.
type UpdateDesignUseCase struct {
	repo coverdesign.Repository
	tx   shared.Transactor
	now  func() time.Time
}

func NewUpdateDesignUseCase(repo coverdesign.Repository, tx shared.Transactor) *UpdateDesignUseCase {
	return &UpdateDesignUseCase{repo: repo, tx: tx, now: utcNow}
}

type UpdateDesignRequest struct {
	Actor    identity.Actor
	DesignID uint
	Patch    coverdesign.Patch
}

func (uc *UpdateDesignUseCase) Execute(ctx context.Context, req UpdateDesignRequest) (*coverdesign.Design, error) {
	now := uc.now()
	var d *coverdesign.Design
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if d, _, err = lockDesign(ctx, uc.repo, req.DesignID); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverDesignUpdate, string(d.Status), req.Actor, d.DesignerID); err != nil {
			return err
		}
		if err := d.Apply(req.Patch, now); err != nil {
			return err
		}
		return uc.repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(entityName, "update")
	slog.InfoContext(ctx, "cover design updated", "design_id", d.ID, "actor_id", req.Actor.ID)
	return d, nil
}

// DeleteDesignUseCase removes a design that is not the active cover. The
// stored file is removed after the row, best effort.
type DeleteDesignUseCase struct {
	repo  coverdesign.Repository
	tx    shared.Transactor
	store storage.ObjectStore
}

func NewDeleteDesignUseCase(repo coverdesign.Repository, tx shared.Transactor, store storage.ObjectStore) *DeleteDesignUseCase {
	return &DeleteDesignUseCase{repo: repo, tx: tx, store: store}
}

func (uc *DeleteDesignUseCase) Execute(ctx context.Context, actor identity.Actor, id uint) error {
	var d *coverdesign.Design
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if d, _, err = lockDesign(ctx, uc.repo, id); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CoverDesignDelete, string(d.Status), actor, d.UploadedBy); err != nil {
			return err
		}
		if !d.CanBeDeleted() {
			return coverdesign.ErrDeleteActive
		}
		return uc.repo.Delete(ctx, d.ID)
	})
	if err != nil {
		return err
	}

	if d.FileKey != "" {
		if err := uc.store.Delete(ctx, d.FileKey); err != nil {
			slog.WarnContext(ctx, "delete cover file failed", "design_id", d.ID, "key", d.FileKey, "error", err)
		}
	}
	metrics.RecordTransition(entityName, "delete")
	slog.InfoContext(ctx, "cover design deleted", "design_id", d.ID, "book_id", d.BookID, "actor_id", actor.ID)
	return nil
}
