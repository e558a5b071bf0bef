// Package coverdesign holds the cover design use cases: upload, review,
// activation and the per-book queries.
package coverdesign

import (
	"context"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

const entityName = "cover_design"

func utcNow() time.Time {
	return time.Now().UTC()
}

func announce(ctx context.Context, publisher events.Publisher, eventType, action string, d *coverdesign.Design, actor identity.Actor, at time.Time) {
	metrics.RecordTransition(entityName, action)
	publisher.Publish(ctx, events.Event{
		Type:       eventType,
		EntityID:   d.ID,
		BookID:     d.BookID,
		ActorID:    actor.ID,
		Status:     string(d.Status),
		OccurredAt: at,
	})
}

// lockDesign loads design id together with row locks on every design of its
// book, so review, update and delete serialize with activation.
func lockDesign(ctx context.Context, repo coverdesign.Repository, id uint) (*coverdesign.Design, []*coverdesign.Design, error) {
	d, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	designs, err := repo.LockByBook(ctx, d.BookID)
	if err != nil {
		return nil, nil, err
	}
	for _, locked := range designs {
		if locked.ID == id {
			return locked, designs, nil
		}
	}
	return nil, nil, coverdesign.ErrDesignNotFound
}

// storageError keeps AppErrors from the store and types anything else as a
// storage failure.
func storageError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.ErrStorage.WithCause(err)
}
