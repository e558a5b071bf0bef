// Package coverrequest holds the use cases of cover design requests: an
// author asks for a cover, a publisher assigns a designer, the designer
// works through revision rounds until the author approves.
package coverrequest

import (
	"context"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

const entityName = "cover_request"

func utcNow() time.Time {
	return time.Now().UTC()
}

// announce records the transition and publishes its event; call after commit.
func announce(ctx context.Context, publisher events.Publisher, eventType, action string, r *coverrequest.Request, actor identity.Actor, at time.Time) {
	metrics.RecordTransition(entityName, action)
	publisher.Publish(ctx, events.Event{
		Type:       eventType,
		EntityID:   r.ID,
		BookID:     r.BookID,
		ActorID:    actor.ID,
		Status:     string(r.Status),
		OccurredAt: at,
	})
}
