package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/pkg/metrics"
	"github.com/xiebiao/pubflow/pkg/tracing"
)

// messagePublisher is satisfied by *mq.Publisher.
type messagePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// BrokerPublisher sends events to the message broker, using the event type
// as routing key.
type BrokerPublisher struct {
	mq      messagePublisher
	timeout time.Duration
}

func NewBrokerPublisher(mq messagePublisher, timeout time.Duration) *BrokerPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &BrokerPublisher{mq: mq, timeout: timeout}
}

// Publish outlives a cancelled request context; the change is already committed.
func (p *BrokerPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	pctx, span := tracing.StartSpan(pctx, "events", "publish "+event.Type)
	err := p.mq.Publish(pctx, event.Type, event)
	tracing.EndSpan(span, err)

	if err != nil {
		metrics.RecordEvent(event.Type, "failure")
		slog.WarnContext(ctx, "publish workflow event failed",
			"type", event.Type,
			"entity_id", event.EntityID,
			"error", err,
		)
		return
	}
	metrics.RecordEvent(event.Type, "success")
}
