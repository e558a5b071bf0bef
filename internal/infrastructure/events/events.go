// Package events announces workflow changes to other services. Events are
// published after the change is committed; a failed publish is logged and
// never fails the request that caused it.
package events

import (
	"context"
	"sync"
	"time"
)

// Routing keys. Consumers bind with patterns such as "isbn_certificate.*".
const (
	CoverRequestCreated           = "cover_request.created"
	CoverRequestAssigned          = "cover_request.assigned"
	CoverRequestUpdated           = "cover_request.updated"
	CoverRequestStarted           = "cover_request.started"
	CoverRequestSubmitted         = "cover_request.submitted"
	CoverRequestRevisionRequested = "cover_request.revision_requested"
	CoverRequestApproved          = "cover_request.approved"
	CoverRequestCompleted         = "cover_request.completed"
	CoverRequestCancelled         = "cover_request.cancelled"
	CoverRequestDeleted           = "cover_request.deleted"

	CoverDesignUploaded  = "cover_design.uploaded"
	CoverDesignApproved  = "cover_design.approved"
	CoverDesignRejected  = "cover_design.rejected"
	CoverDesignActivated = "cover_design.activated"

	CertificateUploaded    = "isbn_certificate.uploaded"
	CertificateVerified    = "isbn_certificate.verified"
	CertificateApproved    = "isbn_certificate.approved"
	CertificateRejected    = "isbn_certificate.rejected"
	CertificateResubmitted = "isbn_certificate.resubmitted"

	IsbnRequestCreated   = "isbn_request.created"
	IsbnRequestAssigned  = "isbn_request.assigned"
	IsbnRequestStarted   = "isbn_request.started"
	IsbnRequestAcquired  = "isbn_request.acquired"
	IsbnRequestCompleted = "isbn_request.completed"
	IsbnRequestCancelled = "isbn_request.cancelled"
)

// Event is the message body.
type Event struct {
	Type       string            `json:"type"`
	EntityID   uint              `json:"entity_id"`
	BookID     uint              `json:"book_id,omitempty"`
	ActorID    uint              `json:"actor_id"`
	Status     string            `json:"status,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher is the outbound port of the use cases.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Noop drops every event; it is used when messaging is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of what was published, in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the routing keys published, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
