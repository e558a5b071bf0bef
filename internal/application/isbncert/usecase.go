// Package isbncert holds the ISBN certificate use cases. Every state change
// is written together with its audit entry, and every write first folds a
// passed expiry date into the stored status.
package isbncert

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

const entityName = "isbn_certificate"

func utcNow() time.Time {
	return time.Now().UTC()
}

// StatisticsCache holds the latest statistics snapshot. Get returns nil on a miss.
type StatisticsCache interface {
	Get(ctx context.Context) (*isbncert.Statistics, error)
	Set(ctx context.Context, stats *isbncert.Statistics) error
	Invalidate(ctx context.Context) error
}

func storageError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.ErrStorage.WithCause(err)
}

// writer is shared by the use cases that change a stored certificate.
type writer struct {
	certs  isbncert.Repository
	audits isbncert.AuditRepository
	tx     shared.Transactor
	cache  StatisticsCache
}

// mutation is one guarded change of a certificate.
type mutation struct {
	op     policy.Operation
	action isbncert.AuditAction
	reason string
	apply  func(ctx context.Context, c *isbncert.Certificate, now time.Time) error
}

// mutate locks certificate id, checks m.op against its effective status and
// applies m. When apply fails on a certificate whose expiry was just folded,
// the fold is still committed.
func (w *writer) mutate(ctx context.Context, actor identity.Actor, id uint, now time.Time, m mutation) (*isbncert.Certificate, error) {
	var (
		c        *isbncert.Certificate
		applyErr error
	)
	err := w.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if c, err = w.certs.LockByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Authorize(m.op, string(c.EffectiveStatus(now)), actor, c.UploadedBy); err != nil {
			return err
		}
		folded, err := w.foldExpiry(ctx, c, actor, now)
		if err != nil {
			return err
		}

		before := c.Snapshot()
		if applyErr = m.apply(ctx, c, now); applyErr != nil {
			if folded {
				return nil
			}
			return applyErr
		}
		if err := w.certs.Update(ctx, c); err != nil {
			return err
		}
		return w.audits.Append(ctx, isbncert.NewAuditLog(c.ID, m.action, actor, before, c.Snapshot(), m.reason, now))
	})
	if err != nil {
		return nil, err
	}
	w.invalidate(ctx)
	if applyErr != nil {
		return nil, applyErr
	}
	return c, nil
}

// foldExpiry persists a passed expiry date; call inside the transaction.
func (w *writer) foldExpiry(ctx context.Context, c *isbncert.Certificate, actor identity.Actor, now time.Time) (bool, error) {
	before := c.Snapshot()
	if !c.FoldExpiry(now) {
		return false, nil
	}
	if err := w.certs.Update(ctx, c); err != nil {
		return false, err
	}
	if err := w.audits.Append(ctx, isbncert.NewAuditLog(c.ID, isbncert.AuditExpired, actor, before, c.Snapshot(), "expiry date passed", now)); err != nil {
		return false, err
	}
	metrics.RecordTransition(entityName, "expire")
	slog.InfoContext(ctx, "isbn certificate expired", "certificate_id", c.ID, "isbn13", c.ISBN13)
	return true, nil
}

// invalidate drops cached statistics; a cache failure only costs freshness.
func (w *writer) invalidate(ctx context.Context) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "invalidate certificate statistics failed", "error", err)
	}
}

func announce(ctx context.Context, publisher events.Publisher, eventType, action string, c *isbncert.Certificate, actor identity.Actor, at time.Time) {
	metrics.RecordTransition(entityName, action)
	if eventType == "" {
		return
	}
	publisher.Publish(ctx, events.Event{
		Type:       eventType,
		EntityID:   c.ID,
		BookID:     c.BookID,
		ActorID:    actor.ID,
		Status:     string(c.Status),
		Attributes: map[string]string{"isbn13": c.ISBN13},
		OccurredAt: at,
	})
}
