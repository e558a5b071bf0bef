package isbncert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

// ResubmitCertificateUseCase sends a rejected certificate back to review,
// optionally with a new scan.
type ResubmitCertificateUseCase struct {
	writer
	store     storage.ObjectStore
	publisher events.Publisher
	limits    fileLimits
	now       func() time.Time
}

func NewResubmitCertificateUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	tx shared.Transactor,
	cache StatisticsCache,
	store storage.ObjectStore,
	publisher events.Publisher,
	cfg config.WorkflowConfig,
) *ResubmitCertificateUseCase {
	return &ResubmitCertificateUseCase{
		writer:    writer{certs: certs, audits: audits, tx: tx, cache: cache},
		store:     store,
		publisher: publisher,
		limits:    newFileLimits(cfg),
		now:       utcNow,
	}
}

// ResubmitCertificateRequest replaces the file when File is set.
type ResubmitCertificateRequest struct {
	Actor         identity.Actor
	CertificateID uint
	Notes         string
	File          io.Reader
	FileName      string
	ContentType   string
}

func (uc *ResubmitCertificateUseCase) Execute(ctx context.Context, req ResubmitCertificateRequest) (*isbncert.Certificate, error) {
	now := uc.now()

	var (
		content *storage.Content
		newKey  string
		newURL  string
		oldKey  string
	)
	if req.File != nil {
		current, err := uc.certs.FindByID(ctx, req.CertificateID)
		if err != nil {
			return nil, err
		}
		if err := policy.Authorize(policy.CertificateResubmit, string(current.EffectiveStatus(now)), req.Actor, current.UploadedBy); err != nil {
			return nil, err
		}
		if content, err = uc.limits.read(req.File, req.ContentType); err != nil {
			return nil, err
		}
		newKey = storage.CertificateKey(current.BookID, current.ISBN13, req.FileName, now)
		newURL, err = uc.store.Upload(ctx, newKey, content.Reader(), content.Size(), storage.UploadOptions{ContentType: content.MimeType})
		if err != nil {
			return nil, storageError(err)
		}
	}

	c, err := uc.mutate(ctx, req.Actor, req.CertificateID, now, mutation{
		op:     policy.CertificateResubmit,
		action: isbncert.AuditResubmitted,
		reason: req.Notes,
		apply: func(_ context.Context, c *isbncert.Certificate, now time.Time) error {
			if err := c.Resubmit(req.Notes, now); err != nil {
				return err
			}
			if content != nil {
				oldKey = c.FileKey
				c.FileKey = newKey
				c.FileURL = newURL
				c.FileName = req.FileName
				c.FileSize = content.Size()
				c.MimeType = content.MimeType
				c.Checksum = content.Checksum()
			}
			return nil
		},
	})
	if err != nil {
		if newKey != "" {
			uc.removeFile(ctx, newKey)
		}
		return nil, err
	}
	if oldKey != "" && oldKey != newKey {
		uc.removeFile(ctx, oldKey)
	}

	slog.InfoContext(ctx, "isbn certificate resubmitted",
		"certificate_id", c.ID,
		"new_file", content != nil,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, events.CertificateResubmitted, "resubmit", c, req.Actor, now)
	return c, nil
}

func (uc *ResubmitCertificateUseCase) removeFile(ctx context.Context, key string) {
	if err := uc.store.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "delete certificate file failed", "key", key, "error", err)
	}
}

// SetCertificateActiveUseCase deactivates or reactivates a certificate.
// Reactivation fails when another active certificate holds the ISBN.
type SetCertificateActiveUseCase struct {
	writer
	now func() time.Time
}

func NewSetCertificateActiveUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	tx shared.Transactor,
	cache StatisticsCache,
) *SetCertificateActiveUseCase {
	return &SetCertificateActiveUseCase{
		writer: writer{certs: certs, audits: audits, tx: tx, cache: cache},
		now:    utcNow,
	}
}

type SetCertificateActiveRequest struct {
	Actor         identity.Actor
	CertificateID uint
	Active        bool
	Reason        string
}

func (uc *SetCertificateActiveUseCase) Execute(ctx context.Context, req SetCertificateActiveRequest) (*isbncert.Certificate, error) {
	m := mutation{
		op:     policy.CertificateDeactivate,
		action: isbncert.AuditDeactivated,
		reason: req.Reason,
		apply: func(_ context.Context, c *isbncert.Certificate, now time.Time) error {
			return c.Deactivate(now)
		},
	}
	if req.Active {
		m.action = isbncert.AuditReactivated
		m.apply = func(ctx context.Context, c *isbncert.Certificate, now time.Time) error {
			if _, err := uc.certs.FindActiveByISBN(ctx, c.ISBN13, c.ISBN10, c.ID); err == nil {
				return isbncert.ErrISBNDuplicate
			} else if !errors.Is(err, isbncert.ErrCertificateNotFound) {
				return err
			}
			return c.Reactivate(now)
		}
	}

	c, err := uc.mutate(ctx, req.Actor, req.CertificateID, uc.now(), m)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(entityName, string(m.action))
	slog.InfoContext(ctx, "isbn certificate activity changed",
		"certificate_id", c.ID,
		"active", c.IsActive,
		"actor_id", req.Actor.ID,
	)
	return c, nil
}

// DeleteCertificateUseCase removes PENDING and REJECTED certificates with
// their file; reviewed ones are only deactivated so their history survives.
type DeleteCertificateUseCase struct {
	writer
	store storage.ObjectStore
	now   func() time.Time
}

func NewDeleteCertificateUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	tx shared.Transactor,
	cache StatisticsCache,
	store storage.ObjectStore,
) *DeleteCertificateUseCase {
	return &DeleteCertificateUseCase{
		writer: writer{certs: certs, audits: audits, tx: tx, cache: cache},
		store:  store,
		now:    utcNow,
	}
}

type DeleteCertificateResponse struct {
	// Removed is false when the certificate was only deactivated.
	Removed bool `json:"removed"`
}

func (uc *DeleteCertificateUseCase) Execute(ctx context.Context, actor identity.Actor, id uint) (*DeleteCertificateResponse, error) {
	now := uc.now()
	var (
		c       *isbncert.Certificate
		removed bool
	)
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if c, err = uc.certs.LockByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Authorize(policy.CertificateDelete, string(c.EffectiveStatus(now)), actor, c.UploadedBy); err != nil {
			return err
		}
		if _, err := uc.foldExpiry(ctx, c, actor, now); err != nil {
			return err
		}

		before := c.Snapshot()
		if c.IsRemovable() {
			removed = true
			if err := uc.audits.Append(ctx, isbncert.NewAuditLog(c.ID, isbncert.AuditDeleted, actor, before, nil, "", now)); err != nil {
				return err
			}
			return uc.certs.Delete(ctx, c.ID)
		}

		if err := c.Deactivate(now); err != nil {
			return err
		}
		if err := uc.certs.Update(ctx, c); err != nil {
			return err
		}
		return uc.audits.Append(ctx, isbncert.NewAuditLog(c.ID, isbncert.AuditDeactivated, actor, before, c.Snapshot(), "deleted by administrator", now))
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx)

	if removed && c.FileKey != "" {
		if err := uc.store.Delete(ctx, c.FileKey); err != nil {
			slog.WarnContext(ctx, "delete certificate file failed", "certificate_id", c.ID, "key", c.FileKey, "error", err)
		}
	}
	metrics.RecordTransition(entityName, "delete")
	slog.InfoContext(ctx, "isbn certificate deleted",
		"certificate_id", c.ID,
		"removed", removed,
		"actor_id", actor.ID,
	)
	return &DeleteCertificateResponse{Removed: removed}, nil
}
