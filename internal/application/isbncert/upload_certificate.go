package isbncert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
	"github.com/xiebiao/pubflow/pkg/saga"
)

// fileLimits bounds certificate scans.
type fileLimits struct {
	min, max int64
}

func newFileLimits(cfg config.WorkflowConfig) fileLimits {
	l := fileLimits{min: cfg.CertificateMinBytes, max: cfg.CertificateMaxBytes}
	if l.min <= 0 {
		l.min = isbncert.DefaultMinFileSize
	}
	if l.max <= 0 {
		l.max = isbncert.DefaultMaxFileSize
	}
	return l
}

// read buffers and checks an uploaded scan.
func (l fileLimits) read(r io.Reader, declared string) (*storage.Content, error) {
	content, err := storage.ReadContent(r, l.max)
	if err != nil {
		if errors.Is(err, storage.ErrContentTooLarge) {
			return nil, isbncert.ErrFileSize
		}
		return nil, apperrors.ErrInvalidParams.WithCause(err)
	}
	if !content.Matches(declared) {
		return nil, isbncert.ErrContentMismatch
	}
	if err := isbncert.ValidateFile(content.MimeType, content.Size(), l.min, l.max); err != nil {
		return nil, err
	}
	return content, nil
}

// UploadCertificateUseCase registers a certificate scan for a book.
//
// Validation runs before anything is stored. The active-ISBN pre-check
// gives a friendly error; the unique index on active_isbn13 settles races.
type UploadCertificateUseCase struct {
	writer
	store     storage.ObjectStore
	publisher events.Publisher
	limits    fileLimits
	timeout   time.Duration
	now       func() time.Time
}

func NewUploadCertificateUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	tx shared.Transactor,
	cache StatisticsCache,
	store storage.ObjectStore,
	publisher events.Publisher,
	cfg config.WorkflowConfig,
) *UploadCertificateUseCase {
	return &UploadCertificateUseCase{
		writer:    writer{certs: certs, audits: audits, tx: tx, cache: cache},
		store:     store,
		publisher: publisher,
		limits:    newFileLimits(cfg),
		timeout:   cfg.UploadSagaTimeout,
		now:       utcNow,
	}
}

type UploadCertificateRequest struct {
	Actor       identity.Actor
	BookID      uint
	Info        isbncert.Info
	File        io.Reader
	FileName    string
	ContentType string
}

func (uc *UploadCertificateUseCase) Execute(ctx context.Context, req UploadCertificateRequest) (*isbncert.Certificate, error) {
	if err := policy.Authorize(policy.CertificateUpload, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	if req.BookID == 0 {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"book_id": "is required"})
	}

	now := uc.now()
	c, err := isbncert.NewCertificate(req.BookID, req.Actor.ID, req.Info, now)
	if err != nil {
		return nil, err
	}
	if req.File == nil {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"certificate": "file is required"})
	}
	content, err := uc.limits.read(req.File, req.ContentType)
	if err != nil {
		return nil, err
	}

	if _, err := uc.certs.FindActiveByISBN(ctx, c.ISBN13, c.ISBN10, 0); err == nil {
		return nil, isbncert.ErrISBNDuplicate
	} else if !errors.Is(err, isbncert.ErrCertificateNotFound) {
		return nil, err
	}

	c.FileName = req.FileName
	c.FileSize = content.Size()
	c.MimeType = content.MimeType
	c.Checksum = content.Checksum()
	c.FileKey = storage.CertificateKey(c.BookID, c.ISBN13, c.FileName, now)

	s := saga.New("certificate_upload", uc.timeout)
	s.AddStep("store file", func(ctx context.Context) error {
		url, err := uc.store.Upload(ctx, c.FileKey, content.Reader(), content.Size(), storage.UploadOptions{
			ContentType: c.MimeType,
			Metadata: map[string]string{
				"book-id":  strconv.FormatUint(uint64(c.BookID), 10),
				"isbn13":   c.ISBN13,
				"checksum": c.Checksum,
			},
		})
		if err != nil {
			return storageError(err)
		}
		c.FileURL = url
		return nil
	}, func(ctx context.Context) error {
		return uc.store.Delete(ctx, c.FileKey)
	})
	s.AddStep("insert row", func(ctx context.Context) error {
		return uc.tx.Transaction(ctx, func(ctx context.Context) error {
			if err := uc.certs.Create(ctx, c); err != nil {
				return err
			}
			return uc.audits.Append(ctx, isbncert.NewAuditLog(c.ID, isbncert.AuditCreated, req.Actor, nil, c.Snapshot(), "", now))
		})
	}, nil)

	if err := s.Execute(ctx); err != nil {
		metrics.RecordUpload("certificate", "failure", 0)
		var stepErr *saga.StepError
		if errors.As(err, &stepErr) && apperrors.IsAppError(stepErr.Err) {
			return nil, stepErr.Err
		}
		return nil, apperrors.ErrInternal.WithCause(err)
	}
	metrics.RecordUpload("certificate", "success", c.FileSize)
	uc.invalidate(ctx)

	slog.InfoContext(ctx, "isbn certificate uploaded",
		"certificate_id", c.ID,
		"book_id", c.BookID,
		"isbn13", c.ISBN13,
		"uploaded_by", c.UploadedBy,
	)
	announce(ctx, uc.publisher, events.CertificateUploaded, "upload", c, req.Actor, now)
	return c, nil
}
