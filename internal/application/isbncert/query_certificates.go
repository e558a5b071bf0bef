package isbncert

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbn"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

const (
	defaultPendingLimit = 10
	defaultAuditLimit   = 20
	defaultPresign      = time.Hour
)

// QueryCertificatesUseCase serves the read side. Returned certificates
// report their effective status; expiry is only persisted by writes.
type QueryCertificatesUseCase struct {
	certs   isbncert.Repository
	audits  isbncert.AuditRepository
	cache   StatisticsCache
	store   storage.ObjectStore
	presign time.Duration
	now     func() time.Time
}

func NewQueryCertificatesUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	cache StatisticsCache,
	store storage.ObjectStore,
	cfg config.StorageConfig,
) *QueryCertificatesUseCase {
	presign := cfg.PresignExpiry
	if presign <= 0 {
		presign = defaultPresign
	}
	return &QueryCertificatesUseCase{
		certs:   certs,
		audits:  audits,
		cache:   cache,
		store:   store,
		presign: presign,
		now:     utcNow,
	}
}

// CanViewDetail is true for reviewers and the uploader.
func CanViewDetail(actor identity.Actor, c *isbncert.Certificate) bool {
	return policy.Allows(policy.CertificateView, string(c.Status), actor, c.UploadedBy)
}

type ListCertificatesResponse struct {
	List  []*isbncert.Certificate
	Total int64
	Page  shared.Page
}

// SearchCertificatesRequest filters certificates; dates are inclusive.
type SearchCertificatesRequest struct {
	Actor        identity.Actor
	ISBN         string
	Status       string
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	Page         shared.Page
}

func (uc *QueryCertificatesUseCase) Get(ctx context.Context, actor identity.Actor, id uint) (*isbncert.Certificate, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	c, err := uc.certs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.effective(c), nil
}

func (uc *QueryCertificatesUseCase) ListByBook(ctx context.Context, actor identity.Actor, bookID uint, page shared.Page) (*ListCertificatesResponse, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	page = page.Normalize(shared.DefaultPageSize)
	list, total, err := uc.certs.ListByBook(ctx, bookID, page)
	if err != nil {
		return nil, err
	}
	return uc.response(list, total, page), nil
}

// Mine lists the actor's uploads with the search filters applied.
func (uc *QueryCertificatesUseCase) Mine(ctx context.Context, req SearchCertificatesRequest) (*ListCertificatesResponse, error) {
	if req.Actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	filter, err := searchFilter(req)
	if err != nil {
		return nil, err
	}
	filter.AsOf = uc.now()
	list, total, err := uc.certs.ListByUploader(ctx, req.Actor.ID, filter)
	if err != nil {
		return nil, err
	}
	return uc.response(list, total, filter.Page), nil
}

// Pending is the review queue, oldest first.
func (uc *QueryCertificatesUseCase) Pending(ctx context.Context, actor identity.Actor, page shared.Page) (*ListCertificatesResponse, error) {
	if err := policy.Authorize(policy.CertificateVerify, policy.AnyState, actor); err != nil {
		return nil, err
	}
	page = page.Normalize(defaultPendingLimit)
	list, total, err := uc.certs.ListPending(ctx, page)
	if err != nil {
		return nil, err
	}
	return uc.response(list, total, page), nil
}

func (uc *QueryCertificatesUseCase) Search(ctx context.Context, req SearchCertificatesRequest) (*ListCertificatesResponse, error) {
	if err := policy.Authorize(policy.CertificateSearch, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	filter, err := searchFilter(req)
	if err != nil {
		return nil, err
	}
	filter.AsOf = uc.now()
	list, total, err := uc.certs.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return uc.response(list, total, filter.Page), nil
}

type AuditLogsResponse struct {
	List  []*isbncert.AuditLog
	Total int64
	Page  shared.Page
}

// AuditLogs returns the certificate history, newest first.
func (uc *QueryCertificatesUseCase) AuditLogs(ctx context.Context, actor identity.Actor, id uint, page shared.Page) (*AuditLogsResponse, error) {
	c, err := uc.certs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.CertificateAuditLogs, string(c.Status), actor, c.UploadedBy); err != nil {
		return nil, err
	}
	page = page.Normalize(defaultAuditLimit)
	list, total, err := uc.audits.ListByCertificate(ctx, id, page)
	if err != nil {
		return nil, err
	}
	return &AuditLogsResponse{List: list, Total: total, Page: page}, nil
}

type DownloadResponse struct {
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download issues a presigned URL. Verified and approved certificates are
// readable by every role; other states only by the uploader and managers.
func (uc *QueryCertificatesUseCase) Download(ctx context.Context, actor identity.Actor, id uint) (*DownloadResponse, error) {
	now := uc.now()
	c, err := uc.certs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.CertificateDownload, string(c.EffectiveStatus(now)), actor, c.UploadedBy); err != nil {
		return nil, err
	}
	url, err := uc.store.SignedURL(ctx, c.FileKey, uc.presign)
	if err != nil {
		return nil, storageError(err)
	}
	return &DownloadResponse{
		URL:       url,
		FileName:  c.FileName,
		MimeType:  c.MimeType,
		ExpiresAt: now.Add(uc.presign),
	}, nil
}

// Statistics counts effective statuses. The snapshot is cached when a cache is
// configured and dropped by every write.
func (uc *QueryCertificatesUseCase) Statistics(ctx context.Context, actor identity.Actor) (*isbncert.Statistics, error) {
	if err := policy.Authorize(policy.CertificateStatistics, policy.AnyState, actor); err != nil {
		return nil, err
	}
	if uc.cache != nil {
		stats, err := uc.cache.Get(ctx)
		if err != nil {
			slog.WarnContext(ctx, "read certificate statistics cache failed", "error", err)
		} else if stats != nil {
			return stats, nil
		}
	}

	counts, err := uc.certs.CountByStatus(ctx, uc.now())
	if err != nil {
		return nil, err
	}
	active, err := uc.certs.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	stats := isbncert.NewStatistics(counts, active)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, stats); err != nil {
			slog.WarnContext(ctx, "write certificate statistics cache failed", "error", err)
		}
	}
	return stats, nil
}

func (uc *QueryCertificatesUseCase) effective(c *isbncert.Certificate) *isbncert.Certificate {
	c.Status = c.EffectiveStatus(uc.now())
	return c
}

func (uc *QueryCertificatesUseCase) response(list []*isbncert.Certificate, total int64, page shared.Page) *ListCertificatesResponse {
	for _, c := range list {
		uc.effective(c)
	}
	return &ListCertificatesResponse{List: list, Total: total, Page: page}
}

func searchFilter(req SearchCertificatesRequest) (isbncert.SearchFilter, error) {
	filter := isbncert.SearchFilter{
		ISBN:         isbn.Pattern(req.ISBN),
		UploadedFrom: req.UploadedFrom,
		UploadedTo:   req.UploadedTo,
		Page:         req.Page.Normalize(shared.DefaultPageSize),
	}
	if s := strings.TrimSpace(req.Status); s != "" {
		filter.Status = isbncert.Status(strings.ToUpper(s))
		if !filter.Status.Valid() {
			return filter, apperrors.ErrInvalidParams.WithFields(map[string]string{"status": "unknown status"})
		}
	}
	if filter.UploadedFrom != nil && filter.UploadedTo != nil && filter.UploadedTo.Before(*filter.UploadedFrom) {
		return filter, apperrors.ErrInvalidParams.WithFields(map[string]string{"uploaded_to": "must not be before uploaded_from"})
	}
	return filter, nil
}
