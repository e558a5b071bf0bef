package coverdesign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
	"github.com/xiebiao/pubflow/pkg/saga"
)

// UploadDesignUseCase stores a new cover version of a book.
//
// The steps span the database and the object store, so they run as a saga:
// reserve a version, store the file, insert the row. A failed insert deletes
// the stored file; a reserved version is never reused.
type UploadDesignUseCase struct {
	designs     coverdesign.Repository
	requests    coverrequest.Repository
	store       storage.ObjectStore
	thumbnailer storage.Thumbnailer
	publisher   events.Publisher
	maxBytes    int64
	timeout     time.Duration
	now         func() time.Time
}

func NewUploadDesignUseCase(
	designs coverdesign.Repository,
	requests coverrequest.Repository,
	store storage.ObjectStore,
	thumbnailer storage.Thumbnailer,
	publisher events.Publisher,
	cfg config.WorkflowConfig,
) *UploadDesignUseCase {
	maxBytes := cfg.CoverMaxBytes
	if maxBytes <= 0 {
		maxBytes = coverdesign.MaxFileSize
	}
	return &UploadDesignUseCase{
		designs:     designs,
		requests:    requests,
		store:       store,
		thumbnailer: thumbnailer,
		publisher:   publisher,
		maxBytes:    maxBytes,
		timeout:     cfg.UploadSagaTimeout,
		now:         utcNow,
	}
}

// DesignInfo is the descriptive part of an upload.
type DesignInfo struct {
	Title             string
	Description       string
	DesignConcept     string
	ColorScheme       string
	Style             string
	TargetAudience    string
	DesignNotes       string
	DesignerName      string
	DesignerEmail     string
	DesignerPortfolio string
}

// UploadDesignRequest describes one upload. Width and Height are the
// client-declared dimensions, consulted only when the image header cannot be
// decoded; zero means unknown.
type UploadDesignRequest struct {
	Actor       identity.Actor
	BookID      uint
	RequestID   *uint
	DesignerID  uint
	File        io.Reader
	FileName    string
	ContentType string
	Width       int
	Height      int
	Info        DesignInfo
}

func (uc *UploadDesignUseCase) Execute(ctx context.Context, req UploadDesignRequest) (*coverdesign.Design, error) {
	if err := policy.Authorize(policy.CoverDesignUpload, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	if req.BookID == 0 {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"book_id": "is required"})
	}
	if req.File == nil {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"cover": "file is required"})
	}

	content, err := storage.ReadContent(req.File, uc.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrContentTooLarge) {
			return nil, coverdesign.ErrFileTooLarge
		}
		return nil, apperrors.ErrInvalidParams.WithCause(err)
	}
	if !content.Matches(req.ContentType) {
		return nil, coverdesign.ErrContentMismatch
	}
	width, height, err := resolveDimensions(content, req.Width, req.Height)
	if err != nil {
		return nil, err
	}
	if err := coverdesign.ValidateFile(content.MimeType, content.Size(), uc.maxBytes, width, height); err != nil {
		return nil, err
	}

	if req.RequestID != nil {
		if err := uc.checkRequest(ctx, *req.RequestID, req.BookID, req.Actor); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	d := coverdesign.NewDesign(req.BookID, req.Actor.ID, req.DesignerID, 0, now)
	d.RequestID = req.RequestID
	d.FileName = req.FileName
	d.FileSize = content.Size()
	d.MimeType = content.MimeType
	d.Width, d.Height = width, height
	if patch := infoPatch(req.Info); !patch.IsEmpty() {
		if err := d.Apply(patch, now); err != nil {
			return nil, err
		}
	}

	s := saga.New("cover_upload", uc.timeout)
	s.AddStep("reserve version", func(ctx context.Context) error {
		version, err := uc.designs.NextVersion(ctx, d.BookID)
		d.Version = version
		return err
	}, nil)
	s.AddStep("store file", func(ctx context.Context) error {
		d.FileKey = storage.CoverKey(d.BookID, d.Version, d.FileName, now)
		url, err := uc.store.Upload(ctx, d.FileKey, content.Reader(), content.Size(), storage.UploadOptions{
			ContentType: content.MimeType,
			Metadata: map[string]string{
				"book-id": strconv.FormatUint(uint64(d.BookID), 10),
				"version": strconv.Itoa(d.Version),
			},
		})
		if err != nil {
			return storageError(err)
		}
		d.FileURL = url
		d.ThumbnailURL = uc.thumbnail(ctx, d)
		return nil
	}, func(ctx context.Context) error {
		return uc.store.Delete(ctx, d.FileKey)
	})
	s.AddStep("insert row", func(ctx context.Context) error {
		return uc.designs.Create(ctx, d)
	}, nil)

	if err := s.Execute(ctx); err != nil {
		metrics.RecordUpload("cover", "failure", 0)
		var stepErr *saga.StepError
		if errors.As(err, &stepErr) && apperrors.IsAppError(stepErr.Err) {
			return nil, stepErr.Err
		}
		return nil, apperrors.ErrInternal.WithCause(err)
	}
	metrics.RecordUpload("cover", "success", d.FileSize)

	slog.InfoContext(ctx, "cover design uploaded",
		"design_id", d.ID,
		"book_id", d.BookID,
		"version", d.Version,
		"uploaded_by", d.UploadedBy,
		"size", d.FileSize,
	)
	announce(ctx, uc.publisher, events.CoverDesignUploaded, "upload", d, req.Actor, now)
	return d, nil
}

// checkRequest verifies the linked request can take this submission.
func (uc *UploadDesignUseCase) checkRequest(ctx context.Context, requestID, bookID uint, actor identity.Actor) error {
	r, err := uc.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if r.BookID != bookID {
		return coverdesign.ErrRequestMismatch
	}
	if !r.Status.AcceptsSubmissions() {
		return coverdesign.ErrRequestClosed
	}
	if actor.HasRole(identity.RoleDesigner) && !r.IsAssignedDesigner(actor.ID) {
		return coverdesign.ErrNotAssignedDesigner
	}
	return nil
}

// thumbnail is best effort; a failure leaves the URL empty.
func (uc *UploadDesignUseCase) thumbnail(ctx context.Context, d *coverdesign.Design) string {
	if uc.thumbnailer == nil {
		return ""
	}
	url, err := uc.thumbnailer.Thumbnail(d.FileKey, d.FileURL)
	if err != nil {
		slog.WarnContext(ctx, "cover thumbnail failed", "book_id", d.BookID, "key", d.FileKey, "error", err)
		return ""
	}
	return url
}

func infoPatch(info DesignInfo) coverdesign.Patch {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return coverdesign.Patch{
		Title:             opt(info.Title),
		Description:       opt(info.Description),
		DesignConcept:     opt(info.DesignConcept),
		ColorScheme:       opt(info.ColorScheme),
		Style:             opt(info.Style),
		TargetAudience:    opt(info.TargetAudience),
		DesignNotes:       opt(info.DesignNotes),
		DesignerName:      opt(info.DesignerName),
		DesignerEmail:     opt(info.DesignerEmail),
		DesignerPortfolio: opt(info.DesignerPortfolio),
	}
}

// resolveDimensions prefers the decoded image header. Declared values are
// only used for formats the header decoder cannot read, and must agree with
// the decoded size otherwise.
func resolveDimensions(content *storage.Content, declaredW, declaredH int) (int, int, error) {
	w, h := content.Dimensions()
	if w == 0 && h == 0 {
		return declaredW, declaredH, nil
	}
	if (declaredW != 0 || declaredH != 0) && (declaredW != w || declaredH != h) {
		return 0, 0, coverdesign.ErrDimensionsMismatch
	}
	return w, h, nil
}
