package coverdesign

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	requestapp "github.com/xiebiao/pubflow/internal/application/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database/databasetest"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	author    = identity.Actor{ID: 10, Role: identity.RoleAuthor}
	admin     = identity.Actor{ID: 1, Role: identity.RoleAdmin}
	publisher = identity.Actor{ID: 2, Role: identity.RolePublisher}
	editor    = identity.Actor{ID: 3, Role: identity.RoleEditor}
	designer  = identity.Actor{ID: 42, Role: identity.RoleDesigner}
	stranger  = identity.Actor{ID: 43, Role: identity.RoleDesigner}
	reader    = identity.Actor{ID: 50, Role: identity.RoleReader}
)

type fixture struct {
	designs  coverdesign.Repository
	requests coverrequest.Repository
	tx       *database.TxManager
	store    *storage.MemoryStore
	recorder *events.Recorder
	upload   *UploadDesignUseCase
	review   *ReviewDesignUseCase
	activate *ActivateDesignUseCase
	update   *UpdateDesignUseCase
	remove   *DeleteDesignUseCase
	query    *QueryDesignsUseCase
}

type stubThumbnailer struct{ err error }

func (s stubThumbnailer) Thumbnail(key, fileURL string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "thumb://" + key, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	f := &fixture{
		designs:  database.NewCoverDesignRepository(db),
		requests: database.NewCoverRequestRepository(db),
		tx:       database.NewTxManager(db),
		store:    storage.NewMemoryStore(""),
		recorder: &events.Recorder{},
	}
	f.upload = NewUploadDesignUseCase(f.designs, f.requests, f.store, stubThumbnailer{}, f.recorder, config.WorkflowConfig{CoverMaxBytes: 10 << 20})
	f.review = NewReviewDesignUseCase(f.designs, f.tx, f.recorder)
	f.activate = NewActivateDesignUseCase(f.designs, f.tx, f.recorder)
	f.update = NewUpdateDesignUseCase(f.designs, f.tx)
	f.remove = NewDeleteDesignUseCase(f.designs, f.tx, f.store)
	f.query = NewQueryDesignsUseCase(f.designs)

	clock := func() time.Time { return now }
	f.upload.now = clock
	f.review.now = clock
	f.activate.now = clock
	f.update.now = clock
	return f
}

func coverPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func (f *fixture) uploadAs(t *testing.T, actor identity.Actor, bookID uint) *coverdesign.Design {
	t.Helper()
	d, err := f.upload.Execute(context.Background(), UploadDesignRequest{
		Actor:       actor,
		BookID:      bookID,
		File:        bytes.NewReader(coverPNG(t, 320, 480)),
		FileName:    "cover.png",
		ContentType: "image/png",
		Info:        DesignInfo{Title: "Nebula", DesignerEmail: "art@example.com"},
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) approve(t *testing.T, id uint) {
	t.Helper()
	_, err := f.review.Execute(context.Background(), ReviewDesignRequest{Actor: editor, DesignID: id, Approve: true})
	require.NoError(t, err)
}

func TestUploadDesign(t *testing.T) {
	f := newFixture(t)

	first := f.uploadAs(t, author, 7)
	second := f.uploadAs(t, author, 7)
	other := f.uploadAs(t, author, 8)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, other.Version)

	assert.Equal(t, coverdesign.StatusSubmitted, first.Status)
	assert.Equal(t, author.ID, first.DesignerID)
	assert.Equal(t, "image/png", first.MimeType)
	assert.Equal(t, "320x480", first.Dimensions())
	assert.Equal(t, "Nebula", first.Title)
	assert.Equal(t, "thumb://"+first.FileKey, first.ThumbnailURL)

	obj, ok := f.store.Object(first.FileKey)
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, 3, f.store.Len())
}

func TestUploadDesign_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  UploadDesignRequest
		want error
	}{
		{"reader role", UploadDesignRequest{Actor: reader, BookID: 7, File: bytes.NewReader(coverPNG(t, 320, 480))}, apperrors.ErrForbidden},
		{"too small", UploadDesignRequest{Actor: author, BookID: 7, File: bytes.NewReader(coverPNG(t, 200, 200))}, coverdesign.ErrDimensionsTooSmall},
		{"declared differs from image", UploadDesignRequest{Actor: author, BookID: 7, Width: 100, Height: 100, File: bytes.NewReader(coverPNG(t, 320, 480))}, coverdesign.ErrDimensionsMismatch},
		{"small image declared large", UploadDesignRequest{Actor: author, BookID: 7, Width: 300, Height: 400, File: bytes.NewReader(coverPNG(t, 10, 10))}, coverdesign.ErrDimensionsMismatch},
		{"not an image", UploadDesignRequest{Actor: author, BookID: 7, File: bytes.NewReader([]byte("%PDF-1.4 plain document"))}, coverdesign.ErrInvalidFileType},
		{"type mismatch", UploadDesignRequest{Actor: author, BookID: 7, ContentType: "image/jpeg", File: bytes.NewReader(coverPNG(t, 320, 480))}, coverdesign.ErrContentMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.upload.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	f.upload.maxBytes = 64
	_, err := f.upload.Execute(ctx, UploadDesignRequest{Actor: author, BookID: 7, File: bytes.NewReader(coverPNG(t, 320, 480))})
	assert.ErrorIs(t, err, coverdesign.ErrFileTooLarge)

	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.recorder.Types())
}

func TestUploadDesign_DecodedDimensions(t *testing.T) {
	f := newFixture(t)

	d, err := f.upload.Execute(context.Background(), UploadDesignRequest{
		Actor:       author,
		BookID:      7,
		File:        bytes.NewReader(coverPNG(t, 320, 480)),
		ContentType: "image/png",
		Width:       320,
		Height:      480,
	})
	require.NoError(t, err)
	assert.Equal(t, "320x480", d.Dimensions())

	stored, err := f.designs.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 320, stored.Width)
	assert.Equal(t, 480, stored.Height)
}

func TestUploadDesign_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailUploads = errors.New("bucket unreachable")

	_, err := f.upload.Execute(context.Background(), UploadDesignRequest{
		Actor: author, BookID: 7, File: bytes.NewReader(coverPNG(t, 320, 480)),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStorage, apperrors.GetAppError(err).Code)

	list, err := f.query.ListByBook(context.Background(), 7, ListDesignsRequest{Actor: author})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

type failingCreate struct {
	coverdesign.Repository
}

func (failingCreate) Create(context.Context, *coverdesign.Design) error {
	return apperrors.ErrDatabaseError
}

func TestUploadDesign_InsertFailureRemovesFile(t *testing.T) {
	f := newFixture(t)
	f.upload.designs = failingCreate{f.designs}

	_, err := f.upload.Execute(context.Background(), UploadDesignRequest{
		Actor: author, BookID: 7, File: bytes.NewReader(coverPNG(t, 320, 480)),
	})
	assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
	assert.Zero(t, f.store.Len())
}

func TestUploadDesign_ThumbnailFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.upload.thumbnailer = stubThumbnailer{err: errors.New("proxy down")}

	d := f.uploadAs(t, author, 7)
	assert.Empty(t, d.ThumbnailURL)
	assert.NotEmpty(t, d.FileURL)
}

func TestUploadDesign_ConcurrentVersions(t *testing.T) {
	f := newFixture(t)

	const n = 6
	data := coverPNG(t, 320, 480)
	versions := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := f.upload.Execute(context.Background(), UploadDesignRequest{
				Actor: author, BookID: 7, File: bytes.NewReader(data),
			})
			if assert.NoError(t, err) {
				versions <- d.Version
			}
		}()
	}
	wg.Wait()
	close(versions)

	seen := map[int]bool{}
	for v := range versions {
		assert.False(t, seen[v], "version %d assigned twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}

func TestReviewDesign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.uploadAs(t, author, 7)

	_, err := f.review.Execute(ctx, ReviewDesignRequest{Actor: author, DesignID: d.ID, Approve: true})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.review.Execute(ctx, ReviewDesignRequest{Actor: editor, DesignID: d.ID, Reason: "  "})
	assert.ErrorIs(t, err, coverdesign.ErrRejectionReasonRequired)

	got, err := f.review.Execute(ctx, ReviewDesignRequest{Actor: editor, DesignID: d.ID, Reason: "Title is unreadable"})
	require.NoError(t, err)
	assert.Equal(t, coverdesign.StatusRejected, got.Status)
	assert.Equal(t, "Title is unreadable", got.RejectionReason)

	got, err = f.review.Execute(ctx, ReviewDesignRequest{Actor: publisher, DesignID: d.ID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, coverdesign.StatusApproved, got.Status)
	assert.Empty(t, got.RejectionReason)

	_, err = f.review.Execute(ctx, ReviewDesignRequest{Actor: admin, DesignID: 999, Approve: true})
	assert.ErrorIs(t, err, coverdesign.ErrDesignNotFound)
}

func TestActivateDesign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.uploadAs(t, author, 7)
	second := f.uploadAs(t, author, 7)
	foreign := f.uploadAs(t, author, 8)

	_, err := f.activate.Execute(ctx, ActivateDesignRequest{Actor: author, BookID: 7, DesignID: first.ID})
	assert.ErrorIs(t, err, coverdesign.ErrNotApproved)

	f.approve(t, first.ID)
	f.approve(t, second.ID)
	f.approve(t, foreign.ID)

	_, err = f.activate.Execute(ctx, ActivateDesignRequest{Actor: editor, BookID: 7, DesignID: first.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.activate.Execute(ctx, ActivateDesignRequest{Actor: author, BookID: 7, DesignID: foreign.ID})
	assert.ErrorIs(t, err, coverdesign.ErrWrongBook)

	res, err := f.activate.Execute(ctx, ActivateDesignRequest{Actor: author, BookID: 7, DesignID: first.ID})
	require.NoError(t, err)
	assert.Empty(t, res.Demoted)
	assert.True(t, res.Design.IsActive)
	assert.Equal(t, coverdesign.StatusActive, res.Design.Status)

	res, err = f.activate.Execute(ctx, ActivateDesignRequest{Actor: publisher, BookID: 7, DesignID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, res.Demoted)

	active, err := f.query.Active(ctx, reader, 7)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	prev, err := f.query.Get(ctx, admin, first.ID)
	require.NoError(t, err)
	assert.False(t, prev.IsActive)
	assert.Equal(t, coverdesign.StatusApproved, prev.Status)

	// the active cover cannot be rejected or deleted
	_, err = f.review.Execute(ctx, ReviewDesignRequest{Actor: admin, DesignID: second.ID, Reason: "changed our mind"})
	assert.ErrorIs(t, err, coverdesign.ErrRejectActive)
	assert.ErrorIs(t, f.remove.Execute(ctx, admin, second.ID), coverdesign.ErrDeleteActive)
}

func TestActivateDesign_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []uint
	for i := 0; i < 4; i++ {
		d := f.uploadAs(t, author, 7)
		f.approve(t, d.ID)
		ids = append(ids, d.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.activate.Execute(ctx, ActivateDesignRequest{Actor: admin, BookID: 7, DesignID: id})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	history, err := f.query.History(ctx, admin, 7)
	require.NoError(t, err)
	active := 0
	for _, d := range history {
		if d.IsActive {
			active++
			assert.Equal(t, coverdesign.StatusActive, d.Status)
		}
	}
	assert.Equal(t, 1, active)
}

func TestUpdateDesign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.uploadAs(t, designer, 7)

	style := "minimalist"
	got, err := f.update.Execute(ctx, UpdateDesignRequest{Actor: designer, DesignID: d.ID, Patch: coverdesign.Patch{Style: &style}})
	require.NoError(t, err)
	assert.Equal(t, style, got.Style)

	_, err = f.update.Execute(ctx, UpdateDesignRequest{Actor: stranger, DesignID: d.ID, Patch: coverdesign.Patch{Style: &style}})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.update.Execute(ctx, UpdateDesignRequest{Actor: designer, DesignID: d.ID})
	assert.ErrorIs(t, err, apperrors.ErrNoValidFields)

	f.approve(t, d.ID)
	_, err = f.activate.Execute(ctx, ActivateDesignRequest{Actor: admin, BookID: 7, DesignID: d.ID})
	require.NoError(t, err)

	// the active cover is frozen for everyone but ADMIN
	_, err = f.update.Execute(ctx, UpdateDesignRequest{Actor: designer, DesignID: d.ID, Patch: coverdesign.Patch{Style: &style}})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.update.Execute(ctx, UpdateDesignRequest{Actor: publisher, DesignID: d.ID, Patch: coverdesign.Patch{Style: &style}})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.update.Execute(ctx, UpdateDesignRequest{Actor: admin, DesignID: d.ID, Patch: coverdesign.Patch{Style: &style}})
	assert.NoError(t, err)
}

func TestDeleteDesign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.uploadAs(t, author, 7)

	assert.ErrorIs(t, f.remove.Execute(ctx, designer, d.ID), apperrors.ErrForbidden)
	require.NoError(t, f.remove.Execute(ctx, author, d.ID))

	_, err := f.query.Get(ctx, admin, d.ID)
	assert.ErrorIs(t, err, coverdesign.ErrDesignNotFound)
	assert.Zero(t, f.store.Len())
}

func TestQueryDesigns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.uploadAs(t, author, 7)
	f.uploadAs(t, author, 7)

	assert.True(t, CanViewDetail(author, d))
	assert.True(t, CanViewDetail(editor, d))
	assert.False(t, CanViewDetail(reader, d))

	list, err := f.query.ListByBook(ctx, 7, ListDesignsRequest{Actor: reader})
	require.NoError(t, err)
	require.Len(t, list.List, 2)
	assert.Equal(t, 2, list.List[0].Version)

	mine, err := f.query.Mine(ctx, ListDesignsRequest{Actor: author, Status: "submitted"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	_, err = f.query.Mine(ctx, ListDesignsRequest{Actor: author, Status: "IN_REVIEW"})
	assert.Error(t, err)

	_, err = f.query.Active(ctx, reader, 7)
	assert.ErrorIs(t, err, coverdesign.ErrDesignNotFound)
}

// An author asks for a cover, an admin assigns designer 42, the designer
// uploads against the request, the admin approves and the author activates.
func TestCoverWorkflowScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	create := requestapp.NewCreateRequestUseCase(f.requests, f.recorder)
	assign := requestapp.NewAssignDesignerUseCase(f.requests, f.tx, f.recorder)

	r, err := create.Execute(ctx, requestapp.CreateRequestRequest{Actor: author, BookID: 7, Title: "Space Opera Cover", Priority: "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, coverrequest.StatusOpen, r.Status)

	r, err = assign.Execute(ctx, requestapp.AssignDesignerRequest{Actor: admin, RequestID: r.ID, DesignerID: 42})
	require.NoError(t, err)
	assert.Equal(t, coverrequest.StatusAssigned, r.Status)
	assert.Equal(t, uint(42), r.DesignerID())

	// someone else's designer cannot submit
	_, err = f.upload.Execute(ctx, UploadDesignRequest{
		Actor: stranger, BookID: 7, RequestID: &r.ID, File: bytes.NewReader(coverPNG(t, 320, 480)),
	})
	assert.ErrorIs(t, err, coverdesign.ErrNotAssignedDesigner)

	_, err = f.upload.Execute(ctx, UploadDesignRequest{
		Actor: designer, BookID: 8, RequestID: &r.ID, File: bytes.NewReader(coverPNG(t, 320, 480)),
	})
	assert.ErrorIs(t, err, coverdesign.ErrRequestMismatch)

	d, err := f.upload.Execute(ctx, UploadDesignRequest{
		Actor: designer, BookID: 7, RequestID: &r.ID, File: bytes.NewReader(coverPNG(t, 320, 480)), FileName: "opera.png",
	})
	require.NoError(t, err)
	assert.Equal(t, coverdesign.StatusSubmitted, d.Status)
	assert.Equal(t, 1, d.Version)
	require.NotNil(t, d.RequestID)
	assert.Equal(t, r.ID, *d.RequestID)

	d, err = f.review.Execute(ctx, ReviewDesignRequest{Actor: admin, DesignID: d.ID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, coverdesign.StatusApproved, d.Status)

	res, err := f.activate.Execute(ctx, ActivateDesignRequest{Actor: author, BookID: 7, DesignID: d.ID})
	require.NoError(t, err)
	assert.Equal(t, coverdesign.StatusActive, res.Design.Status)
	assert.True(t, res.Design.IsActive)

	assert.Equal(t, []string{
		events.CoverRequestCreated,
		events.CoverRequestAssigned,
		events.CoverDesignUploaded,
		events.CoverDesignApproved,
		events.CoverDesignActivated,
	}, f.recorder.Types())
}
