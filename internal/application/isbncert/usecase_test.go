package isbncert

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database/databasetest"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

const (
	isbnA13 = "978-0-306-40615-7"
	isbnA10 = "0-306-40615-2"
	isbnB13 = "9781861972712"
)

var (
	now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	author    = identity.Actor{ID: 10, Role: identity.RoleAuthor}
	otherUser = identity.Actor{ID: 11, Role: identity.RoleAuthor}
	admin     = identity.Actor{ID: 1, Role: identity.RoleAdmin}
	publisher = identity.Actor{ID: 2, Role: identity.RolePublisher}
	editor    = identity.Actor{ID: 3, Role: identity.RoleEditor}
	reader    = identity.Actor{ID: 50, Role: identity.RoleReader}
)

type fixture struct {
	certs    isbncert.Repository
	audits   isbncert.AuditRepository
	store    *storage.MemoryStore
	recorder *events.Recorder
	upload   *UploadCertificateUseCase
	review   *ReviewCertificateUseCase
	bulk     *BulkVerifyUseCase
	resubmit *ResubmitCertificateUseCase
	active   *SetCertificateActiveUseCase
	remove   *DeleteCertificateUseCase
	query    *QueryCertificatesUseCase
}

func newFixture(t *testing.T, cache StatisticsCache) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	f := &fixture{
		certs:    database.NewCertificateRepository(db),
		audits:   database.NewAuditLogRepository(db),
		store:    storage.NewMemoryStore(""),
		recorder: &events.Recorder{},
	}
	tx := database.NewTxManager(db)
	cfg := config.WorkflowConfig{BulkVerifyMax: 2}

	f.upload = NewUploadCertificateUseCase(f.certs, f.audits, tx, cache, f.store, f.recorder, cfg)
	f.review = NewReviewCertificateUseCase(f.certs, f.audits, tx, cache, f.recorder)
	f.bulk = NewBulkVerifyUseCase(f.review, cfg)
	f.resubmit = NewResubmitCertificateUseCase(f.certs, f.audits, tx, cache, f.store, f.recorder, cfg)
	f.active = NewSetCertificateActiveUseCase(f.certs, f.audits, tx, cache)
	f.remove = NewDeleteCertificateUseCase(f.certs, f.audits, tx, cache, f.store)
	f.query = NewQueryCertificatesUseCase(f.certs, f.audits, cache, f.store, config.StorageConfig{})
	f.setClock(now)
	return f
}

func (f *fixture) setClock(at time.Time) {
	clock := func() time.Time { return at }
	f.upload.now = clock
	f.review.now = clock
	f.resubmit.now = clock
	f.active.now = clock
	f.remove.now = clock
	f.query.now = clock
}

func scanPDF() []byte {
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 2048)...)
}

func info(isbn13, isbn10 string) isbncert.Info {
	issued := now.AddDate(-1, 0, 0)
	return isbncert.Info{
		ISBN13:           isbn13,
		ISBN10:           isbn10,
		Title:            "Signals and Noise",
		AuthorName:       "R. Vale",
		IssuingAuthority: "National ISBN Agency",
		IssuingCountry:   "gb",
		IssueDate:        &issued,
	}
}

func (f *fixture) uploadInfo(actor identity.Actor, in isbncert.Info) (*isbncert.Certificate, error) {
	return f.upload.Execute(context.Background(), UploadCertificateRequest{
		Actor:       actor,
		BookID:      7,
		Info:        in,
		File:        bytes.NewReader(scanPDF()),
		FileName:    "certificate.pdf",
		ContentType: "application/pdf",
	})
}

func (f *fixture) mustUpload(t *testing.T, isbn13, isbn10 string) *isbncert.Certificate {
	t.Helper()
	c, err := f.uploadInfo(author, info(isbn13, isbn10))
	require.NoError(t, err)
	return c
}

func (f *fixture) decide(actor identity.Actor, id uint, d Decision, reason string) (*isbncert.Certificate, error) {
	return f.review.Execute(context.Background(), ReviewCertificateRequest{Actor: actor, CertificateID: id, Decision: d, Reason: reason})
}

func TestUploadCertificate(t *testing.T) {
	f := newFixture(t, nil)

	c := f.mustUpload(t, isbnA13, isbnA10)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "9780306406157", c.ISBN13)
	assert.Equal(t, "0306406152", c.ISBN10)
	assert.Equal(t, "GB", c.IssuingCountry)
	assert.Equal(t, isbncert.StatusPending, c.Status)
	assert.True(t, c.IsActive)
	assert.Equal(t, "application/pdf", c.MimeType)
	assert.Len(t, c.Checksum, 64)
	assert.True(t, strings.HasPrefix(c.FileKey, "isbn-certificates/7/9780306406157/"))
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, []string{events.CertificateUploaded}, f.recorder.Types())

	logs, err := f.query.AuditLogs(context.Background(), author, c.ID, shared.Page{})
	require.NoError(t, err)
	require.Len(t, logs.List, 1)
	assert.Equal(t, isbncert.AuditCreated, logs.List[0].Action)
}

func TestUploadCertificateRejected(t *testing.T) {
	future := now.Add(24 * time.Hour)
	tests := []struct {
		name  string
		actor identity.Actor
		info  func() isbncert.Info
		want  error
	}{
		{"bad check digit", author, func() isbncert.Info { return info("123-4-567-89012-3", "") }, isbncert.ErrInvalidISBN13},
		{"bad isbn10", author, func() isbncert.Info { return info(isbnA13, "0-306-40615-3") }, isbncert.ErrInvalidISBN10},
		{"future issue date", author, func() isbncert.Info {
			in := info(isbnA13, "")
			in.IssueDate = &future
			return in
		}, isbncert.ErrIssueDateInFuture},
		{"missing title", author, func() isbncert.Info {
			in := info(isbnA13, "")
			in.Title = " "
			return in
		}, isbncert.ErrInvalidCertificate},
		{"editor", editor, func() isbncert.Info { return info(isbnA13, "") }, apperrors.ErrForbidden},
		{"anonymous", identity.Actor{}, func() isbncert.Info { return info(isbnA13, "") }, apperrors.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.uploadInfo(tt.actor, tt.info())
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.store.Len())
			assert.Empty(t, f.recorder.Events())
		})
	}
}

func TestUploadCertificateFileChecks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.upload.Execute(ctx, UploadCertificateRequest{
		Actor: author, BookID: 7, Info: info(isbnA13, ""),
		File: strings.NewReader("%PDF-1.4\ntiny"), FileName: "c.pdf", ContentType: "application/pdf",
	})
	assert.ErrorIs(t, err, isbncert.ErrFileSize)

	_, err = f.upload.Execute(ctx, UploadCertificateRequest{
		Actor: author, BookID: 7, Info: info(isbnA13, ""),
		File: bytes.NewReader(scanPDF()), FileName: "c.png", ContentType: "image/png",
	})
	assert.ErrorIs(t, err, isbncert.ErrContentMismatch)

	_, err = f.upload.Execute(ctx, UploadCertificateRequest{
		Actor: author, BookID: 7, Info: info(isbnA13, ""),
		File: strings.NewReader(strings.Repeat("plain text ", 200)), FileName: "c.txt",
	})
	assert.ErrorIs(t, err, isbncert.ErrInvalidFileType)

	assert.Zero(t, f.store.Len())
}

func TestUploadCertificateDuplicateISBN(t *testing.T) {
	f := newFixture(t, nil)
	f.mustUpload(t, isbnA13, "")

	_, err := f.uploadInfo(publisher, info("9780306406157", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, isbncert.ErrISBNDuplicate)
	assert.Equal(t, 409, apperrors.HTTPStatus(apperrors.GetAppError(err).Code))

	// The ISBN-10 alone is enough to collide.
	f2 := newFixture(t, nil)
	f2.mustUpload(t, isbnB13, isbnA10)
	_, err = f2.uploadInfo(author, info(isbnA13, isbnA10))
	assert.ErrorIs(t, err, isbncert.ErrISBNDuplicate)
	assert.Equal(t, 1, f2.store.Len())
}

func TestUploadCertificateStorageFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.FailUploads = assert.AnError

	_, err := f.uploadInfo(author, info(isbnA13, ""))
	assert.Equal(t, apperrors.ErrCodeStorage, apperrors.GetAppError(err).Code)

	_, total, err := f.certs.Search(context.Background(), isbncert.SearchFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReviewCertificate(t *testing.T) {
	f := newFixture(t, nil)
	c := f.mustUpload(t, isbnA13, "")

	_, err := f.decide(author, c.ID, DecisionVerify, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	verified, err := f.decide(editor, c.ID, DecisionVerify, "")
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusVerified, verified.Status)
	assert.Equal(t, "MANUAL", verified.VerificationMethod)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, editor.ID, *verified.VerifiedBy)

	_, err = f.decide(editor, c.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	approved, err := f.decide(publisher, c.ID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusApproved, approved.Status)

	_, err = f.decide(admin, c.ID, DecisionReject, "too late")
	assert.ErrorIs(t, err, isbncert.ErrInvalidStatusTransition)

	_, err = f.decide(admin, c.ID, Decision("archive"), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	logs, err := f.query.AuditLogs(context.Background(), admin, c.ID, shared.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, logs.Total)

	assert.Equal(t, []string{
		events.CertificateUploaded,
		events.CertificateVerified,
		events.CertificateApproved,
	}, f.recorder.Types())
}

func TestRejectNeedsReason(t *testing.T) {
	f := newFixture(t, nil)
	c := f.mustUpload(t, isbnA13, "")

	_, err := f.decide(editor, c.ID, DecisionReject, "  ")
	assert.ErrorIs(t, err, isbncert.ErrRejectionReasonRequired)

	rejected, err := f.decide(editor, c.ID, DecisionReject, "blurred scan")
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusRejected, rejected.Status)
	assert.Equal(t, "blurred scan", rejected.RejectionReason)
}

func TestLazyExpiry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := info(isbnA13, "")
	expires := now.Add(24 * time.Hour)
	in.ExpiryDate = &expires
	c, err := f.uploadInfo(author, in)
	require.NoError(t, err)

	f.setClock(now.Add(48 * time.Hour))

	// Reads report the expiry without writing it.
	got, err := f.query.Get(ctx, reader, c.ID)
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusExpired, got.Status)
	stored, err := f.certs.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusPending, stored.Status)

	// A refused write still persists the expiry.
	_, err = f.decide(editor, c.ID, DecisionVerify, "")
	assert.ErrorIs(t, err, isbncert.ErrCertificateExpired)

	stored, err = f.certs.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusExpired, stored.Status)

	logs, err := f.query.AuditLogs(ctx, author, c.ID, shared.Page{})
	require.NoError(t, err)
	require.Len(t, logs.List, 2)
	assert.Equal(t, isbncert.AuditExpired, logs.List[0].Action)
	assert.Equal(t, isbncert.AuditCreated, logs.List[1].Action)
}

func TestLazyExpiry_QueriesUseEffectiveStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := info(isbnA13, "")
	expires := now.Add(24 * time.Hour)
	in.ExpiryDate = &expires
	c, err := f.uploadInfo(author, in)
	require.NoError(t, err)
	_, err = f.decide(editor, c.ID, DecisionVerify, "")
	require.NoError(t, err)
	f.mustUpload(t, isbnB13, "")

	f.setClock(now.Add(48 * time.Hour))

	stats, err := f.query.Statistics(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Expired)
	assert.Zero(t, stats.Verified)

	expired, err := f.query.Search(ctx, SearchCertificatesRequest{Actor: editor, Status: "expired"})
	require.NoError(t, err)
	require.EqualValues(t, 1, expired.Total)
	assert.Equal(t, c.ID, expired.List[0].ID)
	assert.Equal(t, isbncert.StatusExpired, expired.List[0].Status)

	verified, err := f.query.Search(ctx, SearchCertificatesRequest{Actor: editor, Status: "VERIFIED"})
	require.NoError(t, err)
	assert.Zero(t, verified.Total)

	mine, err := f.query.Mine(ctx, SearchCertificatesRequest{Actor: author, Status: "EXPIRED"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)
}

func TestResubmitCertificate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.mustUpload(t, isbnA13, "")
	oldKey := c.FileKey

	_, err := f.resubmit.Execute(ctx, ResubmitCertificateRequest{Actor: author, CertificateID: c.ID})
	assert.ErrorIs(t, err, isbncert.ErrInvalidStatusTransition)

	_, err = f.decide(editor, c.ID, DecisionReject, "unreadable")
	require.NoError(t, err)

	_, err = f.resubmit.Execute(ctx, ResubmitCertificateRequest{Actor: otherUser, CertificateID: c.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	f.setClock(now.Add(time.Hour))
	again, err := f.resubmit.Execute(ctx, ResubmitCertificateRequest{
		Actor:         author,
		CertificateID: c.ID,
		Notes:         "rescanned at 600dpi",
		File:          bytes.NewReader(scanPDF()),
		FileName:      "rescan.pdf",
		ContentType:   "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, isbncert.StatusPending, again.Status)
	assert.Empty(t, again.RejectionReason)
	assert.Nil(t, again.VerifiedBy)
	assert.Equal(t, "rescanned at 600dpi", again.Notes)
	assert.Equal(t, "rescan.pdf", again.FileName)
	assert.NotEqual(t, oldKey, again.FileKey)

	_, ok := f.store.Object(oldKey)
	assert.False(t, ok)
	_, ok = f.store.Object(again.FileKey)
	assert.True(t, ok)
	assert.Contains(t, f.recorder.Types(), events.CertificateResubmitted)
}

func TestResubmitRemovesNewFileOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	c := f.mustUpload(t, isbnA13, "")

	// Still PENDING, so the transition fails after the new file was stored.
	_, err := f.resubmit.Execute(context.Background(), ResubmitCertificateRequest{
		Actor:         author,
		CertificateID: c.ID,
		File:          bytes.NewReader(scanPDF()),
		FileName:      "rescan.pdf",
		ContentType:   "application/pdf",
	})
	assert.ErrorIs(t, err, isbncert.ErrInvalidStatusTransition)
	assert.Equal(t, 1, f.store.Len())
}

func TestDeactivateAndReactivate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.mustUpload(t, isbnA13, "")

	_, err := f.active.Execute(ctx, SetCertificateActiveRequest{Actor: publisher, CertificateID: first.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	off, err := f.active.Execute(ctx, SetCertificateActiveRequest{Actor: admin, CertificateID: first.ID, Reason: "superseded"})
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = f.active.Execute(ctx, SetCertificateActiveRequest{Actor: admin, CertificateID: first.ID})
	assert.ErrorIs(t, err, isbncert.ErrAlreadyInactive)

	// The ISBN is free again while the first certificate is inactive.
	second := f.mustUpload(t, isbnA13, "")

	_, err = f.active.Execute(ctx, SetCertificateActiveRequest{Actor: admin, CertificateID: first.ID, Active: true})
	assert.ErrorIs(t, err, isbncert.ErrISBNDuplicate)

	_, err = f.active.Execute(ctx, SetCertificateActiveRequest{Actor: admin, CertificateID: second.ID})
	require.NoError(t, err)
	on, err := f.active.Execute(ctx, SetCertificateActiveRequest{Actor: admin, CertificateID: first.ID, Active: true})
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	logs, err := f.query.AuditLogs(ctx, admin, first.ID, shared.Page{})
	require.NoError(t, err)
	require.Len(t, logs.List, 3)
	assert.Equal(t, isbncert.AuditReactivated, logs.List[0].Action)
	assert.Equal(t, isbncert.AuditDeactivated, logs.List[1].Action)
	assert.Equal(t, "superseded", logs.List[1].Reason)
}

func TestDeleteCertificate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pending := f.mustUpload(t, isbnA13, "")
	_, err := f.remove.Execute(ctx, otherUser, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	res, err := f.remove.Execute(ctx, author, pending.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	_, err = f.certs.FindByID(ctx, pending.ID)
	assert.ErrorIs(t, err, isbncert.ErrCertificateNotFound)
	assert.Zero(t, f.store.Len())

	verified := f.mustUpload(t, isbnB13, "")
	_, err = f.decide(editor, verified.ID, DecisionVerify, "")
	require.NoError(t, err)

	// Past PENDING only an administrator may delete, and the row is kept.
	_, err = f.remove.Execute(ctx, author, verified.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	res, err = f.remove.Execute(ctx, admin, verified.ID)
	require.NoError(t, err)
	assert.False(t, res.Removed)
	kept, err := f.certs.FindByID(ctx, verified.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)
	assert.Equal(t, isbncert.StatusVerified, kept.Status)
	assert.Equal(t, 1, f.store.Len())

	_, err = f.remove.Execute(ctx, admin, verified.ID)
	assert.ErrorIs(t, err, isbncert.ErrAlreadyInactive)
}

func TestBulkVerify(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.mustUpload(t, isbnA13, "")
	b := f.mustUpload(t, isbnB13, "")
	_, err := f.decide(editor, b.ID, DecisionVerify, "")
	require.NoError(t, err)

	_, err = f.bulk.Execute(ctx, BulkVerifyRequest{Actor: author, IDs: []uint{a.ID}})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.bulk.Execute(ctx, BulkVerifyRequest{Actor: editor})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	_, err = f.bulk.Execute(ctx, BulkVerifyRequest{Actor: editor, IDs: []uint{a.ID, b.ID, 99}})
	assert.ErrorIs(t, err, isbncert.ErrTooManyIDs)

	res, err := f.bulk.Execute(ctx, BulkVerifyRequest{Actor: editor, IDs: []uint{a.ID, b.ID}, Method: "REGISTRY"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, apperrors.ErrCodeInvalidStatusTransition, res.Results[1].Code)

	got, err := f.certs.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "REGISTRY", got.VerificationMethod)
}

func TestQueryCertificates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.mustUpload(t, isbnA13, "")
	b := f.mustUpload(t, isbnB13, "")
	_, err := f.decide(editor, b.ID, DecisionVerify, "")
	require.NoError(t, err)

	res, err := f.query.Search(ctx, SearchCertificatesRequest{Actor: editor, ISBN: "978-0306"})
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	assert.Equal(t, a.ID, res.List[0].ID)

	res, err = f.query.Search(ctx, SearchCertificatesRequest{Actor: editor, Status: "verified"})
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	assert.Equal(t, b.ID, res.List[0].ID)

	_, err = f.query.Search(ctx, SearchCertificatesRequest{Actor: editor, Status: "lost"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
	_, err = f.query.Search(ctx, SearchCertificatesRequest{Actor: author})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	pending, err := f.query.Pending(ctx, publisher, shared.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Total)
	assert.Equal(t, defaultPendingLimit, pending.Page.PageSize)

	mine, err := f.query.Mine(ctx, SearchCertificatesRequest{Actor: author})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)
	mine, err = f.query.Mine(ctx, SearchCertificatesRequest{Actor: otherUser})
	require.NoError(t, err)
	assert.Zero(t, mine.Total)

	byBook, err := f.query.ListByBook(ctx, reader, 7, shared.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byBook.Total)

	_, err = f.query.AuditLogs(ctx, otherUser, a.ID, shared.Page{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	got, err := f.query.Get(ctx, reader, a.ID)
	require.NoError(t, err)
	assert.False(t, CanViewDetail(reader, got))
	assert.True(t, CanViewDetail(author, got))
	assert.True(t, CanViewDetail(editor, got))
}

func TestDownloadCertificate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.mustUpload(t, isbnA13, "")

	_, err := f.query.Download(ctx, reader, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	link, err := f.query.Download(ctx, author, c.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, c.FileKey)
	assert.Equal(t, now.Add(time.Hour), link.ExpiresAt)

	_, err = f.decide(editor, c.ID, DecisionVerify, "")
	require.NoError(t, err)
	_, err = f.query.Download(ctx, reader, c.ID)
	assert.NoError(t, err)
}

func TestStatistics(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, redis.NewStatisticsCache(client, time.Minute))
	ctx := context.Background()
	f.mustUpload(t, isbnA13, "")
	b := f.mustUpload(t, isbnB13, "")
	_, err := f.decide(editor, b.ID, DecisionVerify, "")
	require.NoError(t, err)

	_, err = f.query.Statistics(ctx, author)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	stats, err := f.query.Statistics(ctx, editor)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Verified)
	assert.EqualValues(t, 2, stats.Active)
	assert.InDelta(t, 50.0, stats.VerifiedPercentage, 0.001)
	assert.Len(t, mr.Keys(), 1)

	// Any write drops the snapshot.
	_, err = f.decide(editor, b.ID, DecisionReject, "wrong title")
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	stats, err = f.query.Statistics(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Rejected)
	assert.Zero(t, stats.VerifiedPercentage)
}
