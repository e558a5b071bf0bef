package isbnrequest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database/databasetest"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	author     = identity.Actor{ID: 10, Role: identity.RoleAuthor}
	otherUser  = identity.Actor{ID: 11, Role: identity.RoleAuthor}
	admin      = identity.Actor{ID: 1, Role: identity.RoleAdmin}
	publisher  = identity.Actor{ID: 2, Role: identity.RolePublisher}
	publisher2 = identity.Actor{ID: 4, Role: identity.RolePublisher}
	editor     = identity.Actor{ID: 3, Role: identity.RoleEditor}
)

type fixture struct {
	repo     isbnrequest.Repository
	certs    isbncert.Repository
	recorder *events.Recorder
	create   *CreateRequestUseCase
	fulfill  *FulfillRequestUseCase
	query    *QueryRequestsUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	repo := database.NewIsbnRequestRepository(db)
	f := &fixture{
		repo:     repo,
		certs:    database.NewCertificateRepository(db),
		recorder: &events.Recorder{},
	}
	f.create = NewCreateRequestUseCase(repo, f.recorder)
	f.fulfill = NewFulfillRequestUseCase(repo, f.certs, database.NewTxManager(db), f.recorder)
	f.query = NewQueryRequestsUseCase(repo)

	clock := func() time.Time { return now }
	f.create.now = clock
	f.fulfill.now = clock
	return f
}

func (f *fixture) newRequest(t *testing.T, bookID uint, priority string) *isbnrequest.Request {
	t.Helper()
	r, err := f.create.Execute(context.Background(), CreateRequestRequest{
		Actor:  author,
		BookID: bookID,
		Params: isbnrequest.CreateParams{
			Title:      "The Quiet Orbit",
			AuthorName: "M. Okafor",
			Format:     "ebook",
			Priority:   priority,
		},
	})
	require.NoError(t, err)
	return r
}

// certificate stores a verified certificate for the book.
func (f *fixture) certificate(t *testing.T, bookID uint, isbn13 string) *isbncert.Certificate {
	t.Helper()
	return f.storeCertificate(t, bookID, isbn13, true)
}

func (f *fixture) pendingCertificate(t *testing.T, bookID uint, isbn13 string) *isbncert.Certificate {
	t.Helper()
	return f.storeCertificate(t, bookID, isbn13, false)
}

func (f *fixture) storeCertificate(t *testing.T, bookID uint, isbn13 string, verified bool) *isbncert.Certificate {
	t.Helper()
	issued := now.AddDate(0, -2, 0)
	c, err := isbncert.NewCertificate(bookID, publisher.ID, isbncert.Info{
		ISBN13:           isbn13,
		Title:            "The Quiet Orbit",
		AuthorName:       "M. Okafor",
		IssuingAuthority: "National ISBN Agency",
		IssueDate:        &issued,
	}, now)
	require.NoError(t, err)
	c.FileName = "certificate.pdf"
	c.FileKey = "isbn-certificates/test.pdf"
	c.FileURL = "memory://pubflow/isbn-certificates/test.pdf"
	c.FileSize = 2048
	c.MimeType = "application/pdf"
	if verified {
		require.NoError(t, c.Verify(editor.ID, "registry_lookup", now))
	}
	require.NoError(t, f.certs.Create(context.Background(), c))
	return c
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.newRequest(t, 3, "")
	assert.NotZero(t, r.ID)
	assert.Equal(t, author.ID, r.AuthorID)
	assert.Equal(t, uint(3), r.BookID)
	assert.Equal(t, isbnrequest.FormatEbook, r.Format)
	assert.Equal(t, shared.PriorityMedium, r.Priority)
	assert.Equal(t, isbnrequest.StatusPending, r.Status)
	assert.Equal(t, []string{events.IsbnRequestCreated}, f.recorder.Types())

	_, err := f.create.Execute(ctx, CreateRequestRequest{Actor: publisher, BookID: 3})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.create.Execute(ctx, CreateRequestRequest{Actor: author, BookID: 3, Params: isbnrequest.CreateParams{
		Title: "x", AuthorName: "y", Format: "SCROLL",
	}})
	assert.ErrorIs(t, err, isbnrequest.ErrInvalidRequest)

	_, err = f.create.Execute(ctx, CreateRequestRequest{Actor: author, Params: isbnrequest.CreateParams{
		Title: "x", AuthorName: "y", Format: "EBOOK",
	}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestFulfillRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newRequest(t, 3, "high")

	_, err := f.fulfill.Assign(ctx, editor, r.ID, publisher.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.fulfill.Assign(ctx, admin, r.ID, 0, "")
	assert.ErrorIs(t, err, isbnrequest.ErrPublisherRequired)

	assigned, err := f.fulfill.Assign(ctx, admin, r.ID, publisher.ID, "agency batch 12")
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusAssigned, assigned.Status)
	assert.Equal(t, publisher.ID, assigned.PublisherIDOrZero())
	require.NotNil(t, assigned.AssignedAt)

	_, err = f.fulfill.Assign(ctx, admin, r.ID, publisher2.ID, "")
	assert.ErrorIs(t, err, isbnrequest.ErrInvalidStatusTransition)

	// Only the assigned publisher or an admin works the request.
	_, err = f.fulfill.Start(ctx, publisher2, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.fulfill.Start(ctx, publisher, r.ID)
	require.NoError(t, err)
	acquired, err := f.fulfill.MarkAcquired(ctx, publisher, r.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusAcquired, acquired.Status)

	otherBook := f.certificate(t, 4, "9781861972712")
	_, err = f.fulfill.Complete(ctx, publisher, r.ID, otherBook.ID)
	assert.ErrorIs(t, err, isbnrequest.ErrCertificateMismatch)
	_, err = f.fulfill.Complete(ctx, publisher, r.ID, 999)
	assert.ErrorIs(t, err, isbncert.ErrCertificateNotFound)
	_, err = f.fulfill.Complete(ctx, publisher, r.ID, 0)
	assert.ErrorIs(t, err, isbnrequest.ErrCertificateRequired)

	cert := f.certificate(t, 3, "978-0-306-40615-7")
	done, err := f.fulfill.Complete(ctx, publisher2, r.ID, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusCompleted, done.Status)
	require.NotNil(t, done.IsbnCertificateID)
	assert.Equal(t, cert.ID, *done.IsbnCertificateID)
	require.NotNil(t, done.CompletedAt)

	_, err = f.fulfill.Cancel(ctx, author, r.ID)
	assert.ErrorIs(t, err, isbnrequest.ErrInvalidStatusTransition)

	assert.Equal(t, []string{
		events.IsbnRequestCreated,
		events.IsbnRequestAssigned,
		events.IsbnRequestStarted,
		events.IsbnRequestAcquired,
		events.IsbnRequestCompleted,
	}, f.recorder.Types())
	last := f.recorder.Events()[4]
	assert.Equal(t, "COMPLETED", last.Status)
	assert.Equal(t, map[string]string{"isbn_certificate_id": uintString(cert.ID)}, last.Attributes)
}

func TestCompleteRequiresUsableCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newRequest(t, 3, "")

	_, err := f.fulfill.Assign(ctx, admin, r.ID, publisher.ID, "")
	require.NoError(t, err)
	_, err = f.fulfill.Start(ctx, publisher, r.ID)
	require.NoError(t, err)

	pending := f.pendingCertificate(t, 3, "9780306406157")

	rejected := f.pendingCertificate(t, 3, "9781861972712")
	require.NoError(t, rejected.Reject(editor.ID, "blurred scan", now))
	require.NoError(t, f.certs.Update(ctx, rejected))

	lapsed := f.certificate(t, 3, "9780131103627")
	past := now.Add(-time.Hour)
	lapsed.ExpiryDate = &past
	require.NoError(t, f.certs.Update(ctx, lapsed))

	inactive := f.certificate(t, 3, "9780596520687")
	require.NoError(t, inactive.Deactivate(now))
	require.NoError(t, f.certs.Update(ctx, inactive))

	for name, c := range map[string]*isbncert.Certificate{
		"pending":  pending,
		"rejected": rejected,
		"expired":  lapsed,
		"inactive": inactive,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.fulfill.Complete(ctx, publisher, r.ID, c.ID)
			assert.ErrorIs(t, err, isbnrequest.ErrCertificateNotUsable)
		})
	}

	stored, err := f.repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusInProgress, stored.Status)
	assert.Nil(t, stored.IsbnCertificateID)

	require.NoError(t, pending.Verify(editor.ID, "", now))
	require.NoError(t, pending.Approve(admin.ID, now))
	require.NoError(t, f.certs.Update(ctx, pending))

	done, err := f.fulfill.Complete(ctx, publisher, r.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusCompleted, done.Status)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.newRequest(t, 3, "")

	_, err := f.fulfill.Cancel(ctx, otherUser, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.fulfill.Cancel(ctx, publisher, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	cancelled, err := f.fulfill.Cancel(ctx, author, r.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusCancelled, cancelled.Status)

	_, err = f.fulfill.Start(ctx, admin, 404)
	assert.ErrorIs(t, err, isbnrequest.ErrRequestNotFound)
}

func TestQueryRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.newRequest(t, 3, "low")
	urgent := f.newRequest(t, 4, "urgent")
	assigned := f.newRequest(t, 5, "")
	_, err := f.fulfill.Assign(ctx, publisher, assigned.ID, publisher.ID, "")
	require.NoError(t, err)

	pending, err := f.query.Pending(ctx, publisher, shared.Page{})
	require.NoError(t, err)
	require.Len(t, pending.List, 2)
	assert.Equal(t, urgent.ID, pending.List[0].ID)
	assert.Equal(t, low.ID, pending.List[1].ID)

	_, err = f.query.Pending(ctx, author, shared.Page{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	mine, err := f.query.Mine(ctx, author, "assigned", shared.Page{})
	require.NoError(t, err)
	require.Len(t, mine.List, 1)
	assert.Equal(t, assigned.ID, mine.List[0].ID)

	_, err = f.query.Mine(ctx, author, "lost", shared.Page{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	got, err := f.query.Get(ctx, editor, assigned.ID)
	require.NoError(t, err)
	assert.False(t, CanViewDetail(editor, got))
	assert.False(t, CanViewDetail(otherUser, got))
	assert.True(t, CanViewDetail(author, got))
	assert.True(t, CanViewDetail(identity.Actor{ID: publisher.ID, Role: identity.RoleDesigner}, got))

	_, err = f.query.Get(ctx, identity.Actor{}, assigned.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
