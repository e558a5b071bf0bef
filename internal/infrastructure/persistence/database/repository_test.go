package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database/databasetest"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func TestCoverRequestRepository_IncrementRevision(t *testing.T) {
	ctx := context.Background()
	repo := database.NewCoverRequestRepository(databasetest.Open(t))

	limit := 1
	req, err := coverrequest.NewRequest(coverrequest.CreateParams{
		BookID:           1,
		AuthorID:         10,
		Title:            "Autumn Edition",
		Priority:         "HIGH",
		RevisionLimit:    &limit,
		PreferredFormats: []string{"png", "jpeg"},
	}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	require.NoError(t, repo.IncrementRevision(ctx, req.ID))
	assert.ErrorIs(t, repo.IncrementRevision(ctx, req.ID), coverrequest.ErrRevisionLimitReached)
	assert.ErrorIs(t, repo.IncrementRevision(ctx, 9999), coverrequest.ErrRequestNotFound)

	got, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentRevisions)
	assert.Equal(t, []string{"PNG", "JPEG"}, got.PreferredFormats)
	assert.Equal(t, shared.PriorityHigh, got.Priority)
}

func TestCoverRequestRepository_UpdateAndLists(t *testing.T) {
	ctx := context.Background()
	repo := database.NewCoverRequestRepository(databasetest.Open(t))

	create := func(priority string, budget int64) *coverrequest.Request {
		r, err := coverrequest.NewRequest(coverrequest.CreateParams{
			BookID: 1, AuthorID: 10, Title: "Cover " + priority, Priority: priority, Budget: budget,
		}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, r))
		return r
	}
	low := create("LOW", 100)
	urgent := create("URGENT", 5000)
	assigned := create("MEDIUM", 2500)

	require.NoError(t, assigned.AssignDesigner(42, now))
	require.NoError(t, repo.Update(ctx, assigned))

	open, total, err := repo.ListOpen(ctx, coverrequest.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, open, 2)
	assert.Equal(t, urgent.ID, open[0].ID)
	assert.Equal(t, low.ID, open[1].ID)

	rich, total, err := repo.ListByAuthor(ctx, 10, coverrequest.ListFilter{MinBudget: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rich, 2)

	mine, _, err := repo.ListByDesigner(ctx, 42, coverrequest.ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, coverrequest.StatusAssigned, mine[0].Status)
	assert.Equal(t, uint(42), mine[0].DesignerID())

	require.NoError(t, repo.Delete(ctx, low.ID))
	_, err = repo.FindByID(ctx, low.ID)
	assert.ErrorIs(t, err, coverrequest.ErrRequestNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, low.ID), coverrequest.ErrRequestNotFound)
}

func TestCoverDesignRepository_NextVersionIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := database.NewCoverDesignRepository(databasetest.Open(t))

	const workers = 8
	versions := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.NextVersion(ctx, 7)
			assert.NoError(t, err)
			versions <- v
		}()
	}
	wg.Wait()
	close(versions)

	seen := map[int]bool{}
	for v := range versions {
		assert.False(t, seen[v], "version %d handed out twice", v)
		seen[v] = true
	}
	for v := 1; v <= workers; v++ {
		assert.True(t, seen[v])
	}

	other, err := repo.NextVersion(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, other)
}

func TestCoverDesignRepository_SeedsFromExistingRows(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := database.NewCoverDesignRepository(db)

	d := newDesign(3, 4)
	require.NoError(t, repo.Create(ctx, d))

	v, err := repo.NextVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	dup := newDesign(3, 4)
	assert.ErrorIs(t, repo.Create(ctx, dup), coverdesign.ErrVersionConflict)
}

func TestCoverDesignRepository_SingleActivePerBook(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := database.NewCoverDesignRepository(db)
	tx := database.NewTxManager(db)

	first, second := newDesign(1, 1), newDesign(1, 2)
	for _, d := range []*coverdesign.Design{first, second} {
		require.NoError(t, d.Approve(99, now))
		require.NoError(t, repo.Create(ctx, d))
	}

	require.NoError(t, first.Activate(now))
	require.NoError(t, repo.Update(ctx, first))

	// Activating a second design without demoting the first violates the index.
	require.NoError(t, second.Activate(now))
	assert.Error(t, repo.Update(ctx, second))

	err := tx.Transaction(ctx, func(ctx context.Context) error {
		designs, err := repo.LockByBook(ctx, 1)
		if err != nil {
			return err
		}
		for _, d := range designs {
			if d.ID != second.ID && d.IsActive {
				d.Demote(now)
				if err := repo.Update(ctx, d); err != nil {
					return err
				}
			}
		}
		return repo.Update(ctx, second)
	})
	require.NoError(t, err)

	active, err := repo.FindActiveByBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	history, err := repo.VersionHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, coverdesign.StatusApproved, history[0].Status)
	assert.False(t, history[0].IsActive)

	page, total, err := repo.ListByBook(ctx, 1, coverdesign.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, 2, page[0].Version)

	_, err = repo.FindActiveByBook(ctx, 2)
	assert.ErrorIs(t, err, coverdesign.ErrDesignNotFound)
}

func TestTxManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := database.NewCoverDesignRepository(db)
	tx := database.NewTxManager(db)

	err := tx.Transaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, newDesign(5, 1)); err != nil {
			return err
		}
		return coverdesign.ErrNotApproved
	})
	assert.ErrorIs(t, err, coverdesign.ErrNotApproved)

	history, err := repo.VersionHistory(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCertificateRepository_ActiveISBNUnique(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	repo := database.NewCertificateRepository(db)

	first := newCertificate(t, 1)
	require.NoError(t, repo.Create(ctx, first))

	dup := newCertificate(t, 2)
	assert.ErrorIs(t, repo.Create(ctx, dup), isbncert.ErrISBNDuplicate)

	found, err := repo.FindActiveByISBN(ctx, "9780306406157", "", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	_, err = repo.FindActiveByISBN(ctx, "9780306406157", "", first.ID)
	assert.ErrorIs(t, err, isbncert.ErrCertificateNotFound)

	// An inactive certificate releases the ISBN.
	require.NoError(t, first.Deactivate(now))
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, repo.Create(ctx, dup))

	// Reactivating the old one now collides.
	require.NoError(t, first.Reactivate(now))
	assert.ErrorIs(t, repo.Update(ctx, first), isbncert.ErrISBNDuplicate)

	got, err := repo.FindByID(ctx, dup.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"edition": "first"}, got.Metadata)
	assert.Equal(t, "GB", got.IssuingCountry)
}

func TestCertificateRepository_SearchAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := database.NewCertificateRepository(databasetest.Open(t))

	a := newCertificate(t, 1)
	require.NoError(t, repo.Create(ctx, a))

	b := newCertificate(t, 2)
	b.ISBN13, b.ISBN10 = "9781861972712", ""
	require.NoError(t, b.Verify(50, "", now))
	require.NoError(t, repo.Create(ctx, b))

	pending, total, err := repo.ListPending(ctx, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, a.ID, pending[0].ID)

	hits, total, err := repo.Search(ctx, isbncert.SearchFilter{ISBN: "186197"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, b.ID, hits[0].ID)

	hits, _, err = repo.Search(ctx, isbncert.SearchFilter{ISBN: "0306406152"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].ID)

	mine, _, err := repo.ListByUploader(ctx, 10, isbncert.SearchFilter{Status: isbncert.StatusVerified})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	counts, err := repo.CountByStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[isbncert.StatusPending])
	assert.Equal(t, int64(1), counts[isbncert.StatusVerified])

	active, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), isbncert.ErrCertificateNotFound)
}

func TestCertificateRepository_LapsedExpiry(t *testing.T) {
	ctx := context.Background()
	repo := database.NewCertificateRepository(databasetest.Open(t))

	require.NoError(t, repo.Create(ctx, newCertificate(t, 1)))

	lapsing := newCertificate(t, 2)
	lapsing.ISBN13, lapsing.ISBN10 = "9781861972712", ""
	expires := now.Add(24 * time.Hour)
	lapsing.ExpiryDate = &expires
	require.NoError(t, lapsing.Verify(50, "", now))
	require.NoError(t, repo.Create(ctx, lapsing))

	later := now.Add(48 * time.Hour)

	counts, err := repo.CountByStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[isbncert.StatusVerified])
	assert.Zero(t, counts[isbncert.StatusExpired])

	counts, err = repo.CountByStatus(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[isbncert.StatusPending])
	assert.Zero(t, counts[isbncert.StatusVerified])
	assert.Equal(t, int64(1), counts[isbncert.StatusExpired])

	hits, total, err := repo.Search(ctx, isbncert.SearchFilter{Status: isbncert.StatusExpired, AsOf: later})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, lapsing.ID, hits[0].ID)

	_, total, err = repo.Search(ctx, isbncert.SearchFilter{Status: isbncert.StatusVerified, AsOf: later})
	require.NoError(t, err)
	assert.Zero(t, total)

	// Without an instant the stored status is matched.
	_, total, err = repo.Search(ctx, isbncert.SearchFilter{Status: isbncert.StatusVerified})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := database.NewAuditLogRepository(databasetest.Open(t))
	actor := identity.Actor{ID: 5, Role: identity.RoleAdmin, IP: "10.0.0.1"}

	require.NoError(t, repo.Append(ctx, isbncert.NewAuditLog(1, isbncert.AuditCreated, actor, nil,
		map[string]interface{}{"status": "PENDING"}, "", now)))
	require.NoError(t, repo.Append(ctx, isbncert.NewAuditLog(1, isbncert.AuditVerified, actor,
		map[string]interface{}{"status": "PENDING"}, map[string]interface{}{"status": "VERIFIED"}, "", now.Add(time.Minute))))
	require.NoError(t, repo.Append(ctx, isbncert.NewAuditLog(2, isbncert.AuditCreated, actor, nil, nil, "", now)))

	logs, total, err := repo.ListByCertificate(ctx, 1, shared.Page{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	assert.Equal(t, isbncert.AuditVerified, logs[0].Action)
	assert.Equal(t, "PENDING", logs[0].PreviousValues["status"])
	assert.Equal(t, "VERIFIED", logs[0].NewValues["status"])
	assert.Nil(t, logs[1].PreviousValues)
	assert.Equal(t, "10.0.0.1", logs[1].IPAddress)
}

func TestIsbnRequestRepository(t *testing.T) {
	ctx := context.Background()
	repo := database.NewIsbnRequestRepository(databasetest.Open(t))

	create := func(priority string) *isbnrequest.Request {
		r, err := isbnrequest.NewRequest(isbnrequest.CreateParams{
			BookID: 3, AuthorID: 10, Title: "The Quiet Orbit", AuthorName: "M. Okafor",
			Format: "EBOOK", Priority: priority,
		}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, r))
		return r
	}
	low := create("LOW")
	high := create("HIGH")

	pending, total, err := repo.ListPending(ctx, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, high.ID, pending[0].ID)

	require.NoError(t, low.AssignPublisher(7, "", now))
	require.NoError(t, repo.Update(ctx, low))

	got, err := repo.LockByID(ctx, low.ID)
	require.NoError(t, err)
	assert.Equal(t, isbnrequest.StatusAssigned, got.Status)
	assert.Equal(t, uint(7), got.PublisherIDOrZero())

	assigned, total, err := repo.ListByAuthor(ctx, 10, isbnrequest.StatusAssigned, shared.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, low.ID, assigned[0].ID)

	_, err = repo.FindByID(ctx, 404)
	assert.ErrorIs(t, err, isbnrequest.ErrRequestNotFound)
}

func newDesign(bookID uint, version int) *coverdesign.Design {
	d := coverdesign.NewDesign(bookID, 20, 0, version, now)
	d.FileName = "cover.png"
	d.FileKey = "covers/cover.png"
	d.FileURL = "https://cdn.example.com/covers/cover.png"
	d.FileSize = 2048
	d.MimeType = "image/png"
	return d
}

func newCertificate(t *testing.T, bookID uint) *isbncert.Certificate {
	t.Helper()
	issued := now.AddDate(-1, 0, 0)
	c, err := isbncert.NewCertificate(bookID, 10, isbncert.Info{
		ISBN13:           "978-0-306-40615-7",
		ISBN10:           "0-306-40615-2",
		Title:            "Signal Processing",
		AuthorName:       "R. Moreau",
		IssuingAuthority: "International ISBN Agency",
		IssuingCountry:   "gb",
		IssueDate:        &issued,
		Metadata:         map[string]string{"edition": "first"},
	}, now)
	require.NoError(t, err)
	c.FileName = "cert.pdf"
	c.FileKey = "certificates/cert.pdf"
	c.FileURL = "https://cdn.example.com/certificates/cert.pdf"
	c.FileSize = 4096
	c.MimeType = "application/pdf"
	c.Checksum = "abc123"
	return c
}
