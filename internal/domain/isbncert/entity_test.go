package isbncert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func validInfo() Info {
	issued := now.AddDate(-1, 0, 0)
	return Info{
		ISBN13:           "978-0-306-40615-7",
		ISBN10:           "0-306-40615-2",
		Title:            "Signal Processing",
		AuthorName:       "R. Moreau",
		IssuingAuthority: "International ISBN Agency",
		IssuingCountry:   "gb",
		IssueDate:        &issued,
	}
}

func newPending(t *testing.T) *Certificate {
	t.Helper()
	c, err := NewCertificate(1, 10, validInfo(), now)
	require.NoError(t, err)
	return c
}

func TestNewCertificate(t *testing.T) {
	c := newPending(t)

	assert.Equal(t, "9780306406157", c.ISBN13)
	assert.Equal(t, "0306406152", c.ISBN10)
	assert.Equal(t, "GB", c.IssuingCountry)
	assert.Equal(t, StatusPending, c.Status)
	assert.True(t, c.IsActive)
}

func TestNewCertificate_Validation(t *testing.T) {
	future := now.Add(24 * time.Hour)
	before := now.AddDate(-2, 0, 0)

	tests := []struct {
		name    string
		mutate  func(i *Info)
		wantErr error
	}{
		{"bad check digit", func(i *Info) { i.ISBN13 = "978-0-306-40615-0" }, ErrInvalidISBN13},
		{"failing isbn", func(i *Info) { i.ISBN13 = "123-4-567-89012-3" }, ErrInvalidISBN13},
		{"bad isbn10", func(i *Info) { i.ISBN10 = "0-306-40615-3" }, ErrInvalidISBN10},
		{"future issue", func(i *Info) { i.IssueDate = &future }, ErrIssueDateInFuture},
		{"expiry before issue", func(i *Info) { i.ExpiryDate = &before }, ErrExpiryBeforeIssue},
		{"missing title", func(i *Info) { i.Title = " " }, ErrInvalidCertificate},
		{"missing issue date", func(i *Info) { i.IssueDate = nil }, ErrInvalidCertificate},
		{"country", func(i *Info) { i.IssuingCountry = "G1" }, ErrInvalidCertificate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := validInfo()
			tt.mutate(&info)
			_, err := NewCertificate(1, 10, info, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 400, apperrors.HTTPStatus(apperrors.GetAppError(err).Code))
		})
	}
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile("application/pdf", 200<<10, 0, 0))
	assert.NoError(t, ValidateFile("image/tiff", 1<<10, 0, 0))
	assert.ErrorIs(t, ValidateFile("image/webp", 200<<10, 0, 0), ErrInvalidFileType)
	assert.ErrorIs(t, ValidateFile("application/pdf", 1023, 0, 0), ErrFileSize)
	assert.ErrorIs(t, ValidateFile("application/pdf", 10<<20+1, 0, 0), ErrFileSize)
	assert.NoError(t, ValidateFile("application/pdf", 20<<20, 0, 25<<20))
}

func TestVerifyApproveFlow(t *testing.T) {
	c := newPending(t)

	assert.ErrorIs(t, c.Approve(2, now), ErrInvalidStatusTransition)

	require.NoError(t, c.Verify(2, "", now))
	assert.Equal(t, StatusVerified, c.Status)
	assert.Equal(t, "MANUAL", c.VerificationMethod)
	require.NotNil(t, c.VerifiedAt)

	assert.ErrorIs(t, c.Verify(2, "REGISTRY", now), ErrInvalidStatusTransition)

	require.NoError(t, c.Approve(3, now))
	assert.Equal(t, StatusApproved, c.Status)
	assert.ErrorIs(t, c.Approve(3, now), ErrInvalidStatusTransition)
	assert.ErrorIs(t, c.Reject(3, "late", now), ErrInvalidStatusTransition)
}

func TestRejectAndResubmit(t *testing.T) {
	c := newPending(t)

	assert.ErrorIs(t, c.Reject(2, "", now), ErrRejectionReasonRequired)
	require.NoError(t, c.Reject(2, "Scan is illegible", now))
	assert.Equal(t, StatusRejected, c.Status)
	assert.Equal(t, "Scan is illegible", c.RejectionReason)

	require.NoError(t, c.Resubmit("rescanned at 600dpi", now))
	assert.Equal(t, StatusPending, c.Status)
	assert.Empty(t, c.RejectionReason)
	assert.Nil(t, c.VerifiedBy)
	assert.Equal(t, "rescanned at 600dpi", c.Notes)
}

func TestLazyExpiry(t *testing.T) {
	c := newPending(t)
	expiry := now.Add(time.Hour)
	c.ExpiryDate = &expiry

	assert.False(t, IsEffectivelyExpired(c, now))
	assert.Equal(t, StatusPending, c.EffectiveStatus(now))

	later := now.Add(2 * time.Hour)
	assert.True(t, IsEffectivelyExpired(c, later))
	assert.Equal(t, StatusExpired, c.EffectiveStatus(later))
	// reading does not write
	assert.Equal(t, StatusPending, c.Status)

	assert.True(t, c.FoldExpiry(later))
	assert.Equal(t, StatusExpired, c.Status)
	assert.False(t, c.FoldExpiry(later))

	assert.ErrorIs(t, c.Verify(2, "", later), ErrCertificateExpired)
	assert.Equal(t, 409, apperrors.HTTPStatus(ErrCertificateExpired.Code))
}

func TestDeactivateReactivate(t *testing.T) {
	c := newPending(t)
	require.NoError(t, c.Deactivate(now))
	assert.ErrorIs(t, c.Deactivate(now), ErrAlreadyInactive)
	require.NoError(t, c.Reactivate(now))
	assert.ErrorIs(t, c.Reactivate(now), ErrAlreadyActive)
}

func TestIsRemovable(t *testing.T) {
	c := newPending(t)
	assert.True(t, c.IsRemovable())
	require.NoError(t, c.Verify(2, "", now))
	assert.False(t, c.IsRemovable())
}

func TestNewStatistics(t *testing.T) {
	s := NewStatistics(map[Status]int64{
		StatusPending:  1,
		StatusVerified: 1,
		StatusApproved: 1,
	}, 3)
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, 66.67, s.VerifiedPercentage)

	empty := NewStatistics(map[Status]int64{}, 0)
	assert.Zero(t, empty.VerifiedPercentage)
}

func TestNewAuditLog(t *testing.T) {
	actor := identity.Actor{ID: 5, Role: identity.RoleEditor, IP: "10.0.0.1", UserAgent: "curl/8"}
	log := NewAuditLog(9, AuditVerified, actor, map[string]interface{}{"status": "PENDING"}, map[string]interface{}{"status": "VERIFIED"}, "", now)

	assert.Equal(t, uint(9), log.CertificateID)
	assert.Equal(t, uint(5), log.PerformedBy)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
	assert.Equal(t, "curl/8", log.UserAgent)
}
