package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/shared"
)

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) isbncert.Repository {
	return &certificateRepository{db: db}
}

// Create inserts the certificate. The active_isbn13 unique index rejects a
// second active holder of the same ISBN-13 even when two uploads race past
// the pre-check.
func (r *certificateRepository) Create(ctx context.Context, c *isbncert.Certificate) error {
	model := toCertificateModel(c)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return isbncert.ErrISBNDuplicate
		}
		return dbError(err, "create certificate failed")
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *certificateRepository) FindByID(ctx context.Context, id uint) (*isbncert.Certificate, error) {
	return r.find(dbFrom(ctx, r.db), id)
}

func (r *certificateRepository) LockByID(ctx context.Context, id uint) (*isbncert.Certificate, error) {
	return r.find(dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *certificateRepository) find(db *gorm.DB, id uint) (*isbncert.Certificate, error) {
	var model IsbnCertificateModel
	if err := db.First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, isbncert.ErrCertificateNotFound
		}
		return nil, dbError(err, "query certificate failed")
	}
	return toCertificateEntity(&model), nil
}

func (r *certificateRepository) Update(ctx context.Context, c *isbncert.Certificate) error {
	model := toCertificateModel(c)
	result := dbFrom(ctx, r.db).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return isbncert.ErrISBNDuplicate
		}
		return dbError(result.Error, "update certificate failed")
	}
	if result.RowsAffected == 0 {
		return isbncert.ErrCertificateNotFound
	}
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *certificateRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&IsbnCertificateModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete certificate failed")
	}
	if result.RowsAffected == 0 {
		return isbncert.ErrCertificateNotFound
	}
	return nil
}

func (r *certificateRepository) FindActiveByISBN(ctx context.Context, isbn13, isbn10 string, excludeID uint) (*isbncert.Certificate, error) {
	q := dbFrom(ctx, r.db).Where("is_active = ?", true)
	if isbn10 != "" {
		q = q.Where("isbn13 = ? OR isbn10 = ?", isbn13, isbn10)
	} else {
		q = q.Where("isbn13 = ?", isbn13)
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var model IsbnCertificateModel
	if err := q.Order("id ASC").First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, isbncert.ErrCertificateNotFound
		}
		return nil, dbError(err, "query certificate by ISBN failed")
	}
	return toCertificateEntity(&model), nil
}

func (r *certificateRepository) ListByBook(ctx context.Context, bookID uint, page shared.Page) ([]*isbncert.Certificate, int64, error) {
	q := dbFrom(ctx, r.db).Model(&IsbnCertificateModel{}).Where("book_id = ?", bookID)
	return r.list(q, "created_at DESC, id DESC", page)
}

func (r *certificateRepository) ListByUploader(ctx context.Context, uploaderID uint, filter isbncert.SearchFilter) ([]*isbncert.Certificate, int64, error) {
	q := r.filtered(ctx, filter).Where("uploaded_by = ?", uploaderID)
	return r.list(q, "created_at DESC, id DESC", filter.Page)
}

func (r *certificateRepository) ListPending(ctx context.Context, page shared.Page) ([]*isbncert.Certificate, int64, error) {
	q := dbFrom(ctx, r.db).Model(&IsbnCertificateModel{}).Where("status = ?", string(isbncert.StatusPending))
	return r.list(q, "created_at ASC, id ASC", page)
}

func (r *certificateRepository) Search(ctx context.Context, filter isbncert.SearchFilter) ([]*isbncert.Certificate, int64, error) {
	return r.list(r.filtered(ctx, filter), "created_at DESC, id DESC", filter.Page)
}

func (r *certificateRepository) CountByStatus(ctx context.Context, asOf time.Time) (map[isbncert.Status]int64, error) {
	var rows []struct {
		Status string
		Lapsed int
		Count  int64
	}
	err := dbFrom(ctx, r.db).Model(&IsbnCertificateModel{}).
		Select("status, CASE WHEN expiry_date IS NOT NULL AND expiry_date < ? THEN 1 ELSE 0 END AS lapsed, COUNT(*) AS count", asOf).
		Group("status, lapsed").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "count certificates failed")
	}

	counts := make(map[isbncert.Status]int64, len(rows))
	for _, row := range rows {
		status := isbncert.Status(row.Status)
		if row.Lapsed == 1 {
			status = isbncert.StatusExpired
		}
		counts[status] += row.Count
	}
	return counts, nil
}

func (r *certificateRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := dbFrom(ctx, r.db).Model(&IsbnCertificateModel{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return 0, dbError(err, "count active certificates failed")
	}
	return n, nil
}

func (r *certificateRepository) filtered(ctx context.Context, filter isbncert.SearchFilter) *gorm.DB {
	q := dbFrom(ctx, r.db).Model(&IsbnCertificateModel{})
	if filter.ISBN != "" {
		like := "%" + filter.ISBN + "%"
		q = q.Where("isbn13 LIKE ? OR isbn10 LIKE ?", like, like)
	}
	if filter.Status != "" {
		q = whereStatus(q, filter.Status, filter.AsOf)
	}
	if filter.UploadedFrom != nil {
		q = q.Where("created_at >= ?", *filter.UploadedFrom)
	}
	if filter.UploadedTo != nil {
		q = q.Where("created_at <= ?", *filter.UploadedTo)
	}
	return q
}

// whereStatus matches stored status, or with asOf set the status a reader
// sees at that instant.
func whereStatus(q *gorm.DB, status isbncert.Status, asOf time.Time) *gorm.DB {
	switch {
	case asOf.IsZero():
		return q.Where("status = ?", string(status))
	case status == isbncert.StatusExpired:
		return q.Where("(status = ? OR (expiry_date IS NOT NULL AND expiry_date < ?))", string(status), asOf)
	default:
		return q.Where("status = ? AND (expiry_date IS NULL OR expiry_date >= ?)", string(status), asOf)
	}
}

func (r *certificateRepository) list(q *gorm.DB, order string, page shared.Page) ([]*isbncert.Certificate, int64, error) {
	var models []IsbnCertificateModel
	total, err := paginate(q, order, page, &models)
	if err != nil {
		return nil, 0, dbError(err, "list certificates failed")
	}
	out := make([]*isbncert.Certificate, len(models))
	for i := range models {
		out[i] = toCertificateEntity(&models[i])
	}
	return out, total, nil
}

func toCertificateModel(c *isbncert.Certificate) *IsbnCertificateModel {
	m := &IsbnCertificateModel{
		ID:                 c.ID,
		BookID:             c.BookID,
		UploadedBy:         c.UploadedBy,
		ISBN13:             c.ISBN13,
		ISBN10:             c.ISBN10,
		Title:              c.Title,
		AuthorName:         c.AuthorName,
		PublisherName:      c.PublisherName,
		IssuingAuthority:   c.IssuingAuthority,
		IssuingCountry:     c.IssuingCountry,
		RegistrationNumber: c.RegistrationNumber,
		IssueDate:          c.IssueDate,
		ExpiryDate:         c.ExpiryDate,
		FileName:           c.FileName,
		FileKey:            c.FileKey,
		FileURL:            c.FileURL,
		FileSize:           c.FileSize,
		MimeType:           c.MimeType,
		Checksum:           c.Checksum,
		Status:             string(c.Status),
		VerifiedBy:         c.VerifiedBy,
		VerifiedAt:         c.VerifiedAt,
		VerificationMethod: c.VerificationMethod,
		RejectionReason:    c.RejectionReason,
		Notes:              c.Notes,
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if len(c.Metadata) > 0 {
		m.Metadata = toJSON(c.Metadata)
	}
	if c.IsActive {
		isbn13 := c.ISBN13
		m.ActiveISBN13 = &isbn13
	}
	return m
}

func toCertificateEntity(m *IsbnCertificateModel) *isbncert.Certificate {
	c := &isbncert.Certificate{
		ID:                 m.ID,
		BookID:             m.BookID,
		UploadedBy:         m.UploadedBy,
		ISBN13:             m.ISBN13,
		ISBN10:             m.ISBN10,
		Title:              m.Title,
		AuthorName:         m.AuthorName,
		PublisherName:      m.PublisherName,
		IssuingAuthority:   m.IssuingAuthority,
		IssuingCountry:     m.IssuingCountry,
		RegistrationNumber: m.RegistrationNumber,
		IssueDate:          m.IssueDate,
		ExpiryDate:         m.ExpiryDate,
		FileName:           m.FileName,
		FileKey:            m.FileKey,
		FileURL:            m.FileURL,
		FileSize:           m.FileSize,
		MimeType:           m.MimeType,
		Checksum:           m.Checksum,
		Status:             isbncert.Status(m.Status),
		VerifiedBy:         m.VerifiedBy,
		VerifiedAt:         m.VerifiedAt,
		VerificationMethod: m.VerificationMethod,
		RejectionReason:    m.RejectionReason,
		Notes:              m.Notes,
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	fromJSON("isbn_certificates.metadata", m.Metadata, &c.Metadata)
	return c
}
