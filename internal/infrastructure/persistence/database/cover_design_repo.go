package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var errActiveCoverTaken = apperrors.Conflict("Another cover design is already active for this book")

type coverDesignRepository struct {
	db *gorm.DB
}

func NewCoverDesignRepository(db *gorm.DB) coverdesign.Repository {
	return &coverDesignRepository{db: db}
}

// NextVersion bumps the book's sequence row. The UPDATE takes the row lock,
// so concurrent uploads for one book serialize here and never share a
// number. The row is seeded from MAX(version) on first use.
func (r *coverDesignRepository) NextVersion(ctx context.Context, bookID uint) (int, error) {
	var version int
	err := dbFrom(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		bumped, err := bumpSequence(tx, bookID)
		if err != nil {
			return err
		}
		if !bumped {
			var current int
			if err := tx.Model(&CoverDesignModel{}).
				Where("book_id = ?", bookID).
				Select("COALESCE(MAX(version), 0)").
				Scan(&current).Error; err != nil {
				return err
			}
			seed := &CoverDesignSequenceModel{BookID: bookID, LastVersion: current}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
				return err
			}
			if _, err := bumpSequence(tx, bookID); err != nil {
				return err
			}
		}

		var seq CoverDesignSequenceModel
		if err := tx.First(&seq, "book_id = ?", bookID).Error; err != nil {
			return err
		}
		version = seq.LastVersion
		return nil
	})
	if err != nil {
		return 0, dbError(err, "reserve cover design version failed")
	}
	return version, nil
}

func bumpSequence(tx *gorm.DB, bookID uint) (bool, error) {
	result := tx.Model(&CoverDesignSequenceModel{}).
		Where("book_id = ?", bookID).
		Updates(map[string]interface{}{
			"last_version": gorm.Expr("last_version + 1"),
			"updated_at":   tx.NowFunc(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *coverDesignRepository) Create(ctx context.Context, d *coverdesign.Design) error {
	model := toCoverDesignModel(d)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return coverdesign.ErrVersionConflict
		}
		return dbError(err, "create cover design failed")
	}
	d.ID = model.ID
	d.CreatedAt = model.CreatedAt
	d.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *coverDesignRepository) FindByID(ctx context.Context, id uint) (*coverdesign.Design, error) {
	var model CoverDesignModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, coverdesign.ErrDesignNotFound
		}
		return nil, dbError(err, "query cover design failed")
	}
	return toCoverDesignEntity(&model), nil
}

// Update saves every mutable column. A second active design for the same
// book trips the active_book_id unique index.
func (r *coverDesignRepository) Update(ctx context.Context, d *coverdesign.Design) error {
	model := toCoverDesignModel(d)
	result := dbFrom(ctx, r.db).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return errActiveCoverTaken.WithCause(result.Error)
		}
		return dbError(result.Error, "update cover design failed")
	}
	if result.RowsAffected == 0 {
		return coverdesign.ErrDesignNotFound
	}
	d.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *coverDesignRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&CoverDesignModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete cover design failed")
	}
	if result.RowsAffected == 0 {
		return coverdesign.ErrDesignNotFound
	}
	return nil
}

// LockByBook locks rows in id order so two activations never wait on each
// other in opposite orders.
func (r *coverDesignRepository) LockByBook(ctx context.Context, bookID uint) ([]*coverdesign.Design, error) {
	var models []CoverDesignModel
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ?", bookID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, dbError(err, "lock cover designs failed")
	}
	return toCoverDesignEntities(models), nil
}

func (r *coverDesignRepository) ListByBook(ctx context.Context, bookID uint, filter coverdesign.ListFilter) ([]*coverdesign.Design, int64, error) {
	q := r.filtered(ctx, filter).Where("book_id = ?", bookID)
	return r.list(q, "version DESC", filter.Page)
}

func (r *coverDesignRepository) FindActiveByBook(ctx context.Context, bookID uint) (*coverdesign.Design, error) {
	var model CoverDesignModel
	err := dbFrom(ctx, r.db).Where("active_book_id = ?", bookID).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, coverdesign.ErrDesignNotFound
		}
		return nil, dbError(err, "query active cover design failed")
	}
	return toCoverDesignEntity(&model), nil
}

func (r *coverDesignRepository) VersionHistory(ctx context.Context, bookID uint) ([]*coverdesign.Design, error) {
	var models []CoverDesignModel
	if err := dbFrom(ctx, r.db).Where("book_id = ?", bookID).Order("version ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "query cover design history failed")
	}
	return toCoverDesignEntities(models), nil
}

func (r *coverDesignRepository) ListByUploader(ctx context.Context, uploaderID uint, filter coverdesign.ListFilter) ([]*coverdesign.Design, int64, error) {
	q := r.filtered(ctx, filter).Where("uploaded_by = ?", uploaderID)
	return r.list(q, "created_at DESC, id DESC", filter.Page)
}

func (r *coverDesignRepository) filtered(ctx context.Context, filter coverdesign.ListFilter) *gorm.DB {
	q := dbFrom(ctx, r.db).Model(&CoverDesignModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	return q
}

func (r *coverDesignRepository) list(q *gorm.DB, order string, page shared.Page) ([]*coverdesign.Design, int64, error) {
	var models []CoverDesignModel
	total, err := paginate(q, order, page, &models)
	if err != nil {
		return nil, 0, dbError(err, "list cover designs failed")
	}
	return toCoverDesignEntities(models), total, nil
}

func toCoverDesignModel(d *coverdesign.Design) *CoverDesignModel {
	m := &CoverDesignModel{
		ID:                d.ID,
		BookID:            d.BookID,
		Version:           d.Version,
		UploadedBy:        d.UploadedBy,
		DesignerID:        d.DesignerID,
		RequestID:         d.RequestID,
		Title:             d.Title,
		Description:       d.Description,
		DesignConcept:     d.DesignConcept,
		ColorScheme:       d.ColorScheme,
		Style:             d.Style,
		TargetAudience:    d.TargetAudience,
		DesignNotes:       d.DesignNotes,
		DesignerName:      d.DesignerName,
		DesignerEmail:     d.DesignerEmail,
		DesignerPortfolio: d.DesignerPortfolio,
		FileName:          d.FileName,
		FileKey:           d.FileKey,
		FileURL:           d.FileURL,
		ThumbnailURL:      d.ThumbnailURL,
		FileSize:          d.FileSize,
		MimeType:          d.MimeType,
		Width:             d.Width,
		Height:            d.Height,
		Status:            string(d.Status),
		IsActive:          d.IsActive,
		ApprovedBy:        d.ApprovedBy,
		ApprovedAt:        d.ApprovedAt,
		RejectionReason:   d.RejectionReason,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.IsActive {
		bookID := d.BookID
		m.ActiveBookID = &bookID
	}
	return m
}

func toCoverDesignEntity(m *CoverDesignModel) *coverdesign.Design {
	return &coverdesign.Design{
		ID:                m.ID,
		BookID:            m.BookID,
		Version:           m.Version,
		UploadedBy:        m.UploadedBy,
		DesignerID:        m.DesignerID,
		RequestID:         m.RequestID,
		Title:             m.Title,
		Description:       m.Description,
		DesignConcept:     m.DesignConcept,
		ColorScheme:       m.ColorScheme,
		Style:             m.Style,
		TargetAudience:    m.TargetAudience,
		DesignNotes:       m.DesignNotes,
		DesignerName:      m.DesignerName,
		DesignerEmail:     m.DesignerEmail,
		DesignerPortfolio: m.DesignerPortfolio,
		FileName:          m.FileName,
		FileKey:           m.FileKey,
		FileURL:           m.FileURL,
		ThumbnailURL:      m.ThumbnailURL,
		FileSize:          m.FileSize,
		MimeType:          m.MimeType,
		Width:             m.Width,
		Height:            m.Height,
		Status:            coverdesign.Status(m.Status),
		IsActive:          m.IsActive,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		RejectionReason:   m.RejectionReason,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toCoverDesignEntities(models []CoverDesignModel) []*coverdesign.Design {
	out := make([]*coverdesign.Design, len(models))
	for i := range models {
		out[i] = toCoverDesignEntity(&models[i])
	}
	return out
}
