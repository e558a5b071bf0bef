package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/shared"
)

// priorityRank orders priority strings URGENT > HIGH > MEDIUM > LOW in SQL.
const priorityRank = "CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END"

type coverRequestRepository struct {
	db *gorm.DB
}

func NewCoverRequestRepository(db *gorm.DB) coverrequest.Repository {
	return &coverRequestRepository{db: db}
}

func (r *coverRequestRepository) Create(ctx context.Context, req *coverrequest.Request) error {
	model := toCoverRequestModel(req)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return dbError(err, "create cover design request failed")
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *coverRequestRepository) FindByID(ctx context.Context, id uint) (*coverrequest.Request, error) {
	return r.find(dbFrom(ctx, r.db), id)
}

func (r *coverRequestRepository) LockByID(ctx context.Context, id uint) (*coverrequest.Request, error) {
	return r.find(dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *coverRequestRepository) find(db *gorm.DB, id uint) (*coverrequest.Request, error) {
	var model CoverDesignRequestModel
	if err := db.First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, coverrequest.ErrRequestNotFound
		}
		return nil, dbError(err, "query cover design request failed")
	}
	return toCoverRequestEntity(&model), nil
}

func (r *coverRequestRepository) Update(ctx context.Context, req *coverrequest.Request) error {
	model := toCoverRequestModel(req)
	result := dbFrom(ctx, r.db).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		return dbError(result.Error, "update cover design request failed")
	}
	if result.RowsAffected == 0 {
		return coverrequest.ErrRequestNotFound
	}
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *coverRequestRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&CoverDesignRequestModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete cover design request failed")
	}
	if result.RowsAffected == 0 {
		return coverrequest.ErrRequestNotFound
	}
	return nil
}

// IncrementRevision is a guarded atomic update:
// UPDATE ... SET current_revisions = current_revisions + 1
// WHERE id = ? AND current_revisions < revision_limit
func (r *coverRequestRepository) IncrementRevision(ctx context.Context, id uint) error {
	db := dbFrom(ctx, r.db)
	result := db.Model(&CoverDesignRequestModel{}).
		Where("id = ?", id).
		Where("current_revisions < revision_limit").
		Update("current_revisions", gorm.Expr("current_revisions + 1"))
	if result.Error != nil {
		return dbError(result.Error, "increment revision failed")
	}

	if result.RowsAffected == 0 {
		// Either the row is gone or the limit is reached.
		if _, err := r.find(db, id); err != nil {
			return err
		}
		return coverrequest.ErrRevisionLimitReached
	}
	return nil
}

func (r *coverRequestRepository) ListByAuthor(ctx context.Context, authorID uint, filter coverrequest.ListFilter) ([]*coverrequest.Request, int64, error) {
	q := r.filtered(ctx, filter).Where("author_id = ?", authorID)
	return r.list(q, "created_at DESC, id DESC", filter.Page)
}

func (r *coverRequestRepository) ListByDesigner(ctx context.Context, designerID uint, filter coverrequest.ListFilter) ([]*coverrequest.Request, int64, error) {
	q := r.filtered(ctx, filter).Where("assigned_designer_id = ?", designerID)
	// Requests without a deadline sort last on every driver.
	order := "CASE WHEN deadline_date IS NULL THEN 1 ELSE 0 END, deadline_date ASC, " + priorityRank + " DESC, id ASC"
	return r.list(q, order, filter.Page)
}

func (r *coverRequestRepository) ListOpen(ctx context.Context, filter coverrequest.ListFilter) ([]*coverrequest.Request, int64, error) {
	filter.Status = coverrequest.StatusOpen
	q := r.filtered(ctx, filter)
	return r.list(q, priorityRank+" DESC, created_at ASC, id ASC", filter.Page)
}

func (r *coverRequestRepository) filtered(ctx context.Context, filter coverrequest.ListFilter) *gorm.DB {
	q := dbFrom(ctx, r.db).Model(&CoverDesignRequestModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", string(filter.Priority))
	}
	if filter.MinBudget > 0 {
		q = q.Where("budget >= ?", filter.MinBudget)
	}
	return q
}

func (r *coverRequestRepository) list(q *gorm.DB, order string, page shared.Page) ([]*coverrequest.Request, int64, error) {
	var models []CoverDesignRequestModel
	total, err := paginate(q, order, page, &models)
	if err != nil {
		return nil, 0, dbError(err, "list cover design requests failed")
	}
	out := make([]*coverrequest.Request, len(models))
	for i := range models {
		out[i] = toCoverRequestEntity(&models[i])
	}
	return out, total, nil
}

func toCoverRequestModel(r *coverrequest.Request) *CoverDesignRequestModel {
	return &CoverDesignRequestModel{
		ID:                  r.ID,
		BookID:              r.BookID,
		AuthorID:            r.AuthorID,
		AssignedDesignerID:  r.AssignedDesignerID,
		Title:               r.Title,
		Description:         r.Description,
		Budget:              r.Budget,
		DeadlineDate:        r.DeadlineDate,
		Priority:            string(r.Priority),
		Status:              string(r.Status),
		RevisionLimit:       r.RevisionLimit,
		CurrentRevisions:    r.CurrentRevisions,
		PreferredFormats:    toJSON(r.PreferredFormats),
		PreferredDimensions: r.PreferredDimensions,
		MinFileSize:         r.MinFileSize,
		MaxFileSize:         r.MaxFileSize,
		ConceptBrief:        r.ConceptBrief,
		AuthorNotes:         r.AuthorNotes,
		DesignerNotes:       r.DesignerNotes,
		AssignedAt:          r.AssignedAt,
		CompletedAt:         r.CompletedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toCoverRequestEntity(m *CoverDesignRequestModel) *coverrequest.Request {
	r := &coverrequest.Request{
		ID:                  m.ID,
		BookID:              m.BookID,
		AuthorID:            m.AuthorID,
		AssignedDesignerID:  m.AssignedDesignerID,
		Title:               m.Title,
		Description:         m.Description,
		Budget:              m.Budget,
		DeadlineDate:        m.DeadlineDate,
		Priority:            shared.Priority(m.Priority),
		Status:              coverrequest.Status(m.Status),
		RevisionLimit:       m.RevisionLimit,
		CurrentRevisions:    m.CurrentRevisions,
		PreferredDimensions: m.PreferredDimensions,
		MinFileSize:         m.MinFileSize,
		MaxFileSize:         m.MaxFileSize,
		ConceptBrief:        m.ConceptBrief,
		AuthorNotes:         m.AuthorNotes,
		DesignerNotes:       m.DesignerNotes,
		AssignedAt:          m.AssignedAt,
		CompletedAt:         m.CompletedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	fromJSON("cover_design_requests.preferred_formats", m.PreferredFormats, &r.PreferredFormats)
	return r
}
