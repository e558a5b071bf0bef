package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/shared"
)

type isbnRequestRepository struct {
	db *gorm.DB
}

func NewIsbnRequestRepository(db *gorm.DB) isbnrequest.Repository {
	return &isbnRequestRepository{db: db}
}

func (r *isbnRequestRepository) Create(ctx context.Context, req *isbnrequest.Request) error {
	model := toIsbnRequestModel(req)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return dbError(err, "create ISBN request failed")
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *isbnRequestRepository) FindByID(ctx context.Context, id uint) (*isbnrequest.Request, error) {
	return r.find(dbFrom(ctx, r.db), id)
}

func (r *isbnRequestRepository) LockByID(ctx context.Context, id uint) (*isbnrequest.Request, error) {
	return r.find(dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *isbnRequestRepository) find(db *gorm.DB, id uint) (*isbnrequest.Request, error) {
	var model IsbnRequestModel
	if err := db.First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, isbnrequest.ErrRequestNotFound
		}
		return nil, dbError(err, "query ISBN request failed")
	}
	return toIsbnRequestEntity(&model), nil
}

func (r *isbnRequestRepository) Update(ctx context.Context, req *isbnrequest.Request) error {
	model := toIsbnRequestModel(req)
	result := dbFrom(ctx, r.db).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		return dbError(result.Error, "update ISBN request failed")
	}
	if result.RowsAffected == 0 {
		return isbnrequest.ErrRequestNotFound
	}
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *isbnRequestRepository) ListByAuthor(ctx context.Context, authorID uint, status isbnrequest.Status, page shared.Page) ([]*isbnrequest.Request, int64, error) {
	q := dbFrom(ctx, r.db).Model(&IsbnRequestModel{}).Where("author_id = ?", authorID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	return r.list(q, "created_at DESC, id DESC", page)
}

func (r *isbnRequestRepository) ListPending(ctx context.Context, page shared.Page) ([]*isbnrequest.Request, int64, error) {
	q := dbFrom(ctx, r.db).Model(&IsbnRequestModel{}).Where("status = ?", string(isbnrequest.StatusPending))
	return r.list(q, priorityRank+" DESC, created_at ASC, id ASC", page)
}

func (r *isbnRequestRepository) list(q *gorm.DB, order string, page shared.Page) ([]*isbnrequest.Request, int64, error) {
	var models []IsbnRequestModel
	total, err := paginate(q, order, page, &models)
	if err != nil {
		return nil, 0, dbError(err, "list ISBN requests failed")
	}
	out := make([]*isbnrequest.Request, len(models))
	for i := range models {
		out[i] = toIsbnRequestEntity(&models[i])
	}
	return out, total, nil
}

func toIsbnRequestModel(r *isbnrequest.Request) *IsbnRequestModel {
	return &IsbnRequestModel{
		ID:                   r.ID,
		BookID:               r.BookID,
		AuthorID:             r.AuthorID,
		PublisherID:          r.PublisherID,
		Title:                r.Title,
		AuthorName:           r.AuthorName,
		PublisherName:        r.PublisherName,
		Format:               string(r.Format),
		Priority:             string(r.Priority),
		Status:               string(r.Status),
		Description:          r.Description,
		PageCount:            r.PageCount,
		Language:             r.Language,
		Genre:                r.Genre,
		CountryOfPublication: r.CountryOfPublication,
		PublicationDate:      r.PublicationDate,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		RequestNotes:         r.RequestNotes,
		PublisherNotes:       r.PublisherNotes,
		IsbnCertificateID:    r.IsbnCertificateID,
		AssignedAt:           r.AssignedAt,
		CompletedAt:          r.CompletedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func toIsbnRequestEntity(m *IsbnRequestModel) *isbnrequest.Request {
	return &isbnrequest.Request{
		ID:                   m.ID,
		BookID:               m.BookID,
		AuthorID:             m.AuthorID,
		PublisherID:          m.PublisherID,
		Title:                m.Title,
		AuthorName:           m.AuthorName,
		PublisherName:        m.PublisherName,
		Format:               isbnrequest.Format(m.Format),
		Priority:             shared.Priority(m.Priority),
		Status:               isbnrequest.Status(m.Status),
		Description:          m.Description,
		PageCount:            m.PageCount,
		Language:             m.Language,
		Genre:                m.Genre,
		CountryOfPublication: m.CountryOfPublication,
		PublicationDate:      m.PublicationDate,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		RequestNotes:         m.RequestNotes,
		PublisherNotes:       m.PublisherNotes,
		IsbnCertificateID:    m.IsbnCertificateID,
		AssignedAt:           m.AssignedAt,
		CompletedAt:          m.CompletedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
