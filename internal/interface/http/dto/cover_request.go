package dto

import (
	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
)

// CreateCoverRequestRequest is the body of POST /books/:bookId/cover-requests.
// Budget is in cents.
type CreateCoverRequestRequest struct {
	Title               string   `json:"title" binding:"required" example:"Cover for The Long Night"`
	Description         string   `json:"description" example:"Dark, minimal, one figure in snow"`
	Budget              int64    `json:"budget" binding:"min=0" example:"50000"`
	DeadlineDate        string   `json:"deadline_date" example:"2026-12-01"`
	Priority            string   `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT low medium high urgent" example:"HIGH"`
	RevisionLimit       *int     `json:"revision_limit" binding:"omitempty,min=0,max=10" example:"3"`
	PreferredFormats    []string `json:"preferred_formats" example:"PNG,JPEG"`
	PreferredDimensions string   `json:"preferred_dimensions" binding:"max=50" example:"1600x2400"`
	MinFileSize         int64    `json:"min_file_size" binding:"min=0" example:"1024"`
	MaxFileSize         int64    `json:"max_file_size" binding:"min=0" example:"10485760"`
	ConceptBrief        string   `json:"concept_brief" example:"Winter, isolation"`
	AuthorNotes         string   `json:"author_notes"`
}

// UpdateCoverRequestRequest is a partial update; absent fields are untouched.
// Which fields apply depends on the caller.
type UpdateCoverRequestRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
	DeadlineDate  *string `json:"deadline_date"`
	Budget        *int64  `json:"budget"`
	AuthorNotes   *string `json:"author_notes"`
	DesignerNotes *string `json:"designer_notes"`
}

// ToPatch converts the body into a domain patch.
func (r UpdateCoverRequestRequest) ToPatch() (coverrequest.Patch, error) {
	p := coverrequest.Patch{
		Title:         r.Title,
		Description:   r.Description,
		Priority:      r.Priority,
		Status:        r.Status,
		Budget:        r.Budget,
		AuthorNotes:   r.AuthorNotes,
		DesignerNotes: r.DesignerNotes,
	}
	if r.DeadlineDate != nil {
		t, err := ParseDate(coverrequest.FieldDeadlineDate, *r.DeadlineDate)
		if err != nil {
			return p, err
		}
		p.DeadlineDate = t
	}
	return p, nil
}

type AssignDesignerRequest struct {
	DesignerID uint `json:"designer_id" binding:"required,gt=0" example:"7"`
}

// ListCoverRequestsQuery filters the cover request lists.
type ListCoverRequestsQuery struct {
	StatusPageQuery
	Priority  string `form:"priority" example:"HIGH"`
	MinBudget int64  `form:"min_budget" binding:"omitempty,min=0" example:"10000"`
}

// CoverRequestView is what any signed-in user may see.
type CoverRequestView struct {
	ID                  uint     `json:"id" example:"1"`
	BookID              uint     `json:"book_id" example:"12"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	PreferredDimensions string   `json:"preferred_dimensions,omitempty"`
	PreferredFormats    []string `json:"preferred_formats,omitempty"`
	Budget              int64    `json:"budget" example:"50000"`
	DeadlineDate        *string  `json:"deadline_date,omitempty"`
	Priority            string   `json:"priority" example:"MEDIUM"`
	Status              string   `json:"status" example:"OPEN"`
	RevisionLimit       int      `json:"revision_limit" example:"3"`
	CurrentRevisions    int      `json:"current_revisions" example:"0"`
	CreatedAt           string   `json:"created_at"`
}

// CoverRequestDetailView adds the parties, notes and file bounds.
type CoverRequestDetailView struct {
	CoverRequestView
	AuthorID           uint    `json:"author_id"`
	AssignedDesignerID *uint   `json:"assigned_designer_id,omitempty"`
	MinFileSize        int64   `json:"min_file_size"`
	MaxFileSize        int64   `json:"max_file_size"`
	ConceptBrief       string  `json:"concept_brief,omitempty"`
	AuthorNotes        string  `json:"author_notes,omitempty"`
	DesignerNotes      string  `json:"designer_notes,omitempty"`
	AssignedAt         *string `json:"assigned_at,omitempty"`
	CompletedAt        *string `json:"completed_at,omitempty"`
	UpdatedAt          string  `json:"updated_at"`
}

func NewCoverRequestView(r *coverrequest.Request) *CoverRequestView {
	return &CoverRequestView{
		ID:                  r.ID,
		BookID:              r.BookID,
		Title:               r.Title,
		Description:         r.Description,
		PreferredDimensions: r.PreferredDimensions,
		PreferredFormats:    r.PreferredFormats,
		Budget:              r.Budget,
		DeadlineDate:        formatTimePtr(r.DeadlineDate),
		Priority:            string(r.Priority),
		Status:              string(r.Status),
		RevisionLimit:       r.RevisionLimit,
		CurrentRevisions:    r.CurrentRevisions,
		CreatedAt:           formatTime(r.CreatedAt),
	}
}

func NewCoverRequestDetailView(r *coverrequest.Request) *CoverRequestDetailView {
	return &CoverRequestDetailView{
		CoverRequestView:   *NewCoverRequestView(r),
		AuthorID:           r.AuthorID,
		AssignedDesignerID: r.AssignedDesignerID,
		MinFileSize:        r.MinFileSize,
		MaxFileSize:        r.MaxFileSize,
		ConceptBrief:       r.ConceptBrief,
		AuthorNotes:        r.AuthorNotes,
		DesignerNotes:      r.DesignerNotes,
		AssignedAt:         formatTimePtr(r.AssignedAt),
		CompletedAt:        formatTimePtr(r.CompletedAt),
		UpdatedAt:          formatTime(r.UpdatedAt),
	}
}

// CoverRequestFor picks the view for the caller.
func CoverRequestFor(r *coverrequest.Request, detailed bool) interface{} {
	if detailed {
		return NewCoverRequestDetailView(r)
	}
	return NewCoverRequestView(r)
}
