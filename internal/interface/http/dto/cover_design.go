package dto

import (
	"github.com/xiebiao/pubflow/internal/domain/coverdesign"
)

// UploadCoverForm holds the form fields sent next to the `cover` file.
type UploadCoverForm struct {
	RequestID         *uint  `form:"request_id" binding:"omitempty,gt=0" example:"3"`
	DesignerID        uint   `form:"designer_id" example:"7"`
	Width             int    `form:"width" binding:"omitempty,min=1" example:"1600"`
	Height            int    `form:"height" binding:"omitempty,min=1" example:"2400"`
	Title             string `form:"title" binding:"max=200" example:"Snow figure, v2"`
	Description       string `form:"description"`
	DesignConcept     string `form:"design_concept"`
	ColorScheme       string `form:"color_scheme" example:"cold blues"`
	Style             string `form:"style" example:"minimal"`
	TargetAudience    string `form:"target_audience"`
	DesignNotes       string `form:"design_notes"`
	DesignerName      string `form:"designer_name"`
	DesignerEmail     string `form:"designer_email" binding:"omitempty,email"`
	DesignerPortfolio string `form:"designer_portfolio" binding:"omitempty,url"`
}

// UpdateCoverDesignRequest edits descriptive fields only.
type UpdateCoverDesignRequest struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	DesignConcept     *string `json:"design_concept"`
	ColorScheme       *string `json:"color_scheme"`
	Style             *string `json:"style"`
	TargetAudience    *string `json:"target_audience"`
	DesignNotes       *string `json:"design_notes"`
	DesignerName      *string `json:"designer_name"`
	DesignerEmail     *string `json:"designer_email"`
	DesignerPortfolio *string `json:"designer_portfolio"`
}

func (r UpdateCoverDesignRequest) ToPatch() coverdesign.Patch {
	return coverdesign.Patch{
		Title:             r.Title,
		Description:       r.Description,
		DesignConcept:     r.DesignConcept,
		ColorScheme:       r.ColorScheme,
		Style:             r.Style,
		TargetAudience:    r.TargetAudience,
		DesignNotes:       r.DesignNotes,
		DesignerName:      r.DesignerName,
		DesignerEmail:     r.DesignerEmail,
		DesignerPortfolio: r.DesignerPortfolio,
	}
}

// RejectRequest carries the reason of a rejection. Cover designs accept the
// reason as rejection_reason too.
type RejectRequest struct {
	Reason          string `json:"reason" example:"Title unreadable at thumbnail size"`
	RejectionReason string `json:"rejection_reason"`
}

func (r RejectRequest) Text() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.RejectionReason
}

// CoverDesignView is the public view.
type CoverDesignView struct {
	ID           uint   `json:"id" example:"5"`
	BookID       uint   `json:"book_id" example:"12"`
	UploadedBy   uint   `json:"uploaded_by" example:"10"`
	DesignerName string `json:"designer_name,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	FileURL      string `json:"file_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ColorScheme  string `json:"color_scheme,omitempty"`
	Style        string `json:"style,omitempty"`
	Status       string `json:"status" example:"SUBMITTED"`
	Version      int    `json:"version" example:"2"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
}

// CoverDesignDetailView adds designer contact, technical and review data.
type CoverDesignDetailView struct {
	CoverDesignView
	DesignerID        uint    `json:"designer_id"`
	RequestID         *uint   `json:"request_id,omitempty"`
	DesignConcept     string  `json:"design_concept,omitempty"`
	TargetAudience    string  `json:"target_audience,omitempty"`
	DesignNotes       string  `json:"design_notes,omitempty"`
	DesignerEmail     string  `json:"designer_email,omitempty"`
	DesignerPortfolio string  `json:"designer_portfolio,omitempty"`
	FileName          string  `json:"file_name"`
	FileSize          int64   `json:"file_size"`
	MimeType          string  `json:"mime_type"`
	Dimensions        string  `json:"dimensions,omitempty" example:"1600x2400"`
	RejectionReason   string  `json:"rejection_reason,omitempty"`
	ApprovedBy        *uint   `json:"approved_by,omitempty"`
	ApprovedAt        *string `json:"approved_at,omitempty"`
	UpdatedAt         string  `json:"updated_at"`
}

func NewCoverDesignView(d *coverdesign.Design) *CoverDesignView {
	return &CoverDesignView{
		ID:           d.ID,
		BookID:       d.BookID,
		UploadedBy:   d.UploadedBy,
		DesignerName: d.DesignerName,
		Title:        d.Title,
		Description:  d.Description,
		FileURL:      d.FileURL,
		ThumbnailURL: d.ThumbnailURL,
		ColorScheme:  d.ColorScheme,
		Style:        d.Style,
		Status:       string(d.Status),
		Version:      d.Version,
		IsActive:     d.IsActive,
		CreatedAt:    formatTime(d.CreatedAt),
	}
}

func NewCoverDesignDetailView(d *coverdesign.Design) *CoverDesignDetailView {
	return &CoverDesignDetailView{
		CoverDesignView:   *NewCoverDesignView(d),
		DesignerID:        d.DesignerID,
		RequestID:         d.RequestID,
		DesignConcept:     d.DesignConcept,
		TargetAudience:    d.TargetAudience,
		DesignNotes:       d.DesignNotes,
		DesignerEmail:     d.DesignerEmail,
		DesignerPortfolio: d.DesignerPortfolio,
		FileName:          d.FileName,
		FileSize:          d.FileSize,
		MimeType:          d.MimeType,
		Dimensions:        d.Dimensions(),
		RejectionReason:   d.RejectionReason,
		ApprovedBy:        d.ApprovedBy,
		ApprovedAt:        formatTimePtr(d.ApprovedAt),
		UpdatedAt:         formatTime(d.UpdatedAt),
	}
}

func CoverDesignFor(d *coverdesign.Design, detailed bool) interface{} {
	if detailed {
		return NewCoverDesignDetailView(d)
	}
	return NewCoverDesignView(d)
}

// ActivateCoverResponse reports the new active cover and the demoted ones.
type ActivateCoverResponse struct {
	Design  interface{} `json:"design"`
	Demoted []uint      `json:"demoted"`
}
