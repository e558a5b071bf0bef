package handler

import (
	"github.com/gin-gonic/gin"

	appcd "github.com/xiebiao/pubflow/internal/application/coverdesign"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/interface/http/dto"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

// CoverDesignHandler serves cover uploads, review, activation and queries.
type CoverDesignHandler struct {
	upload   *appcd.UploadDesignUseCase
	review   *appcd.ReviewDesignUseCase
	activate *appcd.ActivateDesignUseCase
	update   *appcd.UpdateDesignUseCase
	remove   *appcd.DeleteDesignUseCase
	query    *appcd.QueryDesignsUseCase
}

func NewCoverDesignHandler(
	upload *appcd.UploadDesignUseCase,
	review *appcd.ReviewDesignUseCase,
	activate *appcd.ActivateDesignUseCase,
	update *appcd.UpdateDesignUseCase,
	remove *appcd.DeleteDesignUseCase,
	query *appcd.QueryDesignsUseCase,
) *CoverDesignHandler {
	return &CoverDesignHandler{
		upload:   upload,
		review:   review,
		activate: activate,
		update:   update,
		remove:   remove,
		query:    query,
	}
}

// Upload stores a new cover version for the book.
// @Summary      Upload cover design
// @Description  Multipart upload; the image goes in the `cover` part. The version is assigned by the server.
// @Tags         cover-designs
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        bookId       path     int    true  "Book ID"
// @Param        cover        formData file   true  "Cover image (JPEG, PNG, WEBP, TIFF)"
// @Param        request_id   formData int    false "Cover request the upload answers"
// @Param        title        formData string false "Title"
// @Success      201 {object} response.Response{data=dto.CoverDesignView}
// @Failure      400 {object} response.Response "invalid file"
// @Failure      403 {object} response.Response
// @Failure      502 {object} response.Response "storage failure"
// @Router       /api/v1/books/{bookId}/covers [post]
func (h *CoverDesignHandler) Upload(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var form dto.UploadCoverForm
	if !bindForm(c, &form) {
		return
	}
	file, header, ok := formFile(c, "cover", true)
	if !ok {
		return
	}
	defer file.Close()

	d, err := h.upload.Execute(c.Request.Context(), appcd.UploadDesignRequest{
		Actor:       middleware.GetActor(c),
		BookID:      bookID,
		RequestID:   form.RequestID,
		DesignerID:  form.DesignerID,
		File:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Width:       form.Width,
		Height:      form.Height,
		Info: appcd.DesignInfo{
			Title:             form.Title,
			Description:       form.Description,
			DesignConcept:     form.DesignConcept,
			ColorScheme:       form.ColorScheme,
			Style:             form.Style,
			TargetAudience:    form.TargetAudience,
			DesignNotes:       form.DesignNotes,
			DesignerName:      form.DesignerName,
			DesignerEmail:     form.DesignerEmail,
			DesignerPortfolio: form.DesignerPortfolio,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Cover design uploaded successfully", dto.NewCoverDesignView(d))
}

// Approve
// @Summary      Approve cover design
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Design ID"
// @Success      200 {object} response.Response{data=dto.CoverDesignDetailView}
// @Failure      409 {object} response.Response "already approved"
// @Router       /api/v1/cover-designs/{id}/approve [post]
func (h *CoverDesignHandler) Approve(c *gin.Context) {
	h.decide(c, true, "")
}

// Reject
// @Summary      Reject cover design
// @Tags         cover-designs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                true "Design ID"
// @Param        request body dto.RejectRequest  true "Reason"
// @Success      200 {object} response.Response{data=dto.CoverDesignDetailView}
// @Failure      400 {object} response.Response "reason missing"
// @Failure      409 {object} response.Response "active cover"
// @Router       /api/v1/cover-designs/{id}/reject [post]
func (h *CoverDesignHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	h.decide(c, false, req.Text())
}

func (h *CoverDesignHandler) decide(c *gin.Context, approve bool, reason string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.review.Execute(c.Request.Context(), appcd.ReviewDesignRequest{
		Actor:    middleware.GetActor(c),
		DesignID: id,
		Approve:  approve,
		Reason:   reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCoverDesignDetailView(d))
}

// Activate makes the design the book's displayed cover.
// @Summary      Activate cover design
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "Book ID"
// @Param        id     path int true "Design ID"
// @Success      200 {object} response.Response{data=dto.ActivateCoverResponse}
// @Failure      400 {object} response.Response "design of another book or not approved"
// @Router       /api/v1/books/{bookId}/covers/{id}/activate [post]
func (h *CoverDesignHandler) Activate(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.activate.Execute(c.Request.Context(), appcd.ActivateDesignRequest{
		Actor:    middleware.GetActor(c),
		BookID:   bookID,
		DesignID: id,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	demoted := res.Demoted
	if demoted == nil {
		demoted = []uint{}
	}
	response.SuccessWithMessage(c, "Cover design activated", &dto.ActivateCoverResponse{
		Design:  dto.NewCoverDesignDetailView(res.Design),
		Demoted: demoted,
	})
}

// Update
// @Summary      Update cover design details
// @Tags         cover-designs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                           true "Design ID"
// @Param        request body dto.UpdateCoverDesignRequest  true "Fields"
// @Success      200 {object} response.Response{data=dto.CoverDesignDetailView}
// @Router       /api/v1/cover-designs/{id} [patch]
func (h *CoverDesignHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCoverDesignRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	d, err := h.update.Execute(c.Request.Context(), appcd.UpdateDesignRequest{
		Actor:    middleware.GetActor(c),
		DesignID: id,
		Patch:    req.ToPatch(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCoverDesignDetailView(d))
}

// Delete
// @Summary      Delete cover design
// @Tags         cover-designs
// @Security     BearerAuth
// @Param        id path int true "Design ID"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.Response "active cover"
// @Router       /api/v1/cover-designs/{id} [delete]
func (h *CoverDesignHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.remove.Execute(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Cover design deleted", nil)
}

// Get
// @Summary      Get cover design
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Design ID"
// @Success      200 {object} response.Response{data=dto.CoverDesignDetailView}
// @Router       /api/v1/cover-designs/{id} [get]
func (h *CoverDesignHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	d, err := h.query.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CoverDesignFor(d, appcd.CanViewDetail(actor, d)))
}

// ListByBook
// @Summary      List cover designs of a book
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path  int    true  "Book ID"
// @Param        status query string false "Status filter"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CoverDesignView]}
// @Router       /api/v1/books/{bookId}/covers [get]
func (h *CoverDesignHandler) ListByBook(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var q dto.StatusPageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.query.ListByBook(c.Request.Context(), bookID, appcd.ListDesignsRequest{
		Actor:  actor,
		Status: q.Status,
		Page:   q.ToPage(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeList(c, actor, res)
}

// Mine
// @Summary      List cover designs I uploaded
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status filter"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CoverDesignDetailView]}
// @Router       /api/v1/cover-designs/mine [get]
func (h *CoverDesignHandler) Mine(c *gin.Context) {
	var q dto.StatusPageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.query.Mine(c.Request.Context(), appcd.ListDesignsRequest{
		Actor:  actor,
		Status: q.Status,
		Page:   q.ToPage(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeList(c, actor, res)
}

func (h *CoverDesignHandler) writeList(c *gin.Context, actor identity.Actor, res *appcd.ListDesignsResponse) {
	views := make([]interface{}, len(res.List))
	for i, d := range res.List {
		views[i] = dto.CoverDesignFor(d, appcd.CanViewDetail(actor, d))
	}
	response.Success(c, dto.NewListResponse(views, res.Total, res.Page))
}

// Active
// @Summary      Get the active cover of a book
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "Book ID"
// @Success      200 {object} response.Response{data=dto.CoverDesignView}
// @Failure      404 {object} response.Response "no active cover"
// @Router       /api/v1/books/{bookId}/covers/active [get]
func (h *CoverDesignHandler) Active(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	d, err := h.query.Active(c.Request.Context(), middleware.GetActor(c), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCoverDesignView(d))
}

// History
// @Summary      Every cover version of a book, oldest first
// @Tags         cover-designs
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "Book ID"
// @Success      200 {object} response.Response{data=[]dto.CoverDesignView}
// @Router       /api/v1/books/{bookId}/covers/history [get]
func (h *CoverDesignHandler) History(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	list, err := h.query.History(c.Request.Context(), actor, bookID)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]interface{}, len(list))
	for i, d := range list {
		views[i] = dto.CoverDesignFor(d, appcd.CanViewDetail(actor, d))
	}
	response.Success(c, views)
}
