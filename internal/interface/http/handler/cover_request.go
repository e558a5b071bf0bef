package handler

import (
	"github.com/gin-gonic/gin"

	appcr "github.com/xiebiao/pubflow/internal/application/coverrequest"
	"github.com/xiebiao/pubflow/internal/domain/coverrequest"
	"github.com/xiebiao/pubflow/internal/interface/http/dto"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

// CoverRequestHandler serves the cover design request endpoints.
type CoverRequestHandler struct {
	create     *appcr.CreateRequestUseCase
	update     *appcr.UpdateRequestUseCase
	assign     *appcr.AssignDesignerUseCase
	transition *appcr.TransitionRequestUseCase
	remove     *appcr.DeleteRequestUseCase
	get        *appcr.GetRequestUseCase
	list       *appcr.ListRequestsUseCase
}

func NewCoverRequestHandler(
	create *appcr.CreateRequestUseCase,
	update *appcr.UpdateRequestUseCase,
	assign *appcr.AssignDesignerUseCase,
	transition *appcr.TransitionRequestUseCase,
	remove *appcr.DeleteRequestUseCase,
	get *appcr.GetRequestUseCase,
	list *appcr.ListRequestsUseCase,
) *CoverRequestHandler {
	return &CoverRequestHandler{
		create:     create,
		update:     update,
		assign:     assign,
		transition: transition,
		remove:     remove,
		get:        get,
		list:       list,
	}
}

// Create opens a cover design request for a book.
// @Summary      Create cover request
// @Tags         cover-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookId  path  int                            true  "Book ID"
// @Param        request body  dto.CreateCoverRequestRequest  true  "Request"
// @Success      201 {object} response.Response{data=dto.CoverRequestDetailView}
// @Failure      400 {object} response.Response "invalid fields"
// @Failure      403 {object} response.Response "role not allowed"
// @Router       /api/v1/books/{bookId}/cover-requests [post]
func (h *CoverRequestHandler) Create(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var req dto.CreateCoverRequestRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	deadline, err := dto.ParseDate(coverrequest.FieldDeadlineDate, req.DeadlineDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.create.Execute(c.Request.Context(), appcr.CreateRequestRequest{
		Actor:               middleware.GetActor(c),
		BookID:              bookID,
		Title:               req.Title,
		Description:         req.Description,
		Budget:              req.Budget,
		DeadlineDate:        deadline,
		Priority:            req.Priority,
		RevisionLimit:       req.RevisionLimit,
		PreferredFormats:    req.PreferredFormats,
		PreferredDimensions: req.PreferredDimensions,
		MinFileSize:         req.MinFileSize,
		MaxFileSize:         req.MaxFileSize,
		ConceptBrief:        req.ConceptBrief,
		AuthorNotes:         req.AuthorNotes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Cover design request created", dto.NewCoverRequestDetailView(r))
}

// Get returns the detailed view to the parties and managers, the public one otherwise.
// @Summary      Get cover request
// @Tags         cover-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.CoverRequestDetailView}
// @Failure      404 {object} response.Response
// @Router       /api/v1/cover-requests/{id} [get]
func (h *CoverRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.get.Execute(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CoverRequestFor(res.Request, res.Detailed))
}

// ListOpen
// @Summary      List open cover requests
// @Tags         cover-requests
// @Produce      json
// @Security     BearerAuth
// @Param        priority   query string false "Priority filter"
// @Param        min_budget query int false "Minimum budget in cents"
// @Param        page       query int false "Page"
// @Param        page_size  query int false "Page size"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CoverRequestView]}
// @Router       /api/v1/cover-requests/open [get]
func (h *CoverRequestHandler) ListOpen(c *gin.Context) {
	h.listScope(c, appcr.ScopeOpen)
}

// ListMine lists the caller's own requests.
// @Summary      List my cover requests
// @Tags         cover-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status filter"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CoverRequestDetailView]}
// @Router       /api/v1/cover-requests/mine [get]
func (h *CoverRequestHandler) ListMine(c *gin.Context) {
	h.listScope(c, appcr.ScopeMine)
}

// ListAssigned lists requests assigned to the calling designer.
// @Summary      List cover requests assigned to me
// @Tags         cover-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status filter"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CoverRequestDetailView]}
// @Router       /api/v1/cover-requests/assigned [get]
func (h *CoverRequestHandler) ListAssigned(c *gin.Context) {
	h.listScope(c, appcr.ScopeAssigned)
}

func (h *CoverRequestHandler) listScope(c *gin.Context, scope appcr.Scope) {
	var q dto.ListCoverRequestsQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.list.Execute(c.Request.Context(), appcr.ListRequestsRequest{
		Actor:     actor,
		Scope:     scope,
		Status:    q.Status,
		Priority:  q.Priority,
		MinBudget: q.MinBudget,
		Page:      q.ToPage(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]interface{}, len(res.List))
	for i, r := range res.List {
		views[i] = dto.CoverRequestFor(r, appcr.CanViewDetail(actor, r))
	}
	response.Success(c, dto.NewListResponse(views, res.Total, res.Page))
}

// Update applies the fields the caller may change.
// @Summary      Update cover request
// @Description  Managers may change every field, the author the brief, the designer notes and status.
// @Tags         cover-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                            true "Request ID"
// @Param        request body dto.UpdateCoverRequestRequest  true "Fields"
// @Success      200 {object} response.Response{data=dto.CoverRequestDetailView}
// @Failure      400 {object} response.Response "no valid fields"
// @Failure      403 {object} response.Response
// @Router       /api/v1/cover-requests/{id} [patch]
func (h *CoverRequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCoverRequestRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		response.Error(c, err)
		return
	}
	r, err := h.update.Execute(c.Request.Context(), appcr.UpdateRequestRequest{
		Actor:     middleware.GetActor(c),
		RequestID: id,
		Patch:     patch,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCoverRequestDetailView(r))
}

// Delete
// @Summary      Delete an open cover request
// @Tags         cover-requests
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/cover-requests/{id} [delete]
func (h *CoverRequestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.remove.Execute(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Cover design request deleted", nil)
}

// Assign
// @Summary      Assign a designer
// @Tags         cover-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                        true "Request ID"
// @Param        request body dto.AssignDesignerRequest  true "Designer"
// @Success      200 {object} response.Response{data=dto.CoverRequestDetailView}
// @Router       /api/v1/cover-requests/{id}/assign [post]
func (h *CoverRequestHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignDesignerRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	r, err := h.assign.Execute(c.Request.Context(), appcr.AssignDesignerRequest{
		Actor:      middleware.GetActor(c),
		RequestID:  id,
		DesignerID: req.DesignerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCoverRequestDetailView(r))
}

// Transition returns a handler running one state machine action:
// start, submit, revision, approve, complete or cancel.
// @Summary      Move a cover request through its workflow
// @Tags         cover-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.CoverRequestDetailView}
// @Failure      409 {object} response.Response "invalid transition or revision limit"
// @Router       /api/v1/cover-requests/{id}/start [post]
// @Router       /api/v1/cover-requests/{id}/submit [post]
// @Router       /api/v1/cover-requests/{id}/revision [post]
// @Router       /api/v1/cover-requests/{id}/approve [post]
// @Router       /api/v1/cover-requests/{id}/complete [post]
// @Router       /api/v1/cover-requests/{id}/cancel [post]
func (h *CoverRequestHandler) Transition(action appcr.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		r, err := h.transition.Execute(c.Request.Context(), appcr.TransitionRequestRequest{
			Actor:     middleware.GetActor(c),
			RequestID: id,
			Action:    action,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dto.NewCoverRequestDetailView(r))
	}
}
