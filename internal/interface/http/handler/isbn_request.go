package handler

import (
	"github.com/gin-gonic/gin"

	appreq "github.com/xiebiao/pubflow/internal/application/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbnrequest"
	"github.com/xiebiao/pubflow/internal/interface/http/dto"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

// IsbnRequestHandler serves the ISBN request endpoints.
type IsbnRequestHandler struct {
	create  *appreq.CreateRequestUseCase
	fulfill *appreq.FulfillRequestUseCase
	query   *appreq.QueryRequestsUseCase
}

func NewIsbnRequestHandler(create *appreq.CreateRequestUseCase, fulfill *appreq.FulfillRequestUseCase, query *appreq.QueryRequestsUseCase) *IsbnRequestHandler {
	return &IsbnRequestHandler{create: create, fulfill: fulfill, query: query}
}

// Create
// @Summary      Request an ISBN for a book
// @Tags         isbn-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookId  path int                           true "Book ID"
// @Param        request body dto.CreateIsbnRequestRequest  true "Request"
// @Success      201 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Failure      400 {object} response.Response
// @Failure      403 {object} response.Response
// @Router       /api/v1/books/{bookId}/isbn-requests [post]
func (h *IsbnRequestHandler) Create(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var req dto.CreateIsbnRequestRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	params, err := req.ToParams()
	if err != nil {
		response.Error(c, err)
		return
	}
	r, err := h.create.Execute(c.Request.Context(), appreq.CreateRequestRequest{
		Actor:  middleware.GetActor(c),
		BookID: bookID,
		Params: params,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "ISBN request created", dto.NewIsbnRequestDetailView(r))
}

// Get
// @Summary      Get ISBN request
// @Tags         isbn-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Router       /api/v1/isbn-requests/{id} [get]
func (h *IsbnRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	r, err := h.query.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.IsbnRequestFor(r, appreq.CanViewDetail(actor, r)))
}

// Mine
// @Summary      List my ISBN requests
// @Tags         isbn-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status filter"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.IsbnRequestDetailView]}
// @Router       /api/v1/isbn-requests/mine [get]
func (h *IsbnRequestHandler) Mine(c *gin.Context) {
	var q dto.StatusPageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.query.Mine(c.Request.Context(), actor, q.Status, q.ToPage())
	if err != nil {
		response.Error(c, err)
		return
	}
	writeIsbnRequests(c, actor, res)
}

// Pending is the publisher work queue.
// @Summary      List pending ISBN requests
// @Tags         isbn-requests
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.IsbnRequestView]}
// @Router       /api/v1/isbn-requests/pending [get]
func (h *IsbnRequestHandler) Pending(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.query.Pending(c.Request.Context(), actor, q.ToPage())
	if err != nil {
		response.Error(c, err)
		return
	}
	writeIsbnRequests(c, actor, res)
}

func writeIsbnRequests(c *gin.Context, actor identity.Actor, res *appreq.ListRequestsResponse) {
	views := make([]interface{}, len(res.List))
	for i, r := range res.List {
		views[i] = dto.IsbnRequestFor(r, appreq.CanViewDetail(actor, r))
	}
	response.Success(c, dto.NewListResponse(views, res.Total, res.Page))
}

// Assign
// @Summary      Assign a publisher
// @Tags         isbn-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                         true "Request ID"
// @Param        request body dto.AssignPublisherRequest  true "Publisher"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Router       /api/v1/isbn-requests/{id}/assign [post]
func (h *IsbnRequestHandler) Assign(c *gin.Context) {
	var req dto.AssignPublisherRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	h.step(c, func(c *gin.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
		return h.fulfill.Assign(c.Request.Context(), actor, id, req.PublisherID, req.Notes)
	})
}

// Start
// @Summary      Start work on an ISBN request
// @Tags         isbn-requests
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Router       /api/v1/isbn-requests/{id}/start [post]
func (h *IsbnRequestHandler) Start(c *gin.Context) {
	h.step(c, func(c *gin.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
		return h.fulfill.Start(c.Request.Context(), actor, id)
	})
}

// Acquired
// @Summary      Mark the ISBN as acquired
// @Tags         isbn-requests
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Router       /api/v1/isbn-requests/{id}/acquired [post]
func (h *IsbnRequestHandler) Acquired(c *gin.Context) {
	h.step(c, func(c *gin.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
		return h.fulfill.MarkAcquired(c.Request.Context(), actor, id)
	})
}

// Complete links the certificate that fulfils the request.
// @Summary      Complete an ISBN request
// @Tags         isbn-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                              true "Request ID"
// @Param        request body dto.CompleteIsbnRequestRequest   true "Certificate"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Failure      400 {object} response.Response "certificate of another book"
// @Router       /api/v1/isbn-requests/{id}/complete [post]
func (h *IsbnRequestHandler) Complete(c *gin.Context) {
	var req dto.CompleteIsbnRequestRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	h.step(c, func(c *gin.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
		return h.fulfill.Complete(c.Request.Context(), actor, id, req.CertificateID)
	})
}

// Cancel
// @Summary      Cancel an ISBN request
// @Tags         isbn-requests
// @Security     BearerAuth
// @Param        id path int true "Request ID"
// @Success      200 {object} response.Response{data=dto.IsbnRequestDetailView}
// @Router       /api/v1/isbn-requests/{id}/cancel [post]
func (h *IsbnRequestHandler) Cancel(c *gin.Context) {
	h.step(c, func(c *gin.Context, actor identity.Actor, id uint) (*isbnrequest.Request, error) {
		return h.fulfill.Cancel(c.Request.Context(), actor, id)
	})
}

func (h *IsbnRequestHandler) step(c *gin.Context, fn func(*gin.Context, identity.Actor, uint) (*isbnrequest.Request, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := fn(c, middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewIsbnRequestDetailView(r))
}
