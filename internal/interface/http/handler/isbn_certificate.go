package handler

import (
	"github.com/gin-gonic/gin"

	appcert "github.com/xiebiao/pubflow/internal/application/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/interface/http/dto"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

// CertificateHandler serves the ISBN certificate endpoints.
type CertificateHandler struct {
	upload    *appcert.UploadCertificateUseCase
	review    *appcert.ReviewCertificateUseCase
	bulk      *appcert.BulkVerifyUseCase
	resubmit  *appcert.ResubmitCertificateUseCase
	setActive *appcert.SetCertificateActiveUseCase
	remove    *appcert.DeleteCertificateUseCase
	query     *appcert.QueryCertificatesUseCase
}

func NewCertificateHandler(
	upload *appcert.UploadCertificateUseCase,
	review *appcert.ReviewCertificateUseCase,
	bulk *appcert.BulkVerifyUseCase,
	resubmit *appcert.ResubmitCertificateUseCase,
	setActive *appcert.SetCertificateActiveUseCase,
	remove *appcert.DeleteCertificateUseCase,
	query *appcert.QueryCertificatesUseCase,
) *CertificateHandler {
	return &CertificateHandler{
		upload:    upload,
		review:    review,
		bulk:      bulk,
		resubmit:  resubmit,
		setActive: setActive,
		remove:    remove,
		query:     query,
	}
}

// Upload registers a certificate scan for a book.
// @Summary      Upload ISBN certificate
// @Description  Multipart upload; the scan goes in the `certificate` part (PDF, JPEG, PNG, TIFF).
// @Tags         isbn-certificates
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        bookId            path     int    true  "Book ID"
// @Param        certificate       formData file   true  "Certificate scan"
// @Param        isbn13            formData string true  "ISBN-13, hyphens allowed"
// @Param        isbn10            formData string false "ISBN-10"
// @Param        title             formData string true  "Title"
// @Param        author_name       formData string true  "Author name"
// @Param        issuing_authority formData string true  "Issuing authority"
// @Param        issue_date        formData string true  "Issue date (YYYY-MM-DD)"
// @Param        expiry_date       formData string false "Expiry date (YYYY-MM-DD)"
// @Success      201 {object} response.Response{data=dto.CertificateDetailView}
// @Failure      400 {object} response.Response "invalid ISBN, date or file"
// @Failure      409 {object} response.Response "ISBN already registered"
// @Failure      502 {object} response.Response "storage failure"
// @Router       /api/v1/books/{bookId}/isbn-certificates [post]
func (h *CertificateHandler) Upload(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var form dto.UploadCertificateForm
	if !bindForm(c, &form) {
		return
	}
	info, err := form.ToInfo()
	if err != nil {
		response.Error(c, err)
		return
	}
	file, header, ok := formFile(c, "certificate", true)
	if !ok {
		return
	}
	defer file.Close()

	cert, err := h.upload.Execute(c.Request.Context(), appcert.UploadCertificateRequest{
		Actor:       middleware.GetActor(c),
		BookID:      bookID,
		Info:        info,
		File:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "ISBN certificate uploaded successfully", dto.NewCertificateDetailView(cert))
}

// Verify
// @Summary      Verify ISBN certificate
// @Tags         isbn-certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                           true  "Certificate ID"
// @Param        request body dto.VerifyCertificateRequest  false "Verification method"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Failure      409 {object} response.Response "not pending"
// @Router       /api/v1/isbn-certificates/{id}/verify [post]
func (h *CertificateHandler) Verify(c *gin.Context) {
	var req dto.VerifyCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	h.decide(c, appcert.ReviewCertificateRequest{Decision: appcert.DecisionVerify, Method: req.Method})
}

// Approve
// @Summary      Approve a verified ISBN certificate
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Router       /api/v1/isbn-certificates/{id}/approve [post]
func (h *CertificateHandler) Approve(c *gin.Context) {
	h.decide(c, appcert.ReviewCertificateRequest{Decision: appcert.DecisionApprove})
}

// Reject
// @Summary      Reject ISBN certificate
// @Tags         isbn-certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                true "Certificate ID"
// @Param        request body dto.RejectRequest  true "Reason"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Failure      400 {object} response.Response "reason missing"
// @Router       /api/v1/isbn-certificates/{id}/reject [post]
func (h *CertificateHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	h.decide(c, appcert.ReviewCertificateRequest{Decision: appcert.DecisionReject, Reason: req.Text()})
}

func (h *CertificateHandler) decide(c *gin.Context, req appcert.ReviewCertificateRequest) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req.Actor = middleware.GetActor(c)
	req.CertificateID = id
	cert, err := h.review.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCertificateDetailView(cert))
}

// BulkVerify verifies several certificates; each id succeeds or fails on its own.
// @Summary      Bulk verify ISBN certificates
// @Tags         isbn-certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BulkVerifyRequest true "Certificate ids"
// @Success      200 {object} response.Response{data=appcert.BulkVerifyResponse}
// @Failure      400 {object} response.Response "too many ids"
// @Router       /api/v1/isbn-certificates/bulk-verify [post]
func (h *CertificateHandler) BulkVerify(c *gin.Context) {
	var req dto.BulkVerifyRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	res, err := h.bulk.Execute(c.Request.Context(), appcert.BulkVerifyRequest{
		Actor:  middleware.GetActor(c),
		IDs:    req.IDs,
		Method: req.Method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Resubmit sends a rejected certificate back for review, optionally with a new scan.
// @Summary      Resubmit ISBN certificate
// @Tags         isbn-certificates
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id          path     int    true  "Certificate ID"
// @Param        certificate formData file   false "Replacement scan"
// @Param        notes       formData string false "Notes"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Failure      409 {object} response.Response "not rejected"
// @Router       /api/v1/isbn-certificates/{id}/resubmit [post]
func (h *CertificateHandler) Resubmit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var form dto.ResubmitCertificateForm
	if c.ContentType() == gin.MIMEJSON {
		if !bindJSON(c, &form) {
			return
		}
	} else if c.Request.ContentLength != 0 && !bindForm(c, &form) {
		return
	}

	req := appcert.ResubmitCertificateRequest{
		Actor:         middleware.GetActor(c),
		CertificateID: id,
		Notes:         form.Notes,
	}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		file, header, ok := formFile(c, "certificate", false)
		if !ok {
			return
		}
		if file != nil {
			defer file.Close()
			req.File = file
			req.FileName = header.Filename
			req.ContentType = header.Header.Get("Content-Type")
		}
	}

	cert, err := h.resubmit.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCertificateDetailView(cert))
}

// Deactivate
// @Summary      Deactivate ISBN certificate
// @Tags         isbn-certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                   true  "Certificate ID"
// @Param        request body dto.SetActiveRequest  false "Reason"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Router       /api/v1/isbn-certificates/{id}/deactivate [post]
func (h *CertificateHandler) Deactivate(c *gin.Context) {
	h.toggle(c, false)
}

// Reactivate
// @Summary      Reactivate ISBN certificate
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Failure      409 {object} response.Response "ISBN held by another active certificate"
// @Router       /api/v1/isbn-certificates/{id}/reactivate [post]
func (h *CertificateHandler) Reactivate(c *gin.Context) {
	h.toggle(c, true)
}

func (h *CertificateHandler) toggle(c *gin.Context, active bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	cert, err := h.setActive.Execute(c.Request.Context(), appcert.SetCertificateActiveRequest{
		Actor:         middleware.GetActor(c),
		CertificateID: id,
		Active:        active,
		Reason:        req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewCertificateDetailView(cert))
}

// Delete removes an unreviewed certificate or deactivates a reviewed one.
// @Summary      Delete ISBN certificate
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=appcert.DeleteCertificateResponse}
// @Router       /api/v1/isbn-certificates/{id} [delete]
func (h *CertificateHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.remove.Execute(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "ISBN certificate deactivated"
	if res.Removed {
		msg = "ISBN certificate deleted"
	}
	response.SuccessWithMessage(c, msg, res)
}

// Get
// @Summary      Get ISBN certificate
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=dto.CertificateDetailView}
// @Router       /api/v1/isbn-certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	cert, err := h.query.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CertificateFor(cert, appcert.CanViewDetail(actor, cert)))
}

// ListByBook
// @Summary      List ISBN certificates of a book
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        bookId path int true "Book ID"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CertificateView]}
// @Router       /api/v1/books/{bookId}/isbn-certificates [get]
func (h *CertificateHandler) ListByBook(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	actor := middleware.GetActor(c)
	res, err := h.query.ListByBook(c.Request.Context(), actor, bookID, q.ToPage())
	if err != nil {
		response.Error(c, err)
		return
	}
	writeCertificates(c, actor, res)
}

// Mine
// @Summary      List ISBN certificates I uploaded
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status filter"
// @Param        isbn   query string false "ISBN fragment"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CertificateDetailView]}
// @Router       /api/v1/isbn-certificates/mine [get]
func (h *CertificateHandler) Mine(c *gin.Context) {
	req, ok := searchRequest(c)
	if !ok {
		return
	}
	res, err := h.query.Mine(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeCertificates(c, req.Actor, res)
}

// Pending lists certificates waiting for verification, oldest first.
// @Summary      List pending ISBN certificates
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CertificateDetailView]}
// @Router       /api/v1/isbn-certificates/pending [get]
func (h *CertificateHandler) Pending(c *gin.Context) {
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
	writeCertificates(c, actor, res)
}

// Search
// @Summary      Search ISBN certificates
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        isbn          query string false "ISBN fragment"
// @Param        status        query string false "Status"
// @Param        uploaded_from query string false "Uploaded on or after (YYYY-MM-DD)"
// @Param        uploaded_to   query string false "Uploaded on or before (YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.CertificateDetailView]}
// @Router       /api/v1/isbn-certificates/search [get]
func (h *CertificateHandler) Search(c *gin.Context) {
	req, ok := searchRequest(c)
	if !ok {
		return
	}
	res, err := h.query.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeCertificates(c, req.Actor, res)
}

func searchRequest(c *gin.Context) (appcert.SearchCertificatesRequest, bool) {
	var q dto.SearchCertificatesQuery
	if !bindQuery(c, &q) {
		return appcert.SearchCertificatesRequest{}, false
	}
	dates, err := dto.ParseDates(map[string]string{"uploaded_from": q.UploadedFrom, "uploaded_to": q.UploadedTo})
	if err != nil {
		response.Error(c, err)
		return appcert.SearchCertificatesRequest{}, false
	}
	return appcert.SearchCertificatesRequest{
		Actor:        middleware.GetActor(c),
		ISBN:         q.ISBN,
		Status:       q.Status,
		UploadedFrom: dates["uploaded_from"],
		UploadedTo:   dates["uploaded_to"],
		Page:         q.ToPage(),
	}, true
}

func writeCertificates(c *gin.Context, actor identity.Actor, res *appcert.ListCertificatesResponse) {
	views := make([]interface{}, len(res.List))
	for i, cert := range res.List {
		views[i] = dto.CertificateFor(cert, appcert.CanViewDetail(actor, cert))
	}
	response.Success(c, dto.NewListResponse(views, res.Total, res.Page))
}

// AuditLogs
// @Summary      History of an ISBN certificate, newest first
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=dto.ListResponse[dto.AuditLogView]}
// @Router       /api/v1/isbn-certificates/{id}/audit-logs [get]
func (h *CertificateHandler) AuditLogs(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.query.AuditLogs(c.Request.Context(), middleware.GetActor(c), id, q.ToPage())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]dto.AuditLogView, len(res.List))
	for i, l := range res.List {
		views[i] = dto.NewAuditLogView(l)
	}
	response.Success(c, dto.NewListResponse(views, res.Total, res.Page))
}

// Download
// @Summary      Presigned download URL of the certificate scan
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Certificate ID"
// @Success      200 {object} response.Response{data=appcert.DownloadResponse}
// @Router       /api/v1/isbn-certificates/{id}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.query.Download(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Statistics
// @Summary      Certificate counts per status
// @Tags         isbn-certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=isbncert.Statistics}
// @Router       /api/v1/isbn-certificates/statistics [get]
func (h *CertificateHandler) Statistics(c *gin.Context) {
	stats, err := h.query.Statistics(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
