// Package router assembles the gin engine: global middleware, operational
// endpoints and the /api/v1 routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	appcr "github.com/xiebiao/pubflow/internal/application/coverrequest"
	"github.com/xiebiao/pubflow/internal/interface/http/handler"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	CoverRequest *handler.CoverRequestHandler
	CoverDesign  *handler.CoverDesignHandler
	Certificate  *handler.CertificateHandler
	IsbnRequest  *handler.IsbnRequestHandler
}

// Options toggles the operational endpoints.
type Options struct {
	Mode           string // debug | release | test
	EnableSwagger  bool
	EnableMetrics  bool
	MaxUploadBytes int64
}

// New builds the engine.
func New(opts Options, h Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	if opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = opts.MaxUploadBytes
	}
	r.Use(
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(),
		middleware.Metrics(),
		gin.Recovery(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if opts.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())

	v1.POST("/auth/logout", h.Auth.Logout)

	books := v1.Group("/books/:bookId")
	{
		books.POST("/cover-requests", h.CoverRequest.Create)

		books.POST("/covers", h.CoverDesign.Upload)
		books.GET("/covers", h.CoverDesign.ListByBook)
		books.GET("/covers/active", h.CoverDesign.Active)
		books.GET("/covers/history", h.CoverDesign.History)
		books.POST("/covers/:id/activate", h.CoverDesign.Activate)

		books.POST("/isbn-certificates", h.Certificate.Upload)
		books.GET("/isbn-certificates", h.Certificate.ListByBook)

		books.POST("/isbn-requests", h.IsbnRequest.Create)
	}

	requests := v1.Group("/cover-requests")
	{
		requests.GET("/open", h.CoverRequest.ListOpen)
		requests.GET("/mine", h.CoverRequest.ListMine)
		requests.GET("/assigned", h.CoverRequest.ListAssigned)
		requests.GET("/:id", h.CoverRequest.Get)
		requests.PATCH("/:id", h.CoverRequest.Update)
		requests.DELETE("/:id", h.CoverRequest.Delete)
		requests.POST("/:id/assign", h.CoverRequest.Assign)
		requests.POST("/:id/start", h.CoverRequest.Transition(appcr.ActionStart))
		requests.POST("/:id/submit", h.CoverRequest.Transition(appcr.ActionSubmit))
		requests.POST("/:id/revision", h.CoverRequest.Transition(appcr.ActionRequestRevision))
		requests.POST("/:id/approve", h.CoverRequest.Transition(appcr.ActionApprove))
		requests.POST("/:id/complete", h.CoverRequest.Transition(appcr.ActionComplete))
		requests.POST("/:id/cancel", h.CoverRequest.Transition(appcr.ActionCancel))
	}

	designs := v1.Group("/cover-designs")
	{
		designs.GET("/mine", h.CoverDesign.Mine)
		designs.GET("/:id", h.CoverDesign.Get)
		designs.PATCH("/:id", h.CoverDesign.Update)
		designs.DELETE("/:id", h.CoverDesign.Delete)
		designs.POST("/:id/approve", h.CoverDesign.Approve)
		designs.POST("/:id/reject", h.CoverDesign.Reject)
	}

	certs := v1.Group("/isbn-certificates")
	{
		certs.GET("/mine", h.Certificate.Mine)
		certs.GET("/pending", h.Certificate.Pending)
		certs.GET("/search", h.Certificate.Search)
		certs.GET("/statistics", h.Certificate.Statistics)
		certs.POST("/bulk-verify", h.Certificate.BulkVerify)
		certs.GET("/:id", h.Certificate.Get)
		certs.GET("/:id/download", h.Certificate.Download)
		certs.GET("/:id/audit-logs", h.Certificate.AuditLogs)
		certs.POST("/:id/verify", h.Certificate.Verify)
		certs.POST("/:id/approve", h.Certificate.Approve)
		certs.POST("/:id/reject", h.Certificate.Reject)
		certs.POST("/:id/resubmit", h.Certificate.Resubmit)
		certs.POST("/:id/deactivate", h.Certificate.Deactivate)
		certs.POST("/:id/reactivate", h.Certificate.Reactivate)
		certs.DELETE("/:id", h.Certificate.Delete)
	}

	isbnRequests := v1.Group("/isbn-requests")
	{
		isbnRequests.GET("/mine", h.IsbnRequest.Mine)
		isbnRequests.GET("/pending", h.IsbnRequest.Pending)
		isbnRequests.GET("/:id", h.IsbnRequest.Get)
		isbnRequests.POST("/:id/assign", h.IsbnRequest.Assign)
		isbnRequests.POST("/:id/start", h.IsbnRequest.Start)
		isbnRequests.POST("/:id/acquired", h.IsbnRequest.Acquired)
		isbnRequests.POST("/:id/complete", h.IsbnRequest.Complete)
		isbnRequests.POST("/:id/cancel", h.IsbnRequest.Cancel)
	}

	return r
}
