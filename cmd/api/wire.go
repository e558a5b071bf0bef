//go:build wireinject
// +build wireinject

// The injector below mirrors newHandlers; regenerate with
//
//	wire gen ./cmd/api
package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	appauth "github.com/xiebiao/pubflow/internal/application/auth"
	appcd "github.com/xiebiao/pubflow/internal/application/coverdesign"
	appcr "github.com/xiebiao/pubflow/internal/application/coverrequest"
	appcert "github.com/xiebiao/pubflow/internal/application/isbncert"
	appreq "github.com/xiebiao/pubflow/internal/application/isbnrequest"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	"github.com/xiebiao/pubflow/internal/interface/http/handler"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/internal/interface/http/router"
	"github.com/xiebiao/pubflow/pkg/jwt"
)

var infrastructureSet = wire.NewSet(
	database.NewDB,
	provideObjectStore,
	newInfrastructure,
	wire.FieldsOf(new(*config.Config), "Workflow", "Storage"),
	wire.FieldsOf(new(*infrastructure), "Blacklist", "Revoker", "Stats", "Publisher", "Thumbnailer"),
)

var repositorySet = wire.NewSet(
	database.NewTxManager,
	wire.Bind(new(shared.Transactor), new(*database.TxManager)),
	database.NewCoverRequestRepository,
	database.NewCoverDesignRepository,
	database.NewCertificateRepository,
	database.NewAuditLogRepository,
	database.NewIsbnRequestRepository,
)

var applicationSet = wire.NewSet(
	appauth.NewLogoutUseCase,

	appcr.NewCreateRequestUseCase,
	appcr.NewUpdateRequestUseCase,
	appcr.NewAssignDesignerUseCase,
	appcr.NewTransitionRequestUseCase,
	appcr.NewDeleteRequestUseCase,
	appcr.NewGetRequestUseCase,
	appcr.NewListRequestsUseCase,

	appcd.NewUploadDesignUseCase,
	appcd.NewReviewDesignUseCase,
	appcd.NewActivateDesignUseCase,
	appcd.NewUpdateDesignUseCase,
	appcd.NewDeleteDesignUseCase,
	appcd.NewQueryDesignsUseCase,

	appcert.NewUploadCertificateUseCase,
	appcert.NewReviewCertificateUseCase,
	appcert.NewBulkVerifyUseCase,
	appcert.NewResubmitCertificateUseCase,
	appcert.NewSetCertificateActiveUseCase,
	appcert.NewDeleteCertificateUseCase,
	appcert.NewQueryCertificatesUseCase,

	appreq.NewCreateRequestUseCase,
	appreq.NewFulfillRequestUseCase,
	appreq.NewQueryRequestsUseCase,
)

var handlerSet = wire.NewSet(
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewAuthHandler,
	handler.NewCoverRequestHandler,
	handler.NewCoverDesignHandler,
	handler.NewCertificateHandler,
	handler.NewIsbnRequestHandler,
	wire.Struct(new(router.Handlers), "*"),
)

func provideObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	return storage.NewObjectStore(context.Background(), cfg.Storage)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

func provideEngine(cfg *config.Config, h router.Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	return router.New(router.Options{
		Mode:           cfg.Server.Mode,
		EnableSwagger:  cfg.Server.Mode != "release",
		EnableMetrics:  true,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, h, auth)
}

// InitializeApp builds the engine; the cleanup closes Redis and the broker.
func InitializeApp(cfg *config.Config) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		handlerSet,
		provideEngine,
	)
	return nil, nil, nil
}
