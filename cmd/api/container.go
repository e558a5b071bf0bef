package main

import (
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appauth "github.com/xiebiao/pubflow/internal/application/auth"
	appcd "github.com/xiebiao/pubflow/internal/application/coverdesign"
	appcr "github.com/xiebiao/pubflow/internal/application/coverrequest"
	appcert "github.com/xiebiao/pubflow/internal/application/isbncert"
	appreq "github.com/xiebiao/pubflow/internal/application/isbnrequest"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	"github.com/xiebiao/pubflow/internal/interface/http/handler"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/internal/interface/http/router"
	"github.com/xiebiao/pubflow/pkg/jwt"
	"github.com/xiebiao/pubflow/pkg/mq"
)

// infrastructure holds the optional adapters. Fields stay nil interfaces
// when the backing service is disabled.
type infrastructure struct {
	Blacklist   middleware.Blacklist
	Revoker     appauth.TokenRevoker
	Stats       appcert.StatisticsCache
	Publisher   events.Publisher
	Thumbnailer storage.Thumbnailer
}

func newInfrastructure(cfg *config.Config) (*infrastructure, func(), error) {
	infra := &infrastructure{
		Publisher:   events.Noop{},
		Thumbnailer: storage.NewThumbnailer(cfg.Thumbnail),
	}
	var closers []func() error

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		bindRedis(infra, client, cfg)
	} else {
		slog.Warn("redis disabled: logout cannot revoke tokens, statistics are not cached")
	}

	if cfg.MQ.Enabled {
		pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic", cfg.Tracing.ServiceName)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, pub.Close)
		infra.Publisher = events.NewBrokerPublisher(pub, 0)
	}

	return infra, func() { closeAll(closers) }, nil
}

func bindRedis(infra *infrastructure, client *goredis.Client, cfg *config.Config) {
	blacklist := redis.NewTokenBlacklist(client)
	infra.Blacklist = blacklist
	infra.Revoker = blacklist
	infra.Stats = redis.NewStatisticsCache(client, cfg.Workflow.StatisticsTTL)
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			slog.Warn("close resource", "error", err)
		}
	}
}

// newHandlers wires repositories, use cases and handlers by hand;
// wire.go declares the same graph for google/wire.
func newHandlers(cfg *config.Config, db *gorm.DB, store storage.ObjectStore, infra *infrastructure) (router.Handlers, *middleware.AuthMiddleware) {
	tx := database.NewTxManager(db)
	coverRequests := database.NewCoverRequestRepository(db)
	designs := database.NewCoverDesignRepository(db)
	certs := database.NewCertificateRepository(db)
	audits := database.NewAuditLogRepository(db)
	isbnRequests := database.NewIsbnRequestRepository(db)
	pub := infra.Publisher

	review := appcert.NewReviewCertificateUseCase(certs, audits, tx, infra.Stats, pub)

	h := router.Handlers{
		Auth: handler.NewAuthHandler(appauth.NewLogoutUseCase(infra.Revoker)),
		CoverRequest: handler.NewCoverRequestHandler(
			appcr.NewCreateRequestUseCase(coverRequests, pub),
			appcr.NewUpdateRequestUseCase(coverRequests, tx, pub),
			appcr.NewAssignDesignerUseCase(coverRequests, tx, pub),
			appcr.NewTransitionRequestUseCase(coverRequests, tx, pub),
			appcr.NewDeleteRequestUseCase(coverRequests, tx, pub),
			appcr.NewGetRequestUseCase(coverRequests),
			appcr.NewListRequestsUseCase(coverRequests),
		),
		CoverDesign: handler.NewCoverDesignHandler(
			appcd.NewUploadDesignUseCase(designs, coverRequests, store, infra.Thumbnailer, pub, cfg.Workflow),
			appcd.NewReviewDesignUseCase(designs, tx, pub),
			appcd.NewActivateDesignUseCase(designs, tx, pub),
			appcd.NewUpdateDesignUseCase(designs, tx),
			appcd.NewDeleteDesignUseCase(designs, tx, store),
			appcd.NewQueryDesignsUseCase(designs),
		),
		Certificate: handler.NewCertificateHandler(
			appcert.NewUploadCertificateUseCase(certs, audits, tx, infra.Stats, store, pub, cfg.Workflow),
			review,
			appcert.NewBulkVerifyUseCase(review, cfg.Workflow),
			appcert.NewResubmitCertificateUseCase(certs, audits, tx, infra.Stats, store, pub, cfg.Workflow),
			appcert.NewSetCertificateActiveUseCase(certs, audits, tx, infra.Stats),
			appcert.NewDeleteCertificateUseCase(certs, audits, tx, infra.Stats, store),
			appcert.NewQueryCertificatesUseCase(certs, audits, infra.Stats, store, cfg.Storage),
		),
		IsbnRequest: handler.NewIsbnRequestHandler(
			appreq.NewCreateRequestUseCase(isbnRequests, pub),
			appreq.NewFulfillRequestUseCase(isbnRequests, certs, tx, pub),
			appreq.NewQueryRequestsUseCase(isbnRequests),
		),
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
	return h, middleware.NewAuthMiddleware(tokens, infra.Blacklist)
}
