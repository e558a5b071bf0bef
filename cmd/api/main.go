package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiebiao/pubflow/docs"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/persistence/database"
	"github.com/xiebiao/pubflow/internal/infrastructure/storage"
	"github.com/xiebiao/pubflow/internal/interface/http/router"
	"github.com/xiebiao/pubflow/pkg/logger"
	"github.com/xiebiao/pubflow/pkg/metrics"
	"github.com/xiebiao/pubflow/pkg/tracing"
)

// @title                       pubflow API
// @version                     1.0
// @description                 Cover design and ISBN certificate workflows of the publishing platform.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if _, err := logger.Init(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		AddSource: cfg.Log.AddSource,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	metrics.InitMetrics()

	if cfg.Tracing.Enabled {
		flush, err := tracing.InitTracer(ctx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := flush(fctx); err != nil {
				slog.Warn("flush traces", "error", err)
			}
		}()
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	store, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	infra, cleanup, err := newInfrastructure(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	h, auth := newHandlers(cfg, db, store, infra)
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	engine := router.New(router.Options{
		Mode:           cfg.Server.Mode,
		EnableSwagger:  cfg.Server.Mode != "release",
		EnableMetrics:  true,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, h, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening",
			"addr", srv.Addr,
			"mode", cfg.Server.Mode,
			"database", cfg.Database.Driver,
			"storage", cfg.Storage.Driver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
