package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/panelgate/internal/api"
	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/logger"
	"github.com/timmy/panelgate/internal/repository"
	"github.com/timmy/panelgate/internal/service"
	"github.com/timmy/panelgate/internal/storage"
)

func main() {
	// Bootstrap logger until the log section of the config is known
	appLogger := logger.New(&logger.Config{ServiceName: "panelgate-api"})

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger = logger.FromConfig(cfg.Log, "panelgate-api")
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to access database pool")
	}
	defer sqlDB.Close()

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db, cfg.Dispatch.StoreRetries)

	geo, err := service.NewGeoLocator(cfg.Geo)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize geo locator")
	}

	// Object storage only backs report uploads, so the API starts without it.
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		objectStorage, err = storage.NewStorage(cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
	}

	// Initialize services
	dispatchService := service.NewDispatchService(
		service.NewIdentityResolver(mappingRepo, projectRepo),
		service.NewScreen(dispatchRepo, service.ScreenPolicyFromConfig(cfg.Screen)),
		service.NewIssuer(
			service.UUIDGenerator{Prefix: cfg.Dispatch.IdentifierPrefix},
			dispatchRepo,
			cfg.Dispatch.IdentifierAttempts,
			appLogger,
		),
		dispatchRepo,
		mappingRepo,
		geo,
		appLogger,
		service.DispatchConfig{
			BaseURL:    cfg.Dispatch.BaseURL,
			GeoTimeout: cfg.Geo.Timeout,
		},
	)

	router := api.SetupRouter(api.Services{
		Dispatch:   dispatchService,
		Reconciler: service.NewCompletionReconciler(dispatchRepo, cfg.Dispatch.BaseURL, appLogger),
		Reports:    service.NewReportService(dispatchRepo, projectRepo, 0, appLogger),
		Exports:    service.NewExportService(dispatchRepo, projectRepo, objectStorage, cfg.Storage.Prefix),
		Store:      sqlDB,
	}, cfg.Server, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":   cfg.Server.Port,
			"mode":   cfg.Server.Mode,
			"driver": cfg.Database.Driver,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
