package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/panelgate/internal/api/handler"
	"github.com/timmy/panelgate/internal/api/middleware"
	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/logger"
	"github.com/timmy/panelgate/internal/service"
)

// Services bundles what the HTTP layer serves.
type Services struct {
	Dispatch   *service.DispatchService
	Reconciler *service.CompletionReconciler
	Reports    *service.ReportService
	Exports    *service.ExportService
	Store      handler.Pinger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg config.ServerConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Client IPs feed the duplicate-IP and geo screens, so only listed
	// proxies may set forwarding headers.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil && log != nil {
		log.WithError(err).Warn("Invalid trusted proxies, forwarding headers ignored")
		_ = r.SetTrustedProxies(nil)
	}

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.Store)
	linkHandler := handler.NewSurveyLinkHandler(svc.Dispatch, svc.Reconciler)
	reportHandler := handler.NewReportHandler(svc.Reports, svc.Exports)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Respondent traffic
		links := v1.Group("/survey-links")
		links.POST("", linkHandler.Dispatch)
		links.POST("/redirect", linkHandler.Complete)
		links.POST("/test", linkHandler.TestLink)

		// Reports
		reports := v1.Group("/reports")
		reports.GET("/projects/:id", reportHandler.ProjectReport)
		reports.GET("/projects/:id/export", reportHandler.ExportCSV)
		reports.POST("/projects/:id/export", reportHandler.UploadExport)
		reports.GET("/groups/:id", reportHandler.GroupReport)
	}

	return r
}
