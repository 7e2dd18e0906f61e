package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/middleware"
	"github.com/noah-isme/moodle-engagement-api/internal/service"
	"github.com/noah-isme/moodle-engagement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/moodle-engagement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/moodle-engagement-api/pkg/middleware/requestid"
)

// RouterConfig gathers what NewRouter needs to mount every endpoint.
type RouterConfig struct {
	APIPrefix      string
	EnableDocs     bool
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Engagement     *EngagementHandler
	Alerts         *AlertHandler
	Probes         *MetricsHandler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Probes == nil {
		cfg.Probes = NewMetricsHandler(cfg.Metrics, nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", cfg.Probes.Health)
	r.GET("/ready", cfg.Probes.Ready)
	r.GET("/metrics", cfg.Probes.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if h := cfg.Engagement; h != nil {
		api.POST("/sessions", h.Upload)
		sessions := api.Group("/sessions/:id")
		sessions.GET("", h.Session)
		sessions.DELETE("", h.DeleteSession)
		sessions.GET("/summary", h.Summary)
		sessions.GET("/summary.csv", h.ExportCSV)
		sessions.GET("/report.pdf", h.ExportPDF)
		sessions.GET("/charts", h.Charts)
		sessions.GET("/students/:name", h.StudentDetail)
	}
	if h := cfg.Alerts; h != nil {
		api.POST("/sessions/:id/alerts", h.Send)
		api.GET("/sessions/:id/alerts", h.Log)
	}
	return r
}
