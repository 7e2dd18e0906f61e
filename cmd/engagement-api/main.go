package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/moodle-engagement-api/api/swagger"
	"github.com/noah-isme/moodle-engagement-api/internal/handler"
	"github.com/noah-isme/moodle-engagement-api/internal/repository"
	"github.com/noah-isme/moodle-engagement-api/internal/service"
	"github.com/noah-isme/moodle-engagement-api/pkg/cache"
	"github.com/noah-isme/moodle-engagement-api/pkg/config"
	"github.com/noah-isme/moodle-engagement-api/pkg/logger"
	"github.com/noah-isme/moodle-engagement-api/pkg/mailer"
)

// @title Moodle Engagement API
// @version 0.1.0
// @description Early-warning dashboard over Moodle activity log exports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions, err := newSessionStore(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init session store", "backend", cfg.Sessions.Backend, "error", err)
	}

	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		// Dashboards still work; alert requests report the configuration error.
		logr.Sugar().Warnw("mail transport disabled", "driver", cfg.Mail.Driver, "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	engagementSvc := service.NewEngagementService(sessions, validate, metrics, logr, service.EngagementConfig{
		Location:         cfg.Location(),
		LookbackDays:     cfg.Engagement.LookbackDays,
		RiskInactiveDays: cfg.Engagement.RiskInactiveDays,
		ExcludedOrigins:  cfg.Engagement.ExcludedOrigins,
		MaxUploadBytes:   cfg.Upload.MaxBytes,
	})

	from := cfg.Mail.From
	if from == "" {
		from = cfg.Mail.SMTPUser
	}
	alertSvc := service.NewAlertService(engagementSvc, sessions, sender, validate, metrics, logr, from)

	r := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		EnableDocs:     cfg.EnableDocs && cfg.Env != config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Engagement:     handler.NewEngagementHandler(engagementSvc, cfg.Upload.MaxBytes),
		Alerts:         handler.NewAlertHandler(alertSvc),
		Probes:         handler.NewMetricsHandler(metrics, sessions),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"sessions", cfg.Sessions.Backend,
		"mail", cfg.Mail.Driver,
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newSessionStore(cfg *config.Config, logr *zap.Logger) (repository.SessionStore, error) {
	switch cfg.Sessions.Backend {
	case "", config.SessionBackendMemory:
		return repository.NewMemorySessionStore(cfg.Sessions.TTL), nil
	case config.SessionBackendRedis:
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisSessionStore(client, cfg.Sessions.KeyPrefix, cfg.Sessions.TTL, logr), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Sessions.Backend)
	}
}
