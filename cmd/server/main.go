package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/finportal/marketing-console-backend/docs"
	"github.com/finportal/marketing-console-backend/internal/config"
	"github.com/finportal/marketing-console-backend/internal/database"
	"github.com/finportal/marketing-console-backend/internal/database/repository"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/router"
	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/services/api_key"
	"github.com/finportal/marketing-console-backend/internal/services/auth"
	"github.com/finportal/marketing-console-backend/internal/services/dispatch"
	"github.com/finportal/marketing-console-backend/internal/services/excel"
	"github.com/finportal/marketing-console-backend/internal/services/planner"
	"github.com/finportal/marketing-console-backend/internal/services/scheduler"
	"github.com/finportal/marketing-console-backend/internal/telemetry"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

// @title Marketing Console API
// @version 1.0
// @description Campaign engine of the fintech marketing console

// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Enter `ApiKey ` followed by your API key (e.g. "ApiKey mk_xxxx.yyyy") or `Bearer ` followed by an access token

// @securityDefinitions.apikey AdminToken
// @in header
// @name X-Admin-Token

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	docs.SwaggerInfo.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	configureLogging(cfg)

	if err := utils.InitSentry(cfg.SentryDSN, cfg.GinMode); err != nil {
		logrus.Warnf("Failed to initialize Sentry: %v", err)
	}
	defer utils.FlushSentry()

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		logrus.Warnf("Failed to initialize tracing: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	projectRepo := repository.NewProjectRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	attributeRepo := repository.NewAttributeRepository(db)
	contactRepo := repository.NewContactRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	messageRepo := repository.NewCampaignMessageRepository(db)

	sseHub := services.NewSSEHub()
	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		Workers:     cfg.Dispatch.Workers,
		SendTimeout: cfg.Dispatch.SendTimeout,
	}, messageRepo, campaignRepo, sseHub)

	var rabbitMQService *services.RabbitMQService
	if cfg.RabbitMQ.Enabled() {
		rabbitMQService, err = services.NewRabbitMQService(cfg.RabbitMQ)
		if err != nil {
			logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
		} else {
			logrus.Info("RabbitMQ service initialized")
			defer rabbitMQService.Close()
		}
	}
	if rabbitMQService != nil {
		dispatcher.RegisterAdapter(models.ChannelSMS, dispatch.NewQueueAdapter(rabbitMQService, cfg.RabbitMQ.SMSQueue))
		dispatcher.RegisterAdapter(models.ChannelEmail, dispatch.NewQueueAdapter(rabbitMQService, cfg.RabbitMQ.EmailQueue))
	} else {
		logrus.Warn("No message broker configured; live sends are only logged")
		dispatcher.RegisterAdapter(models.ChannelSMS, dispatch.NewLogAdapter(models.ChannelSMS))
		dispatcher.RegisterAdapter(models.ChannelEmail, dispatch.NewLogAdapter(models.ChannelEmail))
	}

	rates := planner.Rates{
		SMSPerSegment:   cfg.Dispatch.SMSCostPerSegment,
		EmailPerMessage: cfg.Dispatch.EmailCost,
	}
	locks := utils.NewKeyedLock()

	campaignScheduler := scheduler.NewScheduler(scheduler.Config{
		Interval:        cfg.Scheduler.PollInterval,
		PageSize:        cfg.Scheduler.PageSize,
		DefaultTimezone: cfg.Dispatch.DefaultTimezone,
		Rates:           rates,
	}, campaignRepo, contactRepo, attributeRepo, messageRepo, dispatcher, locks)

	attributeService := services.NewAttributeService(attributeRepo, campaignRepo)
	segmentService := services.NewSegmentService(contactRepo, attributeService, cfg.Scheduler.PageSize)
	authService, err := auth.NewAuthService(projectRepo, cfg.Auth.JWTSecret)
	if err != nil {
		logrus.Fatalf("Failed to initialize auth service: %v", err)
	}

	svc := router.Services{
		Attributes: attributeService,
		Contacts:   services.NewContactService(contactRepo, attributeService),
		Segments:   segmentService,
		Campaigns: services.NewCampaignService(campaignRepo, messageRepo, contactRepo, attributeService,
			segmentService, dispatcher, campaignScheduler, locks, rates),
		Projects: services.NewProjectService(projectRepo, cfg.Dispatch.DefaultTimezone),
		APIKeys:  api_key.NewService(apiKeyRepo),
		Auth:     authService,
		Excel:    excel.NewExcelService(messageRepo),
		SSEHub:   sseHub,
	}

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	if rabbitMQService != nil {
		reports := services.NewDeliveryReportService(messageRepo, campaignRepo)
		if err := rabbitMQService.Consume(consumerCtx, cfg.RabbitMQ.DeliveryReportQueue, reports.HandleMessage); err != nil {
			logrus.Warnf("Failed to start delivery report consumer: %v", err)
		}
	}

	if cfg.Scheduler.Enabled {
		campaignScheduler.Start()
		defer campaignScheduler.Stop()
	} else {
		logrus.Warn("Campaign scheduler disabled")
	}

	r := router.SetupRouter(cfg, svc)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", cfg.Port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logrus.Warnf("Failed to flush traces: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if cfg.LogFile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}
}
