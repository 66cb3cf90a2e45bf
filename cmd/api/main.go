package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wms-platform/inbound-service/internal/api/handlers"
	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/bootstrap"
	"github.com/wms-platform/inbound-service/internal/config"
	"github.com/wms-platform/inbound-service/internal/contracts"
	"github.com/wms-platform/inbound-service/internal/workflows"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/middleware"
	"github.com/wms-platform/inbound-service/pkg/temporal"
	"github.com/wms-platform/inbound-service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(config.ServiceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inbound-service API", "network", cfg.Network, "storage", cfg.Storage)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	components, err := bootstrap.Build(ctx, cfg, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize components")
		os.Exit(1)
	}
	defer components.Close(context.Background())

	// The API still serves every synchronous endpoint when Temporal is down;
	// only submissions are refused.
	var starter application.SubmissionStarter
	temporalClient, err := temporal.NewClient(ctx, cfg.Temporal, logger)
	if err != nil {
		logger.WithError(err).Warn("Temporal unavailable, submissions are disabled")
	} else {
		defer temporalClient.Close()
		starter = workflows.NewStarter(temporalClient)
		logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)
	}

	service := application.NewShipmentService(components.Shipments, components.Splits, starter, logger, m)

	contract, err := contracts.NewRequestValidator()
	if err != nil {
		logger.WithError(err).Error("Failed to load API contract")
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "X-Correlation-ID"},
	}))
	middleware.Setup(router, &middleware.Config{
		Logger:        logger,
		Metrics:       m,
		Contract:      contract,
		ServiceName:   config.ServiceName,
		EnableTracing: cfg.Tracing.Enabled,
	})

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, components.Ready))
	router.GET("/metrics", middleware.MetricsEndpoint(m))
	router.GET("/api/v1/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", contracts.OpenAPISpec())
	})
	router.GET("/api/v1/asyncapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", contracts.AsyncAPISpec())
	})
	handlers.NewShipmentHandler(service, components.Orchestrator).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if components.Publisher != nil {
		g.Go(func() error {
			logger.Info("Outbox publisher started")
			return components.Publisher.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
