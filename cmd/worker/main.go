package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/inbound-service/internal/activities"
	"github.com/wms-platform/inbound-service/internal/bootstrap"
	"github.com/wms-platform/inbound-service/internal/config"
	"github.com/wms-platform/inbound-service/internal/workflows"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/temporal"
	"github.com/wms-platform/inbound-service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(config.ServiceName + "-worker")
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inbound submission worker", "network", cfg.Network, "storage", cfg.Storage)

	ctx := context.Background()

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracerProvider.Shutdown(shutdownCtx)
		}()
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	components, err := bootstrap.Build(ctx, cfg, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize components")
		os.Exit(1)
	}
	defer components.Close(context.Background())

	temporalClient, err := temporal.NewClient(ctx, cfg.Temporal, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(cfg.Temporal.TaskQueue))

	w.RegisterWorkflowWithOptions(workflows.InboundSubmissionWorkflow, workflow.RegisterOptions{
		Name: temporal.WorkflowNames.InboundSubmission,
	})
	submission := activities.NewSubmissionActivities(components.Orchestrator, logger, m)
	w.RegisterActivityWithOptions(submission.RunSubmissionPhase, activity.RegisterOptions{Name: "RunSubmissionPhase"})
	w.RegisterActivityWithOptions(submission.RequestSubmissionLabels, activity.RegisterOptions{Name: "RequestSubmissionLabels"})
	logger.Info("Registered workflows and activities", "taskQueue", cfg.Temporal.TaskQueue)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "metricsAddr", cfg.MetricsAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info("Worker stopped")
}
