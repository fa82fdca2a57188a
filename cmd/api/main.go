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
	_ "time/tzdata"

	"github.com/wolfman30/care-coordinator/cmd/mainconfig"
	"github.com/wolfman30/care-coordinator/internal/api/router"
	"github.com/wolfman30/care-coordinator/internal/app/bootstrap"
	appconfig "github.com/wolfman30/care-coordinator/internal/config"
	"github.com/wolfman30/care-coordinator/internal/conversation"
	"github.com/wolfman30/care-coordinator/internal/ehr"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

func main() {
	cfg, err := mainconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting care coordinator API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()
	handler, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Two model calls per turn, each bounded by LLM_TIMEOUT.
		WriteTimeout: 2*cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// buildServer wires every dependency into the HTTP handler. The cleanup func
// releases pools and clients in reverse order.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	patients, err := ehr.New(ehr.Config{
		BaseURL: cfg.EHRBaseURL,
		Timeout: cfg.EHRTimeout,
		Logger:  logger.With("component", "ehr"),
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("ehr client: %w", err)
	}

	store, pool, err := bootstrap.BuildDirectoryStore(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	if pool != nil {
		closers = append(closers, pool.Close)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
	}
	source, overrides, err := bootstrap.BuildPromptSource(cfg, redisClient, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	closers = append(closers, llm.Close)

	metricsHandler, pipelineMetrics := bootstrap.BuildMetrics()
	pipeline := bootstrap.BuildPipeline(cfg, bootstrap.PipelineDeps{
		LLM:      llm,
		Prompts:  source,
		Store:    store,
		Patients: patients,
		Metrics:  pipelineMetrics,
		Logger:   logger,
	})

	handlerCfg := conversation.HandlerConfig{
		Pipeline:  pipeline,
		Patients:  patients,
		Prompts:   source,
		PatientID: cfg.PatientID,
		Logger:    logger.With("component", "http"),
	}
	if overrides != nil {
		handlerCfg.Overrides = overrides
	}

	return router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(handlerCfg),
		MetricsHandler:      metricsHandler,
		HealthChecks:        bootstrap.HealthChecks(pool, redisClient),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		DebugRoutes:         cfg.DebugRoutes,
	}), cleanup, nil
}
