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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/totalhomes/lead-qualifier/cmd/mainconfig"
	"github.com/totalhomes/lead-qualifier/internal/api/router"
	"github.com/totalhomes/lead-qualifier/internal/app/bootstrap"
	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	httpmiddleware "github.com/totalhomes/lead-qualifier/internal/http/middleware"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/internal/webchat"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting lead-qualifier API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, qualifierMetrics := setupMetrics()

	awsCfg, err := loadAWS(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	transcriptDB, err := bootstrap.OpenTranscriptDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if transcriptDB != nil {
		defer transcriptDB.Close()
	}

	deps := bootstrap.LeadDeps{
		Pool:         pool,
		TranscriptDB: transcriptDB,
		AWS:          awsCfg,
		Metrics:      qualifierMetrics,
	}
	leadRepo, err := bootstrap.BuildLeadRepository(cfg, deps, logger)
	if err != nil {
		return err
	}
	recorder := bootstrap.BuildRecorder(cfg, leadRepo, deps, logger)
	defer recorder.Wait()

	qualifyCfg, err := bootstrap.BuildQualifyConfig(cfg)
	if err != nil {
		return err
	}
	var backendAWS aws.Config
	if awsCfg != nil {
		backendAWS = *awsCfg
	}
	backend, err := bootstrap.BuildBackend(ctx, cfg, backendAWS, qualifierMetrics, logger)
	if err != nil {
		return err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	manager := bootstrap.BuildSessionManager(cfg, bootstrap.ManagerDeps{
		Backend:    backend,
		Qualify:    qualifyCfg,
		Redis:      redisClient,
		OnComplete: recorder,
		Metrics:    qualifierMetrics,
	}, logger)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	var dbPing pinger
	if pool != nil {
		dbPing = pool
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(manager, qualify.ParseLanguage(cfg.DefaultLanguage), logger),
		LeadsHandler:       leads.NewHandler(leadRepo, bootstrap.BuildExportArchive(cfg, deps, logger), logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSOrigins,
		RateLimiter:        limiter,
		HealthChecks:       healthChecks(redisClient, dbPing),
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin lead API disabled")
	}

	srv := newServer(cfg.Port, handler)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "backend", manager.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("waiting for pending lead fan-out")
	return nil
}

// loadAWS returns nil when no AWS-backed feature is configured.
func loadAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*aws.Config, error) {
	if !needsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	logger.Info("aws config loaded", "region", awsCfg.Region, "endpoint_override", cfg.AWSEndpointOverride != "")
	return &awsCfg, nil
}

func needsAWS(cfg *appconfig.Config) bool {
	return cfg.LeadStore == bootstrap.LeadStoreDynamo ||
		cfg.LeadsQueueURL != "" ||
		cfg.ExportBucket != "" ||
		cfg.EmailProvider == "ses" ||
		(cfg.LLMProvider == "bedrock" && cfg.BedrockModelID != "")
}

func setupMetrics() (http.Handler, *metrics.QualifierMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), metrics.NewQualifierMetrics(reg)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthChecks(redisClient *redis.Client, pool pinger) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No read or write timeout: both would also cut the long-lived chat socket.
		IdleTimeout: 60 * time.Second,
	}
}
