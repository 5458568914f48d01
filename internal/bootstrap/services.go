package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerline/shopreports/config"
	"github.com/ledgerline/shopreports/internal/adapters/chromepdf"
	"github.com/ledgerline/shopreports/internal/adapters/reportrunner"
	"github.com/ledgerline/shopreports/internal/core"
	"github.com/ledgerline/shopreports/internal/data"
	"github.com/ledgerline/shopreports/internal/data/cryptoutil"
	"github.com/ledgerline/shopreports/internal/observability/metrics"
	"github.com/ledgerline/shopreports/internal/observability/statsd"
	"github.com/ledgerline/shopreports/internal/service"
	"github.com/ledgerline/shopreports/internal/shopify"
	"github.com/redis/go-redis/v9"
)

const shutdownWaitTimeout = 30 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	ReportJobs *service.ReportJobService
	Shops      *service.ShopService
	Tokens     core.TokenCache
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories and constructs the application services.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}

	jobRepo := data.NewReportJobRepo(deps.DB, data.ReportJobRepoConfig{Logger: deps.Logger})

	encryptor, err := TokenEncryptor(deps.Config)
	if err != nil {
		// Startup validation rejects malformed keys before this point.
		if deps.Logger != nil {
			deps.Logger.Warn("token encryption disabled", "error", err)
		}
		encryptor = cryptoutil.NoopEncryptor{}
	}
	shopRepo := data.NewShopRepo(deps.DB, encryptor)

	var tokens core.TokenCache
	if deps.RedisClient != nil {
		ttl := time.Duration(0)
		if deps.Config != nil {
			ttl = deps.Config.Cache.TokenTTL
		}
		tokens = data.NewRedisTokenCache(deps.RedisClient, ttl)
	}

	shops := service.MustNewShopService(service.ShopServiceOptions{
		Repo:   shopRepo,
		Cache:  tokens,
		Logger: deps.Logger,
	})
	reportJobs := service.MustNewReportJobService(service.ReportJobServiceOptions{
		Repo:   jobRepo,
		Shops:  shopRepo,
		Logger: deps.Logger,
	})

	return ServiceContainer{
		ReportJobs: reportJobs,
		Shops:      shops,
		Tokens:     tokens,
	}
}

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceStartupDeps carries shared state while services start.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(
					ctx,
					"dropping background service error",
					"service",
					descriptor.name,
					"error",
					errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newReportRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReportRunner,
		name: "report runner",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}

			runnerCfg := config.ReportRunnerConfig{}
			shopifyCfg := config.ShopifyConfig{}
			pdfCfg := config.PDFConfig{}
			if deps.cfg.Config != nil {
				runnerCfg = deps.cfg.Config.ReportRunner
				shopifyCfg = deps.cfg.Config.Shopify
				pdfCfg = deps.cfg.Config.PDF
			}

			encryptor, encErr := TokenEncryptor(deps.cfg.Config)
			if encErr != nil {
				return fmt.Errorf("build token encryptor: %w", encErr)
			}

			statsdCfg := config.StatsdConfig{}
			if deps.cfg.Config != nil {
				statsdCfg = deps.cfg.Config.Statsd
			}
			statsdClient, statsdErr := statsd.NewClient(statsd.Config{
				Enabled: statsdCfg.Enabled,
				Address: statsdCfg.Address,
				Prefix:  statsdCfg.Prefix,
				Logger:  deps.logger,
			})
			if statsdErr != nil {
				return fmt.Errorf("create statsd client: %w", statsdErr)
			}
			defer func() {
				if cerr := statsdClient.Close(); cerr != nil {
					deps.logger.Warn("close statsd client failed", "error", cerr)
				}
			}()

			runner, err := reportrunner.NewRunner(reportrunner.RunnerOptions{
				DB:           deps.cfg.DB,
				Logger:       deps.logger,
				Lease:        runnerCfg.JobLease,
				Concurrency:  runnerCfg.Concurrency,
				PollInterval: runnerCfg.PollInterval,
				Tokens:       deps.cfg.Services.Tokens,
				Encryptor:    encryptor,
				Metrics:      metrics.NewReportJobMetrics(statsdClient),
				PDF: chromepdf.NewEngine(chromepdf.Config{
					ExecPath: pdfCfg.ChromePath,
					Timeout:  pdfCfg.Timeout,
				}, deps.logger),
				Shopify: shopify.Config{
					APIVersion: shopifyCfg.APIVersion,
					Timeout:    shopifyCfg.Timeout,
				},
			})
			if err != nil {
				return fmt.Errorf("create report runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newReportRunnerBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownDeps{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	if count < 1 {
		return 1
	}
	return count + 1
}

// shutdownDeps contains dependencies for graceful shutdown.
type shutdownDeps struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(deps shutdownDeps) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		deps.logger.Info("shutting down services...")
		deps.cancel() // Cancel service context before waiting
		return gracefulStop(deps)
	case err := <-deps.errCh:
		deps.logger.Error("service error", "error", err)
		deps.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(deps); stopErr != nil {
			deps.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(deps shutdownDeps) error {
	// Gracefully stop HTTP server if running
	if deps.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  deps.httpServer,
			Logger:  deps.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range deps.backgrounds {
		waitForService(svc.done, svc.name, deps.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
