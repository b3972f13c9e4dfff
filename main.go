// File: turbotransfer/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turbotransfer/config"
	"turbotransfer/cron"
	"turbotransfer/handlers"
	"turbotransfer/middleware"
	"turbotransfer/routes"
	"turbotransfer/services/analytics"
	"turbotransfer/services/clipboard"
	"turbotransfer/services/discovery"
	"turbotransfer/services/host"
	"turbotransfer/services/janitor"
	"turbotransfer/services/paths"
	"turbotransfer/services/session"
	"turbotransfer/services/thumbnail"
	"turbotransfer/services/transfer"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Live settings.
	settings := config.NewSettings(cfg)
	if err := settings.SetSavePath(cfg.SavePath); err != nil {
		logger.Sugar().Fatalf("main: invalid save path: %v", err)
	}
	settings.Watch(logger)

	for _, dir := range []string{cfg.UploadDir, cfg.BundleDir, cfg.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Sugar().Fatalf("main: failed to create %s: %v", dir, err)
		}
	}

	// services.
	resolver := paths.NewResolver(settings, cfg.UploadDir, cfg.BundleDir)
	registry := session.NewRegistry(session.Options{TTL: cfg.SessionTTL, Logger: logger})

	analyticsService := &analytics.DefaultAnalyticsService{Store: analytics.NewFileStore(cfg.AnalyticsFile)}
	if cfg.AnalyticsBackend == "redis" {
		if err := utils.InitAnalyticsCache(); err != nil {
			logger.Warn("main: redis analytics unavailable, using file history", zap.Error(err))
		} else {
			analyticsService.Store = analytics.NewRedisStore(utils.AnalyticsCacheClient, logger)
			defer utils.CloseAnalyticsCache()
		}
	}

	thumbnailService := thumbnail.NewThumbnailService(cfg.ThumbnailDir, logger)
	transferEngine := transfer.NewEngine(transfer.Options{
		Resolver:   resolver,
		Sessions:   registry,
		Policy:     settings,
		Analytics:  analyticsService,
		Thumbnails: thumbnailService,
		Logger:     logger,
	})
	registry.OnRemove(transferEngine.HandleSessionRemoved)

	janitorService := janitor.NewJanitor(janitor.Options{
		Resolver:          resolver,
		PlaceholderMaxAge: cfg.PlaceholderMaxAge,
		BundleMaxAge:      cfg.BundleMaxAge,
		Logger:            logger,
	})
	// Clear whatever a previous run left behind before serving.
	janitorService.Sweep(context.Background())
	worker, err := cron.StartJanitorWorker(janitorService, cfg.SweepInterval, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	utils.StartHealthMonitor(healthCtx, time.Minute, resolver.Roots, utils.AnalyticsCacheClient)

	hostService := host.NewHostService(host.Options{Logger: logger, PrimaryIP: utils.PrimaryIP})

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Sessions:         registry,
		HostLoopbackOnly: cfg.HostLoopbackOnly,
		Session:          handlers.NewSessionHandler(registry, cfg.AppPort, utils.PrimaryIP),
		Files: &handlers.FileHandler{
			Transfer:   transferEngine,
			Settings:   settings,
			Thumbnails: thumbnailService,
			Analytics:  analyticsService,
			Janitor:    janitorService,
		},
		Host: &handlers.HostHandler{
			Host:      hostService,
			Clipboard: clipboard.NewClipboardService(),
		},
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8000"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	primaryIP := utils.PrimaryIP()
	if cfg.TLSEnabled {
		hosts := append(utils.LocalIPs(), discovery.LocalName(cfg.MDNSName))
		created, err := utils.EnsureSelfSignedCert(cfg.TLSCertFile, cfg.TLSKeyFile, hosts)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to prepare TLS certificate: %v", err)
		}
		if created {
			logger.Info("main: generated self-signed certificate", zap.String("cert", cfg.TLSCertFile))
		}
	}

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		advertiser, err = discovery.NewAdvertiser(cfg.MDNSName, primaryIP, logger)
		if err == nil {
			err = advertiser.Start()
		}
		if err != nil {
			// Pairing still works by IP.
			logger.Warn("main: mDNS disabled", zap.Error(err))
			advertiser = nil
		}
	}

	logger.Sugar().Infof("Starting server on %s (LAN address %s)...", srv.Addr, primaryIP)
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Stop(ctx)
	if advertiser != nil {
		if err := advertiser.Close(); err != nil {
			logger.Warn("main: mDNS close failed", zap.Error(err))
		}
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
