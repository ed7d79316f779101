package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/config"
	"github.com/SAP-F-2025/lms-service/internal/handlers"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/policy"
	"github.com/SAP-F-2025/lms-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.IsProduction())
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	zapLogger, err := newZapLogger(cfg.IsProduction())
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	defer pkg.CloseDatabase(db)

	if err := pkg.AutoMigrate(db); err != nil {
		return err
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		return err
	}

	var (
		locker       cache.Locker
		cacheService cache.CacheService
	)
	if redisClient != nil {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, zapLogger)
	} else {
		cacheService = cache.NewMemoryCache()
	}
	if cfg.LockBackend == "redis" {
		locker = cache.NewRedisLocker(redisClient, zapLogger, cfg.LockTTL)
	} else {
		locker = cache.NewLocalLocker()
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      postgres.NewRepository(db),
		Locker:    locker,
		Cache:     cacheService,
		Publisher: publisher,
		Logger:    logger,
		Validator: validator.New(),
		ResultTTL: cfg.ResultCacheTTL,
	})

	metrics.Init()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlerLogger := utils.NewSlogLogger(logger)
	router.Use(gin.Recovery(), utils.LoggerMiddleware(handlerLogger), cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role"},
		AllowCredentials: true,
	}))

	handlers.NewHandlerManager(serviceManager, newAuthenticator(cfg, logger), policy.Default(), handlerLogger).
		SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"lock_backend", cfg.LockBackend,
			"auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newAuthenticator(cfg *config.Config, logger *slog.Logger) handlers.Authenticator {
	if cfg.AuthMode == "header" {
		logger.Warn("Header authentication enabled; requests are trusted as-is")
		return handlers.NewHeaderAuthenticator()
	}
	client := casdoorsdk.NewClient(
		cfg.Casdoor.Endpoint,
		cfg.Casdoor.ClientID,
		cfg.Casdoor.ClientSecret,
		cfg.Casdoor.Certificate,
		cfg.Casdoor.Organization,
		cfg.Casdoor.Application,
	)
	return handlers.NewCasdoorAuthenticator(client)
}

func newZapLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
