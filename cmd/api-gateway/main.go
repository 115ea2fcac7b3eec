package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lostfound-api/api/swagger"
	"github.com/noah-isme/lostfound-api/internal/handler"
	"github.com/noah-isme/lostfound-api/internal/identifier"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/repository"
	"github.com/noah-isme/lostfound-api/internal/service"
	"github.com/noah-isme/lostfound-api/migrations"
	"github.com/noah-isme/lostfound-api/pkg/cache"
	"github.com/noah-isme/lostfound-api/pkg/config"
	"github.com/noah-isme/lostfound-api/pkg/database"
	"github.com/noah-isme/lostfound-api/pkg/imaging"
	"github.com/noah-isme/lostfound-api/pkg/jobs"
	"github.com/noah-isme/lostfound-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lostfound-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lostfound-api/pkg/middleware/requestid"
	"github.com/noah-isme/lostfound-api/pkg/storage"
)

// @title Lost & Found API
// @version 1.0.0
// @description QR-tagged item registry with anonymous finder reports
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const bootstrapRetryInterval = 5 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	fileStore, err := storage.NewLocalStorage(cfg.Images.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare image storage", zap.Error(err))
	}

	validate := service.NewValidator()
	userRepo := repository.NewUserRepository(db.DB())
	itemRepo := repository.NewItemRepository(db.DB())
	scanRepo := repository.NewScanRepository(db.DB())
	statsRepo := repository.NewStatsRepository(db.DB())

	images := service.NewImageService(
		fileStore,
		imaging.NewProcessor(),
		storage.NewSignedURLSigner(cfg.Images.SignedURLSecret, cfg.Images.SignedURLTTL),
		cfg.APIPrefix+"/images",
		cfg.Images.MaxFileSizeBytes,
		logr,
	)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	notifications := service.NewNotificationService(userRepo, service.NewLogNotifier(logr), metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		Logger:     logr,
	})
	itemSvc := service.NewItemService(itemRepo, scanRepo, userRepo, identifier.NewGenerator(), images, cacheSvc, metrics, validate, logr, service.ItemConfig{
		ScanBaseURL:           cfg.Items.ScanBaseURL,
		MaxAttempts:           cfg.Items.IdentifierMaxAttempts,
		DeleteCascadesToScans: cfg.Items.DeleteCascadesToScans,
		QRCodeSize:            cfg.Items.QRCodeDefaultSizePixel,
	})
	scanSvc := service.NewScanService(scanRepo, itemRepo, notifications, images, cacheSvc, metrics, validate, logr)
	userSvc := service.NewUserService(userRepo, itemRepo, scanRepo, images, cacheSvc, validate, logr)
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, logr, service.StatsConfig{
		RecentScans:  cfg.Stats.RecentScans,
		TimelineDays: cfg.Stats.TimelineDays,
		CacheTTL:     cfg.Stats.CacheTTL,
	})

	notifications.Start(ctx)
	defer notifications.Stop()

	db.OnReady(schemaSetup(db, authSvc, cfg.Admin, logr))
	go bootstrap(ctx, db, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.Routes{
		Prefix:   cfg.APIPrefix,
		Auth:     handler.NewAuthHandler(authSvc),
		Items:    handler.NewItemHandler(itemSvc, cfg.Images.MaxFileSizeBytes),
		Scans:    handler.NewScanHandler(scanSvc),
		Images:   handler.NewImageHandler(images),
		Admin:    handler.NewAdminHandler(itemSvc, userSvc, statsSvc, scanSvc),
		Metrics:  handler.NewMetricsHandler(metrics, db),
		Tokens:   authSvc,
		Database: db,
		Logger:   logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// schemaSetup migrates the schema and seeds the administrator. The database
// handle runs it once per process before reporting ready, so /ready and the
// API answer 503 until it has succeeded.
func schemaSetup(db *database.Handle, auth *service.AuthService, admin config.AdminConfig, logr *zap.Logger) database.SetupFunc {
	return func(ctx context.Context) error {
		version, err := migrations.Up(ctx, db.DB().DB, logr)
		if err != nil {
			return err
		}
		logr.Info("schema up to date", zap.Int64("version", version))
		if err := auth.EnsureAdmin(ctx, admin.Email, admin.Password, admin.Name); err != nil {
			return fmt.Errorf("seed administrator: %w", err)
		}
		return nil
	}
}

// bootstrap retries Ensure until the database is reachable and prepared.
func bootstrap(ctx context.Context, db *database.Handle, logr *zap.Logger) {
	ticker := time.NewTicker(bootstrapRetryInterval)
	defer ticker.Stop()

	for {
		err := db.Ensure(ctx)
		if err == nil {
			logr.Info("database ready")
			return
		}
		if !errors.Is(err, database.ErrNotReady) {
			logr.Warn("database not ready yet", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
