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

	"github.com/kikichoice/storefront-backend/config"
	"github.com/kikichoice/storefront-backend/internal/app/controller"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	"github.com/kikichoice/storefront-backend/internal/db"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	"github.com/kikichoice/storefront-backend/internal/router"
	"github.com/kikichoice/storefront-backend/internal/scheduler"
	"github.com/kikichoice/storefront-backend/internal/storage"
	ws "github.com/kikichoice/storefront-backend/internal/websocket"
	"github.com/kikichoice/storefront-backend/pkg/catalog"
	"github.com/kikichoice/storefront-backend/pkg/line"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	redisclient "github.com/kikichoice/storefront-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
		Service:     "kikichoice-storefront",
	})

	logger.Info("Starting kikichoice storefront server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"cart_store":  string(cfg.Cart.Store),
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis: 토큰 블랙리스트, OAuth state, (선택) 장바구니 저장소
	if err := redisclient.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := redisclient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	magicLinkRepo := repository.NewMagicLinkRepository(db.GetDB())
	wishlistRepo := repository.NewWishlistRepository(db.GetDB())
	fallbackRepo := repository.NewFallbackProductRepository(db.GetDB())

	var cartRepo repository.CartRepository
	switch cfg.Cart.Store {
	case config.CartStoreRedis:
		cartRepo = repository.NewRedisCartRepository(redisclient.GetClient())
	default:
		cartRepo = repository.NewCartRepository(db.GetDB())
	}
	if err := cartRepo.Initialize(context.Background()); err != nil {
		// 첫 사용 시 다시 시도
		logger.Warn("Cart store is not ready yet", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// External clients
	catalogClient, err := catalog.NewClient(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		Timeout:        cfg.Catalog.Timeout,
		BreakerTimeout: cfg.Catalog.BreakerTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to create catalog client", err)
	}

	var lineClient service.LineLoginClient
	if cfg.Line.Enabled() {
		client, err := line.NewClient(line.Config{
			ChannelID:     cfg.Line.ChannelID,
			ChannelSecret: cfg.Line.ChannelSecret,
			RedirectURL:   cfg.Line.RedirectURL,
		})
		if err != nil {
			logger.Fatal("Failed to create LINE client", err)
		}
		lineClient = client
	} else {
		logger.Warn("LINE login is not configured, social login disabled")
	}

	s3Storage, err := storage.NewS3Storage(context.Background(), storage.Config{
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		BaseURL:         cfg.S3.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", err)
	}

	// Cart events hub
	hub := ws.NewHub(nil)

	// Initialize services
	authService := service.NewAuthService(userRepo, magicLinkRepo, lineClient, service.AuthConfig{
		JWTSecret:     cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshExpiry: cfg.JWT.RefreshTokenExpiry,
		PublicBaseURL: cfg.Server.PublicBaseURL,
	})
	productService := service.NewProductService(catalogClient, fallbackRepo)
	cartService := service.NewCartService(cartRepo, productService, hub)
	checkoutService := service.NewCheckoutService(cartService, cfg.Checkout.SessionTTL)
	wishlistService := service.NewWishlistService(wishlistRepo)

	hub.SetSnapshot(service.CartSnapshot(cartService))
	go hub.Run()

	// Background sweep
	sweeper := scheduler.NewCheckoutSweeper(cfg.Checkout.SweepSpec, cfg.Checkout.SessionTTL, checkoutService, cartService, magicLinkRepo)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start checkout sweeper", err)
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, hub, cfg.CORS.AllowedOrigins)
	checkoutController := controller.NewCheckoutController(checkoutService)
	wishlistController := controller.NewWishlistController(wishlistService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, redisclient.IsTokenBlacklisted)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		wishlistController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
