package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-api/config"
	"commerce-api/controllers"
	"commerce-api/database"
	"commerce-api/jobs"
	"commerce-api/logger"
	"commerce-api/middleware"
	"commerce-api/notifications"
	"commerce-api/repository"
	"commerce-api/routes"
	"commerce-api/services"
	"commerce-api/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("config: " + err.Error())
	}

	logger.Initialize(cfg.Environment)
	log := logger.Log
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.SeedCategories(db); err != nil {
		log.Warn("Category seeding failed", zap.Error(err))
	}

	cache, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}

	jwtExpiry, err := time.ParseDuration(cfg.JWTExpiry)
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}
	tokens := middleware.NewTokenService(cfg.JWTSecret, jwtExpiry)

	var sender notifications.EmailSender
	if smtpSender, err := notifications.NewSMTPSender(cfg); err != nil {
		log.Warn("SMTP not configured, emails disabled", zap.Error(err))
	} else {
		sender = smtpSender
	}
	notifier := notifications.NewNotificationService(db, sender, log)

	hub := ws.NewHub(log)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	productRepo := repository.NewProductRepository(db)

	cartSvc := services.NewCartService(db, log)
	orderSvc := services.NewOrderService(db, notifier, hub, log)
	paymentSvc := services.NewPaymentService(db, stripeSvc, notifier, log)
	searchSvc := services.NewSearchService(db, cache, log)
	analyticsSvc := services.NewAnalyticsService(db, log)
	authSvc := services.NewAuthService(db, tokens, notifier, log)
	addressSvc := services.NewAddressService(db)
	productSvc := services.NewProductService(db, productRepo, log)
	categorySvc := services.NewCategoryService(db)
	wishlistSvc := services.NewWishlistService(db, cartSvc)
	reviewSvc := services.NewReviewService(db)

	broadcaster := ws.NewBroadcaster(hub, analyticsSvc, log)
	broadcaster.Start()
	defer broadcaster.Stop()

	sweeps := jobs.NewMaintenance(db, cache, notifier, hub, paymentSvc, searchSvc, log)
	scheduler := jobs.NewScheduler(sweeps, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := controllers.RegisterValidations(); err != nil {
		log.Fatal("Failed to register custom validations", zap.Error(err))
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.Register(r, tokens, routes.Controllers{
		Auth:      controllers.NewAuthController(authSvc),
		Address:   controllers.NewAddressController(addressSvc),
		Product:   controllers.NewProductController(productSvc),
		Category:  controllers.NewCategoryController(categorySvc),
		Cart:      controllers.NewCartController(cartSvc),
		Order:     controllers.NewOrderController(orderSvc),
		Payment:   controllers.NewPaymentController(paymentSvc, stripeSvc, log),
		Wishlist:  controllers.NewWishlistController(wishlistSvc),
		Search:    controllers.NewSearchController(searchSvc),
		Analytics: controllers.NewAnalyticsController(analyticsSvc),
		Review:    controllers.NewReviewController(reviewSvc),
		WSHandler: ws.Handler(hub, log, broadcaster.PushInitial),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	if err := cache.Close(); err != nil {
		log.Warn("Redis close failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped")
}
