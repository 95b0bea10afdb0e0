package main

import (
	"context"
	"log"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
	"github.com/k-tong-dev/v0-elearning-sub007/awsx"
	"github.com/k-tong-dev/v0-elearning-sub007/config"
	"github.com/k-tong-dev/v0-elearning-sub007/controllers"
	"github.com/k-tong-dev/v0-elearning-sub007/database"
	"github.com/k-tong-dev/v0-elearning-sub007/logger"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/repository"
	"github.com/k-tong-dev/v0-elearning-sub007/routes"
	"github.com/k-tong-dev/v0-elearning-sub007/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appmw "github.com/k-tong-dev/v0-elearning-sub007/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatal("Failed to connect to DB:", err)
	}
	if err := database.DB.AutoMigrate(
		&models.Transaction{},
		&models.Enrollment{},
		&models.RevenuePayout{},
		&models.CourseStats{},
		&models.UserCartItem{},
	); err != nil {
		log.Fatal("Failed to migrate models:", err)
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	// SNS and CloudWatch are optional; the service runs without them
	ctx := context.Background()
	var snsPublisher awsx.SNSPublisher
	if cfg.FulfillmentSNSTopicARN != "" {
		awsCfg, err := awsx.LoadAWSConfig(ctx)
		if err != nil {
			logger.Log.Warn("AWS config unavailable, fulfillment events disabled", zap.Error(err))
		} else {
			snsPublisher = awsx.NewSNSClient(awsCfg)
		}
	}
	metricsClient, err := awsx.NewMetricsClient(ctx)
	if err != nil {
		logger.Log.Warn("CloudWatch metrics unavailable", zap.Error(err))
		metricsClient = nil
	}

	guestCarts := repository.NewGuestCartRepository(redisClient, cfg.GuestCartTTL)
	userCarts := repository.NewUserCartRepository(database.DB)
	txnRepo := repository.NewGormTransactionRepo(database.DB)
	enrollRepo := repository.NewGormEnrollmentRepo(database.DB)
	payoutRepo := repository.NewGormPayoutRepo(database.DB)
	statsRepo := repository.NewGormCourseStatsRepo(database.DB)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	catalog := services.NewCatalogClient(cfg.CatalogBaseURL)
	syncEngine := services.NewCartSyncEngine(guestCarts, userCarts, logger.Log)
	fulfillment := services.NewFulfillmentService(
		txnRepo, enrollRepo, payoutRepo, statsRepo,
		snsPublisher, cfg.FulfillmentSNSTopicARN,
		cfg.PlatformFeePercent, logger.Log,
	)

	cartController := controllers.NewCartController(guestCarts, userCarts, catalog, syncEngine, logger.Log)
	checkoutController := &controllers.CheckoutController{
		Txns:    txnRepo,
		Stripe:  stripeSvc,
		Catalog: catalog,
		Logger:  logger.Log,
	}
	webhookController := &controllers.WebhookController{
		Stripe:  stripeSvc,
		Fulfill: fulfillment,
		Logger:  logger.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(apperrors.ErrorMiddleware())
	r.Use(appmw.MetricsMiddleware(metricsClient, "course-commerce"))
	routes.Register(r, cartController, checkoutController, webhookController, cfg.JWTSecret)

	logger.Log.Info("Course commerce service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed:", err)
	}
}
