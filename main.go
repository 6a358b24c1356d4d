package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/auth"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/logger"
	"storefront-service/middleware"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const serviceName = "storefront-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development")
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Initialize(cfg.Env)
	defer func() { _ = logger.Log.Sync() }()

	ctx := context.Background()

	// --- 1. AWS ---
	zap.L().Info("AWS Configuration",
		zap.String("AWS_ENDPOINT", cfg.AWS.Endpoint),
		zap.String("S3_ENDPOINT", cfg.S3Endpoint),
		zap.String("AWS_REGION", cfg.AWS.Region),
	)
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		zap.L().Fatal("Failed to load AWS config", zap.Error(err))
	}

	if cfg.UseSecrets {
		cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.CloudWatchEnabled {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, "", serviceName)
		if err != nil {
			zap.L().Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else {
			logger.InitializeWithWriter(cfg.Env, cwLogs)
		}
	}
	metrics := aws_pkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchEnabled)

	// --- 2. Product store ---
	var (
		productRepo repository.ProductRepo
		mongoClient *mongo.Client
	)
	switch cfg.StoreBackend {
	case BackendDynamoDB:
		ddbClient := aws_pkg.NewDynamoClient(awsCfg, cfg.AWS.Endpoint)
		productRepo = repository.NewDynamoAdapter(ddbClient, cfg.DynamoTable)
	default:
		client, db, err := database.Connect(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = client
		productRepo = repository.NewProductRepository(db)
	}
	if err := productRepo.EnsureIndexes(ctx); err != nil {
		zap.L().Warn("Failed to ensure product indexes", zap.Error(err))
	}

	// --- 3. Services ---
	events := services.NewEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.SNSTopicArn, logger.Log)
	productService := services.NewProductService(productRepo, services.NewProductValidator(), events, metrics, logger.Log)
	uploadService := services.NewUploadService(aws_pkg.NewS3Client(awsCfg, cfg.AWS.Endpoint), services.UploadConfig{
		Bucket:       cfg.S3Bucket,
		Endpoint:     cfg.S3Endpoint,
		MaxFiles:     cfg.UploadMaxFiles,
		MaxFileBytes: cfg.UploadMaxBytes,
		Timeout:      cfg.UploadTimeout,
	}, metrics, logger.Log)

	issuer, err := auth.NewSessionIssuer(cfg.JWTSecret, cfg.Production)
	if err != nil {
		zap.L().Fatal("Failed to create session issuer", zap.Error(err))
	}

	// --- 4. HTTP Server & Middleware ---
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, serviceName))
	// request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.MaxMultipartMemory = int64(cfg.UploadMaxFiles) * cfg.UploadMaxBytes

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMin), cfg.RateLimitBurst, 10*time.Minute)
	defer limiter.Stop()

	routes.RegisterRoutes(r,
		controllers.NewProductController(productService),
		controllers.NewUploadController(uploadService),
		controllers.NewSessionController(issuer),
		routes.DefaultGuards(issuer, cfg.InternalAPIKey, limiter.Middleware()),
	)

	// --- 5. Graceful Shutdown ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Storefront service starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.Bool("production", cfg.Production),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down storefront service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}
	if err := database.Close(mongoClient); err != nil {
		zap.L().Error("Failed to close MongoDB", zap.Error(err))
	}

	zap.L().Info("Storefront service stopped gracefully")
}
