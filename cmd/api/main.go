package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"doxradar/internal/ai"
	"doxradar/internal/config"
	"doxradar/internal/database"
	"doxradar/internal/gmail"
	"doxradar/internal/handlers"
	"doxradar/internal/ingest"
	"doxradar/internal/logger"
	"doxradar/internal/middleware"
	"doxradar/internal/services"
	"doxradar/internal/storage"
	"doxradar/internal/validator"

	_ "doxradar/internal/docs" // Import swagger docs
)

// @title           DoxRadar API
// @version         1.0
// @description     DoxRadar keeps an autonomous radar on your documents: uploads and linked mailboxes are scanned with AI for subscriptions, risks, and required actions.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// External clients
	httpClient := &http.Client{Timeout: appConfig.RequestTimeout}

	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Endpoint:      appConfig.S3Endpoint,
		Region:        appConfig.S3Region,
		Bucket:        appConfig.S3Bucket,
		AccessKey:     appConfig.S3AccessKey,
		SecretKey:     appConfig.S3SecretKey,
		PublicBaseURL: appConfig.S3PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	analyzer := ai.NewClient(appConfig.GeminiAPIKey, appConfig.GeminiModel, httpClient)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	tokenService := services.NewGmailTokenService(db)
	notificationService := services.NewNotificationService(db)
	subscriptionService := services.NewSubscriptionService(db, notificationService)
	preferenceService := services.NewPreferenceService(db)
	documentService := services.NewDocumentService(db, store, analyzer, preferenceService, subscriptionService, notificationService)
	incomeService := services.NewIncomeService(db)
	lifeAuditService := services.NewLifeAuditService(db)
	dashboardService := services.NewDashboardService(db, documentService, subscriptionService, lifeAuditService)
	emailLogService := services.NewEmailLogService(db)

	gmailClient := gmail.NewClient(&oauth2.Config{
		ClientID:     appConfig.GoogleClientID,
		ClientSecret: appConfig.GoogleClientSecret,
		RedirectURL:  appConfig.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}, tokenService, httpClient)

	cycle := ingest.NewCycle(
		userService, tokenService, gmailClient, analyzer,
		documentService, subscriptionService, notificationService,
		preferenceService, emailLogService,
		ingest.Options{
			LookbackBuffer: appConfig.IngestLookbackBuffer,
			Workers:        appConfig.IngestWorkers,
		},
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	googleHandler := handlers.NewGoogleHandler(gmailClient, tokenService, appConfig.FrontendURL)
	documentHandler := handlers.NewDocumentHandler(documentService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	incomeHandler := handlers.NewIncomeHandler(incomeService)
	lifeAuditHandler := handlers.NewLifeAuditHandler(lifeAuditService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService)
	ingestHandler := handlers.NewIngestHandler(cycle)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// OAuth callback carries no bearer token; the state parameter identifies
	// the user.
	v1.GET("/auth/google/callback", googleHandler.Callback)

	// Scheduler-triggered ingestion, guarded by the pipeline API key.
	pipeline := v1.Group("/ingest")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.POST("/run", ingestHandler.RunCycle)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService))

	// Auth & mailbox linking
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/auth/google", googleHandler.Connect)
	protected.GET("/auth/google/status", googleHandler.Status)
	protected.POST("/auth/google/disconnect", googleHandler.Disconnect)

	// Document routes
	documents := protected.Group("/documents")
	documents.POST("", documentHandler.UploadDocument)
	documents.GET("", documentHandler.GetDocuments)
	documents.GET("/:id", documentHandler.GetDocument)
	documents.PUT("/:id", documentHandler.UpdateDocument)
	documents.DELETE("/:id", documentHandler.DeleteDocument)

	// Subscription routes
	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("", subscriptionHandler.GetSubscriptions)
	subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
	subscriptions.PUT("/:id", subscriptionHandler.UpdateSubscription)
	subscriptions.DELETE("/:id", subscriptionHandler.DeleteSubscription)

	// Income routes
	income := protected.Group("/income")
	income.POST("", incomeHandler.CreateIncome)
	income.GET("", incomeHandler.GetIncomes)
	income.PUT("/:id", incomeHandler.UpdateIncome)
	income.DELETE("/:id", incomeHandler.DeleteIncome)

	// Life audit routes
	lifeAudits := protected.Group("/life-audits")
	lifeAudits.POST("", lifeAuditHandler.CreateLifeAudit)
	lifeAudits.GET("", lifeAuditHandler.GetLifeAudits)
	lifeAudits.GET("/latest", lifeAuditHandler.GetLatestLifeAudit)
	lifeAudits.GET("/report", lifeAuditHandler.GetLifeAuditReport)
	lifeAudits.DELETE("/:id", lifeAuditHandler.DeleteLifeAudit)

	// Dashboard routes
	dashboard := protected.Group("/dashboard")
	dashboard.GET("/stats", dashboardHandler.GetStats)
	dashboard.GET("/activity", dashboardHandler.GetActivity)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.DeleteNotification)

	// Preference routes
	preferences := protected.Group("/preferences")
	preferences.GET("", preferenceHandler.GetPreferences)
	preferences.PUT("", preferenceHandler.UpdatePreferences)

	log.Infof("Starting DoxRadar backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
