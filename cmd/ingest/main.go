// The ingest command runs one mailbox ingestion cycle and exits. It is meant
// to be invoked by a scheduler (cron, CI workflow) rather than run resident.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"doxradar/internal/ai"
	"doxradar/internal/config"
	"doxradar/internal/database"
	"doxradar/internal/gmail"
	"doxradar/internal/ingest"
	"doxradar/internal/logger"
	"doxradar/internal/services"
	"doxradar/internal/storage"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Ingestion error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	httpClient := &http.Client{Timeout: appConfig.RequestTimeout}

	ctx := context.Background()
	store, err := storage.NewS3Store(ctx, storage.S3Config{
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

	db := dbManager.DB()
	userService := services.NewUserService(db)
	tokenService := services.NewGmailTokenService(db)
	notificationService := services.NewNotificationService(db)
	subscriptionService := services.NewSubscriptionService(db, notificationService)
	preferenceService := services.NewPreferenceService(db)
	documentService := services.NewDocumentService(db, store, analyzer, preferenceService, subscriptionService, notificationService)
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

	result, err := cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion cycle failed: %w", err)
	}

	log.Infow("ingestion run completed",
		"users_scanned", result.UsersScanned,
		"messages_seen", result.MessagesSeen,
		"messages_processed", result.MessagesProcessed,
		"documents_saved", result.DocumentsSaved,
		"errors", len(result.Errors),
		"duration", result.Duration.String(),
	)

	for _, userErr := range result.Errors {
		log.Warnw("mailbox scan failed", "user_id", userErr.UserID, "error", userErr.Err.Error())
	}

	if len(result.Errors) > 0 {
		os.Exit(2)
	}
	return nil
}
