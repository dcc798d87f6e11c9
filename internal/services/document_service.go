package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"doxradar/internal/ai"
	apperrors "doxradar/internal/errors"
	"doxradar/internal/logger"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
	"doxradar/internal/storage"
)

// documentService handles document-related business logic.
type documentService struct {
	db            *gorm.DB
	store         storage.ObjectStore
	analyzer      Analyzer
	preferences   PreferenceServicer
	subscriptions SubscriptionServicer
	notifications NotificationServicer
}

// NewDocumentService creates a new DocumentServicer.
func NewDocumentService(
	db *gorm.DB,
	store storage.ObjectStore,
	analyzer Analyzer,
	preferences PreferenceServicer,
	subscriptions SubscriptionServicer,
	notifications NotificationServicer,
) DocumentServicer {
	return &documentService{
		db:            db,
		store:         store,
		analyzer:      analyzer,
		preferences:   preferences,
		subscriptions: subscriptions,
		notifications: notifications,
	}
}

// UploadDocument stores the file, creates the row, then runs AI analysis and
// its side effects. The row is committed before analysis starts so a failed
// or skipped analysis never loses the upload.
func (s *documentService) UploadDocument(ctx context.Context, userID string, upload DocumentUpload) (*models.Document, error) {
	if upload.Filename == "" || len(upload.Data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a non-empty file is required")
	}

	key := storage.ObjectKey(userID, upload.Filename)
	if err := s.store.Upload(ctx, key, upload.Data, upload.ContentType); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUpload, err)
	}

	doc := &models.Document{
		UserID:         userID,
		Name:           upload.Filename,
		Type:           docType(upload.Filename),
		Size:           formatBytes(int64(len(upload.Data))),
		StorageKey:     key,
		URL:            s.store.PublicURL(key),
		AnalysisStatus: ai.StatusPending,
	}
	if err := s.db.Create(doc).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	prefs, err := s.preferences.GetPreferences(userID)
	if err != nil {
		return nil, err
	}
	if !prefs.AIDocumentAnalysis {
		return doc, nil
	}

	analysis := s.analyzer.Analyze(ctx, upload.Data, upload.ContentType)
	if err := s.attachAnalysis(doc, analysis); err != nil {
		return nil, err
	}
	if analysis.Status == ai.StatusCompleted {
		s.analysisEffects(userID, analysis, upload.Filename, prefs.HighCostThreshold)
	}

	return doc, nil
}

// CreateFromIngestion records one mailbox attachment as a document. The
// analysis was already produced for the source email; it is attached as-is.
func (s *documentService) CreateFromIngestion(ctx context.Context, userID string, upload DocumentUpload, analysis *ai.Analysis) (*models.Document, error) {
	key := storage.ObjectKey(userID, "gmail_"+upload.Filename)
	if err := s.store.Upload(ctx, key, upload.Data, upload.ContentType); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUpload, err)
	}

	doc := &models.Document{
		UserID:         userID,
		Name:           upload.Filename,
		Type:           docType(upload.Filename),
		Size:           formatBytes(int64(len(upload.Data))),
		StorageKey:     key,
		URL:            s.store.PublicURL(key),
		AnalysisStatus: ai.StatusPending,
	}
	if analysis != nil {
		doc.Category = analysis.SuggestedCategory
		doc.AnalysisStatus = analysis.Status
		doc.Analysis = analysis
	}
	if err := s.db.Create(doc).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return doc, nil
}

// GetUserDocuments retrieves a paginated list of documents, newest first.
func (s *documentService) GetUserDocuments(userID string, page pagination.PageRequest, category *string) (*pagination.PageResponse[models.Document], error) {
	page.Defaults()

	base := s.db.Model(&models.Document{}).Where("user_id = ?", userID)
	if category != nil && *category != "" {
		base = base.Where("category = ?", *category)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var docs []models.Document
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&docs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(docs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetDocumentByID retrieves a document by ID for a specific user.
func (s *documentService) GetDocumentByID(userID, documentID string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Where("id = ? AND user_id = ?", documentID, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &doc, nil
}

// UpdateDocument updates the mutable fields of a document.
func (s *documentService) UpdateDocument(userID, documentID string, name, category *string) (*models.Document, error) {
	doc, err := s.GetDocumentByID(userID, documentID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if name != nil && *name != "" {
		updates["name"] = *name
		updates["type"] = docType(*name)
	}
	if category != nil && *category != "" {
		updates["category"] = *category
	}

	if len(updates) > 0 {
		if err := s.db.Model(doc).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", doc.ID).First(doc).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return doc, nil
}

// DeleteDocument removes the stored object, then the row. A storage failure
// is logged but does not block the delete: the row is the source of truth
// and an orphaned object is preferable to an undeletable document.
func (s *documentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.GetDocumentByID(userID, documentID)
	if err != nil {
		return err
	}

	if doc.StorageKey != "" {
		if err := s.store.Remove(ctx, doc.StorageKey); err != nil {
			logger.Get().Errorw("failed to remove stored object",
				"error", err,
				"document_id", doc.ID,
				"storage_key", doc.StorageKey,
			)
		}
	}

	if err := s.db.Delete(doc).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecentDocuments returns the newest documents for the activity feed.
func (s *documentService) RecentDocuments(userID string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 5
	}
	var docs []models.Document
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return docs, nil
}

// CountUserDocuments returns the total number of documents for a user.
func (s *documentService) CountUserDocuments(userID string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Document{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// attachAnalysis persists the analysis outcome onto the document row.
func (s *documentService) attachAnalysis(doc *models.Document, analysis *ai.Analysis) error {
	doc.Analysis = analysis
	doc.AnalysisStatus = analysis.Status
	if analysis.Status == ai.StatusCompleted && analysis.SuggestedCategory != "" {
		doc.Category = analysis.SuggestedCategory
	}
	if err := s.db.Model(doc).Updates(map[string]any{
		"analysis":        doc.Analysis,
		"analysis_status": doc.AnalysisStatus,
		"category":        doc.Category,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// analysisEffects emits the notifications and subscription auto-log an
// analysis calls for. All effects are best-effort.
func (s *documentService) analysisEffects(userID string, analysis *ai.Analysis, sourceName string, threshold float64) {
	scam := analysis.IsScam.Bool() || analysis.SuggestedCategory == "Scam"
	if scam {
		message := analysis.ActionRecommendation
		if message == "" {
			message = fmt.Sprintf("Suspicious document found: %q. %s", sourceName, analysis.ScamReason)
		}
		s.notifications.Notify(userID, models.NotificationDanger, "🚨 Scam Detected", message, map[string]any{
			"source":   sourceName,
			"severity": analysis.SeverityLevel,
		})
	}

	if analysis.RequiresAction.Bool() && analysis.ActionRecommendation != "" && !scam {
		title := "⚡ Action Recommended"
		if analysis.SeverityLevel == ai.SeverityCritical {
			title = "🛑 URGENT ACTION REQUIRED"
		}
		s.notifications.Notify(userID, NotificationTypeForSeverity(analysis.SeverityLevel), title, analysis.ActionRecommendation, map[string]any{
			"source":   sourceName,
			"severity": analysis.SeverityLevel,
		})
	}

	// High-cost fallback: only fires when the model did not already demand action.
	if monthly := MonthlyCost(analysis); monthly >= threshold && !analysis.RequiresAction.Bool() {
		name := "Service"
		if analysis.SubscriptionDetails != nil && analysis.SubscriptionDetails.Name != "" {
			name = analysis.SubscriptionDetails.Name
		}
		s.notifications.Notify(userID, models.NotificationWarning, "💰 High Cost Detected",
			fmt.Sprintf("New high-cost item found: %s. Cost: $%.2f/mo.", name, monthly),
			map[string]any{"source": sourceName, "severity": ai.SeverityMedium},
		)
	}

	if analysis.IsSubscription.Bool() || analysis.SuggestedCategory == "Subscription" {
		if _, err := s.subscriptions.AutoLog(userID, analysis, sourceName); err != nil {
			logger.Get().Errorw("failed to auto-log subscription", "error", err, "user_id", userID, "source", sourceName)
		}
	}
}

// NotificationTypeForSeverity maps a model severity onto a notification type.
func NotificationTypeForSeverity(severity string) string {
	switch severity {
	case ai.SeverityMedium, ai.SeverityHigh:
		return models.NotificationWarning
	case ai.SeverityCritical:
		return models.NotificationDanger
	default:
		return models.NotificationInfo
	}
}

// MonthlyCost normalizes the analyzed subscription price to a monthly figure.
// Anything that is not explicitly monthly is treated as yearly and divided.
func MonthlyCost(analysis *ai.Analysis) float64 {
	if analysis == nil || analysis.SubscriptionDetails == nil {
		return 0
	}
	cost := analysis.SubscriptionDetails.Price.Float64()
	period := analysis.SubscriptionDetails.Period
	if period == "" || period == models.PeriodMonthly {
		return cost
	}
	return cost / 12
}

// docType derives the document type label from a filename: the uppercased
// extension, or FILE when there is none.
func docType(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "FILE"
	}
	return strings.ToUpper(ext)
}

var byteSizes = []string{"Bytes", "KB", "MB", "GB", "TB"}

// formatBytes renders a byte count as a human-readable size, e.g. "1.2 MB".
func formatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(byteSizes)-1 {
		size /= 1024
		i++
	}
	// Two decimals with trailing zeros stripped: 1.5 MB, not 1.50 MB.
	rounded := math.Round(size*100) / 100
	return fmt.Sprintf("%s %s", strconv.FormatFloat(rounded, 'f', -1, 64), byteSizes[i])
}
