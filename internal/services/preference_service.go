package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
)

// preferenceService handles user-preference business logic.
type preferenceService struct {
	db *gorm.DB
}

// NewPreferenceService creates a new PreferenceServicer.
func NewPreferenceService(db *gorm.DB) PreferenceServicer {
	return &preferenceService{db: db}
}

// GetPreferences returns the user's preferences, creating a default row on
// first read.
func (s *preferenceService) GetPreferences(userID string) (*models.UserPreference, error) {
	var prefs models.UserPreference
	err := s.db.Where("user_id = ?", userID).First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	prefs = models.UserPreference{
		UserID:             userID,
		EmailNotifications: true,
		AIDocumentAnalysis: true,
		HighCostThreshold:  models.DefaultHighCostThreshold,
		Theme:              "light",
	}
	if err := s.db.Create(&prefs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &prefs, nil
}

// UpdatePreferences applies the provided fields, creating the row first if
// the user has never touched their preferences.
func (s *preferenceService) UpdatePreferences(userID string, fields PreferenceFields) (*models.UserPreference, error) {
	prefs, err := s.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if fields.EmailNotifications != nil {
		updates["email_notifications"] = *fields.EmailNotifications
	}
	if fields.AIDocumentAnalysis != nil {
		updates["ai_document_analysis"] = *fields.AIDocumentAnalysis
	}
	if fields.HighCostThreshold != nil {
		if *fields.HighCostThreshold < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "threshold cannot be negative")
		}
		updates["high_cost_threshold"] = *fields.HighCostThreshold
	}
	if fields.Theme != nil && *fields.Theme != "" {
		updates["theme"] = *fields.Theme
	}

	if len(updates) > 0 {
		if err := s.db.Model(prefs).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", prefs.ID).First(prefs).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return prefs, nil
}
