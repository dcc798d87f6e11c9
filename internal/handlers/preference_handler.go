package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/services"
)

// PreferenceHandler handles user-preference requests.
type PreferenceHandler struct {
	preferenceService services.PreferenceServicer
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(preferenceService services.PreferenceServicer) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// UpdatePreferencesRequest represents the request payload for updating preferences.
type UpdatePreferencesRequest struct {
	EmailNotifications *bool    `json:"email_notifications"`
	AIDocumentAnalysis *bool    `json:"ai_document_analysis"`
	HighCostThreshold  *float64 `json:"high_cost_threshold" binding:"omitempty,gte=0"`
	Theme              *string  `json:"theme" binding:"omitempty,theme"`
}

// GetPreferences handles retrieving the user's preferences.
// @Summary     Get preferences
// @Description Get the user's preferences, created with defaults on first read
// @Tags        preferences
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UserPreference "Preferences"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /preferences [get]
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	prefs, err := h.preferenceService.GetPreferences(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// UpdatePreferences handles updating the user's preferences.
// @Summary     Update preferences
// @Description Update any subset of the user's preferences
// @Tags        preferences
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdatePreferencesRequest true "Updated fields"
// @Success     200 {object} models.UserPreference "Updated preferences"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /preferences [put]
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	prefs, err := h.preferenceService.UpdatePreferences(userID, services.PreferenceFields{
		EmailNotifications: req.EmailNotifications,
		AIDocumentAnalysis: req.AIDocumentAnalysis,
		HighCostThreshold:  req.HighCostThreshold,
		Theme:              req.Theme,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}
