package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
	"doxradar/internal/services"
)

// SubscriptionHandler handles subscription-related requests.
type SubscriptionHandler struct {
	subscriptionService services.SubscriptionServicer
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptionService services.SubscriptionServicer) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// CreateSubscriptionRequest represents the request payload for creating a subscription.
type CreateSubscriptionRequest struct {
	Name          string     `json:"name" binding:"required,min=1,max=100"`
	Price         float64    `json:"price" binding:"required,gte=0"`
	Currency      string     `json:"currency" binding:"omitempty,iso4217"`
	Period        string     `json:"period" binding:"omitempty,billing_period"`
	Category      string     `json:"category" binding:"omitempty,max=100"`
	StartDate     *time.Time `json:"start_date"`
	NextPayment   *time.Time `json:"next_payment"`
	PaymentMethod string     `json:"payment_method" binding:"omitempty,max=100"`
}

// UpdateSubscriptionRequest represents the request payload for updating a subscription.
type UpdateSubscriptionRequest struct {
	Name          *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Price         *float64   `json:"price" binding:"omitempty,gte=0"`
	Currency      *string    `json:"currency" binding:"omitempty,iso4217"`
	Period        *string    `json:"period" binding:"omitempty,billing_period"`
	Category      *string    `json:"category" binding:"omitempty,max=100"`
	StartDate     *time.Time `json:"start_date"`
	NextPayment   *time.Time `json:"next_payment"`
	PaymentMethod *string    `json:"payment_method" binding:"omitempty,max=100"`
	Status        *string    `json:"status" binding:"omitempty,oneof=Active Paused Cancelled"`
}

// CreateSubscription handles the creation of a new subscription.
// @Summary     Create a subscription
// @Description Create a new recurring subscription
// @Tags        subscriptions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSubscriptionRequest true "Subscription details"
// @Success     201 {object} models.Subscription "Subscription created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var startDate, nextPayment time.Time
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	if req.NextPayment != nil {
		nextPayment = *req.NextPayment
	}

	sub, err := h.subscriptionService.CreateSubscription(
		userID, req.Name, req.Price, req.Currency, req.Period, req.Category,
		startDate, nextPayment, req.PaymentMethod,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

// GetSubscriptions handles listing subscriptions for the authenticated user.
// @Summary     Get subscriptions
// @Description Get a paginated list of subscriptions ordered by next payment
// @Tags        subscriptions
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "Filter by status (Active/Paused/Cancelled)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Subscription] "Paginated subscriptions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /subscriptions [get]
func (h *SubscriptionHandler) GetSubscriptions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var status *string
	if v := c.Query("status"); v != "" {
		switch v {
		case models.SubscriptionActive, models.SubscriptionPaused, models.SubscriptionCancelled:
			status = &v
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be 'Active', 'Paused' or 'Cancelled'"))
			return
		}
	}

	result, err := h.subscriptionService.GetUserSubscriptions(userID, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSubscription handles retrieving a specific subscription.
// @Summary     Get subscription by ID
// @Description Get a specific subscription by ID
// @Tags        subscriptions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Subscription ID"
// @Success     200 {object} models.Subscription "Subscription details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Subscription not found"
// @Router      /subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.subscriptionService.GetSubscriptionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// UpdateSubscription handles updating an existing subscription.
// @Summary     Update subscription
// @Description Update an existing subscription
// @Tags        subscriptions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Subscription ID"
// @Param       request body UpdateSubscriptionRequest true "Updated fields"
// @Success     200 {object} models.Subscription "Updated subscription"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Subscription not found"
// @Router      /subscriptions/{id} [put]
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sub, err := h.subscriptionService.UpdateSubscription(userID, c.Param("id"), services.SubscriptionFields{
		Name:          req.Name,
		Price:         req.Price,
		Currency:      req.Currency,
		Period:        req.Period,
		Category:      req.Category,
		StartDate:     req.StartDate,
		NextPayment:   req.NextPayment,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// DeleteSubscription handles deleting a subscription.
// @Summary     Delete subscription
// @Description Delete a subscription by ID
// @Tags        subscriptions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Subscription ID"
// @Success     200 {object} MessageResponse "Subscription deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Subscription not found"
// @Router      /subscriptions/{id} [delete]
func (h *SubscriptionHandler) DeleteSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.subscriptionService.DeleteSubscription(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription deleted successfully"})
}
