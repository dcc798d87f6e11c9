package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"doxradar/internal/ai"
	apperrors "doxradar/internal/errors"
	"doxradar/internal/logger"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
)

// subscriptionService handles subscription-related business logic.
type subscriptionService struct {
	db            *gorm.DB
	notifications NotificationServicer
}

// NewSubscriptionService creates a new SubscriptionServicer.
func NewSubscriptionService(db *gorm.DB, notifications NotificationServicer) SubscriptionServicer {
	return &subscriptionService{db: db, notifications: notifications}
}

// CreateSubscription creates a subscription for a user.
func (s *subscriptionService) CreateSubscription(userID, name string, price float64, currency, period, category string, startDate, nextPayment time.Time, paymentMethod string) (*models.Subscription, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "subscription name is required")
	}
	if price < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price cannot be negative")
	}

	if currency == "" {
		currency = "USD"
	}
	if period == "" {
		period = models.PeriodMonthly
	}
	if category == "" {
		category = "General"
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}
	if nextPayment.IsZero() {
		nextPayment = startDate.AddDate(0, 1, 0)
	}

	sub := &models.Subscription{
		UserID:        userID,
		Name:          name,
		Price:         price,
		Currency:      currency,
		Period:        period,
		Category:      category,
		StartDate:     startDate,
		NextPayment:   nextPayment,
		PaymentMethod: paymentMethod,
		Status:        models.SubscriptionActive,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sub, nil
}

// GetUserSubscriptions retrieves a paginated list of subscriptions for a user.
func (s *subscriptionService) GetUserSubscriptions(userID string, page pagination.PageRequest, status *string) (*pagination.PageResponse[models.Subscription], error) {
	page.Defaults()

	base := s.db.Model(&models.Subscription{}).Where("user_id = ?", userID)
	if status != nil && *status != "" {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var subs []models.Subscription
	if err := base.Order("next_payment ASC").Scopes(pagination.Paginate(page)).Find(&subs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(subs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetSubscriptionByID retrieves a subscription by ID for a specific user.
func (s *subscriptionService) GetSubscriptionByID(userID, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Where("id = ? AND user_id = ?", subscriptionID, userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &sub, nil
}

// UpdateSubscription updates the provided fields of a subscription.
func (s *subscriptionService) UpdateSubscription(userID, subscriptionID string, fields SubscriptionFields) (*models.Subscription, error) {
	sub, err := s.GetSubscriptionByID(userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Price != nil {
		if *fields.Price < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price cannot be negative")
		}
		updates["price"] = *fields.Price
	}
	if fields.Currency != nil && *fields.Currency != "" {
		updates["currency"] = *fields.Currency
	}
	if fields.Period != nil && *fields.Period != "" {
		updates["period"] = *fields.Period
	}
	if fields.Category != nil && *fields.Category != "" {
		updates["category"] = *fields.Category
	}
	if fields.StartDate != nil {
		updates["start_date"] = *fields.StartDate
	}
	if fields.NextPayment != nil {
		updates["next_payment"] = *fields.NextPayment
	}
	if fields.PaymentMethod != nil {
		updates["payment_method"] = *fields.PaymentMethod
	}
	if fields.Status != nil && *fields.Status != "" {
		updates["status"] = *fields.Status
	}

	if len(updates) > 0 {
		if err := s.db.Model(sub).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", sub.ID).First(sub).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return sub, nil
}

// DeleteSubscription removes a subscription.
func (s *subscriptionService) DeleteSubscription(userID, subscriptionID string) error {
	sub, err := s.GetSubscriptionByID(userID, subscriptionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(sub).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AutoLog creates a subscription from an AI analysis that flagged one.
// Anything the model did not mark with the subscription flag is a no-op,
// even when the suggested category says "Subscription": callers pass the
// wider category hint and rely on the flag check here. Missing details
// fall back to safe defaults rather than rejecting the hit: a zero-price
// entry the user can edit beats a silently dropped detection.
func (s *subscriptionService) AutoLog(userID string, analysis *ai.Analysis, sourceName string) (*models.Subscription, error) {
	if analysis == nil || !analysis.IsSubscription.Bool() {
		return nil, nil
	}

	logger.Get().Infow("auto-logging subscription", "user_id", userID, "source", sourceName)

	var details ai.SubscriptionDetails
	if analysis.SubscriptionDetails != nil {
		details = *analysis.SubscriptionDetails
	}

	name := details.Name
	if name == "" {
		name, _, _ = strings.Cut(sourceName, ".")
	}
	currency := details.Currency
	if currency == "" {
		currency = "USD"
	}
	period := details.Period
	if period == "" {
		period = models.PeriodMonthly
	}
	category := analysis.SuggestedCategory
	if category == "" {
		category = "General"
	}

	now := time.Now()
	nextPayment := now.AddDate(0, 0, 30)
	for _, candidate := range []*string{analysis.RenewalDate, analysis.ExpiryDate} {
		if candidate == nil || *candidate == "" {
			continue
		}
		if parsed, err := time.Parse("2006-01-02", *candidate); err == nil {
			nextPayment = parsed
			break
		}
	}

	sub := &models.Subscription{
		UserID:      userID,
		Name:        name,
		Price:       details.Price.Float64(),
		Currency:    currency,
		Period:      period,
		Category:    category,
		StartDate:   now,
		NextPayment: nextPayment,
		Status:      models.SubscriptionActive,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notifications.Notify(userID, models.NotificationSuccess, "💳 New Subscription Found",
		fmt.Sprintf("Auto-logged %q from your email.", sub.Name), nil)

	return sub, nil
}

// ActiveSubscriptions returns every active subscription for a user.
func (s *subscriptionService) ActiveSubscriptions(userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).Find(&subs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return subs, nil
}
