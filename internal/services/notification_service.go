package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/logger"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
)

// notificationService handles notification business logic.
type notificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB) NotificationServicer {
	return &notificationService{db: db}
}

// CreateNotification creates a notification for a user.
func (s *notificationService) CreateNotification(userID, notificationType, title, message string, metadata map[string]any) (*models.Notification, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "notification title is required")
	}
	if notificationType == "" {
		notificationType = models.NotificationInfo
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	notification := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Metadata: metadata,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return notification, nil
}

// Notify creates a notification, logging failures instead of returning them.
// Callers use this when the notification is a side effect that must never
// abort the operation that produced it.
func (s *notificationService) Notify(userID, notificationType, title, message string, metadata map[string]any) {
	if _, err := s.CreateNotification(userID, notificationType, title, message, metadata); err != nil {
		logger.Get().Errorw("failed to create notification",
			"error", err,
			"user_id", userID,
			"title", title,
		)
	}
}

// GetUserNotifications retrieves a paginated notification list, newest first.
func (s *notificationService) GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkNotificationRead marks one notification as read.
func (s *notificationService) MarkNotificationRead(userID, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !notification.IsRead {
		if err := s.db.Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		notification.IsRead = true
	}
	return &notification, nil
}

// MarkAllNotificationsRead marks every unread notification as read.
func (s *notificationService) MarkAllNotificationsRead(userID string) error {
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteNotification removes one notification.
func (s *notificationService) DeleteNotification(userID, notificationID string) error {
	result := s.db.Where("id = ? AND user_id = ?", notificationID, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// DeleteNotificationsByTitle removes every notification with the given title.
// The ingestion cycle uses this to clear stale scan-status entries; deleting
// none is not an error.
func (s *notificationService) DeleteNotificationsByTitle(userID, title string) error {
	err := s.db.Where("user_id = ? AND title = ?", userID, title).Delete(&models.Notification{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CountUnread returns the number of unread notifications for a user.
func (s *notificationService) CountUnread(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}
