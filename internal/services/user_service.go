package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
)

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// SyncFromToken resolves the local user row for a verified bearer token,
// creating it on first sight. The auth provider owns identity; lookup falls
// back to email so users created before their first token keep their data.
func (s *userService) SyncFromToken(id, email, name string) (*models.User, error) {
	if id == "" || email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token subject and email are required")
	}
	email = strings.ToLower(email)

	var user models.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user = models.User{
		Base:  models.Base{ID: id},
		Email: email,
		Name:  name,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// SetLastIngestedAt advances the ingestion high-water mark for a user.
func (s *userService) SetLastIngestedAt(userID string, at time.Time) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("last_ingested_at", at)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ConnectedUsers returns all users with a linked mailbox. This is the work
// list for an ingestion cycle.
func (s *userService) ConnectedUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN gmail_tokens ON gmail_tokens.user_id = users.id AND gmail_tokens.deleted_at IS NULL").
		Find(&users).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return users, nil
}
