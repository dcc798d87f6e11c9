package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/gmail"
	"doxradar/internal/models"
)

// gmailTokenService persists mailbox OAuth credentials.
type gmailTokenService struct {
	db *gorm.DB
}

// NewGmailTokenService creates a new GmailTokenServicer.
func NewGmailTokenService(db *gorm.DB) GmailTokenServicer {
	return &gmailTokenService{db: db}
}

// Token returns the stored credential set for the Gmail client.
func (s *gmailTokenService) Token(ctx context.Context, userID string) (*gmail.StoredToken, error) {
	var token models.GmailToken
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGmailNotConnected
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &gmail.StoredToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
		Email:        token.Email,
	}, nil
}

// Save persists a refreshed token pair for an already connected mailbox.
func (s *gmailTokenService) Save(ctx context.Context, userID string, accessToken, refreshToken string, expiry time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.GmailToken{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_at":    expiry,
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrGmailNotConnected
	}
	return nil
}

// Connect stores the credentials obtained from the OAuth callback, replacing
// any previous connection for the user.
func (s *gmailTokenService) Connect(userID, email, accessToken, refreshToken string, expiry time.Time) (*models.GmailToken, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, apperrors.WithMessage(apperrors.ErrGmailAuthFailed, "authorization response is missing tokens")
	}

	var token models.GmailToken
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&token).Error
		switch {
		case err == nil:
			token.Email = email
			token.AccessToken = accessToken
			token.RefreshToken = refreshToken
			token.ExpiresAt = expiry
			return tx.Save(&token).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			token = models.GmailToken{
				UserID:       userID,
				Email:        email,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiry,
			}
			return tx.Create(&token).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &token, nil
}

// Connection returns the stored connection for a user.
func (s *gmailTokenService) Connection(userID string) (*models.GmailToken, error) {
	var token models.GmailToken
	if err := s.db.Where("user_id = ?", userID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGmailNotConnected
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &token, nil
}

// Disconnect removes the stored credentials and resets the user's ingestion
// high-water mark, so a later reconnect behaves like a fresh link.
func (s *gmailTokenService) Disconnect(userID string) error {
	var notConnected bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ?", userID).Delete(&models.GmailToken{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			notConnected = true
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("last_ingested_at", nil).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if notConnected {
		return apperrors.ErrGmailNotConnected
	}
	return nil
}
