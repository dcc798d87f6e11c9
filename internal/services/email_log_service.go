package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
)

// emailLogService records processed mailbox messages.
type emailLogService struct {
	db *gorm.DB
}

// NewEmailLogService creates a new EmailLogServicer.
func NewEmailLogService(db *gorm.DB) EmailLogServicer {
	return &emailLogService{db: db}
}

// Seen reports whether a message id has already been processed.
func (s *emailLogService) Seen(gmailID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.EmailLog{}).Where("gmail_id = ?", gmailID).Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// Record persists one processed message. If the message was logged before,
// the existing row is updated in place; the gmail_id unique index guarantees
// at most one row per message no matter how many cycles overlap.
func (s *emailLogService) Record(entry *models.EmailLog) error {
	var existing models.EmailLog
	err := s.db.Where("gmail_id = ?", entry.GmailID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"subject":        entry.Subject,
			"snippet":        entry.Snippet,
			"classification": entry.Classification,
			"extracted_data": entry.ExtractedData,
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		*entry = existing
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
