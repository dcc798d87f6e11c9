package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
)

// lifeAuditService handles life-audit business logic.
type lifeAuditService struct {
	db *gorm.DB
}

// NewLifeAuditService creates a new LifeAuditServicer.
func NewLifeAuditService(db *gorm.DB) LifeAuditServicer {
	return &lifeAuditService{db: db}
}

// CreateLifeAudit records a self-assessment. Every rating must be 1-10.
func (s *lifeAuditService) CreateLifeAudit(userID string, ratings LifeAuditRatings) (*models.LifeAudit, error) {
	for _, r := range []int{
		ratings.Health, ratings.Career, ratings.Finances, ratings.Relationships,
		ratings.Growth, ratings.Recreation, ratings.Environment, ratings.Contribution,
	} {
		if r < 1 || r > 10 {
			return nil, apperrors.ErrInvalidRating
		}
	}

	audit := &models.LifeAudit{
		UserID:        userID,
		Health:        ratings.Health,
		Career:        ratings.Career,
		Finances:      ratings.Finances,
		Relationships: ratings.Relationships,
		Growth:        ratings.Growth,
		Recreation:    ratings.Recreation,
		Environment:   ratings.Environment,
		Contribution:  ratings.Contribution,
		Notes:         ratings.Notes,
	}
	if err := s.db.Create(audit).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return audit, nil
}

// GetUserLifeAudits retrieves a paginated audit history, newest first.
func (s *lifeAuditService) GetUserLifeAudits(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.LifeAudit], error) {
	page.Defaults()

	base := s.db.Model(&models.LifeAudit{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var audits []models.LifeAudit
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&audits).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(audits, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetLatestLifeAudit returns the most recent audit for a user.
func (s *lifeAuditService) GetLatestLifeAudit(userID string) (*models.LifeAudit, error) {
	var audit models.LifeAudit
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLifeAuditNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &audit, nil
}

// GetLifeAuditReport summarizes the latest audit: mean score, the strongest
// and weakest areas, and per-area deltas against the previous audit.
func (s *lifeAuditService) GetLifeAuditReport(userID string) (*LifeAuditReport, error) {
	latest, err := s.GetLatestLifeAudit(userID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.LifeAudit{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scores := latest.Scores()
	total := 0
	strongest, weakest := "", ""
	for area, score := range scores {
		total += score
		if strongest == "" || score > scores[strongest] || (score == scores[strongest] && area < strongest) {
			strongest = area
		}
		if weakest == "" || score < scores[weakest] || (score == scores[weakest] && area < weakest) {
			weakest = area
		}
	}

	var deltas map[string]int
	var previous models.LifeAudit
	err = s.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(1).First(&previous).Error
	switch {
	case err == nil:
		deltas = make(map[string]int, len(scores))
		for area, prev := range previous.Scores() {
			deltas[area] = scores[area] - prev
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First audit, nothing to compare against.
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &LifeAuditReport{
		Latest:       latest,
		AverageScore: float64(total) / float64(len(scores)),
		Strongest:    strongest,
		Weakest:      weakest,
		AuditCount:   count,
		Deltas:       deltas,
	}, nil
}

// DeleteLifeAudit removes an audit.
func (s *lifeAuditService) DeleteLifeAudit(userID, auditID string) error {
	var audit models.LifeAudit
	if err := s.db.Where("id = ? AND user_id = ?", auditID, userID).First(&audit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrLifeAuditNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Delete(&audit).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
