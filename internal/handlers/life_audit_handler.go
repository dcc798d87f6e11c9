package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/pagination"
	"doxradar/internal/services"
)

// LifeAuditHandler handles life-audit requests.
type LifeAuditHandler struct {
	lifeAuditService services.LifeAuditServicer
}

// NewLifeAuditHandler creates a new LifeAuditHandler.
func NewLifeAuditHandler(lifeAuditService services.LifeAuditServicer) *LifeAuditHandler {
	return &LifeAuditHandler{lifeAuditService: lifeAuditService}
}

// CreateLifeAuditRequest represents the request payload for recording a life audit.
type CreateLifeAuditRequest struct {
	Health        int    `json:"health" binding:"required,min=1,max=10"`
	Career        int    `json:"career" binding:"required,min=1,max=10"`
	Finances      int    `json:"finances" binding:"required,min=1,max=10"`
	Relationships int    `json:"relationships" binding:"required,min=1,max=10"`
	Growth        int    `json:"growth" binding:"required,min=1,max=10"`
	Recreation    int    `json:"recreation" binding:"required,min=1,max=10"`
	Environment   int    `json:"environment" binding:"required,min=1,max=10"`
	Contribution  int    `json:"contribution" binding:"required,min=1,max=10"`
	Notes         string `json:"notes" binding:"omitempty,max=2000"`
}

// CreateLifeAudit handles recording a new life audit.
// @Summary     Record a life audit
// @Description Record a self-assessment across the eight life areas
// @Tags        life-audits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateLifeAuditRequest true "Audit ratings"
// @Success     201 {object} models.LifeAudit "Audit recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /life-audits [post]
func (h *LifeAuditHandler) CreateLifeAudit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateLifeAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	audit, err := h.lifeAuditService.CreateLifeAudit(userID, services.LifeAuditRatings{
		Health:        req.Health,
		Career:        req.Career,
		Finances:      req.Finances,
		Relationships: req.Relationships,
		Growth:        req.Growth,
		Recreation:    req.Recreation,
		Environment:   req.Environment,
		Contribution:  req.Contribution,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"life_audit": audit})
}

// GetLifeAudits handles listing the audit history.
// @Summary     Get life audits
// @Description Get a paginated audit history, newest first
// @Tags        life-audits
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.LifeAudit] "Paginated audits"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /life-audits [get]
func (h *LifeAuditHandler) GetLifeAudits(c *gin.Context) {
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

	result, err := h.lifeAuditService.GetUserLifeAudits(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLatestLifeAudit handles retrieving the most recent audit.
// @Summary     Get latest life audit
// @Description Get the most recent life audit
// @Tags        life-audits
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.LifeAudit "Latest audit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No audit recorded"
// @Router      /life-audits/latest [get]
func (h *LifeAuditHandler) GetLatestLifeAudit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	audit, err := h.lifeAuditService.GetLatestLifeAudit(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"life_audit": audit})
}

// GetLifeAuditReport handles retrieving the audit summary report.
// @Summary     Get life audit report
// @Description Get a summary of the latest audit: mean score, strongest and weakest areas
// @Tags        life-audits
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.LifeAuditReport "Audit report"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No audit recorded"
// @Router      /life-audits/report [get]
func (h *LifeAuditHandler) GetLifeAuditReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.lifeAuditService.GetLifeAuditReport(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// DeleteLifeAudit handles deleting an audit entry.
// @Summary     Delete life audit
// @Description Delete an audit entry by ID
// @Tags        life-audits
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Audit ID"
// @Success     200 {object} MessageResponse "Audit deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Audit not found"
// @Router      /life-audits/{id} [delete]
func (h *LifeAuditHandler) DeleteLifeAudit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.lifeAuditService.DeleteLifeAudit(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Life audit deleted successfully"})
}
