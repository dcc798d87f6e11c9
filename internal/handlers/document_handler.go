package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/pagination"
	"doxradar/internal/services"
)

// maxUploadSize caps multipart uploads at 25 MB.
const maxUploadSize = 25 << 20

// DocumentHandler handles document-related requests.
type DocumentHandler struct {
	documentService services.DocumentServicer
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService services.DocumentServicer) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// UpdateDocumentRequest represents the request payload for updating a document.
type UpdateDocumentRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
	Category *string `json:"category" binding:"omitempty,min=1,max=100"`
}

// UploadDocument handles a multipart file upload.
// @Summary     Upload a document
// @Description Upload a file; it is stored and queued for AI analysis
// @Tags        documents
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file     formData file   true  "File to upload"
// @Param       category formData string false "Category override"
// @Success     201 {object} models.Document "Document created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Storage failure"
// @Router      /documents [post]
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Please upload a file"))
		return
	}
	if fileHeader.Size > maxUploadSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "File exceeds the 25 MB upload limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	doc, err := h.documentService.UploadDocument(c.Request.Context(), userID, services.DocumentUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if category := c.PostForm("category"); category != "" {
		doc, err = h.documentService.UpdateDocument(userID, doc.ID, nil, &category)
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// GetDocuments handles listing documents for the authenticated user.
// @Summary     Get documents
// @Description Get a paginated list of documents, newest first
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       category  query string false "Filter by category"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Document] "Paginated documents"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /documents [get]
func (h *DocumentHandler) GetDocuments(c *gin.Context) {
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

	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}

	result, err := h.documentService.GetUserDocuments(userID, page, category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDocument handles retrieving a specific document.
// @Summary     Get document by ID
// @Description Get a specific document, including its analysis
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Document ID"
// @Success     200 {object} models.Document "Document details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Document not found"
// @Router      /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	doc, err := h.documentService.GetDocumentByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// UpdateDocument handles renaming or recategorizing a document.
// @Summary     Update document
// @Description Update a document's name or category
// @Tags        documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Document ID"
// @Param       request body UpdateDocumentRequest true "Updated fields"
// @Success     200 {object} models.Document "Updated document"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Document not found"
// @Router      /documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	doc, err := h.documentService.UpdateDocument(userID, c.Param("id"), req.Name, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// DeleteDocument handles deleting a document and its stored file.
// @Summary     Delete document
// @Description Delete a document and remove its stored object
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Document ID"
// @Success     200 {object} MessageResponse "Document deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Document not found"
// @Router      /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
