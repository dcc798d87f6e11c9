package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/logger"
	"doxradar/internal/services"
)

// GmailConnector is the slice of the Gmail client the OAuth handlers need.
type GmailConnector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, accessToken string) (string, error)
}

// GoogleHandler handles the mailbox OAuth linking flow.
type GoogleHandler struct {
	gmailClient GmailConnector
	tokens      services.GmailTokenServicer
	frontendURL string
}

// NewGoogleHandler creates a new GoogleHandler.
func NewGoogleHandler(gmailClient GmailConnector, tokens services.GmailTokenServicer, frontendURL string) *GoogleHandler {
	return &GoogleHandler{gmailClient: gmailClient, tokens: tokens, frontendURL: frontendURL}
}

// AuthURLResponse carries the consent URL the frontend redirects to.
type AuthURLResponse struct {
	URL string `json:"url"`
}

// ConnectionStatusResponse reports whether a mailbox is linked.
type ConnectionStatusResponse struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
}

// Connect returns the Google consent URL for linking a mailbox.
// @Summary     Start mailbox linking
// @Description Get the Google OAuth consent URL for linking a Gmail account
// @Tags        google
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} AuthURLResponse "Consent URL"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/google [get]
func (h *GoogleHandler) Connect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// The user id rides in the OAuth state so the callback, which carries no
	// bearer token, can attribute the grant.
	c.JSON(http.StatusOK, AuthURLResponse{URL: h.gmailClient.AuthCodeURL(userID)})
}

// Callback completes the OAuth flow. Google redirects the browser here, so
// the outcome is reported by redirecting back to the frontend dashboard.
// @Summary     Mailbox linking callback
// @Description OAuth callback; redirects to the frontend with the outcome
// @Tags        google
// @Param       code  query string true "Authorization code"
// @Param       state query string true "User ID from Connect"
// @Success     307 "Redirect to frontend"
// @Router      /auth/google/callback [get]
func (h *GoogleHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	userID := c.Query("state")
	if code == "" || userID == "" {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard?error=gmail_auth_failed")
		return
	}

	token, err := h.gmailClient.Exchange(c.Request.Context(), code)
	if err != nil {
		logger.Get().Errorw("oauth code exchange failed", "error", err, "user_id", userID)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard?error=gmail_token_error")
		return
	}

	email, err := h.gmailClient.Profile(c.Request.Context(), token.AccessToken)
	if err != nil {
		logger.Get().Errorw("failed to fetch mailbox profile", "error", err, "user_id", userID)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard?error=gmail_token_error")
		return
	}

	if _, err := h.tokens.Connect(userID, email, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		logger.Get().Errorw("failed to store mailbox tokens", "error", err, "user_id", userID)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard?error=gmail_token_error")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard?gmail=connected")
}

// Status reports whether the user has a linked mailbox.
// @Summary     Mailbox link status
// @Description Report whether the authenticated user has a linked mailbox
// @Tags        google
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ConnectionStatusResponse "Link status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/google/status [get]
func (h *GoogleHandler) Status(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	connection, err := h.tokens.Connection(userID)
	if err != nil {
		if err == apperrors.ErrGmailNotConnected {
			c.JSON(http.StatusOK, ConnectionStatusResponse{Connected: false})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConnectionStatusResponse{Connected: true, Email: connection.Email})
}

// Disconnect unlinks the user's mailbox.
// @Summary     Unlink mailbox
// @Description Remove the stored mailbox credentials
// @Tags        google
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MessageResponse "Disconnected"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/google/disconnect [post]
func (h *GoogleHandler) Disconnect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tokens.Disconnect(userID); err != nil {
		// Disconnecting an unlinked mailbox is a no-op, not a failure.
		if err == apperrors.ErrGmailNotConnected {
			c.JSON(http.StatusOK, gin.H{"message": "Gmail already disconnected"})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Gmail disconnected successfully"})
}
