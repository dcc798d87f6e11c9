// Package gmail wraps the Gmail REST API for the ingestion cycle: OAuth
// token lifecycle, unread listing, message fetch, and attachment download.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"doxradar/internal/logger"
)

const (
	gmailAPIBase    = "https://gmail.googleapis.com/gmail/v1"
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	unreadQuery     = "label:UNREAD"
	tokenExpirySkew = 60 * time.Second
)

// StoredToken is the persisted credential set for one user's mailbox.
type StoredToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Email        string
}

// TokenStore persists per-user OAuth tokens. Implemented by the gmail token
// service; faked in tests.
type TokenStore interface {
	Token(ctx context.Context, userID string) (*StoredToken, error)
	Save(ctx context.Context, userID string, accessToken, refreshToken string, expiry time.Time) error
}

// Client talks to the Gmail REST API on behalf of linked users.
type Client struct {
	oauth      *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	baseURL    string // overridable for tests
	userInfo   string // overridable for tests
}

// NewClient creates a Gmail client.
func NewClient(oauthCfg *oauth2.Config, store TokenStore, httpClient *http.Client) *Client {
	return &Client{
		oauth:      oauthCfg,
		store:      store,
		httpClient: httpClient,
		baseURL:    gmailAPIBase,
		userInfo:   userInfoURL,
	}
}

// AuthCodeURL builds the consent URL for the authorization-code flow. The
// state carries the user id so the callback can attribute the grant.
// offline access + forced consent ensure a refresh token is issued.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return c.oauth.Exchange(ctx, code)
}

// Profile fetches the email address the token belongs to.
func (c *Client) Profile(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfo, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching profile: unexpected status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding profile: %w", err)
	}
	return info.Email, nil
}

// accessToken returns a valid access token for the user, refreshing and
// persisting it when the stored one is within 60 seconds of expiry. Google
// may omit the refresh token in refresh responses; the old one is kept.
func (c *Client) accessToken(ctx context.Context, userID string) (string, error) {
	stored, err := c.store.Token(ctx, userID)
	if err != nil {
		return "", err
	}

	if time.Until(stored.Expiry) > tokenExpirySkew {
		return stored.AccessToken, nil
	}

	logger.Get().Infow("refreshing mailbox token", "user_id", userID)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = stored.RefreshToken
	}
	if err := c.store.Save(ctx, userID, fresh.AccessToken, refreshToken, fresh.Expiry); err != nil {
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}

	return fresh.AccessToken, nil
}

// ListUnread lists the ids of unread messages in the user's mailbox.
func (c *Client) ListUnread(ctx context.Context, userID string) ([]MessageRef, error) {
	var result struct {
		Messages []MessageRef `json:"messages"`
	}
	endpoint := c.baseURL + "/users/me/messages?q=" + url.QueryEscape(unreadQuery)
	if err := c.getJSON(ctx, userID, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// GetMessage fetches a full message including headers, snippet, and the
// nested MIME part tree.
func (c *Client) GetMessage(ctx context.Context, userID, messageID string) (*Message, error) {
	var msg Message
	endpoint := c.baseURL + "/users/me/messages/" + url.PathEscape(messageID)
	if err := c.getJSON(ctx, userID, endpoint, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetAttachment fetches and decodes one attachment's bytes.
func (c *Client) GetAttachment(ctx context.Context, userID, messageID, attachmentID string) ([]byte, error) {
	var body struct {
		Size int    `json:"size"`
		Data string `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/users/me/messages/%s/attachments/%s",
		c.baseURL, url.PathEscape(messageID), url.PathEscape(attachmentID))
	if err := c.getJSON(ctx, userID, endpoint, &body); err != nil {
		return nil, err
	}

	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(body.Data)
	if err != nil {
		// Some responses use standard padding.
		data, err = base64.URLEncoding.DecodeString(body.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment: %w", err)
		}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, userID, endpoint string, out any) error {
	token, err := c.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling gmail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("gmail returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gmail response: %w", err)
	}
	return nil
}
