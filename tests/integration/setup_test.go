package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"doxradar/internal/ai"
	"doxradar/internal/config"
	"doxradar/internal/gmail"
	"doxradar/internal/handlers"
	"doxradar/internal/ingest"
	"doxradar/internal/logger"
	"doxradar/internal/middleware"
	"doxradar/internal/models"
	"doxradar/internal/services"
	"doxradar/internal/validator"
)

const (
	testJWTSecret   = "integration-test-secret"
	testPipelineKey = "integration-pipeline-key"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Store    *memObjectStore
	Analyzer *stubAnalyzer
	Mailbox  *fakeMailbox
	Tokens   services.GmailTokenServicer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// memObjectStore is an in-memory object store.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *memObjectStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// stubAnalyzer returns a fixed analysis for every input.
type stubAnalyzer struct {
	mu       sync.Mutex
	analysis *ai.Analysis
	calls    int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ []byte, _ string) *ai.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.analysis != nil {
		return a.analysis
	}
	return &ai.Analysis{Status: ai.StatusCompleted, Summary: "A plain document.", SuggestedCategory: "General"}
}

// fakeMailbox serves canned messages per user.
type fakeMailbox struct {
	mu          sync.Mutex
	refs        map[string][]gmail.MessageRef
	messages    map[string]*gmail.Message
	attachments map[string][]byte
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		refs:        make(map[string][]gmail.MessageRef),
		messages:    make(map[string]*gmail.Message),
		attachments: make(map[string][]byte),
	}
}

func (m *fakeMailbox) ListUnread(_ context.Context, userID string) ([]gmail.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[userID], nil
}

func (m *fakeMailbox) GetMessage(_ context.Context, _, messageID string) (*gmail.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", messageID)
	}
	return msg, nil
}

func (m *fakeMailbox) GetAttachment(_ context.Context, _, _, attachmentID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", attachmentID)
	}
	return data, nil
}

// addMessage registers one unread message with optional PDF attachments.
func (m *fakeMailbox) addMessage(userID, messageID, subject, sender string, attachments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := &gmail.Part{
		MimeType: "multipart/mixed",
		Headers: []gmail.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: sender},
		},
	}
	for i, filename := range attachments {
		attID := fmt.Sprintf("%s-att-%d", messageID, i)
		payload.Parts = append(payload.Parts, &gmail.Part{
			MimeType: "application/pdf",
			Filename: filename,
			Body:     gmail.PartBody{AttachmentID: attID, Size: 64},
		})
		m.attachments[attID] = []byte("%PDF-1.4 " + filename)
	}

	m.refs[userID] = append(m.refs[userID], gmail.MessageRef{ID: messageID, ThreadID: "t-" + messageID})
	m.messages[messageID] = &gmail.Message{
		ID:           messageID,
		Snippet:      "You have a new bill",
		InternalDate: fmt.Sprintf("%d", time.Now().Add(-time.Minute).UnixMilli()),
		Payload:      payload,
	}
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.GmailToken{},
		&models.Document{},
		&models.Subscription{},
		&models.Income{},
		&models.LifeAudit{},
		&models.EmailLog{},
		&models.Notification{},
		&models.UserPreference{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, with the external clients (storage, AI, mailbox) faked.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)
	if _, err := config.Load(); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}

	db := setupIsolatedDB(t)
	store := newMemObjectStore()
	analyzer := &stubAnalyzer{}
	mailbox := newFakeMailbox()

	// Services
	userService := services.NewUserService(db)
	tokenService := services.NewGmailTokenService(db)
	notificationService := services.NewNotificationService(db)
	subscriptionService := services.NewSubscriptionService(db, notificationService)
	preferenceService := services.NewPreferenceService(db)
	documentService := services.NewDocumentService(db, store, analyzer, preferenceService, subscriptionService, notificationService)
	incomeService := services.NewIncomeService(db)
	lifeAuditService := services.NewLifeAuditService(db)
	dashboardService := services.NewDashboardService(db, documentService, subscriptionService, lifeAuditService)
	emailLogService := services.NewEmailLogService(db)

	cycle := ingest.NewCycle(
		userService, tokenService, mailbox, analyzer,
		documentService, subscriptionService, notificationService,
		preferenceService, emailLogService,
		ingest.Options{},
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	incomeHandler := handlers.NewIncomeHandler(incomeService)
	lifeAuditHandler := handlers.NewLifeAuditHandler(lifeAuditService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService)
	ingestHandler := handlers.NewIngestHandler(cycle)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	pipeline := v1.Group("/ingest")
	pipeline.Use(middleware.PipelineAuthMiddleware(testPipelineKey))
	pipeline.POST("/run", ingestHandler.RunCycle)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService))

	protected.GET("/auth/me", authHandler.Me)

	documents := protected.Group("/documents")
	documents.POST("", documentHandler.UploadDocument)
	documents.GET("", documentHandler.GetDocuments)
	documents.GET("/:id", documentHandler.GetDocument)
	documents.PUT("/:id", documentHandler.UpdateDocument)
	documents.DELETE("/:id", documentHandler.DeleteDocument)

	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("", subscriptionHandler.GetSubscriptions)
	subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
	subscriptions.PUT("/:id", subscriptionHandler.UpdateSubscription)
	subscriptions.DELETE("/:id", subscriptionHandler.DeleteSubscription)

	income := protected.Group("/income")
	income.POST("", incomeHandler.CreateIncome)
	income.GET("", incomeHandler.GetIncomes)
	income.PUT("/:id", incomeHandler.UpdateIncome)
	income.DELETE("/:id", incomeHandler.DeleteIncome)

	lifeAudits := protected.Group("/life-audits")
	lifeAudits.POST("", lifeAuditHandler.CreateLifeAudit)
	lifeAudits.GET("", lifeAuditHandler.GetLifeAudits)
	lifeAudits.GET("/latest", lifeAuditHandler.GetLatestLifeAudit)
	lifeAudits.GET("/report", lifeAuditHandler.GetLifeAuditReport)
	lifeAudits.DELETE("/:id", lifeAuditHandler.DeleteLifeAudit)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("/stats", dashboardHandler.GetStats)
	dashboard.GET("/activity", dashboardHandler.GetActivity)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.DeleteNotification)

	preferences := protected.Group("/preferences")
	preferences.GET("", preferenceHandler.GetPreferences)
	preferences.PUT("", preferenceHandler.UpdatePreferences)

	return &testApp{
		DB:       db,
		Router:   router,
		Store:    store,
		Analyzer: analyzer,
		Mailbox:  mailbox,
		Tokens:   tokenService,
	}
}

// bearerToken signs an access token the way the auth provider would.
func bearerToken(t *testing.T, subject, email, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if name != "" {
		claims["user_metadata"] = map[string]any{"name": name}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart file to /api/v1/documents.
func (app *testApp) upload(t *testing.T, token, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write multipart data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// notificationTitles collects the titles from a paginated notification response.
func notificationTitles(t *testing.T, rec *httptest.ResponseRecorder) map[string]bool {
	t.Helper()
	titles := make(map[string]bool)
	data, _ := parseJSON(t, rec)["data"].([]interface{})
	for _, item := range data {
		n := item.(map[string]interface{})
		titles[n["title"].(string)] = true
	}
	return titles
}

// provisionUser provisions a user through the auth middleware and returns the
// user id and a valid bearer token.
func (app *testApp) provisionUser(t *testing.T, email string) (userID, token string) {
	t.Helper()
	subject := fmt.Sprintf("user-%d", dbCounter.Add(1))
	token = bearerToken(t, subject, email, "")
	rec := app.request("GET", "/api/v1/auth/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("provisioning failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return user["id"].(string), token
}
