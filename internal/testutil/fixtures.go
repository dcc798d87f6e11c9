package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"doxradar/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email: email,
		Name:  fmt.Sprintf("Test User %d", nextID()),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestGmailToken links a mailbox to the given user with a token that is
// still valid for an hour.
func CreateTestGmailToken(t *testing.T, db *gorm.DB, userID string) *models.GmailToken {
	t.Helper()

	token := &models.GmailToken{
		UserID:       userID,
		Email:        fmt.Sprintf("mailbox%d@gmail.com", nextID()),
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("failed to create test gmail token: %v", err)
	}
	return token
}

// CreateTestDocument creates a document with a pending analysis.
func CreateTestDocument(t *testing.T, db *gorm.DB, userID string) *models.Document {
	t.Helper()

	n := nextID()
	doc := &models.Document{
		UserID:     userID,
		Name:       fmt.Sprintf("test-document-%d.pdf", n),
		Category:   "General",
		Type:       "PDF",
		Size:       "1 KB",
		StorageKey: fmt.Sprintf("user_%s/%d_test-document-%d.pdf", userID, n, n),
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed to create test document: %v", err)
	}
	return doc
}

// CreateTestSubscription creates an active monthly subscription with the
// given price.
func CreateTestSubscription(t *testing.T, db *gorm.DB, userID string, price float64) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Subscription %d", nextID()),
		Price:       price,
		Currency:    "USD",
		Period:      models.PeriodMonthly,
		Category:    "General",
		StartDate:   time.Now(),
		NextPayment: time.Now().AddDate(0, 1, 0),
		Status:      models.SubscriptionActive,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
	return sub
}

// CreateTestNotification creates an unread info notification.
func CreateTestNotification(t *testing.T, db *gorm.DB, userID, title string) *models.Notification {
	t.Helper()

	notification := &models.Notification{
		UserID:  userID,
		Type:    models.NotificationInfo,
		Title:   title,
		Message: fmt.Sprintf("Test message %d", nextID()),
	}
	if err := db.Create(notification).Error; err != nil {
		t.Fatalf("failed to create test notification: %v", err)
	}
	return notification
}

// CreateTestPreferences creates a preference row with the given high-cost
// threshold.
func CreateTestPreferences(t *testing.T, db *gorm.DB, userID string, threshold float64) *models.UserPreference {
	t.Helper()

	prefs := &models.UserPreference{
		UserID:             userID,
		EmailNotifications: true,
		AIDocumentAnalysis: true,
		HighCostThreshold:  threshold,
		Theme:              "light",
	}
	if err := db.Create(prefs).Error; err != nil {
		t.Fatalf("failed to create test preferences: %v", err)
	}
	return prefs
}

// CreateTestLifeAudit creates an audit with every rating set to the given
// score.
func CreateTestLifeAudit(t *testing.T, db *gorm.DB, userID string, score int) *models.LifeAudit {
	t.Helper()

	audit := &models.LifeAudit{
		UserID:        userID,
		Health:        score,
		Career:        score,
		Finances:      score,
		Relationships: score,
		Growth:        score,
		Recreation:    score,
		Environment:   score,
		Contribution:  score,
	}
	if err := db.Create(audit).Error; err != nil {
		t.Fatalf("failed to create test life audit: %v", err)
	}
	return audit
}
