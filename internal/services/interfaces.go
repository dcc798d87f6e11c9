package services

import (
	"context"
	"time"

	"doxradar/internal/ai"
	"doxradar/internal/gmail"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
)

// Analyzer produces document analyses. Implemented by the AI client; faked
// in tests. A non-nil Analysis is always returned: failures are carried in
// the analysis status, never as errors.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType string) *ai.Analysis
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	SyncFromToken(id, email, name string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	SetLastIngestedAt(userID string, at time.Time) error
	ConnectedUsers() ([]models.User, error)
}

// GmailTokenServicer manages stored mailbox credentials. It also satisfies
// gmail.TokenStore so the Gmail client can read and refresh tokens.
type GmailTokenServicer interface {
	Token(ctx context.Context, userID string) (*gmail.StoredToken, error)
	Save(ctx context.Context, userID string, accessToken, refreshToken string, expiry time.Time) error
	Connect(userID, email, accessToken, refreshToken string, expiry time.Time) (*models.GmailToken, error)
	Connection(userID string) (*models.GmailToken, error)
	Disconnect(userID string) error
}

// DocumentUpload carries the raw bytes of a file entering the system, either
// from a multipart upload or from a mailbox attachment.
type DocumentUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentServicer defines the contract for document-related business logic.
type DocumentServicer interface {
	UploadDocument(ctx context.Context, userID string, upload DocumentUpload) (*models.Document, error)
	CreateFromIngestion(ctx context.Context, userID string, upload DocumentUpload, analysis *ai.Analysis) (*models.Document, error)
	GetUserDocuments(userID string, page pagination.PageRequest, category *string) (*pagination.PageResponse[models.Document], error)
	GetDocumentByID(userID, documentID string) (*models.Document, error)
	UpdateDocument(userID, documentID string, name, category *string) (*models.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
	RecentDocuments(userID string, limit int) ([]models.Document, error)
	CountUserDocuments(userID string) (int64, error)
}

// SubscriptionFields holds optional update parameters for a subscription.
type SubscriptionFields struct {
	Name          *string
	Price         *float64
	Currency      *string
	Period        *string
	Category      *string
	StartDate     *time.Time
	NextPayment   *time.Time
	PaymentMethod *string
	Status        *string
}

// SubscriptionServicer defines the contract for subscription-related business logic.
type SubscriptionServicer interface {
	CreateSubscription(userID, name string, price float64, currency, period, category string, startDate, nextPayment time.Time, paymentMethod string) (*models.Subscription, error)
	GetUserSubscriptions(userID string, page pagination.PageRequest, status *string) (*pagination.PageResponse[models.Subscription], error)
	GetSubscriptionByID(userID, subscriptionID string) (*models.Subscription, error)
	UpdateSubscription(userID, subscriptionID string, fields SubscriptionFields) (*models.Subscription, error)
	DeleteSubscription(userID, subscriptionID string) error
	AutoLog(userID string, analysis *ai.Analysis, sourceName string) (*models.Subscription, error)
	ActiveSubscriptions(userID string) ([]models.Subscription, error)
}

// IncomeFields holds optional update parameters for an income source.
type IncomeFields struct {
	Name      *string
	Amount    *float64
	Frequency *string
	Category  *string
	Date      *time.Time
	Notes     *string
}

// IncomeServicer defines the contract for income-related business logic.
type IncomeServicer interface {
	CreateIncome(userID, name string, amount float64, frequency, category string, date time.Time, notes string) (*models.Income, error)
	GetUserIncomes(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Income], error)
	GetIncomeByID(userID, incomeID string) (*models.Income, error)
	UpdateIncome(userID, incomeID string, fields IncomeFields) (*models.Income, error)
	DeleteIncome(userID, incomeID string) error
}

// LifeAuditRatings carries the eight area ratings and notes for a new audit.
type LifeAuditRatings struct {
	Health        int
	Career        int
	Finances      int
	Relationships int
	Growth        int
	Recreation    int
	Environment   int
	Contribution  int
	Notes         string
}

// LifeAuditReport summarizes a user's audit history. Deltas holds the
// per-area change against the previous audit and is omitted for first-time
// auditors.
type LifeAuditReport struct {
	Latest       *models.LifeAudit `json:"latest,omitempty"`
	AverageScore float64           `json:"average_score"`
	Strongest    string            `json:"strongest"`
	Weakest      string            `json:"weakest"`
	AuditCount   int64             `json:"audit_count"`
	Deltas       map[string]int    `json:"deltas,omitempty"`
}

// LifeAuditServicer defines the contract for life-audit business logic.
type LifeAuditServicer interface {
	CreateLifeAudit(userID string, ratings LifeAuditRatings) (*models.LifeAudit, error)
	GetUserLifeAudits(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.LifeAudit], error)
	GetLatestLifeAudit(userID string) (*models.LifeAudit, error)
	GetLifeAuditReport(userID string) (*LifeAuditReport, error)
	DeleteLifeAudit(userID, auditID string) error
}

// NotificationServicer defines the contract for notification business logic.
// Notify is best-effort: failures are logged and swallowed so a broken
// notification write never aborts the operation that triggered it.
type NotificationServicer interface {
	CreateNotification(userID, notificationType, title, message string, metadata map[string]any) (*models.Notification, error)
	Notify(userID, notificationType, title, message string, metadata map[string]any)
	GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error)
	MarkNotificationRead(userID, notificationID string) (*models.Notification, error)
	MarkAllNotificationsRead(userID string) error
	DeleteNotification(userID, notificationID string) error
	DeleteNotificationsByTitle(userID, title string) error
	CountUnread(userID string) (int64, error)
}

// PreferenceFields holds optional update parameters for user preferences.
type PreferenceFields struct {
	EmailNotifications *bool
	AIDocumentAnalysis *bool
	HighCostThreshold  *float64
	Theme              *string
}

// PreferenceServicer defines the contract for user-preference business logic.
// A preference row is created lazily with defaults on first read.
type PreferenceServicer interface {
	GetPreferences(userID string) (*models.UserPreference, error)
	UpdatePreferences(userID string, fields PreferenceFields) (*models.UserPreference, error)
}

// SpendChartEntry is one bar of the dashboard spend chart.
type SpendChartEntry struct {
	Name    string  `json:"name"`
	Monthly float64 `json:"monthly"`
}

// DashboardStats aggregates the headline numbers for the dashboard.
type DashboardStats struct {
	TotalDocuments    int64                `json:"total_documents"`
	SubscriptionCount int64                `json:"subscription_count"`
	TotalMonthlyCost  float64              `json:"total_monthly_cost"`
	NextBill          *models.Subscription `json:"next_bill,omitempty"`
	SpendChart        []SpendChartEntry    `json:"spend_chart"`
	LifeAuditScores   map[string]int       `json:"life_audit_scores,omitempty"`
}

// DashboardServicer defines the contract for dashboard aggregation.
type DashboardServicer interface {
	GetDashboardStats(userID string) (*DashboardStats, error)
	GetRecentActivity(userID string) ([]models.Document, error)
}

// EmailLogServicer records processed mailbox messages. The gmail_id unique
// index makes Record the deduplication point for the ingestion cycle.
type EmailLogServicer interface {
	Seen(gmailID string) (bool, error)
	Record(entry *models.EmailLog) error
}
