package models

// Notification types.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationDanger  = "danger"
)

// Notification is a short-lived, user-facing status record polled by the UI.
// Notifications are advisory: writers treat failures as non-fatal.
type Notification struct {
	Base
	UserID   string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type     string         `gorm:"default:'info'" json:"type"`
	Title    string         `gorm:"not null" json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	IsRead   bool           `gorm:"default:false" json:"is_read"`
	User     User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
