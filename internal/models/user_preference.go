package models

// DefaultHighCostThreshold is the monthly-equivalent cost above which the
// ingestion cycle emits a high-cost warning, unless the user tuned it.
const DefaultHighCostThreshold = 50.0

// UserPreference holds per-user toggles. A row is created lazily with
// defaults the first time preferences are read.
type UserPreference struct {
	Base
	UserID             string  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	EmailNotifications bool    `gorm:"default:true" json:"email_notifications"`
	AIDocumentAnalysis bool    `gorm:"default:true" json:"ai_document_analysis"`
	HighCostThreshold  float64 `gorm:"default:50" json:"high_cost_threshold"`
	Theme              string  `gorm:"default:'light'" json:"theme"`
	User               User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
