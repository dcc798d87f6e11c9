package models

import "time"

// Plan tiers.
const (
	PlanFree = "Free"
	PlanPro  = "Pro"
)

// User mirrors an identity from the external auth provider. Rows are created
// lazily the first time a valid bearer token for an unknown subject is seen.
type User struct {
	Base
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `json:"name"`
	Plan  string `gorm:"default:'Free'" json:"plan"`

	// LastIngestedAt is the high-water mark for the Gmail ingestion cycle.
	// Nil means the mailbox has never been scanned.
	LastIngestedAt *time.Time `json:"last_ingested_at,omitempty"`

	Documents     []Document     `gorm:"foreignKey:UserID" json:"documents,omitempty"`
	Subscriptions []Subscription `gorm:"foreignKey:UserID" json:"subscriptions,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}
