package models

import "time"

// GmailToken stores the OAuth credentials for a user's linked mailbox.
// One per user; deleted on disconnect.
type GmailToken struct {
	Base
	UserID       string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Email        string    `gorm:"not null" json:"email"`
	AccessToken  string    `gorm:"not null" json:"-"`
	RefreshToken string    `gorm:"not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	User         User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
