package models

import "time"

// Income is a user-declared income source, listed alongside subscriptions
// on the dashboard.
type Income struct {
	Base
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Frequency string    `gorm:"default:'Monthly'" json:"frequency"`
	Category  string    `gorm:"default:'Salary'" json:"category"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
