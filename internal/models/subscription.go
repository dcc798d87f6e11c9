package models

import "time"

// Billing periods.
const (
	PeriodMonthly = "Monthly"
	PeriodYearly  = "Yearly"
)

// Subscription statuses.
const (
	SubscriptionActive    = "Active"
	SubscriptionPaused    = "Paused"
	SubscriptionCancelled = "Cancelled"
)

// Subscription is a recurring payment tracked for a user, created manually
// or auto-logged from an AI analysis result.
type Subscription struct {
	Base
	UserID        string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Name          string    `gorm:"not null" json:"name"`
	Price         float64   `gorm:"not null" json:"price"`
	Currency      string    `gorm:"size:3;default:'USD'" json:"currency"`
	Period        string    `gorm:"default:'Monthly'" json:"period"`
	Category      string    `gorm:"default:'General'" json:"category"`
	StartDate     time.Time `json:"start_date"`
	NextPayment   time.Time `json:"next_payment"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Status        string    `gorm:"default:'Active'" json:"status"`
	User          User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// MonthlyEquivalent normalizes the price to a monthly figure for aggregate
// reporting: yearly subscriptions are divided by 12.
func (s *Subscription) MonthlyEquivalent() float64 {
	if s.Period == PeriodYearly {
		return s.Price / 12
	}
	return s.Price
}
