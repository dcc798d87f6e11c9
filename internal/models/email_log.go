package models

import "doxradar/internal/ai"

// EmailLog records one processed mailbox message. GmailID is unique: this is
// the deduplication invariant guaranteeing no message is processed twice,
// even across overlapping ingestion cycles.
type EmailLog struct {
	Base
	GmailID        string       `gorm:"uniqueIndex;not null" json:"gmail_id"`
	UserID         string       `gorm:"type:uuid;index;not null" json:"user_id"`
	Subject        string       `json:"subject"`
	Sender         string       `json:"sender"`
	Snippet        string       `json:"snippet"`
	Classification string       `json:"classification"`
	ExtractedData  *ai.Analysis `gorm:"serializer:json" json:"extracted_data,omitempty"`
	User           User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
