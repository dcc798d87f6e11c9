package models

import "doxradar/internal/ai"

// Document represents an uploaded or ingested file. The analysis is attached
// after the row is created; a failed analysis leaves the row intact with a
// Failed status rather than losing the upload.
type Document struct {
	Base
	UserID   string `gorm:"type:uuid;index;not null" json:"user_id"`
	Name     string `gorm:"not null" json:"name"`
	Category string `gorm:"default:'Uncategorized'" json:"category"`
	// Type is the uppercased file extension, or "FILE" when the name has none.
	Type string `json:"type"`
	// Size is the human-readable size, e.g. "1.2 MB".
	Size string `json:"size"`
	// StorageKey is the object key inside the bucket; URL is its public URL.
	StorageKey string `json:"-"`
	URL        string `json:"url"`

	AnalysisStatus string       `gorm:"default:'Pending'" json:"analysis_status"`
	Analysis       *ai.Analysis `gorm:"serializer:json" json:"analysis,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
