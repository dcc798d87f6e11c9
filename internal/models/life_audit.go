package models

// LifeAudit holds one self-assessment: eight fixed ratings on a 1-10 scale
// plus free-text notes. Unrelated to ingestion.
type LifeAudit struct {
	Base
	UserID        string `gorm:"type:uuid;index;not null" json:"user_id"`
	Health        int    `gorm:"not null" json:"health"`
	Career        int    `gorm:"not null" json:"career"`
	Finances      int    `gorm:"not null" json:"finances"`
	Relationships int    `gorm:"not null" json:"relationships"`
	Growth        int    `gorm:"not null" json:"growth"`
	Recreation    int    `gorm:"not null" json:"recreation"`
	Environment   int    `gorm:"not null" json:"environment"`
	Contribution  int    `gorm:"not null" json:"contribution"`
	Notes         string `json:"notes,omitempty"`
	User          User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Scores returns the eight ratings keyed by area name.
func (a *LifeAudit) Scores() map[string]int {
	return map[string]int{
		"health":        a.Health,
		"career":        a.Career,
		"finances":      a.Finances,
		"relationships": a.Relationships,
		"growth":        a.Growth,
		"recreation":    a.Recreation,
		"environment":   a.Environment,
		"contribution":  a.Contribution,
	}
}
