package models

type AutomationLog struct {
	BaseModel

	RuleID       uint    `gorm:"not null;index"`
	UserID       uint    `gorm:"not null;index"`
	Status       string  `gorm:"not null"` // "success", "error"
	CurrentValue float64 `gorm:"not null"`
	Threshold    float64 `gorm:"not null"`
	Matched      bool    `gorm:"not null"`
	ActionResult string
	Message      string

	// Relationships
	Rule AutomationRule `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	User User           `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
