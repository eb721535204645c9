package models

type Notification struct {
	BaseModel

	UserID  uint   `gorm:"not null;index"`
	Title   string `gorm:"not null"`
	Message string
	Type    string `gorm:"not null"` // "automation", "system", "error"
	Read    bool   `gorm:"default:false;index"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
