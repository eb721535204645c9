package models

import (
	"time"

	"gorm.io/datatypes"
)

type MetricRecord struct {
	BaseModel

	UserID       uint           `gorm:"not null;index"`
	BatchID      string         `gorm:"index"`      // upload batch this record arrived in
	Fields       datatypes.JSON `gorm:"type:jsonb"` // arbitrary named numeric fields
	DateRecorded time.Time      `gorm:"not null;index"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
