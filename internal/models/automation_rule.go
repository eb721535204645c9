package models

import (
	"time"

	"gorm.io/datatypes"
)

type AutomationRule struct {
	BaseModel

	UserID        uint           `gorm:"not null;index"`
	Name          string         `gorm:"not null"`
	Enabled       bool           `gorm:"default:true;index"`
	Condition     datatypes.JSON `gorm:"type:jsonb"` // metric, operator, threshold, aggregation, limit
	ActionType    string         `gorm:"not null"`   // "email", "slack", "in_app"
	ActionConfig  datatypes.JSON `gorm:"type:jsonb"` // channel-specific parameters
	LastTriggered *time.Time

	// Relationships
	User           User            `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	AutomationLogs []AutomationLog `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
