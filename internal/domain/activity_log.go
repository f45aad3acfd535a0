package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityLog struct {
	LogID        uuid.UUID      `gorm:"column:log_id;type:uuid;primaryKey" json:"log_id"`
	UserID       string         `gorm:"column:user_id;index" json:"user_id"`
	Action       string         `gorm:"column:action;type:varchar(40);not null" json:"action"`
	ResourceType string         `gorm:"column:resource_type;type:varchar(30);not null;index" json:"resource_type"`
	ResourceID   string         `gorm:"column:resource_id;index" json:"resource_id"`
	Details      datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "ActivityLogs"
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.LogID == uuid.Nil {
		l.LogID = uuid.New()
	}
	return nil
}
