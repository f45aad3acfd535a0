package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AssignmentActive   = "Active"
	AssignmentReturned = "Returned"
	AssignmentLost     = "Lost"
	AssignmentDamaged  = "Damaged"
)

// Assignee identifies the person holding assigned units.
type Assignee struct {
	Name      string `gorm:"column:name;not null" json:"name"`
	Rank      string `gorm:"column:rank" json:"rank"`
	ServiceID string `gorm:"column:service_id" json:"service_id"`
}

type Assignment struct {
	AssignmentID     uuid.UUID  `gorm:"column:assignment_id;type:uuid;primaryKey" json:"assignment_id"`
	AssetID          uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	AssetName        string     `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetType        string     `gorm:"column:asset_type;type:varchar(30);not null" json:"asset_type"`
	Base             string     `gorm:"column:base;not null;index" json:"base"`
	Quantity         int64      `gorm:"column:quantity;not null" json:"quantity"`
	ReturnedQuantity int64      `gorm:"column:returned_quantity;not null;default:0" json:"returned_quantity"`
	AssignedTo       Assignee   `gorm:"embedded;embeddedPrefix:assignee_" json:"assigned_to"`
	Purpose          string     `gorm:"column:purpose" json:"purpose"`
	Status           string     `gorm:"column:status;type:varchar(20);not null;default:Active;index" json:"status"`
	StartDate        time.Time  `gorm:"column:start_date" json:"start_date"`
	EndDate          *time.Time `gorm:"column:end_date" json:"end_date"`
	AssignedBy       string     `gorm:"column:assigned_by" json:"assigned_by"`
	Notes            string     `gorm:"column:notes" json:"notes"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Assignment) TableName() string {
	return "Assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.AssignmentID == uuid.Nil {
		a.AssignmentID = uuid.New()
	}
	return nil
}

// Outstanding is the quantity still held by the assignee.
func (a *Assignment) Outstanding() int64 {
	return a.Quantity - a.ReturnedQuantity
}
