package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expenditure has no status: it exists or it was deleted (soft), and deletion
// reverses its effect on the asset.
type Expenditure struct {
	ExpenditureID uuid.UUID      `gorm:"column:expenditure_id;type:uuid;primaryKey" json:"expenditure_id"`
	AssetID       uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	AssetName     string         `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetType     string         `gorm:"column:asset_type;type:varchar(30);not null" json:"asset_type"`
	Base          string         `gorm:"column:base;not null;index" json:"base"`
	Quantity      int64          `gorm:"column:quantity;not null" json:"quantity"`
	Reason        string         `gorm:"column:reason;not null" json:"reason"`
	ExpendedBy    string         `gorm:"column:expended_by" json:"expended_by"`
	Date          time.Time      `gorm:"column:date" json:"date"`
	Notes         string         `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Expenditure) TableName() string {
	return "Expenditures"
}

func (e *Expenditure) BeforeCreate(tx *gorm.DB) error {
	if e.ExpenditureID == uuid.Nil {
		e.ExpenditureID = uuid.New()
	}
	return nil
}
