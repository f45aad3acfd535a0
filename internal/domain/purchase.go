package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PurchaseOrdered   = "Ordered"
	PurchaseDelivered = "Delivered"
	PurchaseCancelled = "Cancelled"
)

// Purchase is an order for stock at a base. AssetID stays nil until delivery
// resolves (or provisions) the asset record.
type Purchase struct {
	PurchaseID   uuid.UUID       `gorm:"column:purchase_id;type:uuid;primaryKey" json:"purchase_id"`
	AssetID      *uuid.UUID      `gorm:"column:asset_id;type:uuid;index" json:"asset_id"`
	AssetName    string          `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetType    string          `gorm:"column:asset_type;type:varchar(30);not null" json:"asset_type"`
	Base         string          `gorm:"column:base;not null;index" json:"base"`
	Quantity     int64           `gorm:"column:quantity;not null" json:"quantity"`
	UnitCost     decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,2);not null;default:0" json:"unit_cost"`
	TotalCost    decimal.Decimal `gorm:"column:total_cost;type:numeric(14,2);not null;default:0" json:"total_cost"`
	Supplier     string          `gorm:"column:supplier" json:"supplier"`
	Status       string          `gorm:"column:status;type:varchar(20);not null;default:Ordered;index" json:"status"`
	OrderedBy    string          `gorm:"column:ordered_by" json:"ordered_by"`
	ApprovedBy   *string         `gorm:"column:approved_by" json:"approved_by"`
	DeliveryDate *time.Time      `gorm:"column:delivery_date" json:"delivery_date"`
	CancelledBy  *string         `gorm:"column:cancelled_by" json:"cancelled_by"`
	CancelledAt  *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at"`
	Notes        string          `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Purchase) TableName() string {
	return "Purchases"
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.PurchaseID == uuid.Nil {
		p.PurchaseID = uuid.New()
	}
	return nil
}
