package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransferPending   = "Pending"
	TransferCompleted = "Completed"
	TransferCancelled = "Cancelled"
)

// Transfer moves quantity of one asset from FromBase to ToBase. Balances are moved
// when the transfer is created; approval only closes it.
type Transfer struct {
	TransferID         uuid.UUID  `gorm:"column:transfer_id;type:uuid;primaryKey" json:"transfer_id"`
	AssetID            uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	DestinationAssetID *uuid.UUID `gorm:"column:destination_asset_id;type:uuid;index" json:"destination_asset_id"`
	AssetName          string     `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetType          string     `gorm:"column:asset_type;type:varchar(30);not null" json:"asset_type"`
	FromBase           string     `gorm:"column:from_base;not null;index" json:"from_base"`
	ToBase             string     `gorm:"column:to_base;not null;index" json:"to_base"`
	Quantity           int64      `gorm:"column:quantity;not null" json:"quantity"`
	Status             string     `gorm:"column:status;type:varchar(20);not null;default:Pending;index" json:"status"`
	InitiatedBy        string     `gorm:"column:initiated_by" json:"initiated_by"`
	ApprovedBy         *string    `gorm:"column:approved_by" json:"approved_by"`
	ApprovedAt         *time.Time `gorm:"column:approved_at" json:"approved_at"`
	CancelledBy        *string    `gorm:"column:cancelled_by" json:"cancelled_by"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at"`
	Notes              string     `gorm:"column:notes" json:"notes"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Transfer) TableName() string {
	return "Transfers"
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.TransferID == uuid.Nil {
		t.TransferID = uuid.New()
	}
	return nil
}

// Intent kinds and steps. A step is written in the same database transaction as the
// asset update it describes, so a resumed intent never applies a step twice.
const (
	IntentKindCreate = "create"
	IntentKindCancel = "cancel"

	IntentStepSourceApplied = "source_applied"
	IntentStepCompleted     = "completed"
)

type TransferIntent struct {
	IntentID   uuid.UUID `gorm:"column:intent_id;type:uuid;primaryKey" json:"intent_id"`
	TransferID uuid.UUID `gorm:"column:transfer_id;type:uuid;not null;uniqueIndex:idx_transfer_intents_transfer_kind" json:"transfer_id"`
	Kind       string    `gorm:"column:kind;type:varchar(20);not null;uniqueIndex:idx_transfer_intents_transfer_kind" json:"kind"`
	Step       string    `gorm:"column:step;type:varchar(30);not null;index" json:"step"`
	Attempts   int       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError  *string   `gorm:"column:last_error" json:"last_error"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TransferIntent) TableName() string {
	return "TransferIntents"
}

func (i *TransferIntent) BeforeCreate(tx *gorm.DB) error {
	if i.IntentID == uuid.Nil {
		i.IntentID = uuid.New()
	}
	return nil
}
