package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asset types accepted on explicit asset creation.
const (
	AssetTypeWeapon     = "Weapon"
	AssetTypeVehicle    = "Vehicle"
	AssetTypeAmmunition = "Ammunition"
	AssetTypeEquipment  = "Equipment"
)

var AssetTypes = []string{AssetTypeWeapon, AssetTypeVehicle, AssetTypeAmmunition, AssetTypeEquipment}

func IsValidAssetType(t string) bool {
	for _, v := range AssetTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Asset is the per-(name, type, base) balance record. ClosingBalance and Available
// are derived and only ever written together with the counters they derive from.
type Asset struct {
	AssetID        uuid.UUID `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex:idx_assets_name_type_base" json:"name"`
	Type           string    `gorm:"column:type;type:varchar(30);not null;uniqueIndex:idx_assets_name_type_base" json:"type"`
	Base           string    `gorm:"column:base;not null;index;uniqueIndex:idx_assets_name_type_base" json:"base"`
	OpeningBalance int64     `gorm:"column:opening_balance;not null;default:0" json:"opening_balance"`
	Purchases      int64     `gorm:"column:purchases;not null;default:0" json:"purchases"`
	TransferIn     int64     `gorm:"column:transfer_in;not null;default:0" json:"transfer_in"`
	TransferOut    int64     `gorm:"column:transfer_out;not null;default:0" json:"transfer_out"`
	Assigned       int64     `gorm:"column:assigned;not null;default:0" json:"assigned"`
	Expended       int64     `gorm:"column:expended;not null;default:0" json:"expended"`
	ClosingBalance int64     `gorm:"column:closing_balance;not null;default:0" json:"closing_balance"`
	Available      int64     `gorm:"column:available;not null;default:0" json:"available"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Asset) TableName() string {
	return "Assets"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}
