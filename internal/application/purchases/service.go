package purchases

import (
	"context"
	"errors"
	"strings"
	"time"

	"armory-backend/internal/application/audit"
	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/query"
	"armory-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Audit audit.Recorder
}

// Result is a purchase after a transition together with the asset it touched
// (nil when the transition had no balance effect).
type Result struct {
	Purchase     *domain.Purchase `json:"purchase"`
	Asset        *domain.Asset    `json:"asset,omitempty"`
	AssetCreated bool             `json:"asset_created"`
}

type CreateInput struct {
	AssetID   *uuid.UUID      `json:"asset_id"`
	AssetName string          `json:"asset_name"`
	AssetType string          `json:"asset_type"`
	Base      string          `json:"base"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Supplier  string          `json:"supplier"`
	Notes     string          `json:"notes"`
}

// Create records an order. Balances are untouched until delivery.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*domain.Purchase, error) {
	if in.Quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() {
		return nil, ledger.Invalid("unit cost must be zero or more")
	}
	in.AssetName = validation.NormalizeLabel(in.AssetName)
	in.AssetType = strings.TrimSpace(in.AssetType)
	in.Base = validation.NormalizeLabel(in.Base)

	if in.AssetID != nil {
		a, err := ledger.Get(ctx, s.DB, *in.AssetID)
		if err != nil {
			return nil, err
		}
		if in.Base != "" && in.Base != a.Base {
			return nil, ledger.ErrBaseMismatch
		}
		in.AssetName, in.AssetType, in.Base = a.Name, a.Type, a.Base
	}
	if in.AssetName == "" || in.AssetType == "" || in.Base == "" {
		return nil, ledger.Invalid("asset_name, asset_type and base are required")
	}
	if !domain.IsValidAssetType(in.AssetType) {
		return nil, ledger.Invalid("asset_type must be one of Weapon, Vehicle, Ammunition, Equipment")
	}
	if err := access.Authorize(p, constants.CreatePurchase, in.Base); err != nil {
		return nil, err
	}

	purchase := &domain.Purchase{
		AssetID:   in.AssetID,
		AssetName: in.AssetName,
		AssetType: in.AssetType,
		Base:      in.Base,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		TotalCost: in.UnitCost.Mul(decimal.NewFromInt(in.Quantity)),
		Supplier:  strings.TrimSpace(in.Supplier),
		Status:    domain.PurchaseOrdered,
		OrderedBy: p.UserID,
		Notes:     in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(purchase).Error; err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCreate, purchase, nil)
	return purchase, nil
}

// Deliver moves an Ordered purchase to Delivered and books the quantity on the
// asset for (name, type, base), provisioning the asset if needed.
func (s *Service) Deliver(ctx context.Context, p access.Principal, purchaseID uuid.UUID) (*Result, error) {
	purchase, err := s.load(ctx, s.DB, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.DeliverPurchase, purchase.Base); err != nil {
		return nil, err
	}
	if purchase.Status != domain.PurchaseOrdered {
		return nil, ledger.ErrInvalidTransition
	}

	var asset *domain.Asset
	var created bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		approver := p.UserID
		res := tx.Model(&domain.Purchase{}).
			Where("purchase_id = ? AND status = ?", purchaseID, domain.PurchaseOrdered).
			Updates(map[string]interface{}{
				"status":        domain.PurchaseDelivered,
				"delivery_date": now,
				"approved_by":   approver,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledger.ErrInvalidTransition
		}

		var err error
		if purchase.AssetID != nil {
			asset, err = ledger.Get(ctx, tx, *purchase.AssetID)
			if errors.Is(err, ledger.ErrNotFound) {
				asset, created, err = ledger.FindOrCreate(ctx, tx, purchase.AssetName, purchase.AssetType, purchase.Base)
			}
		} else {
			asset, created, err = ledger.FindOrCreate(ctx, tx, purchase.AssetName, purchase.AssetType, purchase.Base)
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.Purchase{}).Where("purchase_id = ?", purchaseID).
			Update("asset_id", asset.AssetID).Error; err != nil {
			return err
		}
		asset, err = ledger.Apply(ctx, tx, asset.AssetID, ledger.Delta{Purchases: purchase.Quantity})
		if err != nil {
			return err
		}
		purchase, err = s.load(ctx, tx, purchaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionDeliver, purchase, map[string]interface{}{
		"asset_id":        asset.AssetID.String(),
		"asset_created":   created,
		"purchases":       asset.Purchases,
		"closing_balance": asset.ClosingBalance,
	})
	return &Result{Purchase: purchase, Asset: asset, AssetCreated: created}, nil
}

// Cancel closes an Ordered or Delivered purchase. A delivered purchase has its
// quantity taken back off the asset.
func (s *Service) Cancel(ctx context.Context, p access.Principal, purchaseID uuid.UUID) (*Result, error) {
	purchase, err := s.load(ctx, s.DB, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.CancelPurchase, purchase.Base); err != nil {
		return nil, err
	}
	if purchase.Status == domain.PurchaseCancelled {
		return nil, ledger.ErrAlreadyTerminal
	}

	var asset *domain.Asset
	from := purchase.Status
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Purchase{}).
			Where("purchase_id = ? AND status = ?", purchaseID, from).
			Updates(map[string]interface{}{
				"status":       domain.PurchaseCancelled,
				"cancelled_by": p.UserID,
				"cancelled_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Status changed underneath us; re-evaluate against the current row.
			current, err := s.load(ctx, tx, purchaseID)
			if err != nil {
				return err
			}
			if current.Status == domain.PurchaseCancelled {
				return ledger.ErrAlreadyTerminal
			}
			return ledger.ErrInvalidTransition
		}
		if from == domain.PurchaseDelivered && purchase.AssetID != nil {
			var err error
			asset, err = ledger.Apply(ctx, tx, *purchase.AssetID, ledger.Delta{Purchases: -purchase.Quantity})
			if errors.Is(err, ledger.ErrNotFound) {
				// Asset was hard-deleted; the purchase is still cancelled.
				log.Warn().Str("purchase_id", purchaseID.String()).Str("asset_id", purchase.AssetID.String()).
					Msg("purchases: asset no longer exists, reversal skipped")
			} else if err != nil {
				return err
			}
		}
		var err error
		purchase, err = s.load(ctx, tx, purchaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCancel, purchase, map[string]interface{}{"previous_status": from})
	return &Result{Purchase: purchase, Asset: asset}, nil
}

// Get returns a purchase visible to p.
func (s *Service) Get(ctx context.Context, p access.Principal, purchaseID uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.load(ctx, s.DB, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ViewPurchases, purchase.Base); err != nil {
		return nil, err
	}
	return purchase, nil
}

type ListFilter struct {
	Base      string
	Status    string
	AssetType string
	From      *time.Time
	To        *time.Time
	Page      query.Page
}

// List returns purchases newest first. Non-admins only see their own base.
func (s *Service) List(ctx context.Context, p access.Principal, f ListFilter) ([]domain.Purchase, int64, error) {
	base, err := access.ListScope(p, constants.ViewPurchases, f.Base)
	if err != nil {
		return nil, 0, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.Purchase{})
	if base != "" {
		q = q.Where("base = ?", base)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssetType != "" {
		q = q.Where("asset_type = ?", f.AssetType)
	}
	q = query.Between(q, "created_at", f.From, f.To)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Purchase
	if err := f.Page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, purchaseID uuid.UUID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	if err := db.WithContext(ctx).Where("purchase_id = ?", purchaseID).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (s *Service) record(ctx context.Context, p access.Principal, action string, purchase *domain.Purchase, extra map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	details := map[string]interface{}{
		"asset_name": purchase.AssetName,
		"asset_type": purchase.AssetType,
		"base":       purchase.Base,
		"quantity":   purchase.Quantity,
		"status":     purchase.Status,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       p.UserID,
		Action:       action,
		ResourceType: audit.ResourcePurchase,
		ResourceID:   purchase.PurchaseID.String(),
		Details:      details,
	})
}
