package assets

import (
	"context"
	"strings"

	"armory-backend/internal/application/audit"
	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/query"
	"armory-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Audit audit.Recorder
}

type CreateInput struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Base           string `json:"base"`
	OpeningBalance int64  `json:"opening_balance"`
}

// Create registers an asset with an opening balance. Movements may also
// provision assets implicitly; this is the explicit path.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*domain.Asset, error) {
	in.Name = validation.NormalizeLabel(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Base = validation.NormalizeLabel(in.Base)
	if !validation.IsValidLabel(in.Name) || !validation.IsValidLabel(in.Base) {
		return nil, ledger.Invalid("name and base are required")
	}
	if !domain.IsValidAssetType(in.Type) {
		return nil, ledger.Invalid("type must be one of Weapon, Vehicle, Ammunition, Equipment")
	}
	if in.OpeningBalance < 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	if err := access.Authorize(p, constants.ManageAssets, in.Base); err != nil {
		return nil, err
	}

	var asset *domain.Asset
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, created, err := ledger.FindOrCreate(ctx, tx, in.Name, in.Type, in.Base)
		if err != nil {
			return err
		}
		if !created {
			return ledger.ErrDuplicate
		}
		asset, err = ledger.SetOpening(ctx, tx, a.AssetID, in.OpeningBalance)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCreate, asset, nil)
	return asset, nil
}

// Get returns an asset visible to p.
func (s *Service) Get(ctx context.Context, p access.Principal, assetID uuid.UUID) (*domain.Asset, error) {
	asset, err := ledger.Get(ctx, s.DB, assetID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ViewAssets, asset.Base); err != nil {
		return nil, err
	}
	return asset, nil
}

type ListFilter struct {
	Base string
	Type string
	Name string
	Page query.Page
}

func (s *Service) List(ctx context.Context, p access.Principal, f ListFilter) ([]domain.Asset, int64, error) {
	base, err := access.ListScope(p, constants.ViewAssets, f.Base)
	if err != nil {
		return nil, 0, err
	}
	q := s.filtered(ctx, base, f.Type, f.Name)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Asset
	if err := f.Page.Apply(q).Order("base ASC, type ASC, name ASC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateOpening is the explicit edit of an asset's opening balance.
func (s *Service) UpdateOpening(ctx context.Context, p access.Principal, assetID uuid.UUID, opening int64) (*domain.Asset, error) {
	asset, err := ledger.Get(ctx, s.DB, assetID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ManageAssets, asset.Base); err != nil {
		return nil, err
	}
	previous := asset.OpeningBalance
	asset, err = ledger.SetOpening(ctx, s.DB, assetID, opening)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionUpdate, asset, map[string]interface{}{"previous_opening_balance": previous})
	return asset, nil
}

// Delete removes the asset row. Movements referencing it are left in place.
func (s *Service) Delete(ctx context.Context, p access.Principal, assetID uuid.UUID) error {
	asset, err := ledger.Get(ctx, s.DB, assetID)
	if err != nil {
		return err
	}
	if err := access.Authorize(p, constants.DeleteAsset, asset.Base); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&domain.Asset{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	s.record(ctx, p, audit.ActionDelete, asset, nil)
	return nil
}

// SummaryRow aggregates counters for one base (and type, when grouped by type).
type SummaryRow struct {
	Base           string `json:"base"`
	Type           string `json:"type,omitempty"`
	Assets         int64  `json:"assets"`
	OpeningBalance int64  `json:"opening_balance"`
	Purchases      int64  `json:"purchases"`
	TransferIn     int64  `json:"transfer_in"`
	TransferOut    int64  `json:"transfer_out"`
	NetMovement    int64  `json:"net_movement"`
	Assigned       int64  `json:"assigned"`
	Expended       int64  `json:"expended"`
	ClosingBalance int64  `json:"closing_balance"`
	Available      int64  `json:"available"`
}

type SummaryFilter struct {
	Base   string
	Type   string
	ByType bool
}

// Summary returns dashboard totals per base. NetMovement is
// purchases + transfer_in - transfer_out.
func (s *Service) Summary(ctx context.Context, p access.Principal, f SummaryFilter) ([]SummaryRow, error) {
	base, err := access.ListScope(p, constants.ViewAssets, f.Base)
	if err != nil {
		return nil, err
	}
	groupBy := "base"
	selectCols := "base, COUNT(*) AS assets"
	if f.ByType {
		groupBy = "base, type"
		selectCols = "base, type, COUNT(*) AS assets"
	}
	selectCols += `, COALESCE(SUM(opening_balance), 0) AS opening_balance,
		COALESCE(SUM(purchases), 0) AS purchases,
		COALESCE(SUM(transfer_in), 0) AS transfer_in,
		COALESCE(SUM(transfer_out), 0) AS transfer_out,
		COALESCE(SUM(assigned), 0) AS assigned,
		COALESCE(SUM(expended), 0) AS expended,
		COALESCE(SUM(closing_balance), 0) AS closing_balance,
		COALESCE(SUM(available), 0) AS available`

	var rows []SummaryRow
	if err := s.filtered(ctx, base, f.Type, "").
		Select(selectCols).Group(groupBy).Order(groupBy).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].NetMovement = rows[i].Purchases + rows[i].TransferIn - rows[i].TransferOut
	}
	return rows, nil
}

func (s *Service) filtered(ctx context.Context, base, assetType, name string) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&domain.Asset{})
	if base != "" {
		q = q.Where("base = ?", base)
	}
	if assetType != "" {
		q = q.Where("type = ?", assetType)
	}
	if name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	return q
}

func (s *Service) record(ctx context.Context, p access.Principal, action string, a *domain.Asset, extra map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	details := map[string]interface{}{
		"name":            a.Name,
		"type":            a.Type,
		"base":            a.Base,
		"opening_balance": a.OpeningBalance,
		"closing_balance": a.ClosingBalance,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       p.UserID,
		Action:       action,
		ResourceType: audit.ResourceAsset,
		ResourceID:   a.AssetID.String(),
		Details:      details,
	})
}
