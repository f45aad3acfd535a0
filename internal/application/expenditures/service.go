package expenditures

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
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Audit audit.Recorder
}

type Result struct {
	Expenditure *domain.Expenditure `json:"expenditure"`
	Asset       *domain.Asset       `json:"asset,omitempty"`
}

type CreateInput struct {
	AssetID  uuid.UUID  `json:"asset_id"`
	Base     string     `json:"base"`
	Quantity int64      `json:"quantity"`
	Reason   string     `json:"reason"`
	Date     *time.Time `json:"date"`
	Notes    string     `json:"notes"`
}

// Create consumes quantity of an asset.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	in.Base = validation.NormalizeLabel(in.Base)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Base == "" {
		return nil, ledger.Invalid("base is required")
	}
	if in.Reason == "" {
		return nil, ledger.Invalid("reason is required")
	}
	if err := access.Authorize(p, constants.CreateExpenditure, in.Base); err != nil {
		return nil, err
	}
	asset, err := ledger.Get(ctx, s.DB, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Base != in.Base {
		return nil, ledger.ErrBaseMismatch
	}

	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	exp := &domain.Expenditure{
		AssetID:    asset.AssetID,
		AssetName:  asset.Name,
		AssetType:  asset.Type,
		Base:       asset.Base,
		Quantity:   in.Quantity,
		Reason:     in.Reason,
		ExpendedBy: p.UserID,
		Date:       date,
		Notes:      in.Notes,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		asset, err = ledger.Reserve(ctx, tx, asset.AssetID, ledger.Delta{Expended: in.Quantity}, in.Quantity)
		if err != nil {
			return err
		}
		return tx.Create(exp).Error
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCreate, exp)
	return &Result{Expenditure: exp, Asset: asset}, nil
}

// Delete soft-deletes the expenditure and gives its quantity back to the asset.
// A second delete finds nothing, so the quantity is given back once.
func (s *Service) Delete(ctx context.Context, p access.Principal, expenditureID uuid.UUID) (*Result, error) {
	exp, err := s.load(ctx, s.DB, expenditureID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.DeleteExpenditure, exp.Base); err != nil {
		return nil, err
	}

	var asset *domain.Asset
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expenditure_id = ?", expenditureID).Delete(&domain.Expenditure{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledger.ErrNotFound
		}
		var err error
		asset, err = ledger.Apply(ctx, tx, exp.AssetID, ledger.Delta{Expended: -exp.Quantity})
		if errors.Is(err, ledger.ErrNotFound) {
			// Asset was hard-deleted; the expenditure still goes away.
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionDelete, exp)
	return &Result{Expenditure: exp, Asset: asset}, nil
}

func (s *Service) Get(ctx context.Context, p access.Principal, expenditureID uuid.UUID) (*domain.Expenditure, error) {
	exp, err := s.load(ctx, s.DB, expenditureID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ViewExpenditures, exp.Base); err != nil {
		return nil, err
	}
	return exp, nil
}

type ListFilter struct {
	Base    string
	AssetID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Page    query.Page
}

func (s *Service) List(ctx context.Context, p access.Principal, f ListFilter) ([]domain.Expenditure, int64, error) {
	base, err := access.ListScope(p, constants.ViewExpenditures, f.Base)
	if err != nil {
		return nil, 0, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.Expenditure{})
	if base != "" {
		q = q.Where("base = ?", base)
	}
	if f.AssetID != nil {
		q = q.Where("asset_id = ?", *f.AssetID)
	}
	q = query.Between(q, "date", f.From, f.To)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Expenditure
	if err := f.Page.Apply(q).Order("date DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, expenditureID uuid.UUID) (*domain.Expenditure, error) {
	var exp domain.Expenditure
	if err := db.WithContext(ctx).Where("expenditure_id = ?", expenditureID).First(&exp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (s *Service) record(ctx context.Context, p access.Principal, action string, e *domain.Expenditure) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       p.UserID,
		Action:       action,
		ResourceType: audit.ResourceExpenditure,
		ResourceID:   e.ExpenditureID.String(),
		Details: map[string]interface{}{
			"asset_id": e.AssetID.String(),
			"base":     e.Base,
			"quantity": e.Quantity,
			"reason":   e.Reason,
		},
	})
}
