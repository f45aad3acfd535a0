package assignments

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

// Result is an assignment with the asset after the call.
type Result struct {
	Assignment *domain.Assignment `json:"assignment"`
	Asset      *domain.Asset      `json:"asset,omitempty"`
}

type CreateInput struct {
	AssetID    uuid.UUID       `json:"asset_id"`
	Base       string          `json:"base"`
	Quantity   int64           `json:"quantity"`
	AssignedTo domain.Assignee `json:"assigned_to"`
	Purpose    string          `json:"purpose"`
	StartDate  *time.Time      `json:"start_date"`
	Notes      string          `json:"notes"`
}

// Create checks out quantity of an asset to a person.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	in.Base = validation.NormalizeLabel(in.Base)
	in.AssignedTo.Name = strings.TrimSpace(in.AssignedTo.Name)
	if in.Base == "" {
		return nil, ledger.Invalid("base is required")
	}
	if in.AssignedTo.Name == "" {
		return nil, ledger.Invalid("assigned_to.name is required")
	}
	// Authorized against the declared base before the asset is read.
	if err := access.Authorize(p, constants.CreateAssignment, in.Base); err != nil {
		return nil, err
	}
	asset, err := ledger.Get(ctx, s.DB, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Base != in.Base {
		return nil, ledger.ErrBaseMismatch
	}

	start := time.Now()
	if in.StartDate != nil {
		start = *in.StartDate
	}
	assignment := &domain.Assignment{
		AssetID:    asset.AssetID,
		AssetName:  asset.Name,
		AssetType:  asset.Type,
		Base:       asset.Base,
		Quantity:   in.Quantity,
		AssignedTo: in.AssignedTo,
		Purpose:    in.Purpose,
		Status:     domain.AssignmentActive,
		StartDate:  start,
		AssignedBy: p.UserID,
		Notes:      in.Notes,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		asset, err = ledger.Reserve(ctx, tx, asset.AssetID, ledger.Delta{Assigned: in.Quantity}, in.Quantity)
		if err != nil {
			return err
		}
		return tx.Create(assignment).Error
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCreate, assignment, nil)
	return &Result{Assignment: assignment, Asset: asset}, nil
}

// Return books quantity coming back from the assignee. Partial returns are
// allowed until the whole quantity is back, at which point the assignment is
// Returned.
func (s *Service) Return(ctx context.Context, p access.Principal, assignmentID uuid.UUID, quantity int64) (*Result, error) {
	if quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	assignment, err := s.load(ctx, s.DB, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ReturnAssignment, assignment.Base); err != nil {
		return nil, err
	}
	if assignment.Status != domain.AssignmentActive {
		return nil, ledger.ErrNotActive
	}
	if quantity > assignment.Outstanding() {
		return nil, ledger.ErrInvalidQuantity
	}

	var asset *domain.Asset
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Assignment{}).
			Where("assignment_id = ? AND status = ? AND returned_quantity + ? <= quantity",
				assignmentID, domain.AssignmentActive, quantity).
			Updates(map[string]interface{}{
				"returned_quantity": gorm.Expr("returned_quantity + ?", quantity),
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current, err := s.load(ctx, tx, assignmentID)
			if err != nil {
				return err
			}
			if current.Status != domain.AssignmentActive {
				return ledger.ErrNotActive
			}
			return ledger.ErrInvalidQuantity
		}
		var err error
		asset, err = ledger.Apply(ctx, tx, assignment.AssetID, ledger.Delta{Assigned: -quantity})
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.Assignment{}).
			Where("assignment_id = ? AND status = ? AND returned_quantity >= quantity", assignmentID, domain.AssignmentActive).
			Updates(map[string]interface{}{
				"status":   domain.AssignmentReturned,
				"end_date": time.Now(),
			}).Error; err != nil {
			return err
		}
		assignment, err = s.load(ctx, tx, assignmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionReturn, assignment, map[string]interface{}{"returned": quantity})
	return &Result{Assignment: assignment, Asset: asset}, nil
}

// SetStatus closes an Active assignment as Lost or Damaged. Units not yet
// returned leave circulation: they stop counting as assigned and count as
// expended.
func (s *Service) SetStatus(ctx context.Context, p access.Principal, assignmentID uuid.UUID, status string) (*Result, error) {
	if status != domain.AssignmentLost && status != domain.AssignmentDamaged {
		return nil, ledger.ErrInvalidStatus
	}
	assignment, err := s.load(ctx, s.DB, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ChangeAssignmentStatus, assignment.Base); err != nil {
		return nil, err
	}
	if assignment.Status != domain.AssignmentActive {
		return nil, ledger.ErrNotActive
	}

	var asset *domain.Asset
	var remaining int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Assignment{}).
			Where("assignment_id = ? AND status = ?", assignmentID, domain.AssignmentActive).
			Updates(map[string]interface{}{
				"status":   status,
				"end_date": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledger.ErrNotActive
		}
		// Read after the status write: a concurrent return now needs Active and cannot interleave.
		current, err := s.load(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		remaining = current.Outstanding()
		asset, err = ledger.Apply(ctx, tx, current.AssetID, ledger.Delta{Assigned: -remaining, Expended: remaining})
		if err != nil {
			return err
		}
		assignment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionStatusChange, assignment, map[string]interface{}{"written_off": remaining})
	return &Result{Assignment: assignment, Asset: asset}, nil
}

// Get returns an assignment visible to p.
func (s *Service) Get(ctx context.Context, p access.Principal, assignmentID uuid.UUID) (*domain.Assignment, error) {
	assignment, err := s.load(ctx, s.DB, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ViewAssignments, assignment.Base); err != nil {
		return nil, err
	}
	return assignment, nil
}

type ListFilter struct {
	Base     string
	Status   string
	AssetID  *uuid.UUID
	Assignee string
	From     *time.Time
	To       *time.Time
	Page     query.Page
}

func (s *Service) List(ctx context.Context, p access.Principal, f ListFilter) ([]domain.Assignment, int64, error) {
	base, err := access.ListScope(p, constants.ViewAssignments, f.Base)
	if err != nil {
		return nil, 0, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.Assignment{})
	if base != "" {
		q = q.Where("base = ?", base)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssetID != nil {
		q = q.Where("asset_id = ?", *f.AssetID)
	}
	if f.Assignee != "" {
		q = q.Where("LOWER(assignee_name) LIKE ?", "%"+strings.ToLower(f.Assignee)+"%")
	}
	q = query.Between(q, "start_date", f.From, f.To)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Assignment
	if err := f.Page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, assignmentID uuid.UUID) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := db.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) record(ctx context.Context, p access.Principal, action string, a *domain.Assignment, extra map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	details := map[string]interface{}{
		"asset_id":          a.AssetID.String(),
		"base":              a.Base,
		"quantity":          a.Quantity,
		"returned_quantity": a.ReturnedQuantity,
		"status":            a.Status,
		"assignee":          a.AssignedTo.Name,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       p.UserID,
		Action:       action,
		ResourceType: audit.ResourceAssignment,
		ResourceID:   a.AssignmentID.String(),
		Details:      details,
	})
}
