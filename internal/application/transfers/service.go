package transfers

import (
	"context"
	"errors"
	"fmt"
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
	"gorm.io/gorm"
)

// Service runs the transfer state machine. Each of the two asset updates of a
// create or cancel is committed together with a TransferIntent step, so an
// interrupted transfer can be finished by Recover.
type Service struct {
	DB    *gorm.DB
	Audit audit.Recorder
}

// Result is a transfer with the source and destination assets after the call.
type Result struct {
	Transfer           *domain.Transfer `json:"transfer"`
	Source             *domain.Asset    `json:"source,omitempty"`
	Destination        *domain.Asset    `json:"destination,omitempty"`
	DestinationCreated bool             `json:"destination_created"`
}

type CreateInput struct {
	AssetID  uuid.UUID `json:"asset_id"`
	FromBase string    `json:"from_base"`
	ToBase   string    `json:"to_base"`
	Quantity int64     `json:"quantity"`
	Notes    string    `json:"notes"`
}

// Create reserves quantity on the source asset and credits the destination
// asset (provisioned when absent) immediately. The transfer stays Pending until
// approved or cancelled.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	in.ToBase = validation.NormalizeLabel(in.ToBase)
	in.FromBase = validation.NormalizeLabel(in.FromBase)
	if in.ToBase == "" {
		return nil, ledger.Invalid("to_base is required")
	}
	source, err := ledger.Get(ctx, s.DB, in.AssetID)
	if err != nil {
		return nil, err
	}
	if in.FromBase != "" && in.FromBase != source.Base {
		return nil, ledger.ErrBaseMismatch
	}
	if in.ToBase == source.Base {
		return nil, ledger.Invalid("source and destination bases must differ")
	}
	if err := access.Authorize(p, constants.CreateTransfer, source.Base); err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{
		AssetID:     source.AssetID,
		AssetName:   source.Name,
		AssetType:   source.Type,
		FromBase:    source.Base,
		ToBase:      in.ToBase,
		Quantity:    in.Quantity,
		Status:      domain.TransferPending,
		InitiatedBy: p.UserID,
		Notes:       in.Notes,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transfer).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.TransferIntent{
			TransferID: transfer.TransferID,
			Kind:       domain.IntentKindCreate,
			Step:       domain.IntentStepSourceApplied,
		}).Error; err != nil {
			return err
		}
		var err error
		source, err = ledger.Reserve(ctx, tx, source.AssetID, ledger.Delta{TransferOut: in.Quantity}, in.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	dest, created, err := s.completeCreate(ctx, transfer.TransferID)
	if err != nil {
		s.noteFailure(ctx, transfer.TransferID, domain.IntentKindCreate, err)
		return nil, fmt.Errorf("transfer %s: destination not credited: %w", transfer.TransferID, err)
	}
	res, err := s.result(ctx, transfer.TransferID)
	if err != nil {
		return nil, err
	}
	res.Destination, res.DestinationCreated = dest, created
	s.record(ctx, p, audit.ActionCreate, res.Transfer, map[string]interface{}{"destination_created": created})
	return res, nil
}

// Approve closes a Pending transfer. Balances were moved at creation.
func (s *Service) Approve(ctx context.Context, p access.Principal, transferID uuid.UUID) (*Result, error) {
	transfer, err := s.load(ctx, s.DB, transferID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.ApproveTransfer, transfer.ToBase); err != nil {
		return nil, err
	}
	if transfer.Status != domain.TransferPending {
		return nil, ledger.ErrInvalidTransition
	}
	if _, _, err := s.completeCreate(ctx, transferID); err != nil {
		return nil, err
	}
	res := s.DB.WithContext(ctx).Model(&domain.Transfer{}).
		Where("transfer_id = ? AND status = ?", transferID, domain.TransferPending).
		Updates(map[string]interface{}{
			"status":      domain.TransferCompleted,
			"approved_by": p.UserID,
			"approved_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ledger.ErrInvalidTransition
	}
	out, err := s.result(ctx, transferID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionApprove, out.Transfer, nil)
	return out, nil
}

// Cancel reverses the creation deltas of a Pending transfer on both assets.
func (s *Service) Cancel(ctx context.Context, p access.Principal, transferID uuid.UUID) (*Result, error) {
	transfer, err := s.load(ctx, s.DB, transferID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(p, constants.CancelTransfer, transfer.FromBase); err != nil {
		return nil, err
	}
	if transfer.Status != domain.TransferPending {
		return nil, ledger.ErrAlreadyTerminal
	}
	// The reversal below assumes both creation deltas are in place.
	if _, _, err := s.completeCreate(ctx, transferID); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Transfer{}).
			Where("transfer_id = ? AND status = ?", transferID, domain.TransferPending).
			Updates(map[string]interface{}{
				"status":       domain.TransferCancelled,
				"cancelled_by": p.UserID,
				"cancelled_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledger.ErrAlreadyTerminal
		}
		if err := tx.Create(&domain.TransferIntent{
			TransferID: transferID,
			Kind:       domain.IntentKindCancel,
			Step:       domain.IntentStepSourceApplied,
		}).Error; err != nil {
			return err
		}
		_, err := ledger.Apply(ctx, tx, transfer.AssetID, ledger.Delta{TransferOut: -transfer.Quantity})
		if errors.Is(err, ledger.ErrNotFound) {
			orphaned(transferID, transfer.AssetID, domain.IntentKindCancel)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.completeCancel(ctx, transferID); err != nil {
		s.noteFailure(ctx, transferID, domain.IntentKindCancel, err)
		return nil, fmt.Errorf("transfer %s: destination not reversed: %w", transferID, err)
	}
	out, err := s.result(ctx, transferID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, audit.ActionCancel, out.Transfer, nil)
	return out, nil
}

// completeCreate credits the destination asset for a create intent still at
// source_applied. It is a no-op when the intent is already completed.
func (s *Service) completeCreate(ctx context.Context, transferID uuid.UUID) (*domain.Asset, bool, error) {
	var dest *domain.Asset
	var created bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claim(tx, transferID, domain.IntentKindCreate)
		if err != nil || !claimed {
			return err
		}
		transfer, err := s.load(ctx, tx, transferID)
		if err != nil {
			return err
		}
		dest, created, err = ledger.FindOrCreate(ctx, tx, transfer.AssetName, transfer.AssetType, transfer.ToBase)
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.Transfer{}).Where("transfer_id = ?", transferID).
			Update("destination_asset_id", dest.AssetID).Error; err != nil {
			return err
		}
		dest, err = ledger.Apply(ctx, tx, dest.AssetID, ledger.Delta{TransferIn: transfer.Quantity})
		return err
	})
	return dest, created, err
}

// completeCancel takes the quantity back off the destination asset for a cancel
// intent still at source_applied.
func (s *Service) completeCancel(ctx context.Context, transferID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claim(tx, transferID, domain.IntentKindCancel)
		if err != nil || !claimed {
			return err
		}
		transfer, err := s.load(ctx, tx, transferID)
		if err != nil {
			return err
		}
		var destID uuid.UUID
		if transfer.DestinationAssetID != nil {
			destID = *transfer.DestinationAssetID
		} else {
			dest, _, err := ledger.FindOrCreate(ctx, tx, transfer.AssetName, transfer.AssetType, transfer.ToBase)
			if err != nil {
				return err
			}
			destID = dest.AssetID
		}
		_, err = ledger.Apply(ctx, tx, destID, ledger.Delta{TransferIn: -transfer.Quantity})
		if errors.Is(err, ledger.ErrNotFound) {
			// Destination was hard-deleted; there is nothing left to reverse.
			orphaned(transferID, destID, domain.IntentKindCancel)
			return nil
		}
		return err
	})
}

func orphaned(transferID, assetID uuid.UUID, kind string) {
	log.Warn().Str("transfer_id", transferID.String()).Str("asset_id", assetID.String()).
		Str("kind", kind).Msg("transfers: asset no longer exists, reversal skipped")
}

// claim advances the intent from source_applied to completed inside tx. It
// returns false when there is no such intent or another caller already
// completed it; the caller's asset update then must not run.
func claim(tx *gorm.DB, transferID uuid.UUID, kind string) (bool, error) {
	res := tx.Model(&domain.TransferIntent{}).
		Where("transfer_id = ? AND kind = ? AND step = ?", transferID, kind, domain.IntentStepSourceApplied).
		Updates(map[string]interface{}{
			"step":       domain.IntentStepCompleted,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": nil,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) noteFailure(ctx context.Context, transferID uuid.UUID, kind string, cause error) {
	msg := cause.Error()
	err := s.DB.WithContext(ctx).Model(&domain.TransferIntent{}).
		Where("transfer_id = ? AND kind = ? AND step = ?", transferID, kind, domain.IntentStepSourceApplied).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
			"updated_at": time.Now(),
		}).Error
	log.Error().Err(cause).Str("transfer_id", transferID.String()).Str("kind", kind).
		AnErr("bookkeeping_error", err).Msg("transfers: intent left incomplete")
}

// RecoverResult summarizes a recovery sweep.
type RecoverResult struct {
	Scanned  int      `json:"scanned"`
	Resumed  int      `json:"resumed"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures"`
}

// Recover finishes every intent that stopped after its source step. Finishing
// forward is always safe: the source update already committed and the
// destination update is applied at most once per intent.
func (s *Service) Recover(ctx context.Context) (*RecoverResult, error) {
	var intents []domain.TransferIntent
	if err := s.DB.WithContext(ctx).
		Where("step <> ?", domain.IntentStepCompleted).
		Order("created_at ASC").
		Find(&intents).Error; err != nil {
		return nil, err
	}
	out := &RecoverResult{Scanned: len(intents), Failures: []string{}}
	for _, intent := range intents {
		var err error
		switch intent.Kind {
		case domain.IntentKindCreate:
			_, _, err = s.completeCreate(ctx, intent.TransferID)
		case domain.IntentKindCancel:
			err = s.completeCancel(ctx, intent.TransferID)
		default:
			err = fmt.Errorf("unknown intent kind %q", intent.Kind)
		}
		if err != nil {
			s.noteFailure(ctx, intent.TransferID, intent.Kind, err)
			out.Failed++
			out.Failures = append(out.Failures, intent.TransferID.String()+": "+err.Error())
			continue
		}
		out.Resumed++
		if s.Audit != nil {
			s.Audit.Record(ctx, audit.Entry{
				Action:       audit.ActionRecover,
				ResourceType: audit.ResourceTransfer,
				ResourceID:   intent.TransferID.String(),
				Details:      map[string]interface{}{"kind": intent.Kind},
			})
		}
	}
	log.Info().Int("scanned", out.Scanned).Int("resumed", out.Resumed).Int("failed", out.Failed).
		Msg("transfers: recovery sweep finished")
	return out, nil
}

// Get returns a transfer visible from either of its bases.
func (s *Service) Get(ctx context.Context, p access.Principal, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.load(ctx, s.DB, transferID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeAny(p, constants.ViewTransfers, transfer.FromBase, transfer.ToBase); err != nil {
		return nil, err
	}
	return transfer, nil
}

type ListFilter struct {
	Base      string
	Status    string
	AssetType string
	From      *time.Time
	To        *time.Time
	Page      query.Page
}

// List returns transfers leaving or entering the scoped base, newest first.
func (s *Service) List(ctx context.Context, p access.Principal, f ListFilter) ([]domain.Transfer, int64, error) {
	base, err := access.ListScope(p, constants.ViewTransfers, f.Base)
	if err != nil {
		return nil, 0, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.Transfer{})
	if base != "" {
		q = q.Where("from_base = ? OR to_base = ?", base, base)
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
	var out []domain.Transfer
	if err := f.Page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PendingIntents lists intents that have not reached completed.
func (s *Service) PendingIntents(ctx context.Context) ([]domain.TransferIntent, error) {
	var intents []domain.TransferIntent
	err := s.DB.WithContext(ctx).Where("step <> ?", domain.IntentStepCompleted).
		Order("created_at ASC").Find(&intents).Error
	return intents, err
}

func (s *Service) result(ctx context.Context, transferID uuid.UUID) (*Result, error) {
	transfer, err := s.load(ctx, s.DB, transferID)
	if err != nil {
		return nil, err
	}
	out := &Result{Transfer: transfer}
	if out.Source, err = ledger.Get(ctx, s.DB, transfer.AssetID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if transfer.DestinationAssetID != nil {
		if out.Destination, err = ledger.Get(ctx, s.DB, *transfer.DestinationAssetID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, transferID uuid.UUID) (*domain.Transfer, error) {
	var transfer domain.Transfer
	if err := db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func (s *Service) record(ctx context.Context, p access.Principal, action string, t *domain.Transfer, extra map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	details := map[string]interface{}{
		"asset_id":  t.AssetID.String(),
		"from_base": t.FromBase,
		"to_base":   t.ToBase,
		"quantity":  t.Quantity,
		"status":    t.Status,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:       p.UserID,
		Action:       action,
		ResourceType: audit.ResourceTransfer,
		ResourceID:   t.TransferID.String(),
		Details:      details,
	})
}
