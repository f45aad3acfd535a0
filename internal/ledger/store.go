package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"armory-backend/internal/domain"
	"armory-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const instrumentationName = "armory-backend/internal/ledger"

var (
	tracer         = otel.Tracer(instrumentationName)
	balanceUpdates metric.Int64Counter
)

func init() {
	var err error
	balanceUpdates, err = otel.Meter(instrumentationName).Int64Counter(
		"ledger.balance_updates",
		metric.WithDescription("Asset balance writes by operation and outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

// derived SQL for closing_balance and available, evaluated against the row
// values before the UPDATE applies (same in Postgres and SQLite).
const (
	closingExpr   = "opening_balance + purchases + transfer_in - transfer_out - expended"
	availableExpr = closingExpr + " - assigned"
)

// Get loads an asset by id using db (a transaction or the root handle).
func Get(ctx context.Context, db *gorm.DB, assetID uuid.UUID) (*domain.Asset, error) {
	var a domain.Asset
	if err := db.WithContext(ctx).Where("asset_id = ?", assetID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Apply adds d to the asset's counters and recomputes the derived fields in one
// UPDATE statement. No in-memory read-modify-write is involved.
func Apply(ctx context.Context, db *gorm.DB, assetID uuid.UUID, d Delta) (*domain.Asset, error) {
	ctx, span := startSpan(ctx, "ledger.apply", assetID, d)
	defer span.End()

	res := db.WithContext(ctx).Model(&domain.Asset{}).
		Where("asset_id = ?", assetID).
		Updates(deltaColumns(d))
	if res.Error != nil {
		return nil, finish(ctx, span, "apply", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, finish(ctx, span, "apply", ErrNotFound)
	}
	a, err := Get(ctx, db, assetID)
	if err != nil {
		return nil, finish(ctx, span, "apply", err)
	}
	warnIfNegative(a)
	return a, finish(ctx, span, "apply", nil)
}

// Reserve applies d only when the asset currently has at least quantity
// available. The check and the write are one statement, so two concurrent
// reservations cannot both spend the same units.
func Reserve(ctx context.Context, db *gorm.DB, assetID uuid.UUID, d Delta, quantity int64) (*domain.Asset, error) {
	ctx, span := startSpan(ctx, "ledger.reserve", assetID, d)
	defer span.End()
	span.SetAttributes(attribute.Int64("ledger.requested", quantity))

	res := db.WithContext(ctx).Model(&domain.Asset{}).
		Where("asset_id = ? AND available >= ?", assetID, quantity).
		Updates(deltaColumns(d))
	if res.Error != nil {
		return nil, finish(ctx, span, "reserve", res.Error)
	}
	if res.RowsAffected == 0 {
		a, err := Get(ctx, db, assetID)
		if err != nil {
			return nil, finish(ctx, span, "reserve", err)
		}
		return nil, finish(ctx, span, "reserve", &InsufficientQuantityError{Available: a.Available, Requested: quantity})
	}
	a, err := Get(ctx, db, assetID)
	if err != nil {
		return nil, finish(ctx, span, "reserve", err)
	}
	return a, finish(ctx, span, "reserve", nil)
}

// FindOrCreate resolves the asset for (name, type, base), inserting a zeroed
// record when none exists. created reports whether this call inserted it.
func FindOrCreate(ctx context.Context, db *gorm.DB, name, assetType, base string) (*domain.Asset, bool, error) {
	name, assetType, base = validation.NormalizeLabel(name), strings.TrimSpace(assetType), validation.NormalizeLabel(base)
	if name == "" || assetType == "" || base == "" {
		return nil, false, Invalid("asset name, type and base are required")
	}
	if a, err := findByKey(ctx, db, name, assetType, base); err == nil {
		return a, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	a := &domain.Asset{Name: name, Type: assetType, Base: base}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		log.Info().Str("asset_id", a.AssetID.String()).Str("name", name).Str("type", assetType).Str("base", base).
			Msg("ledger: provisioned asset record")
		return a, true, nil
	}
	// Another request inserted the same key between our read and insert.
	existing, err := findByKey(ctx, db, name, assetType, base)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SetOpening is the explicit edit of the opening balance.
func SetOpening(ctx context.Context, db *gorm.DB, assetID uuid.UUID, opening int64) (*domain.Asset, error) {
	if opening < 0 {
		return nil, fmt.Errorf("%w: opening balance must be zero or more", ErrInvalidQuantity)
	}
	ctx, span := startSpan(ctx, "ledger.set_opening", assetID, Delta{})
	defer span.End()

	res := db.WithContext(ctx).Model(&domain.Asset{}).
		Where("asset_id = ?", assetID).
		Updates(map[string]interface{}{
			"opening_balance": opening,
			"closing_balance": gorm.Expr("? + purchases + transfer_in - transfer_out - expended", opening),
			"available":       gorm.Expr("? + purchases + transfer_in - transfer_out - expended - assigned", opening),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return nil, finish(ctx, span, "set_opening", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, finish(ctx, span, "set_opening", ErrNotFound)
	}
	a, err := Get(ctx, db, assetID)
	return a, finish(ctx, span, "set_opening", err)
}

func findByKey(ctx context.Context, db *gorm.DB, name, assetType, base string) (*domain.Asset, error) {
	var a domain.Asset
	err := db.WithContext(ctx).
		Where("name = ? AND type = ? AND base = ?", name, assetType, base).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func deltaColumns(d Delta) map[string]interface{} {
	return map[string]interface{}{
		"purchases":       gorm.Expr("purchases + ?", d.Purchases),
		"transfer_in":     gorm.Expr("transfer_in + ?", d.TransferIn),
		"transfer_out":    gorm.Expr("transfer_out + ?", d.TransferOut),
		"assigned":        gorm.Expr("assigned + ?", d.Assigned),
		"expended":        gorm.Expr("expended + ?", d.Expended),
		"closing_balance": gorm.Expr(closingExpr+" + ?", d.closingChange()),
		"available":       gorm.Expr(availableExpr+" + ?", d.availableChange()),
		"updated_at":      time.Now(),
	}
}

// Compensations may drive counters below zero; that state is kept as-is.
func warnIfNegative(a *domain.Asset) {
	if a.Purchases < 0 || a.TransferIn < 0 || a.TransferOut < 0 || a.Assigned < 0 || a.Expended < 0 || a.Available < 0 {
		log.Warn().Str("asset_id", a.AssetID.String()).
			Int64("purchases", a.Purchases).Int64("transfer_in", a.TransferIn).Int64("transfer_out", a.TransferOut).
			Int64("assigned", a.Assigned).Int64("expended", a.Expended).Int64("available", a.Available).
			Msg("ledger: asset has a negative counter")
	}
}

func startSpan(ctx context.Context, name string, assetID uuid.UUID, d Delta) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("ledger.asset_id", assetID.String()),
		attribute.Int64("ledger.delta.purchases", d.Purchases),
		attribute.Int64("ledger.delta.transfer_in", d.TransferIn),
		attribute.Int64("ledger.delta.transfer_out", d.TransferOut),
		attribute.Int64("ledger.delta.assigned", d.Assigned),
		attribute.Int64("ledger.delta.expended", d.Expended),
	))
}

func finish(ctx context.Context, span trace.Span, op string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientQuantity):
		outcome = "insufficient"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if balanceUpdates == nil {
		return err
	}
	balanceUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
	return err
}
