package purchases

import (
	"context"
	"testing"

	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = access.Principal{UserID: "admin-1", Role: constants.Admin}
	officer = access.Principal{UserID: "officer-1", Role: constants.LogisticsOfficer, AssignedBase: "Alpha"}
)

func newService(t *testing.T) *Service {
	return &Service{DB: testutil.DB(t)}
}

func order(t *testing.T, s *Service, p access.Principal, qty int64) *domain.Purchase {
	t.Helper()
	purchase, err := s.Create(context.Background(), p, CreateInput{
		AssetName: "5.56mm  Rounds",
		AssetType: domain.AssetTypeAmmunition,
		Base:      "Alpha",
		Quantity:  qty,
		UnitCost:  decimal.RequireFromString("0.45"),
		Supplier:  "Depot 7",
	})
	require.NoError(t, err)
	return purchase
}

func TestCreate_RecordsOrderWithoutTouchingBalances(t *testing.T) {
	s := newService(t)
	purchase := order(t, s, officer, 1000)

	assert.Equal(t, domain.PurchaseOrdered, purchase.Status)
	assert.Equal(t, "5.56mm Rounds", purchase.AssetName)
	assert.True(t, purchase.TotalCost.Equal(decimal.NewFromInt(450)))
	var count int64
	require.NoError(t, s.DB.Model(&domain.Asset{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreate_Validation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, officer, CreateInput{AssetName: "x", AssetType: domain.AssetTypeWeapon, Base: "Alpha"})
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	_, err = s.Create(ctx, officer, CreateInput{AssetName: "x", AssetType: "Spaceship", Base: "Alpha", Quantity: 1})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = s.Create(ctx, officer, CreateInput{AssetName: "x", AssetType: domain.AssetTypeWeapon, Base: "Bravo", Quantity: 1})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	commander := access.Principal{UserID: "c", Role: constants.BaseCommander, AssignedBase: "Alpha"}
	_, err = s.Create(ctx, commander, CreateInput{AssetName: "x", AssetType: domain.AssetTypeWeapon, Base: "Alpha", Quantity: 1})
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

func TestDeliver_ProvisionsAssetAndBooksQuantity(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	purchase := order(t, s, officer, 100)

	res, err := s.Deliver(ctx, officer, purchase.PurchaseID)
	require.NoError(t, err)
	assert.True(t, res.AssetCreated)
	assert.Equal(t, domain.PurchaseDelivered, res.Purchase.Status)
	require.NotNil(t, res.Purchase.AssetID)
	assert.Equal(t, res.Asset.AssetID, *res.Purchase.AssetID)
	assert.Equal(t, int64(100), res.Asset.Purchases)
	assert.Equal(t, int64(100), res.Asset.Available)

	second := order(t, s, officer, 50)
	res, err = s.Deliver(ctx, officer, second.PurchaseID)
	require.NoError(t, err)
	assert.False(t, res.AssetCreated)
	assert.Equal(t, int64(150), res.Asset.ClosingBalance)

	_, err = s.Deliver(ctx, officer, second.PurchaseID)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestCancel_DeliveredPurchaseReversesBalance(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	purchase := order(t, s, officer, 40)
	delivered, err := s.Deliver(ctx, officer, purchase.PurchaseID)
	require.NoError(t, err)

	res, err := s.Cancel(ctx, officer, purchase.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseCancelled, res.Purchase.Status)
	require.NotNil(t, res.Asset)
	assert.Equal(t, delivered.Asset.AssetID, res.Asset.AssetID)
	assert.Equal(t, int64(0), res.Asset.Purchases)
	assert.Equal(t, int64(0), res.Asset.ClosingBalance)

	_, err = s.Cancel(ctx, officer, purchase.PurchaseID)
	assert.ErrorIs(t, err, ledger.ErrAlreadyTerminal)
	_, err = s.Deliver(ctx, officer, purchase.PurchaseID)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestCancel_DeliveredPurchaseWithDeletedAsset(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	purchase := order(t, s, officer, 40)
	delivered, err := s.Deliver(ctx, officer, purchase.PurchaseID)
	require.NoError(t, err)
	require.NoError(t, s.DB.Where("asset_id = ?", delivered.Asset.AssetID).Delete(&domain.Asset{}).Error)

	res, err := s.Cancel(ctx, officer, purchase.PurchaseID)
	require.NoError(t, err)
	assert.Nil(t, res.Asset)
	assert.Equal(t, domain.PurchaseCancelled, res.Purchase.Status)

	_, err = s.Cancel(ctx, officer, purchase.PurchaseID)
	assert.ErrorIs(t, err, ledger.ErrAlreadyTerminal)
}

func TestCancel_OrderedPurchaseHasNoBalanceEffect(t *testing.T) {
	s := newService(t)
	purchase := order(t, s, officer, 40)

	res, err := s.Cancel(context.Background(), admin, purchase.PurchaseID)
	require.NoError(t, err)
	assert.Nil(t, res.Asset)
	assert.Equal(t, domain.PurchaseCancelled, res.Purchase.Status)
}

func TestList_ScopedToOwnBase(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	order(t, s, officer, 1)
	_, err := s.Create(ctx, admin, CreateInput{AssetName: "Radio", AssetType: domain.AssetTypeEquipment, Base: "Bravo", Quantity: 2})
	require.NoError(t, err)

	items, total, err := s.List(ctx, officer, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Alpha", items[0].Base)

	_, total, err = s.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
